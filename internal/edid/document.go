package edid

import (
	"bytes"
	"fmt"
	"os"
)

const (
	BlockSize            = 128
	ExtensionCountOffset = 126
	ChecksumOffset       = 127
	DescriptorSize       = 18

	CEA861Tag    = 0x02
	DisplayIDTag = 0x70
	BlockMapTag  = 0xF0
)

// Header is the fixed magic at the start of every base block.
var Header = [8]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// DescriptorOffsets are the base-block offsets of the four 18-byte descriptor slots.
var DescriptorOffsets = [4]int{54, 72, 90, 108}

const (
	standardTimingStart = 38
	standardTimingEnd   = 54
)

// Document is an EDID document: one base block followed by zero or more
// extension blocks.
type Document []byte

// Block is one 128-byte slice of a Document.
type Block []byte

// Tag returns byte 0, which identifies the type of an extension block.
func (b Block) Tag() byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// ExtensionCount returns the extension count declared in base block byte 126.
func (d Document) ExtensionCount() int {
	if len(d) <= ExtensionCountOffset {
		return 0
	}
	return int(d[ExtensionCountOffset])
}

// BlockCount returns the number of complete blocks present.
func (d Document) BlockCount() int {
	return len(d) / BlockSize
}

// Blocks splits the document into complete blocks; a trailing partial block
// is dropped.
func (d Document) Blocks() []Block {
	blocks := make([]Block, 0, d.BlockCount())
	for off := 0; off+BlockSize <= len(d); off += BlockSize {
		blocks = append(blocks, Block(d[off:off+BlockSize]))
	}
	return blocks
}

// Block returns block i if it is fully present.
func (d Document) Block(i int) (Block, bool) {
	off := i * BlockSize
	if i < 0 || off+BlockSize > len(d) {
		return nil, false
	}
	return Block(d[off : off+BlockSize]), true
}

func (d Document) HasHeader() bool {
	return len(d) >= len(Header) && bytes.Equal(d[:len(Header)], Header[:])
}

func (d Document) Clone() Document {
	return append(Document(nil), d...)
}

// ExtensionKind names an extension block by its tag byte.
func ExtensionKind(tag byte) string {
	switch tag {
	case CEA861Tag:
		return "CEA-861"
	case DisplayIDTag:
		return "DisplayID"
	case BlockMapTag:
		return "Block Map"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", tag)
	}
}

// ReadFile loads a raw EDID dump. No structural validation is done here.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Document(data), nil
}

// WriteFile stores d as a raw block concatenation.
func WriteFile(path string, d Document) error {
	return os.WriteFile(path, d, 0o644)
}
