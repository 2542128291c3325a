package edid

import (
	"fmt"

	"github.com/s0up4200/go-edid/internal/buffer"
)

const ceaDataBlockStart = 4

// CEA-861 data block tag codes.
const (
	DataBlockAudio             = 1
	DataBlockVideo             = 2
	DataBlockVendorSpecific    = 3
	DataBlockSpeakerAllocation = 4
)

// DataBlock is one entry of the CEA-861 data block collection.
type DataBlock struct {
	// Offset of the header byte within the extension block.
	Offset int
	Tag    byte
	Length int
}

// Kind names the block by its tag code.
func (b DataBlock) Kind() string {
	switch b.Tag {
	case DataBlockAudio:
		return "Audio"
	case DataBlockVideo:
		return "Video"
	case DataBlockVendorSpecific:
		return "Vendor Specific"
	case DataBlockSpeakerAllocation:
		return "Speaker Allocation"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", b.Tag)
	}
}

// CEA861Extension is a decoded CEA-861 extension block.
type CEA861Extension struct {
	Revision byte
	// DTDOffset is byte 2, the boundary where detailed timing descriptors start.
	DTDOffset  int
	Underscan  bool
	BasicAudio bool
	YCbCr444   bool
	YCbCr422   bool
	DataBlocks []DataBlock
}

// ParseCEA861 decodes b as a CEA-861 extension. ok is false when b is not a
// full block or does not carry the CEA-861 tag.
func ParseCEA861(b Block) (ext CEA861Extension, ok bool) {
	if len(b) != BlockSize || b[0] != CEA861Tag {
		return CEA861Extension{}, false
	}
	ext.Revision = b[1]
	ext.DTDOffset = int(b[2])
	flags := b[3]
	ext.Underscan = flags&0x80 != 0
	ext.BasicAudio = flags&0x40 != 0
	ext.YCbCr444 = flags&0x20 != 0
	ext.YCbCr422 = flags&0x10 != 0

	offset := ceaDataBlockStart
	for offset < ext.DTDOffset && offset < ChecksumOffset {
		hdr, _ := buffer.Unpack(b[offset:offset+1], 3, 5)
		tag, length := hdr[0], hdr[1]
		if offset+int(length)+1 > ext.DTDOffset {
			break
		}
		ext.DataBlocks = append(ext.DataBlocks, DataBlock{
			Offset: offset,
			Tag:    byte(tag),
			Length: int(length),
		})
		offset += int(length) + 1
	}
	return ext, true
}
