// Package edidtest builds realistic EDID documents for tests.
package edidtest

import "github.com/s0up4200/go-edid/internal/edid"

// BaseBlock returns a checksummed base block for a 1920x1080@60 Samsung panel
// named "SAMSUNG" with a range-limits descriptor in slot 3, a serial string in
// slot 4, and all standard timing slots unused. extensions is written to byte 126.
func BaseBlock(extensions int) edid.Block {
	b := make(edid.Block, edid.BlockSize)
	copy(b, edid.Header[:])
	b[8], b[9] = 0x4C, 0x2D   // SAM
	b[10], b[11] = 0x0F, 0x70 // product 0x700F
	b[12], b[13], b[14], b[15] = 0x4E, 0x61, 0xBC, 0x00
	b[16], b[17] = 12, 30 // week 12, 2020
	b[18], b[19] = 1, 3
	b[20] = 0x80
	b[21], b[22] = 60, 34
	b[23] = 0x78 // gamma 2.20
	b[24] = 0xEA
	for off := 38; off < 54; off++ {
		b[off] = 0x01
	}
	copy(b[54:72], Timing1080p60())
	copy(b[72:90], TextDescriptor(edid.DisplayNameTag, "SAMSUNG"))
	copy(b[90:108], []byte{0x00, 0x00, 0x00, 0xFD, 0x00, 0x18, 0x4B, 0x1A, 0x51, 0x11, 0x00, 0x0A, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20})
	copy(b[108:126], TextDescriptor(edid.SerialStringTag, "H4ZR000001"))
	b[126] = byte(extensions)
	_, _ = edid.RecalculateChecksum(b)
	return b
}

// Timing1080p60 is the CEA 1920x1080@60 detailed timing descriptor.
func Timing1080p60() []byte {
	return []byte{0x02, 0x3A, 0x80, 0x18, 0x71, 0x38, 0x2D, 0x40, 0x58, 0x2C, 0x45, 0x00, 0x56, 0x50, 0x21, 0x00, 0x00, 0x1E}
}

// TextDescriptor builds an alphanumeric descriptor, line-feed terminated and
// space padded.
func TextDescriptor(tag byte, text string) []byte {
	d := make([]byte, edid.DescriptorSize)
	d[3] = tag
	payload := append([]byte(text), 0x0A)
	for i := 5; i < edid.DescriptorSize; i++ {
		if j := i - 5; j < len(payload) {
			d[i] = payload[j]
		} else {
			d[i] = 0x20
		}
	}
	return d
}

// DummyDescriptor is an unused descriptor slot (tag 0x10).
func DummyDescriptor() []byte {
	d := make([]byte, edid.DescriptorSize)
	d[3] = 0x10
	return d
}

// CEABlock returns a checksummed CEA-861 rev 3 extension with video, audio,
// speaker allocation and vendor-specific data blocks.
func CEABlock() edid.Block {
	b := make(edid.Block, edid.BlockSize)
	b[0], b[1] = edid.CEA861Tag, 0x03
	b[3] = 0xF0 // underscan, basic audio, 4:4:4, 4:2:2
	collection := []byte{
		0x43, 0x10, 0x04, 0x03, // video, 3 SVDs
		0x23, 0x09, 0x07, 0x07, // audio, 1 SAD
		0x83, 0x01, 0x00, 0x00, // speaker allocation
		0x65, 0x03, 0x0C, 0x00, 0x10, 0x00, // vendor specific (HDMI)
	}
	copy(b[4:], collection)
	b[2] = byte(4 + len(collection))
	copy(b[b[2]:], Timing1080p60())
	_, _ = edid.RecalculateChecksum(b)
	return b
}

// Document joins a base block with the given extensions and fixes the
// extension count and checksums.
func Document(extensions ...edid.Block) edid.Document {
	doc := edid.Document(BaseBlock(len(extensions)))
	for _, ext := range extensions {
		doc = append(doc, ext...)
	}
	_ = edid.RecalculateChecksums(doc)
	return doc
}
