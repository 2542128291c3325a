package util

import (
	"strings"
)

func ReadByte(data []byte, pos *int) byte {
	if *pos >= len(data) {
		return 0
	}
	b := data[*pos]
	*pos += 1
	return b
}

// ReadUint16LE reads a little-endian uint16. EDID multi-byte fields are LE
// except the manufacturer ID.
func ReadUint16LE(data []byte, pos *int) uint16 {
	if *pos+2 > len(data) {
		return 0
	}
	val := uint16(data[*pos]) | uint16(data[*pos+1])<<8
	*pos += 2
	return val
}

func ReadUint32LE(data []byte, pos *int) uint32 {
	if *pos+4 > len(data) {
		return 0
	}
	val := uint32(data[*pos]) | uint32(data[*pos+1])<<8 | uint32(data[*pos+2])<<16 | uint32(data[*pos+3])<<24
	*pos += 4
	return val
}

// ASCIIText keeps the 7-bit bytes of data up to the first terminator and
// trims surrounding whitespace.
func ASCIIText(data []byte, terminator byte) string {
	var b strings.Builder
	for _, c := range data {
		if c == terminator {
			break
		}
		if c < 0x80 {
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// PrintableASCII renders data for the ASCII column of a hex dump.
func PrintableASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, c := range data {
		if c >= 32 && c < 127 {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

func HexBytes(data []byte) string {
	const digits = "0123456789ABCDEF"
	var b strings.Builder
	for i, c := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(digits[c>>4])
		b.WriteByte(digits[c&0x0F])
	}
	return b.String()
}
