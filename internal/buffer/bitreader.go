// Package buffer unpacks MSB-first bit fields such as the EDID manufacturer
// letters and CEA-861 data block headers.
package buffer

import (
	"errors"
	"fmt"
)

// ErrOverrun is returned when a field extends past the end of the data.
var ErrOverrun = errors.New("bit field past end of data")

// MaxWidth is the widest single field Uint can return.
const MaxWidth = 32

// BitReader walks a byte slice as a stream of bits, most significant first.
type BitReader struct {
	data []byte
	off  int // in bits
}

func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// Remaining reports the number of unread bits.
func (r *BitReader) Remaining() int {
	return len(r.data)*8 - r.off
}

// Skip advances past n bits.
func (r *BitReader) Skip(n int) error {
	if n < 0 || n > r.Remaining() {
		return fmt.Errorf("skip %d at bit %d: %w", n, r.off, ErrOverrun)
	}
	r.off += n
	return nil
}

// Uint reads an n-bit unsigned field. A failed read leaves the position unchanged.
func (r *BitReader) Uint(n int) (uint32, error) {
	if n < 0 || n > MaxWidth {
		return 0, fmt.Errorf("field width %d out of range", n)
	}
	if n > r.Remaining() {
		return 0, fmt.Errorf("read %d at bit %d: %w", n, r.off, ErrOverrun)
	}
	var v uint32
	for range n {
		b := r.data[r.off/8] >> (7 - r.off%8) & 1
		v = v<<1 | uint32(b)
		r.off++
	}
	return v, nil
}

// Flag reads a single bit.
func (r *BitReader) Flag() (bool, error) {
	v, err := r.Uint(1)
	return v == 1, err
}

// Unpack splits data into consecutive fields of the given widths. A zero
// width yields 0 and a negative width skips -w bits without producing a value.
func Unpack(data []byte, widths ...int) ([]uint32, error) {
	r := NewBitReader(data)
	out := make([]uint32, 0, len(widths))
	for _, w := range widths {
		if w < 0 {
			if err := r.Skip(-w); err != nil {
				return nil, err
			}
			continue
		}
		v, err := r.Uint(w)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
