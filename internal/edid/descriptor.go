package edid

import (
	"github.com/s0up4200/go-edid/internal/util"
)

// Display descriptor tags (byte 3 of a descriptor whose first two bytes are 0).
const (
	SerialStringTag = 0xFF
	TextTag         = 0xFE
	DisplayNameTag  = 0xFC
)

type DescriptorKind int

const (
	DescriptorTiming DescriptorKind = iota
	DescriptorDisplayName
	DescriptorSerial
	DescriptorText
	DescriptorDummy
)

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorTiming:
		return "Detailed Timing"
	case DescriptorDisplayName:
		return "Display Name"
	case DescriptorSerial:
		return "Serial Number"
	case DescriptorText:
		return "Text"
	default:
		return "Dummy/Unused"
	}
}

// DetailedTiming is a decoded 18-byte detailed timing descriptor.
type DetailedTiming struct {
	PixelClockHz uint64
	HActive      int
	HBlank       int
	VActive      int
	VBlank       int
}

func (t DetailedTiming) HTotal() int { return t.HActive + t.HBlank }

func (t DetailedTiming) VTotal() int { return t.VActive + t.VBlank }

// RefreshHz is pixel clock / (h_total * v_total); 0 for a degenerate timing.
func (t DetailedTiming) RefreshHz() float64 {
	total := t.HTotal() * t.VTotal()
	if total == 0 {
		return 0
	}
	return float64(t.PixelClockHz) / float64(total)
}

func (t DetailedTiming) PixelClockMHz() float64 {
	return float64(t.PixelClockHz) / 1_000_000
}

// Descriptor is one of the four base-block descriptor slots.
type Descriptor struct {
	// Index is 1-based, in slot order.
	Index  int
	Offset int
	Kind   DescriptorKind
	// Tag is byte 3 for non-timing descriptors.
	Tag    byte
	Text   string
	Timing DetailedTiming
}

func isDummy(desc []byte) bool {
	return desc[0] == 0 && desc[1] == 0
}

// ParseDetailedTiming decodes desc as a timing descriptor. ok is false for
// dummy or alphanumeric descriptors and for a slice that is not 18 bytes.
func ParseDetailedTiming(desc []byte) (DetailedTiming, bool) {
	if len(desc) != DescriptorSize || isDummy(desc) {
		return DetailedTiming{}, false
	}
	pos := 0
	clock := util.ReadUint16LE(desc, &pos)
	return DetailedTiming{
		PixelClockHz: uint64(clock) * 10000,
		HActive:      int(desc[2]) | int(desc[4]&0xF0)<<4,
		HBlank:       int(desc[3]) | int(desc[4]&0x0F)<<8,
		VActive:      int(desc[5]) | int(desc[7]&0xF0)<<4,
		VBlank:       int(desc[6]) | int(desc[7]&0x0F)<<8,
	}, true
}

// ParseDescriptor classifies an 18-byte descriptor found at offset.
func ParseDescriptor(index, offset int, desc []byte) Descriptor {
	out := Descriptor{Index: index, Offset: offset, Kind: DescriptorDummy}
	if len(desc) != DescriptorSize {
		return out
	}
	if t, ok := ParseDetailedTiming(desc); ok {
		out.Kind = DescriptorTiming
		out.Timing = t
		return out
	}
	out.Tag = desc[3]
	switch out.Tag {
	case DisplayNameTag:
		out.Kind = DescriptorDisplayName
	case SerialStringTag:
		out.Kind = DescriptorSerial
	case TextTag:
		out.Kind = DescriptorText
	default:
		return out
	}
	out.Text = util.ASCIIText(desc[5:DescriptorSize], 0x0A)
	if out.Kind == DescriptorDisplayName && out.Text == "" {
		out.Kind = DescriptorDummy
	}
	return out
}

// Descriptors decodes every descriptor slot that is fully present.
func (d Document) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(DescriptorOffsets))
	for i, off := range DescriptorOffsets {
		if off+DescriptorSize > len(d) {
			break
		}
		out = append(out, ParseDescriptor(i+1, off, d[off:off+DescriptorSize]))
	}
	return out
}

// DisplayName returns the text of the first non-empty display-name descriptor.
func (d Document) DisplayName() string {
	for _, desc := range d.Descriptors() {
		if desc.Kind == DescriptorDisplayName && desc.Text != "" {
			return desc.Text
		}
	}
	return ""
}

// Timings returns every timing descriptor in slot order.
func (d Document) Timings() []DetailedTiming {
	var out []DetailedTiming
	for _, desc := range d.Descriptors() {
		if desc.Kind == DescriptorTiming {
			out = append(out, desc.Timing)
		}
	}
	return out
}

// PreferredTiming is the first timing descriptor.
func (d Document) PreferredTiming() (DetailedTiming, bool) {
	timings := d.Timings()
	if len(timings) == 0 {
		return DetailedTiming{}, false
	}
	return timings[0], true
}
