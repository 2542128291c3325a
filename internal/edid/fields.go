package edid

import (
	"fmt"
	"math"

	"github.com/s0up4200/go-edid/internal/buffer"
	"github.com/s0up4200/go-edid/internal/util"
)

const (
	manufacturerOffset = 8
	productCodeOffset  = 10
	weekOffset         = 16
	versionOffset      = 18
	videoInputOffset   = 20
	featuresOffset     = 24
)

// ProductInfo holds the vendor/product section (bytes 8-17).
type ProductInfo struct {
	Manufacturer string
	ProductCode  uint16
	SerialNumber uint32
	// Week is 0 when the manufacturer left it unspecified.
	Week int
	Year int
}

// Version is the EDID structure version (bytes 18-19).
type Version struct {
	Major byte
	Minor byte
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// DisplayParams holds the basic display parameters (bytes 20-24).
type DisplayParams struct {
	Digital bool
	// MaxHSizeCM and MaxVSizeCM are 0 when unspecified.
	MaxHSizeCM int
	MaxVSizeCM int
	// Gamma is only meaningful when GammaDefined is set.
	Gamma         float64
	GammaDefined  bool
	DPMSStandby   bool
	DPMSSuspend   bool
	DPMSActiveOff bool
}

// HasSize reports whether both physical dimensions are specified.
func (p DisplayParams) HasSize() bool {
	return p.MaxHSizeCM != 0 && p.MaxVSizeCM != 0
}

// DiagonalInches derives the screen diagonal from the physical size.
func (p DisplayParams) DiagonalInches() float64 {
	h := float64(p.MaxHSizeCM)
	v := float64(p.MaxVSizeCM)
	return math.Sqrt(h*h+v*v) / 2.54
}

// DecodeManufacturerID unpacks the three 5-bit letters stored big-endian in
// two bytes. Each group is offset by 64, so 1 maps to 'A'.
func DecodeManufacturerID(b [2]byte) string {
	groups, _ := buffer.Unpack(b[:], -1, 5, 5, 5)
	letters := make([]byte, len(groups))
	for i, v := range groups {
		letters[i] = byte(v) + 64
	}
	return string(letters)
}

// ProductInfo decodes bytes 8-17. ok is false when the document is too short.
func (d Document) ProductInfo() (info ProductInfo, ok bool) {
	if len(d) < versionOffset {
		return ProductInfo{}, false
	}
	info.Manufacturer = DecodeManufacturerID([2]byte{d[manufacturerOffset], d[manufacturerOffset+1]})
	pos := productCodeOffset
	info.ProductCode = util.ReadUint16LE(d, &pos)
	info.SerialNumber = util.ReadUint32LE(d, &pos)
	pos = weekOffset
	info.Week = int(util.ReadByte(d, &pos))
	info.Year = 1990 + int(util.ReadByte(d, &pos))
	return info, true
}

// Version decodes bytes 18-19.
func (d Document) Version() (Version, bool) {
	if len(d) < videoInputOffset {
		return Version{}, false
	}
	return Version{Major: d[versionOffset], Minor: d[versionOffset+1]}, true
}

// DisplayParams decodes bytes 20-24.
func (d Document) DisplayParams() (DisplayParams, bool) {
	if len(d) <= featuresOffset {
		return DisplayParams{}, false
	}
	p := DisplayParams{
		Digital:    d[videoInputOffset]&0x80 != 0,
		MaxHSizeCM: int(d[21]),
		MaxVSizeCM: int(d[22]),
	}
	if g := d[23]; g != 0xFF {
		p.Gamma = (float64(g) + 100) / 100
		p.GammaDefined = true
	}
	features := d[featuresOffset]
	p.DPMSStandby = features&0x80 != 0
	p.DPMSSuspend = features&0x40 != 0
	p.DPMSActiveOff = features&0x20 != 0
	return p, true
}
