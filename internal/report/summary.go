package report

import "github.com/s0up4200/go-edid/internal/edid"

// Summary is the basic-level view of a document.
type Summary struct {
	Product     edid.ProductInfo
	HasProduct  bool
	Version     edid.Version
	HasVersion  bool
	Display     edid.DisplayParams
	HasDisplay  bool
	DisplayName string
	// Preferred is the first detailed timing descriptor.
	Preferred         edid.DetailedTiming
	HasPreferred      bool
	AdditionalTimings int
	// ExtensionCount is the count declared in byte 126, not the blocks present.
	ExtensionCount int
}

// ExtensionInfo describes one extension block.
type ExtensionInfo struct {
	Index int
	Tag   byte
	Kind  string
	// CEA is set for CEA-861 extensions.
	CEA *edid.CEA861Extension
}

// Detail is the deep-level view of a document.
type Detail struct {
	Summary
	Descriptors []edid.Descriptor
	Extensions  []ExtensionInfo
	// MissingExtensions counts declared extensions with no block in the data.
	MissingExtensions int
}

// Summarize extracts the basic fields. It tolerates short or invalid input.
func Summarize(doc edid.Document) Summary {
	var s Summary
	s.Product, s.HasProduct = doc.ProductInfo()
	s.Version, s.HasVersion = doc.Version()
	s.Display, s.HasDisplay = doc.DisplayParams()
	s.DisplayName = doc.DisplayName()
	timings := doc.Timings()
	if len(timings) > 0 {
		s.Preferred = timings[0]
		s.HasPreferred = true
		s.AdditionalTimings = len(timings) - 1
	}
	s.ExtensionCount = doc.ExtensionCount()
	return s
}

// Inspect extracts the deep view: every descriptor slot and every declared
// extension block that is present.
func Inspect(doc edid.Document) Detail {
	d := Detail{
		Summary:     Summarize(doc),
		Descriptors: doc.Descriptors(),
	}
	for i := 1; i <= d.ExtensionCount; i++ {
		block, ok := doc.Block(i)
		if !ok {
			d.MissingExtensions++
			continue
		}
		info := ExtensionInfo{Index: i, Tag: block.Tag(), Kind: edid.ExtensionKind(block.Tag())}
		if cea, ok := edid.ParseCEA861(block); ok {
			info.CEA = &cea
		}
		d.Extensions = append(d.Extensions, info)
	}
	return d
}
