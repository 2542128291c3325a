package device

import (
	"context"
	"fmt"

	"github.com/s0up4200/go-edid/internal/edid"
)

// Comparison is the result of comparing the device with a document.
type Comparison struct {
	Match      bool
	DeviceSize int
	FileSize   int
	Diffs      []ByteDiff
	Message    string
}

// Compare reads the device and compares it byte for byte with doc. Read
// failures are errors; differences are reported in the result.
func (c *Channel) Compare(ctx context.Context, bus int, doc edid.Document) (Comparison, error) {
	device, err := c.ReadDocument(ctx, bus)
	if err != nil {
		return Comparison{}, err
	}
	return compareDocuments(device, doc), nil
}

func compareDocuments(device, file edid.Document) Comparison {
	cmp := Comparison{DeviceSize: len(device), FileSize: len(file)}
	if len(device) != len(file) {
		cmp.Message = fmt.Sprintf("size mismatch: device has %d bytes, file has %d bytes", len(device), len(file))
		return cmp
	}
	cmp.Diffs = diffBytes(device, file)
	if len(cmp.Diffs) == 0 {
		cmp.Match = true
		cmp.Message = "EDID matches exactly"
		return cmp
	}
	cmp.Message = fmt.Sprintf("found %d byte difference(s)", len(cmp.Diffs))
	return cmp
}
