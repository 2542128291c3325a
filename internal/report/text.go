package report

import (
	"fmt"
	"strings"

	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/util"
)

const ruleWidth = 70

func rule(b *strings.Builder, c string) {
	b.WriteString(strings.Repeat(c, ruleWidth))
	b.WriteString("\n")
}

func title(b *strings.Builder, text string) {
	rule(b, "=")
	b.WriteString(text)
	b.WriteString("\n")
	rule(b, "=")
}

// Hex renders a 16-byte-per-line hex and ASCII dump with labelled blocks.
func Hex(doc edid.Document) string {
	var b strings.Builder
	title(&b, "EDID HEX DUMP")

	for off := 0; off < len(doc); off += edid.BlockSize {
		end := min(off+edid.BlockSize, len(doc))
		block := doc[off:end]
		switch {
		case len(block) < edid.BlockSize:
			fmt.Fprintf(&b, "\nTrailing Data (%d bytes):\n", len(block))
		case off == 0:
			fmt.Fprintf(&b, "\nBase Block (%d bytes):\n", edid.BlockSize)
		default:
			fmt.Fprintf(&b, "\nExtension Block %d (%d bytes):\n", off/edid.BlockSize, edid.BlockSize)
		}
		rule(&b, "-")
		for i := 0; i < len(block); i += 16 {
			line := block[i:min(i+16, len(block))]
			fmt.Fprintf(&b, "%04X: %-48s  %s\n", off+i, util.HexBytes(line), util.PrintableASCII(line))
		}
	}

	rule(&b, "=")
	return b.String()
}

func writeSummary(b *strings.Builder, s Summary) {
	if s.HasProduct {
		fmt.Fprintf(b, "\n%-16s%s\n", "Manufacturer:", s.Product.Manufacturer)
		fmt.Fprintf(b, "%-16s0x%04X\n", "Product Code:", s.Product.ProductCode)
		if s.Product.SerialNumber != 0 {
			fmt.Fprintf(b, "%-16s%d\n", "Serial Number:", s.Product.SerialNumber)
		}
		if s.Product.Week != 0 {
			fmt.Fprintf(b, "%-16sWeek %d, %d\n", "Manufactured:", s.Product.Week, s.Product.Year)
		} else {
			fmt.Fprintf(b, "%-16s%d\n", "Manufactured:", s.Product.Year)
		}
	}
	version := "?.?"
	if s.HasVersion {
		version = s.Version.String()
	}
	fmt.Fprintf(b, "%-16s%s\n", "EDID Version:", version)

	if s.HasDisplay {
		kind := "Analog"
		if s.Display.Digital {
			kind = "Digital"
		}
		fmt.Fprintf(b, "\n%-16s%s\n", "Display Type:", kind)
		if s.Display.HasSize() {
			fmt.Fprintf(b, "%-16s%d x %d cm\n", "Screen Size:", s.Display.MaxHSizeCM, s.Display.MaxVSizeCM)
			fmt.Fprintf(b, "%-16s%.1f inches\n", "Diagonal:", s.Display.DiagonalInches())
		}
		if s.Display.GammaDefined {
			fmt.Fprintf(b, "%-16s%.2f\n", "Gamma:", s.Display.Gamma)
		}
	}

	if s.DisplayName != "" {
		fmt.Fprintf(b, "\n%-16s%s\n", "Display Name:", s.DisplayName)
	}

	b.WriteString("\nPreferred Timing (Detailed Descriptor):\n")
	if s.HasPreferred {
		writeTimingLines(b, s.Preferred, false)
		if s.AdditionalTimings > 0 {
			fmt.Fprintf(b, "\nAdditional Timings: %d\n", s.AdditionalTimings)
		}
	} else {
		b.WriteString("  (none)\n")
	}

	fmt.Fprintf(b, "\nExtension Blocks: %d\n", s.ExtensionCount)
}

func writeTimingLines(b *strings.Builder, t edid.DetailedTiming, full bool) {
	fmt.Fprintf(b, "  %-14s%d x %d\n", "Resolution:", t.HActive, t.VActive)
	fmt.Fprintf(b, "  %-14s%.2f Hz\n", "Refresh Rate:", t.RefreshHz())
	fmt.Fprintf(b, "  %-14s%.2f MHz\n", "Pixel Clock:", t.PixelClockMHz())
	if full {
		fmt.Fprintf(b, "  %-14s%d active, %d blank, %d total\n", "Horizontal:", t.HActive, t.HBlank, t.HTotal())
		fmt.Fprintf(b, "  %-14s%d active, %d blank, %d total\n", "Vertical:", t.VActive, t.VBlank, t.VTotal())
	}
}

// Basic renders the summary report.
func Basic(doc edid.Document) string {
	var b strings.Builder
	title(&b, "EDID BASIC INFORMATION")
	writeSummary(&b, Summarize(doc))
	rule(&b, "=")
	return b.String()
}

// Deep renders the summary plus every descriptor slot and extension block.
func Deep(doc edid.Document) string {
	d := Inspect(doc)

	var b strings.Builder
	title(&b, "EDID DETAILED INFORMATION")
	writeSummary(&b, d.Summary)

	b.WriteString("\n")
	rule(&b, "-")
	b.WriteString("DETAILED TIMING DESCRIPTORS\n")
	rule(&b, "-")
	for _, desc := range d.Descriptors {
		fmt.Fprintf(&b, "\nDescriptor %d: %s\n", desc.Index, desc.Kind)
		switch desc.Kind {
		case edid.DescriptorTiming:
			writeTimingLines(&b, desc.Timing, true)
		case edid.DescriptorDisplayName:
			fmt.Fprintf(&b, "  %-14s%s\n", "Name:", desc.Text)
		case edid.DescriptorSerial, edid.DescriptorText:
			fmt.Fprintf(&b, "  %-14s%s\n", "Value:", desc.Text)
		default:
			fmt.Fprintf(&b, "  %-14s0x%02X\n", "Tag:", desc.Tag)
		}
	}

	if len(d.Extensions) > 0 || d.MissingExtensions > 0 {
		b.WriteString("\n")
		rule(&b, "-")
		b.WriteString("EXTENSION BLOCKS\n")
		rule(&b, "-")
		for _, ext := range d.Extensions {
			fmt.Fprintf(&b, "\nExtension %d:\n", ext.Index)
			if ext.CEA == nil {
				fmt.Fprintf(&b, "  %-14s%s\n", "Type:", ext.Kind)
				continue
			}
			cea := ext.CEA
			fmt.Fprintf(&b, "  %-14s%s\n", "Type:", "CEA-861 (HDMI/Consumer Electronics)")
			fmt.Fprintf(&b, "  %-14s%d\n", "Revision:", cea.Revision)
			fmt.Fprintf(&b, "  %-14s%t\n", "Underscan:", cea.Underscan)
			fmt.Fprintf(&b, "  %-14s%t\n", "Basic Audio:", cea.BasicAudio)
			fmt.Fprintf(&b, "  %-14s%t\n", "YCbCr 4:4:4:", cea.YCbCr444)
			fmt.Fprintf(&b, "  %-14s%t\n", "YCbCr 4:2:2:", cea.YCbCr422)
			if len(cea.DataBlocks) > 0 {
				fmt.Fprintf(&b, "  %-14s%d\n", "Data Blocks:", len(cea.DataBlocks))
				for _, db := range cea.DataBlocks {
					fmt.Fprintf(&b, "    - %s (%d bytes)\n", db.Kind(), db.Length)
				}
			}
		}
		if d.MissingExtensions > 0 {
			fmt.Fprintf(&b, "\nWARNING: %d declared extension block(s) missing from data\n", d.MissingExtensions)
		}
	}

	rule(&b, "=")
	return b.String()
}
