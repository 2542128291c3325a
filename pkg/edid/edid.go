// Package edid is the library entry point for loading, validating and
// decoding EDID dumps without touching hardware.
package edid

import (
	"context"
	"errors"
	"fmt"
	"time"

	internaledid "github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/report"
)

// Stage represents a coarse progress stage for Decode.
type Stage string

const (
	StageStarting        Stage = "starting"
	StageLoaded          Stage = "loaded"
	StageValidated       Stage = "validated"
	StageRenderingReport Stage = "rendering_report"
	StageDone            Stage = "done"
)

// ProgressEvent is emitted when Decode moves between phases.
type ProgressEvent struct {
	Stage      Stage
	Path       string
	Bytes      int
	Elapsed    time.Duration
	OccurredAt time.Time
}

// Options configure one Decode call. Data wins over Path when both are set.
type Options struct {
	Path string
	Data []byte
	// Level is hex, basic or deep; empty means basic.
	Level      string
	OnProgress func(ProgressEvent)
}

// DisplayInfo is the identity and geometry of the display.
type DisplayInfo struct {
	Manufacturer  string
	ProductCode   uint16
	SerialNumber  uint32
	Week          int
	Year          int
	Version       string
	Digital       bool
	WidthCM       int
	HeightCM      int
	DiagonalInch  float64
	Gamma         float64
	Name          string
	PreferredMode string
	RefreshHz     float64
	Extensions    int
}

// Validation is the structural check outcome.
type Validation struct {
	Valid  bool
	Reason string
}

// Result contains the decoded fields plus the rendered report.
type Result struct {
	Display    DisplayInfo
	Validation Validation
	Report     string
	Bytes      int
}

// Decode loads one document and returns structured output plus report text.
// Invalid documents are still decoded; Validation says what is wrong.
// The API does not write files.
func Decode(ctx context.Context, options Options) (Result, error) {
	if options.Path == "" && options.Data == nil {
		return Result{}, errors.New("path or data is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	level, err := report.ParseLevel(options.Level)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	emit(options.OnProgress, ProgressEvent{Stage: StageStarting, Path: options.Path, OccurredAt: time.Now()})

	doc := internaledid.Document(options.Data)
	if options.Data == nil {
		doc, err = internaledid.ReadFile(options.Path)
		if err != nil {
			return Result{}, err
		}
	}
	emit(options.OnProgress, ProgressEvent{Stage: StageLoaded, Path: options.Path, Bytes: len(doc), OccurredAt: time.Now()})

	valid, reason := internaledid.ValidateStructure(doc)
	emit(options.OnProgress, ProgressEvent{Stage: StageValidated, Path: options.Path, Bytes: len(doc), OccurredAt: time.Now()})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	emit(options.OnProgress, ProgressEvent{Stage: StageRenderingReport, Path: options.Path, Bytes: len(doc), OccurredAt: time.Now()})
	text, err := report.Text(doc, level)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Display:    buildDisplayInfo(report.Summarize(doc)),
		Validation: Validation{Valid: valid, Reason: reason},
		Report:     text,
		Bytes:      len(doc),
	}
	emit(options.OnProgress, ProgressEvent{
		Stage:      StageDone,
		Path:       options.Path,
		Bytes:      len(doc),
		Elapsed:    time.Since(start),
		OccurredAt: time.Now(),
	})
	return result, nil
}

func emit(cb func(ProgressEvent), event ProgressEvent) {
	if cb != nil {
		cb(event)
	}
}

func buildDisplayInfo(s report.Summary) DisplayInfo {
	info := DisplayInfo{
		Manufacturer: s.Product.Manufacturer,
		ProductCode:  s.Product.ProductCode,
		SerialNumber: s.Product.SerialNumber,
		Week:         s.Product.Week,
		Year:         s.Product.Year,
		Name:         s.DisplayName,
		Extensions:   s.ExtensionCount,
	}
	if s.HasVersion {
		info.Version = s.Version.String()
	}
	if s.HasDisplay {
		info.Digital = s.Display.Digital
		info.WidthCM = s.Display.MaxHSizeCM
		info.HeightCM = s.Display.MaxVSizeCM
		if s.Display.HasSize() {
			info.DiagonalInch = s.Display.DiagonalInches()
		}
		if s.Display.GammaDefined {
			info.Gamma = s.Display.Gamma
		}
	}
	if s.HasPreferred {
		info.PreferredMode = formatMode(s.Preferred)
		info.RefreshHz = s.Preferred.RefreshHz()
	}
	return info
}

func formatMode(t internaledid.DetailedTiming) string {
	return fmt.Sprintf("%dx%d", t.HActive, t.VActive)
}
