package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/s0up4200/go-edid/internal/edid"
)

// Level selects how much of a document a report shows.
type Level string

const (
	LevelHex   Level = "hex"
	LevelBasic Level = "basic"
	LevelDeep  Level = "deep"
)

// Levels lists the accepted levels in increasing detail.
var Levels = []Level{LevelHex, LevelBasic, LevelDeep}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case LevelHex, LevelBasic, LevelDeep:
		return l, nil
	case "":
		return LevelBasic, nil
	}
	return "", fmt.Errorf("unknown detail level %q (want hex, basic or deep)", s)
}

// Text returns the report for doc at the given level.
func Text(doc edid.Document, level Level) (string, error) {
	switch level {
	case LevelHex:
		return Hex(doc), nil
	case LevelBasic:
		return Basic(doc), nil
	case LevelDeep:
		return Deep(doc), nil
	}
	return "", fmt.Errorf("unknown detail level %q", level)
}

// Render writes the report for doc to w.
func Render(w io.Writer, doc edid.Document, level Level) error {
	text, err := Text(doc, level)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// WriteReport writes the report to path, or to stdout when path is "-" or
// empty. An existing file at path is moved aside to <path>.<unix> first.
// A non-empty warning is printed above the report.
func WriteReport(path string, doc edid.Document, level Level, warning string) (string, error) {
	text, err := Text(doc, level)
	if err != nil {
		return "", err
	}
	if warning != "" {
		text = "WARNING: " + warning + "\n\n" + text
	}

	if path == "" || path == "-" {
		_, err := os.Stdout.WriteString(text)
		return "-", err
	}

	if _, err := os.Stat(path); err == nil {
		backup := fmt.Sprintf("%s.%d", path, time.Now().Unix())
		if err := os.Rename(path, backup); err != nil {
			return path, fmt.Errorf("move aside existing report: %w", err)
		}
	}
	return path, os.WriteFile(path, []byte(text), 0o644)
}
