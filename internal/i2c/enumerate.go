package i2c

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultGlob matches the i2c-dev character devices.
const DefaultGlob = "/dev/i2c-*"

// GlobEnumerator finds buses by matching device nodes against Pattern.
type GlobEnumerator struct {
	Pattern string
	// SysfsDir holds <dev>/name adapter attributes; empty skips name lookup.
	SysfsDir string
}

// Buses returns matching adapters ordered by bus number. Nodes whose name
// does not end in a bus number are ignored.
func (g GlobEnumerator) Buses(ctx context.Context) ([]Adapter, error) {
	pattern := g.Pattern
	if pattern == "" {
		pattern = DefaultGlob
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	adapters := make([]Adapter, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bus, ok := ParseBus(filepath.Base(m))
		if !ok {
			continue
		}
		a := Adapter{Bus: bus, Device: m}
		if g.SysfsDir != "" {
			a.Name = readAdapterName(filepath.Join(g.SysfsDir, filepath.Base(m)))
		}
		adapters = append(adapters, a)
	}
	sortAdapters(adapters)
	return adapters, nil
}

// ParseBus extracts N from a device name of the form i2c-N.
func ParseBus(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "i2c-")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func readAdapterName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func sortAdapters(adapters []Adapter) {
	sort.Slice(adapters, func(i, j int) bool { return adapters[i].Bus < adapters[j].Bus })
}
