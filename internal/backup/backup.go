// Package backup stores timestamped copies of EDID data read from a device
// before it is modified.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const timeLayout = "20060102_150405"

var namePattern = regexp.MustCompile(`^edid_bus(\d+)_(\d{8}_\d{6})(?:_(\d+))?\.bin$`)

// Store writes backups into Dir, creating it on first use.
type Store struct {
	Dir string

	now func() time.Time
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir, now: time.Now}
}

// Entry is one backup file found by List.
type Entry struct {
	Path string
	Bus  int
	Time time.Time
	Size int64
}

// FileName returns the backup name for bus at t. seq > 1 adds a suffix used
// when several backups land in the same second.
func FileName(bus int, t time.Time, seq int) string {
	name := fmt.Sprintf("edid_bus%d_%s", bus, t.Format(timeLayout))
	if seq > 1 {
		name += fmt.Sprintf("_%d", seq)
	}
	return name + ".bin"
}

// Save writes data as a new backup for bus and returns its path. Existing
// files are never overwritten.
func (s *Store) Save(bus int, data []byte) (string, error) {
	if s.Dir == "" {
		return "", errors.New("backup directory not set")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	ts := now()

	for seq := 1; ; seq++ {
		path := filepath.Join(s.Dir, FileName(bus, ts, seq))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create backup: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write backup: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("write backup: %w", err)
		}
		return path, nil
	}
}

// List returns backups for bus, newest first. A negative bus lists every bus.
// A missing directory yields no entries.
func (s *Store) List(bus int) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	type ordered struct {
		Entry
		seq int
	}
	var found []ordered
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		m := namePattern.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || (bus >= 0 && n != bus) {
			continue
		}
		ts, err := time.ParseInLocation(timeLayout, m[2], time.Local)
		if err != nil {
			continue
		}
		seq := 1
		if m[3] != "" {
			seq, _ = strconv.Atoi(m[3])
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		found = append(found, ordered{
			Entry: Entry{Path: filepath.Join(s.Dir, de.Name()), Bus: n, Time: ts, Size: info.Size()},
			seq:   seq,
		})
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.After(b.Time)
		}
		if a.seq != b.seq {
			return a.seq > b.seq
		}
		return a.Bus < b.Bus
	})

	out := make([]Entry, len(found))
	for i, f := range found {
		out[i] = f.Entry
	}
	return out, nil
}
