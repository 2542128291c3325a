package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/edid/edidtest"
	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/i2c/i2ctest"
)

type cliEnv struct {
	sim        *i2ctest.Sim
	dir        string
	backupDir  string
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	e := &cliEnv{
		sim:        i2ctest.New(),
		dir:        dir,
		backupDir:  filepath.Join(dir, "backups"),
		configPath: filepath.Join(dir, "config.toml"),
	}
	cfg := fmt.Sprintf("backup_dir = %q\nlock_dir = %q\n", e.backupDir, filepath.Join(dir, "locks"))
	if err := os.WriteFile(e.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	prevOpener, prevEnum := newOpener, newEnumerator
	newOpener = func() i2c.Opener { return e.sim }
	newEnumerator = func(string) i2c.Enumerator { return e.sim }
	t.Cleanup(func() { newOpener, newEnumerator = prevOpener, prevEnum })
	return e
}

func (e *cliEnv) run(args ...string) (string, string, error) {
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) file(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseBus(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"5", 5, false},
		{"i2c-7", 7, false},
		{"/dev/i2c-12", 12, false},
		{"-1", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseBus(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("parseBus(%q)=(%d,%v)", tt.in, got, err)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	if got := renderStatus(statusOK, "done", false); got != "[OK] done" {
		t.Fatalf("plain=%q", got)
	}
	got := renderStatus(statusError, "failed", true)
	if !strings.HasPrefix(got, ansiRed) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("colored=%q", got)
	}
	if colorEnabled(&bytes.Buffer{}) {
		t.Fatalf("buffers are never terminals")
	}
	t.Setenv("NO_COLOR", "")
	if colorEnabled(os.Stdout) {
		t.Fatalf("NO_COLOR set but color enabled")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(diffColumns, [][]string{{"20 (0x14)", "0x80", "0x00"}, {"127", "0x1A"}})
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("want 6 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "╭") || !strings.Contains(strings.ToUpper(lines[1]), "│ OFFSET    │") {
		t.Fatalf("header:\n%s", out)
	}
	// short rows are padded; right-aligned cells hug the border
	if !strings.Contains(lines[4], "│       127 │") || !strings.HasSuffix(lines[4], "│      │") {
		t.Fatalf("alignment:\n%s", out)
	}
}

func TestDecodeCommand(t *testing.T) {
	e := newCLIEnv(t)
	path := e.file(t, "monitor.bin", edidtest.Document(edidtest.CEABlock()))

	out, stderr, err := e.run("decode", path, "-l", "deep")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, "EDID DETAILED INFORMATION") || !strings.Contains(out, "Vendor Specific") {
		t.Fatalf("output=%s", out)
	}
	if stderr != "" {
		t.Fatalf("unexpected warning: %s", stderr)
	}

	reportPath := filepath.Join(e.dir, "report.txt")
	out, _, err = e.run("decode", path, "-l", "hex", "-o", reportPath)
	if err != nil {
		t.Fatalf("decode -o: %v", err)
	}
	if !strings.Contains(out, "Report written: "+reportPath) {
		t.Fatalf("output=%s", out)
	}
	data, _ := os.ReadFile(reportPath)
	if !strings.Contains(string(data), "EDID HEX DUMP") {
		t.Fatalf("report=%s", data)
	}
}

func TestDecodeInvalidWarns(t *testing.T) {
	e := newCLIEnv(t)
	doc := edidtest.Document()
	doc[127]++
	path := e.file(t, "bad.bin", doc)

	out, stderr, err := e.run("decode", path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(stderr, "[WARN]") || !strings.Contains(stderr, "checksum") {
		t.Fatalf("stderr=%s", stderr)
	}
	if !strings.Contains(out, "EDID BASIC INFORMATION") {
		t.Fatalf("output=%s", out)
	}

	if _, _, err := e.run("decode", path, "-l", "full"); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestReadWriteValidate(t *testing.T) {
	e := newCLIEnv(t)
	original := edidtest.Document()
	e.sim.AddBus(3, original)

	readPath := filepath.Join(e.dir, "read.bin")
	out, _, err := e.run("read", "3", readPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "Read 128 bytes") {
		t.Fatalf("output=%s", out)
	}
	got, _ := os.ReadFile(readPath)
	if !bytes.Equal(got, original) {
		t.Fatalf("read file differs from device")
	}

	if out, _, err := e.run("validate", "/dev/i2c-3", readPath); err != nil || !strings.Contains(out, "matches") {
		t.Fatalf("validate: out=%s err=%v", out, err)
	}

	updated := edidtest.Document(edidtest.CEABlock())
	updated[127]++
	newPath := e.file(t, "new.bin", updated)
	if _, _, err := e.run("write", "3", newPath); err == nil {
		t.Fatalf("write should refuse a file with a bad checksum")
	}
	out, stderr, err := e.run("write", "3", newPath, "--fix-checksums")
	if err != nil {
		t.Fatalf("write: %v (stderr %s)", err, stderr)
	}
	if !strings.Contains(out, "Successfully wrote 256 bytes to bus 3") || !strings.Contains(stderr, "Backup saved to") {
		t.Fatalf("out=%s stderr=%s", out, stderr)
	}

	_, _, err = e.run("validate", "3", readPath)
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Fatalf("validate against old file: %v", err)
	}

	out, _, err = e.run("backups", "3")
	if err != nil {
		t.Fatalf("backups: %v", err)
	}
	if !strings.Contains(out, "edid_bus3_") || !strings.Contains(out, "128 B") {
		t.Fatalf("backups output=%s", out)
	}
}

func TestValidateShowsDiffs(t *testing.T) {
	e := newCLIEnv(t)
	e.sim.AddBus(1, edidtest.Document())
	other := edidtest.Document()
	other[20] = 0x00
	_ = edid.RecalculateChecksums(other)
	path := e.file(t, "other.bin", other)

	out, _, err := e.run("validate", "1", path)
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
	if !strings.Contains(out, "20 (0x14)") || !strings.Contains(out, "0x80") {
		t.Fatalf("diff table=%s", out)
	}
}

func TestTestWriteCommand(t *testing.T) {
	e := newCLIEnv(t)
	e.sim.AddBus(1, edidtest.Document())
	e.sim.AddBus(2, edidtest.Document()).ReadOnly = true

	out, _, err := e.run("test-write", "1")
	if err != nil || !strings.Contains(out, "device is writable") {
		t.Fatalf("writable: out=%s err=%v", out, err)
	}
	out, _, err = e.run("test-write", "2")
	if err == nil || !strings.Contains(out, "not writable") {
		t.Fatalf("read-only: out=%s err=%v", out, err)
	}
}

func TestListCommand(t *testing.T) {
	e := newCLIEnv(t)
	e.sim.AddBus(0, edidtest.Document())
	e.sim.AddBus(4, []byte{0x12})

	out, _, err := e.run("list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"/dev/i2c-0", "/dev/i2c-4", "yes", "edid read"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestUnsupportedPlatform(t *testing.T) {
	e := newCLIEnv(t)
	e.sim.AvailableErr = i2c.ErrUnsupported
	_, _, err := e.run("read", "1", filepath.Join(e.dir, "x.bin"))
	if err == nil || !strings.Contains(err.Error(), "i2c-dev") {
		t.Fatalf("err=%v", err)
	}
}

func TestConfigInitAndVersion(t *testing.T) {
	e := newCLIEnv(t)
	e.configPath = filepath.Join(e.dir, "fresh", "config.toml")
	out, _, err := e.run("config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Config written") {
		t.Fatalf("output=%s", out)
	}
	if _, _, err := e.run("config", "init"); err == nil {
		t.Fatalf("second init should refuse to overwrite")
	}

	out, _, err = e.run("version")
	if err != nil || out != "edid version: dev\n" {
		t.Fatalf("version out=%q err=%v", out, err)
	}
	if _, _, err := e.run("update"); err == nil {
		t.Fatalf("update should fail on dev builds")
	}
}
