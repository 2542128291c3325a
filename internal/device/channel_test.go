package device

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/s0up4200/go-edid/internal/backup"
	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/edid/edidtest"
	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/i2c/i2ctest"
)

type harness struct {
	sim    *i2ctest.Sim
	ch     *Channel
	dir    string
	sleeps []time.Duration
	states []WriteProgress
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{sim: i2ctest.New(), dir: t.TempDir()}
	opts = append([]Option{
		WithEnumerator(h.sim),
		WithProgress(func(p WriteProgress) { h.states = append(h.states, p) }),
	}, opts...)
	ch, err := New(h.sim, backup.New(h.dir), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ch.sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	h.ch = ch
	return h
}

func (h *harness) backups(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(h.dir, "edid_bus*.bin"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestNewCapabilityCheck(t *testing.T) {
	sim := i2ctest.New()
	sim.AvailableErr = i2c.ErrUnsupported
	_, err := New(sim, backup.New(t.TempDir()))
	if !errors.Is(err, ErrUnsupported) || !errors.Is(err, i2c.ErrUnsupported) {
		t.Fatalf("err=%v", err)
	}
	if _, err := New(nil, backup.New(t.TempDir())); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("nil opener err=%v", err)
	}
	if _, err := New(i2ctest.New(), nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestReadDocument(t *testing.T) {
	h := newHarness(t)
	doc := edidtest.Document(edidtest.CEABlock())
	h.sim.AddBus(1, doc)

	got, err := h.ch.ReadDocument(context.Background(), 1)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Fatalf("document mismatch")
	}

	var regs []byte
	for _, tr := range h.sim.Log() {
		if len(tr.Data) > ReadChunk {
			t.Fatalf("read of %d bytes exceeds chunk", len(tr.Data))
		}
		regs = append(regs, tr.Reg)
	}
	want := []byte{0, 32, 64, 96, 128, 160, 192, 224}
	if !bytes.Equal(regs, want) {
		t.Fatalf("registers=% X, want % X", regs, want)
	}
	if h.sim.OpenConns() != 0 {
		t.Fatalf("connection left open")
	}
}

func TestReadDocumentShortBlock(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(c *i2ctest.Chip)
		wantBlock int
		wantLen   int
	}{
		{
			name:      "base block",
			setup:     func(c *i2ctest.Chip) { c.ShortRead, c.ShortReadAt = true, 10 },
			wantBlock: 0,
			wantLen:   10,
		},
		{
			name:      "extension block",
			setup:     func(c *i2ctest.Chip) { c.ShortRead, c.ShortReadAt = true, 128+40 },
			wantBlock: 1,
			wantLen:   40,
		},
		{
			name:      "no byte count",
			setup:     func(c *i2ctest.Chip) { c.ReadErr = i2c.ErrShortRead },
			wantBlock: 0,
			wantLen:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h.sim.AddBus(1, edidtest.Document(edidtest.CEABlock())))

			doc, err := h.ch.ReadDocument(context.Background(), 1)
			if doc != nil {
				t.Fatalf("partial document returned: %d bytes", len(doc))
			}
			var se *edid.SizeError
			if !errors.As(err, &se) {
				t.Fatalf("err=%v, want SizeError", err)
			}
			if !se.Partial || se.Block != tt.wantBlock || se.Length != tt.wantLen {
				t.Fatalf("SizeError=%+v", se)
			}
			var ae *AccessError
			if errors.As(err, &ae) {
				t.Fatalf("short read reported as access error: %v", err)
			}
		})
	}
}

func TestReadDocumentWrapsRegister(t *testing.T) {
	h := newHarness(t)
	doc := edidtest.Document(edidtest.CEABlock(), edidtest.CEABlock())
	// The EEPROM only holds 256 bytes; the third block aliases the first.
	h.sim.AddBus(2, doc)

	got, err := h.ch.ReadDocument(context.Background(), 2)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if len(got) != 3*edid.BlockSize {
		t.Fatalf("len=%d", len(got))
	}
	if !bytes.Equal(got[256:384], doc[0:128]) {
		t.Fatalf("extension 2 should wrap to register 0")
	}
	log := h.sim.Log()
	if last := log[len(log)-1]; last.Reg != 96 {
		t.Fatalf("last register=%d, want 96", last.Reg)
	}
}

func TestReadDocumentAccessErrors(t *testing.T) {
	h := newHarness(t)
	h.sim.AddBus(3, nil).OpenErr = &os.PathError{Op: "open", Path: "/dev/i2c-3", Err: fs.ErrPermission}
	h.sim.AddBus(4, nil).ReadErr = errors.New("remote I/O error")

	tests := []struct {
		bus  int
		want i2c.FaultKind
	}{
		{3, i2c.FaultPermission},
		{4, i2c.FaultIO},
		{9, i2c.FaultNotPresent},
	}
	for _, tt := range tests {
		_, err := h.ch.ReadDocument(context.Background(), tt.bus)
		var ae *AccessError
		if !errors.As(err, &ae) {
			t.Fatalf("bus %d: err=%v", tt.bus, err)
		}
		if ae.Kind != tt.want || ae.Bus != tt.bus {
			t.Fatalf("bus %d: kind=%v, want %v", tt.bus, ae.Kind, tt.want)
		}
	}
}

func TestDiscoverBuses(t *testing.T) {
	h := newHarness(t)
	h.sim.AddBus(0, edidtest.Document())
	h.sim.AddBus(1, []byte{0xFF, 0xFF})
	h.sim.AddBus(5, nil).ReadErr = errors.New("timeout")

	got, err := h.ch.DiscoverBuses(context.Background())
	if err != nil {
		t.Fatalf("DiscoverBuses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("buses=%+v", got)
	}
	if !got[0].HasEDID || got[0].ProbeErr != nil {
		t.Fatalf("bus 0=%+v", got[0])
	}
	if got[1].HasEDID || got[1].ProbeErr != nil {
		t.Fatalf("bus 1=%+v", got[1])
	}
	if got[2].HasEDID || got[2].ProbeErr == nil || got[2].Bus != 5 {
		t.Fatalf("bus 5=%+v", got[2])
	}
	if got[0].Adapter != "sim 0" || got[0].Device != "/dev/i2c-0" {
		t.Fatalf("adapter=%+v", got[0])
	}
}

func TestWriteRoundTrip(t *testing.T) {
	h := newHarness(t)
	original := edidtest.Document()
	h.sim.AddBus(1, original)

	doc := edidtest.Document(edidtest.CEABlock())
	copy(doc[77:], "NEWPANEL\n   ")
	if err := edid.RecalculateChecksums(doc); err != nil {
		t.Fatal(err)
	}

	report, err := h.ch.WriteDocument(context.Background(), 1, doc)
	if err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if report.State != StateVerified || report.Pages != 16 || report.Bytes != 256 {
		t.Fatalf("report=%+v", report)
	}

	backupData, err := os.ReadFile(report.BackupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !bytes.Equal(backupData, original) {
		t.Fatalf("backup should hold the on-device document")
	}

	writes := h.sim.Writes()
	if len(writes) != 16 {
		t.Fatalf("writes=%d", len(writes))
	}
	for i, w := range writes {
		if int(w.Reg) != i*PageSize || len(w.Data) != PageSize {
			t.Fatalf("write %d reg=%d len=%d", i, w.Reg, len(w.Data))
		}
	}
	if len(h.sleeps) != 16 {
		t.Fatalf("sleeps=%d", len(h.sleeps))
	}
	for _, d := range h.sleeps {
		if d != SettleDelay {
			t.Fatalf("settle=%v", d)
		}
	}

	cmp, err := h.ch.Compare(context.Background(), 1, doc)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !cmp.Match {
		t.Fatalf("compare after write: %s %+v", cmp.Message, cmp.Diffs)
	}

	var seq []WriteState
	for _, p := range h.states {
		if len(seq) == 0 || seq[len(seq)-1] != p.State {
			seq = append(seq, p.State)
		}
	}
	want := []WriteState{StateBackedUp, StateWriting, StateWrittenAll, StateReadBack, StateVerified}
	if len(seq) != len(want) {
		t.Fatalf("states=%v", seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("states=%v, want %v", seq, want)
		}
	}
	if last := h.states[len(h.states)-1]; last.BackupPath != report.BackupPath {
		t.Fatalf("progress backup path=%q", last.BackupPath)
	}
}

func TestWriteRejectsBadSize(t *testing.T) {
	h := newHarness(t)
	h.sim.AddBus(1, edidtest.Document())
	_, err := h.ch.WriteDocument(context.Background(), 1, make(edid.Document, 200))
	var se *edid.SizeError
	if !errors.As(err, &se) || se.Length != 200 {
		t.Fatalf("err=%v", err)
	}
	if len(h.sim.Log()) != 0 || len(h.backups(t)) != 0 {
		t.Fatalf("bad size must not touch the device")
	}
}

func TestWriteCanceledBeforeStart(t *testing.T) {
	h := newHarness(t)
	h.sim.AddBus(1, edidtest.Document())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.ch.WriteDocument(ctx, 1, edidtest.Document()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if len(h.sim.Writes()) != 0 {
		t.Fatalf("canceled write touched the device")
	}
}

func TestWriteVerificationFailure(t *testing.T) {
	h := newHarness(t)
	h.sim.AddBus(1, edidtest.Document()).ReadOnly = true

	doc := edidtest.Document()
	doc[20] = 0x00
	_ = edid.RecalculateChecksums(doc)

	report, err := h.ch.WriteDocument(context.Background(), 1, doc)
	var ve *WriteVerificationError
	if !errors.As(err, &ve) {
		t.Fatalf("err=%v", err)
	}
	if ve.BackupPath == "" || ve.BackupPath != report.BackupPath {
		t.Fatalf("backup path missing: %+v", ve)
	}
	if _, err := os.Stat(ve.BackupPath); err != nil {
		t.Fatalf("backup not on disk: %v", err)
	}
	if len(ve.Diffs) != 2 || ve.Diffs[0].Offset != 20 || ve.Diffs[1].Offset != 127 {
		t.Fatalf("diffs=%+v", ve.Diffs)
	}
	if report.State != StateVerificationFailed {
		t.Fatalf("state=%v", report.State)
	}
}

func TestWriteFailureCarriesBackup(t *testing.T) {
	h := newHarness(t)
	chip := h.sim.AddBus(1, edidtest.Document())
	chip.WriteFilter = func(n int, _ byte, _ []byte) (bool, error) {
		if n == 3 {
			return false, errors.New("arbitration lost")
		}
		return true, nil
	}

	_, err := h.ch.WriteDocument(context.Background(), 1, edidtest.Document())
	var oe *OperationError
	if !errors.As(err, &oe) {
		t.Fatalf("err=%v", err)
	}
	if oe.Op != "write" || oe.BackupPath == "" {
		t.Fatalf("operation error=%+v", oe)
	}
	var ae *AccessError
	if !errors.As(err, &ae) || ae.Kind != i2c.FaultIO {
		t.Fatalf("wrapped access error missing: %v", err)
	}
}

func TestBusLock(t *testing.T) {
	lockDir := t.TempDir()
	h := newHarness(t, WithLockDir(lockDir))
	h.sim.AddBus(1, edidtest.Document())

	held := flock.New(filepath.Join(lockDir, "i2c-1.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}

	_, err = h.ch.ReadDocument(context.Background(), 1)
	var busy *BusBusyError
	if !errors.As(err, &busy) || busy.Bus != 1 {
		t.Fatalf("err=%v", err)
	}

	if err := held.Unlock(); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ch.ReadDocument(context.Background(), 1); err != nil {
		t.Fatalf("after unlock: %v", err)
	}
}

func TestBusLockUnavailableFallsBackToUnlocked(t *testing.T) {
	tests := map[string]func(t *testing.T) string{
		"lock dir under a file": func(t *testing.T) string {
			file := filepath.Join(t.TempDir(), "not-a-dir")
			if err := os.WriteFile(file, nil, 0o644); err != nil {
				t.Fatal(err)
			}
			return filepath.Join(file, "locks")
		},
		"lock file owned by someone else": func(t *testing.T) string {
			if os.Geteuid() == 0 {
				t.Skip("root ignores file modes")
			}
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "i2c-1.lock"), nil, 0o000); err != nil {
				t.Fatal(err)
			}
			return dir
		},
	}
	for name, lockDir := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, WithLockDir(lockDir(t)))
			want := edidtest.Document(edidtest.CEABlock())
			h.sim.AddBus(1, want)

			got, err := h.ch.ReadDocument(context.Background(), 1)
			if err != nil {
				t.Fatalf("ReadDocument: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("read mismatch")
			}

			buses, err := h.ch.DiscoverBuses(context.Background())
			if err != nil {
				t.Fatalf("DiscoverBuses: %v", err)
			}
			if len(buses) != 1 || !buses[0].HasEDID || buses[0].ProbeErr != nil {
				t.Fatalf("buses=%+v", buses)
			}
		})
	}
}
