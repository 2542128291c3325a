package device

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/edid/edidtest"
)

// safeOffset is the flag byte of the display name descriptor in slot 2.
const safeOffset = 77

func TestTestWritableWritable(t *testing.T) {
	h := newHarness(t)
	doc := edidtest.Document()
	h.sim.AddBus(1, doc)

	res, err := h.ch.TestWritable(context.Background(), 1)
	if err != nil {
		t.Fatalf("TestWritable: %v", err)
	}
	if !res.Writable() || res.Offset != safeOffset {
		t.Fatalf("result=%+v", res)
	}
	if !strings.Contains(res.Message, "device is writable") {
		t.Fatalf("message=%q", res.Message)
	}
	if res.BackupPath == "" || len(h.backups(t)) != 1 {
		t.Fatalf("backup missing")
	}

	writes := h.sim.Writes()
	if len(writes) != 2 {
		t.Fatalf("writes=%d", len(writes))
	}
	if writes[0].Data[0] != ^doc[safeOffset] || writes[1].Data[0] != doc[safeOffset] {
		t.Fatalf("writes=%+v", writes)
	}
	if len(h.sleeps) != 2 {
		t.Fatalf("sleeps=%d", len(h.sleeps))
	}
	if mem := h.sim.Memory(1); mem[safeOffset] != doc[safeOffset] {
		t.Fatalf("byte not restored")
	}
}

func TestTestWritableReadOnly(t *testing.T) {
	h := newHarness(t)
	doc := edidtest.Document()
	h.sim.AddBus(1, doc).ReadOnly = true

	res, err := h.ch.TestWritable(context.Background(), 1)
	if err != nil {
		t.Fatalf("TestWritable: %v", err)
	}
	if res.Writable() || res.Outcome != OutcomeReadOnly {
		t.Fatalf("result=%+v", res)
	}
	if !strings.Contains(res.Message, "not writable") {
		t.Fatalf("message=%q", res.Message)
	}
	if mem := h.sim.Memory(1); string(mem[:len(doc)]) != string(doc) {
		t.Fatalf("device content changed")
	}
}

func TestTestWritableNoSafeByte(t *testing.T) {
	h := newHarness(t)
	base := edidtest.BaseBlock(0)
	for _, off := range edid.DescriptorOffsets {
		copy(base[off:], edidtest.Timing1080p60())
	}
	for off := 38; off < 54; off += 2 {
		base[off], base[off+1] = 0xD1, 0xC0
	}
	_, _ = edid.RecalculateChecksum(base)
	h.sim.AddBus(1, base)

	res, err := h.ch.TestWritable(context.Background(), 1)
	if err != nil {
		t.Fatalf("TestWritable: %v", err)
	}
	if res.Outcome != OutcomeNoSafeByte || !strings.Contains(res.Message, "no safe test byte") {
		t.Fatalf("result=%+v", res)
	}
	if len(h.sim.Writes()) != 0 {
		t.Fatalf("no-safe-byte probe wrote to the device")
	}
}

func TestTestWritableRestoreFailure(t *testing.T) {
	h := newHarness(t)
	doc := edidtest.Document()
	chip := h.sim.AddBus(1, doc)
	chip.WriteFilter = func(n int, _ byte, _ []byte) (bool, error) {
		return n == 0, nil
	}

	_, err := h.ch.TestWritable(context.Background(), 1)
	var re *RestoreVerificationError
	if !errors.As(err, &re) {
		t.Fatalf("err=%v", err)
	}
	if re.Offset != safeOffset || re.Expected != doc[safeOffset] || re.Got != ^doc[safeOffset] {
		t.Fatalf("restore error=%+v", re)
	}
	if re.BackupPath == "" || !strings.Contains(re.Error(), re.BackupPath) {
		t.Fatalf("backup path missing from %q", re.Error())
	}
}

func TestTestWritableFlipFailureStillRestores(t *testing.T) {
	h := newHarness(t)
	doc := edidtest.Document()
	chip := h.sim.AddBus(1, doc)
	chip.WriteFilter = func(n int, _ byte, _ []byte) (bool, error) {
		if n == 0 {
			return false, errors.New("nak")
		}
		return true, nil
	}

	_, err := h.ch.TestWritable(context.Background(), 1)
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Op != "write test byte" || oe.BackupPath == "" {
		t.Fatalf("err=%v", err)
	}
	if len(h.sim.Writes()) != 1 {
		t.Fatalf("restore write missing")
	}
}

func TestCompare(t *testing.T) {
	h := newHarness(t)
	doc := edidtest.Document()
	h.sim.AddBus(1, doc)

	cmp, err := h.ch.Compare(context.Background(), 1, edidtest.Document(edidtest.CEABlock()))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.Match || !strings.Contains(cmp.Message, "size mismatch") {
		t.Fatalf("size mismatch result=%+v", cmp)
	}

	other := doc.Clone()
	other[10] = 0x10
	cmp, err = h.ch.Compare(context.Background(), 1, other)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.Match || len(cmp.Diffs) != 1 {
		t.Fatalf("diff result=%+v", cmp)
	}
	if d := cmp.Diffs[0]; d.Offset != 10 || d.Device != doc[10] || d.File != 0x10 {
		t.Fatalf("diff=%+v", d)
	}

	if _, err := h.ch.Compare(context.Background(), 8, doc); err == nil {
		t.Fatalf("expected read error for missing bus")
	}
}
