package device

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/logging"
)

// WriteState is a step of WriteDocument.
type WriteState int

const (
	StateIdle WriteState = iota
	StateBackedUp
	StateWriting
	StateWrittenAll
	StateReadBack
	StateVerified
	StateVerificationFailed
)

func (s WriteState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackedUp:
		return "backed up"
	case StateWriting:
		return "writing"
	case StateWrittenAll:
		return "written"
	case StateReadBack:
		return "reading back"
	case StateVerified:
		return "verified"
	case StateVerificationFailed:
		return "verification failed"
	default:
		return fmt.Sprintf("WriteState(%d)", int(s))
	}
}

// WriteProgress is reported on every state change and after every page.
type WriteProgress struct {
	Bus   int
	State WriteState
	// Page counts completed pages while State is StateWriting.
	Page       int
	Pages      int
	BackupPath string
}

// ProgressFunc receives write progress. It runs on the writing goroutine and
// should return quickly.
type ProgressFunc func(WriteProgress)

// WriteReport summarizes a completed write.
type WriteReport struct {
	Bus        int
	BackupPath string
	Bytes      int
	Pages      int
	State      WriteState
}

// ByteDiff is one differing offset between the device and a document.
type ByteDiff struct {
	Offset int
	Device byte
	File   byte
}

func diffBytes(device, file []byte) []ByteDiff {
	var diffs []ByteDiff
	for i := range min(len(device), len(file)) {
		if device[i] != file[i] {
			diffs = append(diffs, ByteDiff{Offset: i, Device: device[i], File: file[i]})
		}
	}
	return diffs
}

// backupCurrent reads what the device holds now and stores it.
func (c *Channel) backupCurrent(conn i2c.Conn, bus int) (edid.Document, string, error) {
	current, err := c.readDocument(conn, bus)
	if err != nil {
		return nil, "", fmt.Errorf("read current EDID for backup: %w", err)
	}
	path, err := c.store.Save(bus, current)
	if err != nil {
		return nil, "", fmt.Errorf("backup current EDID: %w", err)
	}
	return current, path, nil
}

// WriteDocument backs up the device, writes doc in 16-byte pages with a
// settle delay after each, then reads everything back and compares. ctx is
// only checked before the first page; a started write always runs to the end.
func (c *Channel) WriteDocument(ctx context.Context, bus int, doc edid.Document) (WriteReport, error) {
	report := WriteReport{Bus: bus, Bytes: len(doc), State: StateIdle}
	if len(doc) == 0 || len(doc)%edid.BlockSize != 0 {
		return report, &edid.SizeError{Length: len(doc)}
	}
	report.Pages = len(doc) / PageSize

	log := c.logger.With(
		logging.String(logging.FieldOpID, uuid.NewString()),
		logging.Int(logging.FieldBus, bus),
	)

	err := c.withBus(bus, func(conn i2c.Conn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, backupPath, err := c.backupCurrent(conn, bus)
		if err != nil {
			return err
		}
		report.BackupPath = backupPath
		c.advance(&report, StateBackedUp, 0)
		log.Info("backed up current EDID", logging.String(logging.FieldPath, backupPath))

		if err := ctx.Err(); err != nil {
			return &OperationError{Op: "write", Bus: bus, BackupPath: backupPath, Err: err}
		}

		c.advance(&report, StateWriting, 0)
		log.Info("writing EDID", logging.Int("bytes", len(doc)), logging.Int("pages", report.Pages))
		for page := range report.Pages {
			off := page * PageSize
			if err := conn.WriteBlockData(register(off), doc[off:off+PageSize]); err != nil {
				return &OperationError{Op: "write", Bus: bus, BackupPath: backupPath,
					Err: fmt.Errorf("page %d/%d at offset %d: %w", page+1, report.Pages, off, accessError(bus, "write", err))}
			}
			c.settle()
			log.Debug("page written", logging.Int("page", page+1), logging.Int("offset", off))
			c.advance(&report, StateWriting, page+1)
		}
		c.advance(&report, StateWrittenAll, report.Pages)

		c.advance(&report, StateReadBack, report.Pages)
		readback, err := c.readBlocks(conn, bus, len(doc)/edid.BlockSize)
		if err != nil {
			return &OperationError{Op: "verify", Bus: bus, BackupPath: backupPath, Err: err}
		}
		if diffs := diffBytes(readback, doc); len(diffs) > 0 {
			c.advance(&report, StateVerificationFailed, report.Pages)
			log.Error("write verification failed", logging.Int("diffs", len(diffs)),
				logging.String(logging.FieldPath, backupPath))
			return &WriteVerificationError{Bus: bus, BackupPath: backupPath, Diffs: diffs}
		}
		c.advance(&report, StateVerified, report.Pages)
		log.Info("write verified")
		return nil
	})
	return report, err
}

func (c *Channel) advance(r *WriteReport, state WriteState, page int) {
	r.State = state
	if c.progress != nil {
		c.progress(WriteProgress{Bus: r.Bus, State: state, Page: page, Pages: r.Pages, BackupPath: r.BackupPath})
	}
}
