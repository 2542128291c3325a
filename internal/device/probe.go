package device

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/logging"
)

// WriteOutcome is the verdict of TestWritable.
type WriteOutcome int

const (
	OutcomeWritable WriteOutcome = iota
	OutcomeReadOnly
	// OutcomeNoSafeByte means no byte could be flipped without risk, so
	// nothing was written.
	OutcomeNoSafeByte
)

func (o WriteOutcome) String() string {
	switch o {
	case OutcomeWritable:
		return "writable"
	case OutcomeReadOnly:
		return "read-only"
	case OutcomeNoSafeByte:
		return "no safe byte"
	default:
		return fmt.Sprintf("WriteOutcome(%d)", int(o))
	}
}

// WriteTestResult describes a completed probe.
type WriteTestResult struct {
	Bus        int
	Outcome    WriteOutcome
	Offset     int
	BackupPath string
	Message    string
}

// Writable reports whether the flipped byte was observed.
func (r WriteTestResult) Writable() bool {
	return r.Outcome == OutcomeWritable
}

// TestWritable flips one harmless byte, checks whether the change sticks and
// always writes the original back. A failed restore is a
// RestoreVerificationError. ctx is only checked before the flip.
func (c *Channel) TestWritable(ctx context.Context, bus int) (WriteTestResult, error) {
	result := WriteTestResult{Bus: bus}
	log := c.logger.With(
		logging.String(logging.FieldOpID, uuid.NewString()),
		logging.Int(logging.FieldBus, bus),
	)

	err := c.withBus(bus, func(conn i2c.Conn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, backupPath, err := c.backupCurrent(conn, bus)
		if err != nil {
			return err
		}
		result.BackupPath = backupPath
		log.Info("backed up current EDID", logging.String(logging.FieldPath, backupPath))

		offset, ok := edid.FindSafeTestByte(current)
		if !ok {
			result.Outcome = OutcomeNoSafeByte
			result.Message = "no safe test byte found; cannot test without risking EDID corruption"
			log.Info("write test skipped", logging.String("reason", result.Message))
			return nil
		}
		result.Offset = offset
		original := current[offset]
		flipped := ^original
		reg := register(offset)

		if err := ctx.Err(); err != nil {
			return err
		}

		log.Info("writing test byte", logging.Int("offset", offset))
		writeErr := conn.WriteByteData(reg, flipped)
		var observed byte
		var readErr error
		if writeErr == nil {
			c.settle()
			observed, readErr = conn.ReadByteData(reg)
		}

		// The original goes back whatever happened above.
		if err := conn.WriteByteData(reg, original); err != nil {
			return &OperationError{Op: "restore test byte", Bus: bus, BackupPath: backupPath, Err: accessError(bus, "write", err)}
		}
		c.settle()
		restored, err := conn.ReadByteData(reg)
		if err != nil {
			return &OperationError{Op: "verify restored byte", Bus: bus, BackupPath: backupPath, Err: accessError(bus, "read", err)}
		}
		if restored != original {
			log.Error("test byte not restored", logging.Int("offset", offset), logging.String(logging.FieldPath, backupPath))
			return &RestoreVerificationError{Bus: bus, Offset: offset, Expected: original, Got: restored, BackupPath: backupPath}
		}

		if writeErr != nil {
			return &OperationError{Op: "write test byte", Bus: bus, BackupPath: backupPath, Err: accessError(bus, "write", writeErr)}
		}
		if readErr != nil {
			return &OperationError{Op: "read test byte", Bus: bus, BackupPath: backupPath, Err: accessError(bus, "read", readErr)}
		}

		if observed == flipped {
			result.Outcome = OutcomeWritable
			result.Message = fmt.Sprintf("device is writable (tested offset %d)", offset)
		} else {
			result.Outcome = OutcomeReadOnly
			result.Message = fmt.Sprintf("device is not writable (wrote 0x%02X, read back 0x%02X at offset %d)", flipped, observed, offset)
		}
		log.Info("write test finished", logging.String("outcome", result.Outcome.String()))
		return nil
	})
	return result, err
}
