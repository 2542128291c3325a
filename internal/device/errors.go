package device

import (
	"errors"
	"fmt"

	"github.com/s0up4200/go-edid/internal/i2c"
)

// ErrUnsupported is returned by New when the platform cannot reach I2C buses.
var ErrUnsupported = errors.New("device: I2C access unavailable")

// AccessError reports a failure to open or talk to a bus.
type AccessError struct {
	Bus  int
	Op   string
	Kind i2c.FaultKind
	Err  error
}

func (e *AccessError) Error() string {
	switch e.Kind {
	case i2c.FaultPermission:
		return fmt.Sprintf("permission denied accessing %s (try running as root or joining the i2c group): %v",
			i2c.DevicePath(e.Bus), e.Err)
	case i2c.FaultNotPresent:
		return fmt.Sprintf("i2c bus %d: no EDID device present: %v", e.Bus, e.Err)
	default:
		return fmt.Sprintf("i2c bus %d: %s failed: %v", e.Bus, e.Op, e.Err)
	}
}

func (e *AccessError) Unwrap() error { return e.Err }

func accessError(bus int, op string, err error) error {
	return &AccessError{Bus: bus, Op: op, Kind: i2c.Classify(err), Err: err}
}

// BusBusyError indicates another process holds the bus lock.
type BusBusyError struct {
	Bus      int
	LockPath string
}

func (e *BusBusyError) Error() string {
	return fmt.Sprintf("i2c bus %d is in use by another process (lock %s)", e.Bus, e.LockPath)
}

// OperationError wraps a failure that happened after a backup was taken.
// BackupPath is always set.
type OperationError struct {
	Op         string
	Bus        int
	BackupPath string
	Err        error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s on bus %d failed: %v (backup saved to %s)", e.Op, e.Bus, e.Err, e.BackupPath)
}

func (e *OperationError) Unwrap() error { return e.Err }

// WriteVerificationError reports that the device content differs from what
// was written.
type WriteVerificationError struct {
	Bus        int
	BackupPath string
	Diffs      []ByteDiff
}

func (e *WriteVerificationError) Error() string {
	return fmt.Sprintf("write verification failed on bus %d: %d byte(s) differ; restore from backup %s",
		e.Bus, len(e.Diffs), e.BackupPath)
}

// RestoreVerificationError reports that the write probe could not put the
// original byte back. The device content is now altered.
type RestoreVerificationError struct {
	Bus        int
	Offset     int
	Expected   byte
	Got        byte
	BackupPath string
}

func (e *RestoreVerificationError) Error() string {
	return fmt.Sprintf("CRITICAL: failed to restore byte at offset %d on bus %d (expected 0x%02X, got 0x%02X); restore from backup %s",
		e.Offset, e.Bus, e.Expected, e.Got, e.BackupPath)
}
