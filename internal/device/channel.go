// Package device reads, writes and verifies EDID EEPROMs over I2C.
//
// A Channel is synchronous. Operations on the same bus must not overlap;
// WithLockDir extends that guarantee across processes.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/logging"
)

const (
	// Address is the DDC EEPROM slave address.
	Address uint16 = 0x50
	// ReadChunk is the largest read transaction.
	ReadChunk = 32
	// PageSize is the EEPROM write page.
	PageSize = 16
	// SettleDelay follows every page write so the EEPROM can commit.
	SettleDelay = 10 * time.Millisecond
)

// Backuper persists a copy of device content and returns where it went.
type Backuper interface {
	Save(bus int, data []byte) (string, error)
}

// Channel performs EDID transactions on numbered I2C buses.
type Channel struct {
	opener     i2c.Opener
	store      Backuper
	enumerator i2c.Enumerator
	logger     *slog.Logger
	lockDir    string
	progress   ProgressFunc

	sleep func(time.Duration)
}

// New checks that the platform supports I2C and returns a channel. Both
// opener and store are required.
func New(opener i2c.Opener, store Backuper, opts ...Option) (*Channel, error) {
	if opener == nil {
		return nil, fmt.Errorf("%w: no bus opener", ErrUnsupported)
	}
	if store == nil {
		return nil, errors.New("device: backup store is required")
	}
	if err := opener.Available(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	c := &Channel{
		opener: opener,
		store:  store,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.enumerator == nil {
		c.enumerator = i2c.DefaultEnumerator(i2c.DefaultGlob)
	}
	c.logger = logging.NewComponentLogger(c.logger, "device")
	return c, nil
}

// withBus locks bus, opens the EEPROM and runs fn.
func (c *Channel) withBus(bus int, fn func(conn i2c.Conn) error) error {
	unlock, err := c.lockBus(bus)
	if err != nil {
		return err
	}
	defer unlock()

	conn, err := c.opener.Open(bus, Address)
	if err != nil {
		return accessError(bus, "open", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			c.logger.Debug("close bus failed", logging.Int(logging.FieldBus, bus), logging.Error(cerr))
		}
	}()
	return fn(conn)
}

// lockBus takes the advisory lock for bus. Only a lock held elsewhere is an
// error; a lock file that cannot be created or opened is logged and the bus
// is used unlocked.
func (c *Channel) lockBus(bus int) (func(), error) {
	if c.lockDir == "" {
		return func() {}, nil
	}
	path := filepath.Join(c.lockDir, fmt.Sprintf("i2c-%d.lock", bus))
	log := c.logger.With(logging.Int(logging.FieldBus, bus), logging.String(logging.FieldPath, path))

	if err := os.MkdirAll(c.lockDir, 0o755); err != nil {
		log.Warn("bus lock unavailable, continuing unlocked", logging.Error(err))
		return func() {}, nil
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		log.Warn("bus lock unavailable, continuing unlocked", logging.Error(err))
		return func() {}, nil
	}
	if !locked {
		return nil, &BusBusyError{Bus: bus, LockPath: path}
	}
	return func() { _ = lock.Unlock() }, nil
}

func (c *Channel) settle() {
	c.sleep(SettleDelay)
}
