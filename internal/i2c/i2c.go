// Package i2c provides register-level access to devices on Linux I2C buses.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// MaxBlockSize is the largest I2C block transfer the kernel accepts.
const MaxBlockSize = 32

// ErrUnsupported is returned when the platform has no I2C device interface.
var ErrUnsupported = errors.New("i2c: not supported on this platform")

// ErrShortRead is returned when a block read yields fewer bytes than requested.
var ErrShortRead = errors.New("i2c: short block read")

// ShortReadError reports how much of a block read arrived. It matches
// ErrShortRead under errors.Is.
type ShortReadError struct {
	Got, Want int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("i2c: short block read (got %d of %d bytes)", e.Got, e.Want)
}

func (e *ShortReadError) Is(target error) bool { return target == ErrShortRead }

// ErrNoDevice is returned when nothing acknowledges the target address.
var ErrNoDevice = errors.New("i2c: no device at address")

// Opener opens connections to a device on a numbered bus.
type Opener interface {
	// Available reports whether the platform can open I2C buses at all.
	Available() error
	Open(bus int, addr uint16) (Conn, error)
}

// Conn is an open connection to one slave address. Register addresses are
// 8 bits wide.
type Conn interface {
	ReadByteData(reg byte) (byte, error)
	WriteByteData(reg, value byte) error
	// ReadBlockData fills buf starting at reg. len(buf) must not exceed MaxBlockSize.
	ReadBlockData(reg byte, buf []byte) error
	// WriteBlockData writes data starting at reg. len(data) must not exceed MaxBlockSize.
	WriteBlockData(reg byte, data []byte) error
	Close() error
}

// Adapter is one I2C bus exposed through a character device.
type Adapter struct {
	Bus    int
	Device string
	// Name is the kernel adapter name, when known.
	Name string
}

// Enumerator lists the I2C buses present on the system.
type Enumerator interface {
	Buses(ctx context.Context) ([]Adapter, error)
}

// DevicePath is the character device for bus.
func DevicePath(bus int) string {
	return fmt.Sprintf("/dev/i2c-%d", bus)
}

// FaultKind classifies a transfer or open failure.
type FaultKind int

const (
	FaultIO FaultKind = iota
	FaultPermission
	FaultNotPresent
)

func (k FaultKind) String() string {
	switch k {
	case FaultPermission:
		return "permission denied"
	case FaultNotPresent:
		return "not present"
	default:
		return "i/o error"
	}
}

// Classify maps an error returned by an Opener or Conn to a FaultKind.
func Classify(err error) FaultKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return FaultPermission
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrNoDevice), isNoDeviceErrno(err):
		return FaultNotPresent
	default:
		return FaultIO
	}
}
