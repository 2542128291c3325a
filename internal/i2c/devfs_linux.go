//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl requests and SMBus transaction codes from linux/i2c-dev.h and
// linux/i2c.h.
const (
	ioctlSlave = 0x0703
	ioctlFuncs = 0x0705
	ioctlSMBus = 0x0720

	smbusRead  = 1
	smbusWrite = 0

	smbusByteData     = 2
	smbusI2CBlockData = 8

	funcSMBusReadI2CBlock  = 0x04000000
	funcSMBusWriteI2CBlock = 0x08000000
)

// smbusData mirrors union i2c_smbus_data: block[0] holds the length.
type smbusData [MaxBlockSize + 2]byte

// smbusIoctlData mirrors struct i2c_smbus_ioctl_data.
type smbusIoctlData struct {
	readWrite uint8
	command   uint8
	size      uint32
	data      *smbusData
}

// Devfs opens buses through the i2c-dev character devices.
type Devfs struct{}

// Available reports whether i2c-dev is usable.
func (Devfs) Available() error {
	return nil
}

// Open opens /dev/i2c-<bus> and binds it to addr.
func (Devfs) Open(bus int, addr uint16) (Conn, error) {
	path := DevicePath(bus)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.IoctlSetInt(int(f.Fd()), ioctlSlave, int(addr)); err != nil {
		_ = f.Close()
		return nil, &os.PathError{Op: "set slave address", Path: path, Err: err}
	}
	c := &devfsConn{f: f, path: path}
	// I2C_FUNCS fills an unsigned long.
	var funcs uint
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ioctlFuncs, uintptr(unsafe.Pointer(&funcs))); errno == 0 {
		c.blockRead = funcs&funcSMBusReadI2CBlock != 0
		c.blockWrite = funcs&funcSMBusWriteI2CBlock != 0
	}
	return c, nil
}

type devfsConn struct {
	f    *os.File
	path string

	// Adapters without I2C block support fall back to byte transfers.
	blockRead  bool
	blockWrite bool
}

func (c *devfsConn) smbus(readWrite uint8, reg byte, size uint32, data *smbusData) error {
	args := smbusIoctlData{readWrite: readWrite, command: reg, size: size, data: data}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, c.f.Fd(), ioctlSMBus, uintptr(unsafe.Pointer(&args)))
	if errno != 0 {
		return &os.PathError{Op: "smbus transfer", Path: c.path, Err: errno}
	}
	return nil
}

func (c *devfsConn) ReadByteData(reg byte) (byte, error) {
	var data smbusData
	if err := c.smbus(smbusRead, reg, smbusByteData, &data); err != nil {
		return 0, err
	}
	return data[0], nil
}

func (c *devfsConn) WriteByteData(reg, value byte) error {
	var data smbusData
	data[0] = value
	return c.smbus(smbusWrite, reg, smbusByteData, &data)
}

func (c *devfsConn) ReadBlockData(reg byte, buf []byte) error {
	if len(buf) > MaxBlockSize {
		return fmt.Errorf("i2c: block read of %d bytes exceeds %d", len(buf), MaxBlockSize)
	}
	if !c.blockRead {
		for i := range buf {
			b, err := c.ReadByteData(reg + byte(i))
			if err != nil {
				return err
			}
			buf[i] = b
		}
		return nil
	}
	var data smbusData
	data[0] = byte(len(buf))
	if err := c.smbus(smbusRead, reg, smbusI2CBlockData, &data); err != nil {
		return err
	}
	if got := int(data[0]); got < len(buf) {
		copy(buf, data[1:1+got])
		return &os.PathError{Op: "smbus transfer", Path: c.path, Err: &ShortReadError{Got: got, Want: len(buf)}}
	}
	copy(buf, data[1:1+len(buf)])
	return nil
}

func (c *devfsConn) WriteBlockData(reg byte, b []byte) error {
	if len(b) > MaxBlockSize {
		return fmt.Errorf("i2c: block write of %d bytes exceeds %d", len(b), MaxBlockSize)
	}
	if !c.blockWrite {
		for i, v := range b {
			if err := c.WriteByteData(reg+byte(i), v); err != nil {
				return err
			}
		}
		return nil
	}
	var data smbusData
	data[0] = byte(len(b))
	copy(data[1:], b)
	return c.smbus(smbusWrite, reg, smbusI2CBlockData, &data)
}

func (c *devfsConn) Close() error {
	return c.f.Close()
}

func isNoDeviceErrno(err error) bool {
	return errors.Is(err, unix.ENXIO) || errors.Is(err, unix.EREMOTEIO) || errors.Is(err, unix.ENODEV)
}
