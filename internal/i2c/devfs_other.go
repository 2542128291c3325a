//go:build !linux

package i2c

// Devfs is unavailable outside Linux.
type Devfs struct{}

func (Devfs) Available() error {
	return ErrUnsupported
}

func (Devfs) Open(int, uint16) (Conn, error) {
	return nil, ErrUnsupported
}

func isNoDeviceErrno(error) bool {
	return false
}
