// Package i2ctest simulates 256-byte I2C EEPROMs for tests.
package i2ctest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/s0up4200/go-edid/internal/i2c"
)

// Transfer is one logged register transaction.
type Transfer struct {
	Bus   int
	Write bool
	Reg   byte
	Data  []byte
}

// Chip is the EEPROM behind one bus. Registers wrap at 256.
type Chip struct {
	Memory [256]byte
	// Addr is the acknowledged slave address.
	Addr uint16
	// ReadOnly chips acknowledge writes but keep their contents.
	ReadOnly bool
	// OpenErr is returned by Open for this bus.
	OpenErr error
	// ReadErr and WriteErr fail every transfer in that direction.
	ReadErr  error
	WriteErr error
	// ShortRead cuts every read that covers register ShortReadAt off just
	// before it, returning an *i2c.ShortReadError.
	ShortRead   bool
	ShortReadAt byte
	// WriteFilter, when set, sees every write with its zero-based index.
	// Returning false drops the write silently.
	WriteFilter func(n int, reg byte, data []byte) (bool, error)

	writes int
}

// Sim is an i2c.Opener and i2c.Enumerator over simulated chips.
type Sim struct {
	// AvailableErr is returned from Available.
	AvailableErr error

	mu    sync.Mutex
	chips map[int]*Chip
	log   []Transfer
	open  int
}

// New returns an empty simulator.
func New() *Sim {
	return &Sim{chips: make(map[int]*Chip)}
}

// AddBus installs a chip at 0x50 on bus holding contents (truncated to 256
// bytes, the rest zero) and returns it for further configuration.
func (s *Sim) AddBus(bus int, contents []byte) *Chip {
	c := &Chip{Addr: 0x50}
	copy(c.Memory[:], contents)
	s.mu.Lock()
	s.chips[bus] = c
	s.mu.Unlock()
	return c
}

// Memory returns a copy of the chip contents on bus.
func (s *Sim) Memory(bus int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chips[bus]
	if !ok {
		return nil
	}
	out := make([]byte, len(c.Memory))
	copy(out, c.Memory[:])
	return out
}

// Log returns the transfers performed so far.
func (s *Sim) Log() []Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transfer(nil), s.log...)
}

// Writes returns only the logged writes.
func (s *Sim) Writes() []Transfer {
	var out []Transfer
	for _, t := range s.Log() {
		if t.Write {
			out = append(out, t)
		}
	}
	return out
}

// OpenConns reports connections not yet closed.
func (s *Sim) OpenConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Sim) Available() error {
	return s.AvailableErr
}

func (s *Sim) Open(bus int, addr uint16) (i2c.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chips[bus]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: i2c.DevicePath(bus), Err: fs.ErrNotExist}
	}
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	s.open++
	return &conn{sim: s, chip: c, bus: bus, addr: addr}, nil
}

// Buses lists every simulated bus.
func (s *Sim) Buses(ctx context.Context) ([]i2c.Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]i2c.Adapter, 0, len(s.chips))
	for bus := range s.chips {
		out = append(out, i2c.Adapter{Bus: bus, Device: i2c.DevicePath(bus), Name: fmt.Sprintf("sim %d", bus)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bus < out[j].Bus })
	return out, nil
}

type conn struct {
	sim    *Sim
	chip   *Chip
	bus    int
	addr   uint16
	closed bool
}

func (c *conn) check() error {
	if c.closed {
		return fs.ErrClosed
	}
	if c.addr != c.chip.Addr {
		return i2c.ErrNoDevice
	}
	return nil
}

func (c *conn) read(reg byte, buf []byte) error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if c.chip.ReadErr != nil {
		return c.chip.ReadErr
	}
	n := len(buf)
	if at := int(c.chip.ShortReadAt); c.chip.ShortRead && int(reg) <= at && at < int(reg)+len(buf) {
		n = at - int(reg)
	}
	for i := range n {
		buf[i] = c.chip.Memory[reg+byte(i)]
	}
	c.sim.log = append(c.sim.log, Transfer{Bus: c.bus, Reg: reg, Data: append([]byte(nil), buf[:n]...)})
	if n < len(buf) {
		return &i2c.ShortReadError{Got: n, Want: len(buf)}
	}
	return nil
}

func (c *conn) write(reg byte, data []byte) error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if c.chip.WriteErr != nil {
		return c.chip.WriteErr
	}
	n := c.chip.writes
	c.chip.writes++
	apply := !c.chip.ReadOnly
	if c.chip.WriteFilter != nil {
		ok, err := c.chip.WriteFilter(n, reg, data)
		if err != nil {
			return err
		}
		apply = apply && ok
	}
	c.sim.log = append(c.sim.log, Transfer{Bus: c.bus, Write: true, Reg: reg, Data: append([]byte(nil), data...)})
	if apply {
		for i, v := range data {
			c.chip.Memory[reg+byte(i)] = v
		}
	}
	return nil
}

func (c *conn) ReadByteData(reg byte) (byte, error) {
	var b [1]byte
	if err := c.read(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *conn) WriteByteData(reg, value byte) error {
	return c.write(reg, []byte{value})
}

func (c *conn) ReadBlockData(reg byte, buf []byte) error {
	if len(buf) > i2c.MaxBlockSize {
		return fmt.Errorf("i2ctest: block read of %d bytes", len(buf))
	}
	return c.read(reg, buf)
}

func (c *conn) WriteBlockData(reg byte, data []byte) error {
	if len(data) > i2c.MaxBlockSize {
		return fmt.Errorf("i2ctest: block write of %d bytes", len(data))
	}
	return c.write(reg, data)
}

func (c *conn) Close() error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if c.closed {
		return fs.ErrClosed
	}
	c.closed = true
	c.sim.open--
	return nil
}
