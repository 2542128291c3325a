package device

import (
	"context"
	"errors"

	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/logging"
)

// register maps a document offset to the EEPROM's 8-bit address register.
// Block 2 lands back on register 0.
func register(offset int) byte {
	return byte(offset % 256)
}

// ReadDocument reads the base block and every extension it declares.
func (c *Channel) ReadDocument(ctx context.Context, bus int) (edid.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc edid.Document
	err := c.withBus(bus, func(conn i2c.Conn) error {
		var err error
		doc, err = c.readDocument(conn, bus)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("read EDID",
		logging.Int(logging.FieldBus, bus),
		logging.Int("bytes", len(doc)),
		logging.Int("extensions", doc.ExtensionCount()),
	)
	return doc, nil
}

func (c *Channel) readDocument(conn i2c.Conn, bus int) (edid.Document, error) {
	base, err := c.readBlock(conn, bus, 0)
	if err != nil {
		return nil, err
	}
	doc := edid.Document(base)
	for i := 1; i <= doc.ExtensionCount(); i++ {
		block, err := c.readBlock(conn, bus, i)
		if err != nil {
			return nil, err
		}
		doc = append(doc, block...)
	}
	return doc, nil
}

// readBlocks reads exactly n blocks regardless of the extension count.
func (c *Channel) readBlocks(conn i2c.Conn, bus, n int) (edid.Document, error) {
	doc := make(edid.Document, 0, n*edid.BlockSize)
	for i := range n {
		block, err := c.readBlock(conn, bus, i)
		if err != nil {
			return nil, err
		}
		doc = append(doc, block...)
	}
	return doc, nil
}

func (c *Channel) readBlock(conn i2c.Conn, bus, index int) (edid.Block, error) {
	block := make(edid.Block, edid.BlockSize)
	start := index * edid.BlockSize
	for off := 0; off < edid.BlockSize; off += ReadChunk {
		n := min(ReadChunk, edid.BlockSize-off)
		if err := conn.ReadBlockData(register(start+off), block[off:off+n]); err != nil {
			if errors.Is(err, i2c.ErrShortRead) {
				got := off
				var short *i2c.ShortReadError
				if errors.As(err, &short) {
					got += short.Got
				}
				return nil, &edid.SizeError{Length: got, Block: index, Partial: true}
			}
			return nil, accessError(bus, "read", err)
		}
	}
	return block, nil
}

// BusInfo is the outcome of probing one bus.
type BusInfo struct {
	Bus     int
	Device  string
	Adapter string
	HasEDID bool
	// ProbeErr records why the probe failed; HasEDID is false when set.
	ProbeErr error
}

// DiscoverBuses probes every bus for an EEPROM whose first byte is 0x00, the
// first header byte. Per-bus failures are recorded, not returned.
func (c *Channel) DiscoverBuses(ctx context.Context) ([]BusInfo, error) {
	adapters, err := c.enumerator.Buses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BusInfo, 0, len(adapters))
	for _, a := range adapters {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		info := BusInfo{Bus: a.Bus, Device: a.Device, Adapter: a.Name}
		info.ProbeErr = c.withBus(a.Bus, func(conn i2c.Conn) error {
			v, err := conn.ReadByteData(0)
			if err != nil {
				return accessError(a.Bus, "probe", err)
			}
			info.HasEDID = v == 0
			return nil
		})
		c.logger.Debug("probed bus",
			logging.Int(logging.FieldBus, a.Bus),
			logging.Bool("has_edid", info.HasEDID),
			logging.Error(info.ProbeErr),
		)
		out = append(out, info)
	}
	return out, nil
}
