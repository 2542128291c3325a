package device

import (
	"log/slog"

	"github.com/s0up4200/go-edid/internal/i2c"
)

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithEnumerator sets how DiscoverBuses finds buses. The default is
// i2c.DefaultEnumerator over /dev/i2c-*.
func WithEnumerator(e i2c.Enumerator) Option {
	return func(c *Channel) {
		c.enumerator = e
	}
}

// WithLockDir enables per-bus advisory locks in dir. An empty dir disables
// locking.
func WithLockDir(dir string) Option {
	return func(c *Channel) {
		c.lockDir = dir
	}
}

// WithProgress registers a callback for write state changes.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Channel) {
		c.progress = fn
	}
}
