//go:build linux

package i2c

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"
)

const sysfsI2CDev = "/sys/class/i2c-dev"

// UdevEnumerator walks sysfs for i2c-dev class devices. When the walk finds
// nothing or stops early, Fallback fills in the buses it missed.
type UdevEnumerator struct {
	Fallback Enumerator
}

// DefaultEnumerator returns the platform enumerator. pattern feeds the glob
// fallback.
func DefaultEnumerator(pattern string) Enumerator {
	return UdevEnumerator{Fallback: GlobEnumerator{Pattern: pattern, SysfsDir: sysfsI2CDev}}
}

func (u UdevEnumerator) Buses(ctx context.Context) ([]Adapter, error) {
	adapters, walkErr := crawlI2CDev(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return u.complete(ctx, adapters, walkErr)
}

// complete merges a crawl result with the fallback. A clean, non-empty crawl
// is returned as is; crawled entries win over fallback entries for the same bus.
func (u UdevEnumerator) complete(ctx context.Context, crawled []Adapter, walkErr error) ([]Adapter, error) {
	if walkErr == nil && len(crawled) > 0 {
		sortAdapters(crawled)
		return crawled, nil
	}
	if u.Fallback == nil {
		if walkErr != nil {
			return nil, fmt.Errorf("walk %s: %w", sysfsI2CDev, walkErr)
		}
		return nil, nil
	}
	extra, err := u.Fallback.Buses(ctx)
	if err != nil {
		if walkErr != nil {
			return nil, errors.Join(fmt.Errorf("walk %s: %w", sysfsI2CDev, walkErr), err)
		}
		return nil, err
	}
	seen := make(map[int]bool, len(crawled))
	for _, a := range crawled {
		seen[a.Bus] = true
	}
	merged := append([]Adapter(nil), crawled...)
	for _, a := range extra {
		if !seen[a.Bus] {
			seen[a.Bus] = true
			merged = append(merged, a)
		}
	}
	sortAdapters(merged)
	return merged, nil
}

func i2cDevMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{
			"DEVNAME": `^i2c-[0-9]+$`,
		},
	})
	return rules
}

func crawlI2CDev(ctx context.Context) ([]Adapter, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error)
	quit := crawler.ExistingDevices(queue, errs, i2cDevMatcher())

	seen := make(map[int]bool)
	var adapters []Adapter
	var firstErr error
	for {
		select {
		case <-ctx.Done():
			close(quit)
			go drain(queue, errs)
			return adapters, ctx.Err()
		case err := <-errs:
			if firstErr == nil {
				firstErr = err
			}
		case dev, ok := <-queue:
			if !ok {
				return adapters, firstErr
			}
			name := dev.Env["DEVNAME"]
			bus, ok := ParseBus(filepath.Base(name))
			if !ok || seen[bus] {
				continue
			}
			seen[bus] = true
			device := "/dev/" + strings.TrimPrefix(name, "/dev/")
			adapters = append(adapters, Adapter{Bus: bus, Device: device, Name: readAdapterName(dev.KObj)})
		}
	}
}

func drain(queue chan crawler.Device, errs chan error) {
	for {
		select {
		case _, ok := <-queue:
			if !ok {
				return
			}
		case <-errs:
		}
	}
}
