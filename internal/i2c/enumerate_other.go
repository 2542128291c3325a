//go:build !linux

package i2c

// DefaultEnumerator returns a glob enumerator over pattern.
func DefaultEnumerator(pattern string) Enumerator {
	return GlobEnumerator{Pattern: pattern}
}
