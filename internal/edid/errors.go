package edid

import "fmt"

// SizeError reports a document or block whose length breaks the 128-byte
// block rule.
type SizeError struct {
	Length int
	// Block is set together with Partial when a single block came back short.
	Block   int
	Partial bool
}

func (e *SizeError) Error() string {
	switch {
	case e.Partial:
		if e.Block == 0 {
			return fmt.Sprintf("failed to read complete base block (got %d bytes)", e.Length)
		}
		return fmt.Sprintf("failed to read extension block %d (got %d bytes)", e.Block, e.Length)
	case e.Length < BlockSize:
		return fmt.Sprintf("EDID data too short (got %d bytes, minimum %d)", e.Length, BlockSize)
	default:
		return fmt.Sprintf("EDID data size must be multiple of %d bytes (got %d)", BlockSize, e.Length)
	}
}

// HeaderError indicates the base block does not start with Header.
type HeaderError struct {
	Got [8]byte
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid EDID header % X (expected 00 FF FF FF FF FF FF 00)", e.Got[:])
}

// ChecksumError indicates a block whose bytes do not sum to 0 mod 256.
type ChecksumError struct {
	Block int
	Sum   byte
}

func (e *ChecksumError) Error() string {
	if e.Block == 0 {
		return fmt.Sprintf("invalid base block checksum (sum 0x%02X)", e.Sum)
	}
	return fmt.Sprintf("invalid checksum in extension block %d (sum 0x%02X)", e.Block, e.Sum)
}

// ExtensionCountMismatchError indicates byte 126 disagrees with the document length.
type ExtensionCountMismatchError struct {
	Declared int
	Expected int
	Actual   int
}

func (e *ExtensionCountMismatchError) Error() string {
	return fmt.Sprintf("extension count mismatch: byte 126 indicates %d extensions (expected %d bytes, got %d)",
		e.Declared, e.Expected, e.Actual)
}
