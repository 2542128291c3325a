package edid

import "fmt"

func blockSum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// ValidateChecksum reports whether block is 128 bytes summing to 0 mod 256.
func ValidateChecksum(block []byte) bool {
	if len(block) != BlockSize {
		return false
	}
	return blockSum(block) == 0
}

// RecalculateChecksum rewrites byte 127 of block so the block sums to 0 and
// returns the new checksum.
func RecalculateChecksum(block []byte) (byte, error) {
	if len(block) != BlockSize {
		return 0, fmt.Errorf("EDID block must be exactly %d bytes (got %d)", BlockSize, len(block))
	}
	block[ChecksumOffset] = 0
	checksum := byte((256 - int(blockSum(block[:ChecksumOffset]))) % 256)
	block[ChecksumOffset] = checksum
	return checksum, nil
}

// RecalculateChecksums fixes the checksum of every block in place.
func RecalculateChecksums(d Document) error {
	if len(d)%BlockSize != 0 {
		return &SizeError{Length: len(d)}
	}
	for off := 0; off < len(d); off += BlockSize {
		if _, err := RecalculateChecksum(d[off : off+BlockSize]); err != nil {
			return err
		}
	}
	return nil
}
