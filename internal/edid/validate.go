package edid

// CheckStructure validates d and returns the first problem found as one of
// SizeError, HeaderError, ChecksumError or ExtensionCountMismatchError.
func CheckStructure(d Document) error {
	if len(d) < BlockSize || len(d)%BlockSize != 0 {
		return &SizeError{Length: len(d)}
	}
	if !d.HasHeader() {
		e := &HeaderError{}
		copy(e.Got[:], d[:len(Header)])
		return e
	}
	if base := d[:BlockSize]; !ValidateChecksum(base) {
		return &ChecksumError{Block: 0, Sum: blockSum(base)}
	}
	count := d.ExtensionCount()
	expected := BlockSize * (1 + count)
	if len(d) != expected {
		return &ExtensionCountMismatchError{Declared: count, Expected: expected, Actual: len(d)}
	}
	for i := 1; i <= count; i++ {
		b, _ := d.Block(i)
		if !ValidateChecksum(b) {
			return &ChecksumError{Block: i, Sum: blockSum(b)}
		}
	}
	return nil
}

// ValidateStructure is the boolean-plus-reason form of CheckStructure.
func ValidateStructure(d Document) (bool, string) {
	if err := CheckStructure(d); err != nil {
		return false, err.Error()
	}
	return true, "Valid EDID structure"
}

// FindSafeTestByte locates a byte that can be flipped and restored without
// disturbing anything a display relies on: the flag byte (+5) of the first
// dummy descriptor, else the first unused standard timing slot (01 01).
// ok is false when no such byte exists.
func FindSafeTestByte(d Document) (offset int, ok bool) {
	if len(d) < BlockSize {
		return 0, false
	}
	for _, off := range DescriptorOffsets {
		if d[off] == 0x00 && d[off+1] == 0x00 {
			if candidate := off + 5; candidate < ChecksumOffset {
				return candidate, true
			}
		}
	}
	for off := standardTimingStart; off < standardTimingEnd; off += 2 {
		if d[off] == 0x01 && d[off+1] == 0x01 {
			return off, true
		}
	}
	return 0, false
}
