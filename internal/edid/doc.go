// Package edid models EDID documents: the 128-byte block layout, typed field
// records for the base block and CEA-861 extensions, and the validator that
// guards per-block checksums and overall structure.
//
// A Document is the raw concatenation of blocks exactly as it appears on the
// display EEPROM or in a vendor dump file. Nothing in this package mutates a
// document except the checksum recalculation helpers.
package edid
