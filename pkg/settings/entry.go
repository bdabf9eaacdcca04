// Package settings implements a fixed-schema key/value settings store backed
// by a block-erasable flash region. The schema is declared as a list of
// default entries at open time; values are read and updated in memory and
// persisted by rewriting the whole region.
package settings

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// MaxKeyLength is the fixed key capacity of a record in bytes
	MaxKeyLength = 30
	// MaxValueLength is the fixed value capacity of a record in bytes,
	// including the terminating NUL
	MaxValueLength = 96
	// typeTagSize is the width of the on-flash type tag
	typeTagSize = 2

	// EntrySize is the fixed record size. It must evenly divide the erase
	// block size so a region always holds a whole number of records; a
	// 4096-byte block holds 32.
	EntrySize = MaxKeyLength + typeTagSize + MaxValueLength

	// MagicVersionKey is the reserved key of the sentinel entry that carries
	// the header code in the first record of every region
	MagicVersionKey = "MAGICVERSION"
)

// DataType is the logical type tag of an entry
type DataType uint16

const (
	// TypeInt marks an integer entry (decimal text value)
	TypeInt DataType = 0
	// TypeString marks a string entry
	TypeString DataType = 1
	// TypeBool marks a boolean entry ("true" or "false")
	TypeBool DataType = 2
)

// String returns the display name of the data type
func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeString:
		return "STRING"
	case TypeBool:
		return "BOOL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
	}
}

// Entry is one named setting. The value always holds the textual
// representation regardless of the logical type; the typed put/get surface
// formats and parses at the API boundary.
type Entry struct {
	Key   string
	Type  DataType
	Value string
}

// encodeRecord writes the fixed-size on-flash form of e into dst, which must
// be at least EntrySize bytes:
//
//	[key: 30 bytes, NUL-padded][type: 2-byte little-endian tag][value: 96 bytes, NUL-padded]
//
// Key and value are truncated to their capacities; the value keeps a
// terminating NUL in its last byte.
func encodeRecord(dst []byte, e Entry) {
	for i := 0; i < EntrySize; i++ {
		dst[i] = 0
	}

	key := e.Key
	if len(key) > MaxKeyLength {
		key = key[:MaxKeyLength]
	}
	copy(dst[:MaxKeyLength], key)

	binary.LittleEndian.PutUint16(dst[MaxKeyLength:MaxKeyLength+typeTagSize], uint16(e.Type))

	value := e.Value
	if len(value) > MaxValueLength-1 {
		value = value[:MaxValueLength-1]
	}
	copy(dst[MaxKeyLength+typeTagSize:], value)
}

// decodeRecord parses the fixed-size record in src (at least EntrySize
// bytes). No validation is performed; corrupt records come back as-is for the
// caller's format checks to reject.
func decodeRecord(src []byte) Entry {
	return Entry{
		Key:   cString(src[:MaxKeyLength]),
		Type:  DataType(binary.LittleEndian.Uint16(src[MaxKeyLength : MaxKeyLength+typeTagSize])),
		Value: cString(src[MaxKeyLength+typeTagSize : EntrySize]),
	}
}

// cString returns the bytes before the first NUL, or all of b if none.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// clampValue truncates v so the encoded value always keeps a terminating NUL.
func clampValue(v string) string {
	if len(v) > MaxValueLength-1 {
		return v[:MaxValueLength-1]
	}
	return v
}
