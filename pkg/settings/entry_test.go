package settings

import (
	"strings"
	"testing"
)

func TestEntrySizeDividesBlock(t *testing.T) {
	if 4096%EntrySize != 0 {
		t.Fatalf("EntrySize %d must evenly divide a 4096-byte block", EntrySize)
	}
	if EntrySize != 128 {
		t.Errorf("expected 128-byte records, got %d", EntrySize)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"string entry", Entry{Key: "HOSTNAME", Type: TypeString, Value: "sidecar-01"}},
		{"bool entry", Entry{Key: "ENABLED", Type: TypeBool, Value: "true"}},
		{"int entry", Entry{Key: "RETRIES", Type: TypeInt, Value: "42"}},
		{"empty value", Entry{Key: "BLANK", Type: TypeString, Value: ""}},
		{"sentinel", Entry{Key: MagicVersionKey, Type: TypeInt, Value: "305397761"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, EntrySize)
			encodeRecord(buf, tc.entry)
			got := decodeRecord(buf)
			if got != tc.entry {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tc.entry)
			}
		})
	}
}

func TestRecordLayout(t *testing.T) {
	buf := make([]byte, EntrySize)
	encodeRecord(buf, Entry{Key: "AB", Type: TypeBool, Value: "true"})

	if buf[0] != 'A' || buf[1] != 'B' || buf[2] != 0 {
		t.Errorf("key not NUL-padded at start of record: % x", buf[:4])
	}
	// 2-byte little-endian type tag after the key field.
	if buf[MaxKeyLength] != 2 || buf[MaxKeyLength+1] != 0 {
		t.Errorf("type tag bytes = % x, want 02 00", buf[MaxKeyLength:MaxKeyLength+2])
	}
	if string(buf[MaxKeyLength+2:MaxKeyLength+6]) != "true" {
		t.Errorf("value field = %q", buf[MaxKeyLength+2:MaxKeyLength+6])
	}
}

func TestRecordTruncation(t *testing.T) {
	longKey := strings.Repeat("K", MaxKeyLength+10)
	longValue := strings.Repeat("v", MaxValueLength+10)

	buf := make([]byte, EntrySize)
	encodeRecord(buf, Entry{Key: longKey, Type: TypeString, Value: longValue})
	got := decodeRecord(buf)

	if len(got.Key) != MaxKeyLength {
		t.Errorf("key length %d, want %d", len(got.Key), MaxKeyLength)
	}
	// The value always keeps a terminating NUL in its last byte.
	if len(got.Value) != MaxValueLength-1 {
		t.Errorf("value length %d, want %d", len(got.Value), MaxValueLength-1)
	}
	if buf[EntrySize-1] != 0 {
		t.Error("last value byte must stay NUL")
	}
}

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		dt       DataType
		expected string
	}{
		{TypeInt, "INT"},
		{TypeString, "STRING"},
		{TypeBool, "BOOL"},
		{DataType(7), "UNKNOWN(7)"},
	}
	for _, tc := range tests {
		if got := tc.dt.String(); got != tc.expected {
			t.Errorf("DataType(%d).String() = %q, want %q", tc.dt, got, tc.expected)
		}
	}
}
