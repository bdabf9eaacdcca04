package snapshot

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvstore/nvstore/pkg/flash"
)

func newPatternDevice(t *testing.T, size uint32) flash.Device {
	t.Helper()

	d, err := flash.NewMemDevice(size)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	image := make([]byte, size)
	for i := range image {
		image[i] = byte(i % 251)
	}
	require.NoError(t, d.EraseRegion(0, size))
	require.NoError(t, d.ProgramRegion(0, image))
	return d
}

func TestRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd, CodecSnappy} {
		t.Run(codec.String(), func(t *testing.T) {
			src := newPatternDevice(t, 8192)

			var buf bytes.Buffer
			require.NoError(t, Export(src, 4096, 4096, &buf, codec))

			dst, err := flash.NewMemDevice(4096)
			require.NoError(t, err)
			defer dst.Close()
			require.NoError(t, Import(dst, 0, 4096, &buf))

			want := make([]byte, 4096)
			require.NoError(t, src.Read(4096, want))
			got := make([]byte, 4096)
			require.NoError(t, dst.Read(0, got))
			assert.Equal(t, want, got)
		})
	}
}

func TestZstdCompresses(t *testing.T) {
	d, err := flash.NewMemDevice(4096)
	require.NoError(t, err)
	defer d.Close()

	// A fully erased region is all 0xFF, which compresses to almost nothing.
	var buf bytes.Buffer
	require.NoError(t, Export(d, 0, 4096, &buf, CodecZstd))
	assert.Less(t, buf.Len(), 1024)
}

func TestImportRejectsBadMagic(t *testing.T) {
	d, err := flash.NewMemDevice(4096)
	require.NoError(t, err)
	defer d.Close()

	blob := make([]byte, HeaderSize+TrailerSize)
	err = Import(d, 0, 4096, bytes.NewReader(blob))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestImportRejectsUnsupportedVersion(t *testing.T) {
	src := newPatternDevice(t, 4096)

	var buf bytes.Buffer
	require.NoError(t, Export(src, 0, 4096, &buf, CodecNone))
	blob := buf.Bytes()
	binary.LittleEndian.PutUint32(blob[8:12], 99)

	err := Import(src, 0, 4096, bytes.NewReader(blob))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestImportDetectsCorruption(t *testing.T) {
	src := newPatternDevice(t, 4096)

	var buf bytes.Buffer
	require.NoError(t, Export(src, 0, 4096, &buf, CodecNone))
	blob := buf.Bytes()
	blob[HeaderSize+100] ^= 0xFF

	err := Import(src, 0, 4096, bytes.NewReader(blob))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestImportDetectsTruncation(t *testing.T) {
	src := newPatternDevice(t, 4096)

	var buf bytes.Buffer
	require.NoError(t, Export(src, 0, 4096, &buf, CodecNone))
	blob := buf.Bytes()

	err := Import(src, 0, 4096, bytes.NewReader(blob[:len(blob)-100]))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestImportRejectsSizeMismatch(t *testing.T) {
	src := newPatternDevice(t, 8192)

	var buf bytes.Buffer
	require.NoError(t, Export(src, 0, 8192, &buf, CodecNone))

	dst, err := flash.NewMemDevice(4096)
	require.NoError(t, err)
	defer dst.Close()

	err = Import(dst, 0, 4096, &buf)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{"none", CodecNone, false},
		{"", CodecNone, false},
		{"zstd", CodecZstd, false},
		{"Snappy", CodecSnappy, false},
		{"lz4", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCodec(tt.name)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownCodec, "name %q", tt.name)
			continue
		}
		require.NoError(t, err, "name %q", tt.name)
		assert.Equal(t, tt.want, got, "name %q", tt.name)
	}
}

func TestFileRoundTrip(t *testing.T) {
	src := newPatternDevice(t, 4096)

	path := filepath.Join(t.TempDir(), "region.snap")
	require.NoError(t, ExportFile(src, 0, 4096, path, CodecSnappy))

	dst, err := flash.NewMemDevice(4096)
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, ImportFile(dst, 0, 4096, path))

	want := make([]byte, 4096)
	require.NoError(t, src.Read(0, want))
	got := make([]byte, 4096)
	require.NoError(t, dst.Read(0, got))
	assert.Equal(t, want, got)
}
