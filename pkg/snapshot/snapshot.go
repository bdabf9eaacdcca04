// Package snapshot reads and writes portable images of a flash settings
// region, used for backups and for provisioning fleets of devices from a
// golden image. A snapshot is a single self-describing blob:
//
//	[header: magic u64 | version u32 | codec u8 | reserved 3 | origLen u32 | compLen u32]
//	[payload: compLen bytes of (optionally compressed) region image]
//	[trailer: xxhash64 of header+payload]
//
// All integers are little-endian.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/nvstore/nvstore/pkg/flash"
)

const (
	// Magic identifies a snapshot blob
	Magic = uint64(0x4E565354534E4150) // "NVSTSNAP"
	// CurrentVersion is the current snapshot format version
	CurrentVersion = uint32(1)
	// HeaderSize is the fixed header length in bytes
	HeaderSize = 24
	// TrailerSize is the checksum trailer length in bytes
	TrailerSize = 8
)

var (
	// ErrBadMagic is returned when the blob does not start with the snapshot magic
	ErrBadMagic = errors.New("not a snapshot: bad magic")
	// ErrUnsupportedVersion is returned for snapshot versions this build cannot read
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrUnknownCodec is returned when an unsupported compression codec is specified
	ErrUnknownCodec = errors.New("unknown compression codec")
	// ErrChecksumMismatch is returned when the trailer checksum does not match the data
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	// ErrSizeMismatch is returned when a snapshot's region size differs from the target region
	ErrSizeMismatch = errors.New("snapshot size does not match region")
	// ErrTruncated is returned when the blob is shorter than its header claims
	ErrTruncated = errors.New("snapshot truncated")
)

// Codec selects the payload compression
type Codec uint8

const (
	// CodecNone stores the region image uncompressed
	CodecNone Codec = iota
	// CodecZstd compresses with zstandard
	CodecZstd
	// CodecSnappy compresses with snappy
	CodecSnappy
)

// String returns the codec name
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps a codec name to its Codec value
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	case "snappy":
		return CodecSnappy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Export reads [offset, offset+length) from the device and writes a snapshot
// blob to w using the given codec.
func Export(d flash.Device, offset, length uint32, w io.Writer, codec Codec) error {
	image := make([]byte, length)
	if err := d.Read(offset, image); err != nil {
		return fmt.Errorf("failed to read region: %w", err)
	}

	payload, err := compress(image, codec)
	if err != nil {
		return err
	}

	blob := make([]byte, HeaderSize+len(payload)+TrailerSize)
	binary.LittleEndian.PutUint64(blob[0:8], Magic)
	binary.LittleEndian.PutUint32(blob[8:12], CurrentVersion)
	blob[12] = byte(codec)
	// blob[13:16] reserved
	binary.LittleEndian.PutUint32(blob[16:20], length)
	binary.LittleEndian.PutUint32(blob[20:24], uint32(len(payload)))
	copy(blob[HeaderSize:], payload)

	sum := xxhash.Sum64(blob[:HeaderSize+len(payload)])
	binary.LittleEndian.PutUint64(blob[HeaderSize+len(payload):], sum)

	if _, err := w.Write(blob); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Import reads a snapshot blob from r, verifies it, and restores it into
// [offset, offset+length) on the device by erasing and programming the
// region. The snapshot's recorded region size must equal length.
func Import(d flash.Device, offset, length uint32, r io.Reader) error {
	blob, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	image, err := decode(blob)
	if err != nil {
		return err
	}
	if uint32(len(image)) != length {
		return fmt.Errorf("%w: snapshot holds %d bytes, region is %d", ErrSizeMismatch, len(image), length)
	}

	if err := d.EraseRegion(offset, length); err != nil {
		return fmt.Errorf("failed to erase region: %w", err)
	}
	if err := d.ProgramRegion(offset, image); err != nil {
		return fmt.Errorf("failed to program region: %w", err)
	}
	return nil
}

// ExportFile writes a snapshot of the region into the file at path.
func ExportFile(d flash.Device, offset, length uint32, path string, codec Codec) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := Export(d, offset, length, file, codec); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ImportFile restores the region from the snapshot file at path.
func ImportFile(d flash.Device, offset, length uint32, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()
	return Import(d, offset, length, file)
}

// decode verifies a snapshot blob and returns the decompressed region image.
func decode(blob []byte) ([]byte, error) {
	if len(blob) < HeaderSize+TrailerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(blob))
	}
	if binary.LittleEndian.Uint64(blob[0:8]) != Magic {
		return nil, ErrBadMagic
	}
	if version := binary.LittleEndian.Uint32(blob[8:12]); version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	codec := Codec(blob[12])
	origLen := binary.LittleEndian.Uint32(blob[16:20])
	compLen := binary.LittleEndian.Uint32(blob[20:24])

	if uint64(len(blob)) != uint64(HeaderSize)+uint64(compLen)+TrailerSize {
		return nil, fmt.Errorf("%w: have %d bytes, header claims %d payload", ErrTruncated, len(blob), compLen)
	}

	body := blob[:HeaderSize+compLen]
	want := binary.LittleEndian.Uint64(blob[HeaderSize+compLen:])
	if got := xxhash.Sum64(body); got != want {
		return nil, fmt.Errorf("%w: have %d, calculated %d", ErrChecksumMismatch, want, got)
	}

	image, err := decompress(blob[HeaderSize:HeaderSize+compLen], codec)
	if err != nil {
		return nil, err
	}
	if uint32(len(image)) != origLen {
		return nil, fmt.Errorf("%w: decompressed %d bytes, header claims %d", ErrTruncated, len(image), origLen)
	}
	return image, nil
}

func compress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil

	case CodecZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		out := encoder.EncodeAll(data, nil)
		encoder.Close()
		return out, nil

	case CodecSnappy:
		return snappy.Encode(nil, data), nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}

func decompress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil

	case CodecZstd:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer decoder.Close()
		out, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid zstd payload: %w", err)
		}
		return out, nil

	case CodecSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("invalid snappy payload: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}
