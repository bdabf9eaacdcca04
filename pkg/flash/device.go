// Package flash models the block-erasable persistent memory that backs a
// settings region. Devices are byte-readable but can only be written by
// erasing whole blocks to 0xFF and then programming, which clears bits and
// never sets them. This mirrors NOR flash parts such as the one behind the
// RP2040 XIP window.
package flash

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// ErasedByte is the value every byte of an erased block reads back as.
	ErasedByte byte = 0xFF

	// DefaultBlockSize is the erase-block size used unless a device is
	// configured otherwise.
	DefaultBlockSize uint32 = 4096
)

var (
	// ErrOutOfRange is returned when an access falls outside the device bounds
	ErrOutOfRange = errors.New("range outside device bounds")
	// ErrUnalignedRange is returned when an erase or program range is not
	// aligned to the erase-block size
	ErrUnalignedRange = errors.New("range not aligned to erase block")
	// ErrStaleToken is returned when a critical section is left with a token
	// that does not match the most recent entry
	ErrStaleToken = errors.New("stale critical section token")
	// ErrDeviceClosed is returned when operations are performed on a closed device
	ErrDeviceClosed = errors.New("device is closed")
)

// Token identifies one entry into a device's critical section. It plays the
// role of the saved interrupt state on real hardware.
type Token uint32

// Device is the physical-storage collaborator consumed by the settings store.
type Device interface {
	// BlockSize returns the erase-block size in bytes
	BlockSize() uint32

	// Size returns the total device capacity in bytes
	Size() uint32

	// Read copies len(p) bytes starting at offset into p. Reads have no
	// alignment requirement.
	Read(offset uint32, p []byte) error

	// EraseRegion resets [offset, offset+length) to ErasedByte. The range
	// must be block-aligned and a whole number of blocks.
	EraseRegion(offset, length uint32) error

	// ProgramRegion writes p starting at offset. The range must be
	// block-aligned and a whole number of blocks. Programming can only clear
	// bits; callers erase first to store arbitrary data.
	ProgramRegion(offset uint32, p []byte) error

	// EnterCriticalSection suspends asynchronous access to the device and
	// returns a token for the matching leave call.
	EnterCriticalSection() Token

	// LeaveCriticalSection resumes asynchronous access. The token must be the
	// one returned by the most recent enter.
	LeaveCriticalSection(t Token) error

	// Close releases any resources held by the device
	Close() error
}

// critSection implements the enter/leave pair shared by the device
// implementations. Entries are serialized by a mutex and numbered so an
// unbalanced leave is detectable.
type critSection struct {
	mu      sync.Mutex
	counter uint32
	current Token
}

func (cs *critSection) enter() Token {
	cs.mu.Lock()
	cs.counter++
	cs.current = Token(cs.counter)
	return cs.current
}

func (cs *critSection) leave(t Token) error {
	if t != cs.current {
		// Do not unlock on a stale token; the holder still owns the section.
		return fmt.Errorf("%w: got %d, want %d", ErrStaleToken, t, cs.current)
	}
	cs.mu.Unlock()
	return nil
}

// checkRange validates that [offset, offset+length) lies within a device of
// the given size.
func checkRange(offset, length, size uint32) error {
	end := uint64(offset) + uint64(length)
	if end > uint64(size) {
		return fmt.Errorf("%w: offset %d length %d exceeds size %d", ErrOutOfRange, offset, length, size)
	}
	return nil
}

// checkBlockRange validates a block-aligned, block-sized range.
func checkBlockRange(offset, length, size, blockSize uint32) error {
	if err := checkRange(offset, length, size); err != nil {
		return err
	}
	if offset%blockSize != 0 || length%blockSize != 0 {
		return fmt.Errorf("%w: offset %d length %d block %d", ErrUnalignedRange, offset, length, blockSize)
	}
	return nil
}

// programInto applies NOR programming semantics: each destination byte keeps
// only the bits that are clear in both the existing and the new value.
func programInto(dst, src []byte) {
	for i := range src {
		dst[i] &= src[i]
	}
}
