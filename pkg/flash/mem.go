package flash

import (
	"fmt"
	"sync"
)

// MemDevice is a RAM-backed Device used for tests and host-side emulation.
// A freshly created device reads back fully erased.
type MemDevice struct {
	mu        sync.RWMutex
	data      []byte
	blockSize uint32
	closed    bool
	cs        critSection
}

// MemOption configures a MemDevice
type MemOption func(*MemDevice)

// WithMemBlockSize overrides the erase-block size
func WithMemBlockSize(blockSize uint32) MemOption {
	return func(d *MemDevice) {
		d.blockSize = blockSize
	}
}

// NewMemDevice creates a memory-backed device of the given size. The size
// must be a whole number of erase blocks.
func NewMemDevice(size uint32, options ...MemOption) (*MemDevice, error) {
	d := &MemDevice{
		blockSize: DefaultBlockSize,
	}
	for _, option := range options {
		option(d)
	}

	if d.blockSize == 0 || size == 0 || size%d.blockSize != 0 {
		return nil, fmt.Errorf("%w: size %d block %d", ErrUnalignedRange, size, d.blockSize)
	}

	d.data = make([]byte, size)
	for i := range d.data {
		d.data[i] = ErasedByte
	}
	return d, nil
}

// BlockSize returns the erase-block size in bytes
func (d *MemDevice) BlockSize() uint32 {
	return d.blockSize
}

// Size returns the total device capacity in bytes
func (d *MemDevice) Size() uint32 {
	return uint32(len(d.data))
}

// Read copies len(p) bytes starting at offset into p
func (d *MemDevice) Read(offset uint32, p []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if err := checkRange(offset, uint32(len(p)), uint32(len(d.data))); err != nil {
		return err
	}
	copy(p, d.data[offset:int(offset)+len(p)])
	return nil
}

// EraseRegion resets the block-aligned range to ErasedByte
func (d *MemDevice) EraseRegion(offset, length uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if err := checkBlockRange(offset, length, uint32(len(d.data)), d.blockSize); err != nil {
		return err
	}
	for i := offset; i < offset+length; i++ {
		d.data[i] = ErasedByte
	}
	return nil
}

// ProgramRegion programs p at the block-aligned offset. Only clears bits.
func (d *MemDevice) ProgramRegion(offset uint32, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if err := checkBlockRange(offset, uint32(len(p)), uint32(len(d.data)), d.blockSize); err != nil {
		return err
	}
	programInto(d.data[offset:int(offset)+len(p)], p)
	return nil
}

// EnterCriticalSection suspends asynchronous access to the device
func (d *MemDevice) EnterCriticalSection() Token {
	return d.cs.enter()
}

// LeaveCriticalSection resumes asynchronous access to the device
func (d *MemDevice) LeaveCriticalSection(t Token) error {
	return d.cs.leave(t)
}

// Close marks the device as closed; later accesses fail with ErrDeviceClosed
func (d *MemDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Ensure MemDevice implements the Device interface
var _ Device = (*MemDevice)(nil)
