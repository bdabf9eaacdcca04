package flash

import (
	"fmt"
	"os"
	"sync"
)

// FileDevice backs a Device with a flash image file on the host filesystem,
// the usual shape of a firmware dump or a region extracted from one. The file
// is created (fully erased) if it does not exist and extended with erased
// bytes if it is shorter than the declared device size.
type FileDevice struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	size      uint32
	blockSize uint32
	syncWrite bool
	closed    bool
	cs        critSection
}

// FileOption configures a FileDevice
type FileOption func(*FileDevice)

// WithFileBlockSize overrides the erase-block size
func WithFileBlockSize(blockSize uint32) FileOption {
	return func(d *FileDevice) {
		d.blockSize = blockSize
	}
}

// WithSyncWrites makes every erase and program fsync the image file before
// returning, trading speed for durability of the image.
func WithSyncWrites(sync bool) FileOption {
	return func(d *FileDevice) {
		d.syncWrite = sync
	}
}

// OpenFileDevice opens (or creates) the image file at path as a device of the
// given size. The size must be a whole number of erase blocks and at least as
// large as the existing file.
func OpenFileDevice(path string, size uint32, options ...FileOption) (*FileDevice, error) {
	d := &FileDevice{
		path:      path,
		size:      size,
		blockSize: DefaultBlockSize,
	}
	for _, option := range options {
		option(d)
	}

	if d.blockSize == 0 || size == 0 || size%d.blockSize != 0 {
		return nil, fmt.Errorf("%w: size %d block %d", ErrUnalignedRange, size, d.blockSize)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat flash image %s: %w", path, err)
	}
	if info.Size() > int64(size) {
		file.Close()
		return nil, fmt.Errorf("%w: image %s is %d bytes, device size %d",
			ErrOutOfRange, path, info.Size(), size)
	}

	// Pad a new or short image out to the device size with erased bytes.
	if info.Size() < int64(size) {
		pad := make([]byte, int64(size)-info.Size())
		for i := range pad {
			pad[i] = ErasedByte
		}
		if _, err := file.WriteAt(pad, info.Size()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to pad flash image %s: %w", path, err)
		}
	}

	d.file = file
	return d, nil
}

// Path returns the backing image file path
func (d *FileDevice) Path() string {
	return d.path
}

// BlockSize returns the erase-block size in bytes
func (d *FileDevice) BlockSize() uint32 {
	return d.blockSize
}

// Size returns the total device capacity in bytes
func (d *FileDevice) Size() uint32 {
	return d.size
}

// Read copies len(p) bytes starting at offset into p
func (d *FileDevice) Read(offset uint32, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if err := checkRange(offset, uint32(len(p)), d.size); err != nil {
		return err
	}
	if _, err := d.file.ReadAt(p, int64(offset)); err != nil {
		return fmt.Errorf("failed to read flash image at %d: %w", offset, err)
	}
	return nil
}

// EraseRegion resets the block-aligned range to ErasedByte
func (d *FileDevice) EraseRegion(offset, length uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if err := checkBlockRange(offset, length, d.size, d.blockSize); err != nil {
		return err
	}

	erased := make([]byte, length)
	for i := range erased {
		erased[i] = ErasedByte
	}
	if _, err := d.file.WriteAt(erased, int64(offset)); err != nil {
		return fmt.Errorf("failed to erase flash image at %d: %w", offset, err)
	}
	return d.maybeSync()
}

// ProgramRegion programs p at the block-aligned offset. Only clears bits.
func (d *FileDevice) ProgramRegion(offset uint32, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if err := checkBlockRange(offset, uint32(len(p)), d.size, d.blockSize); err != nil {
		return err
	}

	existing := make([]byte, len(p))
	if _, err := d.file.ReadAt(existing, int64(offset)); err != nil {
		return fmt.Errorf("failed to read flash image at %d: %w", offset, err)
	}
	programInto(existing, p)
	if _, err := d.file.WriteAt(existing, int64(offset)); err != nil {
		return fmt.Errorf("failed to program flash image at %d: %w", offset, err)
	}
	return d.maybeSync()
}

func (d *FileDevice) maybeSync() error {
	if !d.syncWrite {
		return nil
	}
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync flash image: %w", err)
	}
	return nil
}

// EnterCriticalSection suspends asynchronous access to the device
func (d *FileDevice) EnterCriticalSection() Token {
	return d.cs.enter()
}

// LeaveCriticalSection resumes asynchronous access to the device
func (d *FileDevice) LeaveCriticalSection(t Token) error {
	return d.cs.leave(t)
}

// Close syncs and closes the backing image file
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.file.Sync(); err != nil {
		d.file.Close()
		return fmt.Errorf("failed to sync flash image: %w", err)
	}
	return d.file.Close()
}

// Ensure FileDevice implements the Device interface
var _ Device = (*FileDevice)(nil)
