package flash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDeviceStartsErased(t *testing.T) {
	dev, err := NewMemDevice(2 * DefaultBlockSize)
	require.NoError(t, err)

	buf := make([]byte, 64)
	require.NoError(t, dev.Read(0, buf))
	for i, b := range buf {
		require.Equalf(t, ErasedByte, b, "byte %d not erased", i)
	}
}

func TestMemDeviceRejectsUnalignedSize(t *testing.T) {
	_, err := NewMemDevice(DefaultBlockSize + 1)
	assert.ErrorIs(t, err, ErrUnalignedRange)

	_, err = NewMemDevice(0)
	assert.ErrorIs(t, err, ErrUnalignedRange)
}

func TestProgramClearsBitsOnly(t *testing.T) {
	dev, err := NewMemDevice(DefaultBlockSize)
	require.NoError(t, err)

	first := make([]byte, DefaultBlockSize)
	for i := range first {
		first[i] = 0xF0
	}
	require.NoError(t, dev.ProgramRegion(0, first))

	// Without an erase, a second program can only clear more bits.
	second := make([]byte, DefaultBlockSize)
	for i := range second {
		second[i] = 0x3C
	}
	require.NoError(t, dev.ProgramRegion(0, second))

	got := make([]byte, 4)
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, byte(0x30), got[0], "program must AND into existing data")

	// After an erase the full value programs cleanly.
	require.NoError(t, dev.EraseRegion(0, DefaultBlockSize))
	require.NoError(t, dev.ProgramRegion(0, second))
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, byte(0x3C), got[0])
}

func TestEraseProgramAlignment(t *testing.T) {
	dev, err := NewMemDevice(4 * DefaultBlockSize)
	require.NoError(t, err)

	assert.ErrorIs(t, dev.EraseRegion(1, DefaultBlockSize), ErrUnalignedRange)
	assert.ErrorIs(t, dev.EraseRegion(0, DefaultBlockSize-1), ErrUnalignedRange)
	assert.ErrorIs(t, dev.ProgramRegion(2, make([]byte, DefaultBlockSize)), ErrUnalignedRange)
	assert.ErrorIs(t, dev.ProgramRegion(0, make([]byte, 100)), ErrUnalignedRange)
}

func TestRangeChecks(t *testing.T) {
	dev, err := NewMemDevice(DefaultBlockSize)
	require.NoError(t, err)

	assert.ErrorIs(t, dev.Read(DefaultBlockSize-1, make([]byte, 2)), ErrOutOfRange)
	assert.ErrorIs(t, dev.EraseRegion(DefaultBlockSize, DefaultBlockSize), ErrOutOfRange)
	assert.ErrorIs(t, dev.ProgramRegion(DefaultBlockSize, make([]byte, DefaultBlockSize)), ErrOutOfRange)
}

func TestCriticalSectionTokens(t *testing.T) {
	dev, err := NewMemDevice(DefaultBlockSize)
	require.NoError(t, err)

	tok := dev.EnterCriticalSection()
	assert.ErrorIs(t, dev.LeaveCriticalSection(tok+1), ErrStaleToken)
	require.NoError(t, dev.LeaveCriticalSection(tok))

	tok2 := dev.EnterCriticalSection()
	assert.NotEqual(t, tok, tok2, "tokens must not repeat")
	require.NoError(t, dev.LeaveCriticalSection(tok2))
}

func TestClosedMemDevice(t *testing.T) {
	dev, err := NewMemDevice(DefaultBlockSize)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	assert.ErrorIs(t, dev.Read(0, make([]byte, 1)), ErrDeviceClosed)
	assert.ErrorIs(t, dev.EraseRegion(0, DefaultBlockSize), ErrDeviceClosed)
	assert.ErrorIs(t, dev.ProgramRegion(0, make([]byte, DefaultBlockSize)), ErrDeviceClosed)
}

func TestFileDeviceCreatesErasedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	dev, err := OpenFileDevice(path, 2*DefaultBlockSize)
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, 128)
	require.NoError(t, dev.Read(DefaultBlockSize, buf))
	for _, b := range buf {
		require.Equal(t, ErasedByte, b)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*DefaultBlockSize), info.Size())
}

func TestFileDevicePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	dev, err := OpenFileDevice(path, DefaultBlockSize)
	require.NoError(t, err)

	payload := make([]byte, DefaultBlockSize)
	copy(payload, []byte("SETTINGS"))
	for i := 8; i < len(payload); i++ {
		payload[i] = ErasedByte
	}
	require.NoError(t, dev.EraseRegion(0, DefaultBlockSize))
	require.NoError(t, dev.ProgramRegion(0, payload))
	require.NoError(t, dev.Close())

	dev2, err := OpenFileDevice(path, DefaultBlockSize)
	require.NoError(t, err)
	defer dev2.Close()

	got := make([]byte, 8)
	require.NoError(t, dev2.Read(0, got))
	assert.Equal(t, []byte("SETTINGS"), got)
}

func TestFileDeviceRejectsOversizedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 2*DefaultBlockSize), 0644))

	_, err := OpenFileDevice(path, DefaultBlockSize)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFileDeviceNORSemantics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	dev, err := OpenFileDevice(path, DefaultBlockSize, WithSyncWrites(true))
	require.NoError(t, err)
	defer dev.Close()

	first := make([]byte, DefaultBlockSize)
	for i := range first {
		first[i] = 0x0F
	}
	require.NoError(t, dev.ProgramRegion(0, first))

	second := make([]byte, DefaultBlockSize)
	for i := range second {
		second[i] = 0xF1
	}
	require.NoError(t, dev.ProgramRegion(0, second))

	got := make([]byte, 1)
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, byte(0x01), got[0])
}
