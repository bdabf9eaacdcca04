package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvstore/nvstore/pkg/settings"
)

func writeProfile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeProfile(t, `
image: /tmp/flash.img
block_size: 4096
image_size: 65536
region_offset: 4096
region_size: 8192
magic: 0x1234
version: 0x0001
entries:
  - key: TEST1
    type: string
    value: TEST PARAM 1
  - key: TEST2
    type: bool
    value: "false"
  - key: RETRIES
    type: int
    value: "3"
`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/flash.img", p.Image)
	assert.Equal(t, uint32(4096), p.BlockSize)
	assert.Equal(t, uint32(65536), p.ImageSize)
	assert.Equal(t, uint32(4096), p.RegionOffset)
	assert.Equal(t, uint32(8192), p.RegionSize)
	assert.Equal(t, uint16(0x1234), p.Magic)
	assert.Equal(t, uint16(0x0001), p.Version)

	entries := p.DefaultEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, settings.Entry{Key: "TEST1", Type: settings.TypeString, Value: "TEST PARAM 1"}, entries[0])
	assert.Equal(t, settings.Entry{Key: "TEST2", Type: settings.TypeBool, Value: "false"}, entries[1])
	assert.Equal(t, settings.Entry{Key: "RETRIES", Type: settings.TypeInt, Value: "3"}, entries[2])
}

func TestLoadDefaults(t *testing.T) {
	path := writeProfile(t, "image: /tmp/flash.img\n")

	p, err := Load(path)
	require.NoError(t, err)

	// Everything else falls back to profile defaults.
	assert.Equal(t, uint32(4096), p.BlockSize)
	assert.Equal(t, uint32(65536), p.ImageSize)
	assert.Equal(t, uint32(0), p.RegionOffset)
	assert.Equal(t, uint32(4096), p.RegionSize)
	assert.Empty(t, p.Entries)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeProfile(t, "image: /tmp/flash.img\nregion_size: 4096\n")

	t.Setenv("NVSTORE_REGION_SIZE", "8192")
	t.Setenv("NVSTORE_IMAGE_SIZE", "16384")

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(8192), p.RegionSize)
	assert.Equal(t, uint32(16384), p.ImageSize)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestValidate(t *testing.T) {
	valid := func() *Profile {
		p := NewDefaultProfile()
		p.Image = "/tmp/flash.img"
		return p
	}

	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"missing image", func(p *Profile) { p.Image = "" }},
		{"zero block size", func(p *Profile) { p.BlockSize = 0 }},
		{"unaligned image size", func(p *Profile) { p.ImageSize = 5000 }},
		{"unaligned region size", func(p *Profile) { p.RegionSize = 100 }},
		{"unaligned region offset", func(p *Profile) { p.RegionOffset = 1 }},
		{"region past end of image", func(p *Profile) { p.RegionOffset = p.ImageSize }},
		{"bad entry key", func(p *Profile) {
			p.Entries = []EntrySpec{{Key: "lower", Type: "int", Value: "1"}}
		}},
		{"bad entry type", func(p *Profile) {
			p.Entries = []EntrySpec{{Key: "GOOD", Type: "float", Value: "1"}}
		}},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		p := valid()
		tt.mutate(p)
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile, tt.name)
	}
}

func TestStoreOptions(t *testing.T) {
	p := NewDefaultProfile()
	p.Image = "/tmp/flash.img"
	p.RegionOffset = 8192
	p.Entries = []EntrySpec{{Key: "TEST1", Type: "string", Value: "hello"}}

	opts := p.StoreOptions()
	assert.Equal(t, uint32(8192), opts.RegionOffset)
	assert.Equal(t, p.RegionSize, opts.RegionSize)
	assert.Equal(t, p.Magic, opts.Magic)
	assert.Equal(t, p.Version, opts.Version)
	require.Len(t, opts.Defaults, 1)
	assert.Equal(t, "TEST1", opts.Defaults[0].Key)
}
