// Package profile loads device profiles: declarative descriptions of a
// flash image, its settings region geometry, and the default entry set a
// device ships with. Profiles are YAML files loaded through viper so
// every field can also be overridden from the environment.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"github.com/nvstore/nvstore/pkg/flash"
	"github.com/nvstore/nvstore/pkg/settings"
)

var (
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrProfileNotFound = errors.New("profile not found")
)

// EntrySpec is one default setting declared by a profile.
type EntrySpec struct {
	Key   string `mapstructure:"key"`
	Type  string `mapstructure:"type"`
	Value string `mapstructure:"value"`
}

// Profile describes a device image and its settings region.
type Profile struct {
	// Image is the path of the flash image file
	Image string `mapstructure:"image"`
	// BlockSize is the erase block size in bytes
	BlockSize uint32 `mapstructure:"block_size"`
	// ImageSize is the total flash size in bytes
	ImageSize uint32 `mapstructure:"image_size"`

	// Region geometry
	RegionOffset uint32 `mapstructure:"region_offset"`
	RegionSize   uint32 `mapstructure:"region_size"`

	// Header identity
	Magic   uint16 `mapstructure:"magic"`
	Version uint16 `mapstructure:"version"`

	// Entries are the device's default settings
	Entries []EntrySpec `mapstructure:"entries"`
}

// NewDefaultProfile creates a Profile with recommended default values.
// Image and Entries are left for the caller to fill in.
func NewDefaultProfile() *Profile {
	return &Profile{
		BlockSize:    flash.DefaultBlockSize,
		ImageSize:    64 * 1024,
		RegionOffset: 0,
		RegionSize:   flash.DefaultBlockSize,
		Magic:        0x1234,
		Version:      0x0001,
	}
}

// Load reads a profile from the YAML file at path. NVSTORE_* environment
// variables override file values field by field, e.g. NVSTORE_REGION_SIZE.
func Load(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NVSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	p := NewDefaultProfile()
	// Registering defaults makes the scalar keys visible to AutomaticEnv,
	// which otherwise ignores keys absent from the file.
	v.SetDefault("image", p.Image)
	v.SetDefault("block_size", p.BlockSize)
	v.SetDefault("image_size", p.ImageSize)
	v.SetDefault("region_offset", p.RegionOffset)
	v.SetDefault("region_size", p.RegionSize)
	v.SetDefault("magic", p.Magic)
	v.SetDefault("version", p.Version)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := v.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the profile is internally consistent
func (p *Profile) Validate() error {
	if p.Image == "" {
		return fmt.Errorf("%w: image path not specified", ErrInvalidProfile)
	}
	if p.BlockSize == 0 {
		return fmt.Errorf("%w: block size must be positive", ErrInvalidProfile)
	}
	if p.ImageSize == 0 || p.ImageSize%p.BlockSize != 0 {
		return fmt.Errorf("%w: image size %d is not a multiple of block size %d", ErrInvalidProfile, p.ImageSize, p.BlockSize)
	}
	if p.RegionSize == 0 || p.RegionSize%p.BlockSize != 0 {
		return fmt.Errorf("%w: region size %d is not a multiple of block size %d", ErrInvalidProfile, p.RegionSize, p.BlockSize)
	}
	if p.RegionOffset%p.BlockSize != 0 {
		return fmt.Errorf("%w: region offset %d is not block aligned", ErrInvalidProfile, p.RegionOffset)
	}
	if uint64(p.RegionOffset)+uint64(p.RegionSize) > uint64(p.ImageSize) {
		return fmt.Errorf("%w: region [%d, %d) exceeds image size %d", ErrInvalidProfile, p.RegionOffset, p.RegionOffset+p.RegionSize, p.ImageSize)
	}

	for i, e := range p.Entries {
		if err := settings.CheckKeyFormat(e.Key); err != nil {
			return fmt.Errorf("%w: entry %d key %q: %v", ErrInvalidProfile, i, e.Key, err)
		}
		if _, err := parseType(e.Type); err != nil {
			return fmt.Errorf("%w: entry %d (%s): %v", ErrInvalidProfile, i, e.Key, err)
		}
	}
	return nil
}

// DefaultEntries converts the profile's entry specs to settings entries.
// The profile must have been validated first.
func (p *Profile) DefaultEntries() []settings.Entry {
	entries := make([]settings.Entry, 0, len(p.Entries))
	for _, e := range p.Entries {
		dt, err := parseType(e.Type)
		if err != nil {
			continue
		}
		entries = append(entries, settings.Entry{Key: e.Key, Type: dt, Value: e.Value})
	}
	return entries
}

// StoreOptions builds the settings options for this profile.
func (p *Profile) StoreOptions() settings.Options {
	return settings.Options{
		RegionOffset: p.RegionOffset,
		RegionSize:   p.RegionSize,
		Magic:        p.Magic,
		Version:      p.Version,
		Defaults:     p.DefaultEntries(),
	}
}

// OpenDevice opens the profile's flash image file.
func (p *Profile) OpenDevice() (flash.Device, error) {
	return flash.OpenFileDevice(p.Image, p.ImageSize, flash.WithFileBlockSize(p.BlockSize))
}

func parseType(name string) (settings.DataType, error) {
	switch strings.ToLower(name) {
	case "int":
		return settings.TypeInt, nil
	case "string":
		return settings.TypeString, nil
	case "bool":
		return settings.TypeBool, nil
	default:
		return 0, fmt.Errorf("unknown type %q", name)
	}
}
