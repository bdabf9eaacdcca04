package settings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nvstore/nvstore/pkg/common/log"
	"github.com/nvstore/nvstore/pkg/flash"
	"github.com/nvstore/nvstore/pkg/stats"
	"github.com/nvstore/nvstore/pkg/telemetry"
)

// Options configures a Store at open time.
type Options struct {
	// RegionOffset is the byte offset of the settings region on the device.
	// Must be a multiple of the device erase-block size.
	RegionOffset uint32

	// RegionSize is the region length in bytes. Must be a multiple of the
	// device erase-block size.
	RegionSize uint32

	// Magic is the 16-bit magic number combined with Version into the header
	// code stored in the sentinel record.
	Magic uint16

	// Version is the 16-bit schema version.
	Version uint16

	// Defaults is the compiled-in schema: the ordered default entry list.
	// The list ends at the first entry with an empty key. Entries with a
	// malformed key or type are skipped with a warning.
	Defaults []Entry

	// Logger receives operational logging. Defaults to the shared standard
	// logger.
	Logger log.Logger

	// Stats receives operation statistics. Defaults to a fresh collector.
	Stats stats.Collector

	// Telemetry receives spans and counters for load/save/erase. Defaults to
	// the no-op implementation.
	Telemetry telemetry.Telemetry
}

// Store owns one settings region: the in-memory entry table plus the region
// geometry. A Store is the unit of lifecycle (open, mutate, save, erase,
// close) and is not safe for concurrent use; multiple Stores over disjoint
// regions are independent.
type Store struct {
	device flash.Device
	logger log.Logger
	stats  stats.Collector
	tel    telemetry.Telemetry

	regionOffset uint32
	regionSize   uint32
	headerCode   uint32
	capacity     int

	entries []Entry
	count   int
}

// Open validates the region geometry, builds the augmented default table
// (sentinel first), reconciles it against whatever the device region holds
// and returns the populated Store.
//
// Geometry violations (ErrMisalignedOffset, ErrMisalignedSize,
// ErrTooManyEntries) signal a configuration defect; callers should treat them
// as fatal rather than retry.
func Open(device flash.Device, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	logger = logger.With("component", "settings")

	collector := opts.Stats
	if collector == nil {
		collector = stats.NewAtomicCollector()
	}

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NewNoop()
	}

	blockSize := device.BlockSize()
	if opts.RegionSize == 0 || opts.RegionSize%blockSize != 0 {
		return nil, fmt.Errorf("%w: size %d, block %d", ErrMisalignedSize, opts.RegionSize, blockSize)
	}
	if opts.RegionOffset%blockSize != 0 {
		return nil, fmt.Errorf("%w: offset %d, block %d", ErrMisalignedOffset, opts.RegionOffset, blockSize)
	}
	if uint64(opts.RegionOffset)+uint64(opts.RegionSize) > uint64(device.Size()) {
		return nil, fmt.Errorf("%w: offset %d size %d, device %d",
			flash.ErrOutOfRange, opts.RegionOffset, opts.RegionSize, device.Size())
	}

	capacity := int(opts.RegionSize / EntrySize)

	s := &Store{
		device:       device,
		logger:       logger,
		stats:        collector,
		tel:          tel,
		regionOffset: opts.RegionOffset,
		regionSize:   opts.RegionSize,
		headerCode:   uint32(opts.Magic)<<16 | uint32(opts.Version),
		capacity:     capacity,
	}

	// The sentinel carries the header code as decimal text and is always the
	// first record, physically and logically.
	sentinel := Entry{
		Key:   MagicVersionKey,
		Type:  TypeInt,
		Value: strconv.FormatUint(uint64(s.headerCode), 10),
	}

	augmented := make([]Entry, 0, len(opts.Defaults)+1)
	augmented = append(augmented, sentinel)
	for _, def := range opts.Defaults {
		if def.Key == "" {
			// End of the default list.
			break
		}
		if err := CheckTypeFormat(def.Type); err != nil {
			logger.Warn("skipping default entry %s: %v", def.Key, err)
			continue
		}
		if err := CheckKeyFormat(def.Key); err != nil {
			logger.Warn("skipping default entry %s: %v", def.Key, err)
			continue
		}
		if len(def.Key) > MaxKeyLength {
			logger.Warn("key %s is %d characters, capacity is %d", def.Key, len(def.Key), MaxKeyLength)
		}
		augmented = append(augmented, Entry{
			Key:   def.Key,
			Type:  def.Type,
			Value: clampValue(def.Value),
		})
	}

	if len(augmented) > capacity {
		return nil, fmt.Errorf("%w: %d defaults plus sentinel, capacity %d",
			ErrTooManyEntries, len(augmented)-1, capacity)
	}

	if err := s.loadMerge(augmented); err != nil {
		return nil, err
	}

	collector.TrackEntryCount(uint64(s.count))
	logger.Info("settings loaded: %d entries, region offset=0x%X size=%d", s.count, s.regionOffset, s.regionSize)
	return s, nil
}

// Count returns the number of live entries, including the sentinel.
func (s *Store) Count() int {
	return s.count
}

// Capacity returns the maximum number of records the region holds.
func (s *Store) Capacity() int {
	return s.capacity
}

// Entries returns a copy of the live entry table in order, sentinel first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, s.count)
	copy(out, s.entries[:s.count])
	return out
}

// Stats exposes the store's statistics provider.
func (s *Store) Stats() stats.Provider {
	return s.stats
}

// Find returns the live entry for key. Mutations through the returned pointer
// are reflected in later saves. The sentinel key is reserved and reported as
// not found.
func (s *Store) Find(key string) (*Entry, error) {
	start := time.Now()
	defer func() {
		s.stats.TrackOperationWithLatency(stats.OpFind, uint64(time.Since(start).Nanoseconds()))
	}()

	if s.entries == nil {
		return nil, ErrStoreClosed
	}
	if err := CheckKeyFormat(key); err != nil {
		s.stats.TrackError("invalid_key")
		return nil, err
	}
	if key == MagicVersionKey {
		s.stats.TrackError("key_not_found")
		return nil, fmt.Errorf("%w: %s is reserved", ErrKeyNotFound, key)
	}
	for i := 0; i < s.count; i++ {
		if s.entries[i].Key == key {
			return &s.entries[i], nil
		}
	}
	s.stats.TrackError("key_not_found")
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// PutBool updates a boolean entry. The stored text is "true" or "false".
func (s *Store) PutBool(key string, value bool) error {
	text := "false"
	if value {
		text = "true"
	}
	return s.update(key, TypeBool, text)
}

// PutString updates a string entry, truncating to the value capacity.
func (s *Store) PutString(key string, value string) error {
	return s.update(key, TypeString, clampValue(value))
}

// PutInt updates an integer entry with its decimal text form.
func (s *Store) PutInt(key string, value int) error {
	return s.update(key, TypeInt, strconv.Itoa(value))
}

// update is the shared mutation path: validate, locate by exact key, then
// overwrite type and value in place. Entries are never created here; the
// schema is fixed by the defaults at open time.
func (s *Store) update(key string, dataType DataType, value string) error {
	start := time.Now()
	defer func() {
		s.stats.TrackOperationWithLatency(stats.OpPut, uint64(time.Since(start).Nanoseconds()))
	}()

	if s.entries == nil {
		return ErrStoreClosed
	}
	if err := CheckKeyFormat(key); err != nil {
		s.stats.TrackError("invalid_key")
		return err
	}
	if err := CheckTypeFormat(dataType); err != nil {
		s.stats.TrackError("invalid_type")
		return err
	}
	if key == MagicVersionKey {
		s.stats.TrackError("key_not_found")
		return fmt.Errorf("%w: %s is reserved", ErrKeyNotFound, key)
	}

	for i := 0; i < s.count; i++ {
		if s.entries[i].Key == key {
			s.entries[i].Type = dataType
			s.entries[i].Value = value
			s.logger.Debug("updated %s (%s) = %q", key, dataType, value)
			return nil
		}
	}

	s.stats.TrackError("key_not_found")
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// Close releases the entry table and resets the geometry. Physical storage is
// untouched; the Store must be reopened before further use.
func (s *Store) Close() error {
	s.entries = nil
	s.count = 0
	s.regionOffset = 0
	s.regionSize = 0
	s.capacity = 0
	return nil
}
