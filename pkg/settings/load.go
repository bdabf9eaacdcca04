package settings

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nvstore/nvstore/pkg/stats"
)

// loadMerge reconciles the augmented default table against the device region.
// The defaults are copied in first as the fallback result; if the region's
// header code matches, validly-scanned records overlay the matching defaults
// in place. A header mismatch or a malformed record are not errors, they are
// the "no prior data" and "end of valid data" signals.
func (s *Store) loadMerge(augmented []Entry) error {
	startTime := s.stats.StartLoad()
	ctx, span := s.tel.StartSpan(context.Background(), "settings.load",
		attribute.Int("defaults", len(augmented)-1))
	defer span.End()

	s.entries = make([]Entry, s.capacity)
	s.count = copy(s.entries, augmented)

	merged, headerMatched, err := s.scanRegion(len(augmented))
	if err != nil {
		return err
	}

	s.stats.TrackOperation(stats.OpLoad)
	s.stats.FinishLoad(startTime, uint64(merged), uint64(s.count-merged), headerMatched)
	s.tel.RecordCounter(ctx, "settings.load.records_merged", int64(merged),
		attribute.Bool("header_matched", headerMatched))
	return nil
}

// scanRegion reads the stored header code and, when it matches, scans up to
// maxRecords records from the start of the region, overlaying each valid
// record onto the in-memory entry with the same key. Returns the number of
// records merged.
func (s *Store) scanRegion(maxRecords int) (int, bool, error) {
	stored, err := s.readHeaderCode()
	if err != nil {
		return 0, false, err
	}
	if stored != s.headerCode {
		// Region is blank, erased, or written with an incompatible schema.
		s.logger.Info("header code %d != %d, no settings in flash, using defaults", stored, s.headerCode)
		return 0, false, nil
	}
	s.logger.Debug("header code %d found in flash, loading existing values", stored)

	record := make([]byte, EntrySize)
	merged := 0
	for i := 0; i < maxRecords; i++ {
		offset := s.regionOffset + uint32(i)*EntrySize
		if err := s.device.Read(offset, record); err != nil {
			return merged, true, fmt.Errorf("failed to read record %d: %w", i, err)
		}
		s.stats.TrackBytes(false, EntrySize)

		entry := decodeRecord(record)
		if entry.Key == "" {
			break
		}
		if err := CheckKeyFormat(entry.Key); err != nil {
			s.logger.Debug("record %d: %v, end of entries in flash", i, err)
			break
		}
		if err := CheckTypeFormat(entry.Type); err != nil {
			s.logger.Debug("record %d (%s): %v, end of entries in flash", i, entry.Key, err)
			break
		}

		// Records whose key has no matching default belong to an older
		// schema and are dropped.
		for j := 0; j < s.count; j++ {
			if s.entries[j].Key == entry.Key {
				s.entries[j].Type = entry.Type
				s.entries[j].Value = entry.Value
				merged++
				break
			}
		}
	}

	return merged, true, nil
}

// readHeaderCode reads the decimal header text from the value field of the
// first record and parses it. Unparsable text (an erased region reads as
// 0xFF bytes) comes back as code 0; the caller treats any mismatch as "no
// prior data".
func (s *Store) readHeaderCode() (uint32, error) {
	value := make([]byte, MaxValueLength)
	if err := s.device.Read(s.regionOffset+MaxKeyLength+typeTagSize, value); err != nil {
		return 0, fmt.Errorf("failed to read region header: %w", err)
	}
	s.stats.TrackBytes(false, MaxValueLength)

	text := cString(value)
	code, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, nil
	}
	return uint32(code), nil
}
