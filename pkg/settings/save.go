package settings

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nvstore/nvstore/pkg/stats"
)

// Save serializes the full entry table and rewrites the region. The backing
// medium is block-erasable, not byte-overwritable, so the whole region is
// erased and then programmed in one pass. With maskInterrupts set the
// erase+program pair runs inside the device critical section so it appears
// atomic to interrupt-driven consumers of the same region.
func (s *Store) Save(maskInterrupts bool) error {
	start := time.Now()
	defer func() {
		s.stats.TrackOperationWithLatency(stats.OpSave, uint64(time.Since(start).Nanoseconds()))
	}()

	if s.entries == nil {
		return ErrStoreClosed
	}

	needed := uint64(s.count) * EntrySize
	if needed > uint64(s.regionSize) {
		s.stats.TrackError("capacity_exceeded")
		return fmt.Errorf("%w: %d entries need %d bytes, region is %d",
			ErrCapacityExceeded, s.count, needed, s.regionSize)
	}

	ctx, span := s.tel.StartSpan(context.Background(), "settings.save",
		attribute.Int("entries", s.count),
		attribute.Bool("mask_interrupts", maskInterrupts))
	defer span.End()

	// The full region is written, live entries first and the unused capacity
	// zeroed, so the next scan terminates at the first blank key.
	buf := make([]byte, s.regionSize)
	for i := 0; i < s.count; i++ {
		encodeRecord(buf[i*EntrySize:(i+1)*EntrySize], s.entries[i])
	}

	s.logger.Debug("writing %d entries (%d bytes) to flash at 0x%X", s.count, needed, s.regionOffset)

	if maskInterrupts {
		token := s.device.EnterCriticalSection()
		defer func() {
			if err := s.device.LeaveCriticalSection(token); err != nil {
				s.logger.Error("failed to leave critical section: %v", err)
			}
		}()
	}

	if err := s.device.EraseRegion(s.regionOffset, s.regionSize); err != nil {
		return fmt.Errorf("failed to erase region: %w", err)
	}
	if err := s.device.ProgramRegion(s.regionOffset, buf); err != nil {
		return fmt.Errorf("failed to program region: %w", err)
	}

	s.stats.TrackSave()
	s.stats.TrackBytes(true, uint64(s.regionSize))
	s.tel.RecordCounter(ctx, "settings.save.bytes", int64(s.regionSize))
	return nil
}

// Erase wipes the region and resets the in-memory state. Afterwards the Store
// is inert: only a fresh Open makes it usable again. Erasing an already
// erased Store is a no-op.
func (s *Store) Erase() error {
	start := time.Now()
	defer func() {
		s.stats.TrackOperationWithLatency(stats.OpErase, uint64(time.Since(start).Nanoseconds()))
	}()

	if s.entries == nil {
		s.logger.Debug("erase on inert store, nothing to do")
		return nil
	}

	ctx, span := s.tel.StartSpan(context.Background(), "settings.erase",
		attribute.Int("region_size", int(s.regionSize)))
	defer span.End()

	token := s.device.EnterCriticalSection()
	err := s.device.EraseRegion(s.regionOffset, s.regionSize)
	if leaveErr := s.device.LeaveCriticalSection(token); leaveErr != nil {
		s.logger.Error("failed to leave critical section: %v", leaveErr)
	}
	if err != nil {
		return fmt.Errorf("failed to erase region: %w", err)
	}

	s.entries = nil
	s.count = 0
	s.stats.TrackErase()
	s.stats.TrackEntryCount(0)
	s.tel.RecordCounter(ctx, "settings.erase.count", 1)
	s.logger.Info("settings region erased")
	return nil
}
