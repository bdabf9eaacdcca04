package settings

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvstore/nvstore/pkg/stats"
)

// Dump renders every live entry as "key (TYPE): value", one per line, into w.
// With a nil writer the rendering goes to the store's logger instead. Purely
// read-only.
func (s *Store) Dump(w io.Writer) error {
	s.stats.TrackOperation(stats.OpDump)

	if s.entries == nil {
		return ErrStoreClosed
	}

	if w == nil {
		for i := 0; i < s.count; i++ {
			e := s.entries[i]
			s.logger.Info("%s (%s): %s", e.Key, e.Type, e.Value)
		}
		return nil
	}

	var sb strings.Builder
	for i := 0; i < s.count; i++ {
		e := s.entries[i]
		fmt.Fprintf(&sb, "%s (%s): %s\n", e.Key, e.Type, e.Value)
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return nil
}
