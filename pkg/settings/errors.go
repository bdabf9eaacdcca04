package settings

import "errors"

// Recoverable operation errors. Callers match these with errors.Is.
var (
	// ErrInvalidKey is returned when a key is empty or contains characters
	// outside A-Z, 0-9 and underscore
	ErrInvalidKey = errors.New("invalid key format")
	// ErrInvalidType is returned when a data type tag is not one of the known variants
	ErrInvalidType = errors.New("invalid data type")
	// ErrKeyNotFound is returned when a find or put names a key absent from the schema
	ErrKeyNotFound = errors.New("key not found")
	// ErrCapacityExceeded is returned when a save would overflow the region
	ErrCapacityExceeded = errors.New("entries exceed region capacity")
	// ErrStoreClosed is returned when operations are performed on a closed or
	// erased store
	ErrStoreClosed = errors.New("settings store is not initialized")
)

// Configuration-defect errors from Open. These signal a build or wiring
// mistake; front ends should treat them as fatal and halt startup.
var (
	// ErrMisalignedOffset is returned when the region offset is not a
	// multiple of the erase-block size
	ErrMisalignedOffset = errors.New("region offset not aligned to erase block")
	// ErrMisalignedSize is returned when the region size is not a multiple of
	// the erase-block size
	ErrMisalignedSize = errors.New("region size not aligned to erase block")
	// ErrTooManyEntries is returned when the default entry list plus the
	// sentinel does not fit in the region
	ErrTooManyEntries = errors.New("default entries exceed region capacity")
)
