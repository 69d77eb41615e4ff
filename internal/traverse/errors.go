package traverse

import (
	"errors"
	"fmt"

	"geneagrapher/internal/record"
	"geneagrapher/internal/tracker"
)

// ErrMaxRecordsReached is the tracker's admission-gate signal that the
// Options.MaxRecords cap has been met. BuildGraph handles it internally
// and never returns it; a run cut short by the cap is reported through
// Graph.Status (StatusTruncated) with a nil error.
var ErrMaxRecordsReached = tracker.ErrMaxRecordsReached

// FetchError wraps a transport or parse failure for a specific id, so
// callers can tell which id was responsible without string matching.
type FetchError struct {
	ID  record.ID
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("traverse: fetching id %d: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CacheError wraps a cache backend failure for a specific id.
type CacheError struct {
	ID  record.ID
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("traverse: cache operation for id %d: %v", e.ID, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// errNoSeeds is returned when BuildGraph is called with no starting ids.
var errNoSeeds = errors.New("traverse: at least one start id is required")
