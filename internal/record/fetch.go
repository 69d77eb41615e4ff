package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Fetcher is the fetch+parse adapter of spec §4.2: given an id, it
// returns a Record, or nil if the id denotes no record.
//
// Semantics, in order:
//  1. If Cache is set, it is consulted first. A hit with a Record
//     returns it with no network I/O. A null hit (previously observed
//     non-existent) returns (nil, nil) with no network I/O.
//  2. On a miss, RateGate (if set) is acquired for the duration of the
//     network request only.
//  3. If the response is one of the "no such record" sentinel
//     documents, Get returns (nil, nil).
//  4. Otherwise Get returns a populated Record.
//  5. After a miss, the result (Record or nil) is written back to Cache.
type Fetcher struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	RateGate  *rate.Limiter // nil = unlimited
	Cache     Cache         // nil = no caching
	Logger    zerolog.Logger
}

// CacheFailure wraps an error returned by a Cache implementation, so
// callers can distinguish a cache-backend failure from a transport or
// parse failure without string matching.
type CacheFailure struct{ Err error }

func (e *CacheFailure) Error() string { return fmt.Sprintf("cache: %v", e.Err) }
func (e *CacheFailure) Unwrap() error { return e.Err }

// Get fetches and parses the record for id, consulting the cache
// first and writing back on a miss. A nil Record with a nil error
// means the id does not exist.
func (f *Fetcher) Get(ctx context.Context, id ID) (*Record, error) {
	if f.Cache != nil {
		hit, rec, err := f.Cache.Get(id)
		if err != nil {
			return nil, &CacheFailure{Err: err}
		}
		if hit {
			return rec, nil
		}
	}

	if f.RateGate != nil {
		if err := f.RateGate.Wait(ctx); err != nil {
			return nil, fmt.Errorf("record: rate gate wait for id %d: %w", id, err)
		}
	}

	raw, err := f.fetchRaw(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("record: fetching id %d: %w", id, err)
	}

	rec, err := Parse(id, raw)
	if err != nil {
		if errors.Is(err, ErrNotARecord) {
			f.logFetch(id, nil)
			if f.Cache != nil {
				if cerr := f.Cache.Set(id, nil); cerr != nil {
					return nil, &CacheFailure{Err: cerr}
				}
			}
			return nil, nil
		}
		return nil, fmt.Errorf("record: parsing id %d: %w", id, err)
	}

	f.logFetch(id, rec)
	if f.Cache != nil {
		if err := f.Cache.Set(id, rec); err != nil {
			return nil, &CacheFailure{Err: err}
		}
	}
	return rec, nil
}

func (f *Fetcher) logFetch(id ID, rec *Record) {
	ev := f.Logger.Debug().Int64("id", int64(id))
	if rec == nil {
		ev.Msg("fetched: no such record")
		return
	}
	ev.Str("name", rec.Name).Msg("fetched record")
}

func (f *Fetcher) fetchRaw(ctx context.Context, id ID) ([]byte, error) {
	url := fmt.Sprintf("%s/id.php?id=%d", f.BaseURL, int64(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
