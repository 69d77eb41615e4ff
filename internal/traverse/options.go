package traverse

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"geneagrapher/internal/record"
)

// Options configures a single BuildGraph call. The zero value is
// usable: an unbounded crawl, no rate limiting, no caching, no
// callbacks, a disabled logger.
type Options struct {
	// HTTPRateGate throttles the underlying network fetches shared
	// across every in-flight goroutine. Nil means unthrottled.
	HTTPRateGate *rate.Limiter

	// MaxRecords caps how many records BuildGraph will commit to the
	// graph. Once it is reached, further records are discarded and the
	// graph is returned with Status set to StatusTruncated and a nil
	// error. 0 means unbounded.
	MaxRecords int

	// UserAgent is sent with every request the fetcher issues.
	UserAgent string

	// Cache is consulted before every fetch and populated after every
	// successful parse. Nil disables caching.
	Cache record.Cache

	// BaseURL overrides the default genealogy database root, mainly
	// for pointing the fetcher at a test server.
	BaseURL string

	// Client is the underlying HTTP client. A nil Client gets
	// http.DefaultClient.
	Client *http.Client

	// RecordCallback, if set, is invoked once per successfully parsed
	// record, in addition to it being added to the resulting graph.
	RecordCallback func(ctx context.Context, r *record.Record)

	// ReportCallback, if set, is invoked after every tracker mutation
	// with the current todo/doing/done sizes, for progress reporting.
	ReportCallback func(ctx context.Context, todo, doing, done int)

	// Logger receives the fetcher's structured per-fetch debug entries.
	// Cap events and cache hits are not logged. A nil Logger disables
	// logging (zerolog.Nop() semantics).
	Logger *zerolog.Logger

	// Trace, if set, records the scheduling events of the crawl for
	// diagnostics and tests. Nil disables tracing with zero overhead.
	Trace *Trace

	// Concurrency bounds how many records may be in doing
	// simultaneously, independent of MaxRecords. 0 means unbounded
	// (limited only by MaxRecords' admission gate and OverageBuffer).
	Concurrency int
}
