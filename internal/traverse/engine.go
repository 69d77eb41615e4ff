// Package traverse implements BuildGraph, the bounded-concurrency
// graph discovery engine of spec §4.5: starting
// from a set of seed ids, it fetches records and follows their
// advisor/descendant links (subject to each item's requested
// Direction) until every reachable id has been visited or MaxRecords
// is reached.
package traverse

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"geneagrapher/internal/record"
	"geneagrapher/internal/tracker"
)

const defaultBaseURL = "https://www.mathgenealogy.org"

// BuildGraph runs the traversal described by spec §4.5 starting from
// seeds and returns the resulting Graph. A non-nil error is either
// context.Canceled/DeadlineExceeded or a *FetchError/*CacheError from
// a fetch that failed outright. Reaching MaxRecords is not an error:
// the graph is returned with Status set to StatusTruncated and a nil
// error.
//
// Duplicate seeds are silently deduped, keeping only the first
// occurrence's Direction. Dispatch order among todo items is
// unspecified; seeds and discovered neighbors are started in no
// particular order, so a neighbor may be fetched before another seed.
func BuildGraph(ctx context.Context, seeds []record.TraverseItem, opts Options) (*record.Graph, error) {
	if len(seeds) == 0 {
		return nil, errNoSeeds
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	fetcher := &record.Fetcher{
		Client:    opts.Client,
		BaseURL:   opts.BaseURL,
		UserAgent: opts.UserAgent,
		RateGate:  opts.HTTPRateGate,
		Cache:     opts.Cache,
		Logger:    *logger,
	}
	if fetcher.BaseURL == "" {
		fetcher.BaseURL = defaultBaseURL
	}
	if fetcher.Client == nil {
		fetcher.Client = http.DefaultClient
	}

	report := func(todo, doing, done int) {
		if opts.ReportCallback != nil {
			opts.ReportCallback(ctx, todo, doing, done)
		}
	}
	tr := tracker.New(opts.MaxRecords, report)

	graph := &record.Graph{
		StartNodes: make([]record.ID, 0, len(seeds)),
		Nodes:      make(map[record.ID]*record.Record),
		Status:     record.StatusComplete,
	}
	var graphMu sync.Mutex

	seen := make(map[record.ID]bool, len(seeds))
	for _, seed := range seeds {
		if seen[seed.ID] {
			continue
		}
		seen[seed.ID] = true
		graph.StartNodes = append(graph.StartNodes, seed.ID)
		tr.Create(seed)
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	var capMu sync.Mutex
	capReached := false

	for !tr.AllDone() {
		if err := tr.ProcessAnother(gctx); err != nil {
			if errors.Is(err, tracker.ErrMaxRecordsReached) {
				capMu.Lock()
				capReached = true
				capMu.Unlock()
				tr.PurgeTodo()
			}
			break
		}

		if tr.TodoLen() == 0 {
			if tr.DoingLen() == 0 {
				break
			}
			// Nothing ready to dispatch; wait for an in-flight fetch to
			// enqueue a neighbor or finish, then re-evaluate.
			tr.Wakeup().Clear()
			// Re-check after Clear: a Finish or Create that signalled
			// before Clear has been drained and would not wake the Wait.
			if tr.TodoLen() > 0 || tr.DoingLen() == 0 {
				continue
			}
			if err := tr.Wakeup().Wait(gctx); err != nil {
				break
			}
			continue
		}

		item, ok := tr.StartNext()
		if !ok {
			continue
		}

		g.Go(func() error {
			return processItem(gctx, item, fetcher, tr, &graphMu, graph, opts)
		})
	}

	waitErr := g.Wait()

	capMu.Lock()
	reached := capReached
	capMu.Unlock()

	if waitErr != nil {
		return graph, waitErr
	}
	if reached {
		graph.Status = record.StatusTruncated
	}
	return graph, nil
}

// processItem fetches a single record, records it into graph, enqueues
// any newly discovered neighbors respecting the item's Direction, and
// reports completion to the tracker. It is the body of each
// errgroup.Go goroutine BuildGraph spawns.
func processItem(ctx context.Context, item record.TraverseItem, fetcher *record.Fetcher, tr *tracker.Tracker, graphMu *sync.Mutex, graph *record.Graph, opts Options) error {
	rec, err := fetcher.Get(ctx, item.ID)
	if err != nil {
		tr.Finish(item.ID, false)
		SafeRecord(opts.Trace, Event{Kind: EventFailed, ID: int64(item.ID), Reason: err.Error()})

		var cacheFailure *record.CacheFailure
		if errors.As(err, &cacheFailure) {
			return &CacheError{ID: item.ID, Err: err}
		}
		return &FetchError{ID: item.ID, Err: err}
	}

	if rec == nil {
		tr.Finish(item.ID, false)
		SafeRecord(opts.Trace, Event{Kind: EventNotFound, ID: int64(item.ID)})
		return nil
	}

	graphMu.Lock()
	committed := opts.MaxRecords <= 0 || len(graph.Nodes) < opts.MaxRecords
	if committed {
		graph.Nodes[item.ID] = rec
	} else {
		graph.Status = record.StatusTruncated
	}
	graphMu.Unlock()

	if !committed {
		tr.Finish(item.ID, true)
		SafeRecord(opts.Trace, Event{Kind: EventCapped, ID: int64(item.ID), Reason: "max records reached"})
		return nil
	}

	SafeRecord(opts.Trace, Event{Kind: EventFetched, ID: int64(item.ID)})

	if opts.RecordCallback != nil {
		opts.RecordCallback(ctx, rec)
	}

	if item.Dir.Has(record.Advisors) {
		enqueueNeighbors(tr, rec.Advisors, record.Advisors, opts.Trace)
	}
	if item.Dir.Has(record.Descendants) {
		enqueueNeighbors(tr, rec.Descendants, record.Descendants, opts.Trace)
	}
	// Finish only after the neighbors are in todo, so the main loop never
	// sees todo and doing both empty while this record still has
	// neighbors to enqueue.
	tr.Finish(item.ID, true)
	return nil
}

func enqueueNeighbors(tr *tracker.Tracker, ids []record.ID, dir record.Direction, trace *Trace) {
	for _, id := range ids {
		item, err := record.NewTraverseItem(id, dir)
		if err != nil {
			continue
		}
		if tr.Create(item) {
			SafeRecord(trace, Event{Kind: EventEnqueued, ID: int64(id)})
		}
	}
}
