package cliapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	"geneagrapher/internal/cache"
	"geneagrapher/internal/record"
	"geneagrapher/internal/traverse"
)

// buildCache constructs the record.Cache an Invocation asked for. A
// nil return with a nil error means caching is disabled.
func buildCache(inv Invocation) (record.Cache, error) {
	switch inv.Cache {
	case CacheNone, "":
		return nil, nil
	case CacheMemory:
		return cache.NewMemoryCache(), nil
	case CacheLRU:
		size := inv.CacheSize
		if size <= 0 {
			size = 1024
		}
		return cache.NewLRUCache(size)
	case CacheFile:
		if inv.CacheDir == "" {
			return nil, invalidInvocationf("--cache=file requires --cache-dir")
		}
		return cache.NewFileCache(inv.CacheDir), nil
	default:
		return nil, invalidInvocationf("invalid --cache %q", inv.Cache)
	}
}

// Execute runs the traversal described by inv and returns the
// resulting graph. A run cut short by MaxRecords is not a failure: the
// graph comes back with Status set to truncated and a nil error.
func Execute(ctx context.Context, inv Invocation, opts traverse.Options) (*record.Graph, error) {
	c, err := buildCache(inv)
	if err != nil {
		return nil, err
	}

	opts.Cache = c
	opts.MaxRecords = inv.MaxRecords
	opts.BaseURL = inv.BaseURL
	opts.UserAgent = inv.UserAgent
	if inv.RatePerSec > 0 {
		opts.HTTPRateGate = rate.NewLimiter(rate.Limit(inv.RatePerSec), 1)
	}

	graph, err := traverse.BuildGraph(ctx, inv.Seeds, opts)
	if err != nil && !errors.Is(err, traverse.ErrMaxRecordsReached) {
		return graph, err
	}
	return graph, err
}

// WriteGraph serializes graph as JSON to w, matching the
// {start_nodes, nodes, status} shape of spec §6.
func WriteGraph(w io.Writer, graph *record.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(graph); err != nil {
		return fmt.Errorf("cliapp: encoding graph: %w", err)
	}
	return nil
}
