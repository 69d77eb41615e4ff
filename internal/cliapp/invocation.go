// Package cliapp canonicalizes command-line input into an Invocation
// before any traversal logic runs, the same parse-then-execute shape
// the teacher's internal/cli package used around the standard flag
// package, rebuilt here on github.com/urfave/cli/v3.
package cliapp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"geneagrapher/internal/record"
)

// Process exit codes. Numbering follows the teacher's
// internal/cli.ExitSuccess/.../ExitInternalError convention.
const (
	ExitSuccess           = 0
	ExitGraphFailure      = 1
	ExitInvalidInvocation = 2
	ExitInternalError     = 4
)

// InvocationError carries the exit code a malformed invocation should
// produce, so main can translate it without inspecting message text.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// CacheKind selects which record.Cache implementation an Invocation
// wires into the traversal.
type CacheKind string

const (
	CacheNone   CacheKind = "none"
	CacheMemory CacheKind = "memory"
	CacheLRU    CacheKind = "lru"
	CacheFile   CacheKind = "file"
)

// Invocation is the fully canonicalized description of a single
// geneagrapher run, parsed once from CLI flags and then passed to
// Execute without further validation.
type Invocation struct {
	Seeds      []record.TraverseItem
	MaxRecords int
	RatePerSec float64
	BaseURL    string
	UserAgent  string
	Cache      CacheKind
	CacheDir   string
	CacheSize  int
	Output     string // empty means stdout
	Verbose    bool
}

// parseSeeds turns "--ids" and "--direction" flag values into the
// TraverseItem slice BuildGraph expects. Duplicate ids are passed
// through as given; BuildGraph drops the repeats.
func parseSeeds(rawIDs string, direction string) ([]record.TraverseItem, error) {
	rawIDs = strings.TrimSpace(rawIDs)
	if rawIDs == "" {
		return nil, invalidInvocationf("--ids is required")
	}

	dir, err := parseDirection(direction)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(rawIDs, ",")
	items := make([]record.TraverseItem, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, invalidInvocationf("invalid id %q in --ids: %v", p, err)
		}
		item, err := record.NewTraverseItem(record.ID(n), dir)
		if err != nil {
			return nil, invalidInvocationf("%v", err)
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, invalidInvocationf("--ids must contain at least one id")
	}
	return items, nil
}

func parseDirection(raw string) (record.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "advisors":
		return record.Advisors, nil
	case "descendants":
		return record.Descendants, nil
	case "", "both":
		return record.Advisors | record.Descendants, nil
	default:
		return 0, invalidInvocationf("invalid --direction %q (expected advisors|descendants|both)", raw)
	}
}

func parseCacheKind(raw string) (CacheKind, error) {
	switch CacheKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CacheNone:
		return CacheNone, nil
	case CacheMemory:
		return CacheMemory, nil
	case CacheLRU:
		return CacheLRU, nil
	case CacheFile:
		return CacheFile, nil
	default:
		return "", invalidInvocationf("invalid --cache %q (expected none|memory|lru|file)", raw)
	}
}

// ExitCodeFor extracts the semantic exit code a returned error implies.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	return ExitGraphFailure
}
