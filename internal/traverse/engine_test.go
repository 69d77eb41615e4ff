package traverse_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"geneagrapher/internal/cache"
	"geneagrapher/internal/record"
	"geneagrapher/internal/traverse"
)

// fixture describes a tiny genealogy: 1 -> descendant 2 -> descendant 3,
// with 1's advisor being 4. 5 is a non-existent id (sentinel response).
func fixtureHandler() http.HandlerFunc {
	pages := map[int64]string{
		1: `<p>x</p><h2>One</h2><table><tr><td><a href="id.php?id=2">d</a></td></tr></table>Advisor: <a href="id.php?id=4">adv</a>`,
		2: `<p>x</p><h2>Two</h2><table><tr><td><a href="id.php?id=3">d</a></td></tr></table>`,
		3: `<p>x</p><h2>Three</h2>`,
		4: `<p>x</p><h2>Four</h2>`,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := r.URL.Query().Get("id")
		id, _ := strconv.ParseInt(idStr, 10, 64)
		body, ok := pages[id]
		if !ok {
			w.Write([]byte("You have specified an ID that does not exist in the database. Please back up and try again."))
			return
		}
		w.Write([]byte("<html><body>" + body + "</body></html>"))
	}
}

func seedItem(t *testing.T, id int64, dir record.Direction) record.TraverseItem {
	t.Helper()
	it, err := record.NewTraverseItem(record.ID(id), dir)
	if err != nil {
		t.Fatalf("NewTraverseItem: %v", err)
	}
	return it
}

func TestBuildGraph_DescendantsOnly(t *testing.T) {
	srv := httptest.NewServer(fixtureHandler())
	defer srv.Close()

	graph, err := traverse.BuildGraph(context.Background(),
		[]record.TraverseItem{seedItem(t, 1, record.Descendants)},
		traverse.Options{BaseURL: srv.URL, Client: srv.Client()},
	)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if graph.Status != record.StatusComplete {
		t.Fatalf("expected complete status, got %s", graph.Status)
	}
	for _, id := range []record.ID{1, 2, 3} {
		if _, ok := graph.Nodes[id]; !ok {
			t.Fatalf("expected node %d to be present", id)
		}
	}
	if _, ok := graph.Nodes[4]; ok {
		t.Fatalf("advisor 4 should not be reachable with Descendants-only direction")
	}
}

func TestBuildGraph_BothDirections(t *testing.T) {
	srv := httptest.NewServer(fixtureHandler())
	defer srv.Close()

	graph, err := traverse.BuildGraph(context.Background(),
		[]record.TraverseItem{seedItem(t, 1, record.Advisors|record.Descendants)},
		traverse.Options{BaseURL: srv.URL, Client: srv.Client()},
	)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	for _, id := range []record.ID{1, 2, 3, 4} {
		if _, ok := graph.Nodes[id]; !ok {
			t.Fatalf("expected node %d to be present", id)
		}
	}
}

func TestBuildGraph_NonExistentSeedYieldsEmptyGraph(t *testing.T) {
	srv := httptest.NewServer(fixtureHandler())
	defer srv.Close()

	graph, err := traverse.BuildGraph(context.Background(),
		[]record.TraverseItem{seedItem(t, 99, record.Descendants)},
		traverse.Options{BaseURL: srv.URL, Client: srv.Client()},
	)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if len(graph.Nodes) != 0 {
		t.Fatalf("expected no nodes for a nonexistent seed, got %v", graph.Nodes)
	}
	if graph.Status != record.StatusComplete {
		t.Fatalf("a suppressed-expansion-free run should still be complete, got %s", graph.Status)
	}
}

func TestBuildGraph_DuplicateSeedsDeduped(t *testing.T) {
	srv := httptest.NewServer(fixtureHandler())
	defer srv.Close()

	graph, err := traverse.BuildGraph(context.Background(),
		[]record.TraverseItem{
			seedItem(t, 1, record.Descendants),
			seedItem(t, 1, record.Descendants),
		},
		traverse.Options{BaseURL: srv.URL, Client: srv.Client()},
	)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if len(graph.StartNodes) != 1 {
		t.Fatalf("expected duplicate seeds to be deduped, got %v", graph.StartNodes)
	}
}

func TestBuildGraph_MaxRecordsTruncates(t *testing.T) {
	// A long chain 1->2->3->...->50 so MaxRecords necessarily cuts it short.
	var mu sync.Mutex
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()

		idStr := r.URL.Query().Get("id")
		id, _ := strconv.ParseInt(idStr, 10, 64)
		if id >= 50 {
			w.Write([]byte("<p>x</p><h2>Leaf</h2>"))
			return
		}
		next := id + 1
		fmt.Fprintf(w, `<html><body><p>x</p><h2>N%d</h2><table><tr><td><a href="id.php?id=%d">d</a></td></tr></table></body></html>`, id, next)
	}))
	defer srv.Close()

	graph, err := traverse.BuildGraph(context.Background(),
		[]record.TraverseItem{seedItem(t, 1, record.Descendants)},
		traverse.Options{BaseURL: srv.URL, Client: srv.Client(), MaxRecords: 3},
	)
	if err != nil {
		t.Fatalf("expected reaching MaxRecords not to be an error, got %v", err)
	}
	if graph == nil {
		t.Fatalf("expected a non-nil truncated graph")
	}
	if graph.Status != record.StatusTruncated {
		t.Fatalf("expected truncated status, got %s", graph.Status)
	}
	if len(graph.Nodes) < 3 {
		t.Fatalf("expected at least MaxRecords nodes before the cap stopped admission, got %d", len(graph.Nodes))
	}
	if len(graph.Nodes) > 3 {
		t.Fatalf("expected at most MaxRecords committed nodes (I3), got %d", len(graph.Nodes))
	}
}

func TestBuildGraph_CacheAvoidsRefetch(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		mu.Lock()
		hits[id]++
		mu.Unlock()
		w.Write([]byte("<html><body><p>x</p><h2>Solo</h2></body></html>"))
	}))
	defer srv.Close()

	c := cache.NewMemoryCache()
	for i := 0; i < 2; i++ {
		_, err := traverse.BuildGraph(context.Background(),
			[]record.TraverseItem{seedItem(t, 1, record.Descendants)},
			traverse.Options{BaseURL: srv.URL, Client: srv.Client(), Cache: c},
		)
		if err != nil {
			t.Fatalf("BuildGraph run %d: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if hits["1"] != 1 {
		t.Fatalf("expected exactly one network fetch across two runs sharing a cache, got %d", hits["1"])
	}
}

func TestBuildGraph_NoSeedsIsAnError(t *testing.T) {
	_, err := traverse.BuildGraph(context.Background(), nil, traverse.Options{})
	if err == nil {
		t.Fatalf("expected an error for an empty seed list")
	}
}

func TestBuildGraph_ContextCancellationPropagates(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := traverse.BuildGraph(ctx,
		[]record.TraverseItem{seedItem(t, 1, record.Descendants)},
		traverse.Options{BaseURL: srv.URL, Client: srv.Client()},
	)
	if err == nil {
		t.Fatalf("expected a context-deadline error")
	}
	if !strings.Contains(err.Error(), "context") {
		t.Fatalf("expected a context-related error, got %v", err)
	}
}
