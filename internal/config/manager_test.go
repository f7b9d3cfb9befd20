package config

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const fixtureDatafile = `{
	"accountId": "acct-1",
	"projectId": "proj-1",
	"environmentKey": "production",
	"sdkKey": "sdk-1",
	"revision": "%d",
	"anonymizeIP": true,
	"botFiltering": true,
	"rollouts": [],
	"experiments": [],
	"featureFlags": [],
	"events": [],
	"attributes": [],
	"typedAudiences": []
}`

func newTestManager(t *testing.T, handler http.HandlerFunc) (*Manager, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	m := &Manager{
		sdkKey:         "sdk-1",
		url:            server.URL,
		updateInterval: 10 * time.Millisecond,
		httpClient:     server.Client(),
	}
	return m, server
}

func TestManager_InitFetchesAndParses(t *testing.T) {
	m, server := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, fixtureDatafile, 1)
	})
	defer server.Close()
	defer m.Close()

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if got := m.Snapshot().Revision; got != 1 {
		t.Fatalf("Snapshot().Revision = %d, want 1", got)
	}
}

func TestManager_InitSurfacesFetchError(t *testing.T) {
	m, server := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	if err := m.Init(context.Background()); err == nil {
		t.Fatalf("expected Init to surface a fetch error")
	}
}

func TestManager_InitSurfacesParseError(t *testing.T) {
	m, server := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	})
	defer server.Close()

	if err := m.Init(context.Background()); err == nil {
		t.Fatalf("expected Init to surface a parse error")
	}
}

// Only a strictly higher revision replaces the current snapshot; a poll
// that returns the same or a stale revision is a no-op.
func TestManager_RevisionMonotonicity(t *testing.T) {
	var revision int64 = 1
	var mu sync.Mutex

	m, server := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		r64 := revision
		mu.Unlock()
		fmt.Fprintf(w, fixtureDatafile, r64)
	})
	defer server.Close()
	defer m.Close()

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Poll once while the CDN still serves revision 1: must stay at 1.
	ctx := context.Background()
	m.pollOnce(ctx)
	if got := m.Snapshot().Revision; got != 1 {
		t.Fatalf("unchanged revision should not replace snapshot, got %d", got)
	}

	mu.Lock()
	revision = 2
	mu.Unlock()
	m.pollOnce(ctx)
	if got := m.Snapshot().Revision; got != 2 {
		t.Fatalf("Snapshot().Revision = %d, want 2 after a higher revision is served", got)
	}
}

// A transient fetch failure during polling must not panic or clobber the
// last-known-good snapshot.
func TestManager_PollFailureKeepsLastGoodSnapshot(t *testing.T) {
	var fail atomic.Bool

	m, server := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, fixtureDatafile, 5)
	})
	defer server.Close()
	defer m.Close()

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	fail.Store(true)
	m.pollOnce(context.Background())

	if got := m.Snapshot().Revision; got != 5 {
		t.Fatalf("a failed poll must preserve the last-known snapshot, got revision %d", got)
	}
}

// Snapshot() must be race-safe under concurrent reads interleaved with
// background polling (run with -race).
func TestManager_ConcurrentSnapshotReads(t *testing.T) {
	var revision atomic.Int64
	revision.Store(1)

	m, server := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, fixtureDatafile, revision.Add(1))
	})
	defer server.Close()

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if snap := m.Snapshot(); snap == nil {
					t.Error("Snapshot() returned nil")
				}
			}
		}()
	}
	wg.Wait()
}
