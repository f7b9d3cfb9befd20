// Package config holds the pieces that get a Datafile into memory and keep
// it current: a polling Manager that swaps whole snapshots atomically (the
// hot decide() path never takes a lock), and a viper-based loader for
// client construction options. Grounded in the atomic-pointer snapshot
// pattern this codebase already uses for flag configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goflagship/flagship-sdk-go/internal/datafile"
	"github.com/goflagship/flagship-sdk-go/internal/telemetry"
)

// parseError distinguishes a malformed datafile body from a transport or
// HTTP-status failure, so pollOnce can report the two outcomes separately.
type parseError struct {
	err error
}

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

const cdnURLTemplate = "https://cdn.optimizely.com/datafiles/%s.json"

// DefaultUpdateInterval is used when WithUpdateInterval is never called.
const DefaultUpdateInterval = 5 * time.Minute

// fetchTimeout bounds every single datafile fetch, independent of the
// poll interval — a slow CDN response must not stall the poller
// indefinitely (spec §5).
const fetchTimeout = 30 * time.Second

// Manager owns the current Datafile snapshot and keeps it fresh by polling
// the CDN on a fixed interval. Reads go through Snapshot(), which is a
// lock-free atomic pointer load, so concurrent decide() calls never
// contend with a poll in flight.
type Manager struct {
	sdkKey         string
	url            string
	updateInterval time.Duration
	httpClient     *http.Client

	current atomic.Pointer[datafile.Datafile]

	cancel context.CancelFunc
	done   chan struct{}
}

// FetchDatafile performs a single synchronous datafile fetch for sdkKey,
// with no polling. Used by the Client Facade's FromSDKKey construction
// path, where a construction-time fetch error must surface directly to the
// caller (spec §7).
func FetchDatafile(ctx context.Context, sdkKey string) (*datafile.Datafile, error) {
	m := NewManager(sdkKey, DefaultUpdateInterval)
	return m.fetch(ctx)
}

// NewManager builds a Manager for sdkKey using the default datafile CDN
// URL. updateInterval <= 0 uses DefaultUpdateInterval.
func NewManager(sdkKey string, updateInterval time.Duration) *Manager {
	if updateInterval <= 0 {
		updateInterval = DefaultUpdateInterval
	}
	return &Manager{
		sdkKey:         sdkKey,
		url:            fmt.Sprintf(cdnURLTemplate, sdkKey),
		updateInterval: updateInterval,
		httpClient:     &http.Client{Timeout: fetchTimeout},
	}
}

// Init performs the first synchronous fetch (a construction-time error
// must be surfaced to the caller per spec §7's ConfigFetch/ConfigParse
// taxonomy) and then starts the background poller.
func (m *Manager) Init(ctx context.Context) error {
	df, err := m.fetch(ctx)
	if err != nil {
		return err
	}
	m.Seed(df)
	m.StartPolling()
	return nil
}

// Seed stores df as the current snapshot without starting the poller. Used
// when the Datafile was obtained another way (a local file or literal
// string, spec §6) and the caller decides separately whether polling makes
// sense (it doesn't, without an SDK key to poll the CDN with).
func (m *Manager) Seed(df *datafile.Datafile) {
	m.current.Store(df)
}

// StartPolling begins the background poller. Safe to call at most once per
// Manager; callers that never call it simply never receive CDN updates.
func (m *Manager) StartPolling() {
	pollCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.pollLoop(pollCtx)
}

// Snapshot returns the current Datafile. Safe to call concurrently from any
// number of goroutines; never blocks.
func (m *Manager) Snapshot() *datafile.Datafile {
	return m.current.Load()
}

// Close stops the background poller and waits for it to exit.
func (m *Manager) Close() error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	<-m.done
	return nil
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	next, err := m.fetch(fetchCtx)
	if err != nil {
		outcome := "fetch_error"
		var perr *parseError
		if errors.As(err, &perr) {
			outcome = "parse_error"
		}
		telemetry.ConfigPollTotal.WithLabelValues(outcome).Inc()
		log.Printf("[config] datafile poll failed: sdk_key=%s error=%v", m.sdkKey, err)
		return
	}

	current := m.current.Load()
	if current != nil && next.Revision <= current.Revision {
		telemetry.ConfigPollTotal.WithLabelValues("success").Inc()
		log.Printf("[config] datafile poll returned no new revision: sdk_key=%s revision=%d", m.sdkKey, next.Revision)
		return
	}

	m.current.Store(next)
	telemetry.ConfigPollTotal.WithLabelValues("success").Inc()
	log.Printf("[config] datafile updated: sdk_key=%s revision=%d", m.sdkKey, next.Revision)
}

func (m *Manager) fetch(ctx context.Context) (*datafile.Datafile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("config: failed to build request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config: datafile fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("config: datafile fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read datafile body: %w", err)
	}

	df, err := datafile.Parse(body)
	if err != nil {
		return nil, &parseError{err: fmt.Errorf("config: failed to parse datafile: %w", err)}
	}
	return df, nil
}
