package eventapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/goflagship/flagship-sdk-go/internal/datafile"
	"github.com/goflagship/flagship-sdk-go/internal/telemetry"
)

// defaultEndpoint is Optimizely's Event API ingestion endpoint (spec §6).
const defaultEndpoint = "https://logx.optimizely.com/v1/events"

// Dispatcher sends decision and conversion events. BatchedDispatcher hands
// events to a background worker and never blocks the caller on network
// I/O; SimpleDispatcher posts each event synchronously on the caller's
// goroutine, so a slow Event API slows down the decide()/track call.
type Dispatcher interface {
	SendDecision(userID string, attrs []datafile.UserAttribute, d DecisionInput)
	SendConversion(userID string, attrs []datafile.UserAttribute, entityID string, c ConversionInput)
	Close() error
}

// httpSender posts a Payload to the Event API. Both dispatcher
// implementations share it; only their buffering strategy differs.
type httpSender struct {
	accountID  string
	endpoint   string
	httpClient *http.Client
}

func newHTTPSender(accountID, endpoint string) httpSender {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return httpSender{
		accountID: accountID,
		endpoint:  endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s httpSender) send(payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[eventapi] failed to marshal payload: visitors=%d error=%v", len(payload.Visitors), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("[eventapi] failed to build request: error=%v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("[eventapi] request failed: visitors=%d error=%v", len(payload.Visitors), err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("[eventapi] Event API error: status=%d visitors=%d body=%s", resp.StatusCode, len(payload.Visitors), string(respBody))
		return
	}

	telemetry.EventBatchesTotal.Inc()
	telemetry.EventBatchSize.Observe(float64(len(payload.Visitors)))
	log.Printf("[eventapi] dispatched batch: visitors=%d", len(payload.Visitors))
}

// SimpleDispatcher posts one HTTP request per event, with no batching.
// Grounded in the one-request-per-call dispatcher: simple, but every
// decide/track call pays a full HTTP round trip.
type SimpleDispatcher struct {
	sender httpSender
	mu     sync.Mutex
}

// NewSimpleDispatcher builds a Dispatcher that flushes immediately.
// endpoint may be empty to use the default Event API URL.
func NewSimpleDispatcher(accountID, endpoint string) *SimpleDispatcher {
	return &SimpleDispatcher{sender: newHTTPSender(accountID, endpoint)}
}

func (d *SimpleDispatcher) SendDecision(userID string, attrs []datafile.UserAttribute, decision DecisionInput) {
	d.mu.Lock()
	defer d.mu.Unlock()

	visitor := newVisitor(userID, attrs)
	visitor.addDecision(decision)
	payload := newPayload(d.sender.accountID)
	payload.Visitors = append(payload.Visitors, visitor)
	d.sender.send(payload)
}

func (d *SimpleDispatcher) SendConversion(userID string, attrs []datafile.UserAttribute, entityID string, c ConversionInput) {
	d.mu.Lock()
	defer d.mu.Unlock()

	visitor := newVisitor(userID, attrs)
	visitor.addConversion(entityID, c)
	payload := newPayload(d.sender.accountID)
	payload.Visitors = append(payload.Visitors, visitor)
	d.sender.send(payload)
}

// Close is a no-op: SimpleDispatcher holds no background state.
func (d *SimpleDispatcher) Close() error { return nil }

// batchThreshold is the number of buffered visitors that triggers an
// immediate flush (spec §6, BATCH_THRESHOLD).
const batchThreshold = 10

// queueSize bounds the event channel; once full, further sends are
// dropped rather than blocking the caller.
const queueSize = 4096

type eventMessage struct {
	userID     string
	attrs      []datafile.UserAttribute
	decision   *DecisionInput
	conversion *ConversionInput
	entityID   string
}

// BatchedDispatcher accumulates events behind a single worker goroutine and
// flushes once batchThreshold visitors have buffered, or on Close. Grounded
// in the bounded-channel, single-worker, drop-on-full pattern used for
// webhook delivery, generalized here for one shared payload buffer.
//
// closeMu guards against the send-after-close panic a bare "closed"
// channel plus close(queue) can't rule out: enqueue holds a read lock for
// the entire guarded-send, and Close takes the write lock before closing
// the queue, so the two can never interleave around the same close.
type BatchedDispatcher struct {
	sender  httpSender
	queue   chan eventMessage
	done    chan struct{}
	closeMu sync.RWMutex
	closed  bool
	once    sync.Once
}

// NewBatchedDispatcher builds a Dispatcher that buffers events and flushes
// in batches of batchThreshold visitors. endpoint may be empty to use the
// default Event API URL.
func NewBatchedDispatcher(accountID, endpoint string) *BatchedDispatcher {
	d := &BatchedDispatcher{
		sender: newHTTPSender(accountID, endpoint),
		queue:  make(chan eventMessage, queueSize),
		done:   make(chan struct{}),
	}
	go d.worker()
	return d
}

func (d *BatchedDispatcher) SendDecision(userID string, attrs []datafile.UserAttribute, decision DecisionInput) {
	d.enqueue(eventMessage{userID: userID, attrs: attrs, decision: &decision})
}

func (d *BatchedDispatcher) SendConversion(userID string, attrs []datafile.UserAttribute, entityID string, c ConversionInput) {
	d.enqueue(eventMessage{userID: userID, attrs: attrs, conversion: &c, entityID: entityID})
}

func (d *BatchedDispatcher) enqueue(msg eventMessage) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()

	if d.closed {
		log.Printf("[eventapi] dispatcher closed, dropping event for user=%s", msg.userID)
		return
	}

	select {
	case d.queue <- msg:
	default:
		log.Printf("[eventapi] CRITICAL: queue full (size=%d), dropping event for user=%s", queueSize, msg.userID)
	}
}

// Close stops accepting new events, flushes whatever is buffered, and
// blocks until the worker has drained the queue. Safe to call more than
// once.
func (d *BatchedDispatcher) Close() error {
	d.once.Do(func() {
		d.closeMu.Lock()
		d.closed = true
		close(d.queue)
		d.closeMu.Unlock()

		<-d.done
	})
	return nil
}

func (d *BatchedDispatcher) worker() {
	defer close(d.done)

	payload := newPayload(d.sender.accountID)
	byVisitor := make(map[string]int) // userID -> index into payload.Visitors

	flush := func() {
		if len(payload.Visitors) == 0 {
			return
		}
		d.sender.send(payload)
		payload = newPayload(d.sender.accountID)
		byVisitor = make(map[string]int)
	}

	for msg := range d.queue {
		idx, ok := byVisitor[msg.userID]
		if !ok {
			payload.Visitors = append(payload.Visitors, newVisitor(msg.userID, msg.attrs))
			idx = len(payload.Visitors) - 1
			byVisitor[msg.userID] = idx
		}

		switch {
		case msg.decision != nil:
			payload.Visitors[idx].addDecision(*msg.decision)
		case msg.conversion != nil:
			payload.Visitors[idx].addConversion(msg.entityID, *msg.conversion)
		}

		if len(payload.Visitors) >= batchThreshold {
			flush()
		}
	}

	flush()
}
