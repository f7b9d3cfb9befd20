package eventapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goflagship/flagship-sdk-go/internal/datafile"
)

// S6: 25 decisions across 25 distinct users flush as exactly three
// batches of 10, 10, and 5 visitors.
func TestBatchedDispatcher_FlushesAtThreshold(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		mu.Lock()
		batchSizes = append(batchSizes, len(payload.Visitors))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewBatchedDispatcher("account-1", server.URL)

	for i := 0; i < 25; i++ {
		userID := fmt.Sprintf("user-%d", i)
		d.SendDecision(userID, nil, DecisionInput{
			CampaignID:   "camp-1",
			ExperimentID: "exp-1",
			VariationID:  "v-1",
		})
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(batchSizes) != 3 {
		t.Fatalf("expected 3 batches, got %d (%v)", len(batchSizes), batchSizes)
	}
	if batchSizes[0] != 10 || batchSizes[1] != 10 || batchSizes[2] != 5 {
		t.Fatalf("expected batch sizes [10 10 5], got %v", batchSizes)
	}
}

// Decisions for the same user within one batch accumulate on a single
// visitor entry rather than producing duplicate visitors.
func TestBatchedDispatcher_GroupsByVisitor(t *testing.T) {
	var captured Payload
	done := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer server.Close()

	d := NewBatchedDispatcher("account-1", server.URL)
	d.SendDecision("user-1", nil, DecisionInput{CampaignID: "camp-1", ExperimentID: "exp-1", VariationID: "v-1"})
	d.SendDecision("user-1", nil, DecisionInput{CampaignID: "camp-2", ExperimentID: "exp-2", VariationID: "v-2"})
	_ = d.Close()
	<-done

	if len(captured.Visitors) != 1 {
		t.Fatalf("expected 1 visitor, got %d", len(captured.Visitors))
	}
	if len(captured.Visitors[0].Snapshots[0].Decisions) != 2 {
		t.Fatalf("expected 2 decisions on the shared visitor, got %d", len(captured.Visitors[0].Snapshots[0].Decisions))
	}
	// Each decision also carries its synthetic campaign_activated event.
	if len(captured.Visitors[0].Snapshots[0].Events) != 2 {
		t.Fatalf("expected 2 campaign_activated events, got %d", len(captured.Visitors[0].Snapshots[0].Events))
	}
}

// Close drains whatever is buffered even if it never reaches the batch
// threshold.
func TestBatchedDispatcher_CloseFlushesPartialBatch(t *testing.T) {
	received := make(chan int, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload Payload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received <- len(payload.Visitors)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewBatchedDispatcher("account-1", server.URL)
	d.SendDecision("user-1", nil, DecisionInput{CampaignID: "camp-1", ExperimentID: "exp-1", VariationID: "v-1"})
	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	select {
	case n := <-received:
		if n != 1 {
			t.Fatalf("expected partial batch of 1 visitor, got %d", n)
		}
	default:
		t.Fatalf("Close did not flush the partial batch before returning")
	}
}

// Close is idempotent: a second call must not panic or block.
func TestBatchedDispatcher_CloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewBatchedDispatcher("account-1", server.URL)
	if err := d.Close(); err != nil {
		t.Fatalf("first Close returned error: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

// A caller still sending decisions when Close runs must never observe a
// send-on-closed-channel panic; enqueue and the close transition are
// mutually exclusive via closeMu.
func TestBatchedDispatcher_ConcurrentSendDuringClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewBatchedDispatcher("account-1", server.URL)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			d.SendDecision("user-1", nil, DecisionInput{CampaignID: "camp-1", ExperimentID: "exp-1", VariationID: "v-1"})
		}
	}()

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	wg.Wait()
}

// SimpleDispatcher posts exactly one request per SendDecision/SendConversion
// call, with no batching.
func TestSimpleDispatcher_OneRequestPerEvent(t *testing.T) {
	var count int
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewSimpleDispatcher("account-1", server.URL)
	d.SendDecision("user-1", nil, DecisionInput{CampaignID: "camp-1", ExperimentID: "exp-1", VariationID: "v-1"})
	d.SendConversion("user-1", nil, "event-1", ConversionInput{EventKey: "purchase"})

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf("expected 2 requests, got %d", count)
	}
}

func TestAttributesFor_ResolvesEntityIDAndStringifies(t *testing.T) {
	attrs := []datafile.UserAttribute{
		{ID: "attr-1", Key: "plan", Value: datafile.String("pro")},
		{ID: "attr-2", Key: "age", Value: datafile.Integer(30)},
	}
	out := attributesFor(attrs)
	if len(out) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(out))
	}
	if out[0].EntityID != "attr-1" || out[0].Value != "pro" {
		t.Fatalf("unexpected first attribute: %+v", out[0])
	}
	if out[1].EntityID != "attr-2" || out[1].Value != "30" {
		t.Fatalf("unexpected second attribute: %+v", out[1])
	}
}
