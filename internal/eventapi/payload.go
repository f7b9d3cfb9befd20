// Package eventapi builds and dispatches the Event API payload (spec §6):
// one decision or conversion becomes a Visitor with a single Snapshot, and
// every decision event is paired with an automatic "campaign_activated"
// conversion event, mirroring the wire shape every Optimizely-compatible
// SDK produces.
package eventapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/goflagship/flagship-sdk-go/internal/datafile"
)

const (
	clientName       = "flagship-sdk-go"
	clientVersion    = "0.1.0"
	activateEventKey = "campaign_activated"
)

// Payload is the top-level HTTP request body sent to the Event API.
type Payload struct {
	AccountID       string    `json:"account_id"`
	Visitors        []Visitor `json:"visitors"`
	EnrichDecisions bool      `json:"enrich_decisions"`
	AnonymizeIP     bool      `json:"anonymize_ip"`
	ClientName      string    `json:"client_name"`
	ClientVersion   string    `json:"client_version"`
}

// Visitor groups every event recorded for one user within a single
// request.
type Visitor struct {
	VisitorID  string      `json:"visitor_id"`
	Attributes []Attribute `json:"attributes"`
	Snapshots  []Snapshot  `json:"snapshots"`
}

// Snapshot is the one-element container Optimizely's wire format expects
// per visitor: a batch of decisions alongside a batch of conversions.
type Snapshot struct {
	Decisions []Decision `json:"decisions"`
	Events    []Event    `json:"events"`
}

// Decision records a single bucketing outcome.
type Decision struct {
	CampaignID         string `json:"campaign_id"`
	ExperimentID       string `json:"experiment_id"`
	VariationID        string `json:"variation_id"`
	IsCampaignHoldback bool   `json:"is_campaign_holdback"`
}

// Event records a conversion (including the synthetic campaign_activated
// event emitted alongside a Decision).
type Event struct {
	EntityID   string            `json:"entity_id"`
	UUID       string            `json:"uuid"`
	Timestamp  int64             `json:"timestamp"`
	Key        string            `json:"key"`
	Tags       map[string]string `json:"tags"`
	Properties map[string]string `json:"properties"`
}

// Attribute is a user attribute resolved against the datafile's attribute
// registry so its entity_id is stable across SDKs.
type Attribute struct {
	EntityID string `json:"entity_id"`
	Key      string `json:"key"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// DecisionInput is the minimal information SendDecision needs; it is built
// from a decision.Decision at the call site so this package has no
// dependency on the decision engine.
type DecisionInput struct {
	CampaignID   string
	ExperimentID string
	VariationID  string
}

// ConversionInput describes a tracked conversion event.
type ConversionInput struct {
	EventKey   string
	Tags       map[string]string
	Properties map[string]string
}

func newEvent(entityID, key string, tags, properties map[string]string) Event {
	if tags == nil {
		tags = map[string]string{}
	}
	if properties == nil {
		properties = map[string]string{}
	}
	return Event{
		EntityID:   entityID,
		UUID:       uuid.NewString(),
		Timestamp:  time.Now().UnixMilli(),
		Key:        key,
		Tags:       tags,
		Properties: properties,
	}
}

func attributesFor(attrs []datafile.UserAttribute) []Attribute {
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		value, _ := a.Value.AsString()
		if value == "" {
			value = a.Value.Stringify()
		}
		out = append(out, Attribute{
			EntityID: a.ID,
			Key:      a.Key,
			Type:     "custom",
			Value:    value,
		})
	}
	return out
}

// newVisitor starts a Visitor with an empty snapshot, ready to accumulate
// decisions and events.
func newVisitor(userID string, attrs []datafile.UserAttribute) Visitor {
	return Visitor{
		VisitorID:  userID,
		Attributes: attributesFor(attrs),
		Snapshots:  []Snapshot{{}},
	}
}

// addDecision appends d to the visitor's snapshot, plus the synthetic
// campaign_activated conversion every decision event carries alongside it.
func (v *Visitor) addDecision(d DecisionInput) {
	v.Snapshots[0].Decisions = append(v.Snapshots[0].Decisions, Decision{
		CampaignID:   d.CampaignID,
		ExperimentID: d.ExperimentID,
		VariationID:  d.VariationID,
	})
	v.Snapshots[0].Events = append(v.Snapshots[0].Events, newEvent(d.CampaignID, activateEventKey, nil, nil))
}

// addConversion appends c to the visitor's snapshot. entityID is the
// conversion event's id from the datafile's event registry; callers must
// resolve it before dispatch, since an event key unknown to the current
// datafile snapshot is dropped rather than sent (spec §4.6/§7).
func (v *Visitor) addConversion(entityID string, c ConversionInput) {
	v.Snapshots[0].Events = append(v.Snapshots[0].Events, newEvent(entityID, c.EventKey, c.Tags, c.Properties))
}

// newPayload starts an otherwise-empty request body for accountID.
func newPayload(accountID string) Payload {
	return Payload{
		AccountID:       accountID,
		Visitors:        make([]Visitor, 0, 1),
		EnrichDecisions: true,
		AnonymizeIP:     true,
		ClientName:      clientName,
		ClientVersion:   clientVersion,
	}
}
