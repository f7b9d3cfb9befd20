package flagship

import (
	"log"

	"github.com/goflagship/flagship-sdk-go/internal/datafile"
	"github.com/goflagship/flagship-sdk-go/internal/decision"
	"github.com/goflagship/flagship-sdk-go/internal/eventapi"
	"github.com/goflagship/flagship-sdk-go/internal/telemetry"
)

// UserContext binds a user id and an evolving set of attributes to a
// Client, so repeated Decide/TrackEvent calls don't need to pass the same
// attributes every time.
type UserContext struct {
	client *Client
	userID string
	attrs  map[string]datafile.UserAttribute
}

// UserID returns the user id this context was created for.
func (u *UserContext) UserID() string { return u.userID }

// SetAttribute records a user attribute by key, resolving its entity id
// from the current datafile snapshot's attribute registry (the id stays
// empty when the attribute is unknown to the snapshot).
func (u *UserContext) SetAttribute(key string, value AttributeValue) {
	id := ""
	if def, ok := u.client.manager.Snapshot().Attributes[key]; ok {
		id = def.ID
	}
	u.attrs[key] = datafile.UserAttribute{ID: id, Key: key, Value: value}
}

// Attributes returns a copy of the attributes currently set on this
// context.
func (u *UserContext) Attributes() map[string]UserAttribute {
	out := make(map[string]UserAttribute, len(u.attrs))
	for k, v := range u.attrs {
		out[k] = v
	}
	return out
}

// Decision is the result of Decide: the feature flag outcome plus the
// resolved variation's identifying fields. It's a thin alias over the
// decision engine's own Decision, re-exported here so callers never need
// to import an internal package.
type Decision = decision.Decision

// Options controls per-call decide behavior.
type Options = decision.Options

// AttributeValue is a typed user attribute value (string, integer, decimal,
// boolean, or null), re-exported so callers never need to import an
// internal package to call SetAttribute.
type AttributeValue = datafile.AttributeValue

// UserAttribute pairs a resolved attribute entity id with its value.
type UserAttribute = datafile.UserAttribute

// Integer, Decimal, Boolean, String, and Null construct AttributeValues for
// SetAttribute, re-exported so callers never need to import an internal
// package to build one.
var (
	Integer = datafile.Integer
	Decimal = datafile.Decimal
	Boolean = datafile.Boolean
	String  = datafile.String
	Null    = datafile.Null
)

// Decide evaluates flagKey for this user against the client's current
// datafile snapshot, using the client's default decide options. Unless
// DisableDecisionEvent is set, a resolved variation also triggers a
// decision event on the client's dispatcher.
func (u *UserContext) Decide(flagKey string) Decision {
	return u.DecideWithOptions(flagKey, u.client.defaultOptions)
}

// DecideWithOptions is Decide with explicit per-call Options, overriding
// the client's defaults entirely (it does not merge with them).
func (u *UserContext) DecideWithOptions(flagKey string, opts Options) Decision {
	snapshot := u.client.manager.Snapshot()
	d := decision.Decide(snapshot, u.userID, u.attrs, flagKey)

	outcome := "off"
	if d.HasVariation() {
		outcome = "hit"
	}
	telemetry.DecisionsTotal.WithLabelValues(flagKey, outcome).Inc()

	if !opts.DisableDecisionEvent && d.HasVariation() {
		u.client.dispatcher.SendDecision(u.userID, u.attributeSlice(), eventapi.DecisionInput{
			CampaignID:   d.CampaignID,
			ExperimentID: d.ExperimentID,
			VariationID:  d.VariationID,
		})
	}
	return d
}

// TrackEvent records a conversion event for this user. tags and properties
// may be nil. An event key unknown to the current datafile snapshot is
// logged and dropped rather than dispatched with an unresolved entity id.
func (u *UserContext) TrackEvent(eventKey string, tags, properties map[string]string) {
	snapshot := u.client.manager.Snapshot()
	def, ok := snapshot.Event(eventKey)
	if !ok {
		log.Printf("[flagship] unknown event key, dropping conversion: user=%s event_key=%s", u.userID, eventKey)
		return
	}
	u.client.dispatcher.SendConversion(u.userID, u.attributeSlice(), def.ID, eventapi.ConversionInput{
		EventKey:   eventKey,
		Tags:       tags,
		Properties: properties,
	})
}

func (u *UserContext) attributeSlice() []datafile.UserAttribute {
	out := make([]datafile.UserAttribute, 0, len(u.attrs))
	for _, a := range u.attrs {
		out = append(out, a)
	}
	return out
}
