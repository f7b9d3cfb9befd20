// Package datafile provides the typed in-memory representation of the JSON
// configuration document served by the control plane: feature flags,
// experiments, rollouts, variations, audiences, events and attributes.
//
// A Datafile is immutable once built; the config manager swaps whole
// snapshots rather than mutating one in place (see internal/config).
package datafile

import (
	"fmt"
)

// Datafile is an immutable snapshot of one project environment's
// configuration.
type Datafile struct {
	AccountID      string
	ProjectID      string
	EnvironmentKey string
	SDKKey         string
	Revision       int64
	AnonymizeIP    bool
	BotFiltering   bool

	FeatureFlags map[string]FeatureFlag
	Experiments  map[string]Experiment
	Rollouts     map[string]Rollout
	Events       map[string]EventDef
	Attributes   map[string]AttributeDef
	Audiences    map[string]Audience
}

// FeatureFlag is a named switch controlling whether a code path is enabled
// for a user, backed by an ordered list of experiments and a rollout
// fallback.
type FeatureFlag struct {
	Key           string
	RolloutID     string
	ExperimentIDs []string
}

// Experiment partitions traffic across Variations via TrafficAllocation.
type Experiment struct {
	ID                string
	Key               string
	CampaignID        string
	Variations        map[string]Variation
	TrafficAllocation TrafficAllocation
	AudienceTree      AudienceCondition // nil admits every user
}

// Rollout is an ordered sequence of audience-gated experiments, the last of
// which conventionally has no audience and serves as the catch-all.
type Rollout struct {
	ID          string
	Experiments []Experiment
}

// Variation is a single arm of an Experiment.
type Variation struct {
	ID             string
	Key            string
	FeatureEnabled bool
}

// TrafficAllocationRange is one ascending-end-of-range entry.
type TrafficAllocationRange struct {
	EndOfRange  int
	VariationID string
}

// TrafficAllocation is an ordered, ascending sequence of ranges over
// [0, 10000). Ranges never overlap; a bucket value at or above the last
// range's EndOfRange is unallocated.
type TrafficAllocation []TrafficAllocationRange

// EventDef is a conversion event the datafile knows by key.
type EventDef struct {
	ID  string
	Key string
}

// AttributeDef is an attribute the datafile knows by key, used to resolve a
// stable id for event payloads.
type AttributeDef struct {
	ID  string
	Key string
}

// Audience is a named condition tree resolvable by id, referenced from an
// Experiment's AudienceTree after flattening (see parseAudienceReferenceTree).
type Audience struct {
	ID        string
	Name      string
	Condition AudienceCondition
}

// Flag looks up a feature flag by key.
func (d *Datafile) Flag(key string) (FeatureFlag, bool) {
	f, ok := d.FeatureFlags[key]
	return f, ok
}

// Rollout looks up a rollout by id.
func (d *Datafile) Rollout(id string) (Rollout, bool) {
	if id == "" {
		return Rollout{}, false
	}
	r, ok := d.Rollouts[id]
	return r, ok
}

// Experiment looks up an experiment by id.
func (d *Datafile) Experiment(id string) (Experiment, bool) {
	e, ok := d.Experiments[id]
	return e, ok
}

// Event looks up a conversion event by key.
func (d *Datafile) Event(key string) (EventDef, bool) {
	e, ok := d.Events[key]
	return e, ok
}

// Variation looks up a variation within an experiment by id.
func (e *Experiment) Variation(id string) (Variation, bool) {
	v, ok := e.Variations[id]
	return v, ok
}

// Validate checks the cross-referential invariants listed in spec §3:
// every flag's rollout and experiment ids resolve, and every traffic
// allocation's variation id resolves within its own experiment.
func (d *Datafile) Validate() error {
	for key, flag := range d.FeatureFlags {
		if flag.RolloutID != "" {
			if _, ok := d.Rollouts[flag.RolloutID]; !ok {
				return fmt.Errorf("datafile: flag %q references unknown rollout %q", key, flag.RolloutID)
			}
		}
		for _, expID := range flag.ExperimentIDs {
			if _, ok := d.Experiments[expID]; !ok {
				return fmt.Errorf("datafile: flag %q references unknown experiment %q", key, expID)
			}
		}
	}
	for id, exp := range d.Experiments {
		for _, r := range exp.TrafficAllocation {
			if _, ok := exp.Variations[r.VariationID]; !ok {
				return fmt.Errorf("datafile: experiment %q traffic allocation references unknown variation %q", id, r.VariationID)
			}
		}
	}
	return nil
}
