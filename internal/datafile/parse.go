package datafile

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// wireDatafile mirrors the top-level JSON object described in spec §6.
// Field names follow the CDN's camelCase wire contract; the in-memory
// Datafile (types.go) renames them to match the rest of this package.
type wireDatafile struct {
	AccountID      string           `json:"accountId"`
	ProjectID      string           `json:"projectId"`
	EnvironmentKey string           `json:"environmentKey"`
	SDKKey         string           `json:"sdkKey"`
	Revision       string           `json:"revision"`
	AnonymizeIP    bool             `json:"anonymizeIP"`
	BotFiltering   bool             `json:"botFiltering"`
	Events         []wireEvent      `json:"events"`
	Attributes     []wireAttribute  `json:"attributes"`
	TypedAudiences []wireAudience   `json:"typedAudiences"`
	Experiments    []wireExperiment `json:"experiments"`
	Rollouts       []wireRollout    `json:"rollouts"`
	FeatureFlags   []wireFlag       `json:"featureFlags"`
}

type wireEvent struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type wireAttribute struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type wireAudience struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Conditions json.RawMessage `json:"conditions"`
}

type wireTrafficAllocationEntry struct {
	EntityID   string `json:"entityId"`
	EndOfRange int    `json:"endOfRange"`
}

type wireVariation struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	FeatureEnabled bool   `json:"featureEnabled"`
}

type wireExperiment struct {
	ID                 string                       `json:"id"`
	Key                string                       `json:"key"`
	LayerID            string                       `json:"layerId"`
	TrafficAllocation  []wireTrafficAllocationEntry `json:"trafficAllocation"`
	Variations         []wireVariation              `json:"variations"`
	AudienceConditions json.RawMessage              `json:"audienceConditions"`
}

type wireRollout struct {
	ID          string           `json:"id"`
	Experiments []wireExperiment `json:"experiments"`
}

type wireFlag struct {
	Key           string   `json:"key"`
	RolloutID     string   `json:"rolloutId"`
	ExperimentIDs []string `json:"experimentIds"`
}

// Parse decodes a datafile JSON document into an immutable Datafile.
//
// Audience references inside an experiment's audienceConditions tree are
// resolved to their underlying condition trees at parse time (see §9):
// this flattens the two-tree structure into one, so the decision engine
// never has to perform a late audience-id lookup.
func Parse(data []byte) (*Datafile, error) {
	var wire wireDatafile
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("datafile: malformed JSON: %w", err)
	}

	revision, err := strconv.ParseInt(wire.Revision, 10, 64)
	if err != nil || revision < 0 {
		return nil, fmt.Errorf("datafile: invalid revision %q: %w", wire.Revision, err)
	}

	audiencesByID := make(map[string]Audience, len(wire.TypedAudiences))
	for _, a := range wire.TypedAudiences {
		cond, err := parseConditionTree(a.Conditions)
		if err != nil {
			return nil, fmt.Errorf("datafile: audience %q: %w", a.ID, err)
		}
		audiencesByID[a.ID] = Audience{ID: a.ID, Name: a.Name, Condition: cond}
	}

	experiments := make(map[string]Experiment, len(wire.Experiments))
	for _, e := range wire.Experiments {
		exp, err := buildExperiment(e, audiencesByID)
		if err != nil {
			return nil, err
		}
		experiments[exp.ID] = exp
	}

	rollouts := make(map[string]Rollout, len(wire.Rollouts))
	for _, r := range wire.Rollouts {
		layerExperiments := make([]Experiment, 0, len(r.Experiments))
		for _, e := range r.Experiments {
			exp, err := buildExperiment(e, audiencesByID)
			if err != nil {
				return nil, err
			}
			layerExperiments = append(layerExperiments, exp)
			experiments[exp.ID] = exp
		}
		rollouts[r.ID] = Rollout{ID: r.ID, Experiments: layerExperiments}
	}

	flags := make(map[string]FeatureFlag, len(wire.FeatureFlags))
	for _, f := range wire.FeatureFlags {
		flags[f.Key] = FeatureFlag{
			Key:           f.Key,
			RolloutID:     f.RolloutID,
			ExperimentIDs: append([]string(nil), f.ExperimentIDs...),
		}
	}

	events := make(map[string]EventDef, len(wire.Events))
	for _, e := range wire.Events {
		events[e.Key] = EventDef{ID: e.ID, Key: e.Key}
	}

	attributes := make(map[string]AttributeDef, len(wire.Attributes))
	for _, a := range wire.Attributes {
		attributes[a.Key] = AttributeDef{ID: a.ID, Key: a.Key}
	}

	audiences := make(map[string]Audience, len(audiencesByID))
	for id, a := range audiencesByID {
		audiences[id] = a
	}

	df := &Datafile{
		AccountID:      wire.AccountID,
		ProjectID:      wire.ProjectID,
		EnvironmentKey: wire.EnvironmentKey,
		SDKKey:         wire.SDKKey,
		Revision:       revision,
		AnonymizeIP:    wire.AnonymizeIP,
		BotFiltering:   wire.BotFiltering,
		FeatureFlags:   flags,
		Experiments:    experiments,
		Rollouts:       rollouts,
		Events:         events,
		Attributes:     attributes,
		Audiences:      audiences,
	}

	if err := df.Validate(); err != nil {
		return nil, err
	}
	return df, nil
}

func buildExperiment(e wireExperiment, audiencesByID map[string]Audience) (Experiment, error) {
	variations := make(map[string]Variation, len(e.Variations))
	for _, v := range e.Variations {
		variations[v.ID] = Variation{ID: v.ID, Key: v.Key, FeatureEnabled: v.FeatureEnabled}
	}

	allocation := make(TrafficAllocation, 0, len(e.TrafficAllocation))
	for _, r := range e.TrafficAllocation {
		allocation = append(allocation, TrafficAllocationRange{EndOfRange: r.EndOfRange, VariationID: r.EntityID})
	}

	var audienceTree AudienceCondition
	if len(e.AudienceConditions) > 0 {
		tree, err := parseAudienceReferenceTree(e.AudienceConditions, audiencesByID)
		if err != nil {
			return Experiment{}, fmt.Errorf("datafile: experiment %q audienceConditions: %w", e.ID, err)
		}
		audienceTree = tree
	}

	return Experiment{
		ID:                e.ID,
		Key:               e.Key,
		CampaignID:        e.LayerID,
		Variations:        variations,
		TrafficAllocation: allocation,
		AudienceTree:      audienceTree,
	}, nil
}
