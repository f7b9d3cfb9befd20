// Package decision implements the decision engine (spec §4.3): given a flag
// key and a user, it runs the flag's experiments, falls back to its
// rollout, and returns a Decision that owns copies of every identifying
// string so it never outlives — or holds a reference into — the Datafile
// snapshot it was computed from (spec §9).
package decision

import (
	"github.com/goflagship/flagship-sdk-go/internal/audience"
	"github.com/goflagship/flagship-sdk-go/internal/bucketing"
	"github.com/goflagship/flagship-sdk-go/internal/datafile"
)

// Decision is the outcome of evaluating one flag for one user.
type Decision struct {
	FlagKey      string
	CampaignID   string
	ExperimentID string
	VariationID  string
	VariationKey string
	Enabled      bool
}

// Off builds the sentinel "off" decision: an unknown flag key, or a known
// flag whose experiments and rollout produced no variation.
func Off(flagKey string) Decision {
	return Decision{
		FlagKey:      flagKey,
		VariationKey: "off",
		Enabled:      false,
	}
}

func fromMatch(flagKey, campaignID, experimentID string, variation datafile.Variation) Decision {
	return Decision{
		FlagKey:      flagKey,
		CampaignID:   campaignID,
		ExperimentID: experimentID,
		VariationID:  variation.ID,
		VariationKey: variation.Key,
		Enabled:      variation.FeatureEnabled,
	}
}

// HasVariation reports whether a real experiment or rollout variation was
// resolved, as opposed to the "off" sentinel. Per spec §9, only decisions
// with a resolved variation are worth attributing in a decision event —
// there is nothing meaningful to report for an off sentinel, regardless of
// whether it arose from an unknown flag key or an exhausted rollout.
func (d Decision) HasVariation() bool { return d.VariationID != "" }

// Options controls per-call decision behavior (spec §6,
// default_decide_options).
type Options struct {
	DisableDecisionEvent bool
}

// Decide runs the algorithm described in spec §4.3: experiments in the
// flag's declared order, then the rollout's layers in order, each gated by
// its audience tree (absent tree admits everyone).
func Decide(df *datafile.Datafile, userID string, attrs map[string]datafile.UserAttribute, flagKey string) Decision {
	flag, ok := df.Flag(flagKey)
	if !ok {
		return Off(flagKey)
	}

	for _, experimentID := range flag.ExperimentIDs {
		experiment, ok := df.Experiment(experimentID)
		if !ok {
			continue
		}
		if !audience.Evaluate(experiment.AudienceTree, attrs) {
			continue
		}
		variationID, matched := bucketing.Bucket(userID, attrs, experiment.ID, experiment.TrafficAllocation)
		if !matched {
			continue
		}
		variation, ok := experiment.Variation(variationID)
		if !ok {
			// Stale allocation: the variation no longer exists. Treat as
			// unallocated and keep trying the remaining experiments.
			continue
		}
		return fromMatch(flag.Key, experiment.CampaignID, experiment.ID, variation)
	}

	rollout, ok := df.Rollout(flag.RolloutID)
	if !ok {
		return Off(flagKey)
	}

	for _, experiment := range rollout.Experiments {
		if !audience.Evaluate(experiment.AudienceTree, attrs) {
			continue
		}
		variationID, matched := bucketing.Bucket(userID, attrs, experiment.ID, experiment.TrafficAllocation)
		if !matched {
			continue
		}
		variation, ok := experiment.Variation(variationID)
		if !ok {
			continue
		}
		return fromMatch(flag.Key, experiment.CampaignID, experiment.ID, variation)
	}

	return Off(flagKey)
}
