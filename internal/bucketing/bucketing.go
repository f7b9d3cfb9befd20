// Package bucketing provides deterministic user bucketing for experiment
// traffic allocation: a MurmurHash3 x86 32-bit hash of
// (bucketing_id, experiment_id) reduced to a bucket value in [0, 10000),
// then a range lookup into the experiment's traffic allocation.
//
// The hash and reduction formula are wire-visible: other SDK
// implementations bucket the same user into the same range, so neither
// may change without breaking cross-SDK consistency (spec §4.2).
package bucketing

import (
	"sort"

	"github.com/spaolacci/murmur3"

	"github.com/goflagship/flagship-sdk-go/internal/datafile"
	"github.com/goflagship/flagship-sdk-go/internal/telemetry"
)

// hashSeed is fixed by the wire format; every conforming SDK must use it.
const hashSeed uint32 = 1

// maxBucketValue is the exclusive upper bound of the bucket space.
const maxBucketValue = 10000

// bucketingIDAttribute overrides the default bucketing id (the user id)
// when present as a String attribute, enabling cross-experiment
// consistent assignment.
const bucketingIDAttribute = "$opt_bucketing_id"

// BucketValue hashes userID and experimentID into [0, 10000).
func BucketValue(userID, experimentID string) int {
	raw := murmur3.Sum32WithSeed([]byte(userID+experimentID), hashSeed)
	return int(uint64(raw) * maxBucketValue / (1 << 32))
}

// BucketingID resolves the id used for hashing: the "$opt_bucketing_id"
// attribute when the user supplies one as a string, otherwise the user id.
func BucketingID(userID string, attrs map[string]datafile.UserAttribute) string {
	if attr, ok := attrs[bucketingIDAttribute]; ok {
		if s, ok := attr.Value.AsString(); ok {
			return s
		}
	}
	return userID
}

// Variation finds the variation id whose range contains bv in O(log n).
// Ranges must be sorted ascending by EndOfRange, as produced by
// datafile.Parse. Returns ("", false) when bv falls above every range
// (including when allocation is empty) — the user is unallocated.
func Variation(allocation datafile.TrafficAllocation, bv int) (string, bool) {
	idx := sort.Search(len(allocation), func(i int) bool {
		return allocation[i].EndOfRange > bv
	})
	if idx == len(allocation) {
		return "", false
	}
	return allocation[idx].VariationID, true
}

// Bucket resolves the bucketing id, hashes it against experimentID, and
// looks up the resulting variation. This is the single entry point the
// decision engine calls per experiment.
func Bucket(userID string, attrs map[string]datafile.UserAttribute, experimentID string, allocation datafile.TrafficAllocation) (string, bool) {
	id := BucketingID(userID, attrs)
	bv := BucketValue(id, experimentID)
	variationID, allocated := Variation(allocation, bv)

	label := "false"
	if allocated {
		label = "true"
	}
	telemetry.BucketingCallsTotal.WithLabelValues(label).Inc()

	return variationID, allocated
}
