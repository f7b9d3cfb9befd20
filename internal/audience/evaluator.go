// Package audience evaluates a parsed datafile.AudienceCondition tree
// against a user's attribute map. It never errors: a missing attribute, a
// type mismatch, or an unparseable semver all evaluate to false (spec
// §4.1), since a failed leaf must never short-circuit a logical OR in the
// attacker's favor.
package audience

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/goflagship/flagship-sdk-go/internal/datafile"
)

// Evaluate walks cond against attrs (keyed by attribute name) and reports
// whether the user matches. A nil cond (no audience configured) always
// matches.
func Evaluate(cond datafile.AudienceCondition, attrs map[string]datafile.UserAttribute) bool {
	if cond == nil {
		return true
	}

	switch c := cond.(type) {
	case datafile.And:
		for _, child := range c.Children {
			if !Evaluate(child, attrs) {
				return false
			}
		}
		return true
	case datafile.Or:
		for _, child := range c.Children {
			if Evaluate(child, attrs) {
				return true
			}
		}
		return false
	case datafile.Not:
		return !Evaluate(c.Child, attrs)
	case datafile.Exists:
		attr, ok := attrs[c.AttributeName]
		return ok && !attr.Value.IsNull()
	case datafile.BooleanEquals:
		attr, ok := attrs[c.AttributeName]
		if !ok {
			return false
		}
		got, ok := attr.Value.AsBool()
		return ok && got == c.Desired
	case datafile.NumericCompare:
		attr, ok := attrs[c.AttributeName]
		if !ok {
			return false
		}
		got, ok := attr.Value.AsFloat64()
		if !ok {
			return false
		}
		return compareNumeric(c.Op, got, c.Desired)
	case datafile.StringCompare:
		attr, ok := attrs[c.AttributeName]
		if !ok {
			return false
		}
		got, ok := attr.Value.AsString()
		if !ok {
			return false
		}
		return compareString(c.Op, got, c.Desired)
	case datafile.SemVerCompare:
		attr, ok := attrs[c.AttributeName]
		if !ok {
			return false
		}
		got, ok := attr.Value.AsString()
		if !ok {
			return false
		}
		return compareSemVer(c.Op, got, c.Desired)
	default:
		return false
	}
}

func compareNumeric(op datafile.NumericOp, got, desired float64) bool {
	switch op {
	case datafile.OpEQ:
		return got == desired
	case datafile.OpLT:
		return got < desired
	case datafile.OpLE:
		return got <= desired
	case datafile.OpGT:
		return got > desired
	case datafile.OpGE:
		return got >= desired
	default:
		return false
	}
}

func compareString(op datafile.StringOp, got, desired string) bool {
	switch op {
	case datafile.StringEqual:
		return got == desired
	case datafile.StringContains:
		return strings.Contains(got, desired)
	default:
		return false
	}
}

func compareSemVer(op datafile.NumericOp, gotRaw, desiredRaw string) bool {
	got, err := semver.NewVersion(gotRaw)
	if err != nil {
		return false
	}
	desired, err := semver.NewVersion(desiredRaw)
	if err != nil {
		return false
	}
	switch op {
	case datafile.OpEQ:
		return got.Equal(desired)
	case datafile.OpLT:
		return got.LessThan(desired)
	case datafile.OpLE:
		return got.LessThan(desired) || got.Equal(desired)
	case datafile.OpGT:
		return got.GreaterThan(desired)
	case datafile.OpGE:
		return got.GreaterThan(desired) || got.Equal(desired)
	default:
		return false
	}
}
