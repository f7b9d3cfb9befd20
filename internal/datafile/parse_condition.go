package datafile

import (
	"encoding/json"
	"fmt"
)

// parseConditionTree parses the primary audience condition tree (spec §4.1):
// either a ["and"|"or"|"not", ...children] array, or a
// {"match","name","type","value"} leaf object.
func parseConditionTree(raw json.RawMessage) (AudienceCondition, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch v := probe.(type) {
	case []any:
		return parseBooleanNode(v)
	case map[string]any:
		return parseLeaf(v)
	default:
		return nil, fmt.Errorf("condition must be an array or object, got %T", probe)
	}
}

func parseBooleanNode(seq []any) (AudienceCondition, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("condition array must have an operator as its first element")
	}
	op, ok := seq[0].(string)
	if !ok {
		return nil, fmt.Errorf("condition array's first element must be a string operator")
	}

	children := make([]AudienceCondition, 0, len(seq)-1)
	for _, raw := range seq[1:] {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		child, err := parseConditionTree(encoded)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	switch op {
	case "and":
		return And{Children: children}, nil
	case "or":
		return Or{Children: children}, nil
	case "not":
		if len(children) != 1 {
			return nil, fmt.Errorf(`"not" requires exactly one child, got %d`, len(children))
		}
		return Not{Child: children[0]}, nil
	default:
		return nil, fmt.Errorf("unknown boolean operator %q", op)
	}
}

func parseLeaf(obj map[string]any) (AudienceCondition, error) {
	if t, _ := obj["type"].(string); t != "custom_attribute" {
		return nil, fmt.Errorf(`leaf condition "type" must be "custom_attribute", got %q`, t)
	}
	match, _ := obj["match"].(string)
	if match == "" {
		return nil, fmt.Errorf(`leaf condition missing "match"`)
	}
	name, _ := obj["name"].(string)
	if name == "" {
		return nil, fmt.Errorf(`leaf condition missing "name"`)
	}
	value, hasValue := obj["value"]

	if match == "exists" {
		return Exists{AttributeName: name}, nil
	}
	if !hasValue || value == nil {
		return nil, fmt.Errorf("leaf condition with match %q requires a value", match)
	}

	switch val := value.(type) {
	case bool:
		if match != "exact" {
			return nil, fmt.Errorf("match %q is invalid for a boolean value", match)
		}
		return BooleanEquals{AttributeName: name, Desired: val}, nil
	case float64:
		op, ok := numericOpFor(match)
		if !ok {
			return nil, fmt.Errorf("match %q is invalid for a numeric value", match)
		}
		return NumericCompare{AttributeName: name, Op: op, Desired: val}, nil
	case string:
		switch match {
		case "exact":
			return StringCompare{AttributeName: name, Op: StringEqual, Desired: val}, nil
		case "substring":
			return StringCompare{AttributeName: name, Op: StringContains, Desired: val}, nil
		default:
			if op, ok := semverOpFor(match); ok {
				return SemVerCompare{AttributeName: name, Op: op, Desired: val}, nil
			}
			return nil, fmt.Errorf("match %q is invalid for a string value", match)
		}
	default:
		return nil, fmt.Errorf("unsupported value type %T for match %q", value, match)
	}
}

func numericOpFor(match string) (NumericOp, bool) {
	switch match {
	case "exact":
		return OpEQ, true
	case "lt":
		return OpLT, true
	case "le":
		return OpLE, true
	case "gt":
		return OpGT, true
	case "ge":
		return OpGE, true
	default:
		return "", false
	}
}

func semverOpFor(match string) (NumericOp, bool) {
	switch match {
	case "semver_eq":
		return OpEQ, true
	case "semver_lt":
		return OpLT, true
	case "semver_le":
		return OpLE, true
	case "semver_gt":
		return OpGT, true
	case "semver_ge":
		return OpGE, true
	default:
		return "", false
	}
}

// parseAudienceReferenceTree parses an experiment's audienceConditions,
// e.g. ["or", "audience_id_1", "audience_id_2"], resolving each leaf
// audience id to its Condition tree immediately (§9) to avoid any late
// lookup or cycle at decision time. Supports "and"/"or"/"not" the same as
// the primary tree.
func parseAudienceReferenceTree(raw json.RawMessage, audiencesByID map[string]Audience) (AudienceCondition, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch v := probe.(type) {
	case string:
		aud, ok := audiencesByID[v]
		if !ok {
			return nil, fmt.Errorf("unknown audience id %q", v)
		}
		return aud.Condition, nil
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		op, ok := v[0].(string)
		if !ok {
			return nil, fmt.Errorf("audience reference array's first element must be a string operator")
		}
		children := make([]AudienceCondition, 0, len(v)-1)
		for _, raw := range v[1:] {
			encoded, err := json.Marshal(raw)
			if err != nil {
				return nil, err
			}
			child, err := parseAudienceReferenceTree(encoded, audiencesByID)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		switch op {
		case "and":
			return And{Children: children}, nil
		case "or":
			return Or{Children: children}, nil
		case "not":
			if len(children) != 1 {
				return nil, fmt.Errorf(`"not" requires exactly one child, got %d`, len(children))
			}
			return Not{Child: children[0]}, nil
		default:
			return nil, fmt.Errorf("unknown boolean operator %q", op)
		}
	default:
		return nil, fmt.Errorf("audience reference must be a string id or an array, got %T", probe)
	}
}
