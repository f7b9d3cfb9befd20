package commands

import (
	"fmt"
	"strings"

	flagship "github.com/goflagship/flagship-sdk-go"
)

// buildClient resolves an initialized Client from the persistent --sdk-key
// / --datafile flags. Exactly one of them must be set.
func buildClient() (*flagship.Client, error) {
	switch {
	case sdkKey != "" && datafilePath != "":
		return nil, fmt.Errorf("--sdk-key and --datafile are mutually exclusive")
	case sdkKey != "":
		u, err := flagship.FromSDKKey(sdkKey)
		if err != nil {
			return nil, err
		}
		return u.Initialize(), nil
	case datafilePath != "":
		u, err := flagship.FromLocalDatafile(datafilePath)
		if err != nil {
			return nil, err
		}
		return u.Initialize(), nil
	default:
		return nil, fmt.Errorf("one of --sdk-key or --datafile is required")
	}
}

// parseAttrFlags parses "key=value" pairs into user attributes, inferring
// Integer/Decimal/Boolean/String the same way datafile attribute values are
// typed on the wire.
func parseAttrFlags(pairs []string) (map[string]flagship.AttributeValue, error) {
	out := make(map[string]flagship.AttributeValue, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --attr %q, expected key=value", pair)
		}
		out[key] = inferAttributeValue(value)
	}
	return out, nil
}

func inferAttributeValue(raw string) flagship.AttributeValue {
	switch raw {
	case "true":
		return flagship.Boolean(true)
	case "false":
		return flagship.Boolean(false)
	}

	var i int64
	if _, err := fmt.Sscanf(raw, "%d", &i); err == nil && fmt.Sprintf("%d", i) == raw {
		return flagship.Integer(i)
	}

	var f float64
	if _, err := fmt.Sscanf(raw, "%g", &f); err == nil {
		return flagship.Decimal(f)
	}

	return flagship.String(raw)
}

// parseTagFlags parses "key=value" pairs into a plain string map, used for
// both event tags and properties.
func parseTagFlags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid flag value %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
