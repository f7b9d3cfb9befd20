// Package cli prints Decision and conversion results for cmd/flagshipctl,
// mirroring the table/JSON/YAML output switch the platform CLI used for
// flag CRUD responses, adapted to the SDK's own result types.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	flagship "github.com/goflagship/flagship-sdk-go"
)

// OutputFormat specifies the output format for CLI commands.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintDecision outputs a single Decision in the specified format.
func PrintDecision(d flagship.Decision, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(d)
	case FormatYAML:
		return printYAML(d)
	case FormatTable:
		return printDecisionTable(d)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintTrackResult confirms a dispatched conversion event.
func PrintTrackResult(userID, eventKey string, format OutputFormat) error {
	result := map[string]string{"user_id": userID, "event_key": eventKey, "status": "dispatched"}
	switch format {
	case FormatJSON:
		return printJSON(result)
	case FormatYAML:
		return printYAML(result)
	case FormatTable:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("User", "Event", "Status")
		table.Append(userID, eventKey, "dispatched")
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printDecisionTable(d flagship.Decision) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Flag", "Enabled", "Variation", "Campaign", "Experiment")

	table.Append(
		d.FlagKey,
		fmt.Sprintf("%t", d.Enabled),
		d.VariationKey,
		d.CampaignID,
		d.ExperimentID,
	)

	return table.Render()
}
