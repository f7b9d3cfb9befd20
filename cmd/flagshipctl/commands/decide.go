package commands

import (
	"fmt"

	"github.com/goflagship/flagship-sdk-go/internal/cli"
	"github.com/spf13/cobra"
)

var (
	decideUser string
	decideAttr []string
)

var decideCmd = &cobra.Command{
	Use:   "decide <flag-key>",
	Short: "Resolve a feature flag decision for a user",
	Long: `Resolve a single flag decision against a local datafile or a fetched
SDK key, and print the result.

Examples:
  flagshipctl decide checkout-flag --datafile ./datafile.json --user alice
  flagshipctl decide checkout-flag --sdk-key abc123 --user alice --attr plan=pro`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flagKey := args[0]

		if decideUser == "" {
			return fmt.Errorf("--user is required")
		}

		attrs, err := parseAttrFlags(decideAttr)
		if err != nil {
			return err
		}

		client, err := buildClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		defer client.Close()

		user := client.CreateUserContext(decideUser)
		for key, value := range attrs {
			user.SetAttribute(key, value)
		}

		d := user.Decide(flagKey)
		return cli.PrintDecision(d, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVar(&decideUser, "user", "", "user id to decide for")
	decideCmd.Flags().StringArrayVar(&decideAttr, "attr", nil, "user attribute as key=value (repeatable)")
}
