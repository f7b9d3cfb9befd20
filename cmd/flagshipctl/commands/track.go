package commands

import (
	"fmt"

	"github.com/goflagship/flagship-sdk-go/internal/cli"
	"github.com/spf13/cobra"
)

var (
	trackUser string
	trackAttr []string
	trackTag  []string
	trackProp []string
)

var trackCmd = &cobra.Command{
	Use:   "track <event-key>",
	Short: "Fire a conversion event for a user",
	Long: `Dispatch a conversion event through the configured event dispatcher.

Examples:
  flagshipctl track purchase --datafile ./datafile.json --user alice
  flagshipctl track purchase --sdk-key abc123 --user alice --tag coupon=SPRING --prop revenue=42.50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventKey := args[0]

		if trackUser == "" {
			return fmt.Errorf("--user is required")
		}

		attrs, err := parseAttrFlags(trackAttr)
		if err != nil {
			return err
		}
		tags, err := parseTagFlags(trackTag)
		if err != nil {
			return err
		}
		props, err := parseTagFlags(trackProp)
		if err != nil {
			return err
		}

		client, err := buildClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		defer client.Close()

		user := client.CreateUserContext(trackUser)
		for key, value := range attrs {
			user.SetAttribute(key, value)
		}

		user.TrackEvent(eventKey, tags, props)
		return cli.PrintTrackResult(trackUser, eventKey, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVar(&trackUser, "user", "", "user id the event is attributed to")
	trackCmd.Flags().StringArrayVar(&trackAttr, "attr", nil, "user attribute as key=value (repeatable)")
	trackCmd.Flags().StringArrayVar(&trackTag, "tag", nil, "event tag as key=value (repeatable)")
	trackCmd.Flags().StringArrayVar(&trackProp, "prop", nil, "event property as key=value (repeatable)")
}
