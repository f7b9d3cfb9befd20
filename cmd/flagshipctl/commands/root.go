package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	sdkKey       string
	datafilePath string
	format       string
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "flagshipctl",
	Short: "Debug harness for the flagship feature-flag SDK",
	Long: `flagshipctl resolves decisions and fires conversion events against a
flagship datafile, without writing any Go code.

Examples:
  flagshipctl decide my-flag --datafile ./datafile.json --user alice --attr plan=pro
  flagshipctl track purchase --datafile ./datafile.json --user alice --tag coupon=SPRING
  flagshipctl serve-metrics --addr :9090`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sdkKey, "sdk-key", "", "SDK key to fetch the datafile from the CDN")
	rootCmd.PersistentFlags().StringVar(&datafilePath, "datafile", "", "path to a local datafile JSON file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format (table, json, yaml)")
}
