package commands

import (
	"fmt"
	"net/http"

	"github.com/goflagship/flagship-sdk-go/internal/telemetry"
	"github.com/spf13/cobra"
)

var serveMetricsAddr string

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve prometheus metrics for decide/track activity on this process",
	Long: `Register the SDK's prometheus collectors and serve them at /metrics,
so a decide/track loop run through this same process can be scraped.

Example:
  flagshipctl serve-metrics --addr :9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		telemetry.Init()

		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())

		fmt.Printf("serving metrics on %s/metrics\n", serveMetricsAddr)
		return http.ListenAndServe(serveMetricsAddr, mux)
	},
}

func init() {
	rootCmd.AddCommand(serveMetricsCmd)

	serveMetricsCmd.Flags().StringVar(&serveMetricsAddr, "addr", ":9090", "address to serve /metrics on")
}
