// Command flagshipctl is a small debug harness around the SDK: resolve a
// single decision, fire a conversion event, or serve the process's
// prometheus metrics, all against a local datafile or a live SDK key.
package main

import (
	"fmt"
	"os"

	"github.com/goflagship/flagship-sdk-go/cmd/flagshipctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
