// Command driftui serves reactive documents over websockets.
package main

import (
	"os"

	"github.com/go-drift/driftui/cmd/driftui/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
