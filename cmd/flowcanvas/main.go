// The flowcanvas binary runs the local bridge between the canvas UI
// and the upstream workflow backend.
package main

import (
	"os"

	"flowcanvas/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
