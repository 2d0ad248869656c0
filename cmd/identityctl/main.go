// Command identityctl issues, validates and revokes identity tokens, inspects
// the service catalog and sends authenticated requests to catalog services.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := App(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
