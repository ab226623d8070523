// digipost is a command line client for the Digipost gateway.
package main

import (
	"os"

	"github.com/sirosfoundation/go-digipost/cmd/digipost/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
