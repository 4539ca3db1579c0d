// Package main provides the entry point for the localbridge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/localbridge-dev/localbridge/cmd/bridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
