// Package main is the entry point for the tokengate binary.
package main

import (
	"os"

	"github.com/opsbridge/tokengate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
