// Package main is the entry point for the qfront binary.
package main

import (
	"os"

	cli "qfront/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
