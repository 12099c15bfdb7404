// Package main is the entry point for the vdiff CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/vdiff/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
