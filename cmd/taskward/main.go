// Package main is the entry point for the taskward CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"taskward/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
