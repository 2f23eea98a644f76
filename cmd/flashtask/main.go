package main

import (
	"os"

	"github.com/idilsaglam/flashtask/internal/cli"
)

var version = "dev"

func main() {
	// Root flags and subcommands are parsed by the CLI runner.
	os.Exit(cli.Run(os.Args[1:], cli.Options{Version: version}))
}
