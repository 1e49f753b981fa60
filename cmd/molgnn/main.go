// Command molgnn is the CLI for fine-tuning pretrained graph neural
// networks and scoring molecules.
package main

import (
	"os"

	"github.com/turtacn/molgnn/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
