package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// buildInfo is the version command's output payload.
type buildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (b buildInfo) String() string {
	return "molgnn " + b.Version +
		"\n  commit:     " + b.GitCommit +
		"\n  built:      " + b.BuildDate +
		"\n  go version: " + b.GoVersion +
		"\n  platform:   " + b.Platform
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, buildInfo{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			})
		},
	}
}
