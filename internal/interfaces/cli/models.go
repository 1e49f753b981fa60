package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/molgnn/internal/gnn"
)

// modelList adapts the pretrained model catalog to the output helpers.
type modelList struct {
	Names   []string `json:"names"`
	Default string   `json:"default"`
}

func (l modelList) String() string {
	var sb strings.Builder
	for _, name := range l.Names {
		sb.WriteString(name)
		if name == l.Default {
			sb.WriteString(" (default)")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (l modelList) TableHeaders() []string { return []string{"NAME", "DEFAULT"} }

func (l modelList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Names))
	for _, name := range l.Names {
		def := ""
		if name == l.Default {
			def = "*"
		}
		rows = append(rows, []string{name, def})
	}
	return rows
}

// NewModelsCommand creates the models command listing the pretrained
// checkpoints a fetcher can serve.
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available pretrained model types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, modelList{
				Names:   gnn.ModelNames,
				Default: gnn.DefaultModelType,
			})
		},
	}
}
