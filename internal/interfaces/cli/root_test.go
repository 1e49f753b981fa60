package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCLI runs a fresh root command with the given arguments, returning
// captured stdout.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "molgnn", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	subNames := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subNames[sub.Name()] = true
	}
	for _, want := range []string{"models", "train", "predict", "version"} {
		assert.True(t, subNames[want], "missing subcommand %q", want)
	}
}

func TestRootCommandGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "log-level", "output", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %q", name)
	}
}

func TestGetCLIContextMissing(t *testing.T) {
	cmd := &cobra.Command{Use: "bare"}
	_, err := GetCLIContext(cmd)
	require.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	out := FormatTable(
		[]string{"NAME", "SCORE"},
		[][]string{{"ethanol", "0.91"}, {"benzene", "0.5"}},
	)
	assert.Contains(t, out, "NAME     SCORE")
	assert.Contains(t, out, "-------  -----")
	assert.Contains(t, out, "ethanol  0.91")
	assert.Contains(t, out, "benzene  0.5")
}

func TestFormatTableEmptyHeaders(t *testing.T) {
	assert.Empty(t, FormatTable(nil, [][]string{{"x"}}))
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "molgnn dev")
	assert.Contains(t, out, "commit:")
}
