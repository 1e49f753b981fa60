package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgnn/internal/gnn"
)

// cliFixture lays out a checkpoint directory, a config file pointing at it,
// and a small labeled dataset.
type cliFixture struct {
	configPath string
	csvPath    string
	dir        string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()

	net, err := gnn.NewGraphNet(gnn.BackboneConfig{
		NumLayers: 2,
		EmbDim:    8,
		Conv:      gnn.ConvGIN,
		JK:        gnn.JKLast,
		Pooling:   gnn.PoolMean,
		Seed:      1,
	})
	require.NoError(t, err)
	blob, err := gnn.EncodeCheckpoint(gnn.Snapshot(net))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contextpred.ckpt"), blob, 0o644))

	configPath := filepath.Join(dir, "molgnn.yaml")
	configYAML := fmt.Sprintf(`
model:
  model_type: contextpred
  task: classification
  num_layers: 2
  emb_dim: 8
  batch_size: 4
  epochs: 2
  lr: 0.01
  num_workers: 1
  seed: 7
storage:
  backend: local
  local_dir: %q
log:
  level: error
`, dir)
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o644))

	csvPath := filepath.Join(dir, "train.csv")
	csv := "smiles,label\nCCO,1\nCC,0\nc1ccccc1,1\nCCN,0\nCC(=O)O,1\nCCCC,0\nCC(C)O,1\nCCOC,0\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	return &cliFixture{configPath: configPath, csvPath: csvPath, dir: dir}
}

func TestTrainCommand(t *testing.T) {
	fx := newCLIFixture(t)
	savePath := filepath.Join(fx.dir, "tuned.bin")

	out, err := executeCLI(t,
		"--config", fx.configPath, "-o", "json",
		"train", "--input", fx.csvPath, "--save", savePath,
	)
	require.NoError(t, err)

	var summary trainSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "contextpred", summary.ModelType)
	assert.Equal(t, 8, summary.Molecules)
	assert.Equal(t, 2, summary.Epochs)
	assert.Equal(t, savePath, summary.SavedTo)

	_, err = os.Stat(savePath)
	require.NoError(t, err)
}

func TestTrainCommandMissingInput(t *testing.T) {
	fx := newCLIFixture(t)
	_, err := executeCLI(t, "--config", fx.configPath, "train")
	require.Error(t, err)
}

func TestTrainCommandBadDataset(t *testing.T) {
	fx := newCLIFixture(t)
	bad := filepath.Join(fx.dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("smiles,label\nCCO,banana\n"), 0o644))

	_, err := executeCLI(t, "--config", fx.configPath, "train", "--input", bad)
	require.Error(t, err)
}

func TestPredictCommandPretrained(t *testing.T) {
	fx := newCLIFixture(t)

	out, err := executeCLI(t,
		"--config", fx.configPath, "-o", "json",
		"predict", "CCO", "c1ccccc1",
	)
	require.NoError(t, err)

	var preds predictions
	require.NoError(t, json.Unmarshal([]byte(out), &preds))
	assert.Equal(t, "contextpred", preds.ModelType)
	require.Len(t, preds.Scores, 2)
	for _, s := range preds.Scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestPredictCommandFineTunedWeights(t *testing.T) {
	fx := newCLIFixture(t)
	savePath := filepath.Join(fx.dir, "tuned.bin")

	_, err := executeCLI(t,
		"--config", fx.configPath,
		"train", "--input", fx.csvPath, "--save", savePath,
	)
	require.NoError(t, err)

	inputPath := filepath.Join(fx.dir, "molecules.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("# probes\nCCO\nCCN\n"), 0o644))

	out, err := executeCLI(t,
		"--config", fx.configPath, "-o", "json",
		"predict", "--weights", savePath, "--input", inputPath,
	)
	require.NoError(t, err)

	var preds predictions
	require.NoError(t, json.Unmarshal([]byte(out), &preds))
	require.Len(t, preds.Scores, 2)
	assert.Equal(t, []string{"CCO", "CCN"}, preds.SMILES)
}

func TestPredictCommandNoMolecules(t *testing.T) {
	fx := newCLIFixture(t)
	_, err := executeCLI(t, "--config", fx.configPath, "predict")
	require.Error(t, err)
}
