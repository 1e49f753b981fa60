package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/molgnn/internal/gnn"
	"github.com/turtacn/molgnn/pkg/errors"
)

type predictOptions struct {
	modelType string
	task      string
	input     string
	weights   string
	batchSize int
	numLayers int
	embDim    int
}

// predictions pairs each input molecule with its score for output.
type predictions struct {
	ModelType string    `json:"model_type"`
	SMILES    []string  `json:"smiles"`
	Scores    []float64 `json:"scores"`
}

func (p predictions) String() string {
	var sb strings.Builder
	for i, s := range p.SMILES {
		fmt.Fprintf(&sb, "%s\t%.6f\n", s, p.Scores[i])
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (p predictions) TableHeaders() []string { return []string{"SMILES", "SCORE"} }

func (p predictions) TableRows() [][]string {
	rows := make([][]string, len(p.SMILES))
	for i, s := range p.SMILES {
		rows[i] = []string{s, strconv.FormatFloat(p.Scores[i], 'f', 6, 64)}
	}
	return rows
}

// NewPredictCommand creates the predict command, which scores molecules with
// a pretrained or fine-tuned model.
func NewPredictCommand() *cobra.Command {
	opts := &predictOptions{}

	cmd := &cobra.Command{
		Use:   "predict [SMILES...]",
		Short: "Score molecules with a pretrained or fine-tuned model",
		Long:  "Score molecules given as arguments or read from a file with one SMILES\nper line. Classification models output probabilities, regression models\nraw scores.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, opts, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.modelType, "model", "", "pretrained model type (see 'molgnn models')")
	fl.StringVar(&opts.task, "task", "", "task setting: classification or regression")
	fl.StringVar(&opts.input, "input", "", "file with one SMILES per line")
	fl.StringVar(&opts.weights, "weights", "", "fine-tuned model file written by 'molgnn train --save'")
	fl.IntVar(&opts.batchSize, "batch-size", 0, "batch size")
	fl.IntVar(&opts.numLayers, "layers", 0, "message passing layers")
	fl.IntVar(&opts.embDim, "dim", 0, "embedding dimension")

	return cmd
}

func runPredict(cmd *cobra.Command, opts *predictOptions, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	smiles, err := gatherMolecules(opts.input, args)
	if err != nil {
		return err
	}

	m := setupMetrics(cliCtx)

	var model *gnn.Model
	if opts.weights != "" {
		payload, loadErr := readModelPayload(opts.weights)
		if loadErr != nil {
			return loadErr
		}
		model, err = gnn.LoadModel(payload, cliCtx.Logger, nil)
		if err != nil {
			return err
		}
	} else {
		cfg := cliCtx.Config.Model
		applyPredictFlags(cmd, &cfg, opts)

		fetcher, fetchErr := newFetcher(cliCtx.Config, cliCtx.Logger)
		if fetchErr != nil {
			return fetchErr
		}
		fetcher = instrumentFetcher(fetcher, m)
		model, err = gnn.NewModel(cmd.Context(), cfg, fetcher, cliCtx.Logger, nil)
		if err != nil {
			return err
		}
	}

	start := time.Now()
	scores, err := model.Predict(smiles)
	if err != nil {
		return err
	}
	if m != nil {
		m.ObservePredict(len(smiles), time.Since(start))
	}
	return PrintResult(cmd, predictions{
		ModelType: model.Config().ModelType,
		SMILES:    smiles,
		Scores:    scores,
	})
}

func applyPredictFlags(cmd *cobra.Command, cfg *gnn.ModelConfig, opts *predictOptions) {
	fl := cmd.Flags()
	if fl.Changed("model") {
		cfg.ModelType = opts.modelType
	}
	if fl.Changed("task") {
		cfg.Task = gnn.TaskSetting(opts.task)
	}
	if fl.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if fl.Changed("layers") {
		cfg.NumLayers = opts.numLayers
	}
	if fl.Changed("dim") {
		cfg.EmbDim = opts.embDim
	}
}

// gatherMolecules merges the --input file and positional arguments.
func gatherMolecules(inputPath string, args []string) ([]string, error) {
	var smiles []string
	if inputPath != "" {
		fromFile, err := readSMILESLines(inputPath)
		if err != nil {
			return nil, err
		}
		smiles = append(smiles, fromFile...)
	}
	smiles = append(smiles, args...)
	if len(smiles) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"no molecules given: pass SMILES arguments or --input")
	}
	return smiles, nil
}
