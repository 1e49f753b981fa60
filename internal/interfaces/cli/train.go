package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/molgnn/internal/gnn"
	"github.com/turtacn/molgnn/internal/infrastructure/monitoring/logging"
)

type trainOptions struct {
	modelType string
	task      string
	input     string
	savePath  string
	epochs    int
	batchSize int
	lr        float64
	numLayers int
	embDim    int
	seed      int64
}

// trainSummary is the result printed after a fine-tuning run.
type trainSummary struct {
	RunID     string        `json:"run_id"`
	ModelType string        `json:"model_type"`
	Molecules int           `json:"molecules"`
	Epochs    int           `json:"epochs"`
	Elapsed   time.Duration `json:"elapsed"`
	SavedTo   string        `json:"saved_to,omitempty"`
}

func (s trainSummary) String() string {
	out := fmt.Sprintf("run %s: fine-tuned %s on %d molecules for %d epochs in %s",
		s.RunID, s.ModelType, s.Molecules, s.Epochs, s.Elapsed.Round(time.Millisecond))
	if s.SavedTo != "" {
		out += fmt.Sprintf("\nsaved model to %s", s.SavedTo)
	}
	return out
}

// NewTrainCommand creates the train command, which fine-tunes a pretrained
// model on a labeled SMILES dataset.
func NewTrainCommand() *cobra.Command {
	opts := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fine-tune a pretrained model on a labeled dataset",
		Long:  "Fine-tune a pretrained graph neural network on a CSV dataset of SMILES\nstrings and numeric labels, optionally saving the resulting weights.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, opts)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.modelType, "model", "", "pretrained model type (see 'molgnn models')")
	fl.StringVar(&opts.task, "task", "", "task setting: classification or regression")
	fl.StringVar(&opts.input, "input", "", "CSV dataset of smiles,label rows (required)")
	fl.StringVar(&opts.savePath, "save", "", "write fine-tuned model to this file")
	fl.IntVar(&opts.epochs, "epochs", 0, "training epochs")
	fl.IntVar(&opts.batchSize, "batch-size", 0, "batch size")
	fl.Float64Var(&opts.lr, "lr", 0, "learning rate")
	fl.IntVar(&opts.numLayers, "layers", 0, "message passing layers")
	fl.IntVar(&opts.embDim, "dim", 0, "embedding dimension")
	fl.Int64Var(&opts.seed, "seed", 0, "random seed")
	cmd.MarkFlagRequired("input")

	return cmd
}

// applyModelFlags overrides configuration fields with explicitly-set flags.
func applyModelFlags(cmd *cobra.Command, cfg *gnn.ModelConfig, opts *trainOptions) {
	fl := cmd.Flags()
	if fl.Changed("model") {
		cfg.ModelType = opts.modelType
	}
	if fl.Changed("task") {
		cfg.Task = gnn.TaskSetting(opts.task)
	}
	if fl.Changed("epochs") {
		cfg.Epochs = opts.epochs
	}
	if fl.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if fl.Changed("lr") {
		cfg.LR = opts.lr
	}
	if fl.Changed("layers") {
		cfg.NumLayers = opts.numLayers
	}
	if fl.Changed("dim") {
		cfg.EmbDim = opts.embDim
	}
	if fl.Changed("seed") {
		cfg.Seed = opts.seed
	}
}

func runTrain(cmd *cobra.Command, opts *trainOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	smiles, labels, err := readLabeledCSV(opts.input)
	if err != nil {
		return err
	}

	cfg := cliCtx.Config.Model
	applyModelFlags(cmd, &cfg, opts)

	fetcher, err := newFetcher(cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}

	m := setupMetrics(cliCtx)
	fetcher = instrumentFetcher(fetcher, m)
	var trainMetrics gnn.TrainMetrics = gnn.NoopTrainMetrics()
	if m != nil {
		trainMetrics = m
	}

	runID := uuid.NewString()
	logger := cliCtx.Logger.With(logging.String("run_id", runID))

	model, err := gnn.NewModel(cmd.Context(), cfg, fetcher, logger, trainMetrics)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := model.Fit(smiles, labels); err != nil {
		return err
	}
	elapsed := time.Since(start)

	summary := trainSummary{
		RunID:     runID,
		ModelType: model.Config().ModelType,
		Molecules: len(smiles),
		Epochs:    model.Config().Epochs,
		Elapsed:   elapsed,
	}
	if opts.savePath != "" {
		payload, saveErr := model.Save()
		if saveErr != nil {
			return saveErr
		}
		if saveErr := writeModelPayload(opts.savePath, payload); saveErr != nil {
			return saveErr
		}
		summary.SavedTo = opts.savePath
	}
	return PrintResult(cmd, summary)
}
