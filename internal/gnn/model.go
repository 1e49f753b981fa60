package gnn

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/turtacn/molgnn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// Pretrained model enumeration
// ---------------------------------------------------------------------------

// ModelNames is the closed set of available pretrained checkpoint names.
var ModelNames = []string{
	"contextpred",
	"edgepred",
	"infomax",
	"masking",
	"supervised_contextpred",
	"supervised_edgepred",
	"supervised_infomax",
	"supervised_masking",
	"supervised",
	"gat_supervised_contextpred",
	"gat_supervised",
	"gat_contextpred",
}

// DefaultModelType is used when no model type is configured.
const DefaultModelType = "contextpred"

// gatEmbDim is the embedding width the gat checkpoints were trained with.
const gatEmbDim = 300

func isKnownModelType(name string) bool {
	for _, m := range ModelNames {
		if m == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Checkpoint fetching
// ---------------------------------------------------------------------------

// CheckpointFetcher retrieves a pretrained checkpoint artifact by name.
// Implementations cover local directories, object storage, and in-memory
// fixtures for tests.
type CheckpointFetcher interface {
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// ModelConfig holds every construction parameter of a Model.
type ModelConfig struct {
	ModelType   string      `mapstructure:"model_type" json:"model_type"`
	Task        TaskSetting `mapstructure:"task" json:"task"`
	Device      string      `mapstructure:"device" json:"device"`
	NumWorkers  int         `mapstructure:"num_workers" json:"num_workers"`
	BatchSize   int         `mapstructure:"batch_size" json:"batch_size"`
	Epochs      int         `mapstructure:"epochs" json:"epochs"`
	LR          float64     `mapstructure:"lr" json:"lr"`
	LRScale     float64     `mapstructure:"lr_scale" json:"lr_scale"`
	WeightDecay float64     `mapstructure:"weight_decay" json:"weight_decay"`
	NumLayers   int         `mapstructure:"num_layers" json:"num_layers"`
	EmbDim      int         `mapstructure:"emb_dim" json:"emb_dim"`
	Dropout     float64     `mapstructure:"dropout" json:"dropout"`
	Pooling     Pooling     `mapstructure:"graph_pooling" json:"graph_pooling"`
	JK          JKMode      `mapstructure:"jk" json:"jk"`
	Conv        ConvVariant `mapstructure:"conv" json:"conv"`
	Seed        int64       `mapstructure:"seed" json:"seed"`
}

// DefaultModelConfig returns the configuration the pretrained checkpoints
// assume.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ModelType:   DefaultModelType,
		Task:        TaskClassification,
		Device:      "cpu",
		NumWorkers:  4,
		BatchSize:   32,
		Epochs:      100,
		LR:          0.001,
		LRScale:     1.0,
		WeightDecay: 0,
		NumLayers:   5,
		EmbDim:      300,
		Dropout:     0.5,
		Pooling:     PoolMean,
		JK:          JKLast,
		Conv:        ConvGIN,
	}
}

// resolve applies defaults and the model-type override rule, returning the
// effective configuration. A "gat" substring in the model type forces the
// attention convolution and its fixed embedding width, regardless of what
// the caller requested.
func (c ModelConfig) resolve() (ModelConfig, error) {
	def := DefaultModelConfig()
	if c.ModelType == "" {
		c.ModelType = def.ModelType
	}
	if !isKnownModelType(c.ModelType) {
		return c, errors.Newf(errors.ErrCodeModelType,
			"unknown model type %q; known types: %s", c.ModelType, strings.Join(ModelNames, ", "))
	}
	if c.Task == "" {
		c.Task = def.Task
	}
	if !c.Task.Valid() {
		return c, errors.Newf(errors.ErrCodeInvalidInput, "unknown task setting %q", c.Task)
	}
	if c.Device == "" {
		c.Device = def.Device
	}
	if c.Device != "cpu" {
		return c, errors.Newf(errors.ErrCodeDeviceUnsupported,
			"device %q is not supported; only cpu compute is available", c.Device)
	}
	// Zero is meaningful for Epochs, Dropout, WeightDecay and NumWorkers, so
	// only fields whose zero value is unusable fall back to defaults here.
	// Callers wanting the full default set start from DefaultModelConfig.
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.LR == 0 {
		c.LR = def.LR
	}
	if c.LRScale == 0 {
		c.LRScale = def.LRScale
	}
	if c.NumLayers == 0 {
		c.NumLayers = def.NumLayers
	}
	if c.EmbDim == 0 {
		c.EmbDim = def.EmbDim
	}
	if c.Pooling == "" {
		c.Pooling = def.Pooling
	}
	if c.JK == "" {
		c.JK = def.JK
	}
	if c.Conv == "" {
		c.Conv = def.Conv
	}

	if strings.Contains(c.ModelType, "gat") {
		c.Conv = ConvGAT
		c.EmbDim = gatEmbDim
	}
	return c, nil
}

// backboneConfig projects the architecture fields.
func (c ModelConfig) backboneConfig() BackboneConfig {
	return BackboneConfig{
		NumLayers: c.NumLayers,
		EmbDim:    c.EmbDim,
		Dropout:   c.Dropout,
		Conv:      c.Conv,
		JK:        c.JK,
		Pooling:   c.Pooling,
		Seed:      c.Seed,
	}
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

// Model ties a pretrained backbone to the training and inference loops. It
// owns the backbone's parameter state exclusively; fit mutates it through
// the optimizer, predict treats it as read-only.
type Model struct {
	cfg     ModelConfig
	net     *GraphNet
	logger  logging.Logger
	metrics TrainMetrics
	// epoch seed offset keeps successive Fit calls from replaying the same
	// shuffle order.
	fitCalls int64
}

// NewModel constructs a model, fetching and loading the pretrained weights
// for the configured model type. A fetch or restore failure is fatal; no
// fallback weights are substituted.
func NewModel(ctx context.Context, cfg ModelConfig, fetcher CheckpointFetcher,
	logger logging.Logger, metrics TrainMetrics) (*Model, error) {
	resolved, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "checkpoint fetcher is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = NoopTrainMetrics()
	}

	net, err := NewGraphNet(resolved.backboneConfig())
	if err != nil {
		return nil, err
	}

	rc, err := fetcher.Fetch(ctx, resolved.ModelType)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeArtifactFetch,
			"fetching pretrained checkpoint %q", resolved.ModelType)
	}
	defer rc.Close()

	ck, err := ReadCheckpoint(rc)
	if err != nil {
		return nil, err
	}
	if err := Restore(net, ck); err != nil {
		return nil, err
	}

	logger.Info("model constructed",
		logging.String("model_type", resolved.ModelType),
		logging.String("conv", string(resolved.Conv)),
		logging.Int("emb_dim", resolved.EmbDim),
		logging.Int("num_layers", resolved.NumLayers),
	)

	return &Model{
		cfg:     resolved,
		net:     net,
		logger:  logger.Named("gnn"),
		metrics: metrics,
	}, nil
}

// Config returns the resolved configuration.
func (m *Model) Config() ModelConfig { return m.cfg }

// Backbone exposes the underlying network for checkpointing and tests.
func (m *Model) Backbone() *GraphNet { return m.net }

// Preprocess assembles SMILES inputs and labels into graph records. A nil
// label slice synthesizes missing-label markers so prediction inputs satisfy
// the same interface. A non-nil label slice must match the input length.
func (m *Model) Preprocess(smiles []string, labels []float64) ([]*GraphRecord, error) {
	if labels != nil && len(labels) != len(smiles) {
		return nil, errors.Newf(errors.ErrCodeShapeMismatch,
			"%d labels for %d molecules", len(labels), len(smiles))
	}
	records := make([]*GraphRecord, len(smiles))
	for i, s := range smiles {
		label := math.NaN()
		if labels != nil {
			label = labels[i]
		}
		rec, err := NewGraphRecordFromSMILES(s, label)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeUnknown, "preprocessing molecule %d", i)
		}
		records[i] = rec
	}
	return records, nil
}

// Fit fine-tunes the backbone on labeled molecules for the configured epoch
// count. Batches are drawn from a shuffled stream; epoch count is the sole
// stopping criterion.
func (m *Model) Fit(smiles []string, labels []float64) error {
	if labels == nil {
		return errors.New(errors.ErrCodeInvalidInput, "fit requires labels")
	}
	records, err := m.Preprocess(smiles, labels)
	if err != nil {
		return err
	}
	loader, err := NewLoader(records, LoaderConfig{
		BatchSize:  m.cfg.BatchSize,
		Shuffle:    true,
		Seed:       m.cfg.Seed + m.fitCalls,
		NumWorkers: m.cfg.NumWorkers,
	})
	if err != nil {
		return err
	}
	m.fitCalls++

	opt, err := NewAdam(BuildOptimizerGroups(m.net, m.cfg.LR, m.cfg.LRScale), m.cfg.WeightDecay)
	if err != nil {
		return err
	}

	m.logger.Info("fit starting",
		logging.Int("molecules", len(smiles)),
		logging.Int("epochs", m.cfg.Epochs),
		logging.Int("batch_size", m.cfg.BatchSize),
	)
	return Train(m.net, loader, opt, m.cfg.Task, m.cfg.Epochs, m.logger, m.metrics)
}

// Predict scores molecules and returns one prediction per input, in input
// order. Classification outputs are probabilities in [0, 1]; regression
// outputs are raw scores. An empty input yields an empty, non-nil slice.
func (m *Model) Predict(smiles []string) ([]float64, error) {
	records, err := m.Preprocess(smiles, nil)
	if err != nil {
		return nil, err
	}
	loader, err := NewLoader(records, LoaderConfig{
		BatchSize:  m.cfg.BatchSize,
		Shuffle:    false,
		NumWorkers: m.cfg.NumWorkers,
	})
	if err != nil {
		return nil, err
	}
	return Predict(m.net, loader, m.cfg.Task)
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// SaveKeyModel is the payload key carrying the serialized model blob. Load
// rejects payloads missing it.
const SaveKeyModel = "model"

// savedModel is the gob payload stored under SaveKeyModel.
type savedModel struct {
	Config     ModelConfig
	Checkpoint *Checkpoint
}

// Save serializes the model into a string-keyed payload: descriptive
// metadata plus the full model blob under SaveKeyModel.
func (m *Model) Save() (map[string][]byte, error) {
	meta, err := json.Marshal(m.cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding model metadata")
	}

	var blob []byte
	blob, err = encodeSavedModel(&savedModel{Config: m.cfg, Checkpoint: Snapshot(m.net)})
	if err != nil {
		return nil, err
	}
	return map[string][]byte{
		"model_type": []byte(m.cfg.ModelType),
		"config":     meta,
		SaveKeyModel: blob,
	}, nil
}

// Load restores model state from a payload produced by Save. The payload
// must carry the SaveKeyModel blob; the in-memory backbone is replaced
// wholesale.
func (m *Model) Load(payload map[string][]byte) error {
	blob, ok := payload[SaveKeyModel]
	if !ok {
		return errors.Newf(errors.ErrCodeSerialization,
			"payload is missing the %q key", SaveKeyModel)
	}
	saved, err := decodeSavedModel(blob)
	if err != nil {
		return err
	}
	net, err := NewGraphNet(saved.Config.backboneConfig())
	if err != nil {
		return err
	}
	if err := Restore(net, saved.Checkpoint); err != nil {
		return err
	}
	m.cfg = saved.Config
	m.net = net
	return nil
}

// LoadModel constructs a model directly from a payload produced by Save,
// bypassing the pretrained checkpoint fetch. Used to resume from fine-tuned
// weights persisted on disk.
func LoadModel(payload map[string][]byte, logger logging.Logger, metrics TrainMetrics) (*Model, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = NoopTrainMetrics()
	}
	m := &Model{logger: logger.Named("gnn"), metrics: metrics}
	if err := m.Load(payload); err != nil {
		return nil, err
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

// AllInstances constructs one model per available pretrained checkpoint,
// sharing the fetcher and every other configuration field. Used for batch
// evaluation across the whole model family. Construction failures abort the
// enumeration.
func AllInstances(ctx context.Context, base ModelConfig, fetcher CheckpointFetcher,
	logger logging.Logger, metrics TrainMetrics) ([]*Model, error) {
	models := make([]*Model, 0, len(ModelNames))
	for _, name := range ModelNames {
		cfg := base
		cfg.ModelType = name
		m, err := NewModel(ctx, cfg, fetcher, logger, metrics)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeUnknown, "constructing %q", name)
		}
		models = append(models, m)
	}
	return models, nil
}
