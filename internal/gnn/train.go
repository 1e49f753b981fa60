package gnn

import (
	"math"
	"time"

	"github.com/turtacn/molgnn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgnn/pkg/errors"
)

// TaskSetting selects the loss and output transform.
type TaskSetting string

const (
	TaskClassification TaskSetting = "classification"
	TaskRegression     TaskSetting = "regression"
)

// Valid reports whether the task setting is recognized.
func (ts TaskSetting) Valid() bool {
	return ts == TaskClassification || ts == TaskRegression
}

// TrainMetrics receives per-epoch training observations. Implementations
// must be safe for reuse across runs.
type TrainMetrics interface {
	ObserveEpoch(epoch int, loss float64, elapsed time.Duration)
	ObserveBatch(loss float64)
}

// noopTrainMetrics discards all observations.
type noopTrainMetrics struct{}

func (noopTrainMetrics) ObserveEpoch(int, float64, time.Duration) {}
func (noopTrainMetrics) ObserveBatch(float64)                     {}

// NoopTrainMetrics returns a metrics sink that discards everything.
func NoopTrainMetrics() TrainMetrics { return noopTrainMetrics{} }

// Train drives the backbone through the given number of epochs. Each epoch
// draws a fresh (reshuffled) batch stream from the loader, computes the task
// loss per batch, backpropagates, and applies one optimizer step per batch.
// Epoch count is the sole stopping criterion. Shape mismatches and missing
// labels are fatal.
func Train(net Backbone, loader *Loader, opt *Adam, task TaskSetting, epochs int,
	logger logging.Logger, metrics TrainMetrics) error {
	if !task.Valid() {
		return errors.Newf(errors.ErrCodeInvalidInput, "unknown task setting %q", task)
	}
	if epochs < 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "epoch count must be non-negative, got %d", epochs)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = NoopTrainMetrics()
	}

	net.SetTraining(true)
	defer net.SetTraining(false)

	for epoch := 1; epoch <= epochs; epoch++ {
		start := time.Now()
		var epochLoss float64
		var numBatches int

		stream, errc := loader.Stream()
		for batch := range stream {
			loss, err := trainBatch(net, opt, task, batch)
			if err != nil {
				// Drain the stream so the loader's delivery goroutine can
				// finish instead of blocking on the abandoned channel.
				for range stream {
				}
				return err
			}
			epochLoss += loss
			numBatches++
			metrics.ObserveBatch(loss)
		}
		if err := <-errc; err != nil {
			return err
		}

		if numBatches > 0 {
			epochLoss /= float64(numBatches)
		}
		elapsed := time.Since(start)
		metrics.ObserveEpoch(epoch, epochLoss, elapsed)
		logger.Info("epoch complete",
			logging.Int("epoch", epoch),
			logging.Int("batches", numBatches),
			logging.Float64("loss", epochLoss),
			logging.Duration("elapsed", elapsed),
		)
	}
	return nil
}

// trainBatch runs one forward/backward/step cycle and returns the mean loss
// over the batch's elements.
func trainBatch(net Backbone, opt *Adam, task TaskSetting, batch *GraphBatch) (float64, error) {
	for i, y := range batch.Labels {
		if math.IsNaN(y) {
			return 0, errors.Newf(errors.ErrCodeInvalidInput,
				"training batch element %d has no label", i)
		}
	}

	res, err := net.Forward(batch)
	if err != nil {
		return 0, err
	}
	if len(res.Scores) != len(batch.Labels) {
		return 0, errors.Newf(errors.ErrCodeShapeMismatch,
			"%d predictions for %d labels", len(res.Scores), len(batch.Labels))
	}

	loss, grads := batchLoss(task, res.Scores, batch.Labels)

	opt.ZeroGrad()
	if err := res.Backprop(grads); err != nil {
		return 0, err
	}
	opt.Step()
	return loss, nil
}

// batchLoss computes the mean elementwise loss and its gradient with respect
// to the raw scores. Classification uses binary cross-entropy on raw
// (pre-sigmoid) scores in the numerically stable form; regression uses
// squared error. Elementwise losses are averaged after computation.
func batchLoss(task TaskSetting, scores, labels []float64) (float64, []float64) {
	n := float64(len(scores))
	grads := make([]float64, len(scores))
	var total float64
	for i, s := range scores {
		y := labels[i]
		switch task {
		case TaskClassification:
			// max(s,0) - s*y + log(1 + exp(-|s|))
			total += math.Max(s, 0) - s*y + math.Log1p(math.Exp(-math.Abs(s)))
			grads[i] = (sigmoid(s) - y) / n
		case TaskRegression:
			d := s - y
			total += d * d
			grads[i] = 2 * d / n
		}
	}
	return total / n, grads
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
