package gnn

import (
	"github.com/turtacn/molgnn/pkg/errors"
)

// Predict runs the backbone over an order-preserving batch stream and
// returns one prediction per input record, aligned with the loader's record
// order. The model is placed in inference mode for the duration, so no
// gradient buffers are allocated and dropout is inactive. Classification
// scores pass through the logistic transform; regression scores are returned
// raw.
func Predict(net Backbone, loader *Loader, task TaskSetting) ([]float64, error) {
	if !task.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "unknown task setting %q", task)
	}

	wasTraining := net.Training()
	net.SetTraining(false)
	defer net.SetTraining(wasTraining)

	out := make([]float64, 0, len(loader.records))
	stream, errc := loader.Stream()
	for batch := range stream {
		res, err := net.Forward(batch)
		if err == nil && len(res.Scores) != batch.NumGraphs {
			err = errors.Newf(errors.ErrCodeShapeMismatch,
				"%d predictions for %d graphs in batch", len(res.Scores), batch.NumGraphs)
		}
		if err != nil {
			// Drain the stream so the loader's delivery goroutine can finish
			// instead of blocking on the abandoned channel.
			for range stream {
			}
			return nil, err
		}
		out = append(out, res.Scores...)
	}
	if err := <-errc; err != nil {
		return nil, err
	}

	if task == TaskClassification {
		for i, s := range out {
			out[i] = sigmoid(s)
		}
	}
	return out, nil
}
