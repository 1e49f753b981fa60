package gnn

import (
	"math/rand"
	"sync"

	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// Batch loader
// ---------------------------------------------------------------------------

// LoaderConfig controls batch assembly.
type LoaderConfig struct {
	// BatchSize is the number of records per batch. The final batch may be
	// smaller. Must be positive.
	BatchSize int
	// Shuffle reorders records before chunking. Used for training streams;
	// prediction streams must keep input order.
	Shuffle bool
	// Seed drives the shuffle permutation so runs are reproducible.
	Seed int64
	// NumWorkers is the number of goroutines packing batches ahead of the
	// consumer. Zero or one means synchronous packing. Batch order is
	// preserved regardless of worker count.
	NumWorkers int
}

// Loader chunks graph records into packed batches. Construction snapshots
// the record order; Stream can be called repeatedly (once per epoch) and
// reshuffles on each call when Shuffle is set.
type Loader struct {
	records []*GraphRecord
	cfg     LoaderConfig
	rng     *rand.Rand
}

// NewLoader builds a loader over the given records.
func NewLoader(records []*GraphRecord, cfg LoaderConfig) (*Loader, error) {
	if cfg.BatchSize <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.NumWorkers < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"worker count must be non-negative, got %d", cfg.NumWorkers)
	}
	return &Loader{
		records: records,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// NumBatches returns the number of batches one pass over the records yields.
func (l *Loader) NumBatches() int {
	n := len(l.records)
	if n == 0 {
		return 0
	}
	return (n + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// Stream returns one epoch of packed batches in a deterministic order. When
// Shuffle is set the record order is permuted with the loader's seeded
// generator, so successive epochs see different permutations but the whole
// sequence is reproducible from the seed. Packing work is spread over
// NumWorkers goroutines; the returned channel still yields batches in chunk
// order. A packing error is delivered through the second channel after the
// batch channel closes.
func (l *Loader) Stream() (<-chan *GraphBatch, <-chan error) {
	order := make([]int, len(l.records))
	for i := range order {
		order[i] = i
	}
	if l.cfg.Shuffle {
		l.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	numBatches := l.NumBatches()
	out := make(chan *GraphBatch)
	errc := make(chan error, 1)

	// One single-slot channel per chunk keeps delivery in chunk order while
	// letting workers pack ahead.
	slots := make([]chan *GraphBatch, numBatches)
	for i := range slots {
		slots[i] = make(chan *GraphBatch, 1)
	}

	workers := l.cfg.NumWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > numBatches && numBatches > 0 {
		workers = numBatches
	}

	chunks := make(chan int)
	var firstErr error
	var errOnce sync.Once

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chunks {
				lo := c * l.cfg.BatchSize
				hi := lo + l.cfg.BatchSize
				if hi > len(order) {
					hi = len(order)
				}
				chunk := make([]*GraphRecord, 0, hi-lo)
				for _, idx := range order[lo:hi] {
					chunk = append(chunk, l.records[idx])
				}
				batch, err := PackBatch(chunk)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					close(slots[c])
					continue
				}
				slots[c] <- batch
				close(slots[c])
			}
		}()
	}

	go func() {
		for c := 0; c < numBatches; c++ {
			chunks <- c
		}
		close(chunks)
	}()

	go func() {
		defer close(errc)
		defer close(out)
		for c := 0; c < numBatches; c++ {
			batch, ok := <-slots[c]
			if !ok {
				break
			}
			out <- batch
		}
		wg.Wait()
		if firstErr != nil {
			errc <- firstErr
		}
	}()

	return out, errc
}

// Collect drains one epoch into a slice. Mostly a convenience for tests and
// the prediction path, where the full batch list is iterated immediately.
func (l *Loader) Collect() ([]*GraphBatch, error) {
	batches := make([]*GraphBatch, 0, l.NumBatches())
	stream, errc := l.Stream()
	for b := range stream {
		batches = append(batches, b)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return batches, nil
}
