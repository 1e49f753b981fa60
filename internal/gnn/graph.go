package gnn

import (
	"math"

	"github.com/turtacn/molgnn/pkg/chem"
	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// Graph records
// ---------------------------------------------------------------------------

// GraphRecord is a single molecule assembled into model-ready tensors.
// Each chemical bond contributes two directed edges so that message passing
// flows both ways.
type GraphRecord struct {
	// AtomFeatures holds one index pair per node.
	AtomFeatures [][NumAtomFeatures]int
	// EdgeIndex holds (source, target) node indices per directed edge.
	EdgeIndex [][2]int
	// EdgeFeatures holds one index pair per directed edge, aligned with
	// EdgeIndex.
	EdgeFeatures [][NumBondFeatures]int
	// Label is the regression target or binary class label. NaN marks a
	// missing label, as produced for unlabeled prediction inputs.
	Label float64
	// SMILES is retained for diagnostics.
	SMILES string
}

// NumNodes returns the number of nodes in the record.
func (g *GraphRecord) NumNodes() int { return len(g.AtomFeatures) }

// NumEdges returns the number of directed edges in the record.
func (g *GraphRecord) NumEdges() int { return len(g.EdgeIndex) }

// NewGraphRecord assembles a molecule and its label into a GraphRecord.
// Pass NaN as the label for unlabeled inputs.
func NewGraphRecord(mol *chem.Molecule, label float64) (*GraphRecord, error) {
	atoms, bonds, err := EncodeMolecule(mol)
	if err != nil {
		return nil, err
	}

	rec := &GraphRecord{
		AtomFeatures: atoms,
		EdgeIndex:    make([][2]int, 0, 2*len(bonds)),
		EdgeFeatures: make([][NumBondFeatures]int, 0, 2*len(bonds)),
		Label:        label,
		SMILES:       mol.SMILES,
	}
	for i, b := range mol.Bonds {
		rec.EdgeIndex = append(rec.EdgeIndex, [2]int{b.Begin, b.End})
		rec.EdgeFeatures = append(rec.EdgeFeatures, bonds[i])
		rec.EdgeIndex = append(rec.EdgeIndex, [2]int{b.End, b.Begin})
		rec.EdgeFeatures = append(rec.EdgeFeatures, bonds[i])
	}
	return rec, nil
}

// NewGraphRecordFromSMILES parses a SMILES string and assembles it.
func NewGraphRecordFromSMILES(smiles string, label float64) (*GraphRecord, error) {
	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return NewGraphRecord(mol, label)
}

// ---------------------------------------------------------------------------
// Batching
// ---------------------------------------------------------------------------

// GraphBatch packs several records into one disjoint-union graph. Node and
// edge indices are offset so every record keeps its own connectivity, and
// Batch maps each node back to the record it came from.
type GraphBatch struct {
	AtomFeatures [][NumAtomFeatures]int
	EdgeIndex    [][2]int
	EdgeFeatures [][NumBondFeatures]int
	// Batch[i] is the index within this batch of the record node i belongs to.
	Batch []int
	// Labels holds one label per record, in record order.
	Labels []float64
	// NumGraphs is the number of records packed into the batch.
	NumGraphs int
}

// PackBatch assembles records into a single batch. Records keep their input
// order: Labels[k] and batch component k correspond to records[k].
func PackBatch(records []*GraphRecord) (*GraphBatch, error) {
	batch := &GraphBatch{NumGraphs: len(records)}
	offset := 0
	for k, rec := range records {
		if rec == nil || rec.NumNodes() == 0 {
			return nil, errors.Newf(errors.ErrCodeShapeMismatch,
				"record %d in batch has no nodes", k)
		}
		if len(rec.EdgeIndex) != len(rec.EdgeFeatures) {
			return nil, errors.Newf(errors.ErrCodeShapeMismatch,
				"record %d: %d edges but %d edge features",
				k, len(rec.EdgeIndex), len(rec.EdgeFeatures))
		}
		batch.AtomFeatures = append(batch.AtomFeatures, rec.AtomFeatures...)
		for _, e := range rec.EdgeIndex {
			batch.EdgeIndex = append(batch.EdgeIndex, [2]int{e[0] + offset, e[1] + offset})
		}
		batch.EdgeFeatures = append(batch.EdgeFeatures, rec.EdgeFeatures...)
		for i := 0; i < rec.NumNodes(); i++ {
			batch.Batch = append(batch.Batch, k)
		}
		batch.Labels = append(batch.Labels, rec.Label)
		offset += rec.NumNodes()
	}
	return batch, nil
}

// NumNodes returns the total node count across all records in the batch.
func (b *GraphBatch) NumNodes() int { return len(b.AtomFeatures) }

// HasLabels reports whether every record in the batch carries a label.
func (b *GraphBatch) HasLabels() bool {
	for _, y := range b.Labels {
		if math.IsNaN(y) {
			return false
		}
	}
	return len(b.Labels) > 0
}
