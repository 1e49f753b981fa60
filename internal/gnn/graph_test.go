package gnn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgnn/pkg/chem"
	"github.com/turtacn/molgnn/pkg/errors"
)

func TestEncodeAtomDeterministic(t *testing.T) {
	atom := chem.Atom{AtomicNum: 6, Chirality: chem.ChiralityTetrahedralCW}
	first, err := EncodeAtom(atom)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := EncodeAtom(atom)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, [NumAtomFeatures]int{5, 1}, first)
}

func TestEncodeAtomOutOfVocabulary(t *testing.T) {
	_, err := EncodeAtom(chem.Atom{AtomicNum: 0})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))
}

func TestEncodeBond(t *testing.T) {
	enc, err := EncodeBond(chem.Bond{Kind: chem.BondDouble, Direction: chem.BondDirEndUpRight})
	require.NoError(t, err)
	assert.Equal(t, [NumBondFeatures]int{1, 1}, enc)
}

func TestNewGraphRecordAddsBothDirections(t *testing.T) {
	rec, err := NewGraphRecordFromSMILES("CCO", 1.0)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.NumNodes())
	// Two bonds, each contributing a directed edge pair.
	require.Equal(t, 4, rec.NumEdges())
	assert.Equal(t, [2]int{0, 1}, rec.EdgeIndex[0])
	assert.Equal(t, [2]int{1, 0}, rec.EdgeIndex[1])
	assert.Equal(t, rec.EdgeFeatures[0], rec.EdgeFeatures[1])
	assert.Equal(t, 1.0, rec.Label)
}

func TestNewGraphRecordMissingLabel(t *testing.T) {
	rec, err := NewGraphRecordFromSMILES("C", math.NaN())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(rec.Label))
	assert.Equal(t, 0, rec.NumEdges())
}

func TestNewGraphRecordOutOfVocab(t *testing.T) {
	mol := &chem.Molecule{Atoms: []chem.Atom{{AtomicNum: 200}}}
	_, err := NewGraphRecord(mol, 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))
}

func TestPackBatchOffsetsIndices(t *testing.T) {
	a, err := NewGraphRecordFromSMILES("CC", 0)
	require.NoError(t, err)
	b, err := NewGraphRecordFromSMILES("CCC", 1)
	require.NoError(t, err)

	batch, err := PackBatch([]*GraphRecord{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, batch.NumGraphs)
	assert.Equal(t, 5, batch.NumNodes())
	assert.Equal(t, []int{0, 0, 1, 1, 1}, batch.Batch)
	assert.Equal(t, []float64{0, 1}, batch.Labels)

	// The second record's edges are shifted past the first record's nodes.
	assert.Equal(t, [2]int{0, 1}, batch.EdgeIndex[0])
	assert.Equal(t, [2]int{2, 3}, batch.EdgeIndex[2])
	assert.Equal(t, [2]int{3, 2}, batch.EdgeIndex[3])
}

func TestPackBatchRejectsEmptyRecord(t *testing.T) {
	_, err := PackBatch([]*GraphRecord{{}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeShapeMismatch, errors.GetCode(err))
}

func TestHasLabels(t *testing.T) {
	a, err := NewGraphRecordFromSMILES("C", 1)
	require.NoError(t, err)
	b, err := NewGraphRecordFromSMILES("C", math.NaN())
	require.NoError(t, err)

	labeled, err := PackBatch([]*GraphRecord{a})
	require.NoError(t, err)
	assert.True(t, labeled.HasLabels())

	mixed, err := PackBatch([]*GraphRecord{a, b})
	require.NoError(t, err)
	assert.False(t, mixed.HasLabels())
}
