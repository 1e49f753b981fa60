package gnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgnn/pkg/chem"
	"github.com/turtacn/molgnn/pkg/errors"
)

func TestAtomicNumIndex(t *testing.T) {
	idx, err := AtomicNumIndex(1)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = AtomicNumIndex(6)
	require.NoError(t, err)
	assert.Equal(t, 5, idx)

	idx, err = AtomicNumIndex(118)
	require.NoError(t, err)
	assert.Equal(t, 117, idx)
}

func TestAtomicNumIndexZeroIsError(t *testing.T) {
	_, err := AtomicNumIndex(0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))

	_, err = AtomicNumIndex(119)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))

	_, err = AtomicNumIndex(-1)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))
}

func TestVocabularySizes(t *testing.T) {
	assert.Len(t, AtomicNumVocab, NumAtomTypes)
	assert.Len(t, ChiralityVocab, NumChiralityTags)
	assert.Len(t, BondKindVocab, NumBondTypes)
	assert.Len(t, BondDirVocab, NumBondDirs)
	assert.Len(t, FormalChargeVocab, 11)
	assert.Len(t, HybridizationVocab, 7)
	assert.Len(t, NumHVocab, 9)
	assert.Len(t, ImplicitValenceVocab, 7)
	assert.Len(t, DegreeVocab, 11)
}

func TestVocabularyOrderIsStable(t *testing.T) {
	// Embedding tables are positional; these orderings are load-bearing.
	assert.Equal(t, 1, AtomicNumVocab[0])
	assert.Equal(t, 118, AtomicNumVocab[117])
	assert.Equal(t, -5, FormalChargeVocab[0])
	assert.Equal(t, chem.ChiralityUnspecified, ChiralityVocab[0])
	assert.Equal(t, chem.BondSingle, BondKindVocab[0])
	assert.Equal(t, chem.BondAromatic, BondKindVocab[3])
	assert.Equal(t, chem.BondDirNone, BondDirVocab[0])
}

func TestChiralityIndex(t *testing.T) {
	for want, tag := range ChiralityVocab {
		got, err := ChiralityIndex(tag)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ChiralityIndex(chem.ChiralityTag(42))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))
}

func TestBondIndexes(t *testing.T) {
	idx, err := BondKindIndex(chem.BondAromatic)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = BondKindIndex(chem.BondKind(9))
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))

	idx, err = BondDirIndex(chem.BondDirEndDownRight)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = BondDirIndex(chem.BondDirection(9))
	assert.Equal(t, errors.ErrCodeVocabularyLookup, errors.GetCode(err))
}
