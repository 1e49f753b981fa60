// Package gnn implements pretrained graph neural network backbones for
// molecular property prediction: feature vocabularies, graph assembly,
// training and inference loops, and the model orchestrator that ties them to
// checkpoint artifacts.
package gnn

import (
	"github.com/turtacn/molgnn/pkg/chem"
	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// Feature vocabularies
// ---------------------------------------------------------------------------

// The vocabularies below are closed and ordered. Embedding tables in the
// pretrained checkpoints are indexed by position, so the order is part of the
// model contract and must never change.

// AtomicNumVocab lists the allowed atomic numbers, 1 through 118.
var AtomicNumVocab = buildAtomicNumVocab()

func buildAtomicNumVocab() []int {
	v := make([]int, 118)
	for i := range v {
		v[i] = i + 1
	}
	return v
}

// FormalChargeVocab lists the allowed formal charges.
var FormalChargeVocab = []int{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4, 5}

// ChiralityVocab lists the allowed chirality tags.
var ChiralityVocab = []chem.ChiralityTag{
	chem.ChiralityUnspecified,
	chem.ChiralityTetrahedralCW,
	chem.ChiralityTetrahedralCCW,
	chem.ChiralityOther,
}

// HybridizationVocab lists the allowed hybridization states.
var HybridizationVocab = []chem.Hybridization{
	chem.HybridizationS,
	chem.HybridizationSP,
	chem.HybridizationSP2,
	chem.HybridizationSP3,
	chem.HybridizationSP3D,
	chem.HybridizationSP3D2,
	chem.HybridizationUnspecified,
}

// NumHVocab lists the allowed total hydrogen counts.
var NumHVocab = []int{0, 1, 2, 3, 4, 5, 6, 7, 8}

// ImplicitValenceVocab lists the allowed implicit valence values.
var ImplicitValenceVocab = []int{0, 1, 2, 3, 4, 5, 6}

// DegreeVocab lists the allowed atom degrees.
var DegreeVocab = []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

// BondKindVocab lists the allowed bond kinds.
var BondKindVocab = []chem.BondKind{
	chem.BondSingle,
	chem.BondDouble,
	chem.BondTriple,
	chem.BondAromatic,
}

// BondDirVocab lists the allowed bond direction markers.
var BondDirVocab = []chem.BondDirection{
	chem.BondDirNone,
	chem.BondDirEndUpRight,
	chem.BondDirEndDownRight,
}

// Embedding table sizes derived from the vocabularies above.
const (
	NumAtomTypes     = 118 // len(AtomicNumVocab)
	NumChiralityTags = 4   // len(ChiralityVocab)
	NumBondTypes     = 4   // len(BondKindVocab)
	NumBondDirs      = 3   // len(BondDirVocab)
)

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// AtomicNumIndex returns the vocabulary index of an atomic number. There is
// no out-of-vocabulary bucket: unknown values are an error.
func AtomicNumIndex(atomicNum int) (int, error) {
	if atomicNum < 1 || atomicNum > 118 {
		return 0, errors.Newf(errors.ErrCodeVocabularyLookup,
			"atomic number %d not in vocabulary [1, 118]", atomicNum)
	}
	return atomicNum - 1, nil
}

// ChiralityIndex returns the vocabulary index of a chirality tag.
func ChiralityIndex(tag chem.ChiralityTag) (int, error) {
	for i, t := range ChiralityVocab {
		if t == tag {
			return i, nil
		}
	}
	return 0, errors.Newf(errors.ErrCodeVocabularyLookup,
		"chirality tag %v not in vocabulary", tag)
}

// BondKindIndex returns the vocabulary index of a bond kind.
func BondKindIndex(kind chem.BondKind) (int, error) {
	for i, k := range BondKindVocab {
		if k == kind {
			return i, nil
		}
	}
	return 0, errors.Newf(errors.ErrCodeVocabularyLookup,
		"bond kind %v not in vocabulary", kind)
}

// BondDirIndex returns the vocabulary index of a bond direction marker.
func BondDirIndex(dir chem.BondDirection) (int, error) {
	for i, d := range BondDirVocab {
		if d == dir {
			return i, nil
		}
	}
	return 0, errors.Newf(errors.ErrCodeVocabularyLookup,
		"bond direction %v not in vocabulary", dir)
}
