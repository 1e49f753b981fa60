package gnn

import (
	"github.com/turtacn/molgnn/pkg/chem"
	"github.com/turtacn/molgnn/pkg/errors"
)

// Atom and bond features are encoded as index pairs into the embedding
// tables, matching the layout the pretrained checkpoints were trained with:
// atoms carry (atomic number index, chirality index), bonds carry
// (bond kind index, bond direction index).

const (
	// NumAtomFeatures is the number of categorical features per atom.
	NumAtomFeatures = 2
	// NumBondFeatures is the number of categorical features per bond.
	NumBondFeatures = 2
)

// EncodeAtom maps an atom to its embedding index pair.
func EncodeAtom(a chem.Atom) ([NumAtomFeatures]int, error) {
	var out [NumAtomFeatures]int
	ai, err := AtomicNumIndex(a.AtomicNum)
	if err != nil {
		return out, err
	}
	ci, err := ChiralityIndex(a.Chirality)
	if err != nil {
		return out, err
	}
	out[0], out[1] = ai, ci
	return out, nil
}

// EncodeBond maps a bond to its embedding index pair.
func EncodeBond(b chem.Bond) ([NumBondFeatures]int, error) {
	var out [NumBondFeatures]int
	ki, err := BondKindIndex(b.Kind)
	if err != nil {
		return out, err
	}
	di, err := BondDirIndex(b.Direction)
	if err != nil {
		return out, err
	}
	out[0], out[1] = ki, di
	return out, nil
}

// EncodeMolecule encodes all atoms and bonds of a molecule. Errors carry the
// offending atom or bond index in their detail.
func EncodeMolecule(mol *chem.Molecule) (atoms [][NumAtomFeatures]int, bonds [][NumBondFeatures]int, err error) {
	atoms = make([][NumAtomFeatures]int, len(mol.Atoms))
	for i, a := range mol.Atoms {
		atoms[i], err = EncodeAtom(a)
		if err != nil {
			return nil, nil, errors.Wrapf(err, errors.ErrCodeVocabularyLookup,
				"encoding atom %d of %q", i, mol.SMILES)
		}
	}
	bonds = make([][NumBondFeatures]int, len(mol.Bonds))
	for i, b := range mol.Bonds {
		bonds[i], err = EncodeBond(b)
		if err != nil {
			return nil, nil, errors.Wrapf(err, errors.ErrCodeVocabularyLookup,
				"encoding bond %d of %q", i, mol.SMILES)
		}
	}
	return atoms, bonds, nil
}
