// Package chem defines the molecular value types consumed by the graph
// featurization layer. The enums mirror the chemistry vocabulary the
// pretrained backbones were trained against; their numeric values are part of
// the model contract and must never be reordered.
package chem

import "fmt"

// ChiralityTag enumerates the tetrahedral chirality of an atom.
type ChiralityTag int

const (
	ChiralityUnspecified ChiralityTag = iota
	ChiralityTetrahedralCW
	ChiralityTetrahedralCCW
	ChiralityOther
)

func (c ChiralityTag) String() string {
	switch c {
	case ChiralityUnspecified:
		return "UNSPECIFIED"
	case ChiralityTetrahedralCW:
		return "TETRAHEDRAL_CW"
	case ChiralityTetrahedralCCW:
		return "TETRAHEDRAL_CCW"
	case ChiralityOther:
		return "OTHER"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// Hybridization enumerates atomic orbital hybridization states.
type Hybridization int

const (
	HybridizationS Hybridization = iota
	HybridizationSP
	HybridizationSP2
	HybridizationSP3
	HybridizationSP3D
	HybridizationSP3D2
	HybridizationUnspecified
)

func (h Hybridization) String() string {
	switch h {
	case HybridizationS:
		return "S"
	case HybridizationSP:
		return "SP"
	case HybridizationSP2:
		return "SP2"
	case HybridizationSP3:
		return "SP3"
	case HybridizationSP3D:
		return "SP3D"
	case HybridizationSP3D2:
		return "SP3D2"
	case HybridizationUnspecified:
		return "UNSPECIFIED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(h))
	}
}

// BondKind enumerates covalent bond orders.
type BondKind int

const (
	BondSingle BondKind = iota
	BondDouble
	BondTriple
	BondAromatic
)

func (b BondKind) String() string {
	switch b {
	case BondSingle:
		return "SINGLE"
	case BondDouble:
		return "DOUBLE"
	case BondTriple:
		return "TRIPLE"
	case BondAromatic:
		return "AROMATIC"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(b))
	}
}

// BondDirection enumerates wedge direction markers carrying double-bond
// stereo information.
type BondDirection int

const (
	BondDirNone BondDirection = iota
	BondDirEndUpRight
	BondDirEndDownRight
)

func (d BondDirection) String() string {
	switch d {
	case BondDirNone:
		return "NONE"
	case BondDirEndUpRight:
		return "ENDUPRIGHT"
	case BondDirEndDownRight:
		return "ENDDOWNRIGHT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(d))
	}
}

// Atom is a single atom within a molecule.
type Atom struct {
	AtomicNum       int           `json:"atomic_num"`
	FormalCharge    int           `json:"formal_charge"`
	Chirality       ChiralityTag  `json:"chirality"`
	Hybridization   Hybridization `json:"hybridization"`
	NumH            int           `json:"num_h"`
	ImplicitValence int           `json:"implicit_valence"`
	Degree          int           `json:"degree"`
	IsAromatic      bool          `json:"is_aromatic"`
}

// Bond is a single bond within a molecule. Begin and End are zero-based atom
// indices into the owning Molecule's Atoms slice.
type Bond struct {
	Begin     int           `json:"begin"`
	End       int           `json:"end"`
	Kind      BondKind      `json:"kind"`
	Direction BondDirection `json:"direction"`
}

// Molecule is an immutable molecular graph. SMILES is retained for
// diagnostics when the molecule was parsed from text.
type Molecule struct {
	Atoms  []Atom `json:"atoms"`
	Bonds  []Bond `json:"bonds"`
	SMILES string `json:"smiles,omitempty"`
}

// NumAtoms returns the number of atoms in the molecule.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the number of bonds in the molecule.
func (m *Molecule) NumBonds() int { return len(m.Bonds) }
