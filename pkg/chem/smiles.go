package chem

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// SMILES validation
// ---------------------------------------------------------------------------

const maxSMILESLength = 5000

// smilesPattern is a lightweight character-level check. Structural errors are
// caught by the parser itself.
var smilesPattern = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$:/\\.%]+$`)

// ValidateSMILES performs lightweight structural validation of a SMILES string.
func ValidateSMILES(smiles string) error {
	if smiles == "" {
		return errors.New(errors.ErrCodeMoleculeInvalidSMILES, "SMILES string is empty")
	}
	if len(smiles) > maxSMILESLength {
		return errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
			"SMILES string exceeds maximum length (%d)", maxSMILESLength)
	}
	if !smilesPattern.MatchString(smiles) {
		return errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
			"SMILES contains invalid characters: %s", smiles)
	}
	if !balancedBrackets(smiles) {
		return errors.New(errors.ErrCodeMoleculeInvalidSMILES, "SMILES has unbalanced brackets")
	}
	return nil
}

// balancedBrackets checks that [ ] and ( ) are balanced and correctly nested.
func balancedBrackets(s string) bool {
	var stack []rune
	for _, ch := range s {
		switch ch {
		case '[', '(':
			stack = append(stack, ch)
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// ---------------------------------------------------------------------------
// Atom property tables
// ---------------------------------------------------------------------------

// atomicNumberMap maps element symbols to atomic numbers.
var atomicNumberMap = map[string]int{
	"H": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8,
	"F": 9, "Ne": 10, "Na": 11, "Mg": 12, "Al": 13, "Si": 14, "P": 15,
	"S": 16, "Cl": 17, "Ar": 18, "K": 19, "Ca": 20, "Fe": 26, "Cu": 29,
	"Zn": 30, "As": 33, "Se": 34, "Br": 35, "Sn": 50, "I": 53, "Pt": 78,
	"Au": 79, "Hg": 80,
}

// defaultValence gives the standard valence used to estimate implicit
// hydrogen counts for organic-subset atoms.
var defaultValence = map[int]int{
	5: 3, 6: 4, 7: 3, 8: 2, 9: 1, 15: 3, 16: 2, 17: 1, 35: 1, 53: 1,
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// openRing tracks a ring-closure number waiting for its matching digit.
type openRing struct {
	atom int
	kind BondKind
}

// ParseSMILES converts a SMILES string into a Molecule. The parser supports
// the organic subset, bracket atoms with charge and explicit hydrogens,
// branches, ring closures (single-digit and %nn), aromatic lowercase atoms,
// stereo slash markers, and dot-separated fragments.
func ParseSMILES(smiles string) (*Molecule, error) {
	if err := ValidateSMILES(smiles); err != nil {
		return nil, err
	}

	mol := &Molecule{SMILES: smiles}
	runes := []rune(smiles)

	var branchStack []int
	rings := make(map[int]openRing)
	prevAtom := -1
	nextKind := BondKind(-1) // -1 means "unset"; resolved per-bond
	nextDir := BondDirNone

	addBond := func(a, b int, kind BondKind, dir BondDirection) {
		if kind == BondKind(-1) {
			if mol.Atoms[a].IsAromatic && mol.Atoms[b].IsAromatic {
				kind = BondAromatic
			} else {
				kind = BondSingle
			}
		}
		mol.Bonds = append(mol.Bonds, Bond{Begin: a, End: b, Kind: kind, Direction: dir})
		mol.Atoms[a].Degree++
		mol.Atoms[b].Degree++
	}

	closeRing := func(num, atomIdx int) {
		if open, ok := rings[num]; ok {
			kind := nextKind
			if kind == BondKind(-1) {
				kind = open.kind
			}
			addBond(open.atom, atomIdx, kind, BondDirNone)
			delete(rings, num)
		} else {
			rings[num] = openRing{atom: atomIdx, kind: nextKind}
		}
		nextKind = BondKind(-1)
	}

	i := 0
	for i < len(runes) {
		ch := runes[i]

		switch {
		case ch == '(':
			if prevAtom >= 0 {
				branchStack = append(branchStack, prevAtom)
			}
			i++

		case ch == ')':
			if len(branchStack) > 0 {
				prevAtom = branchStack[len(branchStack)-1]
				branchStack = branchStack[:len(branchStack)-1]
			}
			i++

		case ch == '-':
			nextKind = BondSingle
			i++
		case ch == '=':
			nextKind = BondDouble
			i++
		case ch == '#':
			nextKind = BondTriple
			i++
		case ch == ':':
			nextKind = BondAromatic
			i++
		case ch == '/':
			nextDir = BondDirEndUpRight
			i++
		case ch == '\\':
			nextDir = BondDirEndDownRight
			i++

		case ch == '.':
			prevAtom = -1
			nextKind = BondKind(-1)
			i++

		case ch == '%':
			if i+2 >= len(runes) || !unicode.IsDigit(runes[i+1]) || !unicode.IsDigit(runes[i+2]) {
				return nil, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
					"malformed ring closure at position %d in %q", i, smiles)
			}
			if prevAtom < 0 {
				return nil, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
					"ring closure before any atom at position %d in %q", i, smiles)
			}
			num := int(runes[i+1]-'0')*10 + int(runes[i+2]-'0')
			closeRing(num, prevAtom)
			i += 3

		case ch >= '0' && ch <= '9':
			if prevAtom < 0 {
				return nil, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
					"ring closure before any atom at position %d in %q", i, smiles)
			}
			closeRing(int(ch-'0'), prevAtom)
			i++

		case ch == '[':
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return nil, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
					"unclosed bracket at position %d in %q", i, smiles)
			}
			atom, err := parseBracketAtom(string(runes[i+1 : j]))
			if err != nil {
				return nil, err
			}
			atomIdx := len(mol.Atoms)
			mol.Atoms = append(mol.Atoms, atom)
			if prevAtom >= 0 {
				addBond(prevAtom, atomIdx, nextKind, nextDir)
				nextKind = BondKind(-1)
				nextDir = BondDirNone
			}
			prevAtom = atomIdx
			i = j + 1

		case unicode.IsLetter(ch):
			symbol, aromatic, advance, err := parseOrganicAtom(runes, i)
			if err != nil {
				return nil, err
			}
			atomicNum := atomicNumberMap[symbol]
			atomIdx := len(mol.Atoms)
			mol.Atoms = append(mol.Atoms, Atom{
				AtomicNum:     atomicNum,
				IsAromatic:    aromatic,
				Hybridization: defaultHybridization(atomicNum, aromatic),
			})
			if prevAtom >= 0 {
				addBond(prevAtom, atomIdx, nextKind, nextDir)
				nextKind = BondKind(-1)
				nextDir = BondDirNone
			}
			prevAtom = atomIdx
			i += advance

		default:
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
				"unexpected character %q at position %d in %q", string(ch), i, smiles)
		}
	}

	if len(rings) != 0 {
		return nil, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
			"unclosed ring bond in %q", smiles)
	}
	if len(mol.Atoms) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeEmpty, "no atoms found in SMILES")
	}

	finalizeHydrogens(mol)
	return mol, nil
}

// parseOrganicAtom extracts an organic-subset atom symbol starting at
// position i. Returns (symbol, isAromatic, runesConsumed, error).
func parseOrganicAtom(runes []rune, i int) (string, bool, int, error) {
	ch := runes[i]
	aromatic := unicode.IsLower(ch)
	upper := unicode.ToUpper(ch)

	// Two-letter elements: Cl, Br and friends.
	if !aromatic && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		twoLetter := string([]rune{upper, runes[i+1]})
		if _, ok := atomicNumberMap[twoLetter]; ok {
			return twoLetter, false, 2, nil
		}
	}

	symbol := string(upper)
	if _, ok := atomicNumberMap[symbol]; !ok {
		return "", false, 0, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
			"unknown element symbol %q", string(ch))
	}
	if aromatic {
		switch upper {
		case 'B', 'C', 'N', 'O', 'P', 'S':
		default:
			return "", false, 0, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
				"element %q cannot be aromatic", string(ch))
		}
	}
	return symbol, aromatic, 1, nil
}

// parseBracketAtom parses the content inside [...].
func parseBracketAtom(content string) (Atom, error) {
	runes := []rune(content)
	idx := 0

	// Skip isotope number.
	for idx < len(runes) && unicode.IsDigit(runes[idx]) {
		idx++
	}
	if idx >= len(runes) || !unicode.IsLetter(runes[idx]) {
		return Atom{}, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
			"bracket atom missing element symbol: [%s]", content)
	}

	start := idx
	aromatic := unicode.IsLower(runes[idx])
	idx++
	for idx < len(runes) && unicode.IsLower(runes[idx]) {
		idx++
	}
	sym := string(runes[start:idx])
	if aromatic {
		sym = strings.ToUpper(sym[:1]) + sym[1:]
	}
	atomicNum, ok := atomicNumberMap[sym]
	if !ok {
		return Atom{}, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES,
			"unknown element symbol %q in bracket atom", sym)
	}

	atom := Atom{
		AtomicNum:     atomicNum,
		IsAromatic:    aromatic,
		Hybridization: defaultHybridization(atomicNum, aromatic),
	}

	rest := string(runes[idx:])

	// Chirality markers.
	if strings.Contains(rest, "@@") {
		atom.Chirality = ChiralityTetrahedralCW
	} else if strings.Contains(rest, "@") {
		atom.Chirality = ChiralityTetrahedralCCW
	}

	// Explicit hydrogen count.
	if hIdx := strings.Index(rest, "H"); hIdx >= 0 {
		atom.NumH = 1
		if hIdx+1 < len(rest) && rest[hIdx+1] >= '0' && rest[hIdx+1] <= '9' {
			atom.NumH = int(rest[hIdx+1] - '0')
		}
	}

	// Formal charge, including run (+++) and signed-digit ([N+2]) forms.
	atom.FormalCharge = parseCharge(rest)

	return atom, nil
}

// parseCharge extracts the formal charge from the tail of a bracket atom.
func parseCharge(s string) int {
	for i := 0; i < len(s); i++ {
		var sign int
		switch s[i] {
		case '+':
			sign = 1
		case '-':
			sign = -1
		default:
			continue
		}
		if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			return sign * int(s[i+1]-'0')
		}
		count := 1
		for j := i + 1; j < len(s) && s[j] == s[i]; j++ {
			count++
		}
		return sign * count
	}
	return 0
}

// defaultHybridization assigns a coarse hybridization state. Aromatic atoms
// are sp2; the organic subset defaults to sp3.
func defaultHybridization(atomicNum int, aromatic bool) Hybridization {
	if aromatic {
		return HybridizationSP2
	}
	if atomicNum == 1 {
		return HybridizationS
	}
	if _, ok := defaultValence[atomicNum]; ok {
		return HybridizationSP3
	}
	return HybridizationUnspecified
}

// finalizeHydrogens fills in implicit hydrogen counts and implicit valence
// for atoms that did not declare an explicit H count, using standard valence
// rules and the bond orders actually attached.
func finalizeHydrogens(mol *Molecule) {
	orders := make([]int, len(mol.Atoms))
	for _, b := range mol.Bonds {
		order := 1
		switch b.Kind {
		case BondDouble:
			order = 2
		case BondTriple:
			order = 3
		case BondAromatic:
			order = 1 // aromatic contribution approximated below
		}
		orders[b.Begin] += order
		orders[b.End] += order
	}

	for i := range mol.Atoms {
		a := &mol.Atoms[i]
		used := orders[i]
		if a.IsAromatic {
			// One extra shared bond order for the delocalized system.
			used++
		}
		v, ok := defaultValence[a.AtomicNum]
		if !ok {
			a.ImplicitValence = 0
			continue
		}
		// Positive charge adds a bonding slot (ammonium), negative removes one.
		v += a.FormalCharge
		free := v - used
		if free < 0 {
			free = 0
		}
		a.ImplicitValence = free
		if a.NumH == 0 {
			a.NumH = free
		}
	}
}

// MustParseSMILES is a convenience for tests and fixtures. It panics on
// parse failure.
func MustParseSMILES(smiles string) *Molecule {
	mol, err := ParseSMILES(smiles)
	if err != nil {
		panic(fmt.Sprintf("chem: %v", err))
	}
	return mol
}
