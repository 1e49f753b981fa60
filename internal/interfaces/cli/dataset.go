package cli

import (
	"bufio"
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/turtacn/molgnn/pkg/errors"
)

// readLabeledCSV parses a two-column CSV of SMILES and numeric labels. A
// header row is skipped when its label column does not parse as a number.
func readLabeledCSV(path string) ([]string, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrCodeInvalidInput, "opening dataset %q", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrCodeInvalidInput, "parsing dataset %q", path)
	}
	if len(rows) == 0 {
		return nil, nil, errors.Newf(errors.ErrCodeInvalidInput, "dataset %q is empty", path)
	}

	start := 0
	if _, convErr := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); convErr != nil {
		start = 1
	}

	smiles := make([]string, 0, len(rows)-start)
	labels := make([]float64, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		label, convErr := strconv.ParseFloat(strings.TrimSpace(rows[i][1]), 64)
		if convErr != nil {
			return nil, nil, errors.Newf(errors.ErrCodeInvalidInput,
				"dataset %q row %d: label %q is not numeric", path, i+1, rows[i][1])
		}
		smiles = append(smiles, strings.TrimSpace(rows[i][0]))
		labels = append(labels, label)
	}
	if len(smiles) == 0 {
		return nil, nil, errors.Newf(errors.ErrCodeInvalidInput, "dataset %q has no data rows", path)
	}
	return smiles, labels, nil
}

// readSMILESLines reads one SMILES string per line, skipping blanks and
// lines starting with '#'.
func readSMILESLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInvalidInput, "opening input %q", path)
	}
	defer f.Close()

	var smiles []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		smiles = append(smiles, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInvalidInput, "reading input %q", path)
	}
	if len(smiles) == 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "input %q has no molecules", path)
	}
	return smiles, nil
}
