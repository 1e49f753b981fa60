package cli

import (
	"encoding/gob"
	"os"

	"github.com/turtacn/molgnn/pkg/errors"
)

// writeModelPayload persists a saved-model payload to disk.
func writeModelPayload(path string, payload map[string][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeSerialization, "creating %q", path)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(payload); err != nil {
		return errors.Wrapf(err, errors.ErrCodeSerialization, "writing model payload to %q", path)
	}
	return nil
}

// readModelPayload loads a saved-model payload from disk.
func readModelPayload(path string) (map[string][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeSerialization, "opening %q", path)
	}
	defer f.Close()
	var payload map[string][]byte
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeSerialization, "reading model payload from %q", path)
	}
	return payload, nil
}
