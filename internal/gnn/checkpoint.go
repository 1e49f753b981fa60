package gnn

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// Parameter checkpoints
// ---------------------------------------------------------------------------

// Checkpoint is a serializable snapshot of a backbone's parameters together
// with the architecture they were trained under. Loading validates the
// architecture before touching any weights.
type Checkpoint struct {
	NumLayers int
	EmbDim    int
	Conv      ConvVariant
	JK        JKMode
	Pooling   Pooling
	// Params maps parameter name to its weight matrix.
	Params map[string][][]float64
}

// Snapshot captures the backbone's current parameters. The returned matrices
// are deep copies; later training does not mutate them.
func Snapshot(net *GraphNet) *Checkpoint {
	cfg := net.Config()
	ck := &Checkpoint{
		NumLayers: cfg.NumLayers,
		EmbDim:    cfg.EmbDim,
		Conv:      cfg.Conv,
		JK:        cfg.JK,
		Pooling:   cfg.Pooling,
		Params:    make(map[string][][]float64, len(net.Parameters())),
	}
	for _, p := range net.Parameters() {
		cp := make([][]float64, len(p.Val))
		for i, row := range p.Val {
			cp[i] = append([]float64(nil), row...)
		}
		ck.Params[p.Name] = cp
	}
	return ck
}

// Restore copies checkpoint weights into the backbone. The checkpoint's
// architecture and every parameter shape must match exactly.
func Restore(net *GraphNet, ck *Checkpoint) error {
	cfg := net.Config()
	if ck.NumLayers != cfg.NumLayers || ck.EmbDim != cfg.EmbDim ||
		ck.Conv != cfg.Conv || ck.JK != cfg.JK || ck.Pooling != cfg.Pooling {
		return errors.Newf(errors.ErrCodeCheckpointMismatch,
			"checkpoint architecture (layers=%d dim=%d conv=%s jk=%s pool=%s) does not match model (layers=%d dim=%d conv=%s jk=%s pool=%s)",
			ck.NumLayers, ck.EmbDim, ck.Conv, ck.JK, ck.Pooling,
			cfg.NumLayers, cfg.EmbDim, cfg.Conv, cfg.JK, cfg.Pooling)
	}
	for _, p := range net.Parameters() {
		src, ok := ck.Params[p.Name]
		if !ok {
			return errors.Newf(errors.ErrCodeCheckpointMismatch,
				"checkpoint is missing parameter %q", p.Name)
		}
		srcCols := 0
		if len(src) > 0 {
			srcCols = len(src[0])
		}
		if len(src) != len(p.Val) || srcCols != p.Val.cols() {
			return errors.Newf(errors.ErrCodeCheckpointMismatch,
				"parameter %q has shape (%d, %d) in checkpoint, expected (%d, %d)",
				p.Name, len(src), srcCols, len(p.Val), p.Val.cols())
		}
		for i, row := range src {
			copy(p.Val[i], row)
		}
	}
	return nil
}

// WriteCheckpoint gob-encodes a checkpoint to w.
func WriteCheckpoint(w io.Writer, ck *Checkpoint) error {
	if err := gob.NewEncoder(w).Encode(ck); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding checkpoint")
	}
	return nil
}

// ReadCheckpoint gob-decodes a checkpoint from r.
func ReadCheckpoint(r io.Reader) (*Checkpoint, error) {
	var ck Checkpoint
	if err := gob.NewDecoder(r).Decode(&ck); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding checkpoint")
	}
	return &ck, nil
}

// EncodeCheckpoint gob-encodes a checkpoint to a byte slice.
func EncodeCheckpoint(ck *Checkpoint) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCheckpoint(&buf, ck); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCheckpoint gob-decodes a checkpoint from a byte slice.
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	return ReadCheckpoint(bytes.NewReader(data))
}

// encodeSavedModel gob-encodes a full saved model blob.
func encodeSavedModel(sm *savedModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sm); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding model blob")
	}
	return buf.Bytes(), nil
}

// decodeSavedModel gob-decodes a full saved model blob.
func decodeSavedModel(data []byte) (*savedModel, error) {
	var sm savedModel
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sm); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding model blob")
	}
	return &sm, nil
}
