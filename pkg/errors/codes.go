package errors

import "strings"

// ErrorCode is a string identifier for a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeInvalidInput   ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_003"
	ErrCodeNotImplemented ErrorCode = "COMMON_004"

	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Vocabulary error codes.
const (
	// ErrCodeVocabularyLookup marks an atom or bond property value that falls
	// outside the closed feature vocabulary. There is no fallback bucket: the
	// pretrained backbone was trained against fixed indices, so an unknown
	// value is fatal rather than mapped to a default.
	ErrCodeVocabularyLookup ErrorCode = "VOC_001"
)

// Model error codes.
const (
	ErrCodeShapeMismatch      ErrorCode = "GNN_001"
	ErrCodeSerialization      ErrorCode = "GNN_002"
	ErrCodeCheckpointMismatch ErrorCode = "GNN_003"
	ErrCodeModelType          ErrorCode = "GNN_004"
	ErrCodeDeviceUnsupported  ErrorCode = "GNN_005"
)

// Artifact retrieval error codes.
const (
	ErrCodeArtifactFetch    ErrorCode = "ART_001"
	ErrCodeArtifactNotFound ErrorCode = "ART_002"
)

// Molecule input error codes.
const (
	ErrCodeMoleculeInvalidSMILES ErrorCode = "MOL_001"
	ErrCodeMoleculeEmpty         ErrorCode = "MOL_002"
)

// errorCodeMessage maps ErrorCodes to default messages.
var errorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:       "internal error",
	ErrCodeInvalidInput:   "invalid input",
	ErrCodeNotFound:       "resource not found",
	ErrCodeNotImplemented: "not implemented",

	ErrCodeVocabularyLookup: "value not in feature vocabulary",

	ErrCodeShapeMismatch:      "tensor shape mismatch",
	ErrCodeSerialization:      "model serialization failed",
	ErrCodeCheckpointMismatch: "checkpoint incompatible with model topology",
	ErrCodeModelType:          "unknown pretrained model type",
	ErrCodeDeviceUnsupported:  "unsupported device placement",

	ErrCodeArtifactFetch:    "artifact retrieval failed",
	ErrCodeArtifactNotFound: "artifact not found",

	ErrCodeMoleculeInvalidSMILES: "invalid SMILES format",
	ErrCodeMoleculeEmpty:         "molecule has no atoms",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := errorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode, e.g. "VOC" for
// VOC_001. Used as a metric label by the monitoring layer.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
