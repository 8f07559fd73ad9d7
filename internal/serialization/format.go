package serialization

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/mingpt/internal/tensor"
)

// Format constants.
const (
	MagicBytes        = "BORN"
	FormatVersionV2   = 2    // v2: With SHA-256 checksum
	HeaderAlignment   = 64   // Align tensor data to 64 bytes
	FixedHeaderSizeV2 = 64   // v2 fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffsetV2  = 0x20 // Checksum offset in v2 fixed header
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat16 = "float16" // storage only, loads as float32
	DTypeInt32   = "int32"
	DTypeBool    = "bool"
)

// Flags for the .born format.
const (
	FlagHalfPrecision uint32 = 1 << 0 // bit 0: float32 tensors stored as float16
	FlagHasMetadata   uint32 = 1 << 2 // bit 2: custom metadata included
)

const creator = "mingpt/0.1.0"

// StateDict maps fully qualified parameter names to tensors, preserving
// insertion order.
type StateDict = orderedmap.OrderedMap[string, *tensor.RawTensor]

// NewStateDict returns an empty state dictionary.
func NewStateDict() *StateDict {
	return orderedmap.New[string, *tensor.RawTensor]()
}

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"` // Version of the .born format
	Creator       string            `json:"creator"`        // Library that wrote the file
	ModelType     string            `json:"model_type"`     // Type of model ("GPT", "Siren")
	CreatedAt     time.Time         `json:"created_at"`     // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`        // Tensor metadata, in data order
	Metadata      map[string]string `json:"metadata"`       // Custom metadata
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "blocks.0.ln1.weight")
	DType  string `json:"dtype"`  // Stored data type
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from start of tensor data
	Size   int64  `json:"size"`   // Size in bytes
}

// dtypeToString converts tensor.DataType to its stored name.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Int32:
		return DTypeInt32
	case tensor.Bool:
		return DTypeBool
	default:
		return "unknown"
	}
}

// stringToDtype converts a stored name to the in-memory data type and the
// stored element size.
func stringToDtype(s string) (dt tensor.DataType, storedSize int, ok bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, 4, true
	case DTypeFloat16:
		return tensor.Float32, 2, true
	case DTypeInt32:
		return tensor.Int32, 4, true
	case DTypeBool:
		return tensor.Bool, 1, true
	default:
		return 0, 0, false
	}
}

func alignedPadding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
