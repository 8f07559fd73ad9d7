package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/mingpt/internal/tensor"
)

// ReaderOptions configures how a .born file is read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Checkpoint is a decoded .born file.
type Checkpoint struct {
	Header Header
	State  *StateDict
}

// LoadFile reads a .born file from path.
func LoadFile(path string, opts ReaderOptions) (*Checkpoint, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	ckpt, err := Read(bufio.NewReader(file), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ckpt, nil
}

// Read decodes a .born v2 stream. Float16 tensors are widened to float32.
// Decoded tensors are tracked by the caller's current scope, if any.
func Read(reader io.Reader, opts ReaderOptions) (*Checkpoint, error) {
	fixedHeader := make([]byte, FixedHeaderSizeV2)
	if _, err := io.ReadFull(reader, fixedHeader); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixedHeader[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixedHeader[4:8]); version != FormatVersionV2 {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersionV2)
	}
	headerSize := binary.LittleEndian.Uint64(fixedHeader[16:24])
	dataSize := binary.LittleEndian.Uint64(fixedHeader[24:32])
	var stored [ChecksumSize]byte
	copy(stored[:], fixedHeader[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	padding := alignedPadding(int64(FixedHeaderSizeV2) + int64(headerSize))
	if _, err := io.CopyN(io.Discard, reader, padding); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(reader, int64(dataSize))) //nolint:gosec // G115: checked below
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if uint64(len(data)) != dataSize {
		return nil, fmt.Errorf("failed to read tensor data: %w", io.ErrUnexpectedEOF)
	}

	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
			return nil, err
		}
	}
	if err := ValidateHeader(&header, int64(len(data)), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	state := NewStateDict()
	for _, meta := range header.Tensors {
		raw, err := decodeTensor(meta, data)
		if err != nil {
			return nil, err
		}
		state.Set(meta.Name, raw)
	}
	return &Checkpoint{Header: header, State: state}, nil
}

func decodeTensor(meta TensorMeta, data []byte) (*tensor.RawTensor, error) {
	dtype, storedSize, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("%w: %s (tensor %s)", ErrUnsupportedDType, meta.DType, meta.Name)
	}
	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
	}
	if want := int64(shape.NumElements() * storedSize); meta.Size != want {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  meta.Name,
			Details: fmt.Sprintf("size %d, shape %v needs %d", meta.Size, meta.Shape, want),
		}
	}
	if meta.Offset < 0 || meta.Offset+meta.Size > int64(len(data)) {
		return nil, &ValidationError{Type: "out_of_bounds", Tensor: meta.Name, Details: "outside data section"}
	}
	src := data[meta.Offset : meta.Offset+meta.Size]

	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor %s: %w", meta.Name, err)
	}
	switch meta.DType {
	case DTypeFloat16:
		decodeHalf(raw.AsFloat32(), src)
	case DTypeFloat32:
		decodeFloat32(raw.AsFloat32(), src)
	default:
		copy(raw.Data(), src)
	}
	return raw, nil
}
