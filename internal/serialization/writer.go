package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/x448/float16"

	"github.com/born-ml/mingpt/internal/tensor"
)

// WriteOptions controls how a state dictionary is written.
type WriteOptions struct {
	ModelType string            // Stored in the header ("GPT", "Siren")
	Metadata  map[string]string // Custom metadata, e.g. the model config
	Half      bool              // Store float32 tensors as float16
}

// BornWriter writes models in .born format.
type BornWriter struct {
	file   *os.File
	closed bool
}

// NewBornWriter creates a new .born file writer.
func NewBornWriter(path string) (*BornWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &BornWriter{file: file}, nil
}

// WriteStateDict writes state to the file.
func (w *BornWriter) WriteStateDict(state *StateDict, opts WriteOptions) error {
	if w.closed {
		return ErrWriterClosed
	}
	buf := bufio.NewWriter(w.file)
	if err := Write(buf, state, opts); err != nil {
		return err
	}
	return buf.Flush()
}

// Close closes the writer and the underlying file.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// SaveFile writes state to path in .born v2 format.
func SaveFile(path string, state *StateDict, opts WriteOptions) (err error) {
	w, err := NewBornWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return w.WriteStateDict(state, opts)
}

// Write encodes state in .born v2 format to writer.
func Write(writer io.Writer, state *StateDict, opts WriteOptions) error {
	header := Header{
		FormatVersion: FormatVersionV2,
		Creator:       creator,
		ModelType:     opts.ModelType,
		CreatedAt:     time.Now().UTC(),
		Tensors:       make([]TensorMeta, 0, state.Len()),
		Metadata:      opts.Metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data []byte
	for pair := state.Oldest(); pair != nil; pair = pair.Next() {
		if err := ValidateTensorName(pair.Key); err != nil {
			return err
		}
		raw := pair.Value
		dtype := dtypeToString(raw.DType())
		var encoded []byte
		switch {
		case opts.Half && raw.DType() == tensor.Float32:
			dtype = DTypeFloat16
			encoded = encodeHalf(raw.AsFloat32())
		case raw.DType() == tensor.Float32:
			encoded = encodeFloat32(raw.AsFloat32())
		default:
			encoded = raw.Data()
		}
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   pair.Key,
			DType:  dtype,
			Shape:  []int(raw.Shape().Clone()),
			Offset: int64(len(data)),
			Size:   int64(len(encoded)),
		})
		data = append(data, encoded...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	fixedHeader := make([]byte, FixedHeaderSizeV2)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersionV2))
	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if opts.Half {
		flags |= FlagHalfPrecision
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))
	checksum := ComputeChecksum(data)
	copy(fixedHeader[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := writer.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := writer.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	padding := alignedPadding(int64(FixedHeaderSizeV2) + int64(len(headerJSON)))
	if padding > 0 {
		if _, err := writer.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

func encodeHalf(values []float32) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(v).Bits())
	}
	return out
}

func encodeFloat32(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func decodeHalf(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = float16.Frombits(binary.LittleEndian.Uint16(src[2*i:])).Float32()
	}
}

func decodeFloat32(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}
