package serialization

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/born-ml/mingpt/internal/tensor"
)

func testState(t *testing.T) *StateDict {
	t.Helper()
	w := tensor.MustNewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	copy(w.AsFloat32(), []float32{0.5, -1.25, 2, 0, 1e-3, -7})
	ids := tensor.MustNewRaw(tensor.Shape{3}, tensor.Int32, tensor.CPU)
	copy(ids.AsInt32(), []int32{0, 97, 98})
	mask := tensor.MustNewRaw(tensor.Shape{2}, tensor.Bool, tensor.CPU)
	copy(mask.AsBool(), []bool{true, false})

	state := NewStateDict()
	state.Set("head.weight", w)
	state.Set("vocab", ids)
	state.Set("mask", mask)
	return state
}

// TestWriteRead_RoundTrip verifies names, order, shapes and values survive a round trip.
func TestWriteRead_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	opts := WriteOptions{ModelType: "GPT", Metadata: map[string]string{"config": `{"block_size":4}`}}
	if err := Write(&buf, testState(t), opts); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ckpt, err := Read(&buf, ReaderOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ckpt.Header.ModelType != "GPT" || ckpt.Header.Metadata["config"] != `{"block_size":4}` {
		t.Errorf("Unexpected header: %+v", ckpt.Header)
	}

	var names []string
	for pair := ckpt.State.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	if want := []string{"head.weight", "vocab", "mask"}; !equalStrings(names, want) {
		t.Errorf("Order = %v, want %v", names, want)
	}

	w, _ := ckpt.State.Get("head.weight")
	if !w.Shape().Equal(tensor.Shape{2, 3}) || w.AsFloat32()[1] != -1.25 {
		t.Errorf("head.weight = %v %v", w.Shape(), w.AsFloat32())
	}
	ids, _ := ckpt.State.Get("vocab")
	if ids.AsInt32()[2] != 98 {
		t.Errorf("vocab = %v", ids.AsInt32())
	}
	mask, _ := ckpt.State.Get("mask")
	if !mask.AsBool()[0] || mask.AsBool()[1] {
		t.Errorf("mask = %v", mask.AsBool())
	}
}

// TestWriteRead_HalfPrecision stores float32 as float16 and widens it on load.
func TestWriteRead_HalfPrecision(t *testing.T) {
	var full, half bytes.Buffer
	if err := Write(&full, testState(t), WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := Write(&half, testState(t), WriteOptions{Half: true}); err != nil {
		t.Fatal(err)
	}

	ckpt, err := Read(bytes.NewReader(half.Bytes()), ReaderOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ckpt.Header.Tensors[0].DType != DTypeFloat16 || ckpt.Header.Tensors[1].DType != DTypeInt32 {
		t.Errorf("Unexpected dtypes: %+v", ckpt.Header.Tensors)
	}
	w, _ := ckpt.State.Get("head.weight")
	want := []float32{0.5, -1.25, 2, 0, 1e-3, -7}
	for i, v := range w.AsFloat32() {
		if math.Abs(float64(v-want[i])) > 1e-3 {
			t.Errorf("head.weight[%d] = %v, want %v", i, v, want[i])
		}
	}
}

// TestRead_DetectsCorruption flips a data byte and expects a checksum error.
func TestRead_DetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testState(t), WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	_, err := Read(bytes.NewReader(data), ReaderOptions{})
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", err)
	}

	_, err = Read(bytes.NewReader(data), ReaderOptions{SkipChecksumValidation: true})
	if err != nil {
		t.Errorf("Skipping checksum should succeed, got %v", err)
	}
}

// TestRead_BadMagicAndVersion rejects foreign files.
func TestRead_BadMagicAndVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testState(t), WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	data := append([]byte(nil), buf.Bytes()...)

	bad := append([]byte(nil), data...)
	copy(bad, "GGUF")
	if _, err := Read(bytes.NewReader(bad), ReaderOptions{}); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("Expected ErrInvalidMagic, got %v", err)
	}

	bad = append([]byte(nil), data...)
	bad[4] = 1
	if _, err := Read(bytes.NewReader(bad), ReaderOptions{}); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Expected ErrUnsupportedVersion, got %v", err)
	}

	if _, err := Read(bytes.NewReader(data[:20]), ReaderOptions{}); err == nil {
		t.Error("Expected error for truncated file")
	}
}

// TestSaveLoadFile exercises the file helpers and data alignment.
func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	if err := SaveFile(path, testState(t), WriteOptions{ModelType: "Siren"}); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	ckpt, err := LoadFile(path, ReaderOptions{ValidationLevel: ValidationStrict})
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if ckpt.State.Len() != 3 || ckpt.Header.FormatVersion != FormatVersionV2 {
		t.Errorf("Unexpected checkpoint: %d tensors, version %d", ckpt.State.Len(), ckpt.Header.FormatVersion)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.born"), ReaderOptions{}); err == nil {
		t.Error("Expected error for missing file")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
