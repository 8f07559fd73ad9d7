package serialization

import (
	"errors"
	"testing"
)

// TestValidateTensorOffsets_NoOverlap verifies that valid tensors pass validation.
func TestValidateTensorOffsets_NoOverlap(t *testing.T) {
	tensors := []TensorMeta{
		{Name: "tok_emb.weight", Offset: 0, Size: 100},
		{Name: "pos_emb", Offset: 100, Size: 200},
		{Name: "head.weight", Offset: 300, Size: 150},
	}
	if err := ValidateTensorOffsets(tensors, 500); err != nil {
		t.Errorf("Expected no error for valid tensors, got: %v", err)
	}
}

// TestValidateTensorOffsets_Errors detects overlapping, negative and out-of-bounds regions.
func TestValidateTensorOffsets_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantType string
	}{
		{
			name: "overlap by one byte",
			tensors: []TensorMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 99, Size: 100},
			},
			dataSize: 200,
			wantType: "offset_overlap",
		},
		{
			name:     "negative offset",
			tensors:  []TensorMeta{{Name: "a", Offset: -1, Size: 10}},
			dataSize: 100,
			wantType: "negative_offset",
		},
		{
			name:     "past end of data",
			tensors:  []TensorMeta{{Name: "a", Offset: 90, Size: 20}},
			dataSize: 100,
			wantType: "out_of_bounds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if vErr.Type != tt.wantType {
				t.Errorf("Expected type %q, got %q", tt.wantType, vErr.Type)
			}
		})
	}
}

// TestValidateTensorName rejects names that are empty or path-like.
func TestValidateTensorName(t *testing.T) {
	valid := []string{"pos_emb", "blocks.0.attn.query.weight", "i0.bias"}
	for _, name := range valid {
		if err := ValidateTensorName(name); err != nil {
			t.Errorf("ValidateTensorName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "../etc/passwd", "a/b", "a\\b", "nul\x00byte"}
	for _, name := range invalid {
		if err := ValidateTensorName(name); err == nil {
			t.Errorf("ValidateTensorName(%q) = nil, want error", name)
		}
	}
}

// TestValidateHeader_Duplicate rejects a tensor listed twice.
func TestValidateHeader_Duplicate(t *testing.T) {
	h := &Header{Tensors: []TensorMeta{
		{Name: "w", Offset: 0, Size: 4},
		{Name: "w", Offset: 4, Size: 4},
	}}
	if err := ValidateHeader(h, 8, ValidationNormal); err == nil {
		t.Error("Expected duplicate name error")
	}
	if err := ValidateHeader(h, 8, ValidationNone); err != nil {
		t.Errorf("ValidationNone should skip checks, got %v", err)
	}
}
