package nn

import "errors"

// Sentinel errors returned by layer constructors and the language model.
var (
	// ErrInvalidConfig indicates a non-positive or inconsistent dimension or
	// an out-of-range dropout rate.
	ErrInvalidConfig = errors.New("invalid model configuration")

	// ErrInvalidInput indicates a malformed token tensor.
	ErrInvalidInput = errors.New("invalid model input")

	// ErrSequenceTooLong indicates more tokens than the block size.
	ErrSequenceTooLong = errors.New("sequence longer than block size")

	// ErrTokenOutOfRange indicates a token id outside [0, vocab size).
	ErrTokenOutOfRange = errors.New("token id out of range")

	// ErrStateMismatch indicates a checkpoint that does not fit the model.
	ErrStateMismatch = errors.New("state does not match model")
)
