package tokenizer

// Tokenizer is the core interface for text tokenization.
//
// Both ByteVocabulary and TikToken implement it.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int
}

var (
	_ Tokenizer = (*ByteVocabulary)(nil)
	_ Tokenizer = (*TikToken)(nil)
)
