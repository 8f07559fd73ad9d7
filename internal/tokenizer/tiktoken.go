package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding names accepted by NewTikToken.
const (
	EncodingCL100kBase = "cl100k_base" // GPT-4, GPT-3.5-turbo
	EncodingP50kBase   = "p50k_base"   // GPT-3, Codex
	EncodingR50kBase   = "r50k_base"   // GPT-3, davinci
)

var encodingSizes = map[string]struct {
	vocab int
	eos   int32
}{
	EncodingCL100kBase: {vocab: 100277, eos: 100257},
	EncodingP50kBase:   {vocab: 50281, eos: 50256},
	EncodingR50kBase:   {vocab: 50257, eos: 50256},
}

// TikToken wraps the pkoukk/tiktoken-go library for OpenAI tokenizers.
//
// It is the alternative to ByteVocabulary for models built with a vocabulary
// of VocabSize() entries. Loading an encoding fetches its BPE ranks on first
// use unless tiktoken-go is configured with an offline loader.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken creates a new TikToken tokenizer with the specified encoding.
func NewTikToken(encodingName string) (*TikToken, error) {
	if _, ok := encodingSizes[encodingName]; !ok {
		return nil, fmt.Errorf("unsupported tiktoken encoding %q", encodingName)
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// Encode converts text to token IDs. Special tokens are encoded as text.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Decode converts token IDs back to text. Ids outside [0, VocabSize())
// are rejected.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	size := t.VocabSize()
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		if tok < 0 || int(tok) >= size {
			return "", fmt.Errorf("%w: %d at position %d, vocab size %d", ErrInvalidToken, tok, i, size)
		}
		intTokens[i] = int(tok)
	}
	return t.encoding.Decode(intTokens), nil
}

// VocabSize returns the id space of the encoding, special tokens included.
func (t *TikToken) VocabSize() int {
	return encodingSizes[t.name].vocab
}

// EosToken returns the <|endoftext|> id.
func (t *TikToken) EosToken() int32 {
	return encodingSizes[t.name].eos
}

// Name returns the encoding or model name.
func (t *TikToken) Name() string {
	return t.name
}
