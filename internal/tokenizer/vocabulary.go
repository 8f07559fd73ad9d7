package tokenizer

import (
	"errors"
	"fmt"
)

// Vocabulary errors.
var (
	ErrUnknownByte  = errors.New("byte not in vocabulary")
	ErrInvalidToken = errors.New("token id out of vocabulary range")
)

// ByteVocabulary assigns a dense id to every distinct byte seen in a corpus.
// Ids follow ascending byte value and byte 0 is always present, so it holds
// id 0.
type ByteVocabulary struct {
	bytes []byte     // id -> byte
	ids   [256]int32 // byte -> id, -1 when absent
}

// NewByteVocabulary builds a vocabulary from the bytes of the given corpora.
func NewByteVocabulary(corpora ...[]byte) *ByteVocabulary {
	var seen byteSet
	for _, c := range corpora {
		seen.addAll(c)
	}
	return seen.vocabulary()
}

// VocabSize returns the number of distinct bytes.
func (v *ByteVocabulary) VocabSize() int {
	return len(v.bytes)
}

// Bytes returns the vocabulary bytes in id order.
func (v *ByteVocabulary) Bytes() []byte {
	return append([]byte(nil), v.bytes...)
}

// ID returns the id of b and whether b is in the vocabulary.
func (v *ByteVocabulary) ID(b byte) (int32, bool) {
	id := v.ids[b]
	return id, id >= 0
}

// Byte returns the byte for id.
func (v *ByteVocabulary) Byte(id int32) (byte, bool) {
	if id < 0 || int(id) >= len(v.bytes) {
		return 0, false
	}
	return v.bytes[id], true
}

// Encode converts text to token IDs.
func (v *ByteVocabulary) Encode(text string) ([]int32, error) {
	return v.EncodeBytes([]byte(text))
}

// EncodeBytes converts raw bytes to token IDs.
func (v *ByteVocabulary) EncodeBytes(data []byte) ([]int32, error) {
	out := make([]int32, len(data))
	for i, b := range data {
		id, ok := v.ID(b)
		if !ok {
			return nil, fmt.Errorf("%w: 0x%02x at offset %d", ErrUnknownByte, b, i)
		}
		out[i] = id
	}
	return out, nil
}

// Decode converts token IDs back to text.
func (v *ByteVocabulary) Decode(tokens []int32) (string, error) {
	data, err := v.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeBytes converts token IDs back to raw bytes.
func (v *ByteVocabulary) DecodeBytes(tokens []int32) ([]byte, error) {
	out := make([]byte, len(tokens))
	for i, id := range tokens {
		b, ok := v.Byte(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d at position %d, vocab size %d", ErrInvalidToken, id, i, len(v.bytes))
		}
		out[i] = b
	}
	return out, nil
}

// byteSet records which byte values occur.
type byteSet [256]bool

func (s *byteSet) addAll(data []byte) {
	for _, b := range data {
		s[b] = true
	}
}

func (s *byteSet) merge(other *byteSet) {
	for b, ok := range other {
		if ok {
			s[b] = true
		}
	}
}

func (s *byteSet) vocabulary() *ByteVocabulary {
	v := &ByteVocabulary{}
	s[0] = true
	for b := range s {
		v.ids[b] = -1
		if s[b] {
			v.ids[b] = int32(len(v.bytes)) //nolint:gosec // at most 256 entries
			v.bytes = append(v.bytes, byte(b))
		}
	}
	return v
}
