// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer maps text to token ids and back.
//
// Example:
//
//	vocab, err := tokenizer.BuildVocabulary(ctx, "input.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ids, err := vocab.Encode("hello")
package tokenizer

import (
	"context"

	"github.com/born-ml/mingpt/internal/tokenizer"
)

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// Errors returned by ByteVocabulary and BuildVocabulary.
var (
	ErrUnknownByte  = tokenizer.ErrUnknownByte
	ErrInvalidToken = tokenizer.ErrInvalidToken
	ErrNoSources    = tokenizer.ErrNoSources
)

// ByteVocabulary assigns a dense id to every distinct byte of a corpus.
type ByteVocabulary = tokenizer.ByteVocabulary

// NewByteVocabulary builds a vocabulary from in-memory corpora.
func NewByteVocabulary(corpora ...[]byte) *ByteVocabulary {
	return tokenizer.NewByteVocabulary(corpora...)
}

// BuildVocabulary scans files concurrently and merges their bytes into one
// vocabulary.
func BuildVocabulary(ctx context.Context, paths ...string) (*ByteVocabulary, error) {
	return tokenizer.BuildVocabulary(ctx, paths...)
}

// TikToken wraps an OpenAI BPE encoding.
type TikToken = tokenizer.TikToken

// NewTikToken loads the named encoding: "cl100k_base", "p50k_base" or
// "r50k_base".
func NewTikToken(encodingName string) (*TikToken, error) {
	return tokenizer.NewTikToken(encodingName)
}
