// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers of the byte-level GPT language model.
//
// Layers form a named tree. Every parameter has a fully qualified name such
// as "blocks.0.attn.query.weight", which is how checkpoints and the
// weight-decay partitioner address it.
//
// Building blocks:
//   - Linear, Embedding, LayerNorm, Dropout, GELU, Sequential
//   - CausalSelfAttention: multi-head attention with a lower-triangular mask
//   - TransformerBlock: pre-norm attention and MLP with residual connections
//   - GPT: token and position embeddings, a stack of blocks and a linear head
//   - Siren: sine-activated MLP for implicit neural representations
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := nn.NewGPT(nn.DefaultGPTConfig(vocab.VocabSize()), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logits, err := model.Forward(ids) // [batch, seq, vocab]
package nn
