// Package generate turns a trained language model into token sequences.
package generate

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrInvalidSampling is wrapped by every SamplingConfig validation error.
var ErrInvalidSampling = errors.New("invalid sampling config")

// SamplingConfig configures token selection.
type SamplingConfig struct {
	Temperature float32 // Logits are divided by this; must be > 0 (default: 1.0)
	TopK        int     // Keep only the K largest logits; 0 disables (default: 0)
	Greedy      bool    // Take the argmax instead of drawing a sample
	Seed        int64   // Random seed for stochastic selection
}

// DefaultSamplingConfig returns plain stochastic sampling at temperature 1.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Temperature: 1.0,
		TopK:        0,
		Greedy:      false,
		Seed:        42,
	}
}

// Validate checks the configuration.
func (c SamplingConfig) Validate() error {
	t := float64(c.Temperature)
	if !(t > 0) || math.IsInf(t, 1) {
		return fmt.Errorf("%w: temperature must be positive and finite, got %g", ErrInvalidSampling, c.Temperature)
	}
	if c.TopK < 0 {
		return fmt.Errorf("%w: top-k must be >= 0, got %d", ErrInvalidSampling, c.TopK)
	}
	return nil
}

// Sampler picks the next token from a row of logits.
type Sampler struct {
	config SamplingConfig
	rng    *rand.Rand
}

// NewSampler creates a sampler. The same seed yields the same draws.
func NewSampler(config SamplingConfig) *Sampler {
	return &Sampler{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)), //nolint:gosec // reproducible sampling, not crypto
	}
}

// Config returns the sampler configuration.
func (s *Sampler) Config() SamplingConfig {
	return s.config
}

// Sample selects a token id from logits. The input slice is not modified.
//
// Pipeline: top-k, then argmax (greedy) or a categorical draw from the
// softmax of the temperature-scaled logits. Top-k and argmax work on the raw
// logits, which rank tokens the same way as the probabilities.
func (s *Sampler) Sample(logits []float32) int32 {
	filtered := make([]float32, len(logits))
	copy(filtered, logits)
	if s.config.TopK > 0 {
		filtered = topKFilter(filtered, s.config.TopK)
	}

	if s.config.Greedy {
		return argmax(filtered)
	}
	return s.multinomial(softmax(scaleLogits(filtered, s.config.Temperature)))
}

// scaleLogits returns (v - max) / temperature for every logit. Shifting
// first keeps the result at or below zero, so a tiny temperature drives the
// weaker logits to -inf instead of overflowing the maximum to +inf.
func scaleLogits(logits []float32, temperature float32) []float32 {
	maxVal := float32(math.Inf(-1))
	for _, v := range logits {
		if v > maxVal {
			maxVal = v
		}
	}

	scaled := make([]float32, len(logits))
	if math.IsInf(float64(maxVal), -1) {
		copy(scaled, logits)
		return scaled
	}
	for i, v := range logits {
		scaled[i] = (v - maxVal) / temperature
	}
	return scaled
}

// topKFilter keeps exactly k logits and sets the rest to -inf. Candidates
// are ranked by value descending, then by index ascending, so among equal
// logits the lowest ids survive.
func topKFilter(logits []float32, k int) []float32 {
	if k >= len(logits) {
		return logits
	}

	order := make([]int, len(logits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return logits[order[a]] > logits[order[b]]
	})

	negInf := float32(math.Inf(-1))
	for _, idx := range order[k:] {
		logits[idx] = negInf
	}
	return logits
}

// argmax returns the index of the largest value, the lowest index on ties.
func argmax(values []float32) int32 {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return int32(best) //nolint:gosec // vocab size is bounded by model architecture
}

// multinomial samples from a categorical distribution by walking the
// cumulative sum in index order.
func (s *Sampler) multinomial(probs []float32) int32 {
	r := s.rng.Float32()

	cumSum := float32(0)
	last := 0
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		cumSum += p
		last = i
		if r < cumSum {
			return int32(i) //nolint:gosec // vocab size is bounded by model architecture
		}
	}

	// Rounding left r above the total mass.
	return int32(last) //nolint:gosec // vocab size is bounded by model architecture
}

// softmax converts logits to probabilities; -inf entries get probability 0.
func softmax(logits []float32) []float32 {
	maxVal := float32(math.Inf(-1))
	for _, v := range logits {
		if v > maxVal {
			maxVal = v
		}
	}

	probs := make([]float32, len(logits))
	sum := float32(0)
	for i, v := range logits {
		if math.IsInf(float64(v), -1) {
			continue
		}
		probs[i] = float32(math.Exp(float64(v - maxVal)))
		sum += probs[i]
	}

	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}
