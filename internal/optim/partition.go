package optim

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/tensor"
)

// Group names produced by Partition.
const (
	GroupDecay   = "decay"
	GroupNoDecay = "no_decay"
)

// DefaultWeightDecay is the decay coefficient of the decay group.
const DefaultWeightDecay = 0.1

// ErrInvalidPartition is wrapped by every *PartitionError.
var ErrInvalidPartition = errors.New("invalid parameter partition")

// PartitionConfig controls Partition.
type PartitionConfig struct {
	// WeightDecay is the coefficient of the decay group.
	WeightDecay float32

	// NoDecay lists fully qualified names added to the no-decay group on top
	// of the naming rules, for parameters that are neither "weight" nor
	// "bias".
	NoDecay []string
}

// DefaultPartitionConfig returns the language-model rules: decay 0.1 and the
// positional embedding exempt.
func DefaultPartitionConfig() PartitionConfig {
	return PartitionConfig{
		WeightDecay: DefaultWeightDecay,
		NoDecay:     []string{"pos_emb"},
	}
}

// PartitionError reports every parameter that broke the partition rules.
// All lists are sorted.
type PartitionError struct {
	Overlapping  []string // Classified as both decay and no-decay
	Unclassified []string // Matched no rule
	Unknown      []string // Listed in PartitionConfig.NoDecay but not in the model
}

// Error implements the error interface.
func (e *PartitionError) Error() string {
	var parts []string
	if len(e.Overlapping) > 0 {
		parts = append(parts, "in both groups: "+strings.Join(e.Overlapping, ", "))
	}
	if len(e.Unclassified) > 0 {
		parts = append(parts, "unclassified: "+strings.Join(e.Unclassified, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(e.Unknown, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPartition, strings.Join(parts, "; "))
}

// Unwrap returns ErrInvalidPartition.
func (e *PartitionError) Unwrap() error {
	return ErrInvalidPartition
}

// Partition splits every parameter under root into a decay group and a
// no-decay group:
//
//	*bias                         no-decay
//	*weight owned by Linear       decay
//	*weight owned by LayerNorm    no-decay
//	*weight owned by Embedding    no-decay
//	names in cfg.NoDecay          no-decay
//
// The groups must be disjoint and cover every parameter; otherwise a
// *PartitionError names every offending parameter. Groups keep the model's
// enumeration order.
func Partition[B tensor.Backend](root nn.Layer[B], cfg PartitionConfig) (decay, noDecay ParamGroup[B], err error) {
	named := nn.NamedParameters(root)

	decaySet := make(map[string]bool, len(named))
	noDecaySet := make(map[string]bool, len(named))
	for _, np := range named {
		switch {
		case strings.HasSuffix(np.Name, "bias"):
			noDecaySet[np.Name] = true
		case strings.HasSuffix(np.Name, "weight") && np.Owner == nn.KindLinear:
			decaySet[np.Name] = true
		case strings.HasSuffix(np.Name, "weight") && (np.Owner == nn.KindLayerNorm || np.Owner == nn.KindEmbedding):
			noDecaySet[np.Name] = true
		}
	}

	known := make(map[string]bool, len(named))
	for _, np := range named {
		known[np.Name] = true
	}
	perr := &PartitionError{}
	for _, name := range cfg.NoDecay {
		if !known[name] {
			perr.Unknown = append(perr.Unknown, name)
			continue
		}
		noDecaySet[name] = true
	}

	decay = ParamGroup[B]{Name: GroupDecay, WeightDecay: cfg.WeightDecay}
	noDecay = ParamGroup[B]{Name: GroupNoDecay, WeightDecay: 0}
	for _, np := range named {
		inDecay, inNoDecay := decaySet[np.Name], noDecaySet[np.Name]
		switch {
		case inDecay && inNoDecay:
			perr.Overlapping = append(perr.Overlapping, np.Name)
		case inDecay:
			decay.Names = append(decay.Names, np.Name)
			decay.Params = append(decay.Params, np.Param)
		case inNoDecay:
			noDecay.Names = append(noDecay.Names, np.Name)
			noDecay.Params = append(noDecay.Params, np.Param)
		default:
			perr.Unclassified = append(perr.Unclassified, np.Name)
		}
	}

	if len(perr.Overlapping)+len(perr.Unclassified)+len(perr.Unknown) > 0 {
		sort.Strings(perr.Overlapping)
		sort.Strings(perr.Unclassified)
		sort.Strings(perr.Unknown)
		return ParamGroup[B]{}, ParamGroup[B]{}, perr
	}
	return decay, noDecay, nil
}
