package optim

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/serialization"
	"github.com/born-ml/mingpt/internal/tensor"
)

// ErrOptimizerState is wrapped by LoadStateDict errors.
var ErrOptimizerState = errors.New("optimizer state does not match parameters")

// State dict key prefixes for the AdamW moment buffers.
const (
	keyExpAvg   = "exp_avg."
	keyExpAvgSq = "exp_avg_sq."
)

// paramNames maps every parameter to its group-qualified name. Groups
// without Names fall back to positional names.
func (a *AdamW[B]) paramNames() map[string]*nn.Parameter[B] {
	out := make(map[string]*nn.Parameter[B])
	for gi, g := range a.groups {
		for i, p := range g.Params {
			name := fmt.Sprintf("group%d.%d", gi, i)
			if i < len(g.Names) {
				name = g.Names[i]
			}
			out[name] = p
		}
	}
	return out
}

// StateDict returns the moment buffers of every parameter that has taken a
// step, keyed "exp_avg.<name>" and "exp_avg_sq.<name>" in name order. The
// tensors are shared, not copied.
func (a *AdamW[B]) StateDict() *serialization.StateDict {
	named := a.paramNames()
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	state := serialization.NewStateDict()
	for _, name := range names {
		p := named[name]
		m, ok := a.m[p]
		if !ok {
			continue
		}
		state.Set(keyExpAvg+name, m.Raw())
		state.Set(keyExpAvgSq+name, a.v[p].Raw())
	}
	return state
}

// LoadStateDict replaces the moment buffers with copies of state and sets
// the step count used for bias correction. Every entry must name a known
// parameter with a matching shape, and both moments must be present; on
// error nothing is changed.
func (a *AdamW[B]) LoadStateDict(state *serialization.StateDict, steps int) error {
	if steps < 0 {
		return fmt.Errorf("%w: negative step count %d", ErrOptimizerState, steps)
	}
	named := a.paramNames()

	var problems []string
	type pair struct{ m, v *tensor.RawTensor }
	loaded := make(map[*nn.Parameter[B]]*pair)
	for kv := state.Oldest(); kv != nil; kv = kv.Next() {
		var name string
		var first bool
		switch {
		case strings.HasPrefix(kv.Key, keyExpAvgSq):
			name = strings.TrimPrefix(kv.Key, keyExpAvgSq)
		case strings.HasPrefix(kv.Key, keyExpAvg):
			name, first = strings.TrimPrefix(kv.Key, keyExpAvg), true
		default:
			problems = append(problems, "unexpected "+kv.Key)
			continue
		}
		p, ok := named[name]
		if !ok {
			problems = append(problems, "unknown parameter "+kv.Key)
			continue
		}
		if kv.Value.DType() != tensor.Float32 || !kv.Value.Shape().Equal(p.Tensor().Shape()) {
			problems = append(problems, fmt.Sprintf("%s: %s %v, want float32 %v", kv.Key, kv.Value.DType(), kv.Value.Shape(), p.Tensor().Shape()))
			continue
		}
		e := loaded[p]
		if e == nil {
			e = &pair{}
			loaded[p] = e
		}
		if first {
			e.m = kv.Value
		} else {
			e.v = kv.Value
		}
	}
	for name, p := range named {
		if e := loaded[p]; e != nil && (e.m == nil || e.v == nil) {
			problems = append(problems, "incomplete moments for "+name)
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrOptimizerState, strings.Join(problems, "; "))
	}

	a.m = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B], len(loaded))
	a.v = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B], len(loaded))
	for p, e := range loaded {
		m, v := a.moments(p)
		copy(m.Data(), e.m.AsFloat32())
		copy(v.Data(), e.v.AsFloat32())
	}
	a.t = steps
	return nil
}
