package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/tensor"
)

// AdamWConfig holds configuration for the AdamW optimizer.
type AdamWConfig struct {
	LR    float32    // Learning rate (default: 6e-4)
	Betas [2]float32 // Running average coefficients (default: [0.9, 0.95])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// DefaultAdamWConfig returns the transformer training defaults.
func DefaultAdamWConfig() AdamWConfig {
	return AdamWConfig{
		LR:    6e-4,
		Betas: [2]float32{0.9, 0.95},
		Eps:   1e-8,
	}
}

// Validate checks the hyperparameters.
func (c AdamWConfig) Validate() error {
	if c.LR <= 0 || math.IsNaN(float64(c.LR)) {
		return fmt.Errorf("adamw: learning rate must be positive, got %g", c.LR)
	}
	for i, b := range c.Betas {
		if b < 0 || b >= 1 {
			return fmt.Errorf("adamw: beta%d must be in [0, 1), got %g", i+1, b)
		}
	}
	if c.Eps <= 0 {
		return fmt.Errorf("adamw: eps must be positive, got %g", c.Eps)
	}
	return nil
}

// AdamW implements Adam with decoupled weight decay (Loshchilov & Hutter,
// "Decoupled Weight Decay Regularization").
//
// Update rule, per parameter of a group with decay coefficient wd:
//
//	param = param * (1 - lr*wd)                        // Decoupled decay
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Moment buffers are persistent tensors, so training steps may run inside a
// tensor.Scope.
type AdamW[B tensor.Backend] struct {
	groups  []ParamGroup[B]
	lr      float32
	beta1   float32
	beta2   float32
	eps     float32
	t       int                                             // Timestep for bias correction
	m       map[*nn.Parameter[B]]*tensor.Tensor[float32, B] // First moment estimates
	v       map[*nn.Parameter[B]]*tensor.Tensor[float32, B] // Second moment estimates
	backend B
}

// NewAdamW creates an AdamW optimizer over the given groups. Zero-valued
// hyperparameters take the DefaultAdamWConfig values.
func NewAdamW[B tensor.Backend](groups []ParamGroup[B], config AdamWConfig, backend B) *AdamW[B] {
	def := DefaultAdamWConfig()
	if config.LR == 0 {
		config.LR = def.LR
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = def.Betas[0]
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = def.Betas[1]
	}
	if config.Eps == 0 {
		config.Eps = def.Eps
	}

	return &AdamW[B]{
		groups:  groups,
		lr:      config.LR,
		beta1:   config.Betas[0],
		beta2:   config.Betas[1],
		eps:     config.Eps,
		m:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		v:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		backend: backend,
	}
}

// Step performs a single optimization step. Parameters with no gradient are
// skipped, including their weight decay.
func (a *AdamW[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++
	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, group := range a.groups {
		for _, param := range group.Params {
			grad := getGradient(param, grads)
			if grad == nil {
				continue
			}
			m, v := a.moments(param)
			a.updateParameter(param, grad.AsFloat32(), m.Data(), v.Data(), group.WeightDecay, biasCorrection1, biasCorrection2)
		}
	}
}

func (a *AdamW[B]) moments(param *nn.Parameter[B]) (m, v *tensor.Tensor[float32, B]) {
	m, ok := a.m[param]
	if !ok {
		m = tensor.Zeros[float32](param.Tensor().Shape(), a.backend).Persist()
		a.m[param] = m
	}
	v, ok = a.v[param]
	if !ok {
		v = tensor.Zeros[float32](param.Tensor().Shape(), a.backend).Persist()
		a.v[param] = v
	}
	return m, v
}

func (a *AdamW[B]) updateParameter(param *nn.Parameter[B], grad, m, v []float32, weightDecay, biasCorrection1, biasCorrection2 float32) {
	data := param.Data()
	decay := 1 - a.lr*weightDecay
	for i := range data {
		g := grad[i]
		m[i] = a.beta1*m[i] + (1-a.beta1)*g
		v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

		mHat := m[i] / biasCorrection1
		vHat := v[i] / biasCorrection2
		data[i] = data[i]*decay - a.lr*mHat/(float32(math.Sqrt(float64(vHat)))+a.eps)
	}
}

// GetLR returns the current learning rate.
func (a *AdamW[B]) GetLR() float32 {
	return a.lr
}

// SetLR changes the learning rate.
func (a *AdamW[B]) SetLR(lr float32) {
	a.lr = lr
}

// Steps returns the number of completed steps.
func (a *AdamW[B]) Steps() int {
	return a.t
}

// Groups returns the parameter groups.
func (a *AdamW[B]) Groups() []ParamGroup[B] {
	return a.groups
}

// Parameters returns every parameter across all groups.
func (a *AdamW[B]) Parameters() []*nn.Parameter[B] {
	var out []*nn.Parameter[B]
	for _, g := range a.groups {
		out = append(out, g.Params...)
	}
	return out
}

var _ Optimizer = (*AdamW[tensor.Backend])(nil)
