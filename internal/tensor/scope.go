package tensor

import "sync"

// Scope owns every RawTensor allocated while it is the innermost open scope
// and releases them on Close. Tensors marked with Persist, and tensors handed
// to MoveToOuter, survive.
//
// Scopes nest like a stack and must be closed in reverse order of creation.
// There is a single scope stack per process; a model is driven by one
// goroutine at a time.
//
// Example:
//
//	s := tensor.NewScope()
//	logits := model.Forward(ids)
//	s.MoveToOuter(logits.Raw())
//	s.Close() // every other activation is released here
type Scope struct {
	parent *Scope
	owned  []*RawTensor
	closed bool
}

var (
	scopeMu      sync.Mutex
	currentScope *Scope
)

// NewScope opens a scope nested inside the current one.
func NewScope() *Scope {
	scopeMu.Lock()
	defer scopeMu.Unlock()
	s := &Scope{parent: currentScope}
	currentScope = s
	return s
}

func track(r *RawTensor) {
	scopeMu.Lock()
	if currentScope != nil {
		currentScope.owned = append(currentScope.owned, r)
	}
	scopeMu.Unlock()
}

// Len returns the number of tensors currently owned by the scope.
func (s *Scope) Len() int {
	scopeMu.Lock()
	defer scopeMu.Unlock()
	return len(s.owned)
}

// MoveToOuter transfers ownership of the given tensors to the enclosing
// scope. At the outermost level the tensors become unowned and are left to
// the garbage collector.
func (s *Scope) MoveToOuter(raws ...*RawTensor) {
	scopeMu.Lock()
	defer scopeMu.Unlock()
	for _, r := range raws {
		for i := len(s.owned) - 1; i >= 0; i-- {
			if s.owned[i] == r {
				s.owned = append(s.owned[:i], s.owned[i+1:]...)
				if s.parent != nil {
					s.parent.owned = append(s.parent.owned, r)
				}
				break
			}
		}
	}
}

// Close releases all owned, non-persistent tensors and makes the parent scope
// current again. Closing twice is a no-op.
func (s *Scope) Close() {
	scopeMu.Lock()
	if s.closed {
		scopeMu.Unlock()
		return
	}
	if currentScope != s {
		scopeMu.Unlock()
		panic("tensor: scopes must be closed in reverse order of creation")
	}
	s.closed = true
	currentScope = s.parent
	owned := s.owned
	s.owned = nil
	scopeMu.Unlock()

	for _, r := range owned {
		if !r.persistent {
			r.Release()
		}
	}
}
