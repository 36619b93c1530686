package engine

import "github.com/josephlewis42/pipesh/core/value"

// Stack is a lexical variable scope. Lookups walk up the parent chain,
// bindings always go into the innermost scope.
type Stack struct {
	parent *Stack
	vars   map[string]value.Value
}

// NewStack creates an empty root scope.
func NewStack() *Stack {
	return &Stack{}
}

// Push creates a child scope of s.
func (s *Stack) Push() *Stack {
	return &Stack{parent: s}
}

// AddVar binds name in this scope, shadowing any outer binding.
func (s *Stack) AddVar(name string, v value.Value) {
	if s.vars == nil {
		s.vars = make(map[string]value.Value)
	}
	s.vars[name] = v
}

// Var looks name up in this scope and its parents.
func (s *Stack) Var(name string) (value.Value, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if v, ok := scope.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}
