package vm

import (
	"fmt"
	"sort"
	"sync"

	"gecko/pkg/diag"
)

// Frame is an activation record: local bindings plus two independent parent
// links. closure is the lexical environment captured at definition time; root
// is the instance/attribute chain. Names resolve through locals, then the
// closure chain, then every frame reachable via root.
//
// A Frame may be shared by closures, instances and running calls at once.
// Each operation locks only the node it is touching and releases it before
// moving to a parent, so no two frames are ever locked together.
type Frame struct {
	mu      sync.Mutex
	locals  map[string]Value
	root    *Frame
	closure *Frame
}

// NewFrame creates a frame with no parents
func NewFrame() *Frame {
	return &Frame{locals: make(map[string]Value)}
}

// NewChildFrame creates a frame whose closure is parent
func NewChildFrame(parent *Frame) *Frame {
	f := NewFrame()
	f.closure = parent
	return f
}

// Root returns the frame's direct root link
func (f *Frame) Root() *Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.root
}

// Closure returns the frame's direct closure link
func (f *Frame) Closure() *Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closure
}

// Names returns the frame's own binding names, sorted
func (f *Frame) Names() []string {
	f.mu.Lock()
	names := make([]string, 0, len(f.locals))
	for n := range f.locals {
		names = append(names, n)
	}
	f.mu.Unlock()

	sort.Strings(names)
	return names
}

func (f *Frame) local(name string) (Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.locals[name]
	return v, ok
}

// links reads both parent links under one lock
func (f *Frame) links() (closure, root *Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closure, f.root
}

// Has reports whether name resolves from this frame
func (f *Frame) Has(name string) bool {
	return f.owner(name) != nil
}

// owner finds the frame that holds name's binding, in resolution order:
// locals, the closure chain, then each root ancestor's locals followed by
// that ancestor's closure chain. The root chain is walked once.
func (f *Frame) owner(name string) *Frame {
	if _, ok := f.local(name); ok {
		return f
	}

	closure, root := f.links()
	if closure != nil {
		if o := closure.owner(name); o != nil {
			return o
		}
	}

	for r := root; r != nil; {
		if _, ok := r.local(name); ok {
			return r
		}

		closure, next := r.links()
		if closure != nil {
			if o := closure.owner(name); o != nil {
				return o
			}
		}
		r = next
	}

	return nil
}

// Lookup resolves name, preferring the closure chain over the root chain
func (f *Frame) Lookup(addr diag.Address, name string) (Value, error) {
	if o := f.owner(name); o != nil {
		if v, ok := o.local(name); ok {
			return v, nil
		}
	}

	return Nil, notFound(addr, name)
}

// Set assigns to an existing binding wherever it resolves. It never creates
// a binding.
func (f *Frame) Set(addr diag.Address, name string, val Value) error {
	if o := f.owner(name); o != nil && o.assign(name, val) {
		return nil
	}

	return notFound(addr, name)
}

// assign overwrites name in this frame only if it is already bound here
func (f *Frame) assign(name string, val Value) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.locals[name]; !ok {
		return false
	}
	f.locals[name] = val
	return true
}

// Define creates a local binding. An existing local binding is left as is
// and reported as an error; outer scopes are never consulted.
func (f *Frame) Define(addr diag.Address, name string, val Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.locals[name]; exists {
		return diag.New(diag.Runtime, addr,
			fmt.Sprintf("already defined: %q", name),
			"check variable overrides.")
	}

	f.locals[name] = val
	return nil
}

// SetRoot links frame as the outermost ancestor of the root chain.
// Links that would make a frame its own ancestor are refused.
func (f *Frame) SetRoot(addr diag.Address, frame *Frame) error {
	if frame == nil {
		return nil
	}

	last := f
	chain := map[*Frame]bool{f: true}
	for next := f.Root(); next != nil; next = next.Root() {
		chain[next] = true
		last = next
	}
	if frame.reachesAny(chain) {
		return diag.New(diag.Runtime, addr, "cyclic scope", "a frame cannot be its own ancestor.")
	}

	last.mu.Lock()
	last.root = frame
	last.mu.Unlock()

	return nil
}

// reachesAny reports whether f or one of f's ancestors is in targets
func (f *Frame) reachesAny(targets map[*Frame]bool) bool {
	seen := make(map[*Frame]bool)
	pending := []*Frame{f}

	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if targets[cur] {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true

		closure, root := cur.links()
		if closure != nil {
			pending = append(pending, closure)
		}
		if root != nil {
			pending = append(pending, root)
		}
	}

	return false
}

func notFound(addr diag.Address, name string) error {
	return diag.New(diag.Runtime, addr,
		fmt.Sprintf("not found: %q", name),
		"check variable existence.")
}
