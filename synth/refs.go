package synth

import (
	"errors"
	"fmt"
)

var ErrUnknownRef = errors.New("reference to undeclared resource")

// Refs is the lookup table of logical identifiers. Resources refer to each
// other only through these names; renderers resolve them to their own
// handles. Insertion order is creation order.
type Refs struct {
	order []string
	deps  map[string][]string
}

func newRefs() *Refs {
	return &Refs{deps: map[string][]string{}}
}

func (r *Refs) add(ref string, deps ...string) {
	if _, ok := r.deps[ref]; !ok {
		r.order = append(r.order, ref)
	}
	r.deps[ref] = append(r.deps[ref], deps...)
}

// Has reports whether ref was declared.
func (r *Refs) Has(ref string) bool {
	_, ok := r.deps[ref]
	return ok
}

// DependsOn lists what ref must be created after.
func (r *Refs) DependsOn(ref string) []string {
	return append([]string(nil), r.deps[ref]...)
}

// Order returns every identifier such that dependencies come first.
func (r *Refs) Order() []string {
	return append([]string(nil), r.order...)
}

// check verifies that every dependency was declared before its dependent.
func (r *Refs) check() error {
	pos := make(map[string]int, len(r.order))
	for i, ref := range r.order {
		pos[ref] = i
	}
	for i, ref := range r.order {
		for _, dep := range r.deps[ref] {
			j, ok := pos[dep]
			if !ok {
				return fmt.Errorf("%w: %s depends on %s", ErrUnknownRef, ref, dep)
			}
			if j >= i {
				return fmt.Errorf("%w: %s depends on %s, which is declared later", ErrUnknownRef, ref, dep)
			}
		}
	}
	return nil
}
