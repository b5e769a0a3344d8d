package domain

import "fmt"

// Binding inserts an interstitial of the given kind between two specific
// questions. Continuing forward from the interstitial lands on To; going
// back from it lands on From.
type Binding struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

type edge struct {
	from, to string
}

// BindingTable is the static lookup for interstitial insertion points:
// a forward map keyed by (from, to) plus its inverse keyed by kind.
// Kinds must be unique so that the active kind tag alone is enough to
// resolve both re-entry points during back-navigation and forward exit.
type BindingTable struct {
	forward map[edge]Kind
	byKind  map[Kind]Binding
}

// NewBindingTable builds the lookup maps, rejecting duplicate edges,
// duplicate kinds, and incomplete entries.
func NewBindingTable(bindings ...Binding) (*BindingTable, error) {
	t := &BindingTable{
		forward: make(map[edge]Kind, len(bindings)),
		byKind:  make(map[Kind]Binding, len(bindings)),
	}
	for _, b := range bindings {
		if b.From == "" || b.To == "" || b.Kind == "" {
			return nil, fmt.Errorf("incomplete binding: %+v", b)
		}
		e := edge{from: b.From, to: b.To}
		if _, dup := t.forward[e]; dup {
			return nil, fmt.Errorf("duplicate binding for transition %s -> %s", b.From, b.To)
		}
		if _, dup := t.byKind[b.Kind]; dup {
			return nil, fmt.Errorf("duplicate interstitial kind: %s", b.Kind)
		}
		t.forward[e] = b.Kind
		t.byKind[b.Kind] = b
	}
	return t, nil
}

// Lookup returns the interstitial kind bound to a (from, to) transition.
func (t *BindingTable) Lookup(from, to string) (Kind, bool) {
	k, ok := t.forward[edge{from: from, to: to}]
	return k, ok
}

// ByKind returns the binding carrying a kind, resolving both the back
// re-entry point (From) and the forward exit (To).
func (t *BindingTable) ByKind(k Kind) (Binding, bool) {
	b, ok := t.byKind[k]
	return b, ok
}

// Len returns the number of bindings.
func (t *BindingTable) Len() int {
	return len(t.byKind)
}

// Validate checks the table against a catalog: every endpoint must be a
// known question, and the forward and inverse maps must agree. The
// map construction already guarantees forward/reverse consistency; this
// re-verifies it explicitly since back-navigation correctness depends on it.
func (t *BindingTable) Validate(c *Catalog) error {
	for k, b := range t.byKind {
		if c.Index(b.From) < 0 {
			return fmt.Errorf("binding %s: unknown from question %q", k, b.From)
		}
		if c.Index(b.To) < 0 {
			return fmt.Errorf("binding %s: unknown to question %q", k, b.To)
		}
		fk, ok := t.Lookup(b.From, b.To)
		if !ok || fk != k {
			return fmt.Errorf("binding %s: forward/reverse tables disagree on %s -> %s", k, b.From, b.To)
		}
	}
	return nil
}
