package selector

import (
	"git.home.luguber.info/inful/besselect/internal/bes"
	"git.home.luguber.info/inful/besselect/internal/foundation"
)

// AnySelector is a value container holding any Selector implementation,
// letting callers pass heterogeneous selectors around without naming their
// concrete types.
//
// The zero value is empty. The only legal operations on an empty
// AnySelector are assignment of a new value via Wrap; invoking any contract
// method on it is a programming error and panics.
type AnySelector struct {
	impl Selector
}

// Wrap boxes the provided selector. Stateful selectors must be passed by
// pointer so DeserializeFrom reaches the shared state.
func Wrap(s Selector) AnySelector {
	if s == nil {
		panic("selector: Wrap called with nil Selector")
	}
	return AnySelector{impl: s}
}

// Empty reports whether the container holds no selector.
func (a AnySelector) Empty() bool {
	return a.impl == nil
}

func (a AnySelector) get() Selector {
	if a.impl == nil {
		panic("selector: use of empty AnySelector")
	}
	return a.impl
}

// Select forwards selection to the contained selector.
func (a AnySelector) Select(event *bes.BuildEvent) foundation.Option[bes.Artifact] {
	return a.get().Select(event)
}

// SerializeInto forwards serialization to the contained selector.
func (a AnySelector) SerializeInto(state *State) bool {
	return a.get().SerializeInto(state)
}

// DeserializeFrom forwards deserialization to the contained selector.
func (a AnySelector) DeserializeFrom(state State) error {
	return a.get().DeserializeFrom(state)
}
