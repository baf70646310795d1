package reactive

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
)

// Array is an ordered container. Index writes through SetIndex are not
// tracked; the mutating methods below are, once the array is observed: they
// observe inserted elements and notify the array's Observer.
type Array struct {
	items  []any
	ob     *Observer
	sealed bool
	raw    bool
}

func NewArray(items ...any) *Array {
	return &Array{items: items}
}

// FromSlice deep-converts items into Objects and Arrays.
func FromSlice(items []any) *Array {
	a := &Array{items: make([]any, len(items))}
	for i, v := range items {
		a.items[i] = convert(v)
	}
	return a
}

func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns the element at i, or nil when out of range.
func (a *Array) At(i int) any {
	if a == nil || i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Get resolves a path segment: a decimal index or "length".
func (a *Array) Get(key string) any {
	if key == "length" {
		return a.Len()
	}
	i, err := strconv.Atoi(key)
	if err != nil {
		return nil
	}
	return a.At(i)
}

// Items returns a copy of the elements.
func (a *Array) Items() []any {
	return slices.Clone(a.items)
}

// SetIndex writes v at i, growing the array with nils when needed. Like a
// raw index assignment it bypasses tracking; use System.Set instead.
func (a *Array) SetIndex(i int, v any) {
	if i < 0 {
		return
	}
	a.grow(i + 1)
	a.items[i] = v
}

func (a *Array) grow(n int) {
	if n > len(a.items) {
		a.items = append(a.items, make([]any, n-len(a.items))...)
	}
}

func (a *Array) Push(items ...any) int {
	a.items = append(a.items, items...)
	a.mutated(items)
	return len(a.items)
}

func (a *Array) Pop() any {
	if len(a.items) == 0 {
		a.mutated(nil)
		return nil
	}
	last := a.items[len(a.items)-1]
	a.items = a.items[:len(a.items)-1]
	a.mutated(nil)
	return last
}

func (a *Array) Shift() any {
	if len(a.items) == 0 {
		a.mutated(nil)
		return nil
	}
	first := a.items[0]
	a.items = slices.Delete(a.items, 0, 1)
	a.mutated(nil)
	return first
}

func (a *Array) Unshift(items ...any) int {
	a.items = slices.Insert(a.items, 0, items...)
	a.mutated(items)
	return len(a.items)
}

// Splice removes deleteCount elements starting at start and inserts items
// in their place. A negative start counts back from the end. The removed
// elements are returned.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	n := len(a.items)
	switch {
	case start < 0:
		start = max(n+start, 0)
	case start > n:
		start = n
	}
	deleteCount = min(max(deleteCount, 0), n-start)
	removed := slices.Clone(a.items[start : start+deleteCount])
	a.items = slices.Replace(a.items, start, start+deleteCount, items...)
	a.mutated(items)
	return removed
}

// Sort sorts in place. A nil less compares the elements' default string
// form.
func (a *Array) Sort(less func(x, y any) bool) *Array {
	if less == nil {
		less = func(x, y any) bool {
			return fmt.Sprint(x) < fmt.Sprint(y)
		}
	}
	sort.SliceStable(a.items, func(i, j int) bool {
		return less(a.items[i], a.items[j])
	})
	a.mutated(nil)
	return a
}

func (a *Array) Reverse() *Array {
	slices.Reverse(a.items)
	a.mutated(nil)
	return a
}

func (a *Array) mutated(inserted []any) {
	ob := a.ob
	if ob == nil {
		return
	}
	if len(inserted) > 0 {
		ob.observeArray(inserted)
	}
	ob.dep.Notify()
}

func (a *Array) PreventExtensions() *Array {
	a.sealed = true
	return a
}

func (a *Array) IsExtensible() bool {
	return !a.sealed
}

func (a *Array) MarkRaw() *Array {
	a.raw = true
	return a
}

func (a *Array) Observer() *Observer {
	if a == nil {
		return nil
	}
	return a.ob
}

// ToSlice deep-converts a into plain Go values.
func (a *Array) ToSlice() []any {
	out := make([]any, len(a.items))
	for i, v := range a.items {
		out[i] = unwrap(v)
	}
	return out
}
