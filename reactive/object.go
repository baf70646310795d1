package reactive

import (
	"slices"
	"sort"

	"github.com/pkg/errors"
)

// Descriptor describes a single property of an Object. A property either
// holds Value directly or is an accessor pair; Get without Set makes the
// property read-only.
type Descriptor struct {
	Value        any
	Get          func() any
	Set          func(v any)
	Enumerable   bool
	Configurable bool
}

type property struct {
	value        any
	get          func() any
	set          func(v any)
	enumerable   bool
	configurable bool
}

func (p *property) read() any {
	if p.get != nil {
		return p.get()
	}
	return p.value
}

// Object is a string-keyed container whose properties can be turned into
// tracked accessors. Keys keep insertion order. Reads and writes must go
// through the handle for tracking to happen.
type Object struct {
	keys   []string
	props  map[string]*property
	ob     *Observer
	sealed bool
	raw    bool
}

func NewObject() *Object {
	return &Object{props: map[string]*property{}}
}

// FromMap deep-converts m into Objects and Arrays. Keys are added in sorted
// order so construction is deterministic.
func FromMap(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Put(k, convert(m[k]))
	}
	return o
}

func convert(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return FromMap(v)
	case []any:
		return FromSlice(v)
	default:
		return v
	}
}

// Get returns the value stored under key, running the accessor if the
// property has one. Missing keys read as nil.
func (o *Object) Get(key string) any {
	v, _ := o.Lookup(key)
	return v
}

func (o *Object) Lookup(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	p, ok := o.props[key]
	if !ok {
		return nil, false
	}
	return p.read(), true
}

// Put assigns v to key. Existing accessors handle the write; a getter with
// no setter ignores it. New keys are added as plain, untracked properties
// unless the object is not extensible, in which case the write is dropped.
func (o *Object) Put(key string, v any) {
	if p, ok := o.props[key]; ok {
		switch {
		case p.set != nil:
			p.set(v)
		case p.get != nil:
		default:
			p.value = v
		}
		return
	}
	if o.sealed {
		return
	}
	o.install(key, &property{value: v, enumerable: true, configurable: true})
}

func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.props[key]
	return ok
}

// Keys returns the enumerable keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		if o.props[k].enumerable {
			keys = append(keys, k)
		}
	}
	return keys
}

func (o *Object) Len() int {
	return len(o.Keys())
}

// Delete removes key as a plain delete would: no notification is sent.
// Use System.Del to delete and notify. Non-configurable keys are kept.
func (o *Object) Delete(key string) bool {
	p, ok := o.props[key]
	if !ok {
		return true
	}
	if !p.configurable {
		return false
	}
	delete(o.props, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
	return true
}

func (o *Object) DefineProperty(key string, d Descriptor) error {
	if p, ok := o.props[key]; ok && !p.configurable {
		return errors.Wrapf(ErrNotConfigurable, "define %q", key)
	} else if !ok && o.sealed {
		return errors.Wrapf(ErrNotExtensible, "define %q", key)
	}
	o.install(key, &property{
		value:        d.Value,
		get:          d.Get,
		set:          d.Set,
		enumerable:   d.Enumerable,
		configurable: d.Configurable,
	})
	return nil
}

func (o *Object) Descriptor(key string) (Descriptor, bool) {
	p, ok := o.props[key]
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{
		Value:        p.value,
		Get:          p.get,
		Set:          p.set,
		Enumerable:   p.enumerable,
		Configurable: p.configurable,
	}, true
}

func (o *Object) install(key string, p *property) {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = p
}

// PreventExtensions stops new keys from being added. Such objects are never
// observed.
func (o *Object) PreventExtensions() *Object {
	o.sealed = true
	return o
}

func (o *Object) IsExtensible() bool {
	return !o.sealed
}

// MarkRaw excludes o from observation, e.g. for rendering nodes.
func (o *Object) MarkRaw() *Object {
	o.raw = true
	return o
}

// Observer returns the Observer attached to o, or nil.
func (o *Object) Observer() *Observer {
	if o == nil {
		return nil
	}
	return o.ob
}

// ToMap deep-converts o back into plain Go values. Reads go through the
// accessors so a running watcher depends on everything it returns.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.Keys() {
		m[k] = unwrap(o.Get(k))
	}
	return m
}

func unwrap(v any) any {
	switch v := v.(type) {
	case *Object:
		if v == nil {
			return nil
		}
		return v.ToMap()
	case *Array:
		if v == nil {
			return nil
		}
		return v.ToSlice()
	default:
		return v
	}
}
