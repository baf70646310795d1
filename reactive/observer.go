package reactive

import (
	"math"
	"reflect"
)

// Observer is attached to each observed Object or Array. It owns the
// container-level Dep used for additions, deletions and array mutations,
// and counts the root consumers using the container as their state.
type Observer struct {
	sys       *System
	value     any
	dep       *Dep
	rootCount int
}

func (o *Observer) Value() any {
	return o.value
}

func (o *Observer) Dep() *Dep {
	return o.dep
}

// RootCount is the number of consumers holding the container as root state.
func (o *Observer) RootCount() int {
	return o.rootCount
}

// ReleaseRoot is called when a root consumer goes away.
func (o *Observer) ReleaseRoot() {
	if o.rootCount > 0 {
		o.rootCount--
	}
}

// Observe returns the Observer for value, creating one if value is an
// observable container. Anything else yields nil.
func (s *System) Observe(value any) *Observer {
	return s.observe(value, false)
}

// ObserveRoot is Observe for a container used as a consumer's root state.
func (s *System) ObserveRoot(value any) *Observer {
	return s.observe(value, true)
}

// Observable makes value reactive and returns it unchanged.
func (s *System) Observable(value any) any {
	s.observe(value, false)
	return value
}

func (s *System) observe(value any, asRoot bool) *Observer {
	var ob *Observer
	switch v := value.(type) {
	case *Object:
		if v == nil {
			return nil
		}
		if v.ob != nil {
			ob = v.ob
		} else if s.shouldObserve && !v.sealed && !v.raw {
			ob = s.newObserver(v)
			v.ob = ob
			ob.walk(v)
		}
	case *Array:
		if v == nil {
			return nil
		}
		if v.ob != nil {
			ob = v.ob
		} else if s.shouldObserve && !v.sealed && !v.raw {
			ob = s.newObserver(v)
			v.ob = ob
			ob.observeArray(v.items)
		}
	default:
		return nil
	}
	if asRoot && ob != nil {
		ob.rootCount++
	}
	return ob
}

func (s *System) newObserver(value any) *Observer {
	return &Observer{sys: s, value: value, dep: s.newDep()}
}

func (o *Observer) walk(obj *Object) {
	for _, key := range obj.Keys() {
		o.sys.defineReactive(obj, key, nil, false, defineConfig{})
	}
}

func (o *Observer) observeArray(items []any) {
	for _, item := range items {
		o.sys.Observe(item)
	}
}

type defineConfig struct {
	customSetter func()
	shallow      bool
}

type DefineOption func(*defineConfig)

// WithCustomSetter registers a hook invoked before every effective write.
func WithCustomSetter(fn func()) DefineOption {
	return func(c *defineConfig) {
		c.customSetter = fn
	}
}

// Shallow keeps the stored value itself from being observed.
func Shallow() DefineOption {
	return func(c *defineConfig) {
		c.shallow = true
	}
}

// DefineReactive installs a tracked accessor for key on obj holding val.
func (s *System) DefineReactive(obj *Object, key string, val any, opts ...DefineOption) {
	var cfg defineConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	s.defineReactive(obj, key, val, true, cfg)
}

func (s *System) defineReactive(obj *Object, key string, val any, hasVal bool, cfg defineConfig) {
	prev, exists := obj.props[key]
	if exists && !prev.configurable {
		return
	}
	dep := s.newDep()

	var getter func() any
	var setter func(any)
	if exists {
		getter, setter = prev.get, prev.set
		if (getter == nil || setter != nil) && !hasVal {
			val = prev.read()
		}
	}

	var childOb *Observer
	if !cfg.shallow {
		childOb = s.Observe(val)
	}

	reactiveGetter := func() any {
		value := val
		if getter != nil {
			value = getter()
		}
		if s.target != nil {
			dep.Depend()
			if childOb != nil {
				childOb.dep.Depend()
				if arr, ok := value.(*Array); ok {
					dependArray(arr)
				}
			}
		}
		return value
	}

	reactiveSetter := func(newVal any) {
		value := val
		if getter != nil {
			value = getter()
		}
		if sameValue(newVal, value) {
			return
		}
		if cfg.customSetter != nil {
			cfg.customSetter()
		}
		if getter != nil && setter == nil {
			return
		}
		if setter != nil {
			setter(newVal)
		} else {
			val = newVal
		}
		childOb = nil
		if !cfg.shallow {
			childOb = s.Observe(newVal)
		}
		dep.Notify()
	}

	enumerable := true
	if exists {
		enumerable = prev.enumerable
	}
	obj.install(key, &property{
		get:          reactiveGetter,
		set:          reactiveSetter,
		enumerable:   enumerable,
		configurable: true,
	})
}

// dependArray registers dependencies on every observed element since
// element access cannot be intercepted.
func dependArray(arr *Array) {
	for _, e := range arr.items {
		switch e := e.(type) {
		case *Object:
			if ob := e.Observer(); ob != nil {
				ob.dep.Depend()
			}
		case *Array:
			if ob := e.Observer(); ob != nil {
				ob.dep.Depend()
			}
			if e != nil {
				dependArray(e)
			}
		}
	}
}

// sameValue reports whether a write of b over a would be a no-op:
// identical comparable values, identical reference values, or two NaNs.
func sameValue(a, b any) bool {
	if isNaN(a) && isNaN(b) {
		return true
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return false
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

// isObject reports whether v is a non-primitive value whose contents may
// change without its identity changing.
func isObject(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case *Object:
		return v != nil
	case *Array:
		return v != nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		return true
	}
	return false
}
