package reactive

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Set adds or updates a property so that the change is observed. Arrays
// take an index key and go through Splice. Objects take a string key;
// unknown keys on observed objects get a tracked accessor and the object's
// Observer is notified. Adding keys to root state is refused with a warning.
func (s *System) Set(target any, key any, val any) any {
	switch t := target.(type) {
	case *Array:
		if t == nil {
			break
		}
		i, ok := arrayIndex(key)
		if !ok {
			s.warnErr(errors.Wrapf(ErrInvalidTarget, "key %v is not a valid array index", key), target)
			return val
		}
		t.grow(i)
		t.Splice(i, 1, val)
		return val
	case *Object:
		if t == nil {
			break
		}
		k, ok := key.(string)
		if !ok {
			s.warnErr(errors.Wrapf(ErrInvalidTarget, "key %v is not a string", key), target)
			return val
		}
		if t.Has(k) {
			t.Put(k, val)
			return val
		}
		ob := t.ob
		if ob != nil && ob.rootCount > 0 {
			s.warnErr(errors.Wrapf(ErrRootMutation, "set %q", k), target)
			return val
		}
		if ob == nil {
			t.Put(k, val)
			return val
		}
		ob.sys.defineReactive(t, k, val, true, defineConfig{})
		ob.dep.Notify()
		return val
	}
	s.warnErr(errors.Wrapf(ErrInvalidTarget, "set on %T", target), target)
	return val
}

// Del removes a property and notifies the container's Observer.
func (s *System) Del(target any, key any) {
	switch t := target.(type) {
	case *Array:
		if t == nil {
			break
		}
		i, ok := arrayIndex(key)
		if !ok {
			s.warnErr(errors.Wrapf(ErrInvalidTarget, "key %v is not a valid array index", key), target)
			return
		}
		t.Splice(i, 1)
		return
	case *Object:
		if t == nil {
			break
		}
		k, ok := key.(string)
		if !ok {
			s.warnErr(errors.Wrapf(ErrInvalidTarget, "key %v is not a string", key), target)
			return
		}
		ob := t.ob
		if ob != nil && ob.rootCount > 0 {
			s.warnErr(errors.Wrapf(ErrRootMutation, "delete %q", k), target)
			return
		}
		if !t.Has(k) {
			return
		}
		if !t.Delete(k) {
			return
		}
		if ob != nil {
			ob.dep.Notify()
		}
		return
	}
	s.warnErr(errors.Wrapf(ErrInvalidTarget, "delete on %T", target), target)
}

func arrayIndex(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, k >= 0
	case int32:
		return int(k), k >= 0
	case int64:
		return int(k), k >= 0
	case uint:
		return int(k), true
	case float64:
		if k < 0 || math.IsInf(k, 0) || math.Floor(k) != k {
			return 0, false
		}
		return int(k), true
	case string:
		i, err := strconv.Atoi(k)
		if err != nil {
			return 0, false
		}
		return i, i >= 0
	}
	return 0, false
}
