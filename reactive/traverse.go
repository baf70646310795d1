package reactive

import mapset "github.com/deckarep/golang-set/v2"

// traverse reads every nested property of val so a deep watcher collects
// all of them as dependencies. Observed containers also register their own
// Dep, which makes additions and deletions visible.
func (s *System) traverse(val any) {
	seen := mapset.NewThreadUnsafeSet[any]()
	traverseInto(val, seen)
}

func traverseInto(val any, seen mapset.Set[any]) {
	switch v := val.(type) {
	case *Object:
		if v == nil || v.sealed || v.raw || seen.Contains(v) {
			return
		}
		seen.Add(v)
		if v.ob != nil {
			v.ob.dep.Depend()
		}
		for _, k := range v.Keys() {
			traverseInto(v.Get(k), seen)
		}
	case *Array:
		if v == nil || v.sealed || v.raw || seen.Contains(v) {
			return
		}
		seen.Add(v)
		if v.ob != nil {
			v.ob.dep.Depend()
		}
		for _, item := range v.items {
			traverseInto(item, seen)
		}
	}
}
