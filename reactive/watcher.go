package reactive

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// Getter computes a watcher's value from its target. Every tracked read it
// performs becomes a dependency.
type Getter func(target any) (any, error)

// Callback receives the new and previous value after a watcher re-runs.
type Callback func(value, oldValue any) error

type WatcherOption func(*Watcher)

// Deep makes the watcher depend on every nested property of its value and
// fire even when the value's identity is unchanged.
func Deep() WatcherOption {
	return func(w *Watcher) { w.deep = true }
}

// User marks a watcher registered by user code: errors from its getter and
// callback are reported rather than returned.
func User() WatcherOption {
	return func(w *Watcher) { w.user = true }
}

// Lazy defers evaluation until Evaluate is called; notifications only mark
// the watcher dirty. Used for derived values.
func Lazy() WatcherOption {
	return func(w *Watcher) { w.lazy = true }
}

// Sync runs the watcher as soon as it is notified instead of queueing it.
func Sync() WatcherOption {
	return func(w *Watcher) { w.sync = true }
}

// Before registers a hook run right before the watcher runs in a flush.
func Before(fn func()) WatcherOption {
	return func(w *Watcher) { w.before = fn }
}

// Render marks the watcher driving a consumer's output.
func Render() WatcherOption {
	return func(w *Watcher) { w.render = true }
}

func Expression(expr string) WatcherOption {
	return func(w *Watcher) { w.expression = expr }
}

// Watcher evaluates a getter, records the Deps it touched, and re-evaluates
// when any of them notify.
type Watcher struct {
	sys        *System
	id         uint64
	target     any
	expression string
	getter     Getter
	cb         Callback
	before     func()

	deep, user, lazy, sync, render bool

	dirty  bool
	active bool

	deps      []*Dep
	newDeps   []*Dep
	depIDs    mapset.Set[uint64]
	newDepIDs mapset.Set[uint64]

	value any
}

// NewWatcher registers getter against target. Unless lazy, the getter runs
// once right away to collect the initial dependencies; a failure of a
// non-user getter is returned and the watcher is torn down.
func (s *System) NewWatcher(target any, getter Getter, cb Callback, opts ...WatcherOption) (*Watcher, error) {
	w := s.newWatcher(target, getter, cb, opts)
	if !w.lazy {
		v, err := w.get()
		if err != nil && !w.user {
			w.Teardown()
			return nil, err
		}
		if err == nil {
			w.value = v
		}
	}
	return w, nil
}

// WatchPath is NewWatcher with a dot-delimited path such as "a.b.c". A path
// that cannot be parsed is reported as a warning and watches nothing.
func (s *System) WatchPath(target any, path string, cb Callback, opts ...WatcherOption) (*Watcher, error) {
	getter, err := s.parsePath(path)
	if err != nil {
		s.warnErr(err, target)
		getter = func(any) (any, error) { return nil, nil }
	}
	return s.NewWatcher(target, getter, cb, append([]WatcherOption{Expression(path)}, opts...)...)
}

func (s *System) newWatcher(target any, getter Getter, cb Callback, opts []WatcherOption) *Watcher {
	s.watcherUID++
	s.stats.Watchers++
	w := &Watcher{
		sys:       s,
		id:        s.watcherUID,
		target:    target,
		getter:    getter,
		cb:        cb,
		active:    true,
		depIDs:    mapset.NewThreadUnsafeSet[uint64](),
		newDepIDs: mapset.NewThreadUnsafeSet[uint64](),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.dirty = w.lazy
	if w.getter == nil {
		w.getter = func(any) (any, error) { return nil, nil }
	}
	if w.cb == nil {
		w.cb = func(any, any) error { return nil }
	}
	if w.expression == "" {
		w.expression = fmt.Sprintf("watcher#%d", w.id)
	}
	return w
}

func (w *Watcher) ID() uint64         { return w.id }
func (w *Watcher) Value() any         { return w.value }
func (w *Watcher) Dirty() bool        { return w.dirty }
func (w *Watcher) Active() bool       { return w.active }
func (w *Watcher) Expression() string { return w.expression }
func (w *Watcher) IsRender() bool     { return w.render }
func (w *Watcher) IsLazy() bool       { return w.lazy }
func (w *Watcher) Target() any        { return w.target }

// Deps returns the ids of the Deps the latest evaluation subscribed to.
func (w *Watcher) Deps() []uint64 {
	ids := make([]uint64, len(w.deps))
	for i, d := range w.deps {
		ids[i] = d.id
	}
	return ids
}

// get evaluates the getter with w on top of the evaluation stack and then
// swaps in the freshly collected dependencies. Errors of user watchers are
// reported here; callers only use the returned error to skip the result.
func (w *Watcher) get() (value any, err error) {
	w.sys.pushTarget(w)
	defer func() {
		if w.deep && err == nil {
			w.sys.traverse(value)
		}
		w.sys.popTarget()
		w.cleanupDeps()
	}()

	value, err = w.invokeGetter()
	if err != nil && w.user {
		w.sys.ReportError(err, w, fmt.Sprintf("getter for watcher %q", w.expression))
	}
	return value, err
}

func (w *Watcher) invokeGetter() (value any, err error) {
	if w.user {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic: %v", r)
			}
		}()
	}
	return w.getter(w.target)
}

func (w *Watcher) addDep(d *Dep) {
	if !w.active {
		return
	}
	id := d.id
	if w.newDepIDs.Contains(id) {
		return
	}
	w.newDepIDs.Add(id)
	w.newDeps = append(w.newDeps, d)
	if !w.depIDs.Contains(id) {
		d.Subscribe(w)
	}
}

func (w *Watcher) cleanupDeps() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		d := w.deps[i]
		if !w.newDepIDs.Contains(d.id) || !w.active {
			d.Unsubscribe(w)
		}
	}
	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	w.newDepIDs.Clear()
	w.deps, w.newDeps = w.newDeps, w.deps[:0]
	if !w.active {
		for _, d := range w.deps {
			d.Unsubscribe(w)
		}
	}
}

// update is called by a Dep when it changes.
func (w *Watcher) update() {
	switch {
	case !w.active:
	case w.lazy:
		w.dirty = true
	case w.sync:
		if err := w.run(); err != nil {
			w.sys.ReportError(err, w, "sync watcher")
		}
	default:
		w.sys.queueWatcher(w)
	}
}

// run re-evaluates and fires the callback when the value changed, is a
// container that may have been mutated in place, or the watcher is deep.
func (w *Watcher) run() error {
	if !w.active {
		return nil
	}
	w.sys.stats.Runs++
	value, err := w.get()
	if err != nil {
		if w.user {
			return nil
		}
		return err
	}
	if sameValue(value, w.value) && !isObject(value) && !w.deep {
		return nil
	}
	oldValue := w.value
	w.value = value
	if !w.user {
		return w.cb(value, oldValue)
	}
	if err := w.invokeCallback(value, oldValue); err != nil {
		w.sys.ReportError(err, w, fmt.Sprintf("callback for watcher %q", w.expression))
	}
	return nil
}

func (w *Watcher) invokeCallback(value, oldValue any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return w.cb(value, oldValue)
}

// Evaluate recomputes a lazy watcher and clears its dirty flag.
func (w *Watcher) Evaluate() error {
	value, err := w.get()
	if err != nil {
		if w.user {
			w.dirty = false
			return nil
		}
		return err
	}
	w.value = value
	w.dirty = false
	return nil
}

// Depend makes the currently evaluating watcher depend on everything w
// depends on. This is how a derived value passes its dependencies on to
// whoever reads it.
func (w *Watcher) Depend() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].Depend()
	}
}

// Teardown unsubscribes w from all of its Deps. It is never notified or
// run again.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].Unsubscribe(w)
	}
	w.active = false
}
