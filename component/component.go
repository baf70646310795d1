// Package component binds root state, derived values, watchers and a render
// computation to a single instance on top of the reactive engine.
package component

import (
	"fmt"
	"sort"

	"github.com/delaneyj/watchparty/reactive"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ComputedDef declares a derived value. Get is evaluated lazily and cached
// until one of its dependencies changes, unless NoCache is set.
type ComputedDef struct {
	Get     func(i *Instance) (any, error)
	Set     func(i *Instance, v any) error
	NoCache bool
}

// WatchDef declares a user watcher on an expression.
type WatchDef struct {
	Handler   reactive.Callback
	Deep      bool
	Sync      bool
	Immediate bool
}

type Options struct {
	Data         func(i *Instance) map[string]any
	Computed     map[string]ComputedDef
	Watch        map[string][]WatchDef
	Render       func(i *Instance) (any, error)
	BeforeUpdate func(i *Instance)
	Updated      func(i *Instance)
}

type Instance struct {
	id     uuid.UUID
	sys    *reactive.System
	opts   Options
	logger logrus.FieldLogger

	data          *reactive.Object
	computed      map[string]*reactive.Watcher
	watchers      []*reactive.Watcher
	renderWatcher *reactive.Watcher
	output        any

	removeHook func()
	mounted    bool
	destroyed  bool
}

// New initializes state in order: data, computed, watch.
func New(sys *reactive.System, opts Options, logger logrus.FieldLogger) (*Instance, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	i := &Instance{
		id:       uuid.New(),
		sys:      sys,
		opts:     opts,
		computed: map[string]*reactive.Watcher{},
	}
	i.logger = logger.WithField("instance", i.id.String())

	i.initData()
	if err := i.initComputed(); err != nil {
		return nil, errors.Wrap(err, "computed")
	}
	if err := i.initWatch(); err != nil {
		return nil, errors.Wrap(err, "watch")
	}
	i.removeHook = sys.OnFlushed(i.flushed)
	i.logger.Debug("component: created")
	return i, nil
}

func (i *Instance) ID() uuid.UUID            { return i.id }
func (i *Instance) System() *reactive.System { return i.sys }
func (i *Instance) Data() *reactive.Object   { return i.data }
func (i *Instance) Output() any              { return i.output }
func (i *Instance) Mounted() bool            { return i.mounted }

func (i *Instance) initData() {
	var m map[string]any
	if i.opts.Data != nil {
		i.sys.Untracked(func() {
			defer func() {
				if r := recover(); r != nil {
					i.sys.ReportError(errors.Errorf("panic: %v", r), i, "data()")
					m = map[string]any{}
				}
			}()
			m = i.opts.Data(i)
		})
		if m == nil {
			i.sys.Warn("data functions should return a map", i)
		}
	}
	i.data = reactive.FromMap(m)
	i.sys.ObserveRoot(i.data)
}

func (i *Instance) initComputed() error {
	keys := make([]string, 0, len(i.opts.Computed))
	for k := range i.opts.Computed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		def := i.opts.Computed[key]
		if def.Get == nil {
			i.sys.Warn(fmt.Sprintf("getter is missing for computed property %q", key), i)
			def.Get = func(*Instance) (any, error) { return nil, nil }
			i.opts.Computed[key] = def
		}
		if i.data.Has(key) {
			i.sys.Warn(fmt.Sprintf("the computed property %q is already defined in data", key), i)
			continue
		}
		get := def.Get
		w, err := i.sys.NewWatcher(i, func(any) (any, error) {
			return get(i)
		}, nil, reactive.Lazy(), reactive.Expression(key))
		if err != nil {
			return err
		}
		i.computed[key] = w
		i.watchers = append(i.watchers, w)
	}
	return nil
}

func (i *Instance) initWatch() error {
	keys := make([]string, 0, len(i.opts.Watch))
	for k := range i.opts.Watch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, def := range i.opts.Watch[key] {
			if _, err := i.Watch(key, def); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get resolves key as a computed property first, then as data. It makes
// Instance usable as the target of path watchers.
func (i *Instance) Get(key string) any {
	if def, ok := i.opts.Computed[key]; ok {
		if def.NoCache {
			v, err := def.Get(i)
			if err != nil {
				i.sys.ReportError(err, i, fmt.Sprintf("computed getter %q", key))
			}
			return v
		}
		if w, ok := i.computed[key]; ok {
			if w.Dirty() {
				if err := w.Evaluate(); err != nil {
					i.sys.ReportError(err, i, fmt.Sprintf("computed getter %q", key))
				}
			}
			if i.sys.Tracking() {
				w.Depend()
			}
			return w.Value()
		}
	}
	return i.data.Get(key)
}

// Put writes key. Computed properties need a setter; unknown data keys go
// through System.Set, which refuses additions to root state.
func (i *Instance) Put(key string, v any) {
	if def, ok := i.opts.Computed[key]; ok && !i.data.Has(key) {
		if def.Set == nil {
			i.sys.Warn(fmt.Sprintf("computed property %q was assigned to but it has no setter", key), i)
			return
		}
		if err := def.Set(i, v); err != nil {
			i.sys.ReportError(err, i, fmt.Sprintf("computed setter %q", key))
		}
		return
	}
	i.sys.Set(i.data, key, v)
}

// Set is System.Set, for nested containers reachable from the instance.
func (i *Instance) Set(target any, key any, v any) any {
	return i.sys.Set(target, key, v)
}

func (i *Instance) Delete(target any, key any) {
	i.sys.Del(target, key)
}

// Watch registers a user watcher on a dot-delimited expression evaluated
// against the instance. The returned func unwatches.
func (i *Instance) Watch(expr string, def WatchDef) (unwatch func(), err error) {
	opts := []reactive.WatcherOption{reactive.User()}
	if def.Deep {
		opts = append(opts, reactive.Deep())
	}
	if def.Sync {
		opts = append(opts, reactive.Sync())
	}
	w, err := i.sys.WatchPath(i, expr, def.Handler, opts...)
	if err != nil {
		return nil, err
	}
	return i.track(w, def), nil
}

// WatchFunc is Watch with a getter instead of an expression.
func (i *Instance) WatchFunc(getter func(i *Instance) (any, error), def WatchDef) (unwatch func(), err error) {
	opts := []reactive.WatcherOption{reactive.User()}
	if def.Deep {
		opts = append(opts, reactive.Deep())
	}
	if def.Sync {
		opts = append(opts, reactive.Sync())
	}
	w, err := i.sys.NewWatcher(i, func(any) (any, error) {
		return getter(i)
	}, def.Handler, opts...)
	if err != nil {
		return nil, err
	}
	return i.track(w, def), nil
}

func (i *Instance) track(w *reactive.Watcher, def WatchDef) func() {
	i.watchers = append(i.watchers, w)
	if def.Immediate && def.Handler != nil {
		i.callImmediate(w, def.Handler)
	}
	return w.Teardown
}

func (i *Instance) callImmediate(w *reactive.Watcher, handler reactive.Callback) {
	defer func() {
		if r := recover(); r != nil {
			i.sys.ReportError(errors.Errorf("panic: %v", r), i, fmt.Sprintf("callback for immediate watcher %q", w.Expression()))
		}
	}()
	if err := handler(w.Value(), nil); err != nil {
		i.sys.ReportError(err, i, fmt.Sprintf("callback for immediate watcher %q", w.Expression()))
	}
}

// Mount creates the render watcher. It renders once immediately and then
// again in every flush after state it read changed.
func (i *Instance) Mount() error {
	if i.opts.Render == nil {
		i.sys.Warn("mounting an instance without a render function", i)
		return nil
	}
	w, err := i.sys.NewWatcher(i, func(any) (any, error) {
		out, err := i.opts.Render(i)
		if err != nil {
			return nil, err
		}
		i.output = out
		return nil, nil
	}, nil, reactive.Render(), reactive.Expression("render"), reactive.Before(func() {
		if i.mounted && !i.destroyed && i.opts.BeforeUpdate != nil {
			i.opts.BeforeUpdate(i)
		}
	}))
	if err != nil {
		return errors.Wrap(err, "render")
	}
	i.renderWatcher = w
	i.watchers = append(i.watchers, w)
	i.mounted = true
	return nil
}

func (i *Instance) flushed(ran []*reactive.Watcher) {
	if i.renderWatcher == nil || !i.mounted || i.destroyed || i.opts.Updated == nil {
		return
	}
	for _, w := range ran {
		if w == i.renderWatcher {
			i.opts.Updated(i)
			return
		}
	}
}

// Destroy tears down every watcher and releases the root state.
func (i *Instance) Destroy() {
	if i.destroyed {
		return
	}
	i.destroyed = true
	for _, w := range i.watchers {
		w.Teardown()
	}
	i.watchers = nil
	if ob := i.data.Observer(); ob != nil {
		ob.ReleaseRoot()
	}
	if i.removeHook != nil {
		i.removeHook()
	}
	i.logger.Debug("component: destroyed")
}
