package reactive

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"
)

// queueWatcher adds w to the pending flush unless it is already queued.
// While flushing, w is inserted by id after the current position so it
// still runs in this flush.
func (s *System) queueWatcher(w *Watcher) {
	id := w.id
	if s.has[id] || (s.flushing && s.halted[id]) {
		return
	}
	s.has[id] = true
	if !s.flushing {
		s.queue = append(s.queue, w)
	} else {
		i := len(s.queue) - 1
		for i > s.index && s.queue[i].id > id {
			i--
		}
		s.queue = slices.Insert(s.queue, i+1, w)
	}
	if !s.waiting {
		s.waiting = true
		s.NextTick(s.flushSchedulerQueue)
	}
}

// flushSchedulerQueue runs every queued watcher once in ascending id order.
// Watchers created earlier (parents, derived values) run before the ones
// created after them.
func (s *System) flushSchedulerQueue() error {
	s.flushing = true
	s.stats.Flushes++

	slices.SortFunc(s.queue, func(a, b *Watcher) int {
		return cmp.Compare(a.id, b.id)
	})

	for s.index = 0; s.index < len(s.queue); s.index++ {
		w := s.queue[s.index]
		id := w.id
		delete(s.has, id)
		if !w.active || s.halted[id] {
			continue
		}

		s.circular[id]++
		if s.circular[id] > s.maxUpdateCount {
			s.halted[id] = true
			s.stats.Runaways++
			s.ReportError(
				errors.Wrapf(ErrRunaway, "watcher %q re-ran more than %d times in one flush", w.expression, s.maxUpdateCount),
				w, "scheduler flush",
			)
			continue
		}

		s.runQueued(w)
		if !s.ranIDs[id] {
			s.ranIDs[id] = true
			s.ran = append(s.ran, w)
		}
	}

	ran := s.ran
	s.resetSchedulerState()

	hooks := slices.Clone(s.flushedHooks)
	for _, h := range hooks {
		h.fn(ran)
	}
	return nil
}

// runQueued isolates a single watcher so its failure cannot stop the flush.
func (s *System) runQueued(w *Watcher) {
	defer func() {
		if r := recover(); r != nil {
			s.ReportError(errors.Errorf("panic in watcher %q: %v", w.expression, r), w, "scheduler flush")
		}
	}()
	if w.before != nil {
		w.before()
	}
	if err := w.run(); err != nil {
		s.ReportError(err, w, "scheduler flush")
	}
}

func (s *System) resetSchedulerState() {
	s.index = 0
	s.queue = nil
	s.ran = nil
	clear(s.has)
	clear(s.circular)
	clear(s.halted)
	clear(s.ranIDs)
	s.waiting = false
	s.flushing = false
}

// OnFlushed registers fn to be called after every flush with the watchers
// that ran, in run order. The returned func removes the hook.
func (s *System) OnFlushed(fn func(ran []*Watcher)) (remove func()) {
	s.hookUID++
	id := s.hookUID
	s.flushedHooks = append(s.flushedHooks, flushedHook{id: id, fn: fn})
	return func() {
		s.flushedHooks = slices.DeleteFunc(s.flushedHooks, func(h flushedHook) bool {
			return h.id == id
		})
	}
}

// NextTick defers fn until after the current synchronous work and any
// flush already scheduled. Errors are reported, not returned.
func (s *System) NextTick(fn func() error) {
	s.callbacks = append(s.callbacks, fn)
	if !s.pending {
		s.pending = true
		if s.deferFn != nil {
			s.deferFn(s.flushCallbacks)
		}
	}
}

// Tick drains the deferred callback queue, including callbacks queued while
// draining. It reports whether anything ran. Hosts without WithDefer call
// it once their synchronous work is done.
func (s *System) Tick() bool {
	ran := false
	for s.pending {
		s.flushCallbacks()
		ran = true
	}
	return ran
}

func (s *System) flushCallbacks() {
	s.pending = false
	callbacks := s.callbacks
	s.callbacks = nil
	for _, cb := range callbacks {
		s.invokeTick(cb)
	}
}

func (s *System) invokeTick(cb func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.ReportError(errors.Errorf("panic: %v", r), nil, "nextTick")
		}
	}()
	if err := cb(); err != nil {
		s.ReportError(err, nil, "nextTick")
	}
}
