package reactive

import (
	"slices"

	"github.com/pkg/errors"
)

// Dep is the subject side of a dependency: one per tracked property and one
// per observed container. Subscribers are kept in subscription order.
type Dep struct {
	sys  *System
	id   uint64
	subs []*Watcher
}

func (s *System) newDep() *Dep {
	s.depUID++
	return &Dep{sys: s, id: s.depUID}
}

func (d *Dep) ID() uint64 {
	return d.id
}

// Subscribe adds w if it is not already subscribed.
func (d *Dep) Subscribe(w *Watcher) {
	for _, sub := range d.subs {
		if sub == w {
			return
		}
	}
	d.subs = append(d.subs, w)
}

func (d *Dep) Unsubscribe(w *Watcher) {
	for i, sub := range d.subs {
		if sub == w {
			d.subs = slices.Delete(d.subs, i, i+1)
			return
		}
	}
}

// Subscribers returns a copy of the current subscriber list.
func (d *Dep) Subscribers() []*Watcher {
	return slices.Clone(d.subs)
}

// Depend records d as a dependency of the watcher currently evaluating.
// The watcher decides whether to subscribe so both sides stay deduplicated.
func (d *Dep) Depend() {
	if t := d.sys.target; t != nil {
		t.addDep(d)
	}
}

// Notify informs every subscriber that d changed. It iterates over a
// snapshot since subscribers may re-evaluate and resubscribe while being
// notified.
func (d *Dep) Notify() {
	d.sys.stats.Notifications++
	subs := slices.Clone(d.subs)
	for _, sub := range subs {
		d.notifyOne(sub)
	}
}

func (d *Dep) notifyOne(w *Watcher) {
	defer func() {
		if r := recover(); r != nil {
			d.sys.ReportError(errors.Errorf("panic while notifying watcher: %v", r), w, "dep notify")
		}
	}()
	w.update()
}
