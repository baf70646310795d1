package reactive

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultMaxUpdateCount is the number of times a single watcher may run
// within one flush before it is considered a runaway update loop.
const DefaultMaxUpdateCount = 100

// ErrorHandler receives every error the engine reports instead of returning.
// target is the context the failing computation was evaluated against.
type ErrorHandler func(err error, target any, info string)

// WarnHandler receives non-fatal misuse warnings.
type WarnHandler func(msg string, target any)

type Option func(*System)

// WithLogger sets the logger used by the default error and warn handlers.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

func WithErrorHandler(fn ErrorHandler) Option {
	return func(s *System) {
		s.onError = fn
	}
}

func WithWarnHandler(fn WarnHandler) Option {
	return func(s *System) {
		s.onWarn = fn
	}
}

// WithDefer hooks the deferred callback queue into a host event loop.
// fn must arrange for its argument to be called once the current
// synchronous work is done. Without it the host drains the queue with Tick.
func WithDefer(fn func(func())) Option {
	return func(s *System) {
		s.deferFn = fn
	}
}

// WithMaxUpdateCount sets the circulation threshold used for runaway
// update detection.
func WithMaxUpdateCount(n int) Option {
	return func(s *System) {
		if n > 0 {
			s.maxUpdateCount = n
		}
	}
}

// Stats are cumulative counters for a System.
type Stats struct {
	Watchers      uint64
	Flushes       uint64
	Runs          uint64
	Runaways      uint64
	Notifications uint64
	Errors        uint64
	Warnings      uint64
	Queued        int
}

// System owns all of the mutable engine state: the evaluation stack, the
// scheduler queue and the deferred callback queue. It is not safe for
// concurrent use; confine it to one goroutine (see the loop package).
type System struct {
	logger  logrus.FieldLogger
	onError ErrorHandler
	onWarn  WarnHandler
	deferFn func(func())

	shouldObserve bool
	targetStack   []*Watcher
	target        *Watcher

	depUID     uint64
	watcherUID uint64

	paths map[uint64]parsedPath

	maxUpdateCount int
	queue          []*Watcher
	has            map[uint64]bool
	circular       map[uint64]int
	halted         map[uint64]bool
	ran            []*Watcher
	ranIDs         map[uint64]bool
	waiting        bool
	flushing       bool
	index          int
	flushedHooks   []flushedHook
	hookUID        int

	callbacks []func() error
	pending   bool

	stats Stats
}

type flushedHook struct {
	id int
	fn func(ran []*Watcher)
}

func NewSystem(opts ...Option) *System {
	s := &System{
		logger:         logrus.StandardLogger(),
		shouldObserve:  true,
		paths:          map[uint64]parsedPath{},
		maxUpdateCount: DefaultMaxUpdateCount,
		has:            map[uint64]bool{},
		circular:       map[uint64]int{},
		halted:         map[uint64]bool{},
		ranIDs:         map[uint64]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.onError == nil {
		s.onError = s.logError
	}
	if s.onWarn == nil {
		s.onWarn = s.logWarning
	}
	return s
}

// ToggleObserving enables or disables creation of new Observers. Containers
// that are already observed are unaffected.
func (s *System) ToggleObserving(value bool) {
	s.shouldObserve = value
}

func (s *System) Observing() bool {
	return s.shouldObserve
}

// Tracking reports whether a watcher is currently collecting dependencies.
func (s *System) Tracking() bool {
	return s.target != nil
}

// Current returns the watcher on top of the evaluation stack, if any.
func (s *System) Current() *Watcher {
	return s.target
}

func (s *System) pushTarget(w *Watcher) {
	s.targetStack = append(s.targetStack, w)
	s.target = w
}

func (s *System) popTarget() {
	s.targetStack = s.targetStack[:len(s.targetStack)-1]
	if n := len(s.targetStack); n > 0 {
		s.target = s.targetStack[n-1]
	} else {
		s.target = nil
	}
}

// Untracked runs fn with an empty evaluation frame so reads inside it do
// not become dependencies of the enclosing watcher.
func (s *System) Untracked(fn func()) {
	s.pushTarget(nil)
	defer s.popTarget()
	fn()
}

// ReportError hands err to the configured ErrorHandler.
func (s *System) ReportError(err error, target any, info string) {
	s.stats.Errors++
	s.onError(err, target, info)
}

// Warn hands msg to the configured WarnHandler.
func (s *System) Warn(msg string, target any) {
	s.stats.Warnings++
	s.onWarn(msg, target)
}

func (s *System) warnErr(err error, target any) {
	s.Warn(err.Error(), target)
}

func (s *System) Stats() Stats {
	st := s.stats
	st.Queued = len(s.queue)
	return st
}

func (s *System) logError(err error, target any, info string) {
	entry := s.logger.WithError(err).WithField("info", info)
	if w, ok := target.(*Watcher); ok {
		entry = entry.WithFields(logrus.Fields{
			"watcher":    w.id,
			"expression": w.expression,
		})
	} else if target != nil {
		entry = entry.WithField("target", fmt.Sprintf("%T", target))
	}
	entry.Error("reactive: error in computation")
}

func (s *System) logWarning(msg string, target any) {
	entry := s.logger.WithField("warning", msg)
	if target != nil {
		entry = entry.WithField("target", fmt.Sprintf("%T", target))
	}
	entry.Warn("reactive: " + msg)
}
