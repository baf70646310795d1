// Package loop is a single goroutine cooperative event loop. Tasks posted
// from any goroutine run one at a time; deferred callbacks queued while a
// task runs are drained before the next task starts.
package loop

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("loop closed")

type Loop struct {
	tasks  chan func()
	micro  []func()
	done   chan struct{}
	once   sync.Once
	logger logrus.FieldLogger
}

func New(buffer int, logger logrus.FieldLogger) *Loop {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loop{
		tasks:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues task. It is safe to call from any goroutine.
func (l *Loop) Post(task func()) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.tasks <- task:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// Defer queues fn to run after the current task. It must only be called
// from the loop goroutine.
func (l *Loop) Defer(fn func()) {
	l.micro = append(l.micro, fn)
}

// Do runs fn on the loop and waits until fn and everything it deferred has
// finished.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(fn); err != nil {
		return err
	}
	if err := l.Post(func() { close(finished) }); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Run processes tasks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case task := <-l.tasks:
			l.run(task)
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for len(l.micro) > 0 {
		fn := l.micro[0]
		l.micro = l.micro[1:]
		l.run(fn)
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithField("panic", r).Error("loop: task panicked")
		}
	}()
	fn()
}

func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.done)
	})
}
