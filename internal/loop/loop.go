// Package loop runs console work on a single goroutine.
//
// Every component of the console (broker, blocks, panel, sequencer) assumes it is
// only touched from the goroutine running Loop.Run. Other goroutines, such as the
// gateway notification reader, hand work over with Post.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const defaultQueueSize = 256

var (
	// ErrClosed is returned by Post after Run has returned.
	ErrClosed = errors.New("loop closed")

	// ErrTaskPanic is returned by Do when the task panicked.
	ErrTaskPanic = errors.New("loop task panicked")
)

type Loop struct {
	queue chan func()
	done  chan struct{}

	mu     sync.Mutex
	closed bool
	timers map[*time.Timer]struct{}

	log *slog.Logger
}

func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		queue:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
		log:    slog.With("component", "loop"),
	}
}

// Post enqueues fn to run on the loop goroutine. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// After runs fn on the loop goroutine once d has elapsed. The returned function
// cancels it if it has not run yet.
func (l *Loop) After(d time.Duration, fn func()) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return func() {}
	}

	// The callback takes l.mu before reading t, so it cannot observe the timer
	// until it is registered below.
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		if err := l.Post(fn); err != nil {
			l.log.Debug("delayed task dropped", "error", err)
		}
	})
	l.timers[t] = struct{}{}

	return func() {
		if t.Stop() {
			l.forget(t)
		}
	}
}

func (l *Loop) forget(t *time.Timer) {
	l.mu.Lock()
	delete(l.timers, t)
	l.mu.Unlock()
}

// Run executes queued work until ctx is cancelled. Pending timers are stopped and
// the queue is discarded on return.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

// Do posts fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				result <- fmt.Errorf("%w: %v", ErrTaskPanic, recovered)
				panic(recovered)
			}
		}()
		result <- fn()
	}
	if err := l.Post(task); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.log.Error("loop task panic recovered",
				"error", fmt.Sprintf("%v", recovered),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for t := range l.timers {
		t.Stop()
	}
	l.timers = nil
	l.mu.Unlock()

	close(l.done)
}
