// Package threads wraps goroutines with name, start/stop, and WaitGroup/error-collection
// bookkeeping. The relay server uses it for its three long-running tasks: the Mempool Monitor
// (a periodic task), the Bus Uplink, and the Client Fan-out (both interrupt-driven loops that run
// until the server shuts down).
package threads

import (
	"context"
	"sync"
	"time"

	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"

	"github.com/pkg/errors"
)

// Thread runs a function in its own goroutine and tracks its completion through a WaitGroup and a
// recorded error. The wrapped function takes a context and a "read only" interrupt channel; it
// should select on the interrupt channel (directly, or indirectly via whatever it blocks on) and
// return promptly once the channel closes.
type Thread struct {
	name string

	interruptFunction ThreadInterruptFunction
	interrupt         chan interface{}

	frequency    time.Duration
	taskFunction TaskFunction

	wait       *sync.WaitGroup
	err        error
	isComplete bool
	wasStopped bool

	sync.Mutex
}

type Threads []*Thread

// ThreadInterruptFunction should select on interrupt and return once it closes, if not before.
type ThreadInterruptFunction func(ctx context.Context, interrupt <-chan interface{}) error

// TaskFunction performs one unit of work; used to drive a periodic task.
type TaskFunction func(ctx context.Context) error

// Start starts every thread in ts.
func (ts Threads) Start(ctx context.Context) {
	for _, thread := range ts {
		thread.Start(ctx)
	}
}

// Stop signals every thread in ts to return.
func (ts Threads) Stop(ctx context.Context) {
	for _, thread := range ts {
		thread.Stop(ctx)
	}
}

// Errors returns the non-nil completion error of every thread in ts, if any.
func (ts Threads) Errors() []error {
	var result []error
	for _, thread := range ts {
		if err := thread.Error(); err != nil {
			result = append(result, err)
		}
	}

	return result
}

// NewThread wraps function in a Thread that is stopped by closing an interrupt channel.
func NewThread(name string, function ThreadInterruptFunction) *Thread {
	// Stop closes interrupt rather than sending on it, so every receive returns once stopped.
	return &Thread{
		name:              name,
		interruptFunction: function,
		interrupt:         make(chan interface{}, 1),
	}
}

// NewPeriodicTask wraps function in a Thread that calls it every frequency until stopped.
func NewPeriodicTask(name string, frequency time.Duration, function TaskFunction) *Thread {
	return &Thread{
		name:         name,
		frequency:    frequency,
		taskFunction: function,
		interrupt:    make(chan interface{}, 1),
	}
}

// SetWait registers a WaitGroup that Start adds to and the goroutine marks Done on when it ends.
func (t *Thread) SetWait(wait *sync.WaitGroup) {
	t.Lock()
	defer t.Unlock()

	t.wait = wait
}

// GetWait creates and registers a new WaitGroup, returning it for the caller to Wait() on.
func (t *Thread) GetWait() *sync.WaitGroup {
	t.Lock()
	defer t.Unlock()

	t.wait = &sync.WaitGroup{}
	return t.wait
}

// Start runs the thread's function in a new goroutine.
func (t *Thread) Start(ctx context.Context) {
	if t.wait != nil {
		t.wait.Add(1)
	}

	t.Lock()
	name := t.name
	t.Unlock()

	go func() {
		logger.Verbose(ctx, "Starting relay task: %s", name)

		var err error
		if t.interruptFunction != nil {
			err = t.interruptFunction(ctx, t.interrupt)
		} else if t.taskFunction != nil {
			err = t.runPeriodic(ctx)
		}

		switch {
		case err == nil:
			logger.Verbose(ctx, "Finished relay task: %s", name)
		case errors.Cause(err) == Interrupted:
			logger.Verbose(ctx, "Finished relay task: %s : %s", name, err)
		default:
			logger.Warn(ctx, "Finished relay task: %s : %s", name, err)
		}

		t.Lock()
		t.err = err
		t.isComplete = true
		t.Unlock()

		if t.wait != nil {
			t.wait.Done()
		}
	}()
}

func (t *Thread) runPeriodic(ctx context.Context) error {
	for {
		select {
		case <-t.interrupt:
			return nil

		case <-time.After(t.frequency):
			if err := t.taskFunction(ctx); err != nil {
				return err
			}
		}
	}
}

// Stop signals the thread to return. Safe to call more than once.
func (t *Thread) Stop(ctx context.Context) {
	t.Lock()
	defer t.Unlock()

	if t.wasStopped {
		return
	}

	close(t.interrupt)
	t.wasStopped = true
}

// IsComplete reports whether the thread's function has returned.
func (t *Thread) IsComplete() bool {
	t.Lock()
	defer t.Unlock()

	return t.isComplete
}

// Error returns the thread's completion error, wrapped with its name, or nil.
func (t *Thread) Error() error {
	if t == nil {
		return nil
	}

	t.Lock()
	defer t.Unlock()

	return errors.Wrap(t.err, t.name)
}
