// Package admission bounds the number of concurrent calls to the inference
// service with a durable counter shared by every worker.
package admission

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/store"
)

// DefaultKey identifies the inference counter row.
const DefaultKey = "inference"

// Controller is a global semaphore over a store.CounterStore. It keeps no
// in-process count; every decision is made by the store's atomic update.
type Controller struct {
	counter        store.CounterStore
	key            string
	limit          func() int
	schedule       atomic.Pointer[Schedule]
	releaseTimeout time.Duration
}

// Schedule is the WaitAcquire retry plan: at most MaxAttempts tries, attempt i
// waiting min(CapWait, BaseWait*2^i).
type Schedule struct {
	MaxAttempts int
	BaseWait    time.Duration
	CapWait     time.Duration
}

// merge returns s with every positive field of next applied.
func (s Schedule) merge(next Schedule) Schedule {
	if next.MaxAttempts > 0 {
		s.MaxAttempts = next.MaxAttempts
	}
	if next.BaseWait > 0 {
		s.BaseWait = next.BaseWait
	}
	if next.CapWait > 0 {
		s.CapWait = next.CapWait
	}
	return s
}

// Option configures a Controller.
type Option func(*Controller)

// WithKey overrides the counter key.
func WithKey(key string) Option {
	return func(c *Controller) { c.key = key }
}

// WithMaxAttempts bounds the number of acquire attempts in WaitAcquire.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) { c.SetSchedule(Schedule{MaxAttempts: n}) }
}

// WithBackoff overrides the wait schedule: attempt i waits min(capWait, base*2^i).
func WithBackoff(base, capWait time.Duration) Option {
	return func(c *Controller) { c.SetSchedule(Schedule{BaseWait: base, CapWait: capWait}) }
}

// New creates a Controller. limit is read on every acquire so configuration
// reloads take effect without restarting.
func New(counter store.CounterStore, limit func() int, opts ...Option) *Controller {
	c := &Controller{
		counter:        counter,
		key:            DefaultKey,
		limit:          limit,
		releaseTimeout: 10 * time.Second,
	}
	c.schedule.Store(&Schedule{MaxAttempts: 10, BaseWait: time.Second, CapWait: 5 * time.Second})
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetSchedule replaces the positive fields of the wait schedule. It is safe to
// call while acquisitions are in flight; a running WaitAcquire keeps the
// schedule it started with.
func (c *Controller) SetSchedule(next Schedule) {
	cur := *c.schedule.Load()
	merged := cur.merge(next)
	c.schedule.Store(&merged)
}

// CurrentSchedule returns the schedule the next WaitAcquire will use.
func (c *Controller) CurrentSchedule() Schedule {
	return *c.schedule.Load()
}

// TryAcquire takes a slot if one is free. It never blocks on the limit and
// returns false on any storage error.
func (c *Controller) TryAcquire(ctx context.Context) bool {
	limit := c.limit()
	if limit <= 0 {
		return false
	}
	ok, err := c.counter.TryIncrement(ctx, c.key, limit)
	if err != nil {
		zap.L().Warn("admission: acquire failed, denying slot",
			zap.String("key", c.key),
			zap.Error(err),
		)
		return false
	}
	return ok
}

// WaitAcquire retries TryAcquire with capped exponential backoff until it
// succeeds, the attempts run out, maxWait elapses, or ctx is done.
func (c *Controller) WaitAcquire(ctx context.Context, maxWait time.Duration) bool {
	sched := c.CurrentSchedule()
	deadline := time.Now().Add(maxWait)
	for i := 0; i < sched.MaxAttempts; i++ {
		if c.TryAcquire(ctx) {
			return true
		}
		if i == sched.MaxAttempts-1 {
			break
		}

		wait := sched.stepWait(i)
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	zap.L().Info("admission: no slot available",
		zap.String("key", c.key),
		zap.Duration("max_wait", maxWait),
	)
	return false
}

// Release gives a slot back. Failures are logged and never returned; when the
// transactional decrement fails a blind decrement is attempted so slots do
// not leak.
func (c *Controller) Release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.releaseTimeout)
	defer cancel()

	err := c.counter.Decrement(ctx, c.key)
	if err == nil {
		return
	}
	zap.L().Warn("admission: release failed, forcing decrement",
		zap.String("key", c.key),
		zap.Error(err),
	)
	if err := c.counter.ForceDecrement(ctx, c.key); err != nil {
		zap.L().Error("admission: forced decrement failed",
			zap.String("key", c.key),
			zap.Error(err),
		)
	}
}

// Active returns the current counter value, or -1 if it cannot be read.
func (c *Controller) Active(ctx context.Context) int {
	st, err := c.counter.Get(ctx, c.key)
	if err != nil {
		return -1
	}
	return st.ActiveCount
}

func (s Schedule) stepWait(i int) time.Duration {
	if i >= 30 {
		return s.CapWait
	}
	wait := s.BaseWait << i
	if wait <= 0 || wait > s.CapWait {
		return s.CapWait
	}
	return wait
}

// Do runs fn while holding a slot. The slot is released on every exit path,
// including panics and cancellation. The bool result is false when no slot
// could be acquired, in which case fn is not called.
func Do[T any](ctx context.Context, c *Controller, maxWait time.Duration, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	if !c.WaitAcquire(ctx, maxWait) {
		return zero, false, nil
	}
	defer c.Release(ctx)

	val, err := fn(ctx)
	return val, true, err
}
