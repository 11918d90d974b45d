package utils

import (
	"context"
	"time"

	"github.com/projecteru2/core/log"
)

// RetryTask .
type RetryTask struct {
	ctx         context.Context
	cancel      context.CancelFunc
	Func        func() error
	MaxAttempts int
	// Interval is the first wait, doubled after every failed attempt.
	Interval time.Duration
}

// NewRetryTask .
func NewRetryTask(ctx context.Context, maxAttempts int, interval time.Duration, f func() error) *RetryTask {
	// make sure to execute at least once
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	return &RetryTask{
		ctx:         ctx,
		cancel:      cancel,
		MaxAttempts: maxAttempts,
		Interval:    interval,
		Func:        f,
	}
}

// Run start running retry task
func (r *RetryTask) Run(ctx context.Context) error {
	logger := log.WithFunc("utils.RetryTask.Run")
	defer r.Stop(ctx)

	var err error
	interval := r.Interval
	timer := time.NewTimer(0)
	defer timer.Stop()

	for i := 0; i < r.MaxAttempts; i++ {
		select {
		case <-r.ctx.Done():
			logger.Debug(ctx, "abort")
			return r.ctx.Err()
		case <-timer.C:
			if err = r.Func(); err == nil {
				return nil
			}
			logger.Debugf(ctx, "attempt %d failed, will retry after %v", i+1, interval)
			timer.Reset(interval)
			interval *= 2
		}
	}
	return err
}

// Stop stops running task
func (r *RetryTask) Stop(context.Context) {
	r.cancel()
}

// BackoffRetry retries up to `maxAttempts` times, and the interval will grow exponentially
func BackoffRetry(ctx context.Context, maxAttempts int, interval time.Duration, f func() error) error {
	retryTask := NewRetryTask(ctx, maxAttempts, interval, f)
	defer retryTask.Stop(ctx)
	return retryTask.Run(ctx)
}
