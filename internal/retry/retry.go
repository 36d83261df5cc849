// Package retry implements the bounded retry policy used when a probe reports a failed CRC.
package retry

import (
	"context"
	"log/slog"
	"time"
)

type (
	// Task is a function to retry. It returns whether the returned error is worth another attempt.
	Task = func(context.Context) (shouldRetry bool, err error)

	// Policy runs a Task until it succeeds or the policy gives up.
	Policy interface {
		Start(ctx context.Context, name string, task Task) error
	}
)

// Fixed retries a task a bounded number of times, waiting the same interval between attempts.
type Fixed struct {
	// MaxAttempts is the total number of attempts, including the first one. Values below 1
	// are treated as 1.
	MaxAttempts int

	// Interval is the wait between two attempts.
	Interval time.Duration

	// Logger is used to log each attempt; when nil nothing is logged.
	Logger *slog.Logger

	// After returns a channel firing after the given duration; defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

// Start runs task until it succeeds, returns a non retryable error or the attempts are exhausted.
// The error of the last attempt is returned; a cancelled context interrupts the wait.
func (f *Fixed) Start(ctx context.Context, name string, task Task) error {
	after := f.After
	if after == nil {
		after = time.After
	}

	maxAttempts := f.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		retry, err := task(ctx)
		if err == nil {
			if attempt > 1 {
				f.log(ctx, slog.LevelInfo, "retry succeeded", name, attempt, nil)
			}
			return nil
		}

		if !retry || attempt >= maxAttempts {
			f.log(ctx, slog.LevelWarn, "retry failed", name, attempt, err)
			return err
		}

		f.log(ctx, slog.LevelDebug, "retry", name, attempt, err)

		select {
		case <-after(f.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *Fixed) log(ctx context.Context, level slog.Level, msg, name string, attempt int, err error) {
	if f.Logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("task", name),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", f.MaxAttempts),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	f.Logger.LogAttrs(ctx, level, msg, attrs...)
}
