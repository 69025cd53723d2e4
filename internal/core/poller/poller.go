package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

// SubmitFunc starts a remote task and returns its identifier.
type SubmitFunc func(ctx context.Context) (string, error)

// CheckFunc returns the current snapshot of a remote task. An error means the
// check itself failed, not the task.
type CheckFunc func(ctx context.Context, taskID string) (domain.TaskSnapshot, error)

// ProgressFunc receives one event per non-terminal check.
type ProgressFunc func(domain.ProgressEvent)

type Config struct {
	MaxAttempts int
	Interval    time.Duration

	// BackoffMultiplier grows the interval after each wait. 0 and 1 keep it fixed.
	BackoffMultiplier float64
	// MaxInterval caps the grown interval. 0 means no cap.
	MaxInterval time.Duration
}

func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %s", c.Interval)
	}
	if c.BackoffMultiplier != 0 && c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff multiplier must be 0 or >= 1, got %v", c.BackoffMultiplier)
	}
	if c.MaxInterval < 0 {
		return fmt.Errorf("max interval must not be negative, got %s", c.MaxInterval)
	}
	return nil
}

// Budget is the nominal wall-clock budget without network latency. It
// saturates at the largest representable duration.
func (c Config) Budget() time.Duration {
	var total time.Duration
	wait := c.Interval
	for i := 1; i < c.MaxAttempts; i++ {
		if total > maxWait-wait {
			return maxWait
		}
		total += wait
		wait = c.next(wait)
	}
	return total
}

const maxWait = time.Duration(math.MaxInt64)

func (c Config) next(wait time.Duration) time.Duration {
	if c.BackoffMultiplier <= 1 {
		return wait
	}
	limit := maxWait
	if c.MaxInterval > 0 {
		limit = c.MaxInterval
	}
	grown := float64(wait) * c.BackoffMultiplier
	if grown >= float64(limit) {
		return limit
	}
	return time.Duration(grown)
}

type Option func(*Poller)

func WithProgress(fn ProgressFunc) Option {
	return func(p *Poller) {
		if fn != nil {
			p.onProgress = fn
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Poller drives a remote task from submission to a terminal state. Check n+1
// is issued only after check n has returned. Pending results and failed
// checks both consume one attempt; a remote failure ends the run at once.
//
// Poller holds configuration only. Every Run keeps its own attempt counter,
// so one Poller may serve concurrent runs for different tasks.
type Poller struct {
	cfg        Config
	onProgress ProgressFunc
	logger     *slog.Logger
}

func New(cfg Config, opts ...Option) (*Poller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "poller config", err)
	}
	p := &Poller{
		cfg:        cfg,
		onProgress: func(domain.ProgressEvent) {},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Poller) Config() Config {
	return p.cfg
}

// Run submits a task and polls it until a terminal state.
func (p *Poller) Run(ctx context.Context, submit SubmitFunc, check CheckFunc) (domain.TaskResult, error) {
	if submit == nil || check == nil {
		return domain.TaskResult{}, domain.WrapError(domain.ErrInvalidInput, "poll", errors.New("submit and check are required"))
	}
	if err := ctx.Err(); err != nil {
		return domain.TaskResult{}, contextError(err, "", 0)
	}

	taskID, err := submit(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.TaskResult{}, contextError(ctxErr, "", 0)
		}
		return domain.TaskResult{}, &domain.PollError{Kind: domain.ErrSubmission, Err: err}
	}
	if taskID == "" {
		return domain.TaskResult{}, &domain.PollError{Kind: domain.ErrSubmission, Reason: "empty task id"}
	}
	p.logger.Info("poll_task_submitted", "task_id", taskID)

	return p.Poll(ctx, taskID, check)
}

// Poll checks an already submitted task until a terminal state.
func (p *Poller) Poll(ctx context.Context, taskID string, check CheckFunc) (domain.TaskResult, error) {
	if check == nil {
		return domain.TaskResult{}, domain.WrapError(domain.ErrInvalidInput, "poll", errors.New("check is required"))
	}

	maxAttempts := p.cfg.MaxAttempts
	wait := p.cfg.Interval
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.TaskResult{}, contextError(err, taskID, attempt-1)
		}

		snapshot, err := check(ctx, taskID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.TaskResult{}, contextError(ctxErr, taskID, attempt)
			}
			lastErr = err
			p.logger.Warn("poll_check_failed",
				"task_id", taskID,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err,
			)
			p.report(taskID, attempt, nil, domain.WrapError(domain.ErrTransientCheck, "check status", err))
		} else {
			switch snapshot.Status {
			case domain.TaskSucceeded:
				if snapshot.Result == nil {
					return domain.TaskResult{}, &domain.PollError{
						Kind: domain.ErrRemoteFailure, TaskID: taskID, Attempts: attempt, Reason: "succeeded without result",
					}
				}
				p.logger.Info("poll_task_succeeded", "task_id", taskID, "attempts", attempt)
				return *snapshot.Result, nil
			case domain.TaskFailed:
				reason := snapshot.FailureReason
				if reason == "" {
					reason = "unknown error"
				}
				p.logger.Warn("poll_task_failed", "task_id", taskID, "attempts", attempt, "reason", reason)
				return domain.TaskResult{}, &domain.PollError{
					Kind: domain.ErrRemoteFailure, TaskID: taskID, Attempts: attempt, Reason: reason,
				}
			case domain.TaskPending:
				lastErr = nil
				p.report(taskID, attempt, clampFraction(snapshot.Progress), nil)
			default:
				lastErr = fmt.Errorf("unknown task status %q", snapshot.Status)
				p.report(taskID, attempt, nil, domain.WrapError(domain.ErrTransientCheck, "check status", lastErr))
			}
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, wait); err != nil {
			return domain.TaskResult{}, contextError(err, taskID, attempt)
		}
		wait = p.cfg.next(wait)
	}

	p.logger.Warn("poll_task_timeout", "task_id", taskID, "attempts", maxAttempts)
	return domain.TaskResult{}, &domain.PollError{
		Kind: domain.ErrTimeout, TaskID: taskID, Attempts: maxAttempts, Err: lastErr,
	}
}

func (p *Poller) report(taskID string, attempt int, fraction *float64, err error) {
	p.onProgress(domain.ProgressEvent{
		TaskID:      taskID,
		Attempt:     attempt,
		MaxAttempts: p.cfg.MaxAttempts,
		Fraction:    fraction,
		Err:         err,
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func contextError(err error, taskID string, attempts int) error {
	kind := domain.ErrCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.ErrTimeout
	}
	return &domain.PollError{Kind: kind, TaskID: taskID, Attempts: attempts, Err: err}
}

func clampFraction(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	if math.IsNaN(f) {
		return nil
	}
	f = min(max(f, 0), 1)
	return &f
}
