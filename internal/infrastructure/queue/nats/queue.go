package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/infrastructure/resilience"
)

const workerQueueGroup = "generation-workers"

type Queue struct {
	conn        *nats.Conn
	subject     string
	executor    *resilience.Executor
	maxInFlight int
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// MaxInFlight bounds concurrently handled jobs per subscriber.
	MaxInFlight int
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("forge3d"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	maxInFlight := options.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &Queue{
		conn:        conn,
		subject:     subject,
		executor:    options.ResilienceExecutor,
		maxInFlight: maxInFlight,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishJobQueued(ctx context.Context, jobID string) error {
	return q.publish(ctx, "nats.publish_job", jobID)
}

func (q *Queue) publish(ctx context.Context, operation, jobID string) error {
	if jobID == "" || strings.ContainsAny(jobID, " \t\r\n") {
		return domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("invalid job id %q", jobID))
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(jobID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return wrapPublishError(operation, err)
}

// SubscribeJobQueued blocks until ctx is done, then drains the subscription.
// Jobs the handler reports as domain.ErrInterrupted, and job ids delivered
// after ctx is done, are published again for another worker in the group.
func (q *Queue) SubscribeJobQueued(ctx context.Context, handler func(context.Context, string) error) error {
	var handlers errgroup.Group
	handlers.SetLimit(q.maxInFlight)

	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		jobID := string(msg.Data)
		if ctx.Err() != nil {
			q.requeue(jobID)
			return
		}

		// Go blocks while the limit is reached, which holds back delivery.
		handlers.Go(func() error {
			handlerCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			err := handler(handlerCtx, jobID)
			switch {
			case err == nil:
			case domain.IsKind(err, domain.ErrInterrupted):
				q.requeue(jobID)
			default:
				slog.Error("job_handler_failed", "job_id", jobID, "error", err)
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	_ = handlers.Wait()
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// requeue runs during shutdown, so it is detached from the subscription ctx.
func (q *Queue) requeue(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.publish(ctx, "nats.requeue_job", jobID); err != nil {
		slog.Error("job_requeue_failed", "job_id", jobID, "error", err)
		return
	}
	slog.Info("job_requeued", "job_id", jobID)
}

// classifyPublishError decides retry and breaker accounting for a publish.
// Oversized or malformed messages are our fault and say nothing about broker
// health, so they neither retry nor count against the breaker.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case errors.Is(err, nats.ErrMaxPayload),
		errors.Is(err, nats.ErrBadSubject),
		errors.Is(err, nats.ErrInvalidMsg):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrSlowConsumer):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func wrapPublishError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}
	if errors.Is(err, nats.ErrMaxPayload) || errors.Is(err, nats.ErrBadSubject) || errors.Is(err, nats.ErrInvalidMsg) {
		return domain.WrapError(domain.ErrInvalidInput, operation, err)
	}
	if classifyPublishError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
