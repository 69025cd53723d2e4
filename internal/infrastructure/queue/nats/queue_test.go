package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/infrastructure/resilience"
)

func TestClassifyPublishError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want resilience.ErrorClassification
	}{
		{"closed connection", fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed), resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"reconnecting", nats.ErrConnectionReconnecting, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"slow consumer", nats.ErrSlowConsumer, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"cancelled", context.Canceled, resilience.ErrorClassification{}},
		{"max payload", fmt.Errorf("nats publish: %w", nats.ErrMaxPayload), resilience.ErrorClassification{}},
		{"bad subject", nats.ErrBadSubject, resilience.ErrorClassification{}},
		{"unknown", errors.New("boom"), resilience.ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := classifyPublishError(tc.err); got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestWrapPublishError(t *testing.T) {
	if err := wrapPublishError("nats.publish_job", nats.ErrNoServers); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := wrapPublishError("nats.publish_job", nats.ErrMaxPayload); !errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("oversized message must be invalid input, got %v", err)
	}
	if err := wrapPublishError("nats.publish_job", errors.New("boom")); errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("unknown error must not be temporary")
	}
	if err := wrapPublishError("nats.publish_job", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestPublishRejectsMalformedJobID(t *testing.T) {
	q := &Queue{subject: "generations.queued"}
	for _, id := range []string{"", "job 1", "job-1\n"} {
		if err := q.PublishJobQueued(context.Background(), id); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("PublishJobQueued(%q) expected invalid input, got %v", id, err)
		}
	}
}
