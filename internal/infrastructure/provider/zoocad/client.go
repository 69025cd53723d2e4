package zoocad

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://api.zoo.dev"

// Client talks to the Zoo text-to-CAD API. Generation runs as an async
// operation that is polled by id.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, opts Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExecutor,
	}
}

func (c *Client) Name() string { return "zoocad" }

func (c *Client) Supports(kind domain.GenerationKind) bool {
	return kind == domain.KindTextToCAD
}

func (c *Client) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if req.Kind != domain.KindTextToCAD {
		return "", domain.WrapError(domain.ErrInvalidInput, "zoocad submit", fmt.Errorf("unsupported kind %q", req.Kind))
	}

	var op operation
	err := c.call(ctx, "submit", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/ai/text-to-cad/obj", map[string]string{"prompt": req.Prompt}, &op, "submit")
	})
	if err != nil {
		return "", err
	}
	if op.ID == "" {
		return "", domain.WrapError(domain.ErrUpstream, "zoocad submit", errors.New(firstNonEmpty(op.Error, "response has no operation id")))
	}
	if strings.EqualFold(op.Status, "failed") {
		return "", domain.WrapError(domain.ErrUpstream, "zoocad submit", errors.New(firstNonEmpty(op.Error, "operation failed on submit")))
	}
	return op.ID, nil
}

func (c *Client) CheckStatus(ctx context.Context, _ domain.GenerationKind, taskID string) (domain.TaskSnapshot, error) {
	var op operation
	err := c.call(ctx, "status", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/async/operations/"+url.PathEscape(taskID), nil, &op, "status")
	})
	if err != nil {
		return domain.TaskSnapshot{}, err
	}
	if op.ID == "" {
		op.ID = taskID
	}
	return normalizeOperation(op, c.baseURL), nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "zoocad."+operation, fn, resilience.ClassifyHTTPError)
	} else {
		err = fn(ctx)
	}
	return resilience.WrapHTTPError("zoocad "+operation, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
