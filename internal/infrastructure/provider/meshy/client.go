package meshy

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

const DefaultBaseURL = "https://api.meshy.ai"

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

func (c *Client) Name() string { return "meshy" }

func (c *Client) Supports(kind domain.GenerationKind) bool {
	return kind == domain.KindTextToMesh || kind == domain.KindImageToMesh
}

type submitResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit starts a preview text-to-3d task or an image-to-3d task and returns
// the Meshy task id.
func (c *Client) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	path, err := taskPath(req.Kind)
	if err != nil {
		return "", err
	}

	var payload any
	switch req.Kind {
	case domain.KindImageToMesh:
		payload = map[string]any{"image_url": req.ImageURL}
	default:
		payload = map[string]any{
			"mode":          "preview",
			"prompt":        req.Prompt,
			"art_style":     "realistic",
			"should_remesh": true,
		}
	}

	var resp submitResponse
	if err := c.call(ctx, "submit", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, payload, &resp, "submit")
	}); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Result) == "" {
		reason := firstNonEmpty(resp.Error, resp.Message, "response has no task id")
		return "", domain.WrapError(domain.ErrUpstream, "meshy submit", errors.New(reason))
	}
	return resp.Result, nil
}

func (c *Client) CheckStatus(ctx context.Context, kind domain.GenerationKind, taskID string) (domain.TaskSnapshot, error) {
	path, err := taskPath(kind)
	if err != nil {
		return domain.TaskSnapshot{}, err
	}

	var task taskResponse
	if err := c.call(ctx, "status", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path+"/"+url.PathEscape(taskID), nil, &task, "status")
	}); err != nil {
		return domain.TaskSnapshot{}, err
	}
	if task.ID == "" {
		task.ID = taskID
	}
	return normalizeTask(task), nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "meshy."+operation, fn, resilience.ClassifyHTTPError)
	} else {
		err = fn(ctx)
	}
	return resilience.WrapHTTPError("meshy "+operation, err)
}

func taskPath(kind domain.GenerationKind) (string, error) {
	switch kind {
	case domain.KindTextToMesh:
		return "/openapi/v2/text-to-3d", nil
	case domain.KindImageToMesh:
		return "/openapi/v1/image-to-3d", nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "meshy task path", fmt.Errorf("unsupported kind %q", kind))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
