package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://api.openai.com"

type Client struct {
	baseURL            string
	apiKey             string
	model              string
	maxTokens          int
	imageModel         string
	imageSize          string
	transcriptionModel string
	describeMaxTokens  int
	httpClient         *http.Client
	executor           *resilience.Executor
}

type Options struct {
	Model              string
	MaxTokens          int
	ImageModel         string
	ImageSize          string
	TranscriptionModel string
	DescribeMaxTokens  int
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, opts Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4o"
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	if opts.DescribeMaxTokens <= 0 {
		opts.DescribeMaxTokens = 400
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:            strings.TrimRight(baseURL, "/"),
		apiKey:             apiKey,
		model:              model,
		maxTokens:          maxTokens,
		imageModel:         withDefault(opts.ImageModel, "dall-e-2"),
		imageSize:          withDefault(opts.ImageSize, "1024x1024"),
		transcriptionModel: withDefault(opts.TranscriptionModel, "whisper-1"),
		describeMaxTokens:  opts.DescribeMaxTokens,
		httpClient:         &http.Client{Timeout: timeout},
		executor:           opts.ResilienceExecutor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
	}

	return c.chat(ctx, "chat", req)
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

// DescribeImage asks the chat model about one image. imageURL may be a data URL.
func (c *Client) DescribeImage(ctx context.Context, instruction, imageURL string) (string, error) {
	req := visionRequest{
		Model: c.model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: instruction},
				{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
			},
		}},
		MaxTokens: c.describeMaxTokens,
	}
	return c.chat(ctx, "describe", req)
}

func (c *Client) chat(ctx context.Context, operation string, req any) (string, error) {
	var resp chatResponse
	err := c.execute(ctx, operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/chat/completions", req, &resp, operation)
	})
	if err != nil {
		return "", resilience.WrapHTTPError("openai "+operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrUpstream, "openai "+operation, errors.New("response has no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage renders one image and returns its hosted URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	req := imageRequest{Model: c.imageModel, Prompt: prompt, N: 1, Size: c.imageSize}

	var resp imageResponse
	err := c.execute(ctx, "image", func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/images/generations", req, &resp, "image")
	})
	if err != nil {
		return "", resilience.WrapHTTPError("openai image", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", domain.WrapError(domain.ErrUpstream, "openai image", errors.New("no image generated"))
	}
	return resp.Data[0].URL, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	var resp transcriptionResponse
	err := c.execute(ctx, "transcribe", func(ctx context.Context) error {
		return c.postMultipart(ctx, "/v1/audio/transcriptions", map[string]string{"model": c.transcriptionModel},
			"file", filename, audio, &resp, "transcribe")
	})
	if err != nil {
		return "", resilience.WrapHTTPError("openai transcribe", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", domain.WrapError(domain.ErrUpstream, "openai transcribe", errors.New("empty transcription"))
	}
	return resp.Text, nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor != nil {
		return c.executor.Execute(ctx, "openai."+operation, call, resilience.ClassifyHTTPError)
	}
	return call(ctx)
}

func withDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
