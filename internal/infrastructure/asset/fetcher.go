package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/infrastructure/resilience"
)

// Fetcher downloads finished model files over HTTP or from data urls.
type Fetcher struct {
	httpClient *http.Client
	executor   *resilience.Executor
	maxBytes   int64
}

type Options struct {
	Timeout            time.Duration
	MaxBytes           int64
	ResilienceExecutor *resilience.Executor
}

func NewFetcher(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 256 << 20
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExecutor,
		maxBytes:   maxBytes,
	}
}

// Fetch opens the asset. HTTP bodies are limited to MaxBytes; reading past
// the limit fails instead of truncating silently.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fetch asset", fmt.Errorf("unsupported asset url %q", rawURL))
	}

	var body io.ReadCloser
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create asset request: %w", err)
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("asset request: %w", err)
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return resilience.NewHTTPStatusError("asset", "download", resp)
		}
		body = resp.Body
		return nil
	}

	if f.executor != nil {
		err = f.executor.Execute(ctx, "asset.download", call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, resilience.WrapHTTPError("asset download", err)
	}
	return &limitedBody{r: io.LimitReader(body, f.maxBytes+1), c: body, remaining: f.maxBytes}, nil
}

var errAssetTooLarge = errors.New("asset exceeds size limit")

type limitedBody struct {
	r         io.Reader
	c         io.Closer
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, errAssetTooLarge
	}
	return n, err
}

func (b *limitedBody) Close() error { return b.c.Close() }

func decodeDataURL(raw string) (io.ReadCloser, error) {
	meta, data, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fetch asset", errors.New("malformed data url"))
	}
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "fetch asset", fmt.Errorf("decode data url: %w", err))
		}
		return io.NopCloser(bytes.NewReader(decoded)), nil
	}
	text, err := url.PathUnescape(data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fetch asset", fmt.Errorf("decode data url: %w", err))
	}
	return io.NopCloser(strings.NewReader(text)), nil
}
