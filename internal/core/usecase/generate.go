package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/ports"
)

const maxPromptLength = 4000

type GenerateUseCase struct {
	repo      ports.JobRepository
	queue     ports.MessageQueue
	providers Providers
	now       func() time.Time
}

func NewGenerateUseCase(repo ports.JobRepository, queue ports.MessageQueue, providers Providers) *GenerateUseCase {
	return &GenerateUseCase{
		repo:      repo,
		queue:     queue,
		providers: providers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the request, stores a queued job and publishes it for the worker.
func (uc *GenerateUseCase) Create(ctx context.Context, providerName string, req domain.GenerationRequest) (*domain.Job, error) {
	provider, err := uc.providers.Lookup(providerName)
	if err != nil {
		return nil, err
	}
	req, err = normalizeRequest(provider, req)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	job := &domain.Job{
		ID:        uuid.NewString(),
		Provider:  provider.Name(),
		Kind:      req.Kind,
		Prompt:    req.Prompt,
		ImageURL:  req.ImageURL,
		Status:    domain.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create generation job: %w", err)
	}
	if err := uc.queue.PublishJobQueued(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish job queued event: %w", err)
	}
	return job, nil
}

func (uc *GenerateUseCase) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get job", errors.New("job id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

// normalizeRequest picks the generation kind when the caller left it empty:
// an image url means image-to-3d, otherwise the first text kind the provider supports.
func normalizeRequest(provider ports.GenerationProvider, req domain.GenerationRequest) (domain.GenerationRequest, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.ImageURL = strings.TrimSpace(req.ImageURL)

	if req.Kind == "" {
		switch {
		case req.ImageURL != "":
			req.Kind = domain.KindImageToMesh
		case provider.Supports(domain.KindTextToMesh):
			req.Kind = domain.KindTextToMesh
		default:
			req.Kind = domain.KindTextToCAD
		}
	}
	if !provider.Supports(req.Kind) {
		return req, domain.WrapError(
			domain.ErrInvalidInput,
			"validate generation request",
			fmt.Errorf("provider %s does not support %s", provider.Name(), req.Kind),
		)
	}

	switch req.Kind {
	case domain.KindImageToMesh:
		if req.ImageURL == "" {
			return req, domain.WrapError(domain.ErrInvalidInput, "validate generation request", errors.New("image_url is required"))
		}
		if u, err := url.Parse(req.ImageURL); err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "data") {
			return req, domain.WrapError(domain.ErrInvalidInput, "validate generation request", errors.New("image_url must be an http(s) or data url"))
		}
	default:
		if req.Prompt == "" {
			return req, domain.WrapError(domain.ErrInvalidInput, "validate generation request", errors.New("prompt is required"))
		}
	}
	if len(req.Prompt) > maxPromptLength {
		return req, domain.WrapError(
			domain.ErrInvalidInput,
			"validate generation request",
			fmt.Errorf("prompt exceeds %d characters", maxPromptLength),
		)
	}
	return req, nil
}

// Providers indexes generation providers by name.
type Providers map[string]ports.GenerationProvider

func NewProviders(list ...ports.GenerationProvider) Providers {
	out := make(Providers, len(list))
	for _, p := range list {
		if p == nil {
			continue
		}
		out[strings.ToLower(p.Name())] = p
	}
	return out
}

func (p Providers) Lookup(name string) (ports.GenerationProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "lookup provider", errors.New("provider is required"))
	}
	provider, ok := p[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "lookup provider", fmt.Errorf("unknown provider %q", name))
	}
	return provider, nil
}
