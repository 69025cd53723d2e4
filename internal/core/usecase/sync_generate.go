package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/poller"
	"github.com/kirillkom/forge3d/internal/core/ports"
)

// SyncGenerateUseCase runs a generation in the calling process, without the
// job store or the queue.
type SyncGenerateUseCase struct {
	providers Providers
	fetcher   ports.AssetFetcher
	pollCfg   poller.Config
	logger    *slog.Logger
}

func NewSyncGenerateUseCase(providers Providers, fetcher ports.AssetFetcher, pollCfg poller.Config, logger *slog.Logger) *SyncGenerateUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncGenerateUseCase{
		providers: providers,
		fetcher:   fetcher,
		pollCfg:   pollCfg,
		logger:    logger,
	}
}

func (uc *SyncGenerateUseCase) Generate(
	ctx context.Context,
	providerName string,
	req domain.GenerationRequest,
	onProgress poller.ProgressFunc,
) (domain.TaskResult, error) {
	provider, err := uc.providers.Lookup(providerName)
	if err != nil {
		return domain.TaskResult{}, err
	}
	req, err = normalizeRequest(provider, req)
	if err != nil {
		return domain.TaskResult{}, err
	}

	p, err := poller.New(uc.pollCfg,
		poller.WithProgress(onProgress),
		poller.WithLogger(uc.logger.With("provider", provider.Name())),
	)
	if err != nil {
		return domain.TaskResult{}, err
	}
	return p.Run(ctx,
		func(ctx context.Context) (string, error) {
			return provider.Submit(ctx, req)
		},
		func(ctx context.Context, taskID string) (domain.TaskSnapshot, error) {
			return provider.CheckStatus(ctx, req.Kind, taskID)
		},
	)
}

// Download copies the generated asset into w.
func (uc *SyncGenerateUseCase) Download(ctx context.Context, result domain.TaskResult, w io.Writer) (int64, error) {
	if uc.fetcher == nil {
		return 0, errors.New("asset fetcher is not configured")
	}
	body, err := uc.fetcher.Fetch(ctx, result.AssetURL)
	if err != nil {
		return 0, fmt.Errorf("fetch asset: %w", err)
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("copy asset: %w", err)
	}
	return n, nil
}
