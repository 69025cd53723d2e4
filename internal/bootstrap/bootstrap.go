package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/forge3d/internal/config"
	"github.com/kirillkom/forge3d/internal/core/poller"
	"github.com/kirillkom/forge3d/internal/core/ports"
	"github.com/kirillkom/forge3d/internal/core/usecase"
	"github.com/kirillkom/forge3d/internal/infrastructure/asset"
	"github.com/kirillkom/forge3d/internal/infrastructure/llm/openai"
	"github.com/kirillkom/forge3d/internal/infrastructure/provider/meshy"
	"github.com/kirillkom/forge3d/internal/infrastructure/provider/zoocad"
	"github.com/kirillkom/forge3d/internal/infrastructure/queue/nats"
	"github.com/kirillkom/forge3d/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/forge3d/internal/infrastructure/resilience"
	"github.com/kirillkom/forge3d/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.JobRepository
	Providers usecase.Providers

	GenerationUC ports.GenerationService
	ProcessUC    ports.JobProcessor
	MeshUC       ports.MeshAnalyzer
	RefineUC     ports.PromptRefiner
	MediaUC      ports.MediaService

	closeFn func()
}

// New wires the full service graph. observer may be nil outside the worker.
func New(ctx context.Context, cfg config.Config, observer usecase.JobObserver) (*App, error) {
	pollCfg := PollConfig(cfg)
	if err := pollCfg.Validate(); err != nil {
		return nil, fmt.Errorf("poll config: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(ResilienceConfig(cfg, false)),
		MaxInFlight:        cfg.WorkerInFlight,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	providers, fetcher := NewProviders(cfg)
	// One client serves every OpenAI operation so they share a breaker and rate budget.
	llm := NewOpenAIClient(cfg)
	var generator ports.TextGenerator
	mediaUC := usecase.NewMediaUseCase(nil, nil, nil, nil)
	if llm != nil {
		generator = llm
		mediaUC = usecase.NewMediaUseCase(llm, llm, llm, llm)
	}

	generationUC := usecase.NewGenerateUseCase(repo, queue, providers)
	processUC := usecase.NewProcessJobUseCase(repo, providers, fetcher, storage, pollCfg, observer)
	meshUC := usecase.NewAnalyzeMeshUseCase(generator, repo, storage)
	refineUC := usecase.NewRefinePromptUseCase(generator)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Repo:      repo,
		Providers: providers,

		GenerationUC: generationUC,
		ProcessUC:    processUC,
		MeshUC:       meshUC,
		RefineUC:     refineUC,
		MediaUC:      mediaUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewProviders builds the remote generation clients and the asset fetcher.
// Every upstream gets its own executor so one failing service cannot trip
// another's breaker or drain its rate budget.
func NewProviders(cfg config.Config) (usecase.Providers, *asset.Fetcher) {
	meshyClient := meshy.New(cfg.MeshyURL, cfg.MeshyAPIKey, meshy.Options{
		ResilienceExecutor: resilience.NewExecutor(ResilienceConfig(cfg, true)),
	})
	zooClient := zoocad.New(cfg.ZooURL, cfg.ZooAPIKey, zoocad.Options{
		ResilienceExecutor: resilience.NewExecutor(ResilienceConfig(cfg, true)),
	})
	fetcher := asset.NewFetcher(asset.Options{
		Timeout:            5 * time.Minute,
		ResilienceExecutor: resilience.NewExecutor(ResilienceConfig(cfg, false)),
	})
	return usecase.NewProviders(meshyClient, zooClient), fetcher
}

// NewOpenAIClient returns nil when no API key is configured.
func NewOpenAIClient(cfg config.Config) *openai.Client {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	return openai.New(cfg.OpenAIURL, cfg.OpenAIAPIKey, openai.Options{
		Model:              cfg.OpenAIModel,
		MaxTokens:          cfg.OpenAIMaxTokens,
		ImageModel:         cfg.OpenAIImageModel,
		ImageSize:          cfg.OpenAIImageSize,
		TranscriptionModel: cfg.OpenAITranscriptionModel,
		ResilienceExecutor: resilience.NewExecutor(ResilienceConfig(cfg, true)),
	})
}

// NewTextGenerator returns nil when no API key is configured.
func NewTextGenerator(cfg config.Config) ports.TextGenerator {
	client := NewOpenAIClient(cfg)
	if client == nil {
		return nil
	}
	return client
}

func PollConfig(cfg config.Config) poller.Config {
	return poller.Config{
		MaxAttempts:       cfg.Poll.MaxAttempts,
		Interval:          cfg.Poll.Interval,
		BackoffMultiplier: cfg.Poll.BackoffMultiplier,
		MaxInterval:       cfg.Poll.MaxInterval,
	}
}

// ResilienceConfig maps settings onto an executor config. Only paid upstream
// APIs are rate limited.
func ResilienceConfig(cfg config.Config, rateLimited bool) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.Resilience.RetryMaxAttempts
	out.RetryInitialBackoff = cfg.Resilience.RetryInitialBackoff
	out.RetryMaxBackoff = cfg.Resilience.RetryMaxBackoff
	out.BreakerEnabled = cfg.Resilience.BreakerEnabled
	if rateLimited {
		out.RateLimitPerSecond = cfg.Resilience.UpstreamRPS
		out.RateLimitBurst = cfg.Resilience.UpstreamBurst
	}
	return out
}
