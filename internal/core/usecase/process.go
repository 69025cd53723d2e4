package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/poller"
	"github.com/kirillkom/forge3d/internal/core/ports"
)

// JobObserver receives worker-side signals for metrics.
type JobObserver interface {
	ObservePollAttempt(provider string, transient bool)
	ObserveJobOutcome(provider string, status domain.JobStatus, attempts int)
}

type noopObserver struct{}

func (noopObserver) ObservePollAttempt(string, bool) {}

func (noopObserver) ObserveJobOutcome(string, domain.JobStatus, int) {}

type ProcessJobUseCase struct {
	repo      ports.JobRepository
	providers Providers
	fetcher   ports.AssetFetcher
	storage   ports.ObjectStorage
	pollCfg   poller.Config
	observer  JobObserver
	logger    *slog.Logger
	now       func() time.Time
}

func NewProcessJobUseCase(
	repo ports.JobRepository,
	providers Providers,
	fetcher ports.AssetFetcher,
	storage ports.ObjectStorage,
	pollCfg poller.Config,
	observer JobObserver,
) *ProcessJobUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	return &ProcessJobUseCase{
		repo:      repo,
		providers: providers,
		fetcher:   fetcher,
		storage:   storage,
		pollCfg:   pollCfg,
		observer:  observer,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessByID drives one job to a terminal status. Redelivered jobs that
// already carry a remote task id resume polling without resubmitting.
// Cancellation of ctx leaves the job resumable and returns
// domain.ErrInterrupted.
func (uc *ProcessJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch job by id: %w", err)
	}
	if job.Status.Terminal() {
		uc.logger.Info("generation_job_skipped", "job_id", job.ID, "status", job.Status)
		return nil
	}

	provider, err := uc.providers.Lookup(job.Provider)
	if err != nil {
		return uc.finish(ctx, job, err)
	}

	// A resumed job only gets what is left of the attempt budget.
	pollCfg := uc.pollCfg
	if job.RemoteTaskID != "" {
		pollCfg.MaxAttempts = max(1, pollCfg.MaxAttempts-job.Attempts)
	}

	attempts := job.Attempts
	p, err := poller.New(pollCfg,
		poller.WithLogger(uc.logger.With("job_id", job.ID, "provider", provider.Name())),
		poller.WithProgress(uc.progressRecorder(ctx, job, provider.Name(), &attempts)),
	)
	if err != nil {
		return uc.finish(ctx, job, err)
	}

	check := func(ctx context.Context, taskID string) (domain.TaskSnapshot, error) {
		return provider.CheckStatus(ctx, job.Kind, taskID)
	}

	var result domain.TaskResult
	if job.RemoteTaskID != "" {
		if err := uc.markStatus(ctx, job.ID, domain.JobPolling); err != nil {
			return err
		}
		result, err = p.Poll(ctx, job.RemoteTaskID, check)
	} else {
		if err := uc.markStatus(ctx, job.ID, domain.JobSubmitting); err != nil {
			return err
		}
		submit := func(ctx context.Context) (string, error) {
			taskID, err := provider.Submit(ctx, job.Request())
			if err != nil || taskID == "" {
				return taskID, err
			}
			job.RemoteTaskID = taskID
			if err := uc.repo.SaveRemoteTask(ctx, job.ID, taskID); err != nil {
				uc.logger.Warn("generation_job_save_task_failed", "job_id", job.ID, "error", err)
			}
			if err := uc.markStatus(ctx, job.ID, domain.JobPolling); err != nil {
				uc.logger.Warn("generation_job_status_failed", "job_id", job.ID, "error", err)
			}
			return taskID, nil
		}
		result, err = p.Run(ctx, submit, check)
	}
	job.Attempts = attempts
	if err != nil {
		return uc.finishOrSuspend(ctx, job, err)
	}

	storagePath, err := uc.storeAsset(ctx, job, result)
	if err != nil {
		return uc.finishOrSuspend(ctx, job, err)
	}
	if err := uc.repo.MarkSucceeded(context.WithoutCancel(ctx), job.ID, result.AssetURL, storagePath); err != nil {
		return fmt.Errorf("set status=succeeded: %w", err)
	}
	uc.observer.ObserveJobOutcome(provider.Name(), domain.JobSucceeded, job.Attempts)
	uc.logger.Info("generation_job_finished",
		"job_id", job.ID,
		"provider", provider.Name(),
		"status", domain.JobSucceeded,
		"attempts", job.Attempts,
		"storage_path", storagePath,
	)
	return nil
}

func (uc *ProcessJobUseCase) progressRecorder(ctx context.Context, job *domain.Job, provider string, attempts *int) poller.ProgressFunc {
	progress := job.Progress
	base := job.Attempts
	return func(ev domain.ProgressEvent) {
		*attempts = base + ev.Attempt
		if ev.Fraction != nil {
			progress = *ev.Fraction
		}
		uc.observer.ObservePollAttempt(provider, ev.Err != nil)
		if err := uc.repo.SaveProgress(ctx, job.ID, *attempts, progress); err != nil {
			uc.logger.Warn("generation_job_progress_failed", "job_id", job.ID, "error", err)
		}
	}
}

func (uc *ProcessJobUseCase) storeAsset(ctx context.Context, job *domain.Job, result domain.TaskResult) (string, error) {
	body, err := uc.fetcher.Fetch(ctx, result.AssetURL)
	if err != nil {
		return "", fmt.Errorf("download asset: %w", err)
	}
	defer body.Close()

	key := AssetKey(job, uc.now())
	if err := uc.storage.Save(ctx, key, body); err != nil {
		return "", fmt.Errorf("save asset to object storage: %w", err)
	}
	return key, nil
}

// AssetKey names a downloaded model <job-id>_<date>_<Mesh|CAD>.obj.
func AssetKey(job *domain.Job, at time.Time) string {
	suffix := "Mesh"
	if job.Kind == domain.KindTextToCAD {
		suffix = "CAD"
	}
	return fmt.Sprintf("%s_%s_%s.obj", job.ID, at.Format("2006-01-02"), suffix)
}

// InterruptedJobIDs lists jobs left in polling by a stopped worker. They hold
// a remote task id, so processing them again never resubmits.
func (uc *ProcessJobUseCase) InterruptedJobIDs(ctx context.Context) ([]string, error) {
	ids, err := uc.repo.ListIDsByStatus(ctx, domain.JobPolling)
	if err != nil {
		return nil, fmt.Errorf("list polling jobs: %w", err)
	}
	return ids, nil
}

func (uc *ProcessJobUseCase) finishOrSuspend(ctx context.Context, job *domain.Job, processErr error) error {
	if ctx.Err() != nil && (errors.Is(processErr, domain.ErrCancelled) || errors.Is(processErr, context.Canceled)) {
		return uc.suspend(ctx, job, processErr)
	}
	return uc.finish(ctx, job, processErr)
}

// suspend puts an interrupted job back to polling, or queued when nothing was
// submitted yet. The remote task keeps running and is picked up again later.
func (uc *ProcessJobUseCase) suspend(ctx context.Context, job *domain.Job, cause error) error {
	status := domain.JobQueued
	if job.RemoteTaskID != "" {
		status = domain.JobPolling
	}
	if err := uc.repo.UpdateStatus(context.WithoutCancel(ctx), job.ID, status, ""); err != nil {
		return fmt.Errorf("%w; mark %s status: %v", cause, status, err)
	}
	uc.logger.Warn("generation_job_suspended",
		"job_id", job.ID,
		"provider", job.Provider,
		"status", status,
		"remote_task_id", job.RemoteTaskID,
		"attempts", job.Attempts,
	)
	return domain.WrapError(domain.ErrInterrupted, "process job", cause)
}

// finish records the terminal status. It runs detached from ctx so a job
// whose deadline passed is still marked as timed out.
func (uc *ProcessJobUseCase) finish(ctx context.Context, job *domain.Job, processErr error) error {
	status := terminalStatus(processErr)
	storeCtx := context.WithoutCancel(ctx)
	if err := uc.repo.UpdateStatus(storeCtx, job.ID, status, domain.DescribeFailure(processErr)); err != nil {
		return fmt.Errorf("%w; mark %s status: %v", processErr, status, err)
	}
	uc.observer.ObserveJobOutcome(job.Provider, status, job.Attempts)
	uc.logger.Warn("generation_job_finished",
		"job_id", job.ID,
		"provider", job.Provider,
		"status", status,
		"attempts", job.Attempts,
		"error", processErr,
	)
	return processErr
}

func (uc *ProcessJobUseCase) markStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	if err := uc.repo.UpdateStatus(ctx, jobID, status, ""); err != nil {
		return fmt.Errorf("set status=%s: %w", status, err)
	}
	return nil
}

func terminalStatus(err error) domain.JobStatus {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return domain.JobTimedOut
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		return domain.JobCancelled
	default:
		return domain.JobFailed
	}
}
