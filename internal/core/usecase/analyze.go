package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/meshstats"
	"github.com/kirillkom/forge3d/internal/core/ports"
)

type AnalyzeMeshUseCase struct {
	generator ports.TextGenerator
	repo      ports.JobRepository
	storage   ports.ObjectStorage
}

func NewAnalyzeMeshUseCase(generator ports.TextGenerator, repo ports.JobRepository, storage ports.ObjectStorage) *AnalyzeMeshUseCase {
	return &AnalyzeMeshUseCase{
		generator: generator,
		repo:      repo,
		storage:   storage,
	}
}

func (uc *AnalyzeMeshUseCase) Stats(_ context.Context, filename string, body io.Reader) (*domain.MeshReport, error) {
	if err := validateMeshFilename(filename); err != nil {
		return nil, err
	}
	stats, err := meshstats.SummarizeReader(body)
	if err != nil {
		return nil, fmt.Errorf("summarize mesh: %w", err)
	}
	return &domain.MeshReport{Filename: filepath.Base(filename), Statistics: stats}, nil
}

// Advise summarises the mesh and asks the text generator for 3D printing advice.
func (uc *AnalyzeMeshUseCase) Advise(ctx context.Context, filename string, body io.Reader) (*domain.MeshReport, error) {
	report, err := uc.Stats(ctx, filename, body)
	if err != nil {
		return nil, err
	}
	if uc.generator == nil {
		return nil, domain.WrapError(domain.ErrUpstream, "mesh advice", errors.New("text generator is not configured"))
	}

	advice, err := uc.generator.Generate(ctx, buildAdvicePrompt(report.Filename, report.Statistics))
	if err != nil {
		return nil, fmt.Errorf("generate printing advice: %w", err)
	}
	advice = strings.TrimSpace(advice)
	if advice == "" {
		return nil, domain.WrapError(domain.ErrUpstream, "mesh advice", errors.New("empty advice"))
	}
	report.Advice = advice
	return report, nil
}

// JobStats summarises the asset stored for a succeeded job.
func (uc *AnalyzeMeshUseCase) JobStats(ctx context.Context, jobID string) (*domain.MeshReport, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobSucceeded || job.StoragePath == "" {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"job stats",
			fmt.Errorf("job %s has no stored asset (status=%s)", job.ID, job.Status),
		)
	}

	rc, err := uc.storage.Open(ctx, job.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored asset: %w", err)
	}
	defer rc.Close()

	stats, err := meshstats.SummarizeReader(rc)
	if err != nil {
		return nil, fmt.Errorf("summarize stored asset: %w", err)
	}
	return &domain.MeshReport{Filename: job.StoragePath, Statistics: stats}, nil
}

func validateMeshFilename(filename string) error {
	if !strings.EqualFold(filepath.Ext(filename), ".obj") {
		return domain.WrapError(domain.ErrInvalidInput, "validate mesh", fmt.Errorf("unsupported file %q, expected .obj", filepath.Base(filename)))
	}
	return nil
}
