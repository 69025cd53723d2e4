package ports

import (
	"context"
	"io"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

// GenerationService is the inbound contract for creating and reading generation jobs.
type GenerationService interface {
	Create(ctx context.Context, provider string, req domain.GenerationRequest) (*domain.Job, error)
	GetByID(ctx context.Context, id string) (*domain.Job, error)
}

// JobProcessor is the inbound contract for asynchronous job execution.
type JobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
	InterruptedJobIDs(ctx context.Context) ([]string, error)
}

// MeshAnalyzer summarises OBJ meshes and asks for printing advice.
type MeshAnalyzer interface {
	Stats(ctx context.Context, filename string, body io.Reader) (*domain.MeshReport, error)
	Advise(ctx context.Context, filename string, body io.Reader) (*domain.MeshReport, error)
	JobStats(ctx context.Context, jobID string) (*domain.MeshReport, error)
}

// PromptRefiner rewrites a raw user prompt for a generation target.
type PromptRefiner interface {
	Refine(ctx context.Context, text string, target domain.RefineTarget) (*domain.Refinement, error)
}

// MediaService produces prompt material and non-3D outputs through the LLM provider.
type MediaService interface {
	GenerateText(ctx context.Context, prompt string) (*domain.TextOutput, error)
	GenerateImage(ctx context.Context, prompt string) (*domain.ImageOutput, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (*domain.Transcription, error)
	DescribeImage(ctx context.Context, image io.Reader, target domain.RefineTarget) (*domain.ImageDescription, error)
}
