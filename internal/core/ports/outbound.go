package ports

import (
	"context"
	"io"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

// JobRepository persists and reads generation job state.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error
	SaveRemoteTask(ctx context.Context, id, remoteTaskID string) error
	SaveProgress(ctx context.Context, id string, attempts int, progress float64) error
	MarkSucceeded(ctx context.Context, id, assetURL, storagePath string) error
	ListIDsByStatus(ctx context.Context, status domain.JobStatus) ([]string, error)
}

// ObjectStorage stores downloaded model assets.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes job events.
type MessageQueue interface {
	PublishJobQueued(ctx context.Context, jobID string) error
	SubscribeJobQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// GenerationProvider starts and inspects remote generation tasks. CheckStatus
// maps the provider's raw status into a normalised snapshot.
type GenerationProvider interface {
	Name() string
	Supports(kind domain.GenerationKind) bool
	Submit(ctx context.Context, req domain.GenerationRequest) (string, error)
	CheckStatus(ctx context.Context, kind domain.GenerationKind, taskID string) (domain.TaskSnapshot, error)
}

// AssetFetcher downloads a finished asset.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// TextGenerator runs a single prompt through a chat model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator renders an image from a prompt and returns where it can be
// downloaded.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Transcriber turns recorded speech into text. The audio is passed whole so
// a failed upload can be retried.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// ImageDescriber answers an instruction about an image given as a URL or a
// data URL.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, instruction, imageURL string) (string, error)
}
