package domain

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobSubmitting JobStatus = "submitting"
	JobPolling    JobStatus = "polling"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
	JobTimedOut   JobStatus = "timed_out"
	JobCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobTimedOut, JobCancelled:
		return true
	default:
		return false
	}
}

type GenerationKind string

const (
	KindTextToMesh  GenerationKind = "text-to-3d"
	KindImageToMesh GenerationKind = "image-to-3d"
	KindTextToCAD   GenerationKind = "text-to-cad"
)

// GenerationRequest is what a provider needs to start a remote task.
type GenerationRequest struct {
	Kind     GenerationKind `json:"kind"`
	Prompt   string         `json:"prompt,omitempty"`
	ImageURL string         `json:"image_url,omitempty"`
}

// Job tracks one generation request across API and worker.
type Job struct {
	ID           string         `json:"id"`
	Provider     string         `json:"provider"`
	Kind         GenerationKind `json:"kind"`
	Prompt       string         `json:"prompt,omitempty"`
	ImageURL     string         `json:"image_url,omitempty"`
	RemoteTaskID string         `json:"remote_task_id,omitempty"`
	Status       JobStatus      `json:"status"`
	Attempts     int            `json:"attempts"`
	Progress     float64        `json:"progress"`
	AssetURL     string         `json:"asset_url,omitempty"`
	StoragePath  string         `json:"storage_path,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (j *Job) Request() GenerationRequest {
	return GenerationRequest{Kind: j.Kind, Prompt: j.Prompt, ImageURL: j.ImageURL}
}

// RefineTarget selects the instructions used to refine a user prompt.
type RefineTarget string

const (
	RefineCAD   RefineTarget = "3d_cad"
	RefineMesh  RefineTarget = "3d_mesh"
	RefineImage RefineTarget = "image_generation"
)

type Refinement struct {
	Target        RefineTarget `json:"target"`
	Suitability   string       `json:"suitability,omitempty"`
	RefinedPrompt string       `json:"refined_prompt"`
}
