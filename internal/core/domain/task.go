package domain

// TaskStatus is the normalised status of a remote long-running task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskResult is the payload of a succeeded remote task.
type TaskResult struct {
	AssetURL     string `json:"asset_url"`
	Format       string `json:"format,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// TaskSnapshot is one status observation. Progress is set only while
// pending, Result only when succeeded, FailureReason only when failed.
type TaskSnapshot struct {
	TaskID        string
	Status        TaskStatus
	Progress      *float64
	Result        *TaskResult
	FailureReason string
}

func PendingSnapshot(taskID string, progress *float64) TaskSnapshot {
	return TaskSnapshot{TaskID: taskID, Status: TaskPending, Progress: progress}
}

func SucceededSnapshot(taskID string, result TaskResult) TaskSnapshot {
	return TaskSnapshot{TaskID: taskID, Status: TaskSucceeded, Result: &result}
}

func FailedSnapshot(taskID, reason string) TaskSnapshot {
	return TaskSnapshot{TaskID: taskID, Status: TaskFailed, FailureReason: reason}
}

// ProgressEvent is emitted after every non-terminal status check. Err is set
// when the check itself failed and the attempt was consumed.
type ProgressEvent struct {
	TaskID      string
	Attempt     int
	MaxAttempts int
	Fraction    *float64
	Err         error
}
