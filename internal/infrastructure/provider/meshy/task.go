package meshy

import (
	"strings"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

type taskResponse struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Progress     *float64  `json:"progress"`
	ModelURLs    modelURLs `json:"model_urls"`
	ThumbnailURL string    `json:"thumbnail_url"`
	TaskError    struct {
		Message string `json:"message"`
	} `json:"task_error"`
}

type modelURLs struct {
	OBJ string `json:"obj"`
	GLB string `json:"glb"`
	FBX string `json:"fbx"`
}

// normalizeTask maps Meshy's PENDING/IN_PROGRESS/SUCCEEDED/FAILED/EXPIRED/CANCELED
// vocabulary onto a task snapshot. Progress arrives as a percentage.
func normalizeTask(task taskResponse) domain.TaskSnapshot {
	switch strings.ToUpper(strings.TrimSpace(task.Status)) {
	case "SUCCEEDED":
		if task.ModelURLs.OBJ == "" {
			return domain.FailedSnapshot(task.ID, "model url missing")
		}
		return domain.SucceededSnapshot(task.ID, domain.TaskResult{
			AssetURL:     task.ModelURLs.OBJ,
			Format:       "obj",
			ThumbnailURL: task.ThumbnailURL,
		})
	case "FAILED", "EXPIRED", "CANCELED", "CANCELLED":
		reason := firstNonEmpty(task.TaskError.Message, strings.ToLower(task.Status))
		return domain.FailedSnapshot(task.ID, reason)
	case "PENDING", "IN_PROGRESS", "QUEUED":
		return domain.PendingSnapshot(task.ID, percentToFraction(task.Progress))
	default:
		return domain.TaskSnapshot{TaskID: task.ID, Status: domain.TaskStatus(strings.ToLower(task.Status))}
	}
}

func percentToFraction(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p / 100
	return &v
}
