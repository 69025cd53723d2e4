package zoocad

import (
	"sort"
	"strings"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

type operation struct {
	ID      string            `json:"id"`
	Status  string            `json:"status"`
	Error   string            `json:"error"`
	Outputs map[string]string `json:"outputs"`
}

// normalizeOperation maps queued/uploaded/in_progress/completed/failed onto a
// task snapshot. Outputs are keyed by file name; the first .obj entry wins.
// Inline base64 outputs become a data url.
func normalizeOperation(op operation, baseURL string) domain.TaskSnapshot {
	switch strings.ToLower(strings.TrimSpace(op.Status)) {
	case "completed":
		asset, ok := objOutput(op.Outputs, baseURL)
		if !ok {
			return domain.FailedSnapshot(op.ID, "model output missing")
		}
		return domain.SucceededSnapshot(op.ID, domain.TaskResult{AssetURL: asset, Format: "obj"})
	case "failed":
		return domain.FailedSnapshot(op.ID, firstNonEmpty(op.Error, "operation failed"))
	case "queued", "uploaded", "in_progress":
		return domain.PendingSnapshot(op.ID, nil)
	default:
		return domain.TaskSnapshot{TaskID: op.ID, Status: domain.TaskStatus(strings.ToLower(op.Status))}
	}
}

func objOutput(outputs map[string]string, baseURL string) (string, bool) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasSuffix(strings.ToLower(name), ".obj") {
			continue
		}
		value := strings.TrimSpace(outputs[name])
		if value == "" {
			continue
		}
		if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
			return value, true
		}
		if strings.HasPrefix(value, "/") {
			return baseURL + value, true
		}
		return "data:model/obj;base64," + value, true
	}
	return "", false
}
