package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kirillkom/forge3d/internal/config"
	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/ports"
	"github.com/kirillkom/forge3d/internal/observability/metrics"
)

const (
	apiService            = "forge3d-api"
	defaultMaxUploadBytes = 64 << 20
)

type Router struct {
	generations ports.GenerationService
	meshes      ports.MeshAnalyzer
	refiner     ports.PromptRefiner
	media       ports.MediaService
	metrics     *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
	maxUploadBytes int64
}

func NewRouter(
	cfg config.Config,
	generations ports.GenerationService,
	meshes ports.MeshAnalyzer,
	refiner ports.PromptRefiner,
	media ports.MediaService,
	m *metrics.HTTPServerMetrics,
) *Router {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Router{
		generations:    generations,
		meshes:         meshes,
		refiner:        refiner,
		media:          media,
		metrics:        m,
		rateLimitRPS:   cfg.HTTPRateLimitRPS,
		rateLimitBurst: cfg.HTTPRateLimitBurst,
		maxInFlight:    cfg.HTTPMaxInFlight,
		maxUploadBytes: maxUpload,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/generations", rt.createGeneration)
	mux.HandleFunc("GET /v1/generations/{id}", rt.getGeneration)
	mux.HandleFunc("GET /v1/generations/{id}/stats", rt.generationStats)
	mux.HandleFunc("POST /v1/meshes/stats", rt.meshStats)
	mux.HandleFunc("POST /v1/meshes/advice", rt.meshAdvice)
	mux.HandleFunc("POST /v1/prompts/refine", rt.refinePrompt)
	mux.HandleFunc("POST /v1/text", rt.generateText)
	mux.HandleFunc("POST /v1/images", rt.generateImage)
	mux.HandleFunc("POST /v1/images/describe", rt.describeImage)
	mux.HandleFunc("POST /v1/audio/transcriptions", rt.transcribeAudio)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, defaultBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.onRejected)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(apiService, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) onRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(apiService, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createGenerationRequest struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
}

func (rt *Router) createGeneration(w http.ResponseWriter, r *http.Request) {
	var req createGenerationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	job, err := rt.generations.Create(r.Context(), req.Provider, domain.GenerationRequest{
		Kind:     domain.GenerationKind(strings.TrimSpace(req.Kind)),
		Prompt:   req.Prompt,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordGenerationCreated(apiService, job.Provider, string(job.Kind))
	}
	writeJSON(w, http.StatusAccepted, job)
}

type generationResponse struct {
	Job     *domain.Job `json:"job"`
	Message string      `json:"message"`
}

func (rt *Router) getGeneration(w http.ResponseWriter, r *http.Request) {
	job, err := rt.generations.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generationResponse{Job: job, Message: statusMessage(job)})
}

func (rt *Router) generationStats(w http.ResponseWriter, r *http.Request) {
	report, err := rt.meshes.JobStats(r.Context(), r.PathValue("id"))
	rt.recordMesh("job_stats", report, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) meshStats(w http.ResponseWriter, r *http.Request) {
	rt.analyzeUpload(w, r, "stats", rt.meshes.Stats)
}

func (rt *Router) meshAdvice(w http.ResponseWriter, r *http.Request) {
	rt.analyzeUpload(w, r, "advice", rt.meshes.Advise)
}

func (rt *Router) analyzeUpload(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	analyze func(ctx context.Context, filename string, body io.Reader) (*domain.MeshReport, error),
) {
	file, header, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	report, err := analyze(r.Context(), header.Filename, file)
	rt.recordMesh(operation, report, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// formFile reads the multipart field "file" under the upload limit and writes
// the 400/413 response itself when it is missing or too large.
func (rt *Router) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
			return nil, nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return nil, nil, false
	}
	return file, header, true
}

func (rt *Router) recordMesh(operation string, report *domain.MeshReport, err error) {
	if rt.metrics == nil {
		return
	}
	vertices := 0
	if report != nil {
		vertices = report.Statistics.VertexCount
	}
	rt.metrics.RecordMeshAnalysis(apiService, operation, vertices, err)
	if operation == "advice" {
		rt.recordLLM(operation, err)
	}
}

type refineRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

func (rt *Router) refinePrompt(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	refinement, err := rt.refiner.Refine(r.Context(), req.Text, domain.RefineTarget(strings.TrimSpace(req.Target)))
	rt.recordLLM("refine", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refinement)
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (rt *Router) generateText(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := rt.media.GenerateText(r.Context(), req.Prompt)
	rt.recordLLM("text", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) generateImage(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := rt.media.GenerateImage(r.Context(), req.Prompt)
	rt.recordLLM("image", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) describeImage(w http.ResponseWriter, r *http.Request) {
	file, _, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	target := domain.RefineTarget(strings.TrimSpace(r.FormValue("target")))
	out, err := rt.media.DescribeImage(r.Context(), file, target)
	rt.recordLLM("describe", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) transcribeAudio(w http.ResponseWriter, r *http.Request) {
	file, header, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	out, err := rt.media.Transcribe(r.Context(), header.Filename, file)
	rt.recordLLM("transcribe", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) recordLLM(operation string, err error) {
	if rt.metrics != nil {
		rt.metrics.RecordLLMRequest(apiService, operation, err)
	}
}

func statusMessage(job *domain.Job) string {
	switch job.Status {
	case domain.JobQueued:
		return "Generation is queued."
	case domain.JobSubmitting:
		return "Submitting the generation request."
	case domain.JobPolling:
		return fmt.Sprintf("Generating model... %.0f%% (check %d)", job.Progress*100, job.Attempts)
	case domain.JobSucceeded:
		return "Model is ready."
	default:
		if job.Error != "" {
			return job.Error
		}
		return "Generation finished with status " + string(job.Status) + "."
	}
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		message = publicMessage(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON encodes before writing the header so an unencodable payload
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("http_response_encode_failed", "status", status, "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": publicMessage(status)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
