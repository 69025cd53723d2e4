package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

type statusCall struct {
	status domain.JobStatus
	errMsg string
}

type progressCall struct {
	attempts int
	progress float64
}

type jobRepoFake struct {
	mu            sync.Mutex
	jobs          map[string]*domain.Job
	createErr     error
	getErr        error
	statusErr     error
	statusCalls   []statusCall
	progressCalls []progressCall
	remoteTaskID  string
	assetURL      string
	storagePath   string
}

func newJobRepoFake(jobs ...*domain.Job) *jobRepoFake {
	f := &jobRepoFake{jobs: map[string]*domain.Job{}}
	for _, job := range jobs {
		f.jobs[job.ID] = job
	}
	return f
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *jobRepoFake) UpdateStatus(_ context.Context, id string, status domain.JobStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if f.statusErr != nil {
		return f.statusErr
	}
	if job, ok := f.jobs[id]; ok {
		job.Status = status
		job.Error = errMessage
	}
	return nil
}

func (f *jobRepoFake) SaveRemoteTask(_ context.Context, id string, remoteTaskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteTaskID = remoteTaskID
	if job, ok := f.jobs[id]; ok {
		job.RemoteTaskID = remoteTaskID
	}
	return nil
}

func (f *jobRepoFake) SaveProgress(_ context.Context, id string, attempts int, progress float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressCalls = append(f.progressCalls, progressCall{attempts: attempts, progress: progress})
	if job, ok := f.jobs[id]; ok {
		job.Attempts = attempts
		job.Progress = progress
	}
	return nil
}

func (f *jobRepoFake) MarkSucceeded(_ context.Context, id, assetURL, storagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assetURL = assetURL
	f.storagePath = storagePath
	f.statusCalls = append(f.statusCalls, statusCall{status: domain.JobSucceeded})
	if job, ok := f.jobs[id]; ok {
		job.Status = domain.JobSucceeded
		job.AssetURL = assetURL
		job.StoragePath = storagePath
	}
	return nil
}

func (f *jobRepoFake) ListIDsByStatus(_ context.Context, status domain.JobStatus) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, job := range f.jobs {
		if job.Status == status {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *jobRepoFake) statuses() []domain.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.JobStatus, 0, len(f.statusCalls))
	for _, call := range f.statusCalls {
		out = append(out, call.status)
	}
	return out
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishJobQueued(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, jobID)
	return nil
}

func (f *queueFake) SubscribeJobQueued(context.Context, func(context.Context, string) error) error {
	return nil
}

type storageFake struct {
	objects map[string][]byte
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fetcherFake struct {
	body    string
	err     error
	fetched []string
}

func (f *fetcherFake) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	f.fetched = append(f.fetched, url)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewBufferString(f.body)), nil
}

type providerFake struct {
	name      string
	kinds     []domain.GenerationKind
	taskID    string
	submitErr error
	snapshots []domain.TaskSnapshot
	checkErrs []error
	onCheck   func(n int)

	submitted []domain.GenerationRequest
	checks    int
}

func (f *providerFake) Name() string { return f.name }

func (f *providerFake) Supports(kind domain.GenerationKind) bool {
	for _, k := range f.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (f *providerFake) Submit(_ context.Context, req domain.GenerationRequest) (string, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.taskID, nil
}

func (f *providerFake) CheckStatus(_ context.Context, _ domain.GenerationKind, _ string) (domain.TaskSnapshot, error) {
	idx := f.checks
	f.checks++
	if f.onCheck != nil {
		f.onCheck(f.checks)
	}
	if idx < len(f.checkErrs) && f.checkErrs[idx] != nil {
		return domain.TaskSnapshot{}, f.checkErrs[idx]
	}
	if idx >= len(f.snapshots) {
		idx = len(f.snapshots) - 1
	}
	return f.snapshots[idx], nil
}

type generatorFake struct {
	reply   string
	err     error
	prompts []string
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type observerFake struct {
	attempts  int
	transient int
	outcomes  []domain.JobStatus
}

func (f *observerFake) ObservePollAttempt(_ string, transient bool) {
	f.attempts++
	if transient {
		f.transient++
	}
}

func (f *observerFake) ObserveJobOutcome(_ string, status domain.JobStatus, _ int) {
	f.outcomes = append(f.outcomes, status)
}

func float(v float64) *float64 { return &v }
