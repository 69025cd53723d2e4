package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/kirillkom/forge3d/internal/config"
	"github.com/kirillkom/forge3d/internal/core/domain"
)

type generationFake struct {
	job      *domain.Job
	err      error
	provider string
	req      domain.GenerationRequest
}

func (f *generationFake) Create(_ context.Context, provider string, req domain.GenerationRequest) (*domain.Job, error) {
	f.provider = provider
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *generationFake) GetByID(context.Context, string) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

type meshFake struct {
	report   *domain.MeshReport
	err      error
	filename string
	body     string
}

func (f *meshFake) analyze(filename string, body io.Reader) (*domain.MeshReport, error) {
	f.filename = filename
	raw, _ := io.ReadAll(body)
	f.body = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *meshFake) Stats(_ context.Context, filename string, body io.Reader) (*domain.MeshReport, error) {
	return f.analyze(filename, body)
}

func (f *meshFake) Advise(_ context.Context, filename string, body io.Reader) (*domain.MeshReport, error) {
	return f.analyze(filename, body)
}

func (f *meshFake) JobStats(context.Context, string) (*domain.MeshReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type refinerFake struct {
	result *domain.Refinement
	err    error
}

func (f refinerFake) Refine(context.Context, string, domain.RefineTarget) (*domain.Refinement, error) {
	return f.result, f.err
}

type mediaFake struct {
	err      error
	prompt   string
	filename string
	body     string
	target   domain.RefineTarget
}

func (f *mediaFake) GenerateText(_ context.Context, prompt string) (*domain.TextOutput, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TextOutput{Text: "text for " + prompt}, nil
}

func (f *mediaFake) GenerateImage(_ context.Context, prompt string) (*domain.ImageOutput, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageOutput{URL: "https://images.example/1.png"}, nil
}

func (f *mediaFake) Transcribe(_ context.Context, filename string, audio io.Reader) (*domain.Transcription, error) {
	f.filename = filename
	raw, _ := io.ReadAll(audio)
	f.body = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Transcription{Text: "a small gear"}, nil
}

func (f *mediaFake) DescribeImage(_ context.Context, image io.Reader, target domain.RefineTarget) (*domain.ImageDescription, error) {
	raw, _ := io.ReadAll(image)
	f.body = string(raw)
	f.target = target
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageDescription{Target: target, Description: "a cylinder"}, nil
}

func newMediaTestHandler(cfg config.Config, media *mediaFake) http.Handler {
	return NewRouter(cfg, &generationFake{}, &meshFake{}, refinerFake{}, media, nil).Handler()
}

func newTestHandler(cfg config.Config, gen *generationFake, mesh *meshFake) http.Handler {
	if gen == nil {
		gen = &generationFake{}
	}
	if mesh == nil {
		mesh = &meshFake{}
	}
	return NewRouter(cfg, gen, mesh, refinerFake{result: &domain.Refinement{RefinedPrompt: "ok"}}, &mediaFake{}, nil).Handler()
}
