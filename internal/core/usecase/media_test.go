package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

type imageGeneratorFake struct {
	url     string
	err     error
	prompts []string
}

func (f *imageGeneratorFake) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.url, f.err
}

type transcriberFake struct {
	text     string
	err      error
	filename string
	audio    []byte
}

func (f *transcriberFake) Transcribe(_ context.Context, filename string, audio []byte) (string, error) {
	f.filename = filename
	f.audio = audio
	return f.text, f.err
}

type describerFake struct {
	reply       string
	err         error
	instruction string
	imageURL    string
}

func (f *describerFake) DescribeImage(_ context.Context, instruction, imageURL string) (string, error) {
	f.instruction = instruction
	f.imageURL = imageURL
	return f.reply, f.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestGenerateTextTrimsPrompt(t *testing.T) {
	gen := &generatorFake{reply: "a haiku"}
	uc := NewMediaUseCase(gen, nil, nil, nil)

	out, err := uc.GenerateText(context.Background(), "  write a haiku  ")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if out.Text != "a haiku" || len(gen.prompts) != 1 || gen.prompts[0] != "write a haiku" {
		t.Fatalf("unexpected output %+v prompts %v", out, gen.prompts)
	}
}

func TestGenerateTextValidation(t *testing.T) {
	uc := NewMediaUseCase(&generatorFake{reply: "x"}, nil, nil, nil)
	for _, prompt := range []string{"", "   ", strings.Repeat("a", maxPromptLength+1)} {
		if _, err := uc.GenerateText(context.Background(), prompt); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("GenerateText(len=%d) expected invalid input, got %v", len(prompt), err)
		}
	}
}

func TestMediaWithoutOpenAIIsUpstreamError(t *testing.T) {
	uc := NewMediaUseCase(nil, nil, nil, nil)
	if _, err := uc.GenerateText(context.Background(), "x"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error for text, got %v", err)
	}
	if _, err := uc.GenerateImage(context.Background(), "x"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error for image, got %v", err)
	}
	if _, err := uc.Transcribe(context.Background(), "a.wav", strings.NewReader("RIFF")); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error for audio, got %v", err)
	}
	if _, err := uc.DescribeImage(context.Background(), bytes.NewReader(pngHeader), ""); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error for describe, got %v", err)
	}
}

func TestGenerateImageReturnsURL(t *testing.T) {
	images := &imageGeneratorFake{url: "https://images/1.png"}
	uc := NewMediaUseCase(nil, images, nil, nil)

	out, err := uc.GenerateImage(context.Background(), "a red chair")
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if out.URL != "https://images/1.png" || images.prompts[0] != "a red chair" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestTranscribeChecksExtensionAndContent(t *testing.T) {
	tr := &transcriberFake{text: " a small gear \n"}
	uc := NewMediaUseCase(nil, nil, tr, nil)

	if _, err := uc.Transcribe(context.Background(), "notes.txt", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for extension, got %v", err)
	}
	if _, err := uc.Transcribe(context.Background(), "empty.wav", strings.NewReader("")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty audio, got %v", err)
	}

	out, err := uc.Transcribe(context.Background(), "dir/Voice.WAV", strings.NewReader("RIFFdata"))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if out.Text != "a small gear" || tr.filename != "Voice.WAV" || string(tr.audio) != "RIFFdata" {
		t.Fatalf("unexpected transcription %+v (file=%q)", out, tr.filename)
	}
}

func TestDescribeImageUsesTargetInstruction(t *testing.T) {
	describer := &describerFake{reply: "a cylinder 20mm tall"}
	uc := NewMediaUseCase(nil, nil, nil, describer)

	out, err := uc.DescribeImage(context.Background(), bytes.NewReader(pngHeader), domain.RefineCAD)
	if err != nil {
		t.Fatalf("DescribeImage() error = %v", err)
	}
	if out.Description != "a cylinder 20mm tall" || out.Target != domain.RefineCAD {
		t.Fatalf("unexpected description %+v", out)
	}
	if !strings.Contains(describer.instruction, "CAD modeling") {
		t.Fatalf("expected CAD instruction, got %q", describer.instruction)
	}
	if !strings.HasPrefix(describer.imageURL, "data:image/png;base64,") {
		t.Fatalf("expected png data url, got %q", describer.imageURL)
	}

	if _, err := uc.DescribeImage(context.Background(), bytes.NewReader(pngHeader), ""); err != nil {
		t.Fatalf("general description error = %v", err)
	}
	if describer.instruction != generalDescribeInstruction {
		t.Fatalf("expected general instruction, got %q", describer.instruction)
	}
}

func TestDescribeImageRejectsNonImages(t *testing.T) {
	uc := NewMediaUseCase(nil, nil, nil, &describerFake{reply: "x"})
	if _, err := uc.DescribeImage(context.Background(), strings.NewReader("v 0 0 0\n"), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for text upload, got %v", err)
	}
	if _, err := uc.DescribeImage(context.Background(), bytes.NewReader(pngHeader), "sculpture"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown target, got %v", err)
	}
}
