package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/ports"
)

var audioExtensions = map[string]bool{
	".flac": true, ".m4a": true, ".mp3": true, ".mp4": true, ".mpeg": true,
	".mpga": true, ".oga": true, ".ogg": true, ".wav": true, ".webm": true,
}

type MediaUseCase struct {
	generator   ports.TextGenerator
	images      ports.ImageGenerator
	transcriber ports.Transcriber
	describer   ports.ImageDescriber
}

// NewMediaUseCase accepts nil collaborators; the matching operation then
// fails with domain.ErrUpstream.
func NewMediaUseCase(
	generator ports.TextGenerator,
	images ports.ImageGenerator,
	transcriber ports.Transcriber,
	describer ports.ImageDescriber,
) *MediaUseCase {
	return &MediaUseCase{
		generator:   generator,
		images:      images,
		transcriber: transcriber,
		describer:   describer,
	}
}

func (uc *MediaUseCase) GenerateText(ctx context.Context, prompt string) (*domain.TextOutput, error) {
	prompt, err := validatePrompt("generate text", prompt)
	if err != nil {
		return nil, err
	}
	if uc.generator == nil {
		return nil, notConfigured("generate text")
	}
	text, err := uc.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate text: %w", err)
	}
	if text == "" {
		return nil, domain.WrapError(domain.ErrUpstream, "generate text", errors.New("empty reply"))
	}
	return &domain.TextOutput{Text: text}, nil
}

func (uc *MediaUseCase) GenerateImage(ctx context.Context, prompt string) (*domain.ImageOutput, error) {
	prompt, err := validatePrompt("generate image", prompt)
	if err != nil {
		return nil, err
	}
	if uc.images == nil {
		return nil, notConfigured("generate image")
	}
	url, err := uc.images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	return &domain.ImageOutput{URL: url}, nil
}

func (uc *MediaUseCase) Transcribe(ctx context.Context, filename string, audio io.Reader) (*domain.Transcription, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !audioExtensions[ext] {
		return nil, domain.WrapError(domain.ErrInvalidInput, "transcribe audio", fmt.Errorf("unsupported audio file %q", filename))
	}
	raw, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "transcribe audio", errors.New("audio is empty"))
	}
	if uc.transcriber == nil {
		return nil, notConfigured("transcribe audio")
	}
	text, err := uc.transcriber.Transcribe(ctx, filepath.Base(filename), raw)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	return &domain.Transcription{Text: strings.TrimSpace(text)}, nil
}

// DescribeImage sends the upload inline as a data URL. Only content sniffed as
// an image is accepted.
func (uc *MediaUseCase) DescribeImage(ctx context.Context, image io.Reader, target domain.RefineTarget) (*domain.ImageDescription, error) {
	instruction, ok := buildDescribeInstruction(target)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "describe image", fmt.Errorf("unknown target %q", target))
	}
	raw, err := io.ReadAll(image)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mimeType := http.DetectContentType(raw)
	if len(raw) == 0 || !strings.HasPrefix(mimeType, "image/") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "describe image", fmt.Errorf("upload is not an image (%s)", mimeType))
	}
	if uc.describer == nil {
		return nil, notConfigured("describe image")
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(raw)
	description, err := uc.describer.DescribeImage(ctx, instruction, dataURL)
	if err != nil {
		return nil, fmt.Errorf("describe image: %w", err)
	}
	if description == "" {
		return nil, domain.WrapError(domain.ErrUpstream, "describe image", errors.New("empty reply"))
	}
	return &domain.ImageDescription{Target: target, Description: description}, nil
}

func validatePrompt(operation, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, operation, errors.New("prompt is required"))
	}
	if len(prompt) > maxPromptLength {
		return "", domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("prompt exceeds %d characters", maxPromptLength))
	}
	return prompt, nil
}

func notConfigured(operation string) error {
	return domain.WrapError(domain.ErrUpstream, operation, errors.New("openai is not configured"))
}
