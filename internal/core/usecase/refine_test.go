package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

func TestRefineParsesBothSections(t *testing.T) {
	gen := &generatorFake{reply: "---\nSuitability: CAD is the best format because the part is prismatic.\nRefined Prompt: \"A 40mm L-bracket with two 5mm holes\"\n---"}
	uc := NewRefinePromptUseCase(gen)

	out, err := uc.Refine(context.Background(), "metal bracket", domain.RefineCAD)
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	if out.Suitability != "CAD is the best format because the part is prismatic." {
		t.Fatalf("unexpected suitability %q", out.Suitability)
	}
	if out.RefinedPrompt != "A 40mm L-bracket with two 5mm holes" {
		t.Fatalf("unexpected refined prompt %q", out.RefinedPrompt)
	}
	if !strings.Contains(gen.prompts[0], `"metal bracket"`) || !strings.Contains(gen.prompts[0], "Suitability:") {
		t.Fatalf("unexpected prompt:\n%s", gen.prompts[0])
	}
}

func TestRefineImageTargetWithoutSeparator(t *testing.T) {
	gen := &generatorFake{reply: "Refined Prompt: A red fox at dusk, watercolor"}
	uc := NewRefinePromptUseCase(gen)

	out, err := uc.Refine(context.Background(), "fox", domain.RefineImage)
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	if out.Suitability != "" || out.RefinedPrompt != "A red fox at dusk, watercolor" {
		t.Fatalf("unexpected refinement: %+v", out)
	}
	if strings.Contains(gen.prompts[0], "Suitability:") {
		t.Fatalf("image prompt must not ask for suitability")
	}
}

func TestRefineErrors(t *testing.T) {
	uc := NewRefinePromptUseCase(&generatorFake{reply: "I cannot help with that."})

	if _, err := uc.Refine(context.Background(), " ", domain.RefineMesh); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty text, got %v", err)
	}
	if _, err := uc.Refine(context.Background(), "cup", "svg"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown target, got %v", err)
	}
	if _, err := uc.Refine(context.Background(), "cup", domain.RefineMesh); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error for unparsable reply, got %v", err)
	}

	errLLM := domain.WrapError(domain.ErrTemporary, "openai chat", errors.New("503"))
	uc = NewRefinePromptUseCase(&generatorFake{err: errLLM})
	if _, err := uc.Refine(context.Background(), "cup", domain.RefineMesh); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	uc = NewRefinePromptUseCase(nil)
	if _, err := uc.Refine(context.Background(), "cup", domain.RefineMesh); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error without generator, got %v", err)
	}
}
