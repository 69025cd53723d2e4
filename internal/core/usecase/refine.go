package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/ports"
)

const maxRefineInput = 2000

type RefinePromptUseCase struct {
	generator ports.TextGenerator
}

func NewRefinePromptUseCase(generator ports.TextGenerator) *RefinePromptUseCase {
	return &RefinePromptUseCase{generator: generator}
}

func (uc *RefinePromptUseCase) Refine(ctx context.Context, text string, target domain.RefineTarget) (*domain.Refinement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "refine prompt", errors.New("text is required"))
	}
	if len(text) > maxRefineInput {
		return nil, domain.WrapError(domain.ErrInvalidInput, "refine prompt", fmt.Errorf("text exceeds %d characters", maxRefineInput))
	}
	prompt, ok := buildRefinePrompt(text, target)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "refine prompt", fmt.Errorf("unknown target %q", target))
	}

	if uc.generator == nil {
		return nil, domain.WrapError(domain.ErrUpstream, "refine prompt", errors.New("text generator is not configured"))
	}
	reply, err := uc.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate refinement: %w", err)
	}
	suitability, refined, ok := parseRefinement(reply)
	if !ok {
		return nil, domain.WrapError(domain.ErrUpstream, "refine prompt", errors.New("reply has no refined prompt section"))
	}
	return &domain.Refinement{Target: target, Suitability: suitability, RefinedPrompt: refined}, nil
}
