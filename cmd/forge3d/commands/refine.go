package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kirillkom/forge3d/internal/bootstrap"
	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/usecase"
)

type RefineCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	words  []string
	target string
}

// NewRefineCommand returns the refine command.
func NewRefineCommand(rootCmd *RootCommand, app *kingpin.Application) *RefineCommand {
	c := &RefineCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("refine", "Rewrite a prompt for a generation target.")
	c.Cmd.Arg("text", "Prompt text.").Required().StringsVar(&c.words)
	c.Cmd.Flag("target", "Refinement target.").Default(string(domain.RefineMesh)).
		EnumVar(&c.target, string(domain.RefineMesh), string(domain.RefineCAD), string(domain.RefineImage))

	return c
}

func (c RefineCommand) Name() string { return c.Cmd.FullCommand() }

func (c RefineCommand) Run(ctx context.Context) error {
	generator := bootstrap.NewTextGenerator(c.rootCmd.Config)
	if generator == nil {
		return fmt.Errorf("refine requires OPENAI_API_KEY")
	}
	refinement, err := usecase.NewRefinePromptUseCase(generator).Refine(ctx, strings.Join(c.words, " "), domain.RefineTarget(c.target))
	if err != nil {
		return err
	}

	if refinement.Suitability != "" {
		fmt.Fprintf(c.rootCmd.Stderr, "Suitability: %s\n", refinement.Suitability)
	}
	_, err = fmt.Fprintln(c.rootCmd.Stdout, refinement.RefinedPrompt)
	return err
}
