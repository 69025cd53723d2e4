package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kirillkom/forge3d/internal/bootstrap"
	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/usecase"
)

type GenerateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	provider    string
	kind        string
	prompt      string
	imageURL    string
	out         string
	maxAttempts int
	interval    time.Duration
}

// NewGenerateCommand returns the generate command.
func NewGenerateCommand(rootCmd *RootCommand, app *kingpin.Application) *GenerateCommand {
	c := &GenerateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("generate", "Generate a 3D model and wait for it.")
	c.Cmd.Flag("provider", "Generation provider.").Default("meshy").EnumVar(&c.provider, "meshy", "zoocad")
	c.Cmd.Flag("kind", "Generation kind. Derived from the other flags when empty.").
		EnumVar(&c.kind, string(domain.KindTextToMesh), string(domain.KindImageToMesh), string(domain.KindTextToCAD))
	c.Cmd.Flag("prompt", "Text prompt.").Short('p').StringVar(&c.prompt)
	c.Cmd.Flag("image-url", "Source image for image-to-3d.").StringVar(&c.imageURL)
	c.Cmd.Flag("out", "Write the OBJ file here instead of printing its URL.").Short('o').StringVar(&c.out)
	c.Cmd.Flag("max-attempts", "Override the number of status checks.").IntVar(&c.maxAttempts)
	c.Cmd.Flag("interval", "Override the wait between status checks.").DurationVar(&c.interval)

	return c
}

func (c GenerateCommand) Name() string { return c.Cmd.FullCommand() }

func (c GenerateCommand) Run(ctx context.Context) error {
	cfg := c.rootCmd.Config
	pollCfg := bootstrap.PollConfig(cfg)
	if c.maxAttempts > 0 {
		pollCfg.MaxAttempts = c.maxAttempts
	}
	if c.interval > 0 {
		pollCfg.Interval = c.interval
	}

	providers, fetcher := bootstrap.NewProviders(cfg)
	uc := usecase.NewSyncGenerateUseCase(providers, fetcher, pollCfg, c.rootCmd.Logger)

	stderr := c.rootCmd.Stderr
	fmt.Fprintf(stderr, "submitting to %s (up to %d checks, about %s)\n", c.provider, pollCfg.MaxAttempts, pollCfg.Budget())
	result, err := uc.Generate(ctx, c.provider, domain.GenerationRequest{
		Kind:     domain.GenerationKind(c.kind),
		Prompt:   c.prompt,
		ImageURL: c.imageURL,
	}, func(ev domain.ProgressEvent) {
		printProgress(stderr, ev)
	})
	if err != nil {
		c.rootCmd.Logger.Debug("generation_failed", "provider", c.provider, "error", err)
		return errors.New(domain.DescribeFailure(err))
	}

	if c.out == "" {
		_, err := fmt.Fprintln(c.rootCmd.Stdout, result.AssetURL)
		return err
	}

	f, err := os.Create(c.out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	n, err := uc.Download(ctx, result, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote %d bytes to %s\n", n, c.out)
	return nil
}
