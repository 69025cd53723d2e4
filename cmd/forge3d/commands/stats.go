package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kirillkom/forge3d/internal/bootstrap"
	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/core/usecase"
)

type StatsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	files  []string
	format string
	advice bool
}

// NewStatsCommand returns the stats command.
func NewStatsCommand(rootCmd *RootCommand, app *kingpin.Application) *StatsCommand {
	c := &StatsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("stats", "Summarise OBJ meshes.")
	c.Cmd.Arg("files", "OBJ files.").Required().ExistingFilesVar(&c.files)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)
	c.Cmd.Flag("advice", "Ask the language model for 3D printing advice.").BoolVar(&c.advice)

	return c
}

func (c StatsCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatsCommand) Run(ctx context.Context) error {
	generator := bootstrap.NewTextGenerator(c.rootCmd.Config)
	if c.advice && generator == nil {
		return fmt.Errorf("--advice requires OPENAI_API_KEY")
	}
	analyzer := usecase.NewAnalyzeMeshUseCase(generator, nil, nil)

	reports := make([]*domain.MeshReport, 0, len(c.files))
	for _, path := range c.files {
		report, err := c.analyze(ctx, analyzer, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		reports = append(reports, report)
	}

	if c.format == formatJSON {
		return printReportsJSON(c.rootCmd.Stdout, reports)
	}
	return printReportsTable(c.rootCmd.Stdout, reports)
}

func (c StatsCommand) analyze(ctx context.Context, analyzer *usecase.AnalyzeMeshUseCase, path string) (*domain.MeshReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if c.advice {
		return analyzer.Advise(ctx, path, f)
	}
	return analyzer.Stats(ctx, path, f)
}
