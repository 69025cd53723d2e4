package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kirillkom/forge3d/cmd/forge3d/commands"
	"github.com/kirillkom/forge3d/internal/config"
	"github.com/kirillkom/forge3d/internal/observability/logging"
)

// Version is the application version (set via ldflags).
var Version = "dev"

// Run runs the main application.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	app := kingpin.New("forge3d", "Generate 3D models and inspect OBJ meshes.")
	app.Version(Version)
	rootCmd := commands.NewRootCommand(app)

	statsCmd := commands.NewStatsCommand(rootCmd, app)
	generateCmd := commands.NewGenerateCommand(rootCmd, app)
	refineCmd := commands.NewRefineCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		statsCmd.Name():    statsCmd,
		generateCmd.Name(): generateCmd,
		refineCmd.Name():   refineCmd,
	}

	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rootCmd.Config = cfg
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	level := "warn"
	if rootCmd.Debug {
		level = "debug"
	}
	// Logs go to stderr so stdout can be piped.
	rootCmd.Logger = logging.NewJSONLoggerTo(stderr, "forge3d-cli", level)
	slog.SetDefault(rootCmd.Logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmds[cmdName].Run(ctx); err != nil {
		return fmt.Errorf("%q command failed: %w", cmdName, err)
	}
	return nil
}

func main() {
	if err := Run(context.Background(), os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
