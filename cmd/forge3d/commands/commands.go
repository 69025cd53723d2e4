package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kirillkom/forge3d/internal/config"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// Command is a CLI command registered on the kingpin application.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand holds global flags and the instances every command shares.
type RootCommand struct {
	Debug bool

	Config config.Config
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}
	app.Flag("debug", "Enable debug logging.").BoolVar(&c.Debug)
	return c
}
