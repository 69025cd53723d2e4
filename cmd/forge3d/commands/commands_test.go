package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

func parseCommand(t *testing.T, args ...string) (Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	app := kingpin.New("forge3d", "test")
	root := NewRootCommand(app)
	cmds := map[string]Command{}
	for _, c := range []Command{NewStatsCommand(root, app), NewGenerateCommand(root, app), NewRefineCommand(root, app)} {
		cmds[c.Name()] = c
	}

	name, err := app.Parse(args)
	if err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	var stdout, stderr bytes.Buffer
	root.Stdout = &stdout
	root.Stderr = &stderr
	root.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cmds[name], &stdout, &stderr
}

func writeOBJ(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestStatsCommandJSON(t *testing.T) {
	path := writeOBJ(t, "box.obj", "v 0 0 0\nv 10 20 30\nf 1 2 1\n")
	cmd, stdout, _ := parseCommand(t, "stats", "--format", "json", path)

	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var reports []domain.MeshReport
	if err := json.Unmarshal(stdout.Bytes(), &reports); err != nil {
		t.Fatalf("decode output: %v (%s)", err, stdout.String())
	}
	if len(reports) != 1 || reports[0].Filename != "box.obj" || reports[0].Statistics.BoundingVolume != 6000 {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestStatsCommandTable(t *testing.T) {
	path := writeOBJ(t, "box.obj", "v 0 0 0\nv 1 2 3\nvn 0 0 1\n")
	cmd, stdout, _ := parseCommand(t, "stats", path)

	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "VERTICES") || !strings.Contains(out, "1.00 x 2.00 x 3.00") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestStatsCommandEmptyMesh(t *testing.T) {
	path := writeOBJ(t, "empty.obj", "# nothing here\n")
	cmd, _, _ := parseCommand(t, "stats", path)

	if err := cmd.Run(context.Background()); err == nil {
		t.Fatalf("expected error for empty mesh")
	}
}

func TestStatsCommandAdviceNeedsKey(t *testing.T) {
	path := writeOBJ(t, "box.obj", "v 0 0 0\n")
	cmd, _, _ := parseCommand(t, "stats", "--advice", path)

	if err := cmd.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	fraction := 0.25
	printProgress(&buf, domain.ProgressEvent{Attempt: 2, MaxAttempts: 30, Fraction: &fraction})
	printProgress(&buf, domain.ProgressEvent{Attempt: 3, MaxAttempts: 30})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "[2/30] generating... 25%" || lines[1] != "[3/30] generating..." {
		t.Fatalf("unexpected progress output: %q", lines)
	}
}
