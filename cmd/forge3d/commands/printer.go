package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

func printReportsJSON(w io.Writer, reports []*domain.MeshReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func printReportsTable(w io.Writer, reports []*domain.MeshReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tVERTICES\tFACES\tGROUPS\tUV\tNORMALS\tSIZE (mm)\tVOLUME (mm3)")
	for _, r := range reports {
		s := r.Statistics
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%.2f x %.2f x %.2f\t%.2f\n",
			r.Filename,
			s.VertexCount,
			s.FaceCount,
			s.GroupCount,
			yesNo(s.HasTextureCoordinates),
			yesNo(s.HasNormals),
			s.Dimensions.Width, s.Dimensions.Height, s.Dimensions.Depth,
			s.BoundingVolume,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range reports {
		if r.Advice == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n== %s ==\n%s\n", r.Filename, r.Advice); err != nil {
			return err
		}
	}
	return nil
}

func printProgress(w io.Writer, ev domain.ProgressEvent) {
	switch {
	case ev.Err != nil:
		fmt.Fprintf(w, "[%d/%d] status check failed: %v\n", ev.Attempt, ev.MaxAttempts, ev.Err)
	case ev.Fraction != nil:
		fmt.Fprintf(w, "[%d/%d] generating... %.0f%%\n", ev.Attempt, ev.MaxAttempts, *ev.Fraction*100)
	default:
		fmt.Fprintf(w, "[%d/%d] generating...\n", ev.Attempt, ev.MaxAttempts)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
