package meshstats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

// Summarize scans OBJ text in a single forward pass. It fails with
// domain.ErrEmptyMesh when no usable vertex is present.
//
// Vertex lines need at least three coordinates; shorter ones are ignored.
// A coordinate that does not parse as a finite number leaves the bounding
// box untouched on its axis while the vertex is still counted.
func Summarize(text string) (domain.MeshStatistics, error) {
	return SummarizeReader(strings.NewReader(text))
}

// SummarizeReader is Summarize over a stream. Lines of any length are
// accepted.
func SummarizeReader(r io.Reader) (domain.MeshStatistics, error) {
	acc := newAccumulator()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			acc.consume(line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.MeshStatistics{}, fmt.Errorf("read mesh: %w", err)
		}
	}
	return acc.finish()
}

type accumulator struct {
	stats  domain.MeshStatistics
	bounds domain.BoundingBox
}

func newAccumulator() *accumulator {
	return &accumulator{bounds: domain.NewBoundingBox()}
}

func (a *accumulator) consume(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "v":
		if len(fields) < 4 {
			return
		}
		a.stats.VertexCount++
		a.bounds.ExtendX(parseCoordinate(fields[1]))
		a.bounds.ExtendY(parseCoordinate(fields[2]))
		a.bounds.ExtendZ(parseCoordinate(fields[3]))
	case "vt":
		a.stats.HasTextureCoordinates = true
	case "vn":
		a.stats.HasNormals = true
	case "f":
		a.stats.FaceCount++
	case "usemtl", "g":
		a.stats.GroupCount++
	}
}

func (a *accumulator) finish() (domain.MeshStatistics, error) {
	if a.stats.VertexCount == 0 {
		return domain.MeshStatistics{}, domain.ErrEmptyMesh
	}
	if !a.bounds.Valid() {
		return domain.MeshStatistics{}, domain.WrapError(
			domain.ErrEmptyMesh,
			"summarize mesh",
			fmt.Errorf("%d vertices but no finite coordinate on at least one axis", a.stats.VertexCount),
		)
	}

	out := a.stats
	out.GroupCount = max(1, out.GroupCount)
	out.Bounds = a.bounds
	out.Dimensions = a.bounds.Dimensions()
	out.BoundingVolume = out.Dimensions.Volume()
	d := out.Dimensions
	if math.IsInf(d.Width, 0) || math.IsInf(d.Height, 0) || math.IsInf(d.Depth, 0) || math.IsInf(out.BoundingVolume, 0) {
		return domain.MeshStatistics{}, domain.WrapError(
			domain.ErrMeshOutOfRange,
			"summarize mesh",
			fmt.Errorf("dimensions %gx%gx%g overflow float64", d.Width, d.Height, d.Depth),
		)
	}
	return out, nil
}

// parseCoordinate returns NaN for anything that is not a plain number;
// BoundingBox.Extend* skips NaN.
func parseCoordinate(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
