package domain

import "math"

// BoundingBox is an axis-aligned box. A fresh box holds inverted infinite
// extrema so that the first Extend narrows it.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
	MinZ float64 `json:"min_z"`
	MaxZ float64 `json:"max_z"`
}

func NewBoundingBox() BoundingBox {
	return BoundingBox{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
		MinZ: math.Inf(1), MaxZ: math.Inf(-1),
	}
}

// ExtendX widens the box on X. Non-finite values are ignored.
func (b *BoundingBox) ExtendX(v float64) {
	b.MinX, b.MaxX = extendAxis(b.MinX, b.MaxX, v)
}

func (b *BoundingBox) ExtendY(v float64) {
	b.MinY, b.MaxY = extendAxis(b.MinY, b.MaxY, v)
}

func (b *BoundingBox) ExtendZ(v float64) {
	b.MinZ, b.MaxZ = extendAxis(b.MinZ, b.MaxZ, v)
}

// Valid reports whether every axis received at least one finite coordinate.
func (b BoundingBox) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY && b.MinZ <= b.MaxZ
}

func (b BoundingBox) Dimensions() Dimensions {
	return Dimensions{
		Width:  b.MaxX - b.MinX,
		Height: b.MaxY - b.MinY,
		Depth:  b.MaxZ - b.MinZ,
	}
}

func extendAxis(lo, hi, v float64) (float64, float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo, hi
	}
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

func (d Dimensions) Volume() float64 {
	return d.Width * d.Height * d.Depth
}

// MeshStatistics is a structural summary of an OBJ mesh. It is computed on
// demand and never stored.
type MeshStatistics struct {
	VertexCount           int         `json:"vertex_count"`
	FaceCount             int         `json:"face_count"`
	GroupCount            int         `json:"group_count"`
	HasTextureCoordinates bool        `json:"has_texture_coordinates"`
	HasNormals            bool        `json:"has_normals"`
	Bounds                BoundingBox `json:"bounding_box"`
	Dimensions            Dimensions  `json:"dimensions"`
	BoundingVolume        float64     `json:"bounding_volume"`
}

// MeshReport pairs statistics with the file they were computed from and,
// optionally, LLM printing advice.
type MeshReport struct {
	Filename   string         `json:"filename"`
	Statistics MeshStatistics `json:"statistics"`
	Advice     string         `json:"advice,omitempty"`
}
