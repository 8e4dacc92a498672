package systems

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/spaghettifunk/vecsandbox/engine/assets/loaders"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
)

/**
 * @brief Procedurally generated mesh data, written to disk as a .tka asset.
 */
type GeometryConfig struct {
	Name     string
	Vertices []math.Vertex3D
	Indices  []uint32
}

// Bytes returns the vertex and index sections in their on-disk layout.
func (g *GeometryConfig) Bytes() ([]byte, []byte) {
	vertices := make([]byte, 0, len(g.Vertices)*math.Vertex3DSize)
	for _, v := range g.Vertices {
		vertices = v.AppendBytes(vertices)
	}
	indices := make([]byte, 0, len(g.Indices)*4)
	for _, i := range g.Indices {
		indices = binary.LittleEndian.AppendUint32(indices, i)
	}
	return vertices, indices
}

// Encode writes the geometry as a .tka mesh.
func (g *GeometryConfig) Encode(w io.Writer) error {
	vertices, indices := g.Bytes()
	return loaders.EncodeMesh(w, vertices, indices)
}

func (g *GeometryConfig) EncodeBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

/**
 * @brief Generates a box centered on the origin. Each face has its own four
 * vertices so normals stay flat.
 */
func GenerateCubeConfig(width, height, depth float32, name string) *GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	half := math.NewVec3(width*0.5, height*0.5, depth*0.5)
	config := &GeometryConfig{Name: name}
	config.appendBox(half.MulScalar(-1), half)
	return config
}

// GenerateGridCellConfig generates the outline of a unit cell on the XZ
// plane, drawn as a line list from its minimum corner.
func GenerateGridCellConfig(size float32, name string) *GeometryConfig {
	if size == 0 {
		core.LogWarn("Size must be nonzero. Defaulting to one.")
		size = 1.0
	}
	up := math.NewVec3Up()
	corners := []math.Vec3{
		math.NewVec3(0, 0, 0),
		math.NewVec3(size, 0, 0),
		math.NewVec3(size, 0, size),
		math.NewVec3(0, 0, size),
	}
	config := &GeometryConfig{Name: name}
	for i, c := range corners {
		config.Vertices = append(config.Vertices, math.Vertex3D{
			Position: c,
			Texcoord: math.NewVec2(c.X/size, c.Z/size),
			Normal:   up,
		})
		config.Indices = append(config.Indices, uint32(i), uint32((i+1)%len(corners)))
	}
	return config
}

// GenerateArrowConfig generates a unit arrow from the origin to (0, 0, 1):
// a square shaft topped by a pyramid head.
func GenerateArrowConfig(shaftRadius, headRadius, headLength float32, name string) *GeometryConfig {
	if headLength <= 0 || headLength >= 1 {
		core.LogWarn("headLength must be in (0, 1). Defaulting to 0.15.")
		headLength = 0.15
	}
	shaftEnd := 1 - headLength
	config := &GeometryConfig{Name: name}
	config.appendBox(
		math.NewVec3(-shaftRadius, -shaftRadius, 0),
		math.NewVec3(shaftRadius, shaftRadius, shaftEnd),
	)

	tip := math.NewVec3(0, 0, 1)
	base := []math.Vec3{
		math.NewVec3(-headRadius, -headRadius, shaftEnd),
		math.NewVec3(headRadius, -headRadius, shaftEnd),
		math.NewVec3(headRadius, headRadius, shaftEnd),
		math.NewVec3(-headRadius, headRadius, shaftEnd),
	}
	for i := range base {
		a, b := base[i], base[(i+1)%len(base)]
		normal := b.Sub(a).Cross(tip.Sub(a)).Normalize()
		config.appendTriangle(a, b, tip, normal)
	}
	back := math.NewVec3(0, 0, -1)
	config.appendTriangle(base[0], base[2], base[1], back)
	config.appendTriangle(base[0], base[3], base[2], back)
	return config
}

func (g *GeometryConfig) appendTriangle(a, b, c, normal math.Vec3) {
	first := uint32(len(g.Vertices))
	for _, p := range []math.Vec3{a, b, c} {
		g.Vertices = append(g.Vertices, math.Vertex3D{Position: p, Normal: normal})
	}
	g.Indices = append(g.Indices, first, first+1, first+2)
}

type boxFace struct {
	normal  math.Vec3
	corners [4][3]int // per corner, 0 picks min and 1 picks max on each axis
}

// Corners go min-min, max-max, min-max, max-min in face space.
var boxFaces = [6]boxFace{
	{math.NewVec3(0, 0, 1), [4][3]int{{0, 0, 1}, {1, 1, 1}, {0, 1, 1}, {1, 0, 1}}},  // front
	{math.NewVec3(0, 0, -1), [4][3]int{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 0}}}, // back
	{math.NewVec3(-1, 0, 0), [4][3]int{{0, 0, 0}, {0, 1, 1}, {0, 1, 0}, {0, 0, 1}}}, // left
	{math.NewVec3(1, 0, 0), [4][3]int{{1, 0, 1}, {1, 1, 0}, {1, 1, 1}, {1, 0, 0}}},  // right
	{math.NewVec3(0, -1, 0), [4][3]int{{1, 0, 1}, {0, 0, 0}, {1, 0, 0}, {0, 0, 1}}}, // bottom
	{math.NewVec3(0, 1, 0), [4][3]int{{0, 1, 1}, {1, 1, 0}, {0, 1, 0}, {1, 1, 1}}},  // top
}

var boxTexcoords = [4]math.Vec2{
	{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 0},
}

func (g *GeometryConfig) appendBox(min, max math.Vec3) {
	pick := func(axis, which int) float32 {
		bounds := [2]math.Vec3{min, max}
		switch axis {
		case 0:
			return bounds[which].X
		case 1:
			return bounds[which].Y
		}
		return bounds[which].Z
	}
	for _, face := range boxFaces {
		first := uint32(len(g.Vertices))
		for i, c := range face.corners {
			g.Vertices = append(g.Vertices, math.Vertex3D{
				Position: math.NewVec3(pick(0, c[0]), pick(1, c[1]), pick(2, c[2])),
				Texcoord: boxTexcoords[i],
				Normal:   face.normal,
			})
		}
		g.Indices = append(g.Indices, first+0, first+1, first+2, first+0, first+3, first+1)
	}
}

// SandboxGeometry returns the meshes the sandbox ships, keyed by asset file name.
func SandboxGeometry() map[string]*GeometryConfig {
	return map[string]*GeometryConfig{
		"vector_gizmo.tka": GenerateArrowConfig(0.01, 0.04, 0.15, "vector_gizmo"),
		"grid_cell.tka":    GenerateGridCellConfig(DefaultGridCellSize, "grid_cell"),
		"cube.tka":         GenerateCubeConfig(1, 1, 1, "cube"),
	}
}
