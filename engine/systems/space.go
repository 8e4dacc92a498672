package systems

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/containers"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

const (
	DefaultGridCells    = 101
	DefaultGridCellSize = 1.0
	// The grid sits just below y = 0 so vectors on the plane stay visible.
	GridHeight float32 = -0.05
)

type SpaceSystemConfig struct {
	Mesh     resources.Key
	Pipeline resources.Key
	// Cells per side. Zero means DefaultGridCells.
	Cells    int
	CellSize float32
}

// SpaceSystem draws the ground grid as one instanced draw of a cell mesh.
type SpaceSystem struct {
	scene    Scene
	config   SpaceSystemConfig
	object   resources.Key
	instance resources.Key
}

func NewSpaceSystem(scene Scene, config SpaceSystemConfig) (*SpaceSystem, error) {
	if scene == nil {
		return nil, fmt.Errorf("func NewSpaceSystem - scene is nil")
	}
	if config.Cells <= 0 {
		config.Cells = DefaultGridCells
	}
	if config.CellSize <= 0 {
		config.CellSize = DefaultGridCellSize
	}
	ss := &SpaceSystem{scene: scene, config: config}

	cells := GridCellPositions(config.Cells, config.CellSize)
	defer cells.Release()

	table := scene.Table()
	object, err := table.CreateObjectResource(math.NewMat4Translation(math.NewVec3Zero()).AppendBytes(nil))
	if err != nil {
		return nil, err
	}
	count := uint32(config.Cells * config.Cells)
	instance, err := table.CreateInstanceResource(count, metadata.InstancePositionSize, cells.Data())
	if err != nil {
		_ = table.ReleaseObjectResource(object)
		return nil, err
	}
	ss.object = object
	ss.instance = instance
	return ss, nil
}

// GridCellPositions lays out cells x cells positions centered on the origin, row by row along X.
func GridCellPositions(cells int, cellSize float32) *containers.Arena {
	arena := containers.NewArena("grid cells", 2*1024, containers.ArenaResizable, containers.DefaultGrowthFactor)
	start := -float32(cells) / 2
	buf := make([]byte, 0, metadata.InstancePositionSize)
	x := start
	for i := 0; i < cells; i++ {
		z := start
		for j := 0; j < cells; j++ {
			_, _ = arena.PushAndCopy(math.NewVec3(x, GridHeight, z).AppendBytes(buf[:0]))
			z += cellSize
		}
		x += cellSize
	}
	return arena
}

func (ss *SpaceSystem) Keys() (object, instance resources.Key) {
	return ss.object, ss.instance
}

func (ss *SpaceSystem) Update() error {
	return ss.scene.PushDraw(ss.object, ss.instance, ss.config.Mesh, ss.config.Pipeline)
}

func (ss *SpaceSystem) Shutdown() error {
	table := ss.scene.Table()
	var err error
	if !ss.instance.IsZero() {
		err = table.ReleaseInstanceResource(ss.instance)
		ss.instance = 0
	}
	if !ss.object.IsZero() {
		if e := table.ReleaseObjectResource(ss.object); err == nil {
			err = e
		}
		ss.object = 0
	}
	return err
}
