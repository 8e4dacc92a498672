package engine

import (
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApplicationConfigKeepsDefaults(t *testing.T) {
	config, err := ParseApplicationConfig([]byte(`
name = "test"
backend = "headless"
log_level = "debug"

[assets]
cube = "big_cube.tka"

[pipelines.grid]
vertex_input = "pos_uv_norm_instance_pos"
vertex_shader = "grid2.vert.spv"
fragment_shader = "grid2.frag.spv"
topology = "lines"

[camera]
fov = 60.0

[[vectors]]
start = [0.0, 0.0, 0.0]
end = [1.0, 2.0, 3.0]
color = [1.0, 0.0, 0.0, 1.0]
`))
	require.NoError(t, err)

	assert.Equal(t, "test", config.Name)
	assert.Equal(t, core.LogLevelDebug, config.LogLevel)
	assert.Equal(t, uint32(1280), config.StartWidth)
	assert.Equal(t, uint32(120), config.RefreshRate)
	assert.Equal(t, float32(1), config.Scene.CubeMass)

	typ, err := config.RendererType()
	require.NoError(t, err)
	assert.Equal(t, renderer.Headless, typ)

	assert.Equal(t, "big_cube.tka", config.Assets[systems.AssetCube])
	assert.Equal(t, "grid_cell.tka", config.Assets[systems.AssetGridCell])
	assert.Equal(t, "grid2.vert.spv", config.Pipelines[systems.PipelineGrid].VertexShader)
	assert.Equal(t, "gizmos.vert.spv", config.Pipelines[systems.PipelineGizmos].VertexShader)

	assert.Equal(t, float32(60), config.Camera.FOV)
	assert.Equal(t, systems.DefaultCameraSystemConfig(), config.Camera.Controls)

	require.Len(t, config.Vectors, 1)
	_, end, color := config.Vectors[0].Points()
	assert.Equal(t, float32(3), end.Z)
	assert.Equal(t, float32(1), color.W)
}

func TestParseApplicationConfigRejects(t *testing.T) {
	tests := map[string]string{
		"unknown backend":      `backend = "metal"`,
		"unknown field":        `colour = "red"`,
		"unknown vertex input": "[pipelines.cube]\nvertex_input = \"pos_color\"",
		"unknown topology":     "[pipelines.grid]\nvertex_input = \"pos_uv_norm\"\ntopology = \"strips\"",
		"zero window":          `start_width = 0`,
		"zero cube mass":       "[scene]\ncube_mass = 0.0",
		"malformed":            `name = `,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseApplicationConfig([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestSystemManagerConfigResolvesPipelines(t *testing.T) {
	config := DefaultApplicationConfig()
	smConfig, err := config.SystemManagerConfig()
	require.NoError(t, err)

	grid := smConfig.Pipelines[systems.PipelineGrid]
	assert.Equal(t, systems.PipelineGrid, grid.Name)
	assert.Equal(t, metadata.TopologyLineList, grid.Topology)
	assert.Equal(t, metadata.VERTEX_INPUT_POS_UV_NORM_INSTANCE_POS, grid.VertexInput)

	cube := smConfig.Pipelines[systems.PipelineCube]
	assert.Equal(t, metadata.FaceCullModeBack, cube.CullMode)
	assert.Equal(t, metadata.TopologyTriangleList, cube.Topology)
	assert.Equal(t, systems.DefaultMaxVectors, smConfig.MaxVectors)
}
