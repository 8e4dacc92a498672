package systems

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
	"github.com/stretchr/testify/require"
)

var _ Scene = (*renderer.Renderer)(nil)

// sandboxAssets serves the generated sandbox meshes and fake SPIR-V.
type sandboxAssets struct {
	meshes map[string]*GeometryConfig
	// shader name -> error returned by the next read
	broken map[string]error
}

func newSandboxAssets() *sandboxAssets {
	return &sandboxAssets{meshes: SandboxGeometry(), broken: make(map[string]error)}
}

func (a *sandboxAssets) ReadMesh(name string) ([]byte, []byte, error) {
	g, ok := a.meshes[name]
	if !ok {
		return nil, nil, fmt.Errorf("mesh `%s`: %w", name, core.ErrMeshTruncated)
	}
	v, i := g.Bytes()
	return v, i, nil
}

func (a *sandboxAssets) ReadShader(name string) ([]uint32, error) {
	if err, ok := a.broken[name]; ok {
		return nil, err
	}
	if !strings.HasSuffix(name, ".spv") {
		return nil, fmt.Errorf("shader `%s`: %w", name, core.ErrShaderNotFound)
	}
	return []uint32{0x07230203, uint32(len(name))}, nil
}

type sceneFixture struct {
	backend  *headless.Backend
	renderer *renderer.Renderer
	assets   *sandboxAssets
	mesh     resources.Key
	pipeline resources.Key
}

func newSceneFixture(t *testing.T) *sceneFixture {
	t.Helper()
	f := &sceneFixture{backend: headless.New(), assets: newSandboxAssets()}
	f.renderer = renderer.New(f.backend, f.assets, resources.DefaultLimits())
	require.NoError(t, f.renderer.Initialize("systems-test", 1280, 720))
	t.Cleanup(func() { _ = f.renderer.Shutdown() })

	var err error
	f.mesh, err = f.renderer.Table().LoadMesh("vector_gizmo.tka")
	require.NoError(t, err)
	f.pipeline, err = f.renderer.Table().CreatePipeline(gizmoPipeline())
	require.NoError(t, err)
	f.backend.ResetCalls()
	return f
}

func gizmoPipeline() metadata.PipelineDesc {
	return metadata.PipelineDesc{
		Name:           PipelineGizmos,
		VertexInput:    metadata.VERTEX_INPUT_POS_UV_NORM,
		CullMode:       metadata.FaceCullModeBack,
		VertexShader:   "gizmos.vert.spv",
		FragmentShader: "gizmos.frag.spv",
	}
}

func sandboxManagerConfig() *SystemManagerConfig {
	return &SystemManagerConfig{
		Assets: map[string]string{
			AssetVectorGizmo: "vector_gizmo.tka",
			AssetGridCell:    "grid_cell.tka",
			AssetCube:        "cube.tka",
		},
		Pipelines: map[string]metadata.PipelineDesc{
			PipelineGizmos: gizmoPipeline(),
			PipelineGrid: {
				Topology:       metadata.TopologyLineList,
				VertexInput:    metadata.VERTEX_INPUT_POS_UV_NORM_INSTANCE_POS,
				VertexShader:   "grid.vert.spv",
				FragmentShader: "grid.frag.spv",
			},
			PipelineCube: {
				VertexInput:    metadata.VERTEX_INPUT_POS_UV_NORM,
				CullMode:       metadata.FaceCullModeBack,
				VertexShader:   "cube.vert.spv",
				FragmentShader: "cube.frag.spv",
			},
		},
		Camera: DefaultCameraSystemConfig(),
	}
}
