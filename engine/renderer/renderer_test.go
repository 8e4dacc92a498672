package renderer

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
	"github.com/stretchr/testify/require"
)

var _ Backend = (*headless.Backend)(nil)

type testAssets struct{}

func meshBytes(vertices, indices int, seed byte) ([]byte, []byte) {
	v := make([]byte, vertices*metadata.DrawVertexSize)
	for i := range v {
		v[i] = seed + byte(i)
	}
	idx := make([]byte, indices*metadata.DrawIndexSize)
	for i := 0; i < indices; i++ {
		idx[i*4] = byte(i % vertices)
	}
	return v, idx
}

func (testAssets) ReadMesh(name string) ([]byte, []byte, error) {
	switch name {
	case "triangle":
		v, i := meshBytes(3, 3, 1)
		return v, i, nil
	case "quad":
		v, i := meshBytes(4, 6, 100)
		return v, i, nil
	}
	return nil, nil, fmt.Errorf("mesh `%s`: %w", name, core.ErrMeshTruncated)
}

func (testAssets) ReadShader(name string) ([]uint32, error) {
	return []uint32{0x07230203, uint32(len(name))}, nil
}

type fixture struct {
	backend  *headless.Backend
	renderer *Renderer
	triangle resources.Key
	quad     resources.Key
	lines    resources.Key
	solid    resources.Key
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := headless.New()
	r := New(backend, testAssets{}, resources.DefaultLimits())
	require.NoError(t, r.Initialize("renderer-test", 800, 600))

	f := &fixture{backend: backend, renderer: r}
	var err error
	f.triangle, err = r.Table().LoadMesh("triangle")
	require.NoError(t, err)
	f.quad, err = r.Table().LoadMesh("quad")
	require.NoError(t, err)
	f.lines, err = r.Table().CreatePipeline(metadata.PipelineDesc{
		Name:           "lines",
		Topology:       metadata.TopologyLineList,
		VertexInput:    metadata.VERTEX_INPUT_POS_UV_NORM,
		VertexShader:   "lines.vert.spv",
		FragmentShader: "lines.frag.spv",
	})
	require.NoError(t, err)
	f.solid, err = r.Table().CreatePipeline(metadata.PipelineDesc{
		Name:           "solid",
		VertexInput:    metadata.VERTEX_INPUT_POS_UV_NORM,
		VertexShader:   "solid.vert.spv",
		FragmentShader: "solid.frag.spv",
	})
	require.NoError(t, err)
	backend.ResetCalls()
	return f
}

func (f *fixture) handle(t *testing.T, key resources.Key) metadata.PipelineHandle {
	t.Helper()
	p, err := f.renderer.Table().Pipeline(key)
	require.NoError(t, err)
	return p.Handle
}
