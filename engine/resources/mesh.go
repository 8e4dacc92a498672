package resources

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/assets/loaders"
	"github.com/spaghettifunk/vecsandbox/engine/containers"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

// Mesh holds the vertex and index bytes of a loaded asset. It is immutable after load.
type Mesh struct {
	Name     string
	Vertices *containers.Arena
	Indices  *containers.Arena
}

func (m Mesh) VertexCount() int {
	return m.Vertices.ElementCount(metadata.DrawVertexSize)
}

func (m Mesh) IndexCount() int {
	return m.Indices.ElementCount(metadata.DrawIndexSize)
}

// LoadMesh reads a mesh asset and copies both sections into arenas owned by the table.
func (t *Table) LoadMesh(name string) (Key, error) {
	if err := t.meshes.reserve(); err != nil {
		return 0, err
	}
	vertices, indices, err := t.assets.ReadMesh(name)
	if err != nil {
		return 0, fmt.Errorf("failed to load mesh `%s`: %w", name, err)
	}
	if err := loaders.CheckMeshSections(len(vertices), len(indices)); err != nil {
		return 0, fmt.Errorf("failed to load mesh `%s`: %w", name, err)
	}
	mesh := Mesh{
		Name:     name,
		Vertices: containers.NewArena(name+".vertices", len(vertices), containers.ArenaFixed, 0),
		Indices:  containers.NewArena(name+".indices", len(indices), containers.ArenaFixed, 0),
	}
	if _, err := mesh.Vertices.PushAndCopy(vertices); err != nil {
		return 0, err
	}
	if _, err := mesh.Indices.PushAndCopy(indices); err != nil {
		return 0, err
	}
	return t.meshes.insert(mesh)
}

func (t *Table) Mesh(key Key) (Mesh, error) {
	m, err := t.meshes.get(key)
	if err != nil {
		return Mesh{}, err
	}
	return *m, nil
}

func (t *Table) ReleaseMesh(key Key) error {
	m, err := t.meshes.remove(key)
	if err != nil {
		return err
	}
	m.Vertices.Release()
	m.Indices.Release()
	return nil
}
