package assets

import "github.com/spaghettifunk/vecsandbox/engine/assets/loaders"

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeMesh
	AssetTypeShader
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeMesh:
		return "mesh"
	case AssetTypeShader:
		return "shader"
	}
	return "none"
}

const (
	meshDir   = "meshes"
	shaderDir = "shaders"
)

type MeshLoader interface {
	Load(path string) (*loaders.MeshData, error)
}

type ShaderLoader interface {
	Load(path string) ([]uint32, error)
}
