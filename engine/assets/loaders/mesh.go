package loaders

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

// MeshHeaderSize is the size of the .tka header: allocation size, then vertex section size.
const MeshHeaderSize = 8

type meshHeader struct {
	AllocationSize uint32
	VertexDataSize uint32
}

// MeshData is the content of a .tka file. Indices are 32-bit little-endian values.
type MeshData struct {
	Vertices []byte
	Indices  []byte
}

type MeshLoader struct{}

func (ml *MeshLoader) Load(path string) (*MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh, err := DecodeMesh(f)
	if err != nil {
		return nil, fmt.Errorf("mesh `%s`: %w", path, err)
	}
	return mesh, nil
}

// DecodeMesh reads one mesh. A stream shorter than its header declares fails
// with core.ErrMeshTruncated, and sections that do not hold whole vertices or
// indices fail with core.ErrMeshMisaligned.
func DecodeMesh(r io.Reader) (*MeshData, error) {
	var h meshHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, truncated(err, "header")
	}
	if h.VertexDataSize > h.AllocationSize {
		return nil, fmt.Errorf("vertex section of %d bytes in a %d byte allocation: %w", h.VertexDataSize, h.AllocationSize, core.ErrMeshTruncated)
	}
	if err := CheckMeshSections(int(h.VertexDataSize), int(h.AllocationSize-h.VertexDataSize)); err != nil {
		return nil, err
	}

	mesh := &MeshData{
		Vertices: make([]byte, h.VertexDataSize),
		Indices:  make([]byte, h.AllocationSize-h.VertexDataSize),
	}
	if _, err := io.ReadFull(r, mesh.Vertices); err != nil {
		return nil, truncated(err, "vertex section")
	}
	if _, err := io.ReadFull(r, mesh.Indices); err != nil {
		return nil, truncated(err, "index section")
	}
	return mesh, nil
}

// CheckMeshSections verifies that the section sizes hold whole draw vertices
// and 32-bit indices.
func CheckMeshSections(vertexBytes, indexBytes int) error {
	if vertexBytes%metadata.DrawVertexSize != 0 {
		return fmt.Errorf("vertex section of %d bytes with %d byte vertices: %w", vertexBytes, metadata.DrawVertexSize, core.ErrMeshMisaligned)
	}
	if indexBytes%metadata.DrawIndexSize != 0 {
		return fmt.Errorf("index section of %d bytes with %d byte indices: %w", indexBytes, metadata.DrawIndexSize, core.ErrMeshMisaligned)
	}
	return nil
}

// EncodeMesh writes vertices and indices as a .tka stream.
func EncodeMesh(w io.Writer, vertices, indices []byte) error {
	h := meshHeader{
		AllocationSize: uint32(len(vertices) + len(indices)),
		VertexDataSize: uint32(len(vertices)),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	if _, err := w.Write(vertices); err != nil {
		return err
	}
	_, err := w.Write(indices)
	return err
}

func truncated(err error, section string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", section, core.ErrMeshTruncated)
	}
	return err
}
