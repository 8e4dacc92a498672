package metadata

import (
	"fmt"
	"strings"
)

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

type PrimitiveTopology int

const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyLineList
)

/**
 * @brief The closed set of vertex layouts a pipeline can declare.
 */
type VertexInputType int

const (
	VERTEX_INPUT_NONE VertexInputType = iota
	/** @brief position vec3, uv vec2, normal vec3 */
	VERTEX_INPUT_POS_UV_NORM
	/** @brief position/uv/normal plus a per-instance position on binding 1 */
	VERTEX_INPUT_POS_UV_NORM_INSTANCE_POS
)

const (
	// DrawVertexSize is the size of one vertex in the shared vertex stream.
	DrawVertexSize = 32
	// DrawIndexSize is the size of one index in the shared index stream.
	DrawIndexSize = 4
	// InstancePositionSize is the per-instance stride of the instance position binding.
	InstancePositionSize = 12
)

var vertexInputNames = map[string]VertexInputType{
	"none":                     VERTEX_INPUT_NONE,
	"pos_uv_norm":              VERTEX_INPUT_POS_UV_NORM,
	"pos_uv_norm_instance_pos": VERTEX_INPUT_POS_UV_NORM_INSTANCE_POS,
}

func ParseVertexInputType(name string) (VertexInputType, error) {
	t, ok := vertexInputNames[strings.ToLower(name)]
	if !ok {
		return VERTEX_INPUT_NONE, fmt.Errorf("vertex input `%s` is not supported", name)
	}
	return t, nil
}

func (t VertexInputType) String() string {
	for name, v := range vertexInputNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("VertexInputType(%d)", int(t))
}

func (t VertexInputType) Valid() bool {
	return t >= VERTEX_INPUT_NONE && t <= VERTEX_INPUT_POS_UV_NORM_INSTANCE_POS
}

// Stride is the per-vertex size of binding 0.
func (t VertexInputType) Stride() uint32 {
	if t == VERTEX_INPUT_NONE {
		return 0
	}
	return DrawVertexSize
}

// HasInstanceBinding reports whether the layout reads per-instance data from binding 1.
func (t VertexInputType) HasInstanceBinding() bool {
	return t == VERTEX_INPUT_POS_UV_NORM_INSTANCE_POS
}

type AttributeFormat int

const (
	ATTRIBUTE_FORMAT_FLOAT2 AttributeFormat = iota
	ATTRIBUTE_FORMAT_FLOAT3
)

type VertexAttribute struct {
	Name        string
	Location    uint32
	Binding     uint32
	Format      AttributeFormat
	Offset      uint32
	PerInstance bool
}

// Attributes returns the attribute descriptions of the layout.
func (t VertexInputType) Attributes() []VertexAttribute {
	if t == VERTEX_INPUT_NONE {
		return nil
	}
	attributes := []VertexAttribute{
		{Name: "POSITION", Location: 0, Binding: 0, Format: ATTRIBUTE_FORMAT_FLOAT3, Offset: 0},
		{Name: "TEXCOORD", Location: 1, Binding: 0, Format: ATTRIBUTE_FORMAT_FLOAT2, Offset: 12},
		{Name: "NORMAL", Location: 2, Binding: 0, Format: ATTRIBUTE_FORMAT_FLOAT3, Offset: 20},
	}
	if t.HasInstanceBinding() {
		attributes = append(attributes, VertexAttribute{
			Name: "INSTANCE_POS", Location: 3, Binding: 1, Format: ATTRIBUTE_FORMAT_FLOAT3, Offset: 0, PerInstance: true,
		})
	}
	return attributes
}

/**
 * @brief Everything needed to build a pipeline, as declared by the pipeline table.
 */
type PipelineDesc struct {
	Name           string
	Topology       PrimitiveTopology
	CullMode       FaceCullMode
	VertexInput    VertexInputType
	VertexShader   string
	FragmentShader string
}

/**
 * @brief A pipeline description with its shader binaries resolved.
 */
type PipelineConfig struct {
	Desc         PipelineDesc
	VertexCode   []uint32
	FragmentCode []uint32
}
