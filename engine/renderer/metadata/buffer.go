package metadata

type RenderBufferType int

const (
	/** @brief Buffer is use is unknown. Default, but usually invalid. */
	RENDERBUFFER_TYPE_UNKNOWN RenderBufferType = iota
	/** @brief Buffer is used for vertex data. */
	RENDERBUFFER_TYPE_VERTEX
	/** @brief Buffer is used for index data. */
	RENDERBUFFER_TYPE_INDEX
	/** @brief Buffer is used for uniform data. */
	RENDERBUFFER_TYPE_UNIFORM
	/** @brief Buffer is used for per-instance structured data. */
	RENDERBUFFER_TYPE_STORAGE
)

func (t RenderBufferType) String() string {
	switch t {
	case RENDERBUFFER_TYPE_VERTEX:
		return "vertex"
	case RENDERBUFFER_TYPE_INDEX:
		return "index"
	case RENDERBUFFER_TYPE_UNIFORM:
		return "uniform"
	case RENDERBUFFER_TYPE_STORAGE:
		return "storage"
	}
	return "unknown"
}

// BufferHandle identifies a buffer owned by a graphics backend. Zero is never a valid handle.
type BufferHandle uint32

// ViewHandle identifies a shader-readable view over a storage buffer.
type ViewHandle uint32

// PipelineHandle identifies a compiled pipeline.
type PipelineHandle uint32

const InvalidHandle = 0

/**
 * @brief How a write replaces the contents of a buffer the GPU may still be reading.
 */
type WriteMode uint8

const (
	/** @brief The whole previous content may be thrown away. The GPU is never waited on. */
	WRITE_MODE_DISCARD WriteMode = iota
	/** @brief The caller promises the GPU is not reading the written range. */
	WRITE_MODE_NO_OVERWRITE
)

func (m WriteMode) String() string {
	if m == WRITE_MODE_NO_OVERWRITE {
		return "no-overwrite"
	}
	return "discard"
}

type RenderBufferDesc struct {
	Name string
	Type RenderBufferType
	/** @brief The total size of the buffer in bytes. */
	Size uint64
	/** @brief Bytes per element. Only meaningful for storage buffers. */
	Stride uint32
}

// GetAligned rounds operand up to a power-of-two granularity.
func GetAligned(operand, granularity uint64) uint64 {
	if granularity == 0 {
		return operand
	}
	return (operand + (granularity - 1)) &^ (granularity - 1)
}
