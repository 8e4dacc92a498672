package vulkan

/**
 * @brief Max number of uniform buffers (object resources plus the camera).
 * Sizes the descriptor pool.
 */
const VULKAN_MAX_UNIFORM_COUNT uint32 = 1024

/**
 * @brief Max number of storage views (instance resources).
 * Sizes the descriptor pool.
 */
const VULKAN_MAX_STORAGE_COUNT uint32 = 1024

/**
 * @brief Number of pending destroys held until the GPU is done with them.
 */
const VULKAN_DEFERRED_DESTROY_COUNT = 256

/**
 * @brief Descriptor set indices shared by every pipeline layout.
 */
const (
	DESCRIPTOR_SET_CAMERA uint32 = iota
	DESCRIPTOR_SET_OBJECT
	DESCRIPTOR_SET_INSTANCE
	DESCRIPTOR_SET_COUNT
)

/** @brief Vertex buffer binding carrying per-instance positions. */
const VERTEX_BINDING_INSTANCE uint32 = 1
