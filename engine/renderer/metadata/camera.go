package metadata

import "github.com/spaghettifunk/vecsandbox/engine/math"

// SharedCameraDataSize is the size of the camera uniform block.
const SharedCameraDataSize = 2 * math.Mat4Size

/**
 * @brief The view and projection shared by every draw of a frame.
 */
type SharedCameraData struct {
	View       math.Mat4
	Projection math.Mat4
}

func (c SharedCameraData) Bytes() []byte {
	b := make([]byte, 0, SharedCameraDataSize)
	b = c.View.AppendBytes(b)
	return c.Projection.AppendBytes(b)
}
