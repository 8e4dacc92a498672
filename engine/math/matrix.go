package math

import (
	"encoding/binary"
	m "math"

	"github.com/chewxy/math32"
)

// Mat4Size is the encoded size of a Mat4.
const Mat4Size = 64

func (mt Mat4) at(row, col int) float32 {
	return mt.Data[col*4+row]
}

/**
 * @brief Creates and returns an identity matrix.
 */
func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

/**
 * @brief Returns mt * other. Applied to a point, other acts first.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += mt.at(row, k) * other.at(k, col)
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}

/**
 * @brief Creates a right-handed perspective projection for Vulkan clip
 * space: depth maps to [0, 1] and y points down.
 *
 * @param fovRadians The vertical field of view in radians.
 * @param aspectRatio Width divided by height.
 */
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	f := 1.0 / math32.Tan(fovRadians*0.5)
	out := Mat4{}
	out.Data[0] = f / aspectRatio
	out.Data[5] = -f
	out.Data[10] = farClip / (nearClip - farClip)
	out.Data[11] = -1.0
	out.Data[14] = (nearClip * farClip) / (nearClip - farClip)
	return out
}

/**
 * @brief Creates a view matrix looking at target from position.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	f := target.Sub(position).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	out := NewMat4Identity()
	out.Data[0] = s.X
	out.Data[4] = s.Y
	out.Data[8] = s.Z
	out.Data[1] = u.X
	out.Data[5] = u.Y
	out.Data[9] = u.Z
	out.Data[2] = -f.X
	out.Data[6] = -f.Y
	out.Data[10] = -f.Z
	out.Data[12] = -s.Dot(position)
	out.Data[13] = -u.Dot(position)
	out.Data[14] = f.Dot(position)
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

// NewMat4Basis maps the local x, y and z axes onto the given vectors.
func NewMat4Basis(x, y, z Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0], out.Data[1], out.Data[2] = x.X, x.Y, x.Z
	out.Data[4], out.Data[5], out.Data[6] = y.X, y.Y, y.Z
	out.Data[8], out.Data[9], out.Data[10] = z.X, z.Y, z.Z
	return out
}

func NewMat4EulerX(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c, s := math32.Cos(angleRadians), math32.Sin(angleRadians)
	out.Data[5] = c
	out.Data[6] = s
	out.Data[9] = -s
	out.Data[10] = c
	return out
}

func NewMat4EulerY(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c, s := math32.Cos(angleRadians), math32.Sin(angleRadians)
	out.Data[0] = c
	out.Data[2] = -s
	out.Data[8] = s
	out.Data[10] = c
	return out
}

func NewMat4EulerZ(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c, s := math32.Cos(angleRadians), math32.Sin(angleRadians)
	out.Data[0] = c
	out.Data[1] = s
	out.Data[4] = -s
	out.Data[5] = c
	return out
}

/**
 * @brief Creates a rotation from pitch, yaw and roll given in degrees.
 * Roll is applied last: Rz * Ry * Rx.
 */
func NewMat4EulerDegrees(angles Vec3) Mat4 {
	rx := NewMat4EulerX(DegToRad(angles.X))
	ry := NewMat4EulerY(DegToRad(angles.Y))
	rz := NewMat4EulerZ(DegToRad(angles.Z))
	return rz.Mul(ry).Mul(rx)
}

func (mt Mat4) Translation() Vec3 {
	return Vec3{mt.Data[12], mt.Data[13], mt.Data[14]}
}

func (mt Mat4) Compare(other Mat4, tolerance float32) bool {
	for i := range mt.Data {
		if !NearlyEqual(mt.Data[i], other.Data[i], tolerance) {
			return false
		}
	}
	return true
}

// AppendBytes appends the matrix as 16 little-endian float32 values.
func (mt Mat4) AppendBytes(b []byte) []byte {
	for _, f := range mt.Data {
		b = binary.LittleEndian.AppendUint32(b, m.Float32bits(f))
	}
	return b
}

func (v Vec3) AppendBytes(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, m.Float32bits(v.X))
	b = binary.LittleEndian.AppendUint32(b, m.Float32bits(v.Y))
	return binary.LittleEndian.AppendUint32(b, m.Float32bits(v.Z))
}

func (v Vec4) AppendBytes(b []byte) []byte {
	b = v.ToVec3().AppendBytes(b)
	return binary.LittleEndian.AppendUint32(b, m.Float32bits(v.W))
}

func (v Vec2) AppendBytes(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, m.Float32bits(v.X))
	return binary.LittleEndian.AppendUint32(b, m.Float32bits(v.Y))
}

func (v Vertex3D) AppendBytes(b []byte) []byte {
	b = v.Position.AppendBytes(b)
	b = v.Texcoord.AppendBytes(b)
	return v.Normal.AppendBytes(b)
}

// DecodeMat4 reads a matrix written by AppendBytes.
func DecodeMat4(b []byte) Mat4 {
	out := Mat4{}
	for i := range out.Data {
		out.Data[i] = m.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// DecodeVertex3D reads a vertex written by AppendBytes.
func DecodeVertex3D(b []byte) Vertex3D {
	f := func(i int) float32 {
		return m.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return Vertex3D{
		Position: Vec3{f(0), f(1), f(2)},
		Texcoord: Vec2{f(3), f(4)},
		Normal:   Vec3{f(5), f(6), f(7)},
	}
}
