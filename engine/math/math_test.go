package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-5

func TestMat4MulOrder(t *testing.T) {
	translate := NewMat4Translation(NewVec3(1, 2, 3))
	scale := NewMat4Scale(NewVec3(2, 2, 2))

	// scale first, then translate
	p := NewVec3(1, 1, 1).Transform(translate.Mul(scale))
	assert.True(t, p.Compare(NewVec3(3, 4, 5), tolerance), "got %v", p)

	// translate first, then scale
	p = NewVec3(1, 1, 1).Transform(scale.Mul(translate))
	assert.True(t, p.Compare(NewVec3(4, 6, 8), tolerance), "got %v", p)
}

func TestMat4IdentityMul(t *testing.T) {
	m := NewMat4EulerDegrees(NewVec3(10, 20, 30)).Mul(NewMat4Translation(NewVec3(4, 5, 6)))
	assert.True(t, m.Mul(NewMat4Identity()).Compare(m, tolerance))
	assert.True(t, NewMat4Identity().Mul(m).Compare(m, tolerance))
}

func TestMat4Basis(t *testing.T) {
	basis := NewMat4Basis(NewVec3(0, 0, -1), NewVec3(0, 1, 0), NewVec3(1, 0, 0))
	p := NewVec3(0, 0, 2).Transform(basis)
	assert.True(t, p.Compare(NewVec3(2, 0, 0), tolerance), "got %v", p)
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := NewVec3(3, 2, 5)
	view := NewMat4LookAt(eye, NewVec3(0, 0, 0), NewVec3Up())
	p := eye.Transform(view)
	assert.True(t, p.Compare(NewVec3Zero(), tolerance), "got %v", p)

	// the target lies straight ahead, down -z
	target := NewVec3(0, 0, 0).Transform(view)
	assert.InDelta(t, 0, target.X, tolerance)
	assert.InDelta(t, 0, target.Y, tolerance)
	assert.Less(t, target.Z, float32(0))
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := NewMat4Perspective(DegToRad(90), 1, 0.1, 100)
	depth := func(z float32) float32 {
		// z is a view-space distance along -z
		clipZ := proj.Data[10]*-z + proj.Data[14]
		clipW := proj.Data[11] * -z
		return clipZ / clipW
	}
	assert.InDelta(t, 0, depth(0.1), tolerance)
	assert.InDelta(t, 1, depth(100), tolerance)
}

func TestProjections(t *testing.T) {
	v := NewVec3(3, 4, 5)

	onto := v.ProjectOnVector(NewVec3(2, 0, 0))
	assert.True(t, onto.Compare(NewVec3(3, 0, 0), tolerance))
	assert.Equal(t, NewVec3Zero(), v.ProjectOnVector(NewVec3Zero()))

	flat := v.ProjectOnPlane(NewVec3Up())
	assert.True(t, flat.Compare(NewVec3(3, 0, 5), tolerance))
}

func TestCrossAndNormalize(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	assert.Equal(t, NewVec3(0, 0, 1), x.Cross(y))
	assert.InDelta(t, 1, NewVec3(3, 4, 12).Normalize().Length(), tolerance)
	assert.Equal(t, NewVec3Zero(), NewVec3Zero().Normalize())
}

func TestEncodingRoundTrip(t *testing.T) {
	m := NewMat4EulerDegrees(NewVec3(15, 30, 45)).Mul(NewMat4Translation(NewVec3(1, 2, 3)))
	b := m.AppendBytes(nil)
	assert.Len(t, b, Mat4Size)
	assert.Equal(t, m, DecodeMat4(b))

	v := Vertex3D{Position: NewVec3(1, 2, 3), Texcoord: NewVec2(0.5, 0.25), Normal: NewVec3(0, 1, 0)}
	vb := v.AppendBytes(nil)
	assert.Len(t, vb, Vertex3DSize)
	assert.Equal(t, v, DecodeVertex3D(vb))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1), Clamp(float32(3), -1, 1))
	assert.Equal(t, 15, Clamp(2, 15, 130))
	assert.Equal(t, 7, Max(3, 7))
}
