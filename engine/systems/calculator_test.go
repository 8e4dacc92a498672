package systems

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(start, end math.Vec3) Vector {
	return Vector{Start: start, End: end}
}

func TestCalculate(t *testing.T) {
	origin := math.NewVec3Zero()
	left := vec(math.NewVec3(1, 0, 0), math.NewVec3(3, 0, 0))
	right := vec(origin, math.NewVec3(0, 2, 0))

	tests := []struct {
		name      string
		op        Operation
		scalar    float32
		plane     Plane
		wantStart math.Vec3
		wantEnd   math.Vec3
	}{
		{"add", OPERATION_ADD, 0, PLANE_XY, math.NewVec3(1, 0, 0), math.NewVec3(3, 2, 0)},
		{"subtract", OPERATION_SUBTRACT, 0, PLANE_XY, math.NewVec3(0, 2, 0), math.NewVec3(2, 0, 0)},
		{"cross", OPERATION_CROSS, 0, PLANE_XY, math.NewVec3(1, 0, 0), math.NewVec3(1, 0, 4)},
		{"scale", OPERATION_SCALE, -1.5, PLANE_XY, math.NewVec3(1, 0, 0), math.NewVec3(-2, 0, 0)},
		{"project on vector", OPERATION_PROJECT_ON_VECTOR, 0, PLANE_XY, math.NewVec3(1, 0, 0), math.NewVec3(1, 0, 0)},
		{"project on xz", OPERATION_PROJECT_ON_PLANE, 0, PLANE_XZ, math.NewVec3(1, 0, 0), math.NewVec3(3, 0, 0)},
		{"project on yz", OPERATION_PROJECT_ON_PLANE, 0, PLANE_YZ, math.NewVec3(1, 0, 0), math.NewVec3(1, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := Calculate(tt.op, left, right, tt.scalar, tt.plane)
			require.NoError(t, err)
			assert.True(t, start.Compare(tt.wantStart, 1e-5), "start %v", start)
			assert.True(t, end.Compare(tt.wantEnd, 1e-5), "end %v", end)
		})
	}
}

func TestCalculateProjectOnVector(t *testing.T) {
	left := vec(math.NewVec3Zero(), math.NewVec3(2, 0, 0))
	right := vec(math.NewVec3Zero(), math.NewVec3(3, 4, 0))

	_, end, err := Calculate(OPERATION_PROJECT_ON_VECTOR, left, right, 0, PLANE_XY)
	require.NoError(t, err)
	assert.True(t, end.Compare(math.NewVec3(3, 0, 0), 1e-5), "end %v", end)
}

func TestCalculateUnknownOperation(t *testing.T) {
	_, _, err := Calculate(Operation(42), Vector{}, Vector{}, 0, PLANE_XY)
	assert.Error(t, err)
	assert.Equal(t, "Operation(42)", Operation(42).String())
}

func TestCalculatorApplyAddsResult(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)
	calc := NewCalculator(vs)

	a, _ := vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)
	b, _ := vs.Add(math.NewVec3Zero(), math.NewVec3(0, 1, 0), red)

	id, err := calc.Apply(CalculatorInput{Op: OPERATION_CROSS, Left: a, Right: b, Color: red})
	require.NoError(t, err)
	v, ok := vs.Get(id)
	require.True(t, ok)
	assert.True(t, v.End.Compare(math.NewVec3(0, 0, 1), 1e-6))
	assert.Equal(t, 3, vs.Len())

	// Unary operations never look at Right.
	_, err = calc.Apply(CalculatorInput{Op: OPERATION_SCALE, Left: a, Right: uuid.New(), Scalar: 2})
	assert.NoError(t, err)
}

func TestCalculatorApplyUnknownOperand(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)
	calc := NewCalculator(vs)
	a, _ := vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)

	_, err := calc.Apply(CalculatorInput{Op: OPERATION_ADD, Left: uuid.New(), Right: a})
	assert.ErrorIs(t, err, core.ErrInvalidKey)
	_, err = calc.Apply(CalculatorInput{Op: OPERATION_ADD, Left: a, Right: uuid.New()})
	assert.ErrorIs(t, err, core.ErrInvalidKey)
	assert.Equal(t, 1, vs.Len())
}
