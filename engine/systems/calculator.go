package systems

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
)

type Operation uint8

const (
	OPERATION_ADD Operation = iota
	OPERATION_SUBTRACT
	OPERATION_CROSS
	OPERATION_SCALE
	OPERATION_PROJECT_ON_VECTOR
	OPERATION_PROJECT_ON_PLANE
)

var operationNames = map[Operation]string{
	OPERATION_ADD:               "add",
	OPERATION_SUBTRACT:          "subtract",
	OPERATION_CROSS:             "cross",
	OPERATION_SCALE:             "scale",
	OPERATION_PROJECT_ON_VECTOR: "project_on_vector",
	OPERATION_PROJECT_ON_PLANE:  "project_on_plane",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", o)
}

// Binary reports whether the operation reads a right-hand vector.
func (o Operation) Binary() bool {
	switch o {
	case OPERATION_ADD, OPERATION_SUBTRACT, OPERATION_CROSS, OPERATION_PROJECT_ON_VECTOR:
		return true
	}
	return false
}

type Plane uint8

const (
	PLANE_XY Plane = iota
	PLANE_XZ
	PLANE_YZ
)

func (p Plane) Normal() math.Vec3 {
	switch p {
	case PLANE_XY:
		return math.NewVec3(0, 0, 1)
	case PLANE_YZ:
		return math.NewVec3(1, 0, 0)
	}
	return math.NewVec3Up()
}

/**
 * @brief One calculator request. Right is ignored by unary operations,
 * Scalar only matters to OPERATION_SCALE and Plane to OPERATION_PROJECT_ON_PLANE.
 */
type CalculatorInput struct {
	Op     Operation
	Left   uuid.UUID
	Right  uuid.UUID
	Scalar float32
	Plane  Plane
	Color  math.Vec4
}

// Calculate returns the start and end of the vector produced by op.
//
// Results start at the left operand's start, except a subtraction, which
// starts at the right operand's end so the result closes the triangle.
func Calculate(op Operation, left, right Vector, scalar float32, plane Plane) (math.Vec3, math.Vec3, error) {
	l := left.Direction()
	r := right.Direction()
	switch op {
	case OPERATION_ADD:
		return left.Start, left.Start.Add(l.Add(r)), nil
	case OPERATION_SUBTRACT:
		return right.End, right.End.Add(l.Sub(r)), nil
	case OPERATION_CROSS:
		return left.Start, left.Start.Add(l.Cross(r)), nil
	case OPERATION_SCALE:
		return left.Start, left.Start.Add(l.MulScalar(scalar)), nil
	case OPERATION_PROJECT_ON_VECTOR:
		return left.Start, left.Start.Add(r.ProjectOnVector(l)), nil
	case OPERATION_PROJECT_ON_PLANE:
		return left.Start, left.Start.Add(l.ProjectOnPlane(plane.Normal())), nil
	}
	return math.Vec3{}, math.Vec3{}, fmt.Errorf("unknown calculator operation %d", op)
}

// Calculator runs vector operations and adds each result to the scene.
type Calculator struct {
	vectors *VectorSystem
}

func NewCalculator(vectors *VectorSystem) *Calculator {
	return &Calculator{vectors: vectors}
}

func (c *Calculator) Apply(in CalculatorInput) (uuid.UUID, error) {
	left, ok := c.vectors.Get(in.Left)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s: left vector %s: %w", in.Op, in.Left, core.ErrInvalidKey)
	}
	var right Vector
	if in.Op.Binary() {
		if right, ok = c.vectors.Get(in.Right); !ok {
			return uuid.Nil, fmt.Errorf("%s: right vector %s: %w", in.Op, in.Right, core.ErrInvalidKey)
		}
	}
	start, end, err := Calculate(in.Op, left, right, in.Scalar, in.Plane)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := c.vectors.Add(start, end, in.Color)
	if err != nil {
		return uuid.Nil, err
	}
	core.LogInfo("%s -> vector %s [%v, %v]", in.Op, id, start, end)
	return id, nil
}
