package evalmgr

//go:generate mockgen -source=mediator.go -destination=mediator_mock.go -package=evalmgr

import (
	"fmt"

	"github.com/notargets/weakform/types"
)

type PrimitiveKind uint8

const (
	CoordinatePrimitive PrimitiveKind = iota
	GeometryPrimitive
	DiscreteFunctionPrimitive
)

// Primitive names a leaf quantity only the mediator knows how to sample.
type Primitive struct {
	Kind     PrimitiveKind
	Dir      int                // coordinate direction, CoordinatePrimitive only
	Geometry types.GeometryKind // GeometryPrimitive only
	Name     string             // DiscreteFunctionPrimitive only
}

func CoordinateOf(dir int) Primitive { return Primitive{Kind: CoordinatePrimitive, Dir: dir} }

func GeometryOf(g types.GeometryKind) Primitive {
	return Primitive{Kind: GeometryPrimitive, Geometry: g}
}

func DiscreteFunctionOf(name string) Primitive {
	return Primitive{Kind: DiscreteFunctionPrimitive, Name: name}
}

func (p Primitive) String() string {
	switch p.Kind {
	case CoordinatePrimitive:
		return fmt.Sprintf("x%d", p.Dir)
	case GeometryPrimitive:
		return p.Geometry.String()
	case DiscreteFunctionPrimitive:
		return p.Name
	}
	return fmt.Sprintf("Primitive(%d)", p.Kind)
}

/*
Mediator samples leaf primitives at the physical quadrature points of the active cell batch.
EvalPrimitive writes one value per point into out, for the derivative md of the primitive.
Only purely spatial md are ever requested.
*/
type Mediator interface {
	NumQuadPoints() int
	EvalPrimitive(p Primitive, md types.MultipleDeriv, out []float64) error
}
