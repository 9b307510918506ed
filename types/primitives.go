package types

import "fmt"

// GeometryKind names a cell geometry scalar the mediator can sample.
type GeometryKind uint8

const (
	CellDiameter GeometryKind = iota
	CellVolume
)

var GeometryNameMap = map[string]GeometryKind{
	"diameter": CellDiameter,
	"h":        CellDiameter,
	"volume":   CellVolume,
	"area":     CellVolume,
}

func (g GeometryKind) String() string {
	switch g {
	case CellDiameter:
		return "CellDiameter"
	case CellVolume:
		return "CellVolume"
	}
	return fmt.Sprintf("GeometryKind(%d)", g)
}

// FuncRole is the part a symbolic function plays in a weak form.
type FuncRole uint8

const (
	UnknownFunc FuncRole = iota
	TestFunc
	ParameterFunc
)

var FuncRoleNameMap = map[string]FuncRole{
	"unknown":   UnknownFunc,
	"trial":     UnknownFunc,
	"test":      TestFunc,
	"parameter": ParameterFunc,
	"param":     ParameterFunc,
}

func (r FuncRole) String() string {
	switch r {
	case UnknownFunc:
		return "Unknown"
	case TestFunc:
		return "Test"
	case ParameterFunc:
		return "Parameter"
	}
	return fmt.Sprintf("FuncRole(%d)", r)
}
