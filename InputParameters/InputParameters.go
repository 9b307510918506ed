package InputParameters

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/weakform/expr"
	"github.com/notargets/weakform/mediator"
	"github.com/notargets/weakform/types"
)

// RunParameters is the YAML description of one evaluation run
type RunParameters struct {
	Title           string                        `json:"Title"`
	SpatialDim      int                           `json:"SpatialDim"`
	Mesh            MeshParameters                `json:"Mesh"`
	QuadratureOrder int                           `json:"QuadratureOrder"` // Gauss points per direction
	MaxDiffOrder    int                           `json:"MaxDiffOrder"`
	BatchSize       int                           `json:"BatchSize"` // cells per batch
	Workers         int                           `json:"Workers"`
	Fields          map[string]FieldParameters    `json:"Fields"`
	Functions       map[string]FunctionParameters `json:"Functions"`
	Variations      []VariationParameters         `json:"Variations"`
	Expression      map[string]interface{}        `json:"Expression"`
}

type MeshParameters struct {
	XMin, XMax float64
	YMin, YMax float64
	Nx, Ny     int
}

// FieldParameters describes C + Grad.x + XY*x*y, held exactly (linear) or as vertex values (nodal)
type FieldParameters struct {
	Kind string    `json:"Kind"` // linear or nodal
	C    float64   `json:"C"`
	Grad []float64 `json:"Grad"`
	XY   float64   `json:"XY"`
}

type FunctionParameters struct {
	Role      string `json:"Role"`      // unknown, test or parameter
	EvalPoint string `json:"EvalPoint"` // discrete field the function is evaluated at
}

// VariationParameters names either a spatial direction or a function (optionally D_dir of it)
type VariationParameters struct {
	Function  string `json:"Function"`
	Direction *int   `json:"Direction"`
	Spatial   *int   `json:"Spatial"`
}

func (rp *RunParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, rp); err != nil {
		return
	}
	if rp.SpatialDim == 0 {
		rp.SpatialDim = 2
	}
	if rp.QuadratureOrder == 0 {
		rp.QuadratureOrder = 2
	}
	if rp.BatchSize == 0 {
		rp.BatchSize = 16
	}
	if rp.Workers == 0 {
		rp.Workers = 1
	}
	if rp.Mesh.Nx == 0 {
		rp.Mesh.Nx = 1
	}
	if rp.Mesh.Ny == 0 {
		rp.Mesh.Ny = 1
	}
	// An absent extent is the unit interval
	if rp.Mesh.XMax == rp.Mesh.XMin {
		rp.Mesh.XMax = rp.Mesh.XMin + 1
	}
	if rp.Mesh.YMax == rp.Mesh.YMin {
		rp.Mesh.YMax = rp.Mesh.YMin + 1
	}
	return rp.Validate()
}

func (rp *RunParameters) Validate() error {
	switch {
	case rp.SpatialDim < 1 || rp.SpatialDim > 2:
		return fmt.Errorf("SpatialDim must be 1 or 2, got %d", rp.SpatialDim)
	case rp.QuadratureOrder < 1:
		return fmt.Errorf("QuadratureOrder must be positive, got %d", rp.QuadratureOrder)
	case rp.MaxDiffOrder < 0:
		return fmt.Errorf("MaxDiffOrder must not be negative, got %d", rp.MaxDiffOrder)
	case rp.BatchSize < 1 || rp.Workers < 1:
		return fmt.Errorf("BatchSize and Workers must be positive, got %d and %d", rp.BatchSize, rp.Workers)
	case rp.Expression == nil:
		return fmt.Errorf("missing Expression")
	}
	return nil
}

func (rp *RunParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", rp.Title)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Spatial Dimension\n", rp.SpatialDim)
	fmt.Fprintf(w, "[%g,%g]x[%g,%g] %dx%d\t= Mesh\n",
		rp.Mesh.XMin, rp.Mesh.XMax, rp.Mesh.YMin, rp.Mesh.YMax, rp.Mesh.Nx, rp.Mesh.Ny)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Quadrature Order\n", rp.QuadratureOrder)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Max Differentiation Order\n", rp.MaxDiffOrder)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Batch Size\n", rp.BatchSize)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Workers\n", rp.Workers)
	for _, key := range sortedKeys(rp.Fields) {
		fmt.Fprintf(w, "Fields[%s] = %+v\n", key, rp.Fields[key])
	}
	for _, key := range sortedKeys(rp.Functions) {
		fmt.Fprintf(w, "Functions[%s] = %+v\n", key, rp.Functions[key])
	}
	for i, v := range rp.Variations {
		fmt.Fprintf(w, "Variations[%d] = %s\n", i, v)
	}
}

func (v VariationParameters) String() string {
	switch {
	case v.Spatial != nil:
		return fmt.Sprintf("x%d", *v.Spatial)
	case v.Direction != nil:
		return fmt.Sprintf("D%d %s", *v.Direction, v.Function)
	}
	return v.Function
}

func sortedKeys[T any](m map[string]T) (keys []string) {
	keys = make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// Run is everything an assembly pass needs, built from RunParameters
type Run struct {
	Mesh       *mediator.TensorMesh
	Batches    []*mediator.CellBatch
	Root       expr.Expr
	Context    types.EvalContext
	Variations []types.DerivToken
}

func (rp *RunParameters) Build() (run *Run, err error) {
	run = &Run{}
	var (
		dim = rp.SpatialDim
		lo  = []float64{rp.Mesh.XMin, rp.Mesh.YMin}
		hi  = []float64{rp.Mesh.XMax, rp.Mesh.YMax}
	)
	if run.Mesh, err = mediator.NewTensorMesh(dim, lo[:dim], hi[:dim], []int{rp.Mesh.Nx, rp.Mesh.Ny}[:dim]); err != nil {
		return nil, err
	}
	var (
		fields = make(map[string]mediator.Field)
		env    = expr.NewEnv()
		discr  = make(map[string]*expr.DiscreteFunction)
	)
	for _, name := range sortedKeys(rp.Fields) {
		var f mediator.Field
		if f, err = rp.Fields[name].field(run.Mesh); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields[name] = f
		discr[name] = expr.NewDiscreteFunction(name)
		env.Define(name, discr[name])
	}
	var funcs = make(map[string]*expr.FuncElement)
	for _, name := range sortedKeys(rp.Functions) {
		if _, ok := discr[name]; ok {
			return nil, fmt.Errorf("%s is both a field and a function", name)
		}
		fp := rp.Functions[name]
		role, ok := types.FuncRoleNameMap[strings.ToLower(fp.Role)]
		if !ok {
			return nil, fmt.Errorf("function %s: unknown role %q", name, fp.Role)
		}
		var evalPoint *expr.DiscreteFunction
		if fp.EvalPoint != "" {
			if evalPoint, ok = discr[fp.EvalPoint]; !ok {
				return nil, fmt.Errorf("function %s: no field named %q", name, fp.EvalPoint)
			}
		}
		switch role {
		case types.UnknownFunc:
			funcs[name] = expr.NewUnknownFunction(name, evalPoint)
		case types.TestFunc:
			if evalPoint != nil {
				return nil, fmt.Errorf("test function %s cannot have an evaluation point", name)
			}
			funcs[name] = expr.NewTestFunction(name)
		case types.ParameterFunc:
			funcs[name] = expr.NewParameter(name, evalPoint)
		}
		env.Define(name, funcs[name])
	}
	for _, v := range rp.Variations {
		var tok types.DerivToken
		if tok, err = v.token(funcs, dim); err != nil {
			return nil, fmt.Errorf("variation %s: %w", v, err)
		}
		run.Variations = append(run.Variations, tok)
	}
	if run.Root, err = expr.Decode(rp.Expression, env); err != nil {
		return nil, fmt.Errorf("expression: %w", err)
	}
	run.Context = types.NewEvalContext(rp.Title, fmt.Sprintf("gauss-%d", rp.QuadratureOrder), rp.MaxDiffOrder)
	if run.Batches, err = run.Mesh.Batches(rp.BatchSize, rp.QuadratureOrder, fields); err != nil {
		return nil, err
	}
	return
}

func (fp FieldParameters) field(m *mediator.TensorMesh) (f mediator.Field, err error) {
	if len(fp.Grad) > types.MaxDim {
		return nil, fmt.Errorf("gradient has %d components", len(fp.Grad))
	}
	var lin = mediator.LinearField{C: fp.C}
	copy(lin.Grad[:], fp.Grad)
	switch strings.ToLower(fp.Kind) {
	case "", "linear":
		if fp.XY != 0 {
			return nil, fmt.Errorf("linear fields have no XY term")
		}
		return lin, nil
	case "nodal":
		return mediator.InterpolateField(m, func(x []float64) float64 {
			val := lin.Eval(0, x, types.MultiIndex{})
			if len(x) > 1 {
				val += fp.XY * x[0] * x[1]
			}
			return val
		}), nil
	}
	return nil, fmt.Errorf("unknown field kind %q", fp.Kind)
}

func (v VariationParameters) token(funcs map[string]*expr.FuncElement, dim int) (tok types.DerivToken, err error) {
	if v.Spatial != nil {
		if v.Function != "" {
			return 0, fmt.Errorf("a variation is spatial or functional, not both")
		}
		if *v.Spatial >= dim {
			return 0, fmt.Errorf("direction %d in %d dimensions", *v.Spatial, dim)
		}
		return types.NewSpatialToken(*v.Spatial)
	}
	f, ok := funcs[v.Function]
	if !ok {
		return 0, fmt.Errorf("no function named %q", v.Function)
	}
	var alpha types.MultiIndex
	if v.Direction != nil {
		if *v.Direction < 0 || *v.Direction >= dim {
			return 0, fmt.Errorf("direction %d in %d dimensions", *v.Direction, dim)
		}
		alpha = types.UnitMultiIndex(*v.Direction)
	}
	return f.Variation(alpha), nil
}
