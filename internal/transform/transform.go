// Package transform applies operations to meshes. Every operation returns a new
// mesh; the input is never modified.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/philipparndt/modelforge/internal/csg"
	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/operation"
	"go.uber.org/zap"
)

// ErrTooComplex rejects operations that would generate more geometry than allowed
var ErrTooComplex = errors.New("operation too complex")

// Dispatcher routes operations to their mesh implementation
type Dispatcher struct {
	eval   csg.Evaluator
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil evaluator uses the BSP evaluator.
func NewDispatcher(eval csg.Evaluator, logger *zap.Logger) *Dispatcher {
	if eval == nil {
		eval = csg.NewBSP()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{eval: eval, logger: logger.With(zap.String("component", "transform"))}
}

// Apply validates op and returns the transformed copy of m
func (d *Dispatcher) Apply(m *geometry.Mesh, op operation.Operation) (*geometry.Mesh, error) {
	if m.IsEmpty() {
		return nil, geometry.ErrEmptyMesh
	}
	if err := operation.Validate(op); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := operation.Dispatch[*geometry.Mesh](op, &meshHandler{mesh: m, eval: d.eval})
	if err != nil {
		return nil, err
	}

	d.logger.Debug("operation applied",
		zap.String("operation", op.Name()),
		zap.Int("triangles_in", len(m.Triangles)),
		zap.Int("triangles_out", len(out.Triangles)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// ApplyInstruction applies the operation of a parsed instruction
func (d *Dispatcher) ApplyInstruction(m *geometry.Mesh, inst *operation.Instruction) (*geometry.Mesh, error) {
	if inst == nil {
		return nil, fmt.Errorf("%w: <nil>", operation.ErrNotImplemented)
	}
	return d.Apply(m, inst.Op)
}

// ApplyNamed decodes an operation by name and applies it
func (d *Dispatcher) ApplyNamed(m *geometry.Mesh, name string, params json.RawMessage) (*geometry.Mesh, error) {
	op, err := operation.Decode(name, params)
	if err != nil {
		return nil, err
	}
	return d.Apply(m, op)
}

// meshHandler implements every operation against a single input mesh
type meshHandler struct {
	mesh *geometry.Mesh
	eval csg.Evaluator
}

var _ operation.Handler[*geometry.Mesh] = (*meshHandler)(nil)

func (h *meshHandler) Modify(o operation.Modify) (*geometry.Mesh, error) {
	return nil, fmt.Errorf("%w: %s", operation.ErrNotImplemented, o.Name())
}
