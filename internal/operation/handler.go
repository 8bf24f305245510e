package operation

import "fmt"

// Handler has one method per operation. Adding an operation to the vocabulary
// adds a method here, so every handler must be updated before it compiles.
type Handler[T any] interface {
	Scale(Scale) (T, error)
	Rotate(Rotate) (T, error)
	Mirror(Mirror) (T, error)
	Move(Move) (T, error)
	Color(Color) (T, error)
	Resize(Resize) (T, error)
	AddBase(AddBase) (T, error)
	Hollow(Hollow) (T, error)
	Support(Support) (T, error)
	AddHoles(AddHoles) (T, error)
	Modify(Modify) (T, error)
}

// Dispatch calls the handler method matching op
func Dispatch[T any](op Operation, h Handler[T]) (T, error) {
	switch o := op.(type) {
	case Scale:
		return h.Scale(o)
	case Rotate:
		return h.Rotate(o)
	case Mirror:
		return h.Mirror(o)
	case Move:
		return h.Move(o)
	case Color:
		return h.Color(o)
	case Resize:
		return h.Resize(o)
	case AddBase:
		return h.AddBase(o)
	case Hollow:
		return h.Hollow(o)
	case Support:
		return h.Support(o)
	case AddHoles:
		return h.AddHoles(o)
	case Modify:
		return h.Modify(o)
	}

	var zero T
	if op == nil {
		return zero, fmt.Errorf("%w: <nil>", ErrNotImplemented)
	}
	return zero, fmt.Errorf("%w: %s", ErrNotImplemented, op.Name())
}

type describer struct{}

func (describer) Scale(o Scale) (string, error) {
	return fmt.Sprintf("Scaling the model by %gx", o.Factor), nil
}

func (describer) Rotate(o Rotate) (string, error) {
	return fmt.Sprintf("Rotating %g degrees around the %s axis", o.Degrees, o.Axis), nil
}

func (describer) Mirror(o Mirror) (string, error) {
	return fmt.Sprintf("Mirroring the model along the %s axis", o.Axis), nil
}

func (describer) Move(o Move) (string, error) {
	return fmt.Sprintf("Moving the model by (%g, %g, %g) mm", o.X, o.Y, o.Z), nil
}

func (describer) Color(o Color) (string, error) {
	return fmt.Sprintf("Changing color to %s", o.Color), nil
}

func (describer) Resize(o Resize) (string, error) {
	s := "Resizing the model to"
	if o.Width > 0 {
		s += fmt.Sprintf(" %gmm wide", o.Width)
	}
	if o.Depth > 0 {
		s += fmt.Sprintf(" %gmm deep", o.Depth)
	}
	if o.Height > 0 {
		s += fmt.Sprintf(" %gmm tall", o.Height)
	}
	return s, nil
}

func (describer) AddBase(o AddBase) (string, error) {
	return fmt.Sprintf("Adding a %gmm %s base with %gmm margin", o.Thickness, o.Type, o.Margin), nil
}

func (describer) Hollow(o Hollow) (string, error) {
	return fmt.Sprintf("Hollowing the model with %gmm walls", o.WallThickness), nil
}

func (describer) Support(o Support) (string, error) {
	return fmt.Sprintf("Adding supports under overhangs steeper than %g degrees", o.Angle), nil
}

func (describer) AddHoles(o AddHoles) (string, error) {
	return fmt.Sprintf("Adding %d drainage holes of %gmm", o.Count, o.Diameter), nil
}

func (describer) Modify(o Modify) (string, error) {
	return "Custom modification: " + o.Description, nil
}

// Describe returns a human readable explanation for op
func Describe(op Operation) string {
	s, err := Dispatch[string](op, describer{})
	if err != nil {
		return err.Error()
	}
	return s
}
