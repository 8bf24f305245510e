// Package operation defines the closed set of mesh customizations a prompt can
// resolve to, and their JSON wire form.
package operation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNotImplemented is returned for operation names outside the vocabulary and
// for operations no handler can execute
var ErrNotImplemented = errors.New("operation not implemented")

// Operation is implemented only by the types in this package
type Operation interface {
	Name() string
	sealed()
}

// Axis is one of x, y, z
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// Index returns 0, 1 or 2
func (a Axis) Index() (int, error) {
	switch Axis(strings.ToLower(string(a))) {
	case AxisX:
		return 0, nil
	case AxisY:
		return 1, nil
	case AxisZ:
		return 2, nil
	}
	return 0, fmt.Errorf("invalid axis %q", string(a))
}

// BaseShape is the outline of a base plate
type BaseShape string

const (
	BaseRectangle BaseShape = "rectangle"
	BaseCircle    BaseShape = "circle"
	BaseHexagon   BaseShape = "hexagon"
)

// Scale multiplies the model size uniformly
type Scale struct {
	Factor float64 `json:"factor"`
}

// Rotate turns the model around one axis
type Rotate struct {
	Axis    Axis    `json:"axis"`
	Degrees float64 `json:"degrees"`
}

// Mirror reflects the model across the plane orthogonal to Axis
type Mirror struct {
	Axis Axis `json:"axis"`
}

// Move offsets the model position in millimeters
type Move struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Color replaces the material color with a name or #RRGGBB value
type Color struct {
	Color string `json:"color"`
}

// Resize sets target dimensions in millimeters. Zero leaves an axis unchanged.
type Resize struct {
	Width  float64 `json:"width,omitempty"`
	Depth  float64 `json:"depth,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// AddBase adds a plate under the model
type AddBase struct {
	Type      BaseShape `json:"type"`
	Thickness float64   `json:"thickness"`
	Margin    float64   `json:"margin"`
}

// Hollow removes the interior leaving walls of the given thickness
type Hollow struct {
	WallThickness float64 `json:"wallThickness"`
}

// Support adds pillars under overhangs steeper than Angle degrees
type Support struct {
	Angle     float64 `json:"angle"`
	Spacing   float64 `json:"spacing"`
	Thickness float64 `json:"thickness"`
}

// AddHoles cuts vertical drainage holes through the lower section of the model
type AddHoles struct {
	Diameter float64 `json:"diameter"`
	Count    int     `json:"count"`
}

// Modify carries a request no other operation matched
type Modify struct {
	Description string `json:"description"`
}

func (Scale) Name() string    { return "scale" }
func (Rotate) Name() string   { return "rotate" }
func (Mirror) Name() string   { return "mirror" }
func (Move) Name() string     { return "move" }
func (Color) Name() string    { return "color" }
func (Resize) Name() string   { return "resize" }
func (AddBase) Name() string  { return "addBase" }
func (Hollow) Name() string   { return "hollow" }
func (Support) Name() string  { return "support" }
func (AddHoles) Name() string { return "addHoles" }
func (Modify) Name() string   { return "modify" }

func (Scale) sealed()    {}
func (Rotate) sealed()   {}
func (Mirror) sealed()   {}
func (Move) sealed()     {}
func (Color) sealed()    {}
func (Resize) sealed()   {}
func (AddBase) sealed()  {}
func (Hollow) sealed()   {}
func (Support) sealed()  {}
func (AddHoles) sealed() {}
func (Modify) sealed()   {}

// Defaults used when a prompt names an operation without its parameters
const (
	DefaultBaseThickness    = 2.0
	DefaultBaseMargin       = 5.0
	DefaultWallThickness    = 2.0
	DefaultOverhangAngle    = 45.0
	DefaultSupportSpacing   = 5.0
	DefaultSupportThickness = 1.0
	DefaultHoleDiameter     = 3.0
	DefaultHoleCount        = 2
)

// Limits on parameters that drive the amount of generated geometry
const (
	MinScaleFactor = 0.001
	MaxScaleFactor = 1000.0
	MaxHoleCount   = 64
)

// Names lists every operation name in vocabulary order
func Names() []string {
	return []string{
		"scale", "rotate", "mirror", "move", "color", "resize",
		"addBase", "hollow", "support", "addHoles", "modify",
	}
}

// Validate rejects parameters no handler could apply
func Validate(op Operation) error {
	switch o := op.(type) {
	case Scale:
		if !(o.Factor > 0) || math.IsInf(o.Factor, 0) {
			return fmt.Errorf("scale factor must be positive, got %v", o.Factor)
		}
		if o.Factor < MinScaleFactor || o.Factor > MaxScaleFactor {
			return fmt.Errorf("scale factor must be between %g and %g, got %v", MinScaleFactor, MaxScaleFactor, o.Factor)
		}
	case Rotate:
		if _, err := o.Axis.Index(); err != nil {
			return err
		}
	case Mirror:
		if _, err := o.Axis.Index(); err != nil {
			return err
		}
	case Color:
		if strings.TrimSpace(o.Color) == "" {
			return errors.New("color must not be empty")
		}
	case Resize:
		if o.Width < 0 || o.Depth < 0 || o.Height < 0 {
			return errors.New("resize dimensions must not be negative")
		}
		if o.Width == 0 && o.Depth == 0 && o.Height == 0 {
			return errors.New("resize needs at least one dimension")
		}
	case AddBase:
		switch o.Type {
		case BaseRectangle, BaseCircle, BaseHexagon:
		default:
			return fmt.Errorf("unknown base type %q", o.Type)
		}
		if o.Thickness <= 0 || o.Margin < 0 {
			return errors.New("base thickness must be positive and margin not negative")
		}
	case Hollow:
		if o.WallThickness <= 0 {
			return errors.New("wall thickness must be positive")
		}
	case Support:
		if o.Angle <= 0 || o.Angle >= 90 {
			return fmt.Errorf("overhang angle must be between 0 and 90, got %v", o.Angle)
		}
		if o.Spacing <= 0 || o.Thickness <= 0 {
			return errors.New("support spacing and thickness must be positive")
		}
		if o.Spacing < o.Thickness {
			return fmt.Errorf("support spacing %gmm must not be below the pillar thickness %gmm", o.Spacing, o.Thickness)
		}
	case AddHoles:
		if o.Diameter <= 0 || o.Count <= 0 {
			return errors.New("hole diameter and count must be positive")
		}
		if o.Count > MaxHoleCount {
			return fmt.Errorf("at most %d holes, got %d", MaxHoleCount, o.Count)
		}
	case Move, Modify:
	case nil:
		return errors.New("missing operation")
	default:
		return fmt.Errorf("%w: %s", ErrNotImplemented, op.Name())
	}
	return nil
}

// WithDefaults fills unset parameters with their defaults
func WithDefaults(op Operation) Operation {
	switch o := op.(type) {
	case Rotate:
		if o.Axis == "" {
			o.Axis = AxisZ
		}
		if o.Degrees == 0 {
			o.Degrees = 90
		}
		return o
	case Mirror:
		if o.Axis == "" {
			o.Axis = AxisX
		}
		return o
	case AddBase:
		if o.Type == "" {
			o.Type = BaseRectangle
		}
		if o.Thickness == 0 {
			o.Thickness = DefaultBaseThickness
		}
		if o.Margin == 0 {
			o.Margin = DefaultBaseMargin
		}
		return o
	case Hollow:
		if o.WallThickness == 0 {
			o.WallThickness = DefaultWallThickness
		}
		return o
	case Support:
		if o.Angle == 0 {
			o.Angle = DefaultOverhangAngle
		}
		if o.Spacing == 0 {
			o.Spacing = DefaultSupportSpacing
		}
		if o.Thickness == 0 {
			o.Thickness = DefaultSupportThickness
		}
		return o
	case AddHoles:
		if o.Diameter == 0 {
			o.Diameter = DefaultHoleDiameter
		}
		if o.Count == 0 {
			o.Count = DefaultHoleCount
		}
		return o
	}
	return op
}
