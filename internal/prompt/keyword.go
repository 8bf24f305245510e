package prompt

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/operation"
)

var (
	colorPattern   = regexp.MustCompile(`#[0-9a-f]{6}\b|#[0-9a-f]{3}\b|\b(` + strings.Join(geometry.ColorNames(), "|") + `)\b`)
	sizePattern    = regexp.MustCompile(`\b(big|bigger|large|larger|small|smaller|tiny|twice|double|triple|half|scale|scaled|shrink|enlarge|grow)\b`)
	rotatePattern  = regexp.MustCompile(`\b(rotate|rotated|rotation|turn|spin)\b`)
	basePattern    = regexp.MustCompile(`\b(base|platform|plinth|stand|pedestal)\b`)
	mirrorPattern  = regexp.MustCompile(`\b(mirror|mirrored|flip|flipped|reflect)\b`)
	hollowPattern  = regexp.MustCompile(`\b(hollow|shell)\b`)
	supportPattern = regexp.MustCompile(`\b(supports?|overhangs?)\b`)
	holesPattern   = regexp.MustCompile(`\b(holes?|drain|drainage)\b`)
	movePattern    = regexp.MustCompile(`\b(move|shift|raise|lower)\b`)

	numberPattern  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	factorPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:x\b|times\b)`)
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	absolutePct    = regexp.MustCompile(`\b(?:to|at)\s+(\d+(?:\.\d+)?)\s*%`)
	growPattern    = regexp.MustCompile(`\b(bigger|larger|grow|enlarge|up|increase)\b`)
	degreePattern  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:°|deg\b|degrees?\b)`)
	axisPattern    = regexp.MustCompile(`\b([xyz])[\s-]*axis\b|\b(?:on|around|about|along|over)\s+(?:the\s+)?([xyz])\b`)
	mmPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mm\b`)

	dimensionPatterns = []struct {
		re   *regexp.Regexp
		axis string
	}{
		{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mm\s+(?:wide|width)\b|\bwidth\s+(?:of\s+|to\s+)?(\d+(?:\.\d+)?)\s*mm\b`), "width"},
		{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mm\s+(?:deep|depth|long|length)\b|\b(?:depth|length)\s+(?:of\s+|to\s+)?(\d+(?:\.\d+)?)\s*mm\b`), "depth"},
		{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mm\s+(?:tall|high|height)\b|\bheight\s+(?:of\s+|to\s+)?(\d+(?:\.\d+)?)\s*mm\b`), "height"},
	}
)

// Keyword interprets prompts with ordered keyword tests. The first matching
// test wins; anything unmatched becomes a modify operation.
type Keyword struct{}

// NewKeyword creates a local keyword interpreter
func NewKeyword() *Keyword {
	return &Keyword{}
}

type rule struct {
	name  string
	match func(text string) (operation.Operation, bool)
}

// Rules lists the keyword tests in evaluation order
func (k *Keyword) Rules() []string {
	names := make([]string, 0, 10)
	for _, r := range k.rules() {
		names = append(names, r.name)
	}
	return names
}

func (k *Keyword) rules() []rule {
	return []rule{
		{"color", matchColor},
		{"size", matchSize},
		{"rotation", matchRotation},
		{"base", matchBase},
		{"mirror", matchMirror},
		{"hollow", matchHollow},
		{"support", matchSupport},
		{"holes", matchHoles},
		{"dimension", matchDimension},
		{"move", matchMove},
	}
}

// Interpret never fails
func (k *Keyword) Interpret(_ context.Context, text string) (*operation.Instruction, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, r := range k.rules() {
		if op, ok := r.match(lower); ok {
			return operation.NewInstruction(op), nil
		}
	}
	return operation.NewInstruction(operation.Modify{Description: text}), nil
}

func matchColor(text string) (operation.Operation, bool) {
	m := colorPattern.FindString(text)
	if m == "" {
		return nil, false
	}
	return operation.Color{Color: m}, true
}

func matchSize(text string) (operation.Operation, bool) {
	m := sizePattern.FindString(text)
	if m == "" {
		return nil, false
	}

	if f := factorPattern.FindStringSubmatch(text); f != nil {
		if v, err := strconv.ParseFloat(f[1], 64); err == nil && v > 0 {
			if shrinking(text) && v > 1 {
				v = 1 / v
			}
			if inScaleRange(v) {
				return operation.Scale{Factor: v}, true
			}
		}
	}
	if f, ok := percentFactor(text); ok && inScaleRange(f) {
		return operation.Scale{Factor: f}, true
	}

	factor := 1.5
	switch {
	case strings.Contains(text, "twice"), strings.Contains(text, "double"):
		factor = 2
	case strings.Contains(text, "triple"):
		factor = 3
	case strings.Contains(text, "half"):
		factor = 0.5
	case shrinking(text):
		factor = 0.75
	}
	return operation.Scale{Factor: factor}, true
}

func inScaleRange(f float64) bool {
	return f >= operation.MinScaleFactor && f <= operation.MaxScaleFactor
}

// percentFactor reads "to 80%" as an absolute size and "50% bigger" or
// "20% smaller" as a change relative to the current size.
func percentFactor(text string) (float64, bool) {
	if m := absolutePct.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		return v / 100, err == nil && v > 0
	}
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil || p <= 0 {
		return 0, false
	}
	switch {
	case shrinking(text):
		if p >= 100 {
			return 0, false
		}
		return 1 - p/100, true
	case growPattern.MatchString(text):
		return 1 + p/100, true
	default:
		return p / 100, true
	}
}

func shrinking(text string) bool {
	for _, w := range []string{"small", "tiny", "shrink", "reduce", "decrease"} {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func matchRotation(text string) (operation.Operation, bool) {
	if !rotatePattern.MatchString(text) {
		return nil, false
	}
	deg := 90.0
	if m := degreePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			deg = v
		}
	}
	return operation.Rotate{Axis: findAxis(text, operation.AxisZ), Degrees: deg}, true
}

func findAxis(text string, fallback operation.Axis) operation.Axis {
	m := axisPattern.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	if m[1] != "" {
		return operation.Axis(m[1])
	}
	return operation.Axis(m[2])
}

func matchBase(text string) (operation.Operation, bool) {
	if !basePattern.MatchString(text) {
		return nil, false
	}
	shape := operation.BaseRectangle
	switch {
	case strings.Contains(text, "circ"), strings.Contains(text, "round"):
		shape = operation.BaseCircle
	case strings.Contains(text, "hex"):
		shape = operation.BaseHexagon
	}
	thickness := operation.DefaultBaseThickness
	if v, ok := firstMM(text); ok {
		thickness = v
	}
	return operation.AddBase{Type: shape, Thickness: thickness, Margin: operation.DefaultBaseMargin}, true
}

func matchMirror(text string) (operation.Operation, bool) {
	if !mirrorPattern.MatchString(text) {
		return nil, false
	}
	return operation.Mirror{Axis: findAxis(text, operation.AxisX)}, true
}

func matchHollow(text string) (operation.Operation, bool) {
	if !hollowPattern.MatchString(text) {
		return nil, false
	}
	wall := operation.DefaultWallThickness
	if v, ok := firstMM(text); ok {
		wall = v
	}
	return operation.Hollow{WallThickness: wall}, true
}

func matchSupport(text string) (operation.Operation, bool) {
	if !supportPattern.MatchString(text) {
		return nil, false
	}
	angle := operation.DefaultOverhangAngle
	if m := degreePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 && v < 90 {
			angle = v
		}
	}
	return operation.Support{
		Angle:     angle,
		Spacing:   operation.DefaultSupportSpacing,
		Thickness: operation.DefaultSupportThickness,
	}, true
}

func matchHoles(text string) (operation.Operation, bool) {
	if !holesPattern.MatchString(text) {
		return nil, false
	}
	op := operation.AddHoles{Diameter: operation.DefaultHoleDiameter, Count: operation.DefaultHoleCount}
	if v, ok := firstMM(text); ok {
		op.Diameter = v
	}
	for _, n := range numberPattern.FindAllString(mmPattern.ReplaceAllString(text, ""), -1) {
		if c, err := strconv.Atoi(n); err == nil && c > 0 && c <= operation.MaxHoleCount {
			op.Count = c
			break
		}
	}
	return op, true
}

func matchDimension(text string) (operation.Operation, bool) {
	var r operation.Resize
	found := false
	for _, d := range dimensionPatterns {
		m := d.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			continue
		}
		found = true
		switch d.axis {
		case "width":
			r.Width = v
		case "depth":
			r.Depth = v
		case "height":
			r.Height = v
		}
	}
	return r, found
}

func matchMove(text string) (operation.Operation, bool) {
	if !movePattern.MatchString(text) {
		return nil, false
	}
	dist := 10.0
	if v, ok := firstMM(text); ok {
		dist = v
	}

	var mv operation.Move
	switch {
	case strings.Contains(text, "left"):
		mv.X = -dist
	case strings.Contains(text, "right"):
		mv.X = dist
	case strings.Contains(text, "up"), strings.Contains(text, "raise"):
		mv.Z = dist
	case strings.Contains(text, "down"), strings.Contains(text, "lower"):
		mv.Z = -dist
	case strings.Contains(text, "forward"):
		mv.Y = -dist
	case strings.Contains(text, "back"):
		mv.Y = dist
	default:
		idx, _ := findAxis(text, operation.AxisX).Index()
		switch idx {
		case 0:
			mv.X = dist
		case 1:
			mv.Y = dist
		default:
			mv.Z = dist
		}
	}
	return mv, true
}

func firstMM(text string) (float64, bool) {
	m := mmPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
