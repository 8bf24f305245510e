package prompt

import (
	"context"
	"testing"

	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestKeywordInterpret(t *testing.T) {
	tests := []struct {
		prompt string
		want   operation.Operation
	}{
		{"make it twice as big", operation.Scale{Factor: 2}},
		{"Make it red", operation.Color{Color: "red"}},
		{"rotate 90 degrees on x axis", operation.Rotate{Axis: operation.AxisX, Degrees: 90}},
		{"make it 50mm wide", operation.Resize{Width: 50}},
		{"make it half the size", operation.Scale{Factor: 0.5}},
		{"make it 3x bigger", operation.Scale{Factor: 3}},
		{"make it 2x smaller", operation.Scale{Factor: 0.5}},
		{"scale to 150%", operation.Scale{Factor: 1.5}},
		{"make it 50% bigger", operation.Scale{Factor: 1.5}},
		{"make it 50% larger", operation.Scale{Factor: 1.5}},
		{"scale it up by 20%", operation.Scale{Factor: 1.2}},
		{"make it 25% smaller", operation.Scale{Factor: 0.75}},
		{"shrink it to 80%", operation.Scale{Factor: 0.8}},
		{"scale 40%", operation.Scale{Factor: 0.4}},
		{"paint it #00ff00", operation.Color{Color: "#00ff00"}},
		{"turn it 45 deg around y", operation.Rotate{Axis: operation.AxisY, Degrees: 45}},
		{"add a round base", operation.AddBase{Type: operation.BaseCircle, Thickness: 2, Margin: 5}},
		{"add a 3mm hexagon platform", operation.AddBase{Type: operation.BaseHexagon, Thickness: 3, Margin: 5}},
		{"mirror it along the y axis", operation.Mirror{Axis: operation.AxisY}},
		{"make it hollow with 1.5mm walls", operation.Hollow{WallThickness: 1.5}},
		{"add supports", operation.Support{Angle: 45, Spacing: 5, Thickness: 1}},
		{"add 4 drainage holes of 5mm", operation.AddHoles{Diameter: 5, Count: 4}},
		{"set width to 40mm and 20mm tall", operation.Resize{Width: 40, Height: 20}},
		{"move it 5mm left", operation.Move{X: -5}},
		{"frobnicate the widget", operation.Modify{Description: "frobnicate the widget"}},
	}

	k := NewKeyword()
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			inst, err := k.Interpret(context.Background(), tt.prompt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, inst.Op)
			assert.NotEmpty(t, inst.Explanation)
		})
	}
}

func TestKeywordOrderColorBeforeSize(t *testing.T) {
	inst, err := NewKeyword().Interpret(context.Background(), "make it bigger and blue")
	require.NoError(t, err)
	assert.Equal(t, operation.Color{Color: "blue"}, inst.Op)
}

func TestKeywordWordBoundaries(t *testing.T) {
	// "reduced" must not match the color red
	inst, err := NewKeyword().Interpret(context.Background(), "reduced polygon count please")
	require.NoError(t, err)
	assert.Equal(t, "modify", inst.Op.Name())
}

func TestKeywordRulesOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"color", "size", "rotation", "base", "mirror", "hollow", "support", "holes", "dimension", "move"},
		NewKeyword().Rules())
}

func TestKeywordNeverFailsProperty(t *testing.T) {
	k := NewKeyword()
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.String().Draw(rt, "text")

		inst, err := k.Interpret(context.Background(), text)
		if err != nil {
			rt.Fatalf("interpret %q: %v", text, err)
		}
		if inst.Op.Name() == "modify" {
			if inst.Op.(operation.Modify).Description != text {
				rt.Fatalf("modify lost the original text")
			}
			return
		}
		if err := operation.Validate(inst.Op); err != nil {
			rt.Fatalf("%q produced invalid %s: %v", text, inst.Op.Name(), err)
		}
	})
}
