package operation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUnknownOperation(t *testing.T) {
	_, err := Decode("frobnicate", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Contains(t, err.Error(), "operation not implemented: frobnicate")
}

func TestDecodeEveryName(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			op, err := Decode(name, nil)
			require.NoError(t, err)
			assert.Equal(t, name, op.Name())
		})
	}
}

func TestDecodeTranslateAlias(t *testing.T) {
	op, err := Decode("translate", json.RawMessage(`{"x": 1, "y": 2, "z": 3}`))
	require.NoError(t, err)
	assert.Equal(t, Move{X: 1, Y: 2, Z: 3}, op)
}

func TestDecodeFillsDefaults(t *testing.T) {
	op, err := Decode("addBase", json.RawMessage(`{"type": "circle"}`))
	require.NoError(t, err)
	assert.Equal(t, AddBase{Type: BaseCircle, Thickness: DefaultBaseThickness, Margin: DefaultBaseMargin}, op)
}

func TestInstructionJSON(t *testing.T) {
	in := `{"operation":"rotate","parameters":{"axis":"x","degrees":90},"explanation":"turn it"}`

	var inst Instruction
	require.NoError(t, json.Unmarshal([]byte(in), &inst))
	assert.Equal(t, Rotate{Axis: AxisX, Degrees: 90}, inst.Op)
	assert.Equal(t, "turn it", inst.Explanation)

	out, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestInstructionJSONRejectsBadParameters(t *testing.T) {
	var inst Instruction
	err := json.Unmarshal([]byte(`{"operation":"scale","parameters":{"factor":"big"}}`), &inst)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{"scale ok", Scale{Factor: 2}, false},
		{"scale zero", Scale{Factor: 0}, true},
		{"scale negative", Scale{Factor: -1}, true},
		{"scale too large", Scale{Factor: MaxScaleFactor * 10}, true},
		{"scale too small", Scale{Factor: MinScaleFactor / 10}, true},
		{"scale at limit", Scale{Factor: MaxScaleFactor}, false},
		{"rotate bad axis", Rotate{Axis: "w", Degrees: 90}, true},
		{"rotate upper axis", Rotate{Axis: "X", Degrees: 90}, false},
		{"mirror ok", Mirror{Axis: AxisY}, false},
		{"color empty", Color{}, true},
		{"resize nothing", Resize{}, true},
		{"resize width", Resize{Width: 50}, false},
		{"base unknown shape", AddBase{Type: "star", Thickness: 2}, true},
		{"base ok", AddBase{Type: BaseHexagon, Thickness: 2, Margin: 5}, false},
		{"hollow zero", Hollow{}, true},
		{"support angle", Support{Angle: 95, Spacing: 5, Thickness: 1}, true},
		{"support spacing below thickness", Support{Angle: 45, Spacing: 0.5, Thickness: 1}, true},
		{"support spacing equals thickness", Support{Angle: 45, Spacing: 1, Thickness: 1}, false},
		{"holes ok", AddHoles{Diameter: 3, Count: 2}, false},
		{"holes at limit", AddHoles{Diameter: 3, Count: MaxHoleCount}, false},
		{"holes over limit", AddHoles{Diameter: 3, Count: 1e9}, true},
		{"move", Move{}, false},
		{"modify", Modify{Description: "x"}, false},
		{"nil", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.op)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Scaling the model by 2x", Describe(Scale{Factor: 2}))
	assert.Equal(t, "Changing color to red", Describe(Color{Color: "red"}))
	assert.Equal(t, "Resizing the model to 50mm wide", Describe(Resize{Width: 50}))
	assert.Contains(t, Describe(nil), "operation not implemented")
}
