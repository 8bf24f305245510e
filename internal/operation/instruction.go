package operation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Instruction is the parsed form of a free-text request
type Instruction struct {
	Op          Operation
	Explanation string
}

// NewInstruction wraps op with its default explanation
func NewInstruction(op Operation) *Instruction {
	return &Instruction{Op: op, Explanation: Describe(op)}
}

type wireInstruction struct {
	Operation   string          `json:"operation"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
}

// MarshalJSON renders {"operation", "parameters", "explanation"}
func (i Instruction) MarshalJSON() ([]byte, error) {
	if i.Op == nil {
		return nil, fmt.Errorf("instruction has no operation")
	}
	params, err := json.Marshal(i.Op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireInstruction{
		Operation:   i.Op.Name(),
		Parameters:  params,
		Explanation: i.Explanation,
	})
}

// UnmarshalJSON accepts the wire form produced by MarshalJSON or by a language model
func (i *Instruction) UnmarshalJSON(data []byte) error {
	var w wireInstruction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	op, err := Decode(w.Operation, w.Parameters)
	if err != nil {
		return err
	}
	i.Op = op
	i.Explanation = w.Explanation
	return nil
}

// Decode builds the operation named name from its JSON parameters
func Decode(name string, params json.RawMessage) (Operation, error) {
	switch strings.TrimSpace(name) {
	case "scale":
		return decodeInto[Scale](params)
	case "rotate":
		return decodeInto[Rotate](params)
	case "mirror":
		return decodeInto[Mirror](params)
	case "move", "translate":
		return decodeInto[Move](params)
	case "color":
		return decodeInto[Color](params)
	case "resize":
		return decodeInto[Resize](params)
	case "addBase":
		return decodeInto[AddBase](params)
	case "hollow":
		return decodeInto[Hollow](params)
	case "support":
		return decodeInto[Support](params)
	case "addHoles":
		return decodeInto[AddHoles](params)
	case "modify":
		return decodeInto[Modify](params)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotImplemented, name)
}

func decodeInto[T Operation](params json.RawMessage) (Operation, error) {
	var op T
	if len(params) == 0 || string(params) == "null" {
		return WithDefaults(op), nil
	}
	if err := json.Unmarshal(params, &op); err != nil {
		return nil, fmt.Errorf("invalid %s parameters: %w", op.Name(), err)
	}
	return WithDefaults(op), nil
}
