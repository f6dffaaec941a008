package bridge

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/platform"
)

// Action is a normalised cover command.
type Action string

const (
	ActionOpen        Action = "open"
	ActionClose       Action = "close"
	ActionStop        Action = "stop"
	ActionSetPosition Action = "setPosition"
)

// commandAliases maps lower-cased ecosystem command names to actions.
var commandAliases = map[string]Action{
	"open":               ActionOpen,
	"up":                 ActionOpen,
	"upopen":             ActionOpen,
	"uporopen":           ActionOpen,
	"close":              ActionClose,
	"down":               ActionClose,
	"downclose":          ActionClose,
	"downorclose":        ActionClose,
	"stop":               ActionStop,
	"stopmotion":         ActionStop,
	"setposition":        ActionSetPosition,
	"gotoliftpercentage": ActionSetPosition,
	"percent_control":    ActionSetPosition,
}

// positionParams are consulted in order for a set position target.
var positionParams = []string{"position", "rangeValue", "openPercent"}

// liftParam carries a Matter closed fraction in hundredths of a percent.
const liftParam = "liftPercent100thsValue"

// Normalized is an ecosystem command reduced to a cloud action.
type Normalized struct {
	Action Action
	// Position is the target open percentage for ActionSetPosition.
	Position int
}

// NormalizeCommand maps an ecosystem command name and its parameters to an
// action. The bool is false for names with no alias.
func NormalizeCommand(command string, params map[string]any) (Normalized, bool) {
	action, ok := commandAliases[strings.ToLower(strings.TrimSpace(command))]
	if !ok {
		return Normalized{}, false
	}
	n := Normalized{Action: action}
	if action == ActionSetPosition {
		n.Position = targetPosition(params)
	}
	return n, true
}

// targetPosition returns the first numeric position parameter, or 0.
func targetPosition(params map[string]any) int {
	for _, key := range positionParams {
		if v, ok := params[key]; ok {
			if n, ok := numericParam(v); ok {
				return n
			}
		}
	}
	if v, ok := params[liftParam]; ok {
		if n, ok := numericParam(v); ok {
			return platform.OpenPercentFromLift(n)
		}
	}
	return 0
}

// numericParam accepts JSON numbers and numeric strings, rounding to the
// nearest integer.
func numericParam(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}
