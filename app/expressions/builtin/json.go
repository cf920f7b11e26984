package builtin

import (
	"encoding/json"
	"errors"
)

// BuiltinFunc is exposed to both the jinja and the golang templates.
var BuiltinFunc = map[string]interface{}{
	"json": builtinJSONFunction,
}

func builtinJSONFunction(values ...interface{}) (interface{}, error) {
	if len(values) == 0 {
		return "null", nil
	}
	output, err := json.Marshal(values[0])
	if err != nil {
		return nil, errors.New("invalid data")
	}
	return string(output), nil
}
