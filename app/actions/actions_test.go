package actions

import (
	"testing"

	"pmflow/pkg/contextx"

	"github.com/stretchr/testify/assert"
)

func TestStdTest_Run(t *testing.T) {
	asserter := assert.New(t)

	input := map[string]interface{}{
		"name": "dinozzo",
		"age":  float64(10),
		"school": map[string]interface{}{
			"junior": "school1",
			"high":   "school2",
		},
	}

	result, err := Call(contextx.NewContext(), "std.test", input)
	if asserter.NoError(err) {
		expected := map[string]interface{}{"replied": true}
		for k, v := range input {
			expected[k] = v
		}
		asserter.Equal(expected, result)
		asserter.NotContains(input, "replied")
	}
}

func TestStdEcho_Run(t *testing.T) {
	asserter := assert.New(t)
	result, err := Call(contextx.NewContext(), "std.echo", map[string]interface{}{"output": "test"})

	if asserter.NoError(err) {
		asserter.Equal("test", result)
	}
}

func TestStdFail_Run(t *testing.T) {
	asserter := assert.New(t)

	_, err := Call(contextx.NewContext(), "std.fail", map[string]interface{}{"message": "out of stock"})
	asserter.EqualError(err, "out of stock")

	_, err = Call(contextx.NewContext(), "std.unknown", nil)
	asserter.Error(err)

	asserter.Subset(Names(), []string{"std.echo", "std.fail", "std.noop", "std.test"})
}

func TestParseScriptRef(t *testing.T) {
	asserter := assert.New(t)

	name, params, err := ParseScriptRef(`std.echo output='done' count=2 flag=true items=[1,2] quoted="a b"`)
	if asserter.NoError(err) {
		asserter.Equal("std.echo", name)
		asserter.Equal(map[string]interface{}{
			"output": "done",
			"count":  float64(2),
			"flag":   true,
			"items":  []interface{}{float64(1), float64(2)},
			"quoted": "a b",
		}, params)
	}

	name, params, err = ParseScriptRef("std.noop")
	if asserter.NoError(err) {
		asserter.Equal("std.noop", name)
		asserter.Empty(params)
	}

	_, _, err = ParseScriptRef("  ")
	asserter.Error(err)
}
