package actions

import (
	"errors"
	"fmt"

	"pmflow/pkg/contextx"
	"pmflow/pkg/log"
)

// StdEcho returns its "output" input unchanged.
type StdEcho struct{}

func (s StdEcho) Run(ctx *contextx.Context, input map[string]interface{}) (interface{}, error) {
	log.Debugf(ctx, "run std echo input is %#v", input["output"])
	return input["output"], nil
}

// StdTest replies with its input plus "replied": true.
type StdTest struct{}

func (s StdTest) Run(ctx *contextx.Context, input map[string]interface{}) (interface{}, error) {
	log.Debugf(ctx, "got input %v", input)
	output := map[string]interface{}{}
	for k, v := range input {
		output[k] = v
	}
	output["replied"] = true
	return output, nil
}

// StdFail always fails, with "message" when given.
type StdFail struct{}

func (s StdFail) Run(ctx *contextx.Context, input map[string]interface{}) (interface{}, error) {
	if msg, ok := input["message"]; ok {
		return nil, errors.New(fmt.Sprint(msg))
	}
	return nil, errors.New("std.fail called")
}

func init() {
	Register("std.echo", StdEcho{})
	Register("std.test", StdTest{})
	Register("std.fail", StdFail{})
	Register("std.noop", ActionFunc(func(*contextx.Context, map[string]interface{}) (interface{}, error) {
		return nil, nil
	}))
}
