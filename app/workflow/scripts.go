package workflow

import (
	"encoding/json"
	"strings"

	"pmflow/app/actions"
	"pmflow/app/bpmn"
	"pmflow/app/expressions"
	"pmflow/app/objects"
	"pmflow/app/workflow/states"
	"pmflow/pkg/log"
)

const defaultScriptRef = "std.noop"

// scriptInput builds the action input: request data overlaid with
// pm:config and the literal parameters of pm:scriptRef, all evaluated
// against the request data.
func (x *execution) scriptInput(node *bpmn.Node, params map[string]interface{}) (map[string]interface{}, error) {
	overlay := map[string]interface{}{}
	if cfg := strings.TrimSpace(node.Attribute("config")); cfg != "" {
		if err := json.Unmarshal([]byte(cfg), &overlay); err != nil {
			return nil, objects.NewError(objects.InvalidDefinition, "pm:config of '%s' is not a JSON object: %s", node.ID, err.Error())
		}
	}
	for k, v := range params {
		overlay[k] = v
	}

	data := x.request.Data.Clone()
	evaluated, err := expressions.EvaluateRecursively(map[string]interface{}(overlay), data)
	if err != nil {
		return nil, objects.NewError(objects.AdvancementFailed, "evaluate input of '%s': %s", node.ID, err.Error())
	}
	if m, ok := evaluated.(map[string]interface{}); ok {
		return data.Merge(m), nil
	}
	return data, nil
}

// runScript executes the action of a script or service task. An action
// error is a modelled failure: it is committed with the request in ERROR.
func (x *execution) runScript(node *bpmn.Node) error {
	ref := strings.TrimSpace(node.Attribute("scriptRef"))
	if ref == "" {
		ref = defaultScriptRef
	}
	name, params, err := actions.ParseScriptRef(ref)
	if err != nil {
		return objects.NewError(objects.InvalidDefinition, "pm:scriptRef of '%s': %s", node.ID, err.Error())
	}
	input, err := x.scriptInput(node, params)
	if err != nil {
		return err
	}

	tk, err := x.createToken(node, states.ACTIVE)
	if err != nil {
		return err
	}

	log.Debugf(x.ctx, "run action %s for '%s' in request %s", name, node.ID, x.request.ID)
	result, runErr := actions.Call(x.ctx, name, input)
	if runErr != nil {
		log.Warnf(x.ctx, "action %s of '%s' failed: %s", name, node.ID, runErr.Error())
		return x.fail(tk, runErr.Error())
	}

	switch r := result.(type) {
	case nil:
	case map[string]interface{}:
		tk.Data = tk.Data.Merge(r)
		x.mergeData(r)
	default:
		variable := node.Attribute("outputVariable")
		if variable == "" {
			variable = node.ID
		}
		out := map[string]interface{}{variable: r}
		tk.Data = tk.Data.Merge(out)
		x.mergeData(out)
	}

	if err := x.setStatus(tk, states.COMPLETED, ScriptCompleted, "Data"); err != nil {
		return err
	}
	return x.leave(node)
}
