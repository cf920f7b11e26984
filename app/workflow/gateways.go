package workflow

import (
	"fmt"

	"pmflow/app/bpmn"
	"pmflow/app/expressions"
	"pmflow/app/objects"
	"pmflow/app/workflow/states"
)

func (x *execution) conditionHolds(f *bpmn.Flow) (bool, error) {
	if !f.IsConditional() {
		return true, nil
	}
	ok, err := expressions.EvaluateCondition(f.Condition, x.request.Data.Clone())
	if err != nil {
		return false, objects.NewError(objects.AdvancementFailed, "condition of flow '%s' (%s): %s", f.ID, f.Condition, err.Error())
	}
	return ok, nil
}

// selectFlows returns the outgoing flows control takes when leaving node.
func (x *execution) selectFlows(node *bpmn.Node) ([]*bpmn.Flow, error) {
	if len(node.Outgoing) == 0 {
		return nil, nil
	}

	switch node.Type {
	case bpmn.ParallelGateway:
		return node.Outgoing, nil

	case bpmn.ExclusiveGateway:
		for _, f := range node.Outgoing {
			if f == node.Default {
				continue
			}
			ok, err := x.conditionHolds(f)
			if err != nil {
				return nil, err
			}
			if ok {
				return []*bpmn.Flow{f}, nil
			}
		}
		if node.Default != nil {
			return []*bpmn.Flow{node.Default}, nil
		}
		return nil, objects.NewError(objects.AdvancementFailed, "no outgoing flow of gateway '%s' matches", node.ID)

	default:
		var taken []*bpmn.Flow
		for _, f := range node.Outgoing {
			if f == node.Default {
				continue
			}
			ok, err := x.conditionHolds(f)
			if err != nil {
				return nil, err
			}
			if ok {
				taken = append(taken, f)
			}
		}
		if len(taken) == 0 && node.Default != nil {
			taken = append(taken, node.Default)
		}
		if len(taken) == 0 {
			return nil, objects.NewError(objects.AdvancementFailed, "no outgoing flow of %s '%s' matches", node.Type, node.ID)
		}
		return taken, nil
	}
}

func arrivalCount(arrivals map[string]interface{}, flowID string) int {
	switch v := arrivals[flowID].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func flowKey(f *bpmn.Flow) string {
	if f.ID != "" {
		return f.ID
	}
	return fmt.Sprintf("%s->%s", f.Source.ID, f.Target.ID)
}

// join records an arrival on an AND-join. The gateway fires once every
// incoming flow has at least one arrival; each firing consumes one arrival
// per flow and the join token closes when none are left.
func (x *execution) join(node *bpmn.Node, via *bpmn.Flow) error {
	tk, ok := x.active[node.ID]
	if !ok {
		var err error
		tk, err = x.createToken(node, states.ACTIVE)
		if err != nil {
			return err
		}
	}

	arrivals := tk.Arrivals.Clone()
	if via != nil {
		arrivals[flowKey(via)] = arrivalCount(arrivals, flowKey(via)) + 1
	}

	for _, f := range node.Incoming {
		if arrivalCount(arrivals, flowKey(f)) == 0 {
			tk.Arrivals = arrivals
			return tk.Update(x.ctx, "Arrivals")
		}
	}

	remaining := 0
	for _, f := range node.Incoming {
		left := arrivalCount(arrivals, flowKey(f)) - 1
		arrivals[flowKey(f)] = left
		remaining += left
	}
	tk.Arrivals = arrivals
	if remaining == 0 {
		if err := x.setStatus(tk, states.CLOSED, TokenClosed, "Arrivals"); err != nil {
			return err
		}
	} else if err := tk.Update(x.ctx, "Arrivals"); err != nil {
		return err
	}
	return x.leave(node)
}
