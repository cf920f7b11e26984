package workflow

import (
	"fmt"
	"time"

	"pmflow/app/bpmn"
	"pmflow/app/objects"
	"pmflow/app/workflow/states"
	"pmflow/pkg/contextx"
	"pmflow/pkg/gormx"
)

// maxSteps bounds how many nodes one operation may pass through, so a
// cycle of automated nodes fails instead of spinning.
const maxSteps = 1000

// execution applies one operation to a request inside its transaction.
type execution struct {
	ctx     *contextx.Context
	engine  *Engine
	request *objects.ProcessRequest
	def     bpmn.ResolvedDefinition
	userID  *uint

	tokens      []*objects.ProcessRequestToken
	active      map[string]*objects.ProcessRequestToken
	nextSeq     int
	steps       int
	halted      bool
	transitions []Transition
}

func newExecution(ctx *contextx.Context, engine *Engine, request *objects.ProcessRequest, def bpmn.ResolvedDefinition, tokens []*objects.ProcessRequestToken) *execution {
	x := &execution{
		ctx:     ctx,
		engine:  engine,
		request: request,
		def:     def,
		tokens:  tokens,
		active:  map[string]*objects.ProcessRequestToken{},
		nextSeq: 1,
	}
	for _, tk := range tokens {
		if states.IsActive(tk.Status) {
			x.active[tk.ElementID] = tk
		}
		if tk.Sequence >= x.nextSeq {
			x.nextSeq = tk.Sequence + 1
		}
	}
	return x
}

func (x *execution) now() time.Time {
	return x.engine.now()
}

func (x *execution) record(kind string, tk *objects.ProcessRequestToken, from, to, msg string) {
	t := Transition{
		Kind:      kind,
		RequestID: x.request.ID,
		ProcessID: x.request.ProcessID,
		From:      from,
		To:        to,
		UserID:    x.userID,
		Message:   msg,
		At:        x.now(),
	}
	if tk != nil {
		t.TokenID = tk.ID
		t.ElementID = tk.ElementID
		t.ElementType = tk.ElementType
	}
	x.transitions = append(x.transitions, t)
}

func (x *execution) token(id string) *objects.ProcessRequestToken {
	for _, tk := range x.tokens {
		if tk.ID == id {
			return tk
		}
	}
	return nil
}

func (x *execution) activeTokens() []*objects.ProcessRequestToken {
	var result []*objects.ProcessRequestToken
	for _, tk := range x.tokens {
		if states.IsActive(tk.Status) {
			result = append(result, tk)
		}
	}
	return result
}

func (x *execution) node(tk *objects.ProcessRequestToken) (*bpmn.Node, error) {
	n, ok := x.def.Node(tk.ElementID)
	if !ok {
		return nil, objects.NewError(objects.InvalidDefinition, "element '%s' of token %s is not in the definition", tk.ElementID, tk.ID)
	}
	return n, nil
}

// createToken opens a token at node. Only one ACTIVE token may sit on an
// element of a request at a time.
func (x *execution) createToken(node *bpmn.Node, status string) (*objects.ProcessRequestToken, error) {
	if states.IsActive(status) {
		if existing, ok := x.active[node.ID]; ok {
			return nil, objects.NewError(objects.ConcurrentNodeReentry,
				"element '%s' already has active token %s in request %s", node.ID, existing.ID, x.request.ID)
		}
	}

	tk := objects.NewProcessRequestToken()
	tk.ProcessRequestID = x.request.ID
	tk.ProcessID = x.request.ProcessID
	tk.ElementID = node.ID
	tk.ElementType = node.Type
	tk.ElementName = node.Name
	tk.Status = status
	tk.Sequence = x.nextSeq
	tk.Data = gormx.MapJson{}

	if node.IsUserWork() {
		tk.UserID = x.def.Assignee(node.ID)
	}
	if node.IsCatchEvent() {
		switch node.EventKind {
		case bpmn.EventTimer:
			due, err := node.DueAt(x.now())
			if err != nil {
				return nil, objects.NewError(objects.InvalidDefinition, "timer '%s': %s", node.ID, err.Error())
			}
			due = due.UTC()
			tk.DueAt = &due
		default:
			tk.EventName = node.EventName
		}
	}
	if states.IsTerminated(status) {
		now := x.now().UTC()
		tk.CompletedAt = &now
	}

	if err := tk.Save(x.ctx); err != nil {
		return nil, fmt.Errorf("create token at '%s': %w", node.ID, err)
	}
	x.nextSeq++
	x.tokens = append(x.tokens, tk)
	if states.IsActive(status) {
		x.active[node.ID] = tk
	}
	x.record(TokenCreated, tk, "", status, "")
	return tk, nil
}

// setStatus moves a token and persists the move.
func (x *execution) setStatus(tk *objects.ProcessRequestToken, status, kind string, extraFields ...string) error {
	from := tk.Status
	if err := tk.SetStatus(status); err != nil {
		return objects.NewError(objects.InvalidTokenState, "%s", err.Error())
	}
	if x.active[tk.ElementID] == tk {
		delete(x.active, tk.ElementID)
	}
	fields := append(append([]string{}, objects.StatusFields...), extraFields...)
	if err := tk.Update(x.ctx, fields...); err != nil {
		return err
	}
	x.record(kind, tk, from, status, "")
	return nil
}

// arrive moves control onto node, reached through via (nil at start).
func (x *execution) arrive(node *bpmn.Node, via *bpmn.Flow) error {
	if x.halted {
		return nil
	}
	x.steps++
	if x.steps > maxSteps {
		return objects.NewError(objects.AdvancementFailed, "advancement passed %d elements without reaching a wait state", maxSteps)
	}

	switch {
	case node.Type == bpmn.EndEvent:
		if node.IsTerminateEnd() {
			return x.terminate()
		}
		return nil
	case node.IsUserWork() || node.IsCatchEvent():
		_, err := x.createToken(node, states.ACTIVE)
		return err
	case node.IsAutomated():
		return x.runScript(node)
	case node.Type == bpmn.ParallelGateway && node.IsJoin():
		return x.join(node, via)
	default:
		// gateways without a join, throw events and start events
		return x.leave(node)
	}
}

// leave follows the outgoing flows node selects.
func (x *execution) leave(node *bpmn.Node) error {
	flows, err := x.selectFlows(node)
	if err != nil {
		return err
	}
	for _, f := range flows {
		if err := x.arrive(f.Target, f); err != nil {
			return err
		}
	}
	return nil
}

// terminate closes every ACTIVE token; the request completes in finish.
func (x *execution) terminate() error {
	for _, tk := range x.activeTokens() {
		if err := x.setStatus(tk, states.CLOSED, TokenClosed); err != nil {
			return err
		}
	}
	x.halted = true
	return nil
}

// fail records a failed automated step: the request moves to ERROR and no
// further advancement happens in this operation.
func (x *execution) fail(tk *objects.ProcessRequestToken, msg string) error {
	if err := x.setStatus(tk, states.FAILING, TokenFailed); err != nil {
		return err
	}
	from := x.request.Status
	x.request.Status = states.REQUEST_ERROR
	x.request.ErrorMessage = msg
	x.record(RequestFailed, nil, from, states.REQUEST_ERROR, msg)
	x.halted = true
	return nil
}

func (x *execution) mergeData(data map[string]interface{}) {
	x.request.Data = x.request.Data.Merge(data)
}

// finish completes the request when nothing is left ACTIVE and persists it.
func (x *execution) finish() error {
	if states.IsRequestActive(x.request.Status) && len(x.activeTokens()) == 0 {
		now := x.now().UTC()
		x.request.Status = states.REQUEST_COMPLETED
		x.request.CompletedAt = &now
		x.record(RequestCompleted, nil, states.REQUEST_ACTIVE, states.REQUEST_COMPLETED, "")
	}
	return x.request.Update(x.ctx, "Status", "Data", "ErrorMessage", "CompletedAt")
}
