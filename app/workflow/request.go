package workflow

import (
	"pmflow/app/bpmn"
	"pmflow/app/objects"
	"pmflow/app/workflow/states"
	"pmflow/pkg/contextx"
	"pmflow/pkg/gormx"

	"github.com/google/uuid"
)

// Start creates a request of the current version of processID at the named
// start event and advances it to its first wait states.
func (e *Engine) Start(ctx *contextx.Context, processID, startEvent string, input map[string]interface{}, userID *uint) (*objects.ProcessRequest, error) {
	ctx = e.Bind(ctx)

	process, err := objects.QueryProcessByID(ctx, processID)
	if err != nil {
		return nil, err
	}
	if process == nil {
		return nil, objects.NewError(objects.DefinitionNotFound, "process %s not found", processID)
	}
	version, err := process.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, objects.NewError(objects.DefinitionNotFound, "process %s has no version", processID)
	}
	def, err := e.definition(version)
	if err != nil {
		return nil, err
	}
	start, ok := def.StartEvent(startEvent)
	if !ok {
		return nil, objects.NewError(objects.StartEventNotFound, "start event '%s' not found in process %s", startEvent, processID)
	}

	requestID := uuid.NewString()
	ctx.Set(contextx.ProcessKey, requestID)
	unlock, err := e.locker.Lock(ctx, requestLockKey(requestID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var x *execution
	err = objects.Transaction(ctx, func(subCtx *contextx.Context) error {
		request := objects.NewProcessRequest()
		request.ID = requestID
		request.ProcessID = process.ID
		request.ProcessVersionID = version.ID
		request.Name = process.Name
		request.Status = states.REQUEST_ACTIVE
		request.Data = gormx.MapJson(input).Clone()
		request.StartEventID = start.ID
		request.UserID = userID
		if err := request.Save(subCtx); err != nil {
			return err
		}

		x = newExecution(subCtx, e, request, def, nil)
		x.userID = userID
		x.record(RequestStarted, nil, "", states.REQUEST_ACTIVE, start.ID)
		if len(start.Outgoing) > 0 {
			first := start.Outgoing[0]
			if err := x.arrive(first.Target, first); err != nil {
				return err
			}
		}
		return x.finish()
	})
	if err != nil {
		return nil, err
	}
	e.emit(ctx, x.transitions)
	return x.request, nil
}

// CompleteTask merges data into the request, completes the task token and
// advances past it.
func (e *Engine) CompleteTask(ctx *contextx.Context, tokenID string, data map[string]interface{}, userID *uint) (*objects.ProcessRequestToken, error) {
	found, err := objects.QueryTokenByID(e.Bind(ctx), tokenID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, objects.NewError(objects.TokenNotFound, "token %s not found", tokenID)
	}

	var completed *objects.ProcessRequestToken
	err = e.withRequest(ctx, found.ProcessRequestID, userID, func(x *execution) error {
		tk := x.token(tokenID)
		if tk == nil {
			return objects.NewError(objects.TokenNotFound, "token %s not found", tokenID)
		}
		if !states.IsActive(tk.Status) || !tk.IsUserWork() {
			return objects.NewError(objects.InvalidTokenState, "token %s is %s at %s '%s', not an active task", tk.ID, tk.Status, tk.ElementType, tk.ElementID)
		}
		if !states.IsRequestActive(x.request.Status) {
			return objects.NewError(objects.InvalidRequestState, "request %s is %s", x.request.ID, x.request.Status)
		}
		node, err := x.node(tk)
		if err != nil {
			return err
		}

		x.mergeData(data)
		tk.Data = tk.Data.Merge(data)
		if err := x.setStatus(tk, states.COMPLETED, TaskCompleted, "Data"); err != nil {
			return err
		}
		if err := x.leave(node); err != nil {
			return err
		}
		completed = tk
		return x.finish()
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// catch closes a waiting catch token and advances past it.
func (x *execution) catch(tk *objects.ProcessRequestToken, payload map[string]interface{}) error {
	node, err := x.node(tk)
	if err != nil {
		return err
	}
	x.mergeData(payload)
	tk.Data = tk.Data.Merge(payload)
	if err := x.setStatus(tk, states.CLOSED, EventCaught, "Data"); err != nil {
		return err
	}
	return x.leave(node)
}

func isWaiting(tk *objects.ProcessRequestToken) bool {
	return states.IsActive(tk.Status) && tk.ElementType == "intermediateCatchEvent"
}

// TriggerCatchEvent resumes the branch waiting on tokenID. A token that is
// not waiting fails with TokenNotWaiting and changes nothing.
func (e *Engine) TriggerCatchEvent(ctx *contextx.Context, requestID, tokenID string, payload map[string]interface{}) (*objects.ProcessRequestToken, error) {
	var caught *objects.ProcessRequestToken
	err := e.withRequest(ctx, requestID, nil, func(x *execution) error {
		tk := x.token(tokenID)
		if tk == nil {
			return objects.NewError(objects.TokenNotFound, "token %s not found in request %s", tokenID, requestID)
		}
		if !isWaiting(tk) {
			return objects.NewError(objects.TokenNotWaiting, "token %s is %s at %s '%s'", tk.ID, tk.Status, tk.ElementType, tk.ElementID)
		}
		if !states.IsRequestActive(x.request.Status) {
			return objects.NewError(objects.InvalidRequestState, "request %s is %s", x.request.ID, x.request.Status)
		}
		if err := x.catch(tk, payload); err != nil {
			return err
		}
		caught = tk
		return x.finish()
	})
	if err != nil {
		return nil, err
	}
	return caught, nil
}

// TriggerEvent delivers a message or signal name to every catch token of the
// request waiting on it, in creation order. No waiting token is a no-op.
func (e *Engine) TriggerEvent(ctx *contextx.Context, requestID, eventName string, payload map[string]interface{}) ([]*objects.ProcessRequestToken, error) {
	var caught []*objects.ProcessRequestToken
	err := e.withRequest(ctx, requestID, nil, func(x *execution) error {
		if !states.IsRequestActive(x.request.Status) {
			return nil
		}
		var waiting []*objects.ProcessRequestToken
		for _, tk := range x.tokens {
			if isWaiting(tk) && tk.EventName == eventName && eventName != "" {
				waiting = append(waiting, tk)
			}
		}
		for _, tk := range waiting {
			// an earlier catch may have terminated the request
			if !isWaiting(tk) {
				continue
			}
			if err := x.catch(tk, payload); err != nil {
				return err
			}
			caught = append(caught, tk)
		}
		if len(caught) == 0 {
			return nil
		}
		return x.finish()
	})
	if err != nil {
		return nil, err
	}
	return caught, nil
}

// FireTimers fires the due timer tokens among tokenIDs. Tokens no longer
// ACTIVE or not yet due are skipped, so firing twice is harmless.
func (e *Engine) FireTimers(ctx *contextx.Context, requestID string, tokenIDs []string) (int, error) {
	fired := 0
	err := e.withRequest(ctx, requestID, nil, func(x *execution) error {
		if !states.IsRequestActive(x.request.Status) {
			return nil
		}
		now := x.now()
		for _, id := range tokenIDs {
			tk := x.token(id)
			if tk == nil || !isWaiting(tk) || !bpmn.IsDue(now, tk.DueAt) {
				continue
			}
			if err := x.catch(tk, nil); err != nil {
				return err
			}
			fired++
		}
		if fired == 0 {
			return nil
		}
		return x.finish()
	})
	return fired, err
}

// failTimers marks the first waiting timer of tokenIDs FAILING and the
// request ERROR with cause as its message.
func (e *Engine) failTimers(ctx *contextx.Context, requestID string, tokenIDs []string, cause error) error {
	return e.withRequest(ctx, requestID, nil, func(x *execution) error {
		if !states.IsRequestActive(x.request.Status) {
			return nil
		}
		for _, id := range tokenIDs {
			tk := x.token(id)
			if tk == nil || !isWaiting(tk) {
				continue
			}
			if err := x.fail(tk, cause.Error()); err != nil {
				return err
			}
			return x.finish()
		}
		return nil
	})
}

// Cancel closes every open token of an ACTIVE or ERROR request and marks
// it CANCELED.
func (e *Engine) Cancel(ctx *contextx.Context, requestID string, userID *uint) (*objects.ProcessRequest, error) {
	var canceled *objects.ProcessRequest
	err := e.withRequest(ctx, requestID, userID, func(x *execution) error {
		if !states.IsCancelable(x.request.Status) {
			return objects.NewError(objects.InvalidRequestState, "request %s is %s and can't be canceled", x.request.ID, x.request.Status)
		}
		for _, tk := range x.tokens {
			if states.IsActive(tk.Status) || states.IsFailing(tk.Status) {
				if err := x.setStatus(tk, states.CLOSED, TokenClosed); err != nil {
					return err
				}
			}
		}
		from := x.request.Status
		now := x.now().UTC()
		x.request.Status = states.REQUEST_CANCELED
		x.request.CompletedAt = &now
		x.record(RequestCanceled, nil, from, states.REQUEST_CANCELED, "")
		canceled = x.request
		return x.finish()
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

// DeleteRequest soft deletes a request and its tokens.
func (e *Engine) DeleteRequest(ctx *contextx.Context, requestID string) error {
	return e.withRequest(ctx, requestID, nil, func(x *execution) error {
		for _, tk := range x.tokens {
			if err := tk.Delete(x.ctx); err != nil {
				return err
			}
		}
		return x.request.Delete(x.ctx)
	})
}

// GetRequest returns a request with its tokens in creation order.
func (e *Engine) GetRequest(ctx *contextx.Context, requestID string) (*objects.ProcessRequest, []*objects.ProcessRequestToken, error) {
	ctx = e.Bind(ctx)
	request, err := objects.QueryProcessRequestByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if request == nil {
		return nil, nil, objects.NewError(objects.RequestNotFound, "request %s not found", requestID)
	}
	tokens, err := request.GetTokens(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return request, tokens, nil
}

func (e *Engine) GetTokens(ctx *contextx.Context, requestID string, status interface{}) ([]*objects.ProcessRequestToken, error) {
	if _, _, err := e.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return objects.QueryTokensOfRequest(e.Bind(ctx), requestID, status)
}

func (e *Engine) GetTask(ctx *contextx.Context, tokenID string) (*objects.ProcessRequestToken, error) {
	tk, err := objects.QueryTokenByID(e.Bind(ctx), tokenID)
	if err != nil {
		return nil, err
	}
	if tk == nil || !tk.IsUserWork() {
		return nil, objects.NewError(objects.TokenNotFound, "task %s not found", tokenID)
	}
	return tk, nil
}

func (e *Engine) ListTasks(ctx *contextx.Context, status interface{}, userID interface{}) ([]*objects.ProcessRequestToken, error) {
	return objects.QueryTasks(e.Bind(ctx), status, userID)
}
