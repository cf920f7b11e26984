package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"pmflow/app/db/models"
	"pmflow/app/objects"
	"pmflow/app/workflow"
	"pmflow/app/workflow/states"
	"pmflow/pkg/contextx"

	"github.com/julienschmidt/httprouter"
)

const maxBodySize = 8 << 20

type requestView struct {
	*models.ProcessRequest
	Tokens []*models.ProcessRequestToken `json:"tokens"`
}

type processView struct {
	*models.Process
	CurrentVersion *models.ProcessVersion `json:"current_version,omitempty"`
}

func newRequestView(request *objects.ProcessRequest, tokens []*objects.ProcessRequestToken) requestView {
	return requestView{ProcessRequest: request.ProcessRequest, Tokens: tokenModels(tokens)}
}

func tokenModels(tokens []*objects.ProcessRequestToken) []*models.ProcessRequestToken {
	result := make([]*models.ProcessRequestToken, 0, len(tokens))
	for _, tk := range tokens {
		result = append(result, tk.ProcessRequestToken)
	}
	return result
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return objects.NewError(objects.InvalidInput, "read body: %s", err.Error())
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return objects.NewError(objects.InvalidInput, "body is not valid JSON: %s", err.Error())
	}
	return nil
}

func (s *Server) startRequest(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	data := map[string]interface{}{}
	if err := decodeBody(r, &data); err != nil {
		return 0, nil, err
	}
	request, err := s.engine.Start(ctx, ps.ByName("process"), ps.ByName("event"), data, ctx.GetUserID())
	if err != nil {
		return 0, nil, err
	}
	tokens, err := s.engine.GetTokens(ctx, request.ID, nil)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, newRequestView(request, tokens), nil
}

type taskUpdate struct {
	Status string                 `json:"status"`
	Data   map[string]interface{} `json:"data"`
}

func (s *Server) completeTask(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	var body taskUpdate
	if err := decodeBody(r, &body); err != nil {
		return 0, nil, err
	}
	if body.Status != states.COMPLETED {
		return 0, nil, objects.NewError(objects.InvalidTokenState, "status must be %s, got %q", states.COMPLETED, body.Status)
	}

	task, err := s.engine.GetTask(ctx, ps.ByName("task"))
	if err != nil {
		return 0, nil, err
	}
	if s.opts.EnforcePermissions && task.UserID != nil && !ctx.IsAdmin() {
		if userID := ctx.GetUserID(); userID == nil || *userID != *task.UserID {
			return 0, nil, objects.NewError(objects.Forbidden, "task %s is assigned to another user", task.ID)
		}
	}

	completed, err := s.engine.CompleteTask(ctx, task.ID, body.Data, ctx.GetUserID())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, completed.ProcessRequestToken, nil
}

func (s *Server) getTask(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	task, err := s.engine.GetTask(ctx, ps.ByName("task"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, task.ProcessRequestToken, nil
}

func (s *Server) listTasks(ctx *contextx.Context, r *http.Request, _ httprouter.Params) (int, interface{}, error) {
	var status, userID interface{}
	query := r.URL.Query()
	if v := query.Get("status"); v != "" {
		if !states.IsValidTokenState(v) {
			return 0, nil, objects.NewError(objects.InvalidInput, "unknown status %q", v)
		}
		status = v
	}
	if v := query.Get("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, nil, objects.NewError(objects.InvalidInput, "invalid user_id %q", v)
		}
		userID = uint(id)
	}
	tasks, err := s.engine.ListTasks(ctx, status, userID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, tokenModels(tasks), nil
}

type processBody struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Bpmn        *string                `json:"bpmn"`
	Users       map[string]interface{} `json:"users"`
}

func (s *Server) createProcess(ctx *contextx.Context, r *http.Request, _ httprouter.Params) (int, interface{}, error) {
	var body processBody
	if err := decodeBody(r, &body); err != nil {
		return 0, nil, err
	}
	if body.Name == nil || body.Bpmn == nil {
		return 0, nil, objects.NewError(objects.InvalidInput, "name and bpmn are required")
	}
	description := ""
	if body.Description != nil {
		description = *body.Description
	}
	process, err := s.engine.CreateProcess(ctx, *body.Name, description, *body.Bpmn, body.Users)
	if err != nil {
		return 0, nil, err
	}
	return s.processResponse(ctx, http.StatusCreated, process.ID)
}

func (s *Server) processResponse(ctx *contextx.Context, code int, processID string) (int, interface{}, error) {
	process, version, err := s.engine.GetProcess(ctx, processID)
	if err != nil {
		return 0, nil, err
	}
	view := processView{Process: process.Process}
	if version != nil {
		view.CurrentVersion = version.ProcessVersion
	}
	return code, view, nil
}

func (s *Server) listProcesses(ctx *contextx.Context, r *http.Request, _ httprouter.Params) (int, interface{}, error) {
	processes, err := s.engine.ListProcesses(ctx)
	if err != nil {
		return 0, nil, err
	}
	result := make([]*models.Process, 0, len(processes))
	for _, p := range processes {
		result = append(result, p.Process)
	}
	return http.StatusOK, result, nil
}

func (s *Server) getProcess(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	return s.processResponse(ctx, http.StatusOK, ps.ByName("process"))
}

func (s *Server) updateProcess(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	var body processBody
	if err := decodeBody(r, &body); err != nil {
		return 0, nil, err
	}
	process, err := s.engine.UpdateProcess(ctx, ps.ByName("process"), workflow.ProcessUpdate{
		Name:        body.Name,
		Description: body.Description,
		Bpmn:        body.Bpmn,
		Users:       body.Users,
	})
	if err != nil {
		return 0, nil, err
	}
	return s.processResponse(ctx, http.StatusOK, process.ID)
}

func (s *Server) getRequest(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	request, tokens, err := s.engine.GetRequest(ctx, ps.ByName("request"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, newRequestView(request, tokens), nil
}

func (s *Server) listTokens(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	var status interface{}
	if v := r.URL.Query().Get("status"); v != "" {
		if !states.IsValidTokenState(v) {
			return 0, nil, objects.NewError(objects.InvalidInput, "unknown status %q", v)
		}
		status = v
	}
	tokens, err := s.engine.GetTokens(ctx, ps.ByName("request"), status)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, tokenModels(tokens), nil
}

func (s *Server) updateRequest(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		return 0, nil, err
	}
	if body.Status != states.REQUEST_CANCELED {
		return 0, nil, objects.NewError(objects.InvalidRequestState, "status must be %s, got %q", states.REQUEST_CANCELED, body.Status)
	}
	if _, err := s.engine.Cancel(ctx, ps.ByName("request"), ctx.GetUserID()); err != nil {
		return 0, nil, err
	}
	return s.getRequest(ctx, r, ps)
}

func (s *Server) deleteRequest(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	if err := s.engine.DeleteRequest(ctx, ps.ByName("request")); err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, nil
}

func (s *Server) triggerEvent(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	payload := map[string]interface{}{}
	if err := decodeBody(r, &payload); err != nil {
		return 0, nil, err
	}
	caught, err := s.engine.TriggerEvent(ctx, ps.ByName("request"), ps.ByName("event"), payload)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, tokenModels(caught), nil
}

func (s *Server) catchEvent(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error) {
	payload := map[string]interface{}{}
	if err := decodeBody(r, &payload); err != nil {
		return 0, nil, err
	}
	caught, err := s.engine.TriggerCatchEvent(ctx, ps.ByName("request"), ps.ByName("token"), payload)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, caught.ProcessRequestToken, nil
}
