package api

import (
	"encoding/json"
	"net/http"

	"pmflow/app/objects"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"
)

const requestIDHeader = "X-Request-Id"

type errorBody struct {
	Kind    objects.ErrorKind `json:"kind"`
	Message string            `json:"message"`
}

// statusOf maps an error kind to its HTTP status.
func statusOf(kind objects.ErrorKind) int {
	switch kind {
	case objects.DefinitionNotFound, objects.StartEventNotFound, objects.RequestNotFound, objects.TokenNotFound:
		return http.StatusNotFound
	case objects.InvalidTokenState, objects.InvalidRequestState, objects.TokenNotWaiting, objects.AdvancementFailed:
		return http.StatusUnprocessableEntity
	case objects.ConcurrentNodeReentry:
		return http.StatusConflict
	case objects.InvalidInput, objects.InvalidDefinition:
		return http.StatusBadRequest
	case objects.Forbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeJSON(ctx *contextx.Context, w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf(ctx, "write response failed, error: %s", err.Error())
	}
}

func writeError(ctx *contextx.Context, w http.ResponseWriter, err error) {
	kind := objects.KindOf(err)
	code := statusOf(kind)
	body := errorBody{Kind: kind, Message: err.Error()}
	if e, ok := err.(*objects.Error); ok {
		body.Message = e.Message
	}
	if code == http.StatusInternalServerError {
		log.Errorf(ctx, "request failed, error: %s", err.Error())
		body.Message = "internal error"
	} else {
		log.Debugf(ctx, "request rejected [%s]: %s", kind, body.Message)
	}
	writeJSON(ctx, w, code, body)
}
