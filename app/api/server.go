// Package api serves the engine over HTTP under /api/1.0.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pmflow/app/objects"
	"pmflow/app/workflow"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

const (
	BasePath     = "/api/1.0"
	userIDHeader = "X-User-Id"
)

// handler returns the status and body of a successful call.
type handler func(ctx *contextx.Context, r *http.Request, ps httprouter.Params) (int, interface{}, error)

type Options struct {
	EnforcePermissions bool
	// served on GET /metrics when set
	Metrics http.Handler
}

type Server struct {
	engine *workflow.Engine
	opts   Options
	router *httprouter.Router
}

func NewServer(engine *workflow.Engine, opts Options) *Server {
	s := &Server{
		engine: engine,
		opts:   opts,
		router: httprouter.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.POST(BasePath+"/process/:process/event/:event", s.handle("requests.create", s.startRequest))
	r.PUT(BasePath+"/task/:task", s.handle("requests.edit", s.completeTask))
	r.PUT(BasePath+"/tasks/:task", s.handle("requests.edit", s.completeTask))
	r.GET(BasePath+"/tasks/:task", s.handle("requests.show", s.getTask))
	r.GET(BasePath+"/tasks", s.handle("requests.show", s.listTasks))

	r.POST(BasePath+"/processes", s.handle("processes.create", s.createProcess))
	r.GET(BasePath+"/processes", s.handle("processes.show", s.listProcesses))
	r.GET(BasePath+"/processes/:process", s.handle("processes.show", s.getProcess))
	r.PUT(BasePath+"/processes/:process", s.handle("processes.edit", s.updateProcess))

	r.GET(BasePath+"/requests/:request", s.handle("requests.show", s.getRequest))
	r.PUT(BasePath+"/requests/:request", s.handle("requests.edit", s.updateRequest))
	r.DELETE(BasePath+"/requests/:request", s.handle("requests.destroy", s.deleteRequest))
	r.GET(BasePath+"/requests/:request/tokens", s.handle("requests.show", s.listTokens))
	r.POST(BasePath+"/requests/:request/events/:event", s.handle("requests.edit", s.triggerEvent))
	r.POST(BasePath+"/requests/:request/tokens/:token/catch", s.handle("requests.edit", s.catchEvent))

	if s.opts.Metrics != nil {
		r.Handler(http.MethodGet, "/metrics", s.opts.Metrics)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// newContext builds the call context from the request headers. The request
// id is echoed back so callers can find the call in the logs.
func newContext(w http.ResponseWriter, r *http.Request) (*contextx.Context, error) {
	ctx := contextx.NewContext().WithContext(r.Context())

	requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if requestID == "" {
		requestID = fmt.Sprintf("req-%s", uuid.NewString())
	}
	ctx.Set(contextx.RequestIDKey, requestID)
	w.Header().Set(requestIDHeader, requestID)

	if raw := strings.TrimSpace(r.Header.Get(userIDHeader)); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return ctx, objects.NewError(objects.InvalidInput, "invalid %s header %q", userIDHeader, raw)
		}
		ctx.SetUserID(uint(id))
	}
	return ctx, nil
}

// authorize loads the acting user and checks the route permission.
func (s *Server) authorize(ctx *contextx.Context, permission string) error {
	userID := ctx.GetUserID()
	if userID == nil {
		if s.opts.EnforcePermissions {
			return objects.NewError(objects.Forbidden, "%s header is required", userIDHeader)
		}
		return nil
	}
	user, err := objects.QueryUserByID(ctx, *userID)
	if err != nil {
		return err
	}
	if user != nil && user.IsAdministrator {
		ctx.SetAdmin(true)
	}
	if !s.opts.EnforcePermissions {
		return nil
	}
	if user == nil {
		return objects.NewError(objects.Forbidden, "unknown user %d", *userID)
	}
	ok, err := objects.UserHasPermission(ctx, *userID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return objects.NewError(objects.Forbidden, "user %d lacks permission %s", *userID, permission)
	}
	return nil
}

func (s *Server) handle(permission string, h handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		ctx, err := newContext(w, r)
		ctx = s.engine.Bind(ctx)
		if err == nil {
			err = s.authorize(ctx, permission)
		}
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		code, body, err := h(ctx, r, ps)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, code, body)
		log.Debugf(ctx, "%s %s %d in %s", r.Method, r.URL.Path, code, time.Since(start))
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
