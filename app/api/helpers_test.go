package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"pmflow/app/db/dbtest"
	"pmflow/app/db/models"
	"pmflow/app/metrics"
	"pmflow/app/workflow"
	"pmflow/pkg/contextx"
	"pmflow/pkg/lockx"
)

const singleTaskModel = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:pm="http://processmaker.com/BPMN/2.0/Schema.xsd" id="d">
  <bpmn:process id="P1" name="Single Task">
    <bpmn:startEvent id="start1"/>
    <bpmn:task id="task1" pm:assignment="user" pm:assignedUsers="42"/>
    <bpmn:endEvent id="end1"/>
    <bpmn:sequenceFlow id="f1" sourceRef="start1" targetRef="task1"/>
    <bpmn:sequenceFlow id="f2" sourceRef="task1" targetRef="end1"/>
  </bpmn:process>
</bpmn:definitions>`

const messageModel = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" id="d">
  <bpmn:message id="m1" name="approved"/>
  <bpmn:process id="P2">
    <bpmn:startEvent id="start"/>
    <bpmn:intermediateCatchEvent id="wait">
      <bpmn:messageEventDefinition messageRef="m1"/>
    </bpmn:intermediateCatchEvent>
    <bpmn:endEvent id="end"/>
    <bpmn:sequenceFlow id="f1" sourceRef="start" targetRef="wait"/>
    <bpmn:sequenceFlow id="f2" sourceRef="wait" targetRef="end"/>
  </bpmn:process>
</bpmn:definitions>`

var apiPrefix = regexp.MustCompile(`(?i)^.*/api/1\.0`)

type apiHelper struct {
	t       *testing.T
	ctx     *contextx.Context
	engine  *workflow.Engine
	server  *Server
	metrics *metrics.Recorder
	user    *models.User
}

// newAPIHelper serves a fresh database. The acting user is an administrator
// with id 1.
func newAPIHelper(t *testing.T, enforce bool) *apiHelper {
	t.Helper()
	h := &apiHelper{t: t, ctx: dbtest.NewContext(t), metrics: metrics.NewRecorder()}
	h.engine = workflow.NewEngine(h.ctx.GetDB(), lockx.NewMemoryLocker(5*time.Second), workflow.WithListeners(h.metrics))
	h.server = NewServer(h.engine, Options{EnforcePermissions: enforce, Metrics: h.metrics.Handler()})
	h.user = h.createUser(1, "admin", true)
	return h
}

func (h *apiHelper) createUser(id uint, name string, admin bool) *models.User {
	h.t.Helper()
	user := &models.User{ID: id, Username: name, IsAdministrator: admin}
	if err := h.ctx.GetDB().Create(user).Error; err != nil {
		h.t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func (h *apiHelper) actingAs(user *models.User) *apiHelper {
	h.user = user
	return h
}

// apiCall accepts either a path under /api/1.0 or a full url.
func (h *apiHelper) apiCall(method, url string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	url = apiPrefix.ReplaceAllString(url, "")

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	r := httptest.NewRequest(method, BasePath+url, reader)
	r.Header.Set("Content-Type", "application/json")
	if h.user != nil {
		r.Header.Set(userIDHeader, fmt.Sprint(h.user.ID))
	}
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)
	return w
}

func (h *apiHelper) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	h.t.Helper()
	body := map[string]interface{}{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		h.t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func (h *apiHelper) decodeList(w *httptest.ResponseRecorder) []interface{} {
	h.t.Helper()
	var body []interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		h.t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func (h *apiHelper) createProcess(name, bpmnXML string) string {
	h.t.Helper()
	w := h.apiCall(http.MethodPost, "/processes", map[string]interface{}{"name": name, "bpmn": bpmnXML})
	if w.Code != http.StatusCreated {
		h.t.Fatalf("create process: %d %s", w.Code, w.Body.String())
	}
	return h.decode(w)["id"].(string)
}
