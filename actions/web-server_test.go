package actions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/relloyd/starpipe/pipeline"
	"github.com/relloyd/starpipe/rdbms/shared"
)

func newTestRouter(t *testing.T) (*mux.Router, *runRegistry, chan string) {
	runs := newRunRegistry()
	chanStop := make(chan string, 1)
	return newRouter(testLogger(), testConfig(t), runs, chanStop), runs, chanStop
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func waitForRun(t *testing.T, runs *runRegistry, id string) {
	ri, ok := runs.load(id)
	if !ok {
		t.Fatalf("run %v not registered", id)
	}
	select {
	case <-ri.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for run %v", id)
	}
}

func launch(t *testing.T, r http.Handler, body string) string {
	w := serve(r, http.MethodPost, "/runs", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202; got %v: %v", w.Code, w.Body.String())
	}
	resp := struct {
		Status string `json:"status"`
		RunId  string `json:"runId"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.RunId == "" {
		t.Fatalf("unexpected launch response %v", w.Body.String())
	}
	return resp.RunId
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status": "ok"`) {
		t.Fatalf("unexpected health response %v %v", w.Code, w.Body.String())
	}
}

func TestStopServer(t *testing.T) {
	r, _, chanStop := newTestRouter(t)
	if w := serve(r, http.MethodGet, "/stop", ""); w.Code != http.StatusOK {
		t.Fatalf("unexpected stop response %v", w.Code)
	}
	select {
	case <-chanStop:
	default:
		t.Fatal("stop signal not sent")
	}
}

func TestRunLifecycle(t *testing.T) {
	_, ch, _ := useMockWarehouse(t)
	r, runs, _ := newTestRouter(t)
	id := launch(t, r, `{"plan": "create"}`)
	waitForRun(t, runs, id)
	if n := len(drain(ch)); n != 7 {
		t.Fatalf("expected 7 statements; got %v", n)
	}
	w := serve(r, http.MethodGet, "/runs/"+id+"/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status code %v", w.Code)
	}
	resp := struct {
		Run struct {
			RunId  string `json:"runId"`
			Status string `json:"status"`
			Steps  []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"steps"`
		} `json:"run"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Run.RunId != id || resp.Run.Status != "complete" || len(resp.Run.Steps) != 7 {
		t.Fatalf("unexpected run status %v", w.Body.String())
	}
	if resp.Run.Steps[0].Name != "create_staging_events" || resp.Run.Steps[0].Status != "complete" {
		t.Fatalf("unexpected first step %+v", resp.Run.Steps[0])
	}
	// The finished run is listed.
	w = serve(r, http.MethodGet, "/runs", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), id) {
		t.Fatalf("run missing from list: %v", w.Body.String())
	}
}

func TestRunLaunchRejectsSecondRun(t *testing.T) {
	db, _, _ := useMockWarehouse(t)
	release := make(chan struct{})
	db.ExecFn = func(query string) (shared.Result, error) {
		<-release
		return nil, nil
	}
	r, runs, _ := newTestRouter(t)
	id := launch(t, r, "")
	w := serve(r, http.MethodPost, "/runs", `{"plan": "load"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a run is active; got %v", w.Code)
	}
	close(release)
	waitForRun(t, runs, id)
	// The slot is free again once the run ends.
	db.ExecFn = nil
	id2 := launch(t, r, `{"plan": "drop"}`)
	waitForRun(t, runs, id2)
}

func TestRunLaunchBadRequests(t *testing.T) {
	useMockWarehouse(t)
	r, _, _ := newTestRouter(t)
	if w := serve(r, http.MethodPost, "/runs", `{not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON; got %v", w.Code)
	}
	if w := serve(r, http.MethodPost, "/runs", `{"plan": "run", "steps": ["nope"]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown step; got %v", w.Code)
	}
	// A rejected request does not hold the run slot.
	launch(t, r, `{"plan": "drop", "dryRun": true}`)
}

func TestRunStopCancelsRemainingSteps(t *testing.T) {
	db, _, _ := useMockWarehouse(t)
	release := make(chan struct{})
	db.ExecFn = func(query string) (shared.Result, error) {
		<-release
		return nil, nil
	}
	r, runs, _ := newTestRouter(t)
	id := launch(t, r, `{"plan": "transform"}`)
	w := serve(r, http.MethodPost, "/runs/"+id+"/stop", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "stopping") {
		t.Fatalf("unexpected stop response %v %v", w.Code, w.Body.String())
	}
	close(release)
	waitForRun(t, runs, id)
	ri, _ := runs.load(id)
	st := ri.runner.Status()
	if st.Status != pipeline.StatusCancelled {
		t.Fatalf("expected cancelled run; got %v", st.Status)
	}
	if st.Steps[len(st.Steps)-1].Status != pipeline.StatusSkipped {
		t.Fatalf("expected the last step to be skipped; got %v", st.Steps[len(st.Steps)-1].Status)
	}
}

func TestUnknownRun(t *testing.T) {
	r, _, _ := newTestRouter(t)
	if w := serve(r, http.MethodGet, "/runs/abc/status", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404; got %v", w.Code)
	}
	if w := serve(r, http.MethodPost, "/runs/abc/stop", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404; got %v", w.Code)
	}
}
