package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"staffdesk/internal/config"
	"staffdesk/internal/db"
	"staffdesk/internal/domain"
	"staffdesk/internal/engine"
	"staffdesk/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("staffdesk"))
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func createProject(t *testing.T, srv *testServer, name string) domain.Project {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"project_name": name,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project status %d: %s", res.StatusCode, string(data))
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	return p
}

func TestApprovalFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	p := createProject(t, srv, "Orbit rollout")
	base := fmt.Sprintf("%s/v0/projects/%d", srv.URL, p.ProjectID)

	res, data := doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{
		"action":     "request",
		"actor_name": "Asha",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("request status %d: %s", res.StatusCode, string(data))
	}
	var out ApprovalResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal approval: %v", err)
	}
	if !out.Changed || out.Project.ApprovalStatus != "in_review" {
		t.Fatalf("expected changed in_review, got changed=%v status=%s", out.Changed, out.Project.ApprovalStatus)
	}
	if out.Project.ApprovalRequestedAt == nil || out.Project.ApprovalRequestedBy == nil {
		t.Fatalf("expected request stamps, got %+v", out.Project)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{
		"action":  "approve",
		"comment": "Plan looks solid",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d: %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal approve: %v", err)
	}
	if out.Project.ApprovalStatus != "approved" || out.Project.ApprovalReason != "Plan looks solid" {
		t.Fatalf("unexpected approved project: %+v", out.Project)
	}

	histRes, histBody := doJSON(t, client, http.MethodGet, base+"/history", nil, nil)
	if histRes.StatusCode != http.StatusOK {
		t.Fatalf("history status %d: %s", histRes.StatusCode, string(histBody))
	}
	var hist []domain.StatusHistoryEntry
	if err := json.Unmarshal(histBody, &hist); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(hist))
	}
	if hist[0].Status != "approved" || hist[1].Status != "in_review" {
		t.Fatalf("history not newest first: %+v", hist)
	}
}

func TestApprovalNoOpAndReject(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	p := createProject(t, srv, "Ledger migration")
	base := fmt.Sprintf("%s/v0/projects/%d", srv.URL, p.ProjectID)

	// approve from draft is a no-op, not an error
	res, data := doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{"action": "approve"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("no-op approve status %d: %s", res.StatusCode, string(data))
	}
	var out ApprovalResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Changed || out.Project.ApprovalStatus != "draft" {
		t.Fatalf("expected unchanged draft, got %+v", out)
	}

	doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{"action": "request"}, nil)

	res, data = doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{"action": "reject"}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for reject without comment, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q in %s", envelope.Error.Code, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{
		"action":  "reject",
		"comment": "Budget section incomplete",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reject status %d: %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal reject: %v", err)
	}
	if out.Project.ApprovalStatus != "rejected" || out.Project.ApprovalReason != "Budget section incomplete" {
		t.Fatalf("unexpected rejected project: %+v", out.Project)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{"action": "escalate"}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "unsupported_action" {
		t.Fatalf("expected unsupported_action, got %q", envelope.Error.Code)
	}
}

func TestApprovalMissingProject(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/projects/99999/approval", map[string]any{
		"action": "request",
	}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
}

func TestChecklistUpdate(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	p := createProject(t, srv, "Warehouse sync")
	base := fmt.Sprintf("%s/v0/projects/%d/checklist", srv.URL, p.ProjectID)

	res, data := doJSON(t, client, http.MethodPut, base, map[string]any{
		"items": map[string]any{
			"scope":    map[string]any{"status": "done"},
			"staffing": map[string]any{"status": "done"},
			"budget":   map[string]any{"status": "in_progress"},
			"risk":     map[string]any{"status": "blocked"},
			"kickoff":  map[string]any{"status": "not_started"},
		},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("checklist status %d: %s", res.StatusCode, string(data))
	}
	var state struct {
		Percent        int `json:"percent"`
		CompletedItems int `json:"completed_items"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	// scope 25 + staffing 20 + half of budget 20 = 55
	if state.Percent != 55 {
		t.Fatalf("expected percent 55, got %d", state.Percent)
	}
	if state.CompletedItems != 2 {
		t.Fatalf("expected 2 completed items, got %d", state.CompletedItems)
	}

	res, data = doJSON(t, client, http.MethodPut, base, map[string]any{
		"items": map[string]any{
			"scope": map[string]any{"status": "done", "due_date": "soon"},
		},
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad due_date, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPut, base, map[string]any{
		"items": map[string]any{
			"launch_party": map[string]any{"status": "done"},
		},
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown task, got %d: %s", res.StatusCode, string(data))
	}
}

func TestCommentWorkflow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	p := createProject(t, srv, "Portal refresh")
	base := fmt.Sprintf("%s/v0/projects/%d/comments", srv.URL, p.ProjectID)

	res, data := doJSON(t, client, http.MethodPost, base, map[string]any{
		"section":  "overview",
		"comment":  "Timeline is too optimistic",
		"severity": "warning",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create comment status %d: %s", res.StatusCode, string(data))
	}
	var c domain.ReviewerComment
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal comment: %v", err)
	}
	if c.ID == "" || c.Resolved {
		t.Fatalf("unexpected comment: %+v", c)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/comments/"+c.ID+"/resolve", map[string]any{
		"resolved": true,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolve status %d: %s", res.StatusCode, string(data))
	}
	var resolved domain.ReviewerComment
	if err := json.Unmarshal(data, &resolved); err != nil {
		t.Fatalf("unmarshal resolved: %v", err)
	}
	if !resolved.Resolved || resolved.ResolvedAt == nil {
		t.Fatalf("expected resolved comment, got %+v", resolved)
	}

	// resolving again is idempotent
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/comments/"+c.ID+"/resolve", map[string]any{
		"resolved": true,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("re-resolve status %d: %s", res.StatusCode, string(data))
	}
	var again domain.ReviewerComment
	_ = json.Unmarshal(data, &again)
	if again.ResolvedAt == nil || *again.ResolvedAt != *resolved.ResolvedAt {
		t.Fatalf("resolve not idempotent: %+v vs %+v", resolved, again)
	}

	listRes, listBody := doJSON(t, client, http.MethodGet, base+"?resolved=true", nil, nil)
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", listRes.StatusCode, string(listBody))
	}
	var comments []domain.ReviewerComment
	if err := json.Unmarshal(listBody, &comments); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected 1 resolved comment, got %d", len(comments))
	}

	res, data = doJSON(t, client, http.MethodPost, base, map[string]any{
		"section": "frontend",
		"comment": "bad section",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad section, got %d: %s", res.StatusCode, string(data))
	}
}

func TestTimelineAccumulates(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	p := createProject(t, srv, "Audit prep")
	base := fmt.Sprintf("%s/v0/projects/%d", srv.URL, p.ProjectID)

	doJSON(t, client, http.MethodPost, base+"/approval", map[string]any{"action": "request"}, nil)
	doJSON(t, client, http.MethodPost, base+"/comments", map[string]any{
		"section": "approval",
		"comment": "Needs legal sign-off",
	}, nil)

	res, data := doJSON(t, client, http.MethodGet, base+"/timeline", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("timeline status %d: %s", res.StatusCode, string(data))
	}
	var timeline []domain.TimelineEntry
	if err := json.Unmarshal(data, &timeline); err != nil {
		t.Fatalf("unmarshal timeline: %v", err)
	}
	// creation + request + comment
	if len(timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d: %s", len(timeline), string(data))
	}
	if timeline[1].Label != "In review status" {
		t.Fatalf("unexpected label: %q", timeline[1].Label)
	}
}

func TestUnauthenticatedWrite(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v0/projects", bytes.NewReader([]byte(`{"project_name":"x"}`)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", res.StatusCode)
	}
}

func TestHealthNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, err := http.Get(srv.URL + "/v0/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}
