package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"stride/internal/db"
	"stride/internal/engine"
	"stride/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, mutate func(e *engine.Engine)) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	if mutate != nil {
		mutate(&e)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret}})
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

func login(t *testing.T, srv *testServer, userID string) map[string]string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"user_id": userID,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var body DevLoginResponse
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + body.Token}
}

func TestUnauthenticatedRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/drivers", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestDriverMilestoneActionFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	headers := login(t, srv, "alice")
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/drivers", map[string]any{
		"title": "Health",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create driver status %d: %s", res.StatusCode, string(data))
	}
	var driver DriverResponse
	if err := json.Unmarshal(data, &driver); err != nil {
		t.Fatalf("unmarshal driver: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/milestones", map[string]any{
		"driver_id": driver.ID,
		"title":     "Run 5k",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create milestone status %d: %s", res.StatusCode, string(data))
	}
	var milestone MilestoneResponse
	_ = json.Unmarshal(data, &milestone)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions", map[string]any{
		"milestone_id": milestone.ID,
		"title":        "Jog 20 minutes",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create action status %d: %s", res.StatusCode, string(data))
	}
	var action ActionResponse
	_ = json.Unmarshal(data, &action)
	if action.Status != "planned" {
		t.Fatalf("expected planned, got %s", action.Status)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions/"+action.ID+"/move", map[string]any{
		"status": "in-progress",
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("move status %d: %s", res.StatusCode, string(data))
	}

	// Skipping straight to rolled-over violates the table.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions/"+action.ID+"/move", map[string]any{
		"status": "rolled-over",
	}, headers)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %s", envelope.Error.Code)
	}
}

func TestRunHabitsDefaultsToEngineClock(t *testing.T) {
	day := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	srv, cleanup := newTestServerWith(t, func(e *engine.Engine) {
		e.Now = func() time.Time { return day }
	})
	defer cleanup()
	headers := login(t, srv, "alice")
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/drivers", map[string]any{
		"title": "Health",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create driver status %d: %s", res.StatusCode, string(data))
	}
	var driver DriverResponse
	_ = json.Unmarshal(data, &driver)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/milestones", map[string]any{
		"driver_id": driver.ID,
		"title":     "Daily movement",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create milestone status %d: %s", res.StatusCode, string(data))
	}
	var milestone MilestoneResponse
	_ = json.Unmarshal(data, &milestone)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions", map[string]any{
		"milestone_id": milestone.ID,
		"title":        "Walk",
		"recurrence":   map[string]any{"frequency": "daily"},
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create action status %d: %s", res.StatusCode, string(data))
	}

	// A dateless run must consult the pinned engine clock: on the creation
	// day nothing is due yet, whatever the wall clock says.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/habits/run", map[string]any{}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("run habits status %d: %s", res.StatusCode, string(data))
	}
	var spawned []ActionResponse
	if err := json.Unmarshal(data, &spawned); err != nil {
		t.Fatalf("unmarshal spawned: %v", err)
	}
	if len(spawned) != 0 {
		t.Fatalf("expected no spawn on creation day, got %d", len(spawned))
	}

	// An explicit next day spawns one instance.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/habits/run", map[string]any{
		"date": "2024-03-16",
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("run habits status %d: %s", res.StatusCode, string(data))
	}
	spawned = nil
	if err := json.Unmarshal(data, &spawned); err != nil {
		t.Fatalf("unmarshal spawned: %v", err)
	}
	if len(spawned) != 1 {
		t.Fatalf("expected one spawned instance, got %d", len(spawned))
	}
}

func TestMilestoneWithoutDriverRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	headers := login(t, srv, "alice")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/milestones", map[string]any{
		"driver_id": "ghost",
		"title":     "Floating",
	}, headers)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "referential_integrity" {
		t.Fatalf("expected referential_integrity, got %s", envelope.Error.Code)
	}
}

func TestOnboardingEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	headers := login(t, srv, "bob")
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/onboarding", nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var status OnboardingResponse
	_ = json.Unmarshal(data, &status)
	if status.Onboarded {
		t.Fatalf("fresh user should not be onboarded")
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/onboarding", nil, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("onboard status %d: %s", res.StatusCode, string(data))
	}
	var batch OnboardingResponse
	if err := json.Unmarshal(data, &batch); err != nil {
		t.Fatalf("unmarshal batch: %v", err)
	}
	if len(batch.Drivers) == 0 || len(batch.Milestones) == 0 || len(batch.Actions) == 0 {
		t.Fatalf("expected a populated starter hierarchy: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/onboarding", nil, headers)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second onboard, got %d: %s", res.StatusCode, string(data))
	}
}

func TestUserIsolation(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	alice := login(t, srv, "alice")
	mallory := login(t, srv, "mallory")
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/drivers", map[string]any{
		"title": "Private",
	}, alice)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create driver status %d: %s", res.StatusCode, string(data))
	}
	var driver DriverResponse
	_ = json.Unmarshal(data, &driver)

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/drivers/"+driver.ID, nil, mallory)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for other user's driver, got %d", res.StatusCode)
	}
}
