package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-enrollment/internal/config"
	"github.com/jwalitptl/health-enrollment/internal/repository/memory"
	"github.com/jwalitptl/health-enrollment/pkg/messaging"
)

var now = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

type testServer struct {
	t     *testing.T
	app   *App
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return now }

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: gin.TestMode, RequestTimeout: 5 * time.Second},
		Auth:    config.AuthConfig{Secret: "test-secret", Issuer: "health-enrollment", CacheTTL: time.Minute},
		Redis:   config.RedisConfig{Channel: "enrollments"},
		Report:  config.ReportConfig{CacheTTL: time.Minute},
		Storage: config.StorageConfig{Driver: "memory"},
	}

	a, err := New(context.Background(), cfg,
		WithStore(memory.NewStore(memory.WithClock(clock))),
		WithBroker(messaging.NopBroker{}),
		WithClock(clock),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	token, err := a.Tokens.Issue("tester", time.Hour)
	require.NoError(t, err)
	return &testServer{t: t, app: a, token: token}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.app.Router.Engine().ServeHTTP(w, req)
	return w
}

func (s *testServer) json(method, path string, body interface{}, status int) map[string]interface{} {
	s.t.Helper()
	w := s.do(method, path, body)
	require.Equal(s.t, status, w.Code, w.Body.String())
	var out map[string]interface{}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) list(path string, status int) []interface{} {
	s.t.Helper()
	w := s.do(http.MethodGet, path, nil)
	require.Equal(s.t, status, w.Code, w.Body.String())
	var out []interface{}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func johnDoe() map[string]interface{} {
	return map[string]interface{}{
		"first_name":    "John",
		"last_name":     "Doe",
		"date_of_birth": "1990-01-15",
		"gender":        "M",
		"phone_number":  "1234567890",
		"email":         "john@example.com",
		"address":       "123 Main St",
		"national_id":   "ID12345",
	}
}

func janeSmith() map[string]interface{} {
	return map[string]interface{}{
		"first_name":    "Jane",
		"last_name":     "Smith",
		"date_of_birth": "1985-05-20",
		"gender":        "F",
		"phone_number":  "0987654321",
		"email":         "jane@example.com",
		"national_id":   "ID67890",
	}
}

type seeded struct {
	john, jane string
	hiv, tb    string
}

func (s *testServer) seed() seeded {
	s.t.Helper()
	var out seeded
	out.john = s.json(http.MethodPost, "/api/v1/manage/clients", johnDoe(), http.StatusCreated)["id"].(string)
	out.jane = s.json(http.MethodPost, "/api/v1/manage/clients", janeSmith(), http.StatusCreated)["id"].(string)
	out.hiv = s.json(http.MethodPost, "/api/v1/manage/programs",
		map[string]string{"name": "HIV Care", "description": "Antiretroviral therapy"}, http.StatusCreated)["id"].(string)
	out.tb = s.json(http.MethodPost, "/api/v1/manage/programs",
		map[string]string{"name": "TB Treatment", "description": "Tuberculosis"}, http.StatusCreated)["id"].(string)

	res := s.json(http.MethodPost, "/api/v1/manage/clients/"+out.john+"/enroll", map[string]interface{}{
		"program_ids":     []string{out.hiv, out.tb},
		"enrollment_date": "2026-10-01",
		"notes":           "initial intake",
	}, http.StatusOK)
	require.EqualValues(s.t, 2, res["created"])

	res = s.json(http.MethodPost, "/api/v1/manage/enrollments", map[string]interface{}{
		"client_id":       out.jane,
		"program_ids":     []string{out.hiv},
		"enrollment_date": "2026-09-12",
	}, http.StatusOK)
	require.EqualValues(s.t, 1, res["created"])
	return out
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	for _, path := range []string{"/api/v1/clients", "/api/v1/programs", "/api/v1/manage/dashboard"} {
		w := s.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	s.token = "garbage"
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/clients", nil).Code)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/ready", nil).Code)

	w := s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "enrollment_http_requests_total")
}

func TestReadAPI_ClientScenario(t *testing.T) {
	s := newTestServer(t)
	ids := s.seed()

	page := s.json(http.MethodGet, "/api/v1/clients?search=doe", nil, http.StatusOK)
	assert.EqualValues(t, 1, page["count"])
	results := page["results"].([]interface{})
	require.Len(t, results, 1)
	john := results[0].(map[string]interface{})
	assert.Equal(t, "John Doe", john["full_name"])
	assert.EqualValues(t, 36, john["age"])

	page = s.json(http.MethodGet, "/api/v1/clients?gender=F", nil, http.StatusOK)
	require.EqualValues(t, 1, page["count"])
	assert.Equal(t, "Jane", page["results"].([]interface{})[0].(map[string]interface{})["first_name"])

	page = s.json(http.MethodGet, "/api/v1/clients?search=ID678", nil, http.StatusOK)
	assert.EqualValues(t, 1, page["count"])

	detail := s.json(http.MethodGet, "/api/v1/clients/"+ids.john, nil, http.StatusOK)
	enrollments := detail["enrollments"].([]interface{})
	require.Len(t, enrollments, 2)
	for _, e := range enrollments {
		program := e.(map[string]interface{})["program"].(map[string]interface{})
		assert.Contains(t, []string{"HIV Care", "TB Treatment"}, program["name"])
	}
	assert.NotContains(t, detail, "available_programs")

	standalone := s.list("/api/v1/clients/"+ids.jane+"/enrollments", http.StatusOK)
	require.Len(t, standalone, 1)
	assert.Equal(t, ids.hiv, standalone[0].(map[string]interface{})["program"].(map[string]interface{})["id"])
}

func TestReadAPI_ProgramClientsHaveNoDuplicates(t *testing.T) {
	s := newTestServer(t)
	ids := s.seed()

	// enrolling again updates the existing row
	res := s.json(http.MethodPost, "/api/v1/manage/clients/"+ids.john+"/enroll", map[string]interface{}{
		"program_ids":     []string{ids.hiv},
		"enrollment_date": "2026-10-05",
	}, http.StatusOK)
	assert.EqualValues(t, 0, res["created"])

	clients := s.list("/api/v1/programs/"+ids.hiv+"/clients", http.StatusOK)
	require.Len(t, clients, 2)
	names := []string{}
	for _, c := range clients {
		names = append(names, c.(map[string]interface{})["full_name"].(string))
	}
	assert.ElementsMatch(t, []string{"John Doe", "Jane Smith"}, names)

	program := s.json(http.MethodGet, "/api/v1/programs/"+ids.hiv, nil, http.StatusOK)
	assert.Equal(t, "HIV Care", program["name"])
	assert.NotContains(t, program, "enrollments")

	page := s.json(http.MethodGet, "/api/v1/programs?search=tuberc", nil, http.StatusOK)
	assert.EqualValues(t, 1, page["count"])
}

func TestReadAPI_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	for _, path := range []string{
		"/api/v1/clients/" + uuid.NewString(),
		"/api/v1/clients/not-a-uuid",
		"/api/v1/clients/" + uuid.NewString() + "/enrollments",
		"/api/v1/programs/" + uuid.NewString(),
		"/api/v1/programs/" + uuid.NewString() + "/clients",
	} {
		body := s.json(http.MethodGet, path, nil, http.StatusNotFound)
		assert.Contains(t, body, "error", path)
	}
}

func TestReadAPI_Pagination(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	page := s.json(http.MethodGet, "/api/v1/clients?page_size=1&ordering=first_name", nil, http.StatusOK)
	assert.EqualValues(t, 2, page["count"])
	assert.EqualValues(t, 2, page["total_pages"])
	assert.Nil(t, page["previous"])
	assert.Equal(t, "/api/v1/clients?ordering=first_name&page=2&page_size=1", page["next"])
	assert.Equal(t, "Jane", page["results"].([]interface{})[0].(map[string]interface{})["first_name"])

	page = s.json(http.MethodGet, "/api/v1/clients?page_size=1&page=2&ordering=first_name", nil, http.StatusOK)
	assert.Nil(t, page["next"])
	assert.Equal(t, "/api/v1/clients?ordering=first_name&page_size=1", page["previous"])
	assert.Equal(t, "John", page["results"].([]interface{})[0].(map[string]interface{})["first_name"])

	s.json(http.MethodGet, "/api/v1/clients?page=9", nil, http.StatusNotFound)
	s.json(http.MethodGet, "/api/v1/clients?gender=Z", nil, http.StatusBadRequest)
	s.json(http.MethodGet, "/api/v1/clients?page=abc", nil, http.StatusBadRequest)
}

func TestManage_DuplicateNationalIDKeepsValues(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	dup := janeSmith()
	dup["national_id"] = "ID12345"
	body := s.json(http.MethodPost, "/api/v1/manage/clients", dup, http.StatusBadRequest)

	fields := body["error"].(map[string]interface{})["fields"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Client with this National ID already exists."}, fields["national_id"])
	values := body["values"].(map[string]interface{})
	assert.Equal(t, "Jane", values["first_name"])
}

func TestManage_UpdateClientKeepsOwnNationalID(t *testing.T) {
	s := newTestServer(t)
	ids := s.seed()

	update := johnDoe()
	update["phone_number"] = "5550000"
	body := s.json(http.MethodPut, "/api/v1/manage/clients/"+ids.john, update, http.StatusOK)
	assert.Equal(t, "5550000", body["phone_number"])

	detail := s.json(http.MethodGet, "/api/v1/manage/clients/"+ids.jane, nil, http.StatusOK)
	available := detail["available_programs"].([]interface{})
	require.Len(t, available, 1)
	assert.Equal(t, ids.tb, available[0].(map[string]interface{})["id"])
}

func TestManage_EnrollUnknownProgramWritesNothing(t *testing.T) {
	s := newTestServer(t)
	ids := s.seed()

	missing := uuid.NewString()
	body := s.json(http.MethodPost, "/api/v1/manage/clients/"+ids.jane+"/enroll", map[string]interface{}{
		"program_ids":     []string{ids.tb, missing},
		"enrollment_date": "2026-10-01",
	}, http.StatusNotFound)
	assert.Contains(t, body["error"].(map[string]interface{})["message"], missing)

	form := s.json(http.MethodGet, "/api/v1/manage/clients/"+ids.jane+"/enroll", nil, http.StatusOK)
	assert.Len(t, form["available_programs"].([]interface{}), 1)
}

func TestManage_UpdateEnrollment(t *testing.T) {
	s := newTestServer(t)
	ids := s.seed()

	enrollments := s.list("/api/v1/clients/"+ids.jane+"/enrollments", http.StatusOK)
	id := enrollments[0].(map[string]interface{})["id"].(string)

	body := s.json(http.MethodPut, "/api/v1/manage/enrollments/"+id, map[string]interface{}{
		"enrollment_date": "2026-09-01",
		"is_active":       false,
		"notes":           "paused",
	}, http.StatusOK)
	assert.Equal(t, false, body["is_active"])
	assert.Equal(t, "2026-09-01", body["enrollment_date"])

	s.json(http.MethodPut, "/api/v1/manage/enrollments/"+id, map[string]interface{}{
		"enrollment_date": "2026-09-01",
	}, http.StatusBadRequest)
}

func TestManage_ReportsAndDashboard(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	report := s.json(http.MethodGet, "/api/v1/manage/enrollments", nil, http.StatusOK)
	assert.Len(t, report["enrollments"].([]interface{}), 3)

	dist := report["program_distribution"].([]interface{})
	require.Len(t, dist, 2)
	first := dist[0].(map[string]interface{})
	assert.Equal(t, "HIV Care", first["program"])
	assert.EqualValues(t, 2, first["count"])

	timeline := report["monthly_timeline"].([]interface{})
	require.Len(t, timeline, 12)
	last := timeline[11].(map[string]interface{})
	assert.Equal(t, "October 2026", last["month"])
	assert.EqualValues(t, 2, last["count"])
	sept := timeline[10].(map[string]interface{})
	assert.Equal(t, "September 2026", sept["month"])
	assert.EqualValues(t, 1, sept["count"])

	dashboard := s.json(http.MethodGet, "/api/v1/manage/dashboard", nil, http.StatusOK)
	assert.EqualValues(t, 2, dashboard["total_clients"])
	assert.EqualValues(t, 2, dashboard["total_programs"])
	assert.EqualValues(t, 3, dashboard["total_enrollments"])
	assert.Len(t, dashboard["recent_clients"].([]interface{}), 2)

	programs := s.json(http.MethodGet, "/api/v1/manage/programs", nil, http.StatusOK)
	results := programs["results"].([]interface{})
	assert.Equal(t, "HIV Care", results[0].(map[string]interface{})["name"])
}
