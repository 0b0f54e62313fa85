package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/internal/infra/config"
	"github.com/yanqian/tutorials-api/internal/infra/database"
	"github.com/yanqian/tutorials-api/internal/infra/tutorialrepo"
)

const allowedOrigin = "http://localhost:4200"

type stubStatus struct {
	state database.State
}

func (s *stubStatus) State() database.State { return s.state }

type routerFixture struct {
	server *http.Server
	repo   *tutorialrepo.DeferredRepository
	status *stubStatus
}

func newRouterUnderTest(t *testing.T, mutate ...func(*config.Config)) *routerFixture {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Port:         "0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		CORS: config.CORSConfig{Origin: allowedOrigin},
		Body: config.BodyConfig{
			JSONLimit:          1 << 10,
			URLEncodedLimit:    1 << 10,
			URLEncodedExtended: true,
		},
	}
	for _, m := range mutate {
		m(cfg)
	}
	logger := newTestLogger()
	repo := tutorialrepo.NewDeferredRepository()
	status := &stubStatus{state: database.StateConnecting}
	handler := NewTutorialHandler(tutorial.NewService(repo, logger), logger)
	return &routerFixture{
		server: NewRouter(cfg, handler, NewHealthHandler(status), logger),
		repo:   repo,
		status: status,
	}
}

func (f *routerFixture) connect() {
	f.repo.Resolve(tutorialrepo.NewMemoryRepository())
	f.status.state = database.StateConnected
}

func (f *routerFixture) do(method, path, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rec, req)
	return rec
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestRouter_WelcomeIgnoresDatabaseState(t *testing.T) {
	f := newRouterUnderTest(t)

	for _, connected := range []bool{false, true} {
		if connected {
			f.connect()
		}
		rec := f.do(http.MethodGet, "/", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"message":"Welcome to Test application."}`, rec.Body.String())
		require.NotEmpty(t, rec.Header().Get(requestIDHeader))
	}
}

func TestRouter_CORSRejectsOtherOrigins(t *testing.T) {
	f := newRouterUnderTest(t)
	f.connect()

	for _, origin := range []string{"http://evil.example", "http://localhost:4201", "https://localhost:4200"} {
		rec := f.do(http.MethodGet, "/api/tutorials", "", "", "Origin", origin)
		require.Equal(t, http.StatusForbidden, rec.Code, origin)
		require.Equal(t, "origin_not_allowed", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRouter_CORSAllowsConfiguredOrigin(t *testing.T) {
	f := newRouterUnderTest(t)

	rec := f.do(http.MethodGet, "/", "", "", "Origin", allowedOrigin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(http.MethodOptions, "/api/tutorials", "", "",
		"Origin", allowedOrigin,
		"Access-Control-Request-Method", "POST",
		"Access-Control-Request-Headers", "content-type",
	)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	require.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouter_TutorialsUnavailableWhileConnecting(t *testing.T) {
	f := newRouterUnderTest(t)

	rec := f.do(http.MethodPost, "/api/tutorials", "application/json", `{"title":"early"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "database_unavailable", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = f.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"degraded","database":"connecting"}`, rec.Body.String())
}

func TestRouter_TutorialCRUD(t *testing.T) {
	f := newRouterUnderTest(t)
	f.connect()

	rec := f.do(http.MethodPost, "/api/tutorials", "application/json", `{"title":"Node Tut","description":"desc"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created tutorial.Tutorial
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.False(t, created.Published)

	rec = f.do(http.MethodPost, "/api/tutorials", "application/json", `{"title":"Go Tut","published":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/tutorials?title=node", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []tutorial.Tutorial
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)

	rec = f.do(http.MethodGet, "/api/tutorials/published", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "Go Tut", list[0].Title)

	rec = f.do(http.MethodPut, "/api/tutorials/"+created.ID, "application/json", `{"published":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated tutorial.Tutorial
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.True(t, updated.Published)
	require.Equal(t, "Node Tut", updated.Title)

	rec = f.do(http.MethodPut, "/api/tutorials/"+created.ID, "application/json", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/tutorials/missing", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = f.do(http.MethodDelete, "/api/tutorials/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Tutorial was deleted successfully!"}`, rec.Body.String())

	rec = f.do(http.MethodDelete, "/api/tutorials/"+created.ID, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/tutorials", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"1 Tutorials were deleted successfully!"}`, rec.Body.String())
}

func TestRouter_CreateValidation(t *testing.T) {
	f := newRouterUnderTest(t)
	f.connect()

	rec := f.do(http.MethodPost, "/api/tutorials", "application/json", `{"description":"no title"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Content can not be empty!", decodeErrorBody(t, rec.Body.Bytes())["error"]["message"])

	rec = f.do(http.MethodPost, "/api/tutorials", "application/json", `{"title":42}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "title must be a string", decodeErrorBody(t, rec.Body.Bytes())["error"]["message"])

	rec = f.do(http.MethodPost, "/api/tutorials", "application/json", `["title"]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_JSONParserErrors(t *testing.T) {
	f := newRouterUnderTest(t)
	f.connect()

	rec := f.do(http.MethodPost, "/api/tutorials", "application/json", `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_json", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = f.do(http.MethodPost, "/api/tutorials", "application/json", `"just a string"`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"title":"` + strings.Repeat("x", 2<<10) + `"}`
	rec = f.do(http.MethodPost, "/api/tutorials", "application/json", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouter_URLEncodedCreate(t *testing.T) {
	f := newRouterUnderTest(t)
	f.connect()

	rec := f.do(http.MethodPost, "/api/tutorials", "application/x-www-form-urlencoded",
		"title=Form+Tut&description=from+a+form&published=true&meta[tags][]=a")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created tutorial.Tutorial
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Form Tut", created.Title)
	require.Equal(t, "from a form", created.Description)
	require.True(t, created.Published)

	rec = f.do(http.MethodPut, "/api/tutorials/"+created.ID, "application/x-www-form-urlencoded", "published=maybe")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "published must be a boolean", decodeErrorBody(t, rec.Body.Bytes())["error"]["message"])
}

func TestRouter_RateLimit(t *testing.T) {
	f := newRouterUnderTest(t, func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	})

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/", "", "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/", "", "").Code)
	rec := f.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newRouterUnderTest(t)
	f.do(http.MethodGet, "/", "", "")

	rec := f.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tutorials_http_requests_total")
}
