package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/auth"
	"github.com/philipparndt/modelforge/internal/chat"
	"github.com/philipparndt/modelforge/internal/config"
	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/metrics"
	"github.com/philipparndt/modelforge/internal/prompt"
	"github.com/philipparndt/modelforge/internal/search"
	"github.com/philipparndt/modelforge/internal/stl"
	"github.com/philipparndt/modelforge/internal/transform"
)

type stubPlatform struct{}

func (stubPlatform) Name() string { return "stub" }

func (stubPlatform) Search(_ context.Context, q string) ([]search.Result, error) {
	return []search.Result{{ID: "1", Name: q + " model", URL: "https://example.com/1", Source: "stub"}}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func newServices(t *testing.T) Services {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(account.Models()...))

	accounts := account.NewStore(db, nil)
	interp := prompt.NewKeyword()
	return Services{
		Interpreter: interp,
		Chat:        chat.NewService(interp, chat.NewMemoryHistory(chat.MaxEntries), nil),
		Gallery:     gallery.NewService(accounts, gallery.NewLocalStore(t.TempDir()), nil, nil),
		Transform:   transform.NewDispatcher(nil, nil),
		Search:      search.NewServiceWith(10, time.Second, nil, stubPlatform{}),
		Accounts:    accounts,
		Metrics:     metrics.NewCollector(),
		LocalUser:   auth.User{ID: "local", Email: "me@example.com"},
	}
}

func newTestServer(t *testing.T, svc Services, cfg config.ServerConfig) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ts := httptest.NewServer(New(cfg, svc, nil).Handler(ctx))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func cubeUpload(t *testing.T, url, filename string) (*http.Response, envelope) {
	t.Helper()
	var model bytes.Buffer
	require.NoError(t, stl.NewWriter().EncodeBinary(&model, geometry.Box(10, 10, 10)))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(model.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("name", "My Cube"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	resp, env := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	_, env := do(t, http.MethodGet, ts.URL+"/api/me", nil)
	require.True(t, env.Success)
	var me meResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "local", me.ID)
	assert.Equal(t, "me@example.com", me.Email)
	assert.Equal(t, account.TierFree, me.Tier)
	assert.False(t, me.Billing)
}

func TestInterpret(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	_, env := do(t, http.MethodPost, ts.URL+"/api/interpret", map[string]string{"prompt": "make it red"})
	require.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"operation":"color"`)

	resp, env := do(t, http.MethodPost, ts.URL+"/api/interpret", map[string]string{"prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, codeInvalidRequest, env.Error.Code)
}

func TestChat(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	_, env := do(t, http.MethodPost, ts.URL+"/api/chat", map[string]string{"message": "make it twice as big"})
	require.True(t, env.Success)
	var reply chat.Reply
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	require.NotNil(t, reply.Entry.Instruction)
	assert.Equal(t, "scale", reply.Entry.Instruction.Op.Name())
	assert.Len(t, reply.History, 1)

	_, env = do(t, http.MethodGet, ts.URL+"/api/chat", nil)
	var entries []chat.Entry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.Len(t, entries, 1)

	resp, env := do(t, http.MethodPost, ts.URL+"/api/chat", map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestModelLifecycle(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{MaxUploadBytes: 1 << 20})

	resp, env := cubeUpload(t, ts.URL+"/api/models", "cube.stl")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var m gallery.Model
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, "My Cube", m.Name)

	_, env = do(t, http.MethodGet, ts.URL+"/api/models", nil)
	var models []gallery.Model
	require.NoError(t, json.Unmarshal(env.Data, &models))
	assert.Equal(t, m.ID, models[len(models)-1].ID)

	_, env = do(t, http.MethodPatch, ts.URL+"/api/models/"+m.ID, map[string]string{"name": "Box"})
	require.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"name":"Box"`)

	file, err := http.Get(ts.URL + "/api/models/" + m.ID + "/file")
	require.NoError(t, err)
	data, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	file.Body.Close()
	assert.Equal(t, "model/stl", file.Header.Get("Content-Type"))
	assert.Len(t, data, 84+50*12)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/models/"+m.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = do(t, http.MethodDelete, ts.URL+"/api/models/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, codeNotFound, env.Error.Code)
}

func TestImportRejectsUnsupportedFormat(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	resp, env := cubeUpload(t, ts.URL+"/api/models", "cube.step")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, codeInvalidRequest, env.Error.Code)
}

func TestBuiltinModelsAreReadOnly(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	resp, env := do(t, http.MethodDelete, ts.URL+"/api/models/builtin-cube", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, codeForbidden, env.Error.Code)
}

func TestCustomize(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})
	url := ts.URL + "/api/models/builtin-cube/customize"

	post := func(body string) *http.Response {
		resp, err := http.Post(url, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post(`{"prompt":"make it twice as big"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "scale", resp.Header.Get("X-Modelforge-Operation"))
	mesh, err := stl.NewParser().Decode(resp.Body, "out")
	require.NoError(t, err)
	bbox, err := geometry.CalculateBoundingBox(mesh)
	require.NoError(t, err)
	assert.InDelta(t, 40, bbox.Width(), 1e-6)

	resp = post(`{"operation":"color","parameters":{"color":"red"},"format":"3mf"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "model/3mf", resp.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, post(`{"operation":"scale","parameters":{"factor":-1}}`).StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"operation":"explode"}`).StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"prompt":"frobnicate the widget"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"operation":"scale","format":"step"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"operation":"addHoles","parameters":{"diameter":1,"count":1000000000}}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"operation":"support","parameters":{"angle":45,"spacing":0.1,"thickness":1}}`).StatusCode)

	dense := ts.URL + "/api/models/builtin-sphere/customize"
	resp, err = http.Post(dense, "application/json",
		strings.NewReader(`{"operation":"support","parameters":{"angle":45,"spacing":1,"thickness":1}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	_, env := do(t, http.MethodGet, ts.URL+"/api/search?q=vase", nil)
	require.True(t, env.Success)
	var results []search.Result
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "vase model", results[0].Name)

	resp, _ := do(t, http.MethodGet, ts.URL+"/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBillingDisabled(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	resp, env := do(t, http.MethodPost, ts.URL+"/api/billing/checkout", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, codeUnavailable, env.Error.Code)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/billing/webhook", map[string]string{})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBearerAuth(t *testing.T) {
	svc := newServices(t)
	tokens, err := auth.NewTokens(config.AuthConfig{JWTSecret: "secret"})
	require.NoError(t, err)
	svc.Tokens = tokens
	ts := newTestServer(t, svc, config.ServerConfig{})

	resp, env := do(t, http.MethodGet, ts.URL+"/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, codeUnauthorized, env.Error.Code)

	resp, _ = do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := tokens.Issue(auth.User{ID: "user-7", Email: "u7@example.com"}, time.Hour)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Contains(t, string(got.Data), `"id":"user-7"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, newServices(t), config.ServerConfig{})

	do(t, http.MethodGet, ts.URL+"/api/models", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `modelforge_http_requests_total{method="GET",route="/api/models",status="200"} 1`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(config.ServerConfig{ShutdownTimeout: time.Second}, newServices(t), nil)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
