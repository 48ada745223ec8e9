package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/statuswatch/internal/changelog"
	"github.com/dropDatabas3/statuswatch/internal/engine"
	"github.com/dropDatabas3/statuswatch/internal/push"
	"github.com/dropDatabas3/statuswatch/internal/registry"
	"github.com/dropDatabas3/statuswatch/internal/status"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

type testEnv struct {
	srv      *httptest.Server
	kv       store.KV
	endpoint *httptest.Server
	hits     *atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kv := store.NewMemory("")
	dispatcher := push.New(kv, push.Config{})

	st := status.New(kv)
	cl := changelog.New(kv)
	eng := engine.New(st, cl)

	api := &API{
		Registry:    registry.New(kv, dispatcher),
		Dispatcher:  dispatcher,
		Engine:      eng,
		Coordinator: engine.NewCoordinator(dispatcher),
		KV:          kv,
	}
	srv := httptest.NewServer(NewRouter(api, RouterConfig{}))
	t.Cleanup(srv.Close)

	hits := &atomic.Int64{}
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(endpoint.Close)

	return &testEnv{srv: srv, kv: kv, endpoint: endpoint, hits: hits}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRegisterEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/register", map[string]any{
		"deviceId": "d1",
		"features": []string{"feature"},
		"endpoint": env.endpoint.URL,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[registerResponse](t, resp)
	assert.Equal(t, "d1", out.DeviceID)
	assert.Equal(t, []string{"feature"}, out.Features)

	// un POST de confirmación al endpoint
	assert.Equal(t, int64(1), env.hits.Load())
}

func TestRegisterNormalizesSingleFeatureString(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/register", map[string]any{
		"deviceId": "d1",
		"features": "solo-una",
		"endpoint": env.endpoint.URL,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[registerResponse](t, resp)
	assert.Equal(t, []string{"solo-una"}, out.Features)
}

func TestRegisterWithoutEndpointIs400(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/register", map[string]any{
		"deviceId": "d1",
		"features": []string{"f"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnregisterUnknownIs404(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/unregister", map[string]any{"deviceId": "ghost"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnregisterThenFeaturesIs404(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/register", map[string]any{
		"deviceId": "d1", "features": []string{"f"}, "endpoint": env.endpoint.URL,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/unregister", map[string]any{"deviceId": "d1"})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/v1/devices/d1/features", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateDevice(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/register", map[string]any{
		"deviceId": "d1", "features": []string{"f"}, "endpoint": env.endpoint.URL, "key": "k", "authSecret": "a",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/v1/device", map[string]any{
		"deviceId": "d1", "endpoint": env.endpoint.URL + "/v2",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	hash, err := env.kv.HGetAll(context.Background(), store.DeviceKey("d1"))
	require.NoError(t, err)
	assert.Equal(t, env.endpoint.URL+"/v2", hash["endpoint"])
	assert.Empty(t, hash["key"])
}

func TestUpdateDeviceWithoutEndpointIs400(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/register", map[string]any{
		"deviceId": "d1", "features": []string{"f"}, "endpoint": env.endpoint.URL,
	})
	resp.Body.Close()

	resp = env.do(t, http.MethodPut, "/v1/device", map[string]any{"deviceId": "d1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPayloadDeliversAtMostOnce(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.kv.Set(context.Background(), store.DevicePayloadKey("d1"), `{"slug":"f"}`))

	resp := env.do(t, http.MethodGet, "/v1/devices/d1/payload", nil)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"slug":"f"}`, string(body))

	resp = env.do(t, http.MethodGet, "/v1/devices/d1/payload", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIngestPipelineNotifiesNewBucket(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/register", map[string]any{
		"deviceId": "d1", "features": []string{"new"}, "endpoint": env.endpoint.URL,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(1), env.hits.Load()) // confirmación

	resp = env.do(t, http.MethodPost, "/v1/ingest", []map[string]any{
		{"slug": "brandnew", "status": "in development"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[ingestResponse](t, resp)
	assert.Equal(t, 1, out.Received)
	assert.Equal(t, 1, out.Started)
	assert.Equal(t, 0, out.Updated)

	// confirmación + push de feature nueva
	assert.Equal(t, int64(2), env.hits.Load())
}

func TestIngestSecondPassCountsUpdates(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/ingest", []map[string]any{{"slug": "f", "x": "first"}})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/ingest", []map[string]any{{"slug": "f", "x": "last"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[ingestResponse](t, resp)
	assert.Equal(t, 0, out.Started)
	assert.Equal(t, 1, out.Updated)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/healthz", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
