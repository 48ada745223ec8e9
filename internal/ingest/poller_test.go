package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/statuswatch/internal/changelog"
	"github.com/dropDatabas3/statuswatch/internal/engine"
	"github.com/dropDatabas3/statuswatch/internal/status"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

type nullNotifier struct{ calls atomic.Int64 }

func (n *nullNotifier) SendNotifications(ctx context.Context, slug string, payload []byte, isNew bool) error {
	n.calls.Add(1)
	return nil
}

func newPipeline(t *testing.T) (*engine.Engine, *engine.Coordinator, *changelog.Store, *nullNotifier) {
	t.Helper()
	kv := store.NewMemory("")
	cl := changelog.New(kv)
	eng := engine.New(status.New(kv), cl)
	n := &nullNotifier{}
	return eng, engine.NewCoordinator(n), cl, n
}

func TestRunOnceProcessesUpstreamDocument(t *testing.T) {
	eng, coord, cl, notifier := newPipeline(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"slug":"grid","status":"shipped"},{"slug":"flex","status":"dev"}]`))
	}))
	defer upstream.Close()

	p := New(Config{URL: upstream.URL}, eng, coord)
	require.NoError(t, p.RunOnce(context.Background()))

	all, err := cl.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	for _, e := range all {
		assert.Len(t, e.Started, 2)
	}
	assert.Equal(t, int64(2), notifier.calls.Load())
}

func TestRunOnceSkipsUnchangedBody(t *testing.T) {
	eng, coord, cl, _ := newPipeline(t)

	var fetches atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(`[{"slug":"grid","status":"shipped"}]`))
	}))
	defer upstream.Close()

	p := New(Config{URL: upstream.URL}, eng, coord)
	require.NoError(t, p.RunOnce(context.Background()))
	require.NoError(t, p.RunOnce(context.Background()))

	assert.Equal(t, int64(2), fetches.Load())
	// la segunda pasada no tocó el store
	all, err := cl.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunOnceHonorsETag(t *testing.T) {
	eng, coord, _, _ := newPipeline(t)

	var notModified atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`[{"slug":"grid"}]`))
	}))
	defer upstream.Close()

	p := New(Config{URL: upstream.URL}, eng, coord)
	require.NoError(t, p.RunOnce(context.Background()))
	require.NoError(t, p.RunOnce(context.Background()))

	assert.Equal(t, int64(1), notModified.Load())
}

func TestRunOncePropagatesUpstreamErrors(t *testing.T) {
	eng, coord, _, _ := newPipeline(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	p := New(Config{URL: upstream.URL}, eng, coord)
	assert.Error(t, p.RunOnce(context.Background()))
}
