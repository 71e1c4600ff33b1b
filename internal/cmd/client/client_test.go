package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	transports "github.com/rzbill/docket/internal/cmd/client/transports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// stubAPI records the last request and answers with canned bodies.
type stubAPI struct {
	lastMethod string
	lastPath   string
	lastQuery  string
	lastBody   []byte
}

func (s *stubAPI) start(t *testing.T) BaseURLFunc {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lastMethod, s.lastPath, s.lastQuery = r.Method, r.URL.Path, r.URL.RawQuery
		s.lastBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/tasks"):
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":7}`))
		case strings.HasSuffix(r.URL.Path, "/tasks/stats"):
			_, _ = w.Write([]byte(`{"hasTasks":true,"approximateCount":2,"lastId":9}`))
		case strings.HasSuffix(r.URL.Path, "/tasks"):
			_, _ = w.Write([]byte(`{"tasks":[{"id":1,"kind":"reduce-index","indexId":3}]}`))
		case strings.HasSuffix(r.URL.Path, "/drain"):
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"batches":1,"keys":2,"conflicts":0,"error":"apply failed"}`))
		case r.Method == http.MethodDelete:
			_, _ = w.Write([]byte(`{"tasksRemoved":4}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/indexes"):
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":1,"name":"orders"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"tenant not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return func() string { return srv.URL }
}

func run(t *testing.T, base BaseURLFunc, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(base)
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestEnqueueSendsTask(t *testing.T) {
	api := &stubAPI{}
	out, err := run(t, api.start(t), "tasks", "enqueue", "-t", "shop",
		"--kind", "touch-references", "--index", "2", "--etag", "users/1=42", "--etag", "a=b=5")
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued: 7")
	assert.Equal(t, "/v1/tenants/shop/tasks", api.lastPath)

	var req transports.EnqueueRequest
	require.NoError(t, json.Unmarshal(api.lastBody, &req))
	assert.Equal(t, "touch-references", req.Kind)
	require.NotNil(t, req.IndexID)
	assert.Equal(t, int32(2), *req.IndexID)
	assert.Equal(t, map[string]uint64{"users/1": 42, "a=b": 5}, req.Etags)
}

func TestEnqueueRequiresIndex(t *testing.T) {
	api := &stubAPI{}
	_, err := run(t, api.start(t), "tasks", "enqueue", "--kind", "touch-references", "--key", "k")
	require.Error(t, err)
	assert.Empty(t, api.lastPath)
}

func TestEnqueueRejectsBadEtag(t *testing.T) {
	api := &stubAPI{}
	_, err := run(t, api.start(t), "tasks", "enqueue", "--kind", "touch-references", "--index", "1", "--etag", "nope")
	require.Error(t, err)
	assert.Empty(t, api.lastPath)
}

func TestListAndStats(t *testing.T) {
	api := &stubAPI{}
	base := api.start(t)

	out, err := run(t, base, "tasks", "list", "--filter", `kind == "reduce-index"`, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "reduce-index"`)
	assert.Contains(t, api.lastQuery, "limit=5")
	assert.Contains(t, api.lastQuery, "filter=")

	out, err = run(t, base, "tasks", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"approximateCount": 2`)
	assert.Equal(t, "/v1/tenants/default/tasks/stats", api.lastPath)
}

func TestDrainSurfacesServerError(t *testing.T) {
	api := &stubAPI{}
	_, err := run(t, api.start(t), "tasks", "drain")
	var se *transports.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "apply failed", se.Message)
}

func TestIndexCommands(t *testing.T) {
	api := &stubAPI{}
	base := api.start(t)

	out, err := run(t, base, "index", "create", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "orders"`)

	out, err = run(t, base, "index", "drop", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 4 tasks")
	assert.Equal(t, http.MethodDelete, api.lastMethod)
	assert.Equal(t, "/v1/tenants/default/indexes/1", api.lastPath)

	_, err = run(t, base, "index", "drop", "x")
	assert.Error(t, err)
}

func TestUnknownTenant(t *testing.T) {
	api := &stubAPI{}
	_, err := run(t, api.start(t), "index", "list", "-t", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant not found")
}

func TestHealthCommand(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)
	t.Setenv("DOCKET_GRPC", lis.Addr().String())

	out, err := run(t, HTTPBaseFromEnv, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "status: SERVING")

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	out, err = run(t, HTTPBaseFromEnv, "health")
	assert.Error(t, err)
	assert.Contains(t, out, "NOT_SERVING")
}
