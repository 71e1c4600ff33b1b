package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// HTTPTransport implements Transport against the /v1 REST API.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport returns a transport rooted at base (e.g. http://127.0.0.1:8080).
func NewHTTPTransport(base string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{base: base, client: client}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (t *HTTPTransport) tenantURL(tenant, path string) string {
	return t.base + "/v1/tenants/" + url.PathEscape(tenant) + path
}

func (t *HTTPTransport) do(ctx context.Context, method, u string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := t.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, u)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return &StatusError{Code: res.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode response")
}

// ListTasks returns pending tasks, optionally narrowed by a CEL filter.
func (t *HTTPTransport) ListTasks(ctx context.Context, tenant, filter string, limit int) ([]Task, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := t.tenantURL(tenant, "/tasks")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var out struct {
		Tasks []Task `json:"tasks"`
	}
	err := t.do(ctx, http.MethodGet, u, nil, &out)
	return out.Tasks, err
}

// Stats returns the queue summary.
func (t *HTTPTransport) Stats(ctx context.Context, tenant string) (Stats, error) {
	var out Stats
	err := t.do(ctx, http.MethodGet, t.tenantURL(tenant, "/tasks/stats"), nil, &out)
	return out, err
}

// Enqueue adds a task and returns its row id.
func (t *HTTPTransport) Enqueue(ctx context.Context, tenant string, req EnqueueRequest) (uint64, error) {
	var out struct {
		ID uint64 `json:"id"`
	}
	err := t.do(ctx, http.MethodPost, t.tenantURL(tenant, "/tasks"), req, &out)
	return out.ID, err
}

// Drain runs one drain cycle. A failed cycle still reports partial stats.
func (t *HTTPTransport) Drain(ctx context.Context, tenant string) (DrainResult, error) {
	var out DrainResult
	err := t.do(ctx, http.MethodPost, t.tenantURL(tenant, "/drain"), struct{}{}, &out)
	return out, err
}

// ListIndexes returns registered indexes.
func (t *HTTPTransport) ListIndexes(ctx context.Context, tenant string) ([]Index, error) {
	var out struct {
		Indexes []Index `json:"indexes"`
	}
	err := t.do(ctx, http.MethodGet, t.tenantURL(tenant, "/indexes"), nil, &out)
	return out.Indexes, err
}

// CreateIndex registers an index by name.
func (t *HTTPTransport) CreateIndex(ctx context.Context, tenant, name string) (Index, error) {
	var out Index
	err := t.do(ctx, http.MethodPost, t.tenantURL(tenant, "/indexes"), map[string]string{"name": name}, &out)
	return out, err
}

// DropIndex removes an index and its pending tasks.
func (t *HTTPTransport) DropIndex(ctx context.Context, tenant string, id int32) (int, error) {
	var out struct {
		TasksRemoved int `json:"tasksRemoved"`
	}
	err := t.do(ctx, http.MethodDelete, t.tenantURL(tenant, "/indexes/"+strconv.Itoa(int(id))), nil, &out)
	return out.TasksRemoved, err
}
