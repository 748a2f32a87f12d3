package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/envault/envault/internal/errs"
	"github.com/envault/envault/internal/limiter"
	"github.com/envault/envault/internal/model"
	"github.com/envault/envault/internal/repository"
	"github.com/envault/envault/internal/repository/memory"
	"github.com/envault/envault/internal/service"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, lim limiter.Limiter) *httptest.Server {
	t.Helper()
	svc := service.NewSecretService(memory.NewSecretRepo(), nil)
	srv := New(svc, lim, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, apiKey string, body any) (int, http.Header, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header, data
}

func storeProject(t *testing.T, ts *httptest.Server, projectID string, content []byte) string {
	t.Helper()
	status, _, body := doJSON(t, http.MethodPost, ts.URL+"/store", "", storeRequest{
		ProjectID:        projectID,
		EncryptedContent: content,
	})
	if status != http.StatusCreated {
		t.Fatalf("store status = %d, body %s", status, body)
	}
	var resp storeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode store response: %v", err)
	}
	if resp.AccessKey == "" {
		t.Fatal("store returned empty access key")
	}
	return resp.AccessKey
}

func TestStore_IssuesAccessKey(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	status, _, body := doJSON(t, http.MethodPost, ts.URL+"/store", "", storeRequest{
		ProjectID:        "proj-a",
		EncryptedContent: []byte("ciphertext"),
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want %d", status, http.StatusCreated)
	}
	var resp storeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "Data stored successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.AccessKey) != 43 {
		t.Errorf("access key length = %d, want 43", len(resp.AccessKey))
	}
}

func TestStore_DuplicateConflict(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	key := storeProject(t, ts, "proj-a", []byte("first"))
	status, _, body := doJSON(t, http.MethodPost, ts.URL+"/store", "", storeRequest{
		ProjectID:        "proj-a",
		EncryptedContent: []byte("second"),
	})
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want %d", status, http.StatusConflict)
	}
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Detail != "Data already exists, use update if you want to modify it" {
		t.Errorf("detail = %q", resp.Detail)
	}

	// Losing store attempt must not touch the record.
	status, _, body = doJSON(t, http.MethodGet, ts.URL+"/retrieve", key, nil)
	if status != http.StatusOK {
		t.Fatalf("retrieve status = %d, body %s", status, body)
	}
	var got retrieveResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode retrieve response: %v", err)
	}
	if string(got.EncryptedContent) != "first" {
		t.Errorf("content = %q, want the first payload", got.EncryptedContent)
	}
}

func TestStore_BadRequests(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	tests := []struct {
		name string
		body any
	}{
		{"empty project id", storeRequest{ProjectID: "  ", EncryptedContent: []byte("x")}},
		{"empty content", storeRequest{ProjectID: "proj-a"}},
		{"unknown field", map[string]string{"nope": "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, _, body := doJSON(t, http.MethodPost, ts.URL+"/store", "", tc.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d, body %s", status, http.StatusBadRequest, body)
			}
		})
	}
}

func TestStore_MalformedJSON(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	resp, err := http.Post(ts.URL+"/store", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRetrieve_RoundTrip(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	content := []byte("encrypted payload bytes")
	key := storeProject(t, ts, "proj-a", content)

	status, _, body := doJSON(t, http.MethodGet, ts.URL+"/retrieve", key, nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var resp retrieveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !bytes.Equal(resp.EncryptedContent, content) {
		t.Errorf("content = %q, want %q", resp.EncryptedContent, content)
	}
}

func TestRetrieve_InvalidKey(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})
	storeProject(t, ts, "proj-a", []byte("x"))

	for _, key := range []string{"", "no-such-key"} {
		status, _, body := doJSON(t, http.MethodGet, ts.URL+"/retrieve", key, nil)
		if status != http.StatusForbidden {
			t.Fatalf("key %q: status = %d, want %d", key, status, http.StatusForbidden)
		}
		var resp errorResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Detail != "Invalid API Key" {
			t.Errorf("detail = %q", resp.Detail)
		}
	}
}

func TestUpdate_ReplacesContent(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})
	key := storeProject(t, ts, "proj-a", []byte("before"))

	status, _, body := doJSON(t, http.MethodPut, ts.URL+"/update", key, storeRequest{
		ProjectID:        "proj-a",
		EncryptedContent: []byte("after"),
	})
	if status != http.StatusOK {
		t.Fatalf("update status = %d, body %s", status, body)
	}
	var msg messageResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if msg.Message != "Data updated successfully" {
		t.Errorf("message = %q", msg.Message)
	}

	status, _, body = doJSON(t, http.MethodGet, ts.URL+"/retrieve", key, nil)
	if status != http.StatusOK {
		t.Fatalf("retrieve status = %d", status)
	}
	var resp retrieveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !bytes.Equal(resp.EncryptedContent, []byte("after")) {
		t.Errorf("content = %q, want %q", resp.EncryptedContent, "after")
	}
}

func TestUpdate_InvalidKey(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})
	storeProject(t, ts, "proj-a", []byte("x"))

	status, _, _ := doJSON(t, http.MethodPut, ts.URL+"/update", "wrong", storeRequest{
		ProjectID:        "proj-a",
		EncryptedContent: []byte("y"),
	})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", status, http.StatusForbidden)
	}
}

func TestDelete_KeyDiesWithRecord(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})
	key := storeProject(t, ts, "proj-a", []byte("x"))

	status, _, body := doJSON(t, http.MethodDelete, ts.URL+"/delete", key, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", status, body)
	}
	var msg messageResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if msg.Message != "Data deleted successfully" {
		t.Errorf("message = %q", msg.Message)
	}

	// The old key must be dead even after the project is stored again.
	newKey := storeProject(t, ts, "proj-a", []byte("fresh"))
	if newKey == key {
		t.Fatal("re-store reused the old access key")
	}
	status, _, _ = doJSON(t, http.MethodGet, ts.URL+"/retrieve", key, nil)
	if status != http.StatusForbidden {
		t.Fatalf("old key status = %d, want %d", status, http.StatusForbidden)
	}
	status, _, _ = doJSON(t, http.MethodGet, ts.URL+"/retrieve", newKey, nil)
	if status != http.StatusOK {
		t.Fatalf("new key status = %d, want %d", status, http.StatusOK)
	}
}

type fakeLimiter struct {
	mu        sync.Mutex
	allow     bool
	retry     time.Duration
	successes int
	failures  int
}

func (f *fakeLimiter) Allow(context.Context, []byte) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allow, f.retry, nil
}

func (f *fakeLimiter) Success(context.Context, []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes++
	return nil
}

func (f *fakeLimiter) Failure(context.Context, []byte) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	return false, 0, nil
}

func (f *fakeLimiter) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.successes, f.failures
}

func TestLimiter_BlockedClient(t *testing.T) {
	t.Parallel()
	lim := &fakeLimiter{allow: false, retry: 90 * time.Second}
	ts := newTestServer(t, lim)

	status, header, body := doJSON(t, http.MethodGet, ts.URL+"/retrieve", "any", nil)
	if status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", status, http.StatusTooManyRequests)
	}
	if got := header.Get("Retry-After"); got != "90" {
		t.Errorf("Retry-After = %q, want %q", got, "90")
	}
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RetryAfterSeconds != 90 {
		t.Errorf("retry_after_seconds = %d, want 90", resp.RetryAfterSeconds)
	}
}

func TestLimiter_FailureAndSuccessReported(t *testing.T) {
	t.Parallel()
	lim := &fakeLimiter{allow: true}
	ts := newTestServer(t, lim)
	key := storeProject(t, ts, "proj-a", []byte("x"))

	doJSON(t, http.MethodGet, ts.URL+"/retrieve", "wrong", nil)
	if _, failures := lim.counts(); failures != 1 {
		t.Fatalf("failures = %d, want 1", failures)
	}

	doJSON(t, http.MethodGet, ts.URL+"/retrieve", key, nil)
	if successes, _ := lim.counts(); successes != 1 {
		t.Fatalf("successes = %d, want 1", successes)
	}
}

// errRepo scripts repository failures so handler tests can stage outcomes
// that are neither success nor a rejected key.
type errRepo struct {
	authErr error
	getErr  error
}

var _ repository.SecretRepository = (*errRepo)(nil)

func (e *errRepo) Create(context.Context, *model.SecretRecord) error {
	return errors.New("unexpected Create")
}

func (e *errRepo) GetByAccessKey(_ context.Context, accessKey string) (*model.SecretRecord, error) {
	if e.authErr != nil {
		return nil, e.authErr
	}
	return &model.SecretRecord{ProjectID: "proj-a", AccessKey: accessKey}, nil
}

func (e *errRepo) Get(context.Context, string) (*model.SecretRecord, error) {
	if e.getErr != nil {
		return nil, e.getErr
	}
	return nil, errors.New("unexpected Get")
}

func (e *errRepo) UpdateContent(context.Context, string, model.EncryptedBlob) error {
	return errors.New("unexpected UpdateContent")
}

func (e *errRepo) Delete(context.Context, string) error {
	return errors.New("unexpected Delete")
}

func newFaultServer(t *testing.T, lim limiter.Limiter, repo repository.SecretRepository) *httptest.Server {
	t.Helper()
	srv := New(service.NewSecretService(repo, nil), lim, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestLimiter_ServerFaultLeavesCountersAlone(t *testing.T) {
	t.Parallel()
	lim := &fakeLimiter{allow: true}
	ts := newFaultServer(t, lim, &errRepo{authErr: errors.New("pool exhausted")})

	status, _, _ := doJSON(t, http.MethodGet, ts.URL+"/retrieve", "some-key", nil)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", status, http.StatusInternalServerError)
	}
	successes, failures := lim.counts()
	if successes != 0 || failures != 0 {
		t.Errorf("counters moved on a server fault: successes=%d failures=%d", successes, failures)
	}
}

func TestLimiter_NotFoundDoesNotReset(t *testing.T) {
	t.Parallel()
	lim := &fakeLimiter{allow: true}
	ts := newFaultServer(t, lim, &errRepo{getErr: errs.ErrNotFound})

	status, _, _ := doJSON(t, http.MethodGet, ts.URL+"/retrieve", "some-key", nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", status, http.StatusNotFound)
	}
	successes, failures := lim.counts()
	if successes != 0 || failures != 0 {
		t.Errorf("counters moved on not-found: successes=%d failures=%d", successes, failures)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	status, _, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
}

func TestMetricsExposed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	// At least one handled request so the counter has a child to expose.
	doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)

	status, _, body := doJSON(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(string(body), "envault_http_requests_total") {
		t.Error("metrics output missing request counter")
	}
}

func TestRequestID_Echoed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, limiter.Noop{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Request-Id", "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "req-123" {
		t.Errorf("X-Request-Id = %q, want %q", got, "req-123")
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("X-Request-Id not generated")
	}
}
