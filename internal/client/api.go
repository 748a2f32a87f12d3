// Package client implements the local side of the secret exchange:
// encrypting project files, talking to the remote store and keeping the
// project registry in sync with what the server confirmed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/envault/envault/internal/errs"
	"github.com/envault/envault/internal/model"
)

// Remote is the server surface the client depends on.
type Remote interface {
	// Store uploads ciphertext for a new project and returns the access
	// key issued by the server.
	Store(ctx context.Context, projectID string, content model.EncryptedBlob) (string, error)
	Retrieve(ctx context.Context, accessKey string) (model.EncryptedBlob, error)
	// Update replaces the stored ciphertext. The project id rides along
	// in the body for wire compatibility, the server addresses the
	// record by access key alone.
	Update(ctx context.Context, accessKey, projectID string, content model.EncryptedBlob) error
	Delete(ctx context.Context, accessKey string) error
}

// DefaultTimeout bounds a single request to the server.
const DefaultTimeout = 30 * time.Second

// maxReplyBytes caps how much of a response body is read.
const maxReplyBytes = 4 << 20

// API is the JSON over HTTP implementation of Remote.
type API struct {
	baseURL string
	hc      *http.Client
}

// NewAPI builds a Remote talking to the server at baseURL. A zero timeout
// falls back to DefaultTimeout.
func NewAPI(baseURL string, timeout time.Duration) *API {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

type storePayload struct {
	ProjectID        string              `json:"project_id,omitempty"`
	EncryptedContent model.EncryptedBlob `json:"encrypted_content"`
}

type storeReply struct {
	Message   string `json:"message"`
	AccessKey string `json:"access_key"`
}

type retrieveReply struct {
	EncryptedContent model.EncryptedBlob `json:"encrypted_content"`
}

type errorReply struct {
	Detail string `json:"detail"`
}

func (a *API) Store(ctx context.Context, projectID string, content model.EncryptedBlob) (string, error) {
	var reply storeReply
	in := storePayload{ProjectID: projectID, EncryptedContent: content}
	if err := a.do(ctx, http.MethodPost, "/store", "", in, &reply, http.StatusCreated); err != nil {
		return "", err
	}
	if reply.AccessKey == "" {
		return "", errors.New("server returned no access key")
	}
	return reply.AccessKey, nil
}

func (a *API) Retrieve(ctx context.Context, accessKey string) (model.EncryptedBlob, error) {
	var reply retrieveReply
	if err := a.do(ctx, http.MethodGet, "/retrieve", accessKey, nil, &reply, http.StatusOK); err != nil {
		return nil, err
	}
	return reply.EncryptedContent, nil
}

func (a *API) Update(ctx context.Context, accessKey, projectID string, content model.EncryptedBlob) error {
	in := storePayload{ProjectID: projectID, EncryptedContent: content}
	return a.do(ctx, http.MethodPut, "/update", accessKey, in, nil, http.StatusOK)
}

func (a *API) Delete(ctx context.Context, accessKey string) error {
	return a.do(ctx, http.MethodDelete, "/delete", accessKey, nil, nil, http.StatusOK)
}

// do sends one request and decodes the body into out when the status
// matches want. Any other status is mapped onto the shared sentinel
// errors so callers can react without parsing HTTP details.
func (a *API) do(ctx context.Context, method, path, accessKey string, in, out any, want int) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessKey != "" {
		req.Header.Set("X-API-Key", accessKey)
	}

	resp, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", errs.ErrUnavailable, err)
	}
	if resp.StatusCode != want {
		return apiError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func apiError(status int, body []byte) error {
	detail := "unexpected response"
	var reply errorReply
	if err := json.Unmarshal(body, &reply); err == nil && reply.Detail != "" {
		detail = reply.Detail
	}
	switch {
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", errs.ErrConflict, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", errs.ErrUnauthorized, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", errs.ErrNotFound, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", errs.ErrRateLimited, detail)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", errs.ErrUnavailable, status, detail)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, detail)
	}
}
