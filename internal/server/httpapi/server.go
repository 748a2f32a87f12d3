// Package httpapi exposes the secret exchange HTTP API handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/envault/envault/internal/errs"
	"github.com/envault/envault/internal/limiter"
	"github.com/envault/envault/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies before JSON decoding. Base64 expansion
// keeps this above service.MaxContentSize.
const maxBodyBytes = 2 << 20

// Wire types mirror the public JSON contract. encrypted_content travels as
// base64 (std encoding of []byte).
type storeRequest struct {
	ProjectID        string `json:"project_id"`
	EncryptedContent []byte `json:"encrypted_content"`
}

type storeResponse struct {
	Message   string `json:"message"`
	AccessKey string `json:"access_key"`
}

type retrieveResponse struct {
	EncryptedContent []byte `json:"encrypted_content"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail            string `json:"detail"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// Server wires the secret service into HTTP handlers.
type Server struct {
	secrets service.SecretService
	lim     limiter.Limiter
	log     *zap.Logger
	metrics *metrics
}

// New constructs an HTTP server with injected dependencies.
func New(secrets service.SecretService, lim limiter.Limiter, log *zap.Logger) *Server {
	return &Server{secrets: secrets, lim: lim, log: log, metrics: newMetrics()}
}

// Router builds the route table with logging, recovery, request IDs and
// metrics applied to every endpoint.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/store", s.handleStore).Methods(http.MethodPost)
	r.HandleFunc("/retrieve", s.handleRetrieve).Methods(http.MethodGet)
	r.HandleFunc("/update", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/delete", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.Use(RequestID, Logging(s.log), Recover(s.log), s.metrics.Middleware)
	return r
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := service.ValidateProjectID(req.ProjectID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := service.ValidateContent(req.EncryptedContent); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := s.secrets.Store(r.Context(), req.ProjectID, req.EncryptedContent)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, storeResponse{
		Message:   "Data stored successfully",
		AccessKey: key,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	ipHash, ok := s.allowClient(w, r)
	if !ok {
		return
	}

	blob, err := s.secrets.Retrieve(r.Context(), apiKey(r))
	s.noteAuthResult(r, ipHash, err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveResponse{EncryptedContent: blob})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ipHash, ok := s.allowClient(w, r)
	if !ok {
		return
	}

	var req storeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	// project_id is accepted for wire compatibility but the record is
	// addressed by the access key alone.
	if err := service.ValidateContent(req.EncryptedContent); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.secrets.Update(r.Context(), apiKey(r), req.EncryptedContent)
	s.noteAuthResult(r, ipHash, err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Data updated successfully"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ipHash, ok := s.allowClient(w, r)
	if !ok {
		return
	}

	err := s.secrets.Delete(r.Context(), apiKey(r))
	s.noteAuthResult(r, ipHash, err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Data deleted successfully"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody reads a bounded JSON body; a false return means the response
// is already written.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// allowClient consults the limiter before an authorized endpoint runs.
func (s *Server) allowClient(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	ipHash := limiter.HashIP(clientIP(r))
	allowed, retry, err := s.lim.Allow(r.Context(), ipHash)
	if err != nil {
		s.log.Error("limiter allow", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if !allowed {
		secs := int(retry.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", fmt.Sprint(secs))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Detail:            "Too many failed attempts, try again later",
			RetryAfterSeconds: secs,
		})
		return nil, false
	}
	return ipHash, true
}

// noteAuthResult feeds the limiter: a rejected key counts against the
// client, a fully served request resets the counters. Any other outcome
// leaves them untouched. Best effort, like the rest of limiting.
func (s *Server) noteAuthResult(r *http.Request, ipHash []byte, err error) {
	switch {
	case err == nil:
		_ = s.lim.Success(r.Context(), ipHash)
	case errors.Is(err, errs.ErrUnauthorized):
		_, _, _ = s.lim.Failure(r.Context(), ipHash)
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrConflict):
		writeError(w, http.StatusConflict, "Data already exists, use update if you want to modify it")
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Invalid API Key")
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "Data not found")
	default:
		s.log.Error("handler", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func apiKey(r *http.Request) string {
	return r.Header.Get("X-API-Key")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
