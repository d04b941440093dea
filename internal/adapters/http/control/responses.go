package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/okian/mocksrv/pkg/logger"
	"github.com/okian/mocksrv/pkg/metrics"
)

const maxBodyBytes = 8 << 20

// Control operation names, used as metric labels.
const (
	opSet    = "set"
	opBulk   = "bulk_set"
	opDelete = "delete"
	opClear  = "clear"
)

type listResponse struct {
	Responses map[string]json.RawMessage `json:"responses"`
	Count     int                        `json:"count"`
}

type bulkResponse struct {
	Stored int `json:"stored"`
}

// handleList answers GET /responses. Null markers are reported as null and
// values that are not JSON as JSON strings.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.List(r.Context())
	if err != nil {
		s.storeFailure(w, r, "list", err)
		return
	}

	names := make([]string, 0, len(all))
	for k := range all {
		names = append(names, k)
	}
	sort.Strings(names)

	out := listResponse{Responses: make(map[string]json.RawMessage, len(all)), Count: len(all)}
	for _, k := range names {
		out.Responses[k] = listValue(all[k])
	}
	writeJSON(w, http.StatusOK, out)
}

func listValue(raw string) json.RawMessage {
	if raw == "" {
		return json.RawMessage("null")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err == nil {
		return buf.Bytes()
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

// handleGet answers GET /responses/{key} with the stored value verbatim.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := responseKey(w, r)
	if !ok {
		return
	}
	raw, found, err := s.store.Get(r.Context(), key)
	switch {
	case err != nil:
		s.storeFailure(w, r, "get", err)
	case !found:
		writeError(w, http.StatusNotFound, ErrNotConfigured)
	case raw == "":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, raw)
	}
}

// handleSet stores the request body verbatim under the key. An empty body
// stores the null marker.
func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	key, ok := responseKey(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	value := string(body)
	if len(bytes.TrimSpace(body)) == 0 {
		value = ""
	}
	if err := s.store.Set(r.Context(), key, value); err != nil {
		s.storeFailure(w, r, opSet, err)
		return
	}
	s.mutated(r.Context(), opSet)
	s.log.Debug(r.Context(), "response configured", logger.String("key", key), logger.Bool("null", value == ""))
	w.WriteHeader(http.StatusNoContent)
}

// handleBulkSet stores every member of a JSON object. null stores the marker,
// anything else its compact encoding.
func (s *Server) handleBulkSet(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil || entries == nil {
		writeError(w, http.StatusBadRequest, ErrBadBulk)
		return
	}

	ctx := r.Context()
	for key, raw := range entries {
		if err := s.store.Set(ctx, key, bulkValue(raw)); err != nil {
			s.storeFailure(w, r, opBulk, err)
			return
		}
	}
	s.mutated(ctx, opBulk)
	s.log.Info(ctx, "responses configured", logger.Int("count", len(entries)))
	writeJSON(w, http.StatusOK, bulkResponse{Stored: len(entries)})
}

func bulkValue(raw json.RawMessage) string {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// handleDelete removes one key.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := responseKey(w, r)
	if !ok {
		return
	}
	existed, err := s.store.Delete(r.Context(), key)
	if err != nil {
		s.storeFailure(w, r, opDelete, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, ErrNotConfigured)
		return
	}
	s.mutated(r.Context(), opDelete)
	w.WriteHeader(http.StatusNoContent)
}

// handleClear removes every key.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.storeFailure(w, r, opClear, err)
		return
	}
	s.mutated(r.Context(), opClear)
	s.log.Info(r.Context(), "responses cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) mutated(ctx context.Context, op string) {
	metrics.RecordControlOperation(op)
	if n, err := s.store.Count(ctx); err == nil {
		metrics.SetStoredResponses(n)
	}
}

func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	metrics.RecordError("control", op)
	s.log.Error(r.Context(), "response store operation failed", logger.String("operation", op), logger.Error(err))
	writeError(w, http.StatusInternalServerError, ErrStore)
}

func responseKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := chi.URLParam(r, "*")
	// chi matched on RawPath only when the request carried one.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}
	}
	if key == "" {
		writeError(w, http.StatusBadRequest, ErrMissingKey)
		return "", false
	}
	return key, true
}

func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
