// Package api exposes the dialogue engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/records"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/transcript"
)

const (
	maxBodyBytes     = 64 << 10
	defaultListLimit = 20
	maxListLimit     = 200
)

// #region types
// Turner runs and resets conversations.
type Turner interface {
	Handle(ctx context.Context, req dialogue.TurnRequest) (dialogue.Response, error)
	Reset(ctx context.Context, sessionID string) error
}

// RecordReader is the read side of the application store.
type RecordReader interface {
	Get(ctx context.Context, id string) (*records.Application, error)
	List(ctx context.Context, caller string, limit int) ([]records.Application, error)
}

type Handler struct {
	Engine     Turner
	Transcript transcript.Log
	Records    RecordReader
	Auth       KeyAuthenticator
	Logger     *zap.Logger

	locks *sessionLocks
}

// NewHandler wires the HTTP handlers. A nil logger is replaced by a no-op.
func NewHandler(engine Turner, log transcript.Log, recs RecordReader, apiKey string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine:     engine,
		Transcript: log,
		Records:    recs,
		Auth:       KeyAuthenticator{Key: apiKey},
		Logger:     logger.Named("api"),
		locks:      newSessionLocks(),
	}
}

type transcriptResponse struct {
	SessionID string            `json:"session_id"`
	Redacted  bool              `json:"redacted"`
	Turns     []transcript.Turn `json:"turns"`
}
// #endregion types

// #region handlers
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	var req dialogue.TurnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, dialogue.ErrMissingSession.Error())
		return
	}

	unlock := h.locks.Lock(req.SessionID)
	resp, err := h.Engine.Handle(r.Context(), req)
	unlock()
	if err != nil {
		h.internal(w, "turn failed", err, zap.String("session", req.SessionID))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reset always requires the admin key, whether or not reads are open.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Authenticate(r); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, ErrResetDisabled) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, dialogue.ErrMissingSession.Error())
		return
	}

	unlock := h.locks.Lock(id)
	err := h.Engine.Reset(r.Context(), id)
	unlock()
	if err != nil {
		h.internal(w, "reset failed", err, zap.String("session", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "reset": true})
}

func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	id := r.PathValue("id")
	redact := false
	if v := r.URL.Query().Get("redact"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "redact must be a boolean")
			return
		}
		redact = b
	}
	turns, err := h.Transcript.List(r.Context(), id)
	if err != nil {
		h.internal(w, "list transcript", err, zap.String("session", id))
		return
	}
	if redact {
		turns = transcript.Redact(turns)
	}
	if turns == nil {
		turns = []transcript.Turn{}
	}
	writeJSON(w, http.StatusOK, transcriptResponse{SessionID: id, Redacted: redact, Turns: turns})
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	app, err := h.Records.Get(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, records.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case err != nil:
		h.internal(w, "get record", err)
	default:
		writeJSON(w, http.StatusOK, app)
	}
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	q := r.URL.Query()
	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	apps, err := h.Records.List(r.Context(), strings.TrimSpace(q.Get("caller")), limit)
	if err != nil {
		h.internal(w, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": apps})
}
// #endregion handlers

// #region helpers
// ensureAuth gates read and turn endpoints only when a key is configured.
func (h *Handler) ensureAuth(w http.ResponseWriter, r *http.Request) bool {
	if !h.Auth.Enabled() {
		return true
	}
	if err := h.Auth.Authenticate(r); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return false
	}
	return true
}

func (h *Handler) internal(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.Logger.Error(msg, append(fields, zap.Error(err))...)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
// #endregion helpers
