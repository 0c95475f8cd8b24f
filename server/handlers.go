package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/onnwee/clipbot/chat"
	"github.com/onnwee/clipbot/db"
	"github.com/onnwee/clipbot/telemetry"
)

// SessionView is the read side of the chat session.
type SessionView interface {
	Ready() bool
	Snapshot() chat.Snapshot
}

// CredentialView reports the credential the platform client is using.
type CredentialView interface {
	Active() (int, string)
}

// ClipLedger lists stored clips.
type ClipLedger interface {
	Ping(ctx context.Context) error
	RecentClips(ctx context.Context, limit int) ([]db.ClipRow, error)
	SchemaVersion(ctx context.Context) (uint, bool, error)
}

// Deps are the components the handlers read from. Credentials and Clips may be nil.
type Deps struct {
	Session     SessionView
	Credentials CredentialView
	Clips       ClipLedger
}

// Handlers serves the status endpoints.
type Handlers struct {
	deps Deps
}

// NewHandlers creates a Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

// HandleHealthz is the liveness probe. The process answering is enough.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once a broadcast is bound and the ledger (if any) answers.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"session", func() error {
			if h.deps.Session == nil || !h.deps.Session.Ready() {
				return chat.ErrSessionNotReady
			}
			return nil
		}},
		{"database", func() error {
			if h.deps.Clips == nil {
				return nil
			}
			return h.deps.Clips.Ping(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	Session          chat.Snapshot `json:"session"`
	CredentialIndex  int           `json:"credential_index"`
	CredentialLabel  string        `json:"credential_label,omitempty"`
	ClipLedgerActive bool          `json:"clip_ledger"`
	SchemaVersion    *uint         `json:"schema_version,omitempty"`
	SchemaDirty      bool          `json:"schema_dirty,omitempty"`
}

// HandleStatus returns the session snapshot and the active credential.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{ClipLedgerActive: h.deps.Clips != nil}
	if h.deps.Session != nil {
		resp.Session = h.deps.Session.Snapshot()
	}
	if h.deps.Credentials != nil {
		resp.CredentialIndex, resp.CredentialLabel = h.deps.Credentials.Active()
	}
	if h.deps.Clips != nil {
		v, dirty, err := h.deps.Clips.SchemaVersion(r.Context())
		if err != nil {
			telemetry.LoggerWithCorr(r.Context()).Warn("read schema version failed", slog.Any("err", err), slog.String("component", "http"))
		} else {
			resp.SchemaVersion, resp.SchemaDirty = &v, dirty
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleClips lists recent clips (?limit=N). 404 when the ledger is disabled.
func (h *Handlers) HandleClips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Clips == nil {
		http.Error(w, "clip ledger disabled", http.StatusNotFound)
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	rows, err := h.deps.Clips.RecentClips(r.Context(), limit)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("list clips failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, fmt.Sprintf("list clips: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseIntQuery extracts an int parameter from query string with a default value.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
