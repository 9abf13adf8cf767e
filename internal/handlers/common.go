package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/inventory-tools/scanreg/internal/capture"
	"github.com/inventory-tools/scanreg/internal/notify"
	"github.com/inventory-tools/scanreg/internal/registry"
)

// Handler composes the registry, the capture session and the
// notification slot behind the HTTP surface. It also owns the scan
// integration policy: what happens when an identifier arrives while the
// session is active.
type Handler struct {
	registry *registry.Registry
	session  *capture.Session
	bridge   *capture.Bridge
	notifier *notify.Notifier

	mu          sync.Mutex
	pendingCode string
}

func New(reg *registry.Registry, session *capture.Session, bridge *capture.Bridge, notifier *notify.Notifier) *Handler {
	h := &Handler{
		registry: reg,
		session:  session,
		bridge:   bridge,
		notifier: notifier,
	}
	session.OnIdentifier(h.handleIdentifier)
	return h
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeRegistryError maps the registry error taxonomy onto status codes:
// validation 422, duplicate and concurrent-write conflicts 409, anything
// else 500.
func (h *Handler) writeRegistryError(w http.ResponseWriter, err error) {
	var verr *registry.ValidationError
	var derr *registry.DuplicateError
	var cerr *registry.ConflictError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": verr.Error(),
			"field": verr.Field,
		})
	case errors.As(err, &derr):
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":    derr.Error(),
			"existing": derr.Existing,
		})
	case errors.As(err, &cerr):
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": cerr.Error(),
		})
	default:
		slog.Error("Registry operation failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) setPendingCode(code string) {
	h.mu.Lock()
	h.pendingCode = code
	h.mu.Unlock()
}

// PendingCode is the staged registration prefill from the last accepted
// scan.
func (h *Handler) PendingCode() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pendingCode
}
