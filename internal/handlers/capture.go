package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/inventory-tools/scanreg/internal/capture"
	"github.com/inventory-tools/scanreg/internal/notify"
)

// handleIdentifier is the scan integration policy, invoked by the
// session for every decoded candidate while active. A duplicate stops
// the session, raises exactly one error notice and resets the staged
// form; a new code stays in the active session and becomes the pending
// registration prefill.
func (h *Handler) handleIdentifier(text, format string) {
	code := strings.TrimSpace(text)
	if code == "" {
		return
	}

	existing, found, err := h.registry.FindByCode(code)
	if err != nil {
		h.notifier.Post(notify.Error, "Could not check the scanned code, try again")
		return
	}

	if found {
		h.session.Stop()
		h.setPendingCode("")
		h.notifier.Post(notify.Error, fmt.Sprintf("DUPLICATE: %q with code %s is already registered", existing.Name, existing.Code))
		return
	}

	h.setPendingCode(code)
	h.notifier.Post(notify.Success, fmt.Sprintf("NEW: code %s detected (%s). Fill in the details to register it.", code, format))
}

// captureStatus is the session view the operator page polls.
type captureStatus struct {
	State          capture.State   `json:"state"`
	Source         *capture.Source `json:"source,omitempty"`
	PendingCode    string          `json:"pending_code,omitempty"`
	LastFailure    string          `json:"last_failure,omitempty"`
	NoiseSuppress  uint64          `json:"noise_suppressed"`
	OperatorAdvice string          `json:"operator_advice,omitempty"`
}

func (h *Handler) status() captureStatus {
	st := captureStatus{
		State:         h.session.State(),
		PendingCode:   h.PendingCode(),
		NoiseSuppress: h.session.NoiseCount(),
	}
	if src := h.session.ActiveSource(); src.ID != "" {
		st.Source = &src
	}
	if acq := h.session.LastFailure(); acq != nil && st.State == capture.Failed {
		st.LastFailure = acq.Error()
		st.OperatorAdvice = acq.OperatorMessage()
	}
	return st
}

func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, h.status())
}

func (h *Handler) HandleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.session.Start(); err != nil {
		var acq *capture.AcquisitionError
		if errors.As(err, &acq) {
			h.notifier.Post(notify.Error, acq.OperatorMessage())
			h.writeJSON(w, http.StatusConflict, h.status())
			return
		}
		h.writeError(w, "Failed to start capture: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.notifier.Post(notify.Info, "Scanner active. Point the camera at the barcode.")
	h.writeJSON(w, http.StatusOK, h.status())
}

func (h *Handler) HandleCaptureStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.session.Stop()
	h.notifier.Post(notify.Info, "Scanner stopped")
	h.writeJSON(w, http.StatusOK, h.status())
}

// HandleScan is the entry point for decoded identifiers: the browser
// bridge posts every hit here and the event flows through the session,
// so events racing a stop are dropped the same way a native device's
// would be.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text   string `json:"text"`
		Format string `json:"format"`
		Noise  string `json:"noise"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Noise != "" {
		h.bridge.Noise(req.Noise)
		h.writeJSON(w, http.StatusOK, h.status())
		return
	}
	h.bridge.Emit(req.Text, req.Format)
	h.writeJSON(w, http.StatusOK, h.status())
}
