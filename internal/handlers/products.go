package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/inventory-tools/scanreg/internal/models"
	"github.com/inventory-tools/scanreg/internal/notify"
	"github.com/inventory-tools/scanreg/internal/registry"
)

// registerRequest accepts the price as either a JSON number or a string;
// either way it must parse to a finite, non-negative value before the
// registry is touched.
type registerRequest struct {
	Code  string      `json:"code"`
	Name  string      `json:"name"`
	Price interface{} `json:"price"`
}

func (req *registerRequest) price() (float64, error) {
	switch v := req.Price.(type) {
	case nil:
		return 0, &registry.ValidationError{Field: "price", Reason: "must not be empty"}
	case float64:
		return v, nil
	case string:
		return registry.ParsePrice(v)
	default:
		return 0, &registry.ValidationError{Field: "price", Reason: "must be a number"}
	}
}

func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		products, err := h.registry.List()
		if err != nil {
			h.writeRegistryError(w, err)
			return
		}
		if products == nil {
			products = []models.Product{}
		}
		h.writeJSON(w, http.StatusOK, products)
	case "POST":
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		price, err := req.price()
		if err != nil {
			h.writeRegistryError(w, err)
			return
		}
		product, err := h.registry.Register(req.Code, req.Name, price)
		if err != nil {
			h.writeRegistryError(w, err)
			return
		}

		// A successful registration consumes the staged scan and stops an
		// active capture session, mirroring the scan-register-scan rhythm
		// at the counter.
		h.setPendingCode("")
		h.session.Stop()
		h.notifier.Post(notify.Success, fmt.Sprintf("Registered %q with code %s", product.Name, product.Code))
		h.writeJSON(w, http.StatusCreated, product)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleProductDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, "Product not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "DELETE":
		removed, err := h.registry.Remove(id)
		if err != nil {
			h.writeRegistryError(w, err)
			return
		}
		if removed {
			h.notifier.Post(notify.Success, "Product removed")
		}
		h.writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleClear implements the two-step destructive clear: a request
// without a token answers with a single-use confirmation token; posting
// that token back performs the clear.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if r.Body != nil {
		// An empty body is a plain clear request.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.Token == "" {
		token := h.registry.RequestClear()
		h.writeJSON(w, http.StatusAccepted, map[string]string{"token": token})
		return
	}

	if err := h.registry.ConfirmClear(req.Token); err != nil {
		h.writeRegistryError(w, err)
		return
	}
	h.setPendingCode("")
	h.notifier.Post(notify.Success, "All products removed")
	h.writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	agg, err := h.registry.Aggregate()
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, agg)
}

// HandleLookup answers pre-submit duplicate checks from the form, using
// the same comparison rule as scan-time detection.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := r.URL.Query().Get("code")
	product, found, err := h.registry.FindByCode(code)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	if !found {
		h.writeJSON(w, http.StatusNotFound, map[string]bool{"found": false})
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleNotice(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	notice, ok := h.notifier.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, notice)
}
