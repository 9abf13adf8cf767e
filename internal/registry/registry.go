// Package registry owns the canonical set of registered products. It
// enforces code uniqueness, persists the collection as one serialized
// slot, and answers list/aggregate queries. All failures are returned as
// typed values; nothing panics across this boundary.
package registry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inventory-tools/scanreg/internal/models"
	"github.com/inventory-tools/scanreg/internal/store"
)

// storageKey is the single well-known slot holding the whole collection.
const storageKey = "products"

// clearTokenTTL bounds how long a clear-all confirmation token stays valid.
const clearTokenTTL = 30 * time.Second

// Registry is the product registry controller. Every mutation performs
// one full read and one full versioned write of the persisted slot.
type Registry struct {
	store store.Store

	now   func() time.Time
	newID func() string

	mu            sync.Mutex
	clearToken    string
	clearDeadline time.Time
}

func New(st store.Store) *Registry {
	return &Registry{
		store: st,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// load reads and parses the persisted collection along with its slot
// version. An absent or unparsable payload degrades to the empty
// collection; corruption is logged but never propagated.
func (r *Registry) load() ([]models.Product, uint64, error) {
	raw, version, ok, err := r.store.GetVersioned(storageKey)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, nil
	}
	var products []models.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		slog.Warn("Discarding unparsable registry payload", "err", err, "bytes", len(raw))
		return nil, version, nil
	}
	return products, version, nil
}

func (r *Registry) save(products []models.Product, version uint64) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return err
	}
	if err := r.store.SetVersioned(storageKey, string(raw), version); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return &ConflictError{}
		}
		return err
	}
	return nil
}

// List returns all products, most recently created first.
func (r *Registry) List() ([]models.Product, error) {
	products, _, err := r.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

// FindByCode scans the current collection for a product with the given
// code. Comparison is exact on the trimmed value, case-sensitive — the
// same rule used by Register, so scan-time duplicate detection and
// pre-submit validation can never disagree.
func (r *Registry) FindByCode(code string) (models.Product, bool, error) {
	code = strings.TrimSpace(code)
	products, _, err := r.load()
	if err != nil {
		return models.Product{}, false, err
	}
	for _, p := range products {
		if strings.TrimSpace(p.Code) == code {
			return p, true, nil
		}
	}
	return models.Product{}, false, nil
}

// ParsePrice converts operator input into a price, rejecting anything
// that is not a finite, non-negative number.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: "price", Reason: "must not be empty"}
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Field: "price", Reason: "must be a number"}
	}
	return price, nil
}

func validate(code, name string, price float64) error {
	if code == "" {
		return &ValidationError{Field: "code", Reason: "must not be empty"}
	}
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return &ValidationError{Field: "price", Reason: "must be a finite number"}
	}
	if price < 0 {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return nil
}

// Register validates the input, re-checks uniqueness against the current
// persisted collection, and appends a new product. Returns
// *ValidationError, *DuplicateError or *ConflictError without touching
// state on failure.
func (r *Registry) Register(code, name string, price float64) (models.Product, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if err := validate(code, name, price); err != nil {
		return models.Product{}, err
	}

	// Uniqueness is checked against the slot read in the same cycle as
	// the write-back, not a cached snapshot.
	products, version, err := r.load()
	if err != nil {
		return models.Product{}, err
	}
	for _, p := range products {
		if strings.TrimSpace(p.Code) == code {
			return models.Product{}, &DuplicateError{Existing: p}
		}
	}

	product := models.Product{
		ID:        r.newID(),
		Code:      code,
		Name:      name,
		Price:     price,
		CreatedAt: r.now(),
	}
	if err := r.save(append(products, product), version); err != nil {
		return models.Product{}, err
	}
	slog.Info("Registered product", "code", product.Code, "name", product.Name, "price", product.Price)
	return product, nil
}

// Remove deletes the product with the given id. Removing an unknown id
// is a no-op returning false, not an error.
func (r *Registry) Remove(id string) (bool, error) {
	products, version, err := r.load()
	if err != nil {
		return false, err
	}
	kept := products[:0:0]
	removed := false
	for _, p := range products {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return false, nil
	}
	if kept == nil {
		kept = []models.Product{}
	}
	if err := r.save(kept, version); err != nil {
		return false, err
	}
	slog.Info("Removed product", "id", id)
	return true, nil
}

// ClearAll unconditionally replaces the persisted collection with the
// empty collection.
func (r *Registry) ClearAll() error {
	if err := r.store.Set(storageKey, "[]"); err != nil {
		return err
	}
	slog.Info("Cleared registry")
	return nil
}

// RequestClear starts the two-step clear-all exchange and returns the
// single-use confirmation token. A new request replaces any outstanding
// token.
func (r *Registry) RequestClear() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearToken = r.newID()
	r.clearDeadline = r.now().Add(clearTokenTTL)
	return r.clearToken
}

// ConfirmClear consumes the token issued by RequestClear and clears the
// registry. An unknown or expired token fails with no state change.
func (r *Registry) ConfirmClear(token string) error {
	r.mu.Lock()
	valid := token != "" && token == r.clearToken && r.now().Before(r.clearDeadline)
	if valid {
		r.clearToken = ""
	}
	r.mu.Unlock()
	if !valid {
		return &ValidationError{Field: "token", Reason: "unknown or expired confirmation token"}
	}
	return r.ClearAll()
}

// Aggregate reports the product count and the sum of all prices.
func (r *Registry) Aggregate() (models.Aggregate, error) {
	products, err := r.List()
	if err != nil {
		return models.Aggregate{}, err
	}
	agg := models.Aggregate{Count: len(products)}
	for _, p := range products {
		agg.TotalValue += p.Price
	}
	return agg, nil
}
