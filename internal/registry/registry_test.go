package registry

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inventory-tools/scanreg/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	return New(st), st
}

func TestRegisterRoundTrip(t *testing.T) {
	reg, _ := newTestRegistry(t)

	product, err := reg.Register("  A1 ", " Widget ", 9.99)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if product.Code != "A1" {
		t.Errorf("Expected trimmed code A1, got %q", product.Code)
	}
	if product.Name != "Widget" {
		t.Errorf("Expected trimmed name Widget, got %q", product.Name)
	}
	if product.ID == "" {
		t.Error("Expected generated ID")
	}
	if product.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	products, err := reg.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("Expected 1 product, got %d", len(products))
	}
	if products[0] != product {
		t.Errorf("Listed product %+v does not match registered %+v", products[0], product)
	}
}

func TestListNewestFirst(t *testing.T) {
	reg, _ := newTestRegistry(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(2 * time.Hour), base.Add(time.Hour)}
	i := 0
	reg.now = func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	for _, code := range []string{"A1", "A2", "A3"} {
		if _, err := reg.Register(code, "Item "+code, 1); err != nil {
			t.Fatalf("Register %s failed: %v", code, err)
		}
	}

	products, err := reg.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"A2", "A3", "A1"}
	for idx, code := range want {
		if products[idx].Code != code {
			t.Errorf("Position %d: expected %s, got %s", idx, code, products[idx].Code)
		}
	}
}

func TestRegisterValidationRejectsBeforeMutation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	cases := []struct {
		name  string
		code  string
		pname string
		price float64
	}{
		{"empty code", "", "x", 5},
		{"whitespace code", "   ", "x", 5},
		{"empty name", "A1", "", 5},
		{"negative price", "A1", "x", -1},
		{"nan price", "A1", "x", math.NaN()},
		{"inf price", "A1", "x", math.Inf(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Register(tc.code, tc.pname, tc.price)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			products, err := reg.List()
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(products) != 0 {
				t.Errorf("Registry changed after rejected input: %d products", len(products))
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	if _, err := ParsePrice("abc"); err == nil {
		t.Error("Expected error for non-numeric price")
	}
	if _, err := ParsePrice(""); err == nil {
		t.Error("Expected error for empty price")
	}
	price, err := ParsePrice(" 9.99 ")
	if err != nil {
		t.Fatalf("ParsePrice failed: %v", err)
	}
	if price != 9.99 {
		t.Errorf("Expected 9.99, got %v", price)
	}
}

func TestRegisterDuplicateRejectsBeforeMutation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	first, err := reg.Register("A1", "Widget", 9.99)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err = reg.Register("A1", "Other", 1.0)
	var derr *DuplicateError
	if !errors.As(err, &derr) {
		t.Fatalf("Expected DuplicateError, got %v", err)
	}
	if derr.Existing != first {
		t.Errorf("Expected conflicting product %+v, got %+v", first, derr.Existing)
	}

	products, err := reg.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(products) != 1 || products[0] != first {
		t.Errorf("Registry changed after rejected duplicate: %+v", products)
	}
}

func TestUniquenessAcrossSequences(t *testing.T) {
	reg, _ := newTestRegistry(t)

	codes := []string{"A1", "B2", "A1 ", " B2", "C3", "C3"}
	for _, code := range codes {
		// Ignore errors; only successful registrations matter here.
		reg.Register(code, "Item", 1)
	}

	products, err := reg.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	seen := map[string]bool{}
	for _, p := range products {
		if seen[p.Code] {
			t.Errorf("Duplicate code %q in registry", p.Code)
		}
		seen[p.Code] = true
	}
	if len(products) != 3 {
		t.Errorf("Expected 3 unique products, got %d", len(products))
	}
}

func TestFindByCodeTrimsBothSides(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if _, err := reg.Register("A1", "Widget", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, found, _ := reg.FindByCode("  A1  "); !found {
		t.Error("Expected to find A1 with padded query")
	}
	if _, found, _ := reg.FindByCode("a1"); found {
		t.Error("Comparison must be case-sensitive; a1 should not match A1")
	}
	if _, found, _ := reg.FindByCode("A2"); found {
		t.Error("A2 should be absent")
	}
}

func TestRemoveIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)

	product, err := reg.Register("A1", "Widget", 1)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	keep, err := reg.Register("B2", "Gadget", 2)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	removed, err := reg.Remove(product.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Error("Expected first Remove to return true")
	}

	removed, err = reg.Remove(product.ID)
	if err != nil {
		t.Fatalf("Second Remove failed: %v", err)
	}
	if removed {
		t.Error("Expected second Remove to return false")
	}

	products, err := reg.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != keep.ID {
		t.Errorf("Registry after removes: %+v", products)
	}
}

func TestAggregate(t *testing.T) {
	reg, _ := newTestRegistry(t)

	agg, err := reg.Aggregate()
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.Count != 0 || agg.TotalValue != 0 {
		t.Errorf("Expected empty aggregate, got %+v", agg)
	}

	prices := []float64{9.99, 5.00, 0}
	for i, price := range prices {
		if _, err := reg.Register(string(rune('A'+i))+"1", "Item", price); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	agg, err = reg.Aggregate()
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.Count != 3 {
		t.Errorf("Expected count 3, got %d", agg.Count)
	}
	if math.Abs(agg.TotalValue-14.99) > 1e-9 {
		t.Errorf("Expected total 14.99, got %v", agg.TotalValue)
	}
}

func TestClearAll(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if _, err := reg.Register("A1", "Widget", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := reg.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	products, err := reg.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("Expected empty registry, got %d products", len(products))
	}

	// Clearing an already empty registry is fine.
	if err := reg.ClearAll(); err != nil {
		t.Errorf("ClearAll on empty registry failed: %v", err)
	}
}

func TestTwoStepClear(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if _, err := reg.Register("A1", "Widget", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := reg.ConfirmClear("bogus"); err == nil {
		t.Error("Expected error for unknown token")
	}
	products, _ := reg.List()
	if len(products) != 1 {
		t.Fatalf("Registry changed by rejected confirmation")
	}

	token := reg.RequestClear()
	if token == "" {
		t.Fatal("Expected non-empty token")
	}
	if err := reg.ConfirmClear(token); err != nil {
		t.Fatalf("ConfirmClear failed: %v", err)
	}
	products, _ = reg.List()
	if len(products) != 0 {
		t.Error("Expected empty registry after confirmed clear")
	}

	// Token is single-use.
	if err := reg.ConfirmClear(token); err == nil {
		t.Error("Expected error reusing a consumed token")
	}
}

func TestClearTokenExpires(t *testing.T) {
	reg, _ := newTestRegistry(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	token := reg.RequestClear()
	now = now.Add(clearTokenTTL + time.Second)
	if err := reg.ConfirmClear(token); err == nil {
		t.Error("Expected error for expired token")
	}
}

func TestCorruptPayloadTreatedAsEmpty(t *testing.T) {
	reg, st := newTestRegistry(t)

	if err := st.Set("products", "{not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	products, err := reg.List()
	if err != nil {
		t.Fatalf("List should recover from corrupt payload, got %v", err)
	}
	if len(products) != 0 {
		t.Errorf("Expected empty registry, got %d products", len(products))
	}

	// The registry stays usable after the silent repair.
	if _, err := reg.Register("A1", "Widget", 1); err != nil {
		t.Fatalf("Register after corruption failed: %v", err)
	}
	products, _ = reg.List()
	if len(products) != 1 {
		t.Errorf("Expected 1 product after repair, got %d", len(products))
	}
}

func TestCorruptSlotFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	reg := New(st)

	if _, err := reg.Register("A1", "Widget", 9.99); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Clobber the slot file itself, not just the inner payload.
	if err := os.WriteFile(filepath.Join(dir, "products.json"), []byte("{garbage"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	products, err := reg.List()
	if err != nil {
		t.Fatalf("List should recover from a corrupt slot file, got %v", err)
	}
	if len(products) != 0 {
		t.Errorf("Expected empty registry, got %d products", len(products))
	}

	agg, err := reg.Aggregate()
	if err != nil || agg.Count != 0 {
		t.Errorf("Aggregate after corruption: %+v err=%v", agg, err)
	}
	if removed, err := reg.Remove("missing"); err != nil || removed {
		t.Errorf("Remove after corruption: removed=%v err=%v", removed, err)
	}

	// The next registration repairs the slot.
	if _, err := reg.Register("B2", "Gadget", 5); err != nil {
		t.Fatalf("Register after corruption failed: %v", err)
	}
	products, _ = reg.List()
	if len(products) != 1 || products[0].Code != "B2" {
		t.Errorf("Expected repaired registry with B2, got %+v", products)
	}
}

// conflictStore fails the first versioned write, simulating a concurrent
// writer landing between the read and the write.
type conflictStore struct {
	*store.MemStore
	tripped bool
}

func (c *conflictStore) SetVersioned(key, value string, version uint64) error {
	if !c.tripped {
		c.tripped = true
		return store.ErrVersionConflict
	}
	return c.MemStore.SetVersioned(key, value, version)
}

func TestRegisterReportsWriteConflict(t *testing.T) {
	st := &conflictStore{MemStore: store.NewMemStore()}
	reg := New(st)

	_, err := reg.Register("A1", "Widget", 1)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}

	// A retry lands normally.
	if _, err := reg.Register("A1", "Widget", 1); err != nil {
		t.Fatalf("Retry after conflict failed: %v", err)
	}
}

func TestProductsAreDetachedCopies(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if _, err := reg.Register("A1", "Widget", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	products, _ := reg.List()
	products[0].Name = "Mutated"
	products[0].Price = 999

	again, _ := reg.List()
	if again[0].Name != "Widget" || again[0].Price != 1 {
		t.Errorf("Caller mutation leaked into registry: %+v", again[0])
	}
}
