package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func baseItems() []Item {
	return []Item{
		{
			ID: "edu_1", Type: TypeEducation, Title: "Budgeting basics",
			Personas:          []string{"CashFlowOptimizer"},
			RationaleTemplate: "Buffer is {cash_buffer_months} months.",
		},
		{
			ID: "offer_1", Type: TypeOffer, Title: "Round-up savings",
			Personas:          []string{"CashFlowOptimizer"},
			ProductType:       "savings_account",
			RationaleTemplate: "Round-ups add up.",
		},
	}
}

func TestNewRejectsInvalidItems(t *testing.T) {
	tests := []struct {
		name string
		item Item
	}{
		{"missing id", Item{Type: TypeEducation, Title: "x", Personas: []string{"General"}, RationaleTemplate: "y"}},
		{"unknown type", Item{ID: "a", Type: "banner", Title: "x", Personas: []string{"General"}, RationaleTemplate: "y"}},
		{"missing title", Item{ID: "a", Type: TypeEducation, Personas: []string{"General"}, RationaleTemplate: "y"}},
		{"no personas", Item{ID: "a", Type: TypeEducation, Title: "x", RationaleTemplate: "y"}},
		{"missing template", Item{ID: "a", Type: TypeEducation, Title: "x", Personas: []string{"General"}}},
		{"bad predicate", Item{
			ID: "a", Type: TypeEducation, Title: "x", Personas: []string{"General"},
			RationaleTemplate: "y",
			Eligibility:       []Predicate{{Kind: "frobnicate"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New([]Item{tt.item}); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	items := baseItems()
	items = append(items, items[0])
	if _, err := New(items); err == nil {
		t.Error("expected duplicate ID error")
	}
}

func TestOverrideDoesNotMutateBase(t *testing.T) {
	cat, err := New(baseItems())
	if err != nil {
		t.Fatal(err)
	}

	replacement := Item{
		ID: "edu_1", Type: TypeEducation, Title: "Budgeting, revised",
		Personas:          []string{"CashFlowOptimizer"},
		RationaleTemplate: "Updated template.",
	}
	if err := cat.Override(&replacement); err != nil {
		t.Fatal(err)
	}

	merged, ok := cat.Get("edu_1")
	if !ok || merged.Title != "Budgeting, revised" {
		t.Errorf("merged view should show the override, got %+v", merged)
	}

	base, ok := cat.Base("edu_1")
	if !ok || base.Title != "Budgeting basics" {
		t.Errorf("base entry must stay intact, got %+v", base)
	}
}

func TestDeleteIsTombstone(t *testing.T) {
	cat, err := New(baseItems())
	if err != nil {
		t.Fatal(err)
	}

	cat.Delete("offer_1")

	if _, ok := cat.Get("offer_1"); ok {
		t.Error("tombstoned item must not be visible")
	}
	if _, ok := cat.Base("offer_1"); !ok {
		t.Error("tombstoned item must stay readable from the base for audit")
	}

	offers := cat.ItemsForPersona("CashFlowOptimizer", TypeOffer)
	if len(offers) != 0 {
		t.Errorf("tombstoned offer still selectable: %+v", offers)
	}
}

func TestOverrideAddsNewItem(t *testing.T) {
	cat, err := New(baseItems())
	if err != nil {
		t.Fatal(err)
	}

	added := Item{
		ID: "edu_2", Type: TypeEducation, Title: "Payday timing",
		Personas:          []string{"CashFlowOptimizer"},
		RationaleTemplate: "Align bills with paydays.",
	}
	if err := cat.Override(&added); err != nil {
		t.Fatal(err)
	}

	education := cat.ItemsForPersona("CashFlowOptimizer", TypeEducation)
	if len(education) != 2 {
		t.Fatalf("expected 2 education items, got %d", len(education))
	}
}

func TestItemsForPersonaFiltersTypeAndPersona(t *testing.T) {
	cat, err := New(baseItems())
	if err != nil {
		t.Fatal(err)
	}

	if got := cat.ItemsForPersona("SavingsBuilder", TypeEducation); len(got) != 0 {
		t.Errorf("no items target SavingsBuilder, got %+v", got)
	}
	if got := cat.ItemsForPersona("CashFlowOptimizer", TypeEducation); len(got) != 1 {
		t.Errorf("expected 1 education item, got %d", len(got))
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `items:
  - id: edu_yaml
    type: education
    title: "From YAML"
    personas: [SavingsBuilder]
    rationale_template: "Growth is {savings_growth_rate_pct}."
    eligibility:
      - kind: min_threshold
        signal: net_savings_inflow
        value: 200
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	item, ok := cat.Get("edu_yaml")
	if !ok {
		t.Fatal("loaded item missing")
	}
	if len(item.Eligibility) != 1 || item.Eligibility[0].Kind != PredicateMinThreshold {
		t.Errorf("eligibility not parsed: %+v", item.Eligibility)
	}
}

func TestLoadOverridesFile(t *testing.T) {
	cat, err := New(baseItems())
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	content := `items:
  - id: edu_1
    type: education
    title: "Operator replacement"
    personas: [CashFlowOptimizer]
    rationale_template: "Replaced."
deleted: [offer_1]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cat.LoadOverrides(path); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	merged, _ := cat.Get("edu_1")
	if merged.Title != "Operator replacement" {
		t.Errorf("override not applied: %+v", merged)
	}
	if _, ok := cat.Get("offer_1"); ok {
		t.Error("deleted item still visible")
	}
}

func TestShippedCatalogLoads(t *testing.T) {
	cat, err := Load(filepath.Join("data", "catalog.yaml"))
	if err != nil {
		t.Fatalf("shipped catalog must load: %v", err)
	}
	for _, persona := range []string{"HighUtilization", "VariableIncomeBudgeter", "SubscriptionHeavy", "CashFlowOptimizer", "SavingsBuilder"} {
		if items := cat.ItemsForPersona(persona, TypeEducation); len(items) == 0 {
			t.Errorf("persona %s has no education items", persona)
		}
	}
}
