// Package catalog holds the recommendation content catalog: educational
// items and offers keyed by persona, each carrying a rationale template and
// eligibility predicates.
//
// The catalog is two layers. The base layer is loaded once from YAML and
// never mutated. An operator override layer can replace, add, or tombstone
// items at runtime; the two layers merge by item ID at read time, so the
// base stays intact for audit.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-yaml"
)

// Item types.
const (
	TypeEducation = "education"
	TypeOffer     = "offer"
)

// PredatoryProductTypes are hard-excluded from every persona's offers,
// overriding all other eligibility rules.
var PredatoryProductTypes = map[string]bool{
	"payday_loan":               true,
	"title_loan":                true,
	"cash_advance":              true,
	"rent_to_own":               true,
	"high_interest_installment": true,
}

// Item is one catalog entry. Offers carry the extra gating fields
// (product type, income tier, account exclusions, utilization bound);
// education items leave them empty.
type Item struct {
	ID                string      `yaml:"id" json:"id"`
	Type              string      `yaml:"type" json:"type"`
	Title             string      `yaml:"title" json:"title"`
	Personas          []string    `yaml:"personas" json:"personas"`
	Topic             string      `yaml:"topic,omitempty" json:"topic,omitempty"`
	Source            string      `yaml:"source,omitempty" json:"source,omitempty"`
	RationaleTemplate string      `yaml:"rationale_template" json:"rationale_template"`
	ProductType       string      `yaml:"product_type,omitempty" json:"product_type,omitempty"`
	MinIncomeTier     string      `yaml:"min_income_tier,omitempty" json:"min_income_tier,omitempty"`
	ExcludeSubtypes   []string    `yaml:"exclude_account_subtypes,omitempty" json:"exclude_account_subtypes,omitempty"`
	MaxUtilizationPct *float64    `yaml:"max_utilization_pct,omitempty" json:"max_utilization_pct,omitempty"`
	Eligibility       []Predicate `yaml:"eligibility,omitempty" json:"eligibility,omitempty"`
}

// IsPredatory reports whether the item's product type is on the hard
// exclusion list.
func (i *Item) IsPredatory() bool {
	return PredatoryProductTypes[i.ProductType]
}

// MatchesPersona reports whether the item targets the persona.
func (i *Item) MatchesPersona(persona string) bool {
	for _, p := range i.Personas {
		if p == persona {
			return true
		}
	}
	return false
}

type catalogFile struct {
	Items   []Item   `yaml:"items"`
	Deleted []string `yaml:"deleted,omitempty"`
}

// override is one entry in the mutable layer: a replacement item or a
// tombstone. Tombstones hide the item from reads without touching the base.
type override struct {
	item    *Item
	deleted bool
}

// Catalog is the merged two-layer catalog.
type Catalog struct {
	mu        sync.RWMutex
	base      map[string]Item
	baseOrder []string
	overrides map[string]override
	extra     []string // override-only IDs, insertion order
}

// New builds a catalog from an in-memory item list, validating every item.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		base:      make(map[string]Item, len(items)),
		overrides: make(map[string]override),
	}
	for _, item := range items {
		if err := validateItem(&item); err != nil {
			return nil, fmt.Errorf("catalog item %q: %w", item.ID, err)
		}
		if _, dup := c.base[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %q: duplicate ID", item.ID)
		}
		c.base[item.ID] = item
		c.baseOrder = append(c.baseOrder, item.ID)
	}
	return c, nil
}

// Load reads the base catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(file.Items)
}

// LoadOverrides applies an operator override file on top of the base.
// Items in the file replace or add by ID; IDs under `deleted` become
// tombstones.
func (c *Catalog) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read overrides: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse overrides: %w", err)
	}

	for i := range file.Items {
		if err := c.Override(&file.Items[i]); err != nil {
			return err
		}
	}
	for _, id := range file.Deleted {
		c.Delete(id)
	}
	return nil
}

// Override replaces or adds one item in the override layer.
func (c *Catalog) Override(item *Item) error {
	if err := validateItem(item); err != nil {
		return fmt.Errorf("override item %q: %w", item.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, inBase := c.base[item.ID]
	prev, hadOverride := c.overrides[item.ID]
	if !inBase && !(hadOverride && !prev.deleted) {
		c.extra = append(c.extra, item.ID)
	}
	stored := *item
	c.overrides[item.ID] = override{item: &stored}
	return nil
}

// Delete tombstones an item. The base entry is untouched and the item
// stays reachable via Base for audit.
func (c *Catalog) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[id] = override{deleted: true}
}

// Get returns the merged view of one item and whether it is visible.
func (c *Catalog) Get(id string) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mergedLocked(id)
}

// Base returns the untouched base entry, tombstoned or not.
func (c *Catalog) Base(id string) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.base[id]
	if !ok {
		return nil, false
	}
	copied := item
	return &copied, true
}

// ItemsForPersona returns the merged, visible items of one type targeting
// the persona, in stable base-then-override order.
func (c *Catalog) ItemsForPersona(persona, itemType string) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Item
	for _, id := range c.ids() {
		item, visible := c.mergedLocked(id)
		if !visible || item.Type != itemType || !item.MatchesPersona(persona) {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func (c *Catalog) ids() []string {
	seen := make(map[string]bool, len(c.baseOrder)+len(c.extra))
	ids := make([]string, 0, len(c.baseOrder)+len(c.extra))
	for _, id := range c.baseOrder {
		seen[id] = true
		ids = append(ids, id)
	}
	extras := make([]string, 0, len(c.extra))
	for _, id := range c.extra {
		if !seen[id] {
			seen[id] = true
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)
	return append(ids, extras...)
}

func (c *Catalog) mergedLocked(id string) (*Item, bool) {
	if ov, ok := c.overrides[id]; ok {
		if ov.deleted {
			return nil, false
		}
		copied := *ov.item
		return &copied, true
	}
	if item, ok := c.base[id]; ok {
		copied := item
		return &copied, true
	}
	return nil, false
}

func validateItem(item *Item) error {
	if item.ID == "" {
		return fmt.Errorf("missing ID")
	}
	if item.Type != TypeEducation && item.Type != TypeOffer {
		return fmt.Errorf("unknown type %q", item.Type)
	}
	if item.Title == "" {
		return fmt.Errorf("missing title")
	}
	if item.RationaleTemplate == "" {
		return fmt.Errorf("missing rationale template")
	}
	if len(item.Personas) == 0 {
		return fmt.Errorf("targets no personas")
	}
	for _, p := range item.Eligibility {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
