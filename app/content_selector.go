package app

import (
	"spendsense/catalog"
	"spendsense/config"
	models "spendsense/database/models_pkg"
)

// Disclaimer is attached verbatim to every recommendation that reaches a
// user. Guardrails verify it is present; nothing may rewrite it.
const Disclaimer = "This is educational information, not financial advice. Review your full financial situation or consult a licensed advisor before acting."

// RecommendationItem is one selected piece of content with its rationale
// already rendered from the user's signals.
type RecommendationItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Topic       string `json:"topic,omitempty"`
	Source      string `json:"source,omitempty"`
	ProductType string `json:"product_type,omitempty"`
	Rationale   string `json:"rationale"`
	Disclaimer  string `json:"disclaimer"`
}

// ExcludedItem records a candidate dropped during selection, for audit.
type ExcludedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// SelectionResult is the content selector output. Shortfall counts surface
// when fewer eligible items exist than the configured minimum; the selector
// never pads with ineligible items.
type SelectionResult struct {
	Education          []RecommendationItem `json:"education"`
	Offers             []RecommendationItem `json:"offers"`
	EducationShortfall int                  `json:"education_shortfall"`
	OffersShortfall    int                  `json:"offers_shortfall"`
	Excluded           []ExcludedItem       `json:"excluded,omitempty"`
}

// ContentSelector picks eligible catalog items for a persona.
type ContentSelector struct {
	catalog   *catalog.Catalog
	cfg       config.SelectionConfig
	formatter *RationaleFormatter
}

// NewContentSelector creates a content selector over the merged catalog.
func NewContentSelector(cat *catalog.Catalog, cfg config.SelectionConfig) *ContentSelector {
	return &ContentSelector{
		catalog:   cat,
		cfg:       cfg,
		formatter: NewRationaleFormatter(),
	}
}

// Select retrieves the persona's catalog items, filters them through their
// eligibility predicates and the offer gates, renders rationales, and
// enforces the selection bounds. The General persona targets no catalog
// items, so it naturally selects nothing.
func (s *ContentSelector) Select(persona string, bundle *SignalBundle, user *models.User, accounts []models.Account) *SelectionResult {
	ctx := catalog.EvalContext{
		Signals:         SignalValues(bundle),
		IncomeTier:      user.IncomeTier,
		AccountSubtypes: accountSubtypes(accounts),
	}
	result := &SelectionResult{}

	for _, item := range s.catalog.ItemsForPersona(persona, catalog.TypeEducation) {
		if len(result.Education) >= s.cfg.EducationMax {
			break
		}
		if ok, failed := catalog.EvaluateAll(item.Eligibility, ctx); !ok {
			result.Excluded = append(result.Excluded, ExcludedItem{
				ID:     item.ID,
				Reason: "eligibility predicate failed: " + failed.Kind,
			})
			continue
		}
		result.Education = append(result.Education, s.render(&item, ctx.Signals))
	}

	for _, item := range s.catalog.ItemsForPersona(persona, catalog.TypeOffer) {
		if len(result.Offers) >= s.cfg.OffersMax {
			break
		}
		if reason := s.gateOffer(&item, ctx, bundle); reason != "" {
			result.Excluded = append(result.Excluded, ExcludedItem{ID: item.ID, Reason: reason})
			continue
		}
		result.Offers = append(result.Offers, s.render(&item, ctx.Signals))
	}

	if len(result.Education) < s.cfg.EducationMin {
		result.EducationShortfall = s.cfg.EducationMin - len(result.Education)
	}
	if len(result.Offers) < s.cfg.OffersMin {
		result.OffersShortfall = s.cfg.OffersMin - len(result.Offers)
	}
	return result
}

// gateOffer applies the offer-only gates. The predatory exclusion comes
// first and overrides every other eligibility rule.
func (s *ContentSelector) gateOffer(item *catalog.Item, ctx catalog.EvalContext, bundle *SignalBundle) string {
	if item.IsPredatory() {
		return "predatory product type: " + item.ProductType
	}
	if item.MinIncomeTier != "" {
		tierGate := catalog.Predicate{Kind: catalog.PredicateIncomeTierAtLeast, Tier: item.MinIncomeTier}
		if !tierGate.Evaluate(ctx) {
			return "income tier below " + item.MinIncomeTier
		}
	}
	for _, subtype := range item.ExcludeSubtypes {
		if ctx.AccountSubtypes[subtype] {
			return "user already holds account subtype: " + subtype
		}
	}
	if item.MaxUtilizationPct != nil && bundle.Long.Credit.MaxUtilizationPct > *item.MaxUtilizationPct {
		return "utilization above offer bound"
	}
	if ok, failed := catalog.EvaluateAll(item.Eligibility, ctx); !ok {
		return "eligibility predicate failed: " + failed.Kind
	}
	return ""
}

func (s *ContentSelector) render(item *catalog.Item, signals map[string]float64) RecommendationItem {
	return RecommendationItem{
		ID:          item.ID,
		Type:        item.Type,
		Title:       item.Title,
		Topic:       item.Topic,
		Source:      item.Source,
		ProductType: item.ProductType,
		Rationale:   s.formatter.Format(item.RationaleTemplate, signals),
		Disclaimer:  Disclaimer,
	}
}

func accountSubtypes(accounts []models.Account) map[string]bool {
	subtypes := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		subtypes[a.Subtype] = true
	}
	return subtypes
}
