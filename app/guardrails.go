package app

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"spendsense/catalog"
	models "spendsense/database/models_pkg"
)

// Guardrail stage names, in execution order.
const (
	StageConsent     = "consent"
	StageTone        = "tone"
	StageEligibility = "eligibility"
)

// Reason codes surfaced in run metadata when the final set is empty.
const (
	ReasonConsentNotGranted = "consent_not_granted"
	ReasonGeneralPersona    = "general_persona_no_recommendations"
	ReasonInsufficientData  = "insufficient_data"
)

// prohibitedPhrases maps each banned phrase to its suggested replacement.
// Matching is word-boundary and case-insensitive.
var prohibitedPhrases = map[string]string{
	"overspending":  "spending more than planned",
	"bad habit":     "pattern worth revisiting",
	"you should":    "you could",
	"you must":      "you may want to",
	"irresponsible": "worth a closer look",
	"wasteful":      "less efficient",
	"failure":       "setback",
	"poor choice":   "alternative worth considering",
	"careless":      "easy to overlook",
	"reckless":      "higher-risk",
}

var phrasePatterns = compilePhrasePatterns()

// phraseOrder fixes the scan order so identical inputs always produce the
// same violation list in the audit payload.
var phraseOrder = sortedPhrases()

func compilePhrasePatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(prohibitedPhrases))
	for phrase := range prohibitedPhrases {
		patterns[phrase] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	}
	return patterns
}

func sortedPhrases() []string {
	phrases := make([]string, 0, len(prohibitedPhrases))
	for phrase := range prohibitedPhrases {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)
	return phrases
}

// ToneViolation records one prohibited-phrase hit with enough context to
// audit and fix the source text.
type ToneViolation struct {
	ItemID     string `json:"item_id"`
	Field      string `json:"field"` // title or rationale
	Phrase     string `json:"phrase"`
	Offset     int    `json:"offset"`
	Context    string `json:"context"`
	Suggestion string `json:"suggestion"`
}

// StageResult is one guardrail stage's pass/fail decision with reasons.
type StageResult struct {
	Stage      string          `json:"stage"`
	Passed     bool            `json:"passed"`
	Reasons    []string        `json:"reasons,omitempty"`
	Violations []ToneViolation `json:"violations,omitempty"`
	Excluded   []ExcludedItem  `json:"excluded,omitempty"`
}

// GuardrailOutcome is the full gate output: the user-visible filtered set
// plus every stage's decision for the audit trace.
type GuardrailOutcome struct {
	Passed      bool                 `json:"passed"`
	Blocked     bool                 `json:"blocked"`
	BlockReason string               `json:"block_reason,omitempty"`
	Filtered    []RecommendationItem `json:"filtered_recommendations"`
	Stages      []StageResult        `json:"stages"`
	Summary     string               `json:"summary"`
}

// GuardrailContext carries everything the stages need for one evaluation.
type GuardrailContext struct {
	UserID         string
	ConsentGranted bool
	Candidates     []RecommendationItem
	Bundle         *SignalBundle
	User           *models.User
	Accounts       []models.Account
}

// GuardrailGate runs the three ordered, short-circuiting policy stages:
// consent (blocking), tone scan (recorded, non-fatal per item), and a
// defense-in-depth offer eligibility re-check.
type GuardrailGate struct {
	catalog *catalog.Catalog
}

// NewGuardrailGate creates a guardrail gate over the merged catalog.
func NewGuardrailGate(cat *catalog.Catalog) *GuardrailGate {
	return &GuardrailGate{catalog: cat}
}

// Run evaluates the stages in order. If consent is not granted no later
// stage runs and the filtered set is empty. Tone violations exclude items
// from the visible set but stay in the result for audit. Stage three
// re-filters offers only; education items are never filtered there.
func (g *GuardrailGate) Run(ctx *GuardrailContext) *GuardrailOutcome {
	outcome := &GuardrailOutcome{}

	// Stage 1: consent is blocking.
	if !ctx.ConsentGranted {
		outcome.Blocked = true
		outcome.BlockReason = ReasonConsentNotGranted
		outcome.Stages = append(outcome.Stages, StageResult{
			Stage:   StageConsent,
			Passed:  false,
			Reasons: []string{ReasonConsentNotGranted},
		})
		outcome.Summary = "blocked: consent not granted"
		return outcome
	}
	outcome.Stages = append(outcome.Stages, StageResult{Stage: StageConsent, Passed: true})

	// Stage 2: tone scan over title + rationale of every candidate.
	toneResult := StageResult{Stage: StageTone, Passed: true}
	var toneClean []RecommendationItem
	for _, item := range ctx.Candidates {
		violations := scanTone(&item)
		if len(violations) == 0 {
			toneClean = append(toneClean, item)
			continue
		}
		toneResult.Passed = false
		toneResult.Violations = append(toneResult.Violations, violations...)
		toneResult.Excluded = append(toneResult.Excluded, ExcludedItem{
			ID:     item.ID,
			Reason: fmt.Sprintf("tone violation: %q", violations[0].Phrase),
		})
	}
	outcome.Stages = append(outcome.Stages, toneResult)

	// Stage 3: offer eligibility re-check.
	eligResult := StageResult{Stage: StageEligibility, Passed: true}
	evalCtx := catalog.EvalContext{
		Signals:         SignalValues(ctx.Bundle),
		IncomeTier:      ctx.User.IncomeTier,
		AccountSubtypes: accountSubtypes(ctx.Accounts),
	}
	for _, item := range toneClean {
		if item.Type != catalog.TypeOffer {
			outcome.Filtered = append(outcome.Filtered, item)
			continue
		}
		if reason := g.recheckOffer(&item, evalCtx); reason != "" {
			eligResult.Passed = false
			eligResult.Excluded = append(eligResult.Excluded, ExcludedItem{ID: item.ID, Reason: reason})
			continue
		}
		outcome.Filtered = append(outcome.Filtered, item)
	}
	outcome.Stages = append(outcome.Stages, eligResult)

	outcome.Passed = toneResult.Passed && eligResult.Passed
	outcome.Summary = fmt.Sprintf("%d of %d candidates surfaced, %d tone violations, %d offers re-filtered",
		len(outcome.Filtered), len(ctx.Candidates), len(toneResult.Violations), len(eligResult.Excluded))
	return outcome
}

// recheckOffer reapplies the predatory exclusion, existing-account
// exclusion, and per-offer eligibility against the merged catalog entry.
func (g *GuardrailGate) recheckOffer(item *RecommendationItem, ctx catalog.EvalContext) string {
	if catalog.PredatoryProductTypes[item.ProductType] {
		return "predatory product type: " + item.ProductType
	}

	entry, ok := g.catalog.Get(item.ID)
	if !ok {
		return "catalog entry no longer available"
	}
	if entry.IsPredatory() {
		return "predatory product type: " + entry.ProductType
	}
	for _, subtype := range entry.ExcludeSubtypes {
		if ctx.AccountSubtypes[subtype] {
			return "user already holds account subtype: " + subtype
		}
	}
	if ok, failed := catalog.EvaluateAll(entry.Eligibility, ctx); !ok {
		return "eligibility predicate failed: " + failed.Kind
	}
	return ""
}

// scanTone checks one candidate's title and rationale against the
// prohibited phrase list. Fields are scanned in a fixed order and phrases
// alphabetically, with every occurrence of a phrase recorded.
func scanTone(item *RecommendationItem) []ToneViolation {
	var violations []ToneViolation
	fields := []struct {
		name string
		text string
	}{
		{"title", item.Title},
		{"rationale", item.Rationale},
	}
	for _, f := range fields {
		for _, phrase := range phraseOrder {
			for _, loc := range phrasePatterns[phrase].FindAllStringIndex(f.text, -1) {
				violations = append(violations, ToneViolation{
					ItemID:     item.ID,
					Field:      f.name,
					Phrase:     phrase,
					Offset:     loc[0],
					Context:    surrounding(f.text, loc[0], loc[1]),
					Suggestion: prohibitedPhrases[phrase],
				})
			}
		}
	}
	return violations
}

func surrounding(text string, start, end int) string {
	const pad = 20
	lo := start - pad
	if lo < 0 {
		lo = 0
	}
	hi := end + pad
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}
