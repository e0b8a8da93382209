package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"spendsense/catalog"
	"spendsense/config"
	"spendsense/database"
	"spendsense/database/audit"
	models "spendsense/database/models_pkg"
)

// DataSource is the read-only record access the engine consumes. The
// users repository satisfies it; tests supply fixtures.
type DataSource interface {
	GetUser(userID string) (*models.User, error)
	GetAccounts(userID string) ([]models.Account, error)
	GetLiabilities(userID string) ([]models.Liability, error)
	GetTransactionsSince(userID string, since time.Time) ([]models.Transaction, error)
}

// PersonaStore persists point-of-record persona assignments.
type PersonaStore interface {
	SaveAssignment(assignment *models.PersonaAssignment) error
}

// SignalSink receives flattened signal rows. The columnar store satisfies
// it; a nil sink disables flattening.
type SignalSink interface {
	Upsert(row *database.SignalRow) error
}

// KVCache is the subset of the redis wrapper the engine uses.
type KVCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RunMetadata describes one recommendation run: counts, shortfalls, and a
// reason code when the final set is empty.
type RunMetadata struct {
	RunID              string    `json:"run_id"`
	GeneratedAt        time.Time `json:"generated_at"`
	EducationCount     int       `json:"education_count"`
	OfferCount         int       `json:"offer_count"`
	EducationShortfall int       `json:"education_shortfall"`
	OffersShortfall    int       `json:"offers_shortfall"`
	Reason             string    `json:"reason,omitempty"`
}

// RecommendationSet is the full pipeline output for one user.
type RecommendationSet struct {
	UserID          string               `json:"user_id"`
	Persona         string               `json:"persona"`
	Recommendations []RecommendationItem `json:"recommendations"`
	Metadata        RunMetadata          `json:"metadata"`
	Guardrails      *GuardrailOutcome    `json:"guardrails"`
}

// Engine is the synchronous per-user decision pipeline: signal detection,
// persona classification, content selection, guardrails, and audit
// recording. Runs for different users are independent; within one run the
// stages are strictly sequential.
type Engine struct {
	cfg        *config.Config
	data       DataSource
	personas   PersonaStore
	trace      audit.TraceStore
	signals    SignalSink // optional
	cache      KVCache    // optional
	detector   *SignalDetector
	classifier *PersonaClassifier
	selector   *ContentSelector
	gate       *GuardrailGate
	now        func() time.Time
}

// NewEngine wires the pipeline. The cache and signal sink may be nil;
// everything else is required.
func NewEngine(cfg *config.Config, data DataSource, personaStore PersonaStore, trace audit.TraceStore, cat *catalog.Catalog) *Engine {
	return &Engine{
		cfg:        cfg,
		data:       data,
		personas:   personaStore,
		trace:      trace,
		detector:   NewSignalDetector(cfg.Signals),
		classifier: NewPersonaClassifier(cfg.Personas),
		selector:   NewContentSelector(cat, cfg.Selection),
		gate:       NewGuardrailGate(cat),
		now:        time.Now,
	}
}

// SetSignalSink attaches the columnar signal row store.
func (e *Engine) SetSignalSink(sink SignalSink) { e.signals = sink }

// SetCache attaches the cache used for short-lived consent lookups.
func (e *Engine) SetCache(c KVCache) { e.cache = c }

// SetClock overrides the engine clock, for deterministic runs.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// ComputeSignals fetches the user's records and computes the signal
// bundle. Identical records and window boundaries yield an identical
// bundle apart from the computation timestamp.
func (e *Engine) ComputeSignals(userID string) (*SignalBundle, error) {
	if _, err := e.data.GetUser(userID); err != nil {
		return nil, err
	}
	return e.computeSignals(userID, e.now())
}

func (e *Engine) computeSignals(userID string, now time.Time) (*SignalBundle, error) {
	accounts, err := e.data.GetAccounts(userID)
	if err != nil {
		return nil, err
	}
	liabilities, err := e.data.GetLiabilities(userID)
	if err != nil {
		return nil, err
	}
	since := now.AddDate(0, 0, -e.cfg.Signals.LongWindowDays)
	txns, err := e.data.GetTransactionsSince(userID, since)
	if err != nil {
		return nil, err
	}

	bundle := e.detector.Compute(userID, txns, accounts, liabilities, now)
	e.flatten(bundle)
	return bundle, nil
}

// flatten writes the bundle's windows to the columnar store. The row
// store is derived data, so a write failure is logged and absorbed.
func (e *Engine) flatten(bundle *SignalBundle) {
	if e.signals == nil {
		return
	}
	for _, w := range []WindowSignals{bundle.Short, bundle.Long} {
		row := flattenWindow(bundle.UserID, bundle.ComputedAt, w)
		if err := e.signals.Upsert(row); err != nil {
			log.Printf("⚠️  Failed to flatten signals for %s (window %dd): %v", bundle.UserID, w.WindowDays, err)
		}
	}
}

func flattenWindow(userID string, computedAt time.Time, w WindowSignals) *database.SignalRow {
	return &database.SignalRow{
		UserID:                   userID,
		WindowDays:               w.WindowDays,
		ComputedAt:               computedAt,
		RecurringMerchantCount:   w.Subscriptions.RecurringCount,
		SubscriptionMonthlySpend: w.Subscriptions.MonthlySpend,
		SubscriptionSpendShare:   w.Subscriptions.SpendShare,
		SavingsNetInflow:         w.Savings.NetInflow,
		SavingsGrowthRate:        w.Savings.GrowthRate,
		EmergencyFundMonths:      w.Savings.EmergencyFundMonths,
		MaxUtilizationPct:        w.Credit.MaxUtilizationPct,
		AvgUtilizationPct:        w.Credit.AvgUtilizationPct,
		HasInterestCharges:       w.Credit.HasInterestCharges,
		MinimumPaymentOnly:       w.Credit.MinimumPaymentOnly,
		AnyLiabilityOverdue:      w.Credit.AnyOverdue,
		PayFrequency:             w.Income.PayFrequency,
		MedianPayGapDays:         w.Income.MedianPayGapDays,
		IncomeVariability:        w.Income.Variability,
		CashBufferMonths:         w.Income.CashBufferMonths,
	}
}

// AssignPersona classifies a signal bundle. Pure and deterministic; callers
// that want the assignment persisted run the full pipeline.
func (e *Engine) AssignPersona(bundle *SignalBundle) *PersonaResult {
	return e.classifier.Classify(bundle)
}

// RunGuardrails evaluates the guardrail gate over an arbitrary candidate
// set for the user, computing a fresh bundle when none is supplied.
func (e *Engine) RunGuardrails(userID string, recommendations []RecommendationItem, bundle *SignalBundle) (*GuardrailOutcome, error) {
	user, err := e.data.GetUser(userID)
	if err != nil {
		return nil, err
	}
	accounts, err := e.data.GetAccounts(userID)
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		bundle, err = e.computeSignals(userID, e.now())
		if err != nil {
			return nil, err
		}
	}
	consent, err := e.consentGranted(userID)
	if err != nil {
		return nil, err
	}

	return e.gate.Run(&GuardrailContext{
		UserID:         userID,
		ConsentGranted: consent,
		Candidates:     recommendations,
		Bundle:         bundle,
		User:           user,
		Accounts:       accounts,
	}), nil
}

// GenerateRecommendations runs the full pipeline for one user: signals,
// persona, selection, guardrails, with every stage appended to the audit
// trace. Lookup and audit failures propagate; the caller decides whether
// to retry or skip. The engine itself never retries.
func (e *Engine) GenerateRecommendations(userID string) (*RecommendationSet, error) {
	runID := uuid.NewString()
	now := e.now()

	user, err := e.data.GetUser(userID)
	if err != nil {
		return nil, err
	}
	accounts, err := e.data.GetAccounts(userID)
	if err != nil {
		return nil, err
	}

	// Stage 1: signals.
	bundle, err := e.computeSignals(userID, now)
	if err != nil {
		return nil, err
	}
	if err := e.record(userID, runID, "signals", now, bundle); err != nil {
		return nil, err
	}

	// Stage 2: persona.
	personaResult := e.classifier.Classify(bundle)
	if err := e.saveAssignment(userID, runID, now, personaResult); err != nil {
		return nil, err
	}
	if err := e.record(userID, runID, "persona", now, personaResult); err != nil {
		return nil, err
	}

	// Stage 3+4: selection with rendered rationales. The record carries the
	// excluded candidates and their reasons, not just the survivors.
	selection := e.selector.Select(personaResult.Persona, bundle, user, accounts)
	if err := e.record(userID, runID, "selection", now, selection); err != nil {
		return nil, err
	}
	candidates := append(append([]RecommendationItem{}, selection.Education...), selection.Offers...)

	// Stage 5: guardrails.
	consent, err := e.consentGranted(userID)
	if err != nil {
		return nil, err
	}
	outcome := e.gate.Run(&GuardrailContext{
		UserID:         userID,
		ConsentGranted: consent,
		Candidates:     candidates,
		Bundle:         bundle,
		User:           user,
		Accounts:       accounts,
	})
	if err := e.record(userID, runID, "guardrails", now, outcome); err != nil {
		return nil, err
	}

	set := &RecommendationSet{
		UserID:          userID,
		Persona:         personaResult.Persona,
		Recommendations: outcome.Filtered,
		Guardrails:      outcome,
		Metadata: RunMetadata{
			RunID:              runID,
			GeneratedAt:        now,
			EducationCount:     countType(outcome.Filtered, catalog.TypeEducation),
			OfferCount:         countType(outcome.Filtered, catalog.TypeOffer),
			EducationShortfall: selection.EducationShortfall,
			OffersShortfall:    selection.OffersShortfall,
			Reason:             emptyReason(outcome, personaResult.Persona),
		},
	}

	// Stage 6: the final set flows through the recorder before it is
	// considered complete.
	if err := e.record(userID, runID, "recommendations", now, set); err != nil {
		return nil, err
	}
	return set, nil
}

// emptyReason picks the metadata reason code when nothing survives the gate.
func emptyReason(outcome *GuardrailOutcome, persona string) string {
	if outcome.Blocked {
		return ReasonConsentNotGranted
	}
	if len(outcome.Filtered) > 0 {
		return ""
	}
	if persona == PersonaGeneral {
		return ReasonGeneralPersona
	}
	return ReasonInsufficientData
}

func countType(items []RecommendationItem, itemType string) int {
	n := 0
	for _, item := range items {
		if item.Type == itemType {
			n++
		}
	}
	return n
}

func (e *Engine) saveAssignment(userID, runID string, now time.Time, result *PersonaResult) error {
	criteria, err := json.Marshal(result.CriteriaMet)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}
	predicates, err := json.Marshal(result.PredicateResults)
	if err != nil {
		return fmt.Errorf("marshal predicate results: %w", err)
	}
	return e.personas.SaveAssignment(&models.PersonaAssignment{
		UserID:           userID,
		RunID:            runID,
		Persona:          result.Persona,
		CriteriaMet:      string(criteria),
		PredicateResults: string(predicates),
		AssignedAt:       now,
	})
}

// record appends one stage snapshot to the user's audit trace.
func (e *Engine) record(userID, runID, stage string, now time.Time, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s audit payload: %w", stage, err)
	}
	return e.trace.Append(&models.AuditRecord{
		UserID:     userID,
		RunID:      runID,
		Stage:      stage,
		Payload:    string(data),
		RecordedAt: now,
	})
}

// consentGranted reads the user's consent state. A cached denial blocks
// without a store round trip. A cached grant is advisory only: consent can
// be revoked at any moment, so a grant is always confirmed against the
// store before anything is surfaced.
func (e *Engine) consentGranted(userID string) (bool, error) {
	ctx := context.Background()
	cacheKey := "consent:" + userID

	if e.cache != nil {
		var cached bool
		if err := e.cache.Get(ctx, cacheKey, &cached); err == nil && !cached {
			return false, nil
		}
	}

	user, err := e.data.GetUser(userID)
	if err != nil {
		return false, err
	}

	if e.cache != nil {
		_ = e.cache.Set(ctx, cacheKey, user.ConsentGranted, 30*time.Second)
	}
	return user.ConsentGranted, nil
}
