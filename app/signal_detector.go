package app

import (
	"math"
	"sort"
	"strings"
	"time"

	"spendsense/config"
	models "spendsense/database/models_pkg"
)

// Pay frequency buckets derived from the median paycheck gap.
const (
	PayFrequencyWeekly   = "weekly"
	PayFrequencyBiweekly = "biweekly"
	PayFrequencyMonthly  = "monthly"
	PayFrequencyVariable = "variable"
)

// SubscriptionSignals captures recurring-merchant spend within one window.
type SubscriptionSignals struct {
	RecurringCount int     `json:"recurring_count"`
	MonthlySpend   float64 `json:"monthly_spend"` // normalized to a 30-day month
	SpendShare     float64 `json:"spend_share"`   // share of total debit spend in the window
}

// SavingsSignals captures savings-account flow within one window.
type SavingsSignals struct {
	HasAccounts         bool    `json:"has_accounts"`
	NetInflow           float64 `json:"net_inflow"`
	GrowthRate          float64 `json:"growth_rate"`
	EmergencyFundMonths float64 `json:"emergency_fund_months"`
}

// CardUtilization is the point-in-time utilization of one credit card.
type CardUtilization struct {
	AccountID string  `json:"account_id"`
	Pct       float64 `json:"pct"`
}

// CreditSignals captures point-in-time card state plus liability flags.
// Unlike the flow groups these do not depend on the look-back window,
// except for the posted-interest heuristic which scans a fixed recent span.
type CreditSignals struct {
	HasCards           bool              `json:"has_cards"`
	PerCard            []CardUtilization `json:"per_card,omitempty"`
	MaxUtilizationPct  float64           `json:"max_utilization_pct"`
	AvgUtilizationPct  float64           `json:"avg_utilization_pct"`
	AboveWarn          bool              `json:"above_warn"`     // >= 30%
	AboveHigh          bool              `json:"above_high"`     // >= 50%
	AboveCritical      bool              `json:"above_critical"` // >= 80%
	MinimumPaymentOnly bool              `json:"minimum_payment_only"`
	HasInterestAccrual bool              `json:"has_interest_accrual"` // non-zero APR
	HasInterestCharges bool              `json:"has_interest_charges"` // posted charge detected
	AnyOverdue         bool              `json:"any_overdue"`
}

// IncomeSignals captures payroll-like deposits within one window.
type IncomeSignals struct {
	Detected         bool    `json:"detected"`
	PaycheckCount    int     `json:"paycheck_count"`
	MedianPayGapDays float64 `json:"median_pay_gap_days"`
	PayFrequency     string  `json:"pay_frequency"`
	Variability      float64 `json:"variability"` // stdev/mean of paycheck magnitude
	MonthlyIncome    float64 `json:"monthly_income"`
	CashBufferMonths float64 `json:"cash_buffer_months"`
}

// WindowSignals is one window's complete signal set.
type WindowSignals struct {
	WindowDays    int                 `json:"window_days"`
	Subscriptions SubscriptionSignals `json:"subscriptions"`
	Savings       SavingsSignals      `json:"savings"`
	Credit        CreditSignals       `json:"credit"`
	Income        IncomeSignals       `json:"income"`
}

// SignalBundle is the per-user, per-run output of the signal detector.
// It is recomputed from scratch every run: identical inputs and window
// boundaries produce an identical bundle.
type SignalBundle struct {
	UserID     string        `json:"user_id"`
	ComputedAt time.Time     `json:"computed_at"`
	Short      WindowSignals `json:"short"`
	Long       WindowSignals `json:"long"`
}

// interestKeywords flag posted interest or finance charges in merchant
// text or category labels.
var interestKeywords = []string{"interest charge", "interest", "finance charge"}

// payrollKeywords flag payroll-like deposits in merchant text.
var payrollKeywords = []string{"payroll", "direct deposit", "direct dep", "salary", "paycheck", "employer"}

// payrollCategories flag payroll-like deposits by upstream category.
var payrollCategories = []string{"income", "payroll", "salary"}

// SignalDetector computes behavioral signal bundles from raw records.
// All methods are pure with respect to their inputs; fetching records is
// the repositories' job.
type SignalDetector struct {
	cfg config.SignalConfig
}

// NewSignalDetector creates a signal detector with the given thresholds.
func NewSignalDetector(cfg config.SignalConfig) *SignalDetector {
	return &SignalDetector{cfg: cfg}
}

// Compute builds the full signal bundle for one user. Transactions must
// cover at least the long window; older rows are ignored. Groups with
// insufficient data come back as documented zero values, never an error.
func (d *SignalDetector) Compute(userID string, txns []models.Transaction, accounts []models.Account, liabilities []models.Liability, now time.Time) *SignalBundle {
	return &SignalBundle{
		UserID:     userID,
		ComputedAt: now,
		Short:      d.computeWindow(d.cfg.ShortWindowDays, txns, accounts, liabilities, now),
		Long:       d.computeWindow(d.cfg.LongWindowDays, txns, accounts, liabilities, now),
	}
}

func (d *SignalDetector) computeWindow(windowDays int, txns []models.Transaction, accounts []models.Account, liabilities []models.Liability, now time.Time) WindowSignals {
	cutoff := now.AddDate(0, 0, -windowDays)
	var window []models.Transaction
	for _, t := range txns {
		if !t.Date.Before(cutoff) && !t.Date.After(now) {
			window = append(window, t)
		}
	}

	monthlyExpense := d.normalizedMonthlyExpense(window, accounts, windowDays)

	return WindowSignals{
		WindowDays:    windowDays,
		Subscriptions: d.detectSubscriptions(window, windowDays),
		Savings:       d.detectSavings(window, accounts, monthlyExpense),
		Credit:        d.detectCredit(txns, accounts, liabilities, now),
		Income:        d.detectIncome(window, accounts, windowDays, monthlyExpense),
	}
}

// ============================================================================
// Subscriptions
// ============================================================================

// detectSubscriptions groups debit transactions by merchant and flags a
// merchant as recurring when it shows enough occurrences, a day-span inside
// the window, and near-constant amounts (CV under the configured ceiling;
// zero variance always qualifies).
func (d *SignalDetector) detectSubscriptions(window []models.Transaction, windowDays int) SubscriptionSignals {
	byMerchant := make(map[string][]models.Transaction)
	var totalDebit float64
	for _, t := range window {
		if t.Amount <= 0 {
			continue // credits are not spend
		}
		totalDebit += t.Amount
		if t.MerchantName == "" {
			continue
		}
		key := strings.ToLower(t.MerchantName)
		byMerchant[key] = append(byMerchant[key], t)
	}

	var recurringCount int
	var recurringSpend float64
	for _, group := range byMerchant {
		if len(group) < d.cfg.MinRecurringOccurrences {
			continue
		}

		first, last := group[0].Date, group[0].Date
		var amounts []float64
		var spend float64
		for _, t := range group {
			if t.Date.Before(first) {
				first = t.Date
			}
			if t.Date.After(last) {
				last = t.Date
			}
			amounts = append(amounts, t.Amount)
			spend += t.Amount
		}

		if last.Sub(first) > time.Duration(windowDays)*24*time.Hour {
			continue
		}

		mean, stdev := meanStdev(amounts)
		if stdev > 0 && (mean == 0 || stdev/mean > d.cfg.RecurringAmountCVMax) {
			continue
		}

		recurringCount++
		recurringSpend += spend
	}

	sig := SubscriptionSignals{RecurringCount: recurringCount}
	if recurringCount == 0 {
		return sig
	}
	sig.MonthlySpend = recurringSpend * 30.0 / float64(windowDays)
	if totalDebit > 0 {
		sig.SpendShare = recurringSpend / totalDebit
	}
	return sig
}

// ============================================================================
// Savings
// ============================================================================

func (d *SignalDetector) detectSavings(window []models.Transaction, accounts []models.Account, monthlyExpense float64) SavingsSignals {
	savingsIDs := make(map[string]bool)
	var currentBalance float64
	for _, a := range accounts {
		if a.Type == models.AccountTypeDepository && a.Subtype == models.AccountSubtypeSavings {
			savingsIDs[a.ID] = true
			currentBalance += a.CurrentBalance
		}
	}
	if len(savingsIDs) == 0 {
		return SavingsSignals{}
	}

	// Negative amounts are inflows, so net inflow is the negated sum.
	var netInflow float64
	for _, t := range window {
		if savingsIDs[t.AccountID] {
			netInflow -= t.Amount
		}
	}

	const epsilon = 0.01
	beginning := math.Max(currentBalance-netInflow, epsilon)
	growth := (currentBalance - beginning) / beginning

	sig := SavingsSignals{
		HasAccounts: true,
		NetInflow:   netInflow,
		GrowthRate:  growth,
	}
	if monthlyExpense > 0 {
		sig.EmergencyFundMonths = currentBalance / monthlyExpense
	}
	return sig
}

// ============================================================================
// Credit
// ============================================================================

func (d *SignalDetector) detectCredit(txns []models.Transaction, accounts []models.Account, liabilities []models.Liability, now time.Time) CreditSignals {
	var sig CreditSignals

	creditIDs := make(map[string]bool)
	var utilSum float64
	for _, a := range accounts {
		if a.Type != models.AccountTypeCredit {
			continue
		}
		creditIDs[a.ID] = true
		if a.CreditLimit == nil || *a.CreditLimit <= 0 {
			continue
		}
		pct := a.CurrentBalance / *a.CreditLimit * 100
		sig.PerCard = append(sig.PerCard, CardUtilization{AccountID: a.ID, Pct: pct})
		utilSum += pct
		if pct > sig.MaxUtilizationPct {
			sig.MaxUtilizationPct = pct
		}
	}
	sig.HasCards = len(creditIDs) > 0

	// Liability facts stand on their own: an overdue balance must surface
	// even when the corresponding credit account row is missing.
	for _, l := range liabilities {
		if l.IsOverdue {
			sig.AnyOverdue = true
		}
		if l.APR > 0 {
			sig.HasInterestAccrual = true
		}
		if l.MinimumPayment > 0 && l.LastPaymentAmount > 0 {
			tolerance := l.MinimumPayment * d.cfg.MinPaymentTolerancePct / 100
			if math.Abs(l.LastPaymentAmount-l.MinimumPayment) <= tolerance {
				sig.MinimumPaymentOnly = true
			}
		}
	}

	if !sig.HasCards && len(liabilities) == 0 {
		return CreditSignals{}
	}
	if len(sig.PerCard) > 0 {
		sig.AvgUtilizationPct = utilSum / float64(len(sig.PerCard))
	}
	sig.AboveWarn = sig.MaxUtilizationPct >= d.cfg.UtilizationWarnPct
	sig.AboveHigh = sig.MaxUtilizationPct >= d.cfg.UtilizationHighPct
	sig.AboveCritical = sig.MaxUtilizationPct >= d.cfg.UtilizationCriticalPct

	// Posted interest/finance charges are detected over a fixed recent
	// window independent of the signal window.
	cutoff := now.AddDate(0, 0, -d.cfg.InterestLookbackDays)
	for _, t := range txns {
		if t.Date.Before(cutoff) || !creditIDs[t.AccountID] || t.Amount <= 0 {
			continue
		}
		if matchesAny(t.MerchantName, interestKeywords) || matchesAny(t.Category, interestKeywords) {
			sig.HasInterestCharges = true
			break
		}
	}

	return sig
}

// ============================================================================
// Income
// ============================================================================

func (d *SignalDetector) detectIncome(window []models.Transaction, accounts []models.Account, windowDays int, monthlyExpense float64) IncomeSignals {
	depositoryIDs := make(map[string]bool)
	for _, a := range accounts {
		if a.Type == models.AccountTypeDepository {
			depositoryIDs[a.ID] = true
		}
	}

	var paychecks []models.Transaction
	for _, t := range window {
		if t.Amount >= 0 || !depositoryIDs[t.AccountID] {
			continue
		}
		if matchesAny(t.MerchantName, payrollKeywords) || matchesAny(t.Category, payrollCategories) {
			paychecks = append(paychecks, t)
		}
	}
	if len(paychecks) < d.cfg.MinPaycheckOccurrences {
		return IncomeSignals{}
	}

	sort.Slice(paychecks, func(i, j int) bool { return paychecks[i].Date.Before(paychecks[j].Date) })

	var gaps []float64
	var amounts []float64
	var total float64
	for i, p := range paychecks {
		amount := -p.Amount
		amounts = append(amounts, amount)
		total += amount
		if i > 0 {
			gaps = append(gaps, p.Date.Sub(paychecks[i-1].Date).Hours()/24)
		}
	}

	medianGap := median(gaps)
	mean, stdev := meanStdev(amounts)

	sig := IncomeSignals{
		Detected:         true,
		PaycheckCount:    len(paychecks),
		MedianPayGapDays: medianGap,
		PayFrequency:     d.bucketFrequency(medianGap),
		MonthlyIncome:    total * 30.0 / float64(windowDays),
	}
	if mean > 0 {
		sig.Variability = stdev / mean
	}
	if monthlyExpense > 0 {
		sig.CashBufferMonths = (sig.MonthlyIncome - monthlyExpense) / monthlyExpense
	}
	return sig
}

func (d *SignalDetector) bucketFrequency(medianGap float64) string {
	switch {
	case math.Abs(medianGap-7) <= d.cfg.WeeklyGapToleranceDays:
		return PayFrequencyWeekly
	case math.Abs(medianGap-14) <= d.cfg.BiweeklyGapToleranceDays:
		return PayFrequencyBiweekly
	case math.Abs(medianGap-30) <= d.cfg.MonthlyGapToleranceDays:
		return PayFrequencyMonthly
	default:
		return PayFrequencyVariable
	}
}

// normalizedMonthlyExpense is total debit spend on depository accounts in
// the window, scaled to a 30-day month. Credit-card debits are excluded so
// card payments and purchases are not double counted.
func (d *SignalDetector) normalizedMonthlyExpense(window []models.Transaction, accounts []models.Account, windowDays int) float64 {
	depositoryIDs := make(map[string]bool)
	for _, a := range accounts {
		if a.Type == models.AccountTypeDepository {
			depositoryIDs[a.ID] = true
		}
	}

	var totalDebit float64
	for _, t := range window {
		if t.Amount > 0 && depositoryIDs[t.AccountID] {
			totalDebit += t.Amount
		}
	}
	return totalDebit * 30.0 / float64(windowDays)
}

// ============================================================================
// Shared math helpers
// ============================================================================

func meanStdev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		sqDiff += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sqDiff / float64(len(values)))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func matchesAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
