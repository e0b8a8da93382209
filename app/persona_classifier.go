package app

import (
	"spendsense/config"
)

// Persona labels, highest classification priority first.
const (
	PersonaHighUtilization        = "HighUtilization"
	PersonaVariableIncomeBudgeter = "VariableIncomeBudgeter"
	PersonaSubscriptionHeavy      = "SubscriptionHeavy"
	PersonaCashFlowOptimizer      = "CashFlowOptimizer"
	PersonaSavingsBuilder         = "SavingsBuilder"
	PersonaGeneral                = "General"
)

// PersonaResult is the classifier output: exactly one persona, the winning
// predicate's satisfied criteria, and every predicate's evaluation result.
type PersonaResult struct {
	Persona          string          `json:"persona"`
	CriteriaMet      map[string]bool `json:"criteria_met"`
	PredicateResults map[string]bool `json:"predicate_results"`
}

// personaRule pairs a label with its predicate. The predicate returns
// whether it matched and which of its criteria were individually satisfied.
type personaRule struct {
	label    string
	evaluate func(*SignalBundle) (bool, map[string]bool)
}

// PersonaClassifier assigns exactly one persona per bundle by evaluating an
// explicit ordered rule list and returning the first match. Priority fully
// determines the outcome when several predicates are true at once, so there
// is no scoring and no possibility of a tie.
type PersonaClassifier struct {
	cfg   config.PersonaConfig
	rules []personaRule
}

// NewPersonaClassifier builds the classifier with its fixed priority order.
func NewPersonaClassifier(cfg config.PersonaConfig) *PersonaClassifier {
	c := &PersonaClassifier{cfg: cfg}
	c.rules = []personaRule{
		{PersonaHighUtilization, c.matchHighUtilization},
		{PersonaVariableIncomeBudgeter, c.matchVariableIncomeBudgeter},
		{PersonaSubscriptionHeavy, c.matchSubscriptionHeavy},
		{PersonaCashFlowOptimizer, c.matchCashFlowOptimizer},
		{PersonaSavingsBuilder, c.matchSavingsBuilder},
	}
	return c
}

// Classify evaluates every rule in priority order. All predicate results
// are recorded for transparency even though only the first match assigns
// the persona. A bundle that matches nothing falls back to General.
func (c *PersonaClassifier) Classify(bundle *SignalBundle) *PersonaResult {
	result := &PersonaResult{
		Persona:          PersonaGeneral,
		CriteriaMet:      map[string]bool{},
		PredicateResults: make(map[string]bool, len(c.rules)+1),
	}

	assigned := false
	for _, rule := range c.rules {
		matched, criteria := rule.evaluate(bundle)
		result.PredicateResults[rule.label] = matched
		if matched && !assigned {
			result.Persona = rule.label
			result.CriteriaMet = criteria
			assigned = true
		}
	}
	result.PredicateResults[PersonaGeneral] = !assigned

	return result
}

// matchHighUtilization: ANY of high max utilization, posted interest
// charges, a minimum-payment-only pattern, or an overdue liability.
func (c *PersonaClassifier) matchHighUtilization(b *SignalBundle) (bool, map[string]bool) {
	credit := b.Long.Credit
	criteria := map[string]bool{}

	if credit.MaxUtilizationPct >= c.cfg.HighUtilizationPct {
		criteria["max_utilization"] = true
	}
	if credit.HasInterestCharges {
		criteria["interest_charges"] = true
	}
	if credit.MinimumPaymentOnly {
		criteria["minimum_payment_only"] = true
	}
	if credit.AnyOverdue {
		criteria["liability_overdue"] = true
	}

	return len(criteria) > 0, criteria
}

// matchVariableIncomeBudgeter: ALL of a long median pay gap and a thin cash
// buffer. Requires detected income; "no signal" matches no persona.
func (c *PersonaClassifier) matchVariableIncomeBudgeter(b *SignalBundle) (bool, map[string]bool) {
	income := b.Long.Income
	if !income.Detected {
		return false, nil
	}

	criteria := map[string]bool{}
	if income.MedianPayGapDays > c.cfg.VariablePayGapDays {
		criteria["irregular_pay_gap"] = true
	}
	if income.CashBufferMonths < c.cfg.LowCashBufferMonths {
		criteria["low_cash_buffer"] = true
	}

	return len(criteria) == 2, criteria
}

// matchSubscriptionHeavy: enough recurring merchants plus meaningful spend,
// in absolute monthly terms or as a share of total debit spend.
func (c *PersonaClassifier) matchSubscriptionHeavy(b *SignalBundle) (bool, map[string]bool) {
	subs := b.Long.Subscriptions
	if subs.RecurringCount < c.cfg.SubscriptionMinCount {
		return false, nil
	}

	criteria := map[string]bool{"recurring_count": true}
	if subs.MonthlySpend >= c.cfg.SubscriptionSpendMin {
		criteria["monthly_spend"] = true
	}
	if subs.SpendShare >= c.cfg.SubscriptionShareMin {
		criteria["spend_share"] = true
	}

	return len(criteria) > 1, criteria
}

// matchCashFlowOptimizer: tight buffer with weak savings momentum on a
// regular pay schedule. The pay-gap bound keeps this disjoint from
// VariableIncomeBudgeter.
func (c *PersonaClassifier) matchCashFlowOptimizer(b *SignalBundle) (bool, map[string]bool) {
	income := b.Long.Income
	savings := b.Long.Savings
	if !income.Detected || income.MedianPayGapDays > c.cfg.VariablePayGapDays {
		return false, nil
	}
	if income.CashBufferMonths >= c.cfg.TightCashBufferMonths {
		return false, nil
	}

	criteria := map[string]bool{
		"tight_cash_buffer": true,
		"regular_pay_gap":   true,
	}
	if savings.GrowthRate < c.cfg.SavingsGrowthLow {
		criteria["low_savings_growth"] = true
	}
	if savings.NetInflow < c.cfg.SavingsInflowLow {
		criteria["low_savings_inflow"] = true
	}

	return len(criteria) > 2, criteria
}

// matchSavingsBuilder: strong savings momentum with card utilization under
// control. Can coincide with HighUtilization on mixed portfolios; priority
// resolves that in HighUtilization's favor.
func (c *PersonaClassifier) matchSavingsBuilder(b *SignalBundle) (bool, map[string]bool) {
	savings := b.Long.Savings
	credit := b.Long.Credit
	if !savings.HasAccounts {
		return false, nil
	}
	if credit.MaxUtilizationPct >= c.cfg.SavingsMaxUtilPct {
		return false, nil
	}

	criteria := map[string]bool{"utilization_in_bounds": true}
	if savings.GrowthRate >= c.cfg.SavingsGrowthMin {
		criteria["savings_growth"] = true
	}
	if savings.NetInflow >= c.cfg.SavingsInflowMin {
		criteria["savings_inflow"] = true
	}

	return len(criteria) > 1, criteria
}
