package catalog

import "fmt"

// Predicate kinds. The set is closed on purpose: each kind is interpreted
// by Evaluate, so an unknown kind is a load-time configuration error, not
// a silently ignored rule.
const (
	PredicateMinThreshold      = "min_threshold"
	PredicateMaxThreshold      = "max_threshold"
	PredicateExcludeAccounts   = "exclude_account_types"
	PredicateIncomeTierAtLeast = "income_tier_at_least"
)

// Income tier ranks for tier comparison predicates. An unknown tier ranks
// below every known one, so tier-gated offers fail closed.
var incomeTierRank = map[string]int{
	"low":    1,
	"medium": 2,
	"high":   3,
}

// Predicate is one eligibility rule attached to a catalog item, stored as
// a tagged variant: Kind selects which of the remaining fields apply.
type Predicate struct {
	Kind            string   `yaml:"kind" json:"kind"`
	Signal          string   `yaml:"signal,omitempty" json:"signal,omitempty"`
	Value           float64  `yaml:"value,omitempty" json:"value,omitempty"`
	Tier            string   `yaml:"tier,omitempty" json:"tier,omitempty"`
	AccountSubtypes []string `yaml:"account_subtypes,omitempty" json:"account_subtypes,omitempty"`
}

// EvalContext carries everything a predicate may inspect: the user's named
// signal values, income tier, and the set of account subtypes they already
// hold.
type EvalContext struct {
	Signals         map[string]float64
	IncomeTier      string
	AccountSubtypes map[string]bool
}

// Validate rejects malformed predicates at catalog load time.
func (p Predicate) Validate() error {
	switch p.Kind {
	case PredicateMinThreshold, PredicateMaxThreshold:
		if p.Signal == "" {
			return fmt.Errorf("%s predicate requires a signal name", p.Kind)
		}
	case PredicateExcludeAccounts:
		if len(p.AccountSubtypes) == 0 {
			return fmt.Errorf("%s predicate requires at least one account subtype", p.Kind)
		}
	case PredicateIncomeTierAtLeast:
		if _, ok := incomeTierRank[p.Tier]; !ok {
			return fmt.Errorf("%s predicate has unknown tier %q", p.Kind, p.Tier)
		}
	default:
		return fmt.Errorf("unknown predicate kind %q", p.Kind)
	}
	return nil
}

// Evaluate interprets the predicate against the context. A referenced
// signal missing from the context evaluates as zero, matching the signal
// detector's documented empty defaults.
func (p Predicate) Evaluate(ctx EvalContext) bool {
	switch p.Kind {
	case PredicateMinThreshold:
		return ctx.Signals[p.Signal] >= p.Value
	case PredicateMaxThreshold:
		return ctx.Signals[p.Signal] <= p.Value
	case PredicateExcludeAccounts:
		for _, subtype := range p.AccountSubtypes {
			if ctx.AccountSubtypes[subtype] {
				return false
			}
		}
		return true
	case PredicateIncomeTierAtLeast:
		return incomeTierRank[ctx.IncomeTier] >= incomeTierRank[p.Tier]
	default:
		return false
	}
}

// EvaluateAll reports whether every predicate holds, along with the first
// failing rule for audit.
func EvaluateAll(predicates []Predicate, ctx EvalContext) (bool, *Predicate) {
	for i := range predicates {
		if !predicates[i].Evaluate(ctx) {
			return false, &predicates[i]
		}
	}
	return true, nil
}
