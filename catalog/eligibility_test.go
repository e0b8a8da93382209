package catalog

import "testing"

func evalContext() EvalContext {
	return EvalContext{
		Signals: map[string]float64{
			"max_utilization_pct": 68,
			"net_savings_inflow":  250,
		},
		IncomeTier:      "medium",
		AccountSubtypes: map[string]bool{"checking": true, "savings": true},
	}
}

func TestPredicateEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		predicate Predicate
		want      bool
	}{
		{
			name:      "min threshold met",
			predicate: Predicate{Kind: PredicateMinThreshold, Signal: "net_savings_inflow", Value: 200},
			want:      true,
		},
		{
			name:      "min threshold not met",
			predicate: Predicate{Kind: PredicateMinThreshold, Signal: "net_savings_inflow", Value: 300},
			want:      false,
		},
		{
			name:      "max threshold met",
			predicate: Predicate{Kind: PredicateMaxThreshold, Signal: "max_utilization_pct", Value: 80},
			want:      true,
		},
		{
			name:      "max threshold not met",
			predicate: Predicate{Kind: PredicateMaxThreshold, Signal: "max_utilization_pct", Value: 50},
			want:      false,
		},
		{
			name:      "missing signal evaluates as zero",
			predicate: Predicate{Kind: PredicateMinThreshold, Signal: "unknown_signal", Value: 1},
			want:      false,
		},
		{
			name:      "account exclusion blocks held subtype",
			predicate: Predicate{Kind: PredicateExcludeAccounts, AccountSubtypes: []string{"savings"}},
			want:      false,
		},
		{
			name:      "account exclusion passes unheld subtype",
			predicate: Predicate{Kind: PredicateExcludeAccounts, AccountSubtypes: []string{"credit card"}},
			want:      true,
		},
		{
			name:      "tier comparison met",
			predicate: Predicate{Kind: PredicateIncomeTierAtLeast, Tier: "low"},
			want:      true,
		},
		{
			name:      "tier comparison not met",
			predicate: Predicate{Kind: PredicateIncomeTierAtLeast, Tier: "high"},
			want:      false,
		},
		{
			name:      "unknown kind fails closed",
			predicate: Predicate{Kind: "frobnicate"},
			want:      false,
		},
	}

	ctx := evalContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.predicate.Evaluate(ctx); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicateUnknownTierFailsClosed(t *testing.T) {
	ctx := evalContext()
	ctx.IncomeTier = ""
	p := Predicate{Kind: PredicateIncomeTierAtLeast, Tier: "low"}
	if p.Evaluate(ctx) {
		t.Error("empty income tier must not satisfy a tier gate")
	}
}

func TestEvaluateAllReportsFirstFailure(t *testing.T) {
	ctx := evalContext()
	predicates := []Predicate{
		{Kind: PredicateMinThreshold, Signal: "net_savings_inflow", Value: 200},
		{Kind: PredicateMaxThreshold, Signal: "max_utilization_pct", Value: 50},
		{Kind: PredicateIncomeTierAtLeast, Tier: "high"},
	}

	ok, failed := EvaluateAll(predicates, ctx)
	if ok {
		t.Fatal("expected failure")
	}
	if failed == nil || failed.Kind != PredicateMaxThreshold {
		t.Errorf("first failing predicate = %+v, want the max threshold", failed)
	}
}

func TestPredicateValidate(t *testing.T) {
	valid := []Predicate{
		{Kind: PredicateMinThreshold, Signal: "x"},
		{Kind: PredicateMaxThreshold, Signal: "x"},
		{Kind: PredicateExcludeAccounts, AccountSubtypes: []string{"savings"}},
		{Kind: PredicateIncomeTierAtLeast, Tier: "medium"},
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("valid predicate %+v rejected: %v", p, err)
		}
	}

	invalid := []Predicate{
		{Kind: PredicateMinThreshold},
		{Kind: PredicateExcludeAccounts},
		{Kind: PredicateIncomeTierAtLeast, Tier: "imperial"},
		{Kind: "frobnicate"},
	}
	for _, p := range invalid {
		if err := p.Validate(); err == nil {
			t.Errorf("invalid predicate %+v accepted", p)
		}
	}
}
