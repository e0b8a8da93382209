package app

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"spendsense/helpers"
)

// placeholderPattern matches {signal_name} tokens in rationale templates.
var placeholderPattern = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// signalFormats maps each named signal to its display format. Percentages
// round to whole numbers, currency to two decimals with separators.
var signalFormats = map[string]string{
	"max_utilization_pct":          "percent",
	"avg_utilization_pct":          "percent",
	"subscription_spend_share_pct": "percent",
	"savings_growth_rate_pct":      "percent",
	"monthly_subscription_spend":   "currency",
	"net_savings_inflow":           "currency",
	"monthly_income":               "currency",
	"recurring_count":              "count",
	"paycheck_count":               "count",
	"median_pay_gap_days":          "count",
	"emergency_fund_months":        "months",
	"cash_buffer_months":           "months",
	"income_variability":           "ratio",
}

// SignalValues flattens a bundle into the named values referenced by
// rationale templates and eligibility predicates. Values come from the
// long window, which is also what the classifier evaluates.
func SignalValues(bundle *SignalBundle) map[string]float64 {
	w := bundle.Long
	return map[string]float64{
		"recurring_count":              float64(w.Subscriptions.RecurringCount),
		"monthly_subscription_spend":   w.Subscriptions.MonthlySpend,
		"subscription_spend_share_pct": w.Subscriptions.SpendShare * 100,
		"net_savings_inflow":           w.Savings.NetInflow,
		"savings_growth_rate_pct":      w.Savings.GrowthRate * 100,
		"emergency_fund_months":        w.Savings.EmergencyFundMonths,
		"max_utilization_pct":          w.Credit.MaxUtilizationPct,
		"avg_utilization_pct":          w.Credit.AvgUtilizationPct,
		"paycheck_count":               float64(w.Income.PaycheckCount),
		"median_pay_gap_days":          w.Income.MedianPayGapDays,
		"income_variability":           w.Income.Variability,
		"monthly_income":               w.Income.MonthlyIncome,
		"cash_buffer_months":           w.Income.CashBufferMonths,
	}
}

// RationaleFormatter substitutes concrete signal values into "because"
// templates. Pure function of (template, values): identical inputs always
// produce the identical string.
type RationaleFormatter struct{}

// NewRationaleFormatter creates a rationale formatter.
func NewRationaleFormatter() *RationaleFormatter {
	return &RationaleFormatter{}
}

// Format resolves every placeholder in the template. A referenced signal
// absent from the values map substitutes that signal's zero rendering
// ("$0.00", "0%", "0"), never an unresolved placeholder.
func (f *RationaleFormatter) Format(template string, values map[string]float64) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := strings.Trim(token, "{}")
		return formatSignal(name, values[name])
	})
}

func formatSignal(name string, value float64) string {
	switch signalFormats[name] {
	case "percent":
		return helpers.FormatPercent(value)
	case "currency":
		return helpers.FormatUSD(value)
	case "count":
		return fmt.Sprintf("%d", int64(math.Round(value)))
	case "months":
		return fmt.Sprintf("%.1f", value)
	case "ratio":
		return fmt.Sprintf("%.2f", value)
	default:
		// Unknown signal: documented safe default.
		return "0"
	}
}
