package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Catalog files
	CatalogPath         string
	CatalogOverridePath string

	// Engine configuration
	Signals   SignalConfig
	Personas  PersonaConfig
	Selection SelectionConfig
}

// SignalConfig holds signal detection windows and thresholds
type SignalConfig struct {
	ShortWindowDays int
	LongWindowDays  int

	// Subscriptions
	MinRecurringOccurrences int
	RecurringAmountCVMax    float64 // coefficient of variation ceiling for "same amount"

	// Credit
	UtilizationWarnPct     float64
	UtilizationHighPct     float64
	UtilizationCriticalPct float64
	MinPaymentTolerancePct float64 // payment within ±this % of minimum counts as minimum-only
	InterestLookbackDays   int     // window scanned for posted interest/finance charges

	// Income
	MinPaycheckOccurrences   int
	WeeklyGapToleranceDays   float64
	BiweeklyGapToleranceDays float64
	MonthlyGapToleranceDays  float64
}

// PersonaConfig holds the classifier thresholds. Defaults match the
// documented persona predicates; tuning happens via environment only.
type PersonaConfig struct {
	HighUtilizationPct    float64
	VariablePayGapDays    float64
	LowCashBufferMonths   float64
	SubscriptionMinCount  int
	SubscriptionSpendMin  float64
	SubscriptionShareMin  float64
	TightCashBufferMonths float64
	SavingsGrowthLow      float64
	SavingsInflowLow      float64
	SavingsGrowthMin      float64
	SavingsInflowMin      float64
	SavingsMaxUtilPct     float64
}

// SelectionConfig holds content selection bounds
type SelectionConfig struct {
	EducationMin int
	EducationMax int
	OffersMin    int
	OffersMax    int
}

// LoadFromEnv loads configuration from environment variables. A value that
// is set but unparsable is a load error, never a silent default.
func LoadFromEnv() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	l := &envLoader{}
	cfg := &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "spendsense"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "spendsense"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "spendsense123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		CatalogPath:         getEnvOrDefault("CATALOG_PATH", "catalog/data/catalog.yaml"),
		CatalogOverridePath: getEnvOrDefault("CATALOG_OVERRIDE_PATH", ""),

		Signals: SignalConfig{
			ShortWindowDays: l.getInt("SIGNAL_SHORT_WINDOW_DAYS", 30),
			LongWindowDays:  l.getInt("SIGNAL_LONG_WINDOW_DAYS", 180),

			MinRecurringOccurrences: l.getInt("SIGNAL_MIN_RECURRING_OCCURRENCES", 3),
			RecurringAmountCVMax:    l.getFloat("SIGNAL_RECURRING_CV_MAX", 0.25),

			UtilizationWarnPct:     l.getFloat("SIGNAL_UTILIZATION_WARN_PCT", 30.0),
			UtilizationHighPct:     l.getFloat("SIGNAL_UTILIZATION_HIGH_PCT", 50.0),
			UtilizationCriticalPct: l.getFloat("SIGNAL_UTILIZATION_CRITICAL_PCT", 80.0),
			MinPaymentTolerancePct: l.getFloat("SIGNAL_MIN_PAYMENT_TOLERANCE_PCT", 5.0),
			InterestLookbackDays:   l.getInt("SIGNAL_INTEREST_LOOKBACK_DAYS", 35),

			MinPaycheckOccurrences:   l.getInt("SIGNAL_MIN_PAYCHECK_OCCURRENCES", 2),
			WeeklyGapToleranceDays:   l.getFloat("SIGNAL_WEEKLY_GAP_TOLERANCE_DAYS", 2.0),
			BiweeklyGapToleranceDays: l.getFloat("SIGNAL_BIWEEKLY_GAP_TOLERANCE_DAYS", 3.0),
			MonthlyGapToleranceDays:  l.getFloat("SIGNAL_MONTHLY_GAP_TOLERANCE_DAYS", 5.0),
		},

		Personas: PersonaConfig{
			HighUtilizationPct:    l.getFloat("PERSONA_HIGH_UTILIZATION_PCT", 50.0),
			VariablePayGapDays:    l.getFloat("PERSONA_VARIABLE_PAY_GAP_DAYS", 45.0),
			LowCashBufferMonths:   l.getFloat("PERSONA_LOW_CASH_BUFFER_MONTHS", 1.0),
			SubscriptionMinCount:  l.getInt("PERSONA_SUBSCRIPTION_MIN_COUNT", 3),
			SubscriptionSpendMin:  l.getFloat("PERSONA_SUBSCRIPTION_SPEND_MIN", 50.0),
			SubscriptionShareMin:  l.getFloat("PERSONA_SUBSCRIPTION_SHARE_MIN", 0.10),
			TightCashBufferMonths: l.getFloat("PERSONA_TIGHT_CASH_BUFFER_MONTHS", 2.0),
			SavingsGrowthLow:      l.getFloat("PERSONA_SAVINGS_GROWTH_LOW", 0.01),
			SavingsInflowLow:      l.getFloat("PERSONA_SAVINGS_INFLOW_LOW", 100.0),
			SavingsGrowthMin:      l.getFloat("PERSONA_SAVINGS_GROWTH_MIN", 0.02),
			SavingsInflowMin:      l.getFloat("PERSONA_SAVINGS_INFLOW_MIN", 200.0),
			SavingsMaxUtilPct:     l.getFloat("PERSONA_SAVINGS_MAX_UTILIZATION_PCT", 30.0),
		},

		Selection: SelectionConfig{
			EducationMin: l.getInt("SELECTION_EDUCATION_MIN", 3),
			EducationMax: l.getInt("SELECTION_EDUCATION_MAX", 5),
			OffersMin:    l.getInt("SELECTION_OFFERS_MIN", 1),
			OffersMax:    l.getInt("SELECTION_OFFERS_MAX", 3),
		},
	}

	if err := l.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects malformed configuration at load time so that no
// per-user run can fail on a bad threshold later.
func (c *Config) Validate() error {
	s := c.Signals
	if s.ShortWindowDays <= 0 || s.LongWindowDays <= 0 {
		return fmt.Errorf("config: signal windows must be positive (short=%d long=%d)", s.ShortWindowDays, s.LongWindowDays)
	}
	if s.ShortWindowDays >= s.LongWindowDays {
		return fmt.Errorf("config: short window (%d) must be shorter than long window (%d)", s.ShortWindowDays, s.LongWindowDays)
	}
	if s.MinRecurringOccurrences < 2 {
		return fmt.Errorf("config: min recurring occurrences must be at least 2, got %d", s.MinRecurringOccurrences)
	}
	if s.RecurringAmountCVMax < 0 {
		return fmt.Errorf("config: recurring amount CV ceiling cannot be negative, got %f", s.RecurringAmountCVMax)
	}
	if !(s.UtilizationWarnPct < s.UtilizationHighPct && s.UtilizationHighPct < s.UtilizationCriticalPct) {
		return fmt.Errorf("config: utilization thresholds must be strictly ordered (warn=%g high=%g critical=%g)",
			s.UtilizationWarnPct, s.UtilizationHighPct, s.UtilizationCriticalPct)
	}
	if s.MinPaycheckOccurrences < 2 {
		return fmt.Errorf("config: min paycheck occurrences must be at least 2, got %d", s.MinPaycheckOccurrences)
	}

	sel := c.Selection
	if sel.EducationMin < 0 || sel.OffersMin < 0 {
		return fmt.Errorf("config: selection minimums cannot be negative")
	}
	if sel.EducationMin > sel.EducationMax {
		return fmt.Errorf("config: education min (%d) exceeds max (%d)", sel.EducationMin, sel.EducationMax)
	}
	if sel.OffersMin > sel.OffersMax {
		return fmt.Errorf("config: offers min (%d) exceeds max (%d)", sel.OffersMin, sel.OffersMax)
	}

	p := c.Personas
	if p.SubscriptionShareMin < 0 || p.SubscriptionShareMin > 1 {
		return fmt.Errorf("config: subscription share threshold must be within [0,1], got %f", p.SubscriptionShareMin)
	}
	if p.VariablePayGapDays <= 0 {
		return fmt.Errorf("config: variable pay gap bound must be positive, got %f", p.VariablePayGapDays)
	}

	return nil
}

// envLoader reads typed environment values and collects parse failures so
// LoadFromEnv can reject a malformed environment at load time.
type envLoader struct {
	problems []string
}

// getInt gets environment variable as int or returns default value
func (l *envLoader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("%s=%q is not an integer", key, value))
		return defaultValue
	}
	return intValue
}

// getFloat gets environment variable as float64 or returns default value
func (l *envLoader) getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("%s=%q is not a number", key, value))
		return defaultValue
	}
	return floatValue
}

func (l *envLoader) err() error {
	if len(l.problems) == 0 {
		return nil
	}
	return fmt.Errorf("config: invalid environment values: %s", strings.Join(l.problems, "; "))
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
