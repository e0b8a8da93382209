package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// SignalRow is the flattened, per-user-per-window projection of a computed
// signal bundle. Bundles are ephemeral run artifacts; this wide row is what
// downstream analytics read, and it is rewritten on every run rather than
// treated as authoritative state.
type SignalRow struct {
	UserID                   string
	WindowDays               int
	ComputedAt               time.Time
	RecurringMerchantCount   int
	SubscriptionMonthlySpend float64
	SubscriptionSpendShare   float64
	SavingsNetInflow         float64
	SavingsGrowthRate        float64
	EmergencyFundMonths      float64
	MaxUtilizationPct        float64
	AvgUtilizationPct        float64
	HasInterestCharges       bool
	MinimumPaymentOnly       bool
	AnyLiabilityOverdue      bool
	PayFrequency             string
	MedianPayGapDays         float64
	IncomeVariability        float64
	CashBufferMonths         float64
}

// ColumnarStore writes flattened signal rows through a raw SQL connection.
// It is kept separate from the GORM stack on purpose: the row store is a
// plain wide table bulk-replaced per run, with no relations worth mapping.
type ColumnarStore struct {
	conn *sql.DB
}

// NewColumnarStore opens a raw PostgreSQL connection for the signal row store.
func NewColumnarStore(host, port, user, password, dbname string) (*ColumnarStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &ColumnarStore{conn: conn}, nil
}

// InitSchema creates the signal row table if it does not exist.
func (s *ColumnarStore) InitSchema() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS signal_rows (
			user_id TEXT NOT NULL,
			window_days INT NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL,
			recurring_merchant_count INT NOT NULL,
			subscription_monthly_spend NUMERIC(15,2) NOT NULL,
			subscription_spend_share NUMERIC(8,4) NOT NULL,
			savings_net_inflow NUMERIC(15,2) NOT NULL,
			savings_growth_rate NUMERIC(10,4) NOT NULL,
			emergency_fund_months NUMERIC(10,2) NOT NULL,
			max_utilization_pct NUMERIC(8,2) NOT NULL,
			avg_utilization_pct NUMERIC(8,2) NOT NULL,
			has_interest_charges BOOLEAN NOT NULL,
			minimum_payment_only BOOLEAN NOT NULL,
			any_liability_overdue BOOLEAN NOT NULL,
			pay_frequency TEXT NOT NULL,
			median_pay_gap_days NUMERIC(8,2) NOT NULL,
			income_variability NUMERIC(10,4) NOT NULL,
			cash_buffer_months NUMERIC(10,2) NOT NULL,
			PRIMARY KEY (user_id, window_days)
		)`)
	return WrapDBError("init signal_rows schema", err)
}

// Upsert replaces the row for (user, window) with the latest run's values.
func (s *ColumnarStore) Upsert(row *SignalRow) error {
	_, err := s.conn.Exec(`
		INSERT INTO signal_rows (
			user_id, window_days, computed_at,
			recurring_merchant_count, subscription_monthly_spend, subscription_spend_share,
			savings_net_inflow, savings_growth_rate, emergency_fund_months,
			max_utilization_pct, avg_utilization_pct,
			has_interest_charges, minimum_payment_only, any_liability_overdue,
			pay_frequency, median_pay_gap_days, income_variability, cash_buffer_months
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (user_id, window_days) DO UPDATE SET
			computed_at = EXCLUDED.computed_at,
			recurring_merchant_count = EXCLUDED.recurring_merchant_count,
			subscription_monthly_spend = EXCLUDED.subscription_monthly_spend,
			subscription_spend_share = EXCLUDED.subscription_spend_share,
			savings_net_inflow = EXCLUDED.savings_net_inflow,
			savings_growth_rate = EXCLUDED.savings_growth_rate,
			emergency_fund_months = EXCLUDED.emergency_fund_months,
			max_utilization_pct = EXCLUDED.max_utilization_pct,
			avg_utilization_pct = EXCLUDED.avg_utilization_pct,
			has_interest_charges = EXCLUDED.has_interest_charges,
			minimum_payment_only = EXCLUDED.minimum_payment_only,
			any_liability_overdue = EXCLUDED.any_liability_overdue,
			pay_frequency = EXCLUDED.pay_frequency,
			median_pay_gap_days = EXCLUDED.median_pay_gap_days,
			income_variability = EXCLUDED.income_variability,
			cash_buffer_months = EXCLUDED.cash_buffer_months`,
		row.UserID, row.WindowDays, row.ComputedAt,
		row.RecurringMerchantCount, row.SubscriptionMonthlySpend, row.SubscriptionSpendShare,
		row.SavingsNetInflow, row.SavingsGrowthRate, row.EmergencyFundMonths,
		row.MaxUtilizationPct, row.AvgUtilizationPct,
		row.HasInterestCharges, row.MinimumPaymentOnly, row.AnyLiabilityOverdue,
		row.PayFrequency, row.MedianPayGapDays, row.IncomeVariability, row.CashBufferMonths,
	)
	return WrapDBError("upsert signal row", err)
}

// Close closes the raw SQL connection.
func (s *ColumnarStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
