package app

import (
	"math"
	"reflect"
	"testing"
	"time"

	"spendsense/config"
	models "spendsense/database/models_pkg"
)

func testSignalConfig() config.SignalConfig {
	return config.SignalConfig{
		ShortWindowDays:          30,
		LongWindowDays:           180,
		MinRecurringOccurrences:  3,
		RecurringAmountCVMax:     0.25,
		UtilizationWarnPct:       30,
		UtilizationHighPct:       50,
		UtilizationCriticalPct:   80,
		MinPaymentTolerancePct:   5,
		InterestLookbackDays:     35,
		MinPaycheckOccurrences:   2,
		WeeklyGapToleranceDays:   2,
		BiweeklyGapToleranceDays: 3,
		MonthlyGapToleranceDays:  5,
	}
}

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func checkingAccount(id string) models.Account {
	return models.Account{
		ID: id, UserID: "u1",
		Type: models.AccountTypeDepository, Subtype: models.AccountSubtypeChecking,
	}
}

func savingsAccount(id string, balance float64) models.Account {
	return models.Account{
		ID: id, UserID: "u1",
		Type: models.AccountTypeDepository, Subtype: models.AccountSubtypeSavings,
		CurrentBalance: balance,
	}
}

func creditAccount(id string, balance, limit float64) models.Account {
	return models.Account{
		ID: id, UserID: "u1",
		Type: models.AccountTypeCredit, Subtype: models.AccountSubtypeCreditCard,
		CurrentBalance: balance, CreditLimit: &limit,
	}
}

func txn(accountID string, daysAgo int, amount float64, merchant, category string) models.Transaction {
	return models.Transaction{
		UserID: "u1", AccountID: accountID,
		Date:   testNow.AddDate(0, 0, -daysAgo),
		Amount: amount, MerchantName: merchant, Category: category,
	}
}

func TestDetectSubscriptions(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())

	tests := []struct {
		name          string
		txns          []models.Transaction
		wantRecurring int
	}{
		{
			name: "monthly fixed-amount merchant is recurring",
			txns: []models.Transaction{
				txn("chk", 10, 15.99, "Netflix", "subscription"),
				txn("chk", 40, 15.99, "Netflix", "subscription"),
				txn("chk", 70, 15.99, "Netflix", "subscription"),
				txn("chk", 100, 15.99, "Netflix", "subscription"),
			},
			wantRecurring: 1,
		},
		{
			name: "two occurrences is below the minimum",
			txns: []models.Transaction{
				txn("chk", 10, 15.99, "Netflix", "subscription"),
				txn("chk", 40, 15.99, "Netflix", "subscription"),
			},
			wantRecurring: 0,
		},
		{
			name: "high amount variance is not recurring",
			txns: []models.Transaction{
				txn("chk", 10, 12.00, "Corner Store", "groceries"),
				txn("chk", 40, 95.00, "Corner Store", "groceries"),
				txn("chk", 70, 31.00, "Corner Store", "groceries"),
			},
			wantRecurring: 0,
		},
		{
			name: "credits never count as spend",
			txns: []models.Transaction{
				txn("chk", 10, -15.99, "Netflix", "refund"),
				txn("chk", 40, -15.99, "Netflix", "refund"),
				txn("chk", 70, -15.99, "Netflix", "refund"),
			},
			wantRecurring: 0,
		},
	}

	accounts := []models.Account{checkingAccount("chk")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := d.Compute("u1", tt.txns, accounts, nil, testNow)
			if got := bundle.Long.Subscriptions.RecurringCount; got != tt.wantRecurring {
				t.Errorf("recurring count = %d, want %d", got, tt.wantRecurring)
			}
		})
	}
}

func TestDetectSubscriptionsNormalization(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	txns := []models.Transaction{
		txn("chk", 10, 15.99, "Netflix", "subscription"),
		txn("chk", 40, 15.99, "Netflix", "subscription"),
		txn("chk", 70, 15.99, "Netflix", "subscription"),
		txn("chk", 100, 15.99, "Netflix", "subscription"),
		txn("chk", 130, 15.99, "Netflix", "subscription"),
		txn("chk", 160, 15.99, "Netflix", "subscription"),
		txn("chk", 5, 400.00, "Grocery Mart", "groceries"),
	}
	bundle := d.Compute("u1", txns, []models.Account{checkingAccount("chk")}, nil, testNow)

	subs := bundle.Long.Subscriptions
	wantMonthly := 15.99 * 6 * 30.0 / 180.0
	if math.Abs(subs.MonthlySpend-wantMonthly) > 0.01 {
		t.Errorf("monthly spend = %.2f, want %.2f", subs.MonthlySpend, wantMonthly)
	}
	wantShare := (15.99 * 6) / (15.99*6 + 400.00)
	if math.Abs(subs.SpendShare-wantShare) > 0.001 {
		t.Errorf("spend share = %.4f, want %.4f", subs.SpendShare, wantShare)
	}
}

func TestDetectSavings(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	accounts := []models.Account{checkingAccount("chk"), savingsAccount("sav", 1200)}
	txns := []models.Transaction{
		txn("sav", 10, -200, "Transfer In", "transfer"),
		txn("sav", 40, -200, "Transfer In", "transfer"),
		txn("sav", 70, -200, "Transfer In", "transfer"),
	}

	bundle := d.Compute("u1", txns, accounts, nil, testNow)
	savings := bundle.Long.Savings

	if !savings.HasAccounts {
		t.Fatal("expected savings accounts present")
	}
	if savings.NetInflow != 600 {
		t.Errorf("net inflow = %.2f, want 600", savings.NetInflow)
	}
	// beginning = 1200 - 600 = 600, growth = (1200-600)/600 = 1.0
	if math.Abs(savings.GrowthRate-1.0) > 0.001 {
		t.Errorf("growth rate = %.4f, want 1.0", savings.GrowthRate)
	}
}

func TestDetectSavingsNoAccounts(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	bundle := d.Compute("u1", nil, []models.Account{checkingAccount("chk")}, nil, testNow)

	savings := bundle.Long.Savings
	if savings.HasAccounts || savings.NetInflow != 0 || savings.GrowthRate != 0 {
		t.Errorf("expected empty savings signals, got %+v", savings)
	}
}

func TestDetectCredit(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	accounts := []models.Account{creditAccount("card", 680, 1000)}
	liabilities := []models.Liability{
		{UserID: "u1", AccountID: "card", APR: 24.99, MinimumPayment: 50, LastPaymentAmount: 51},
	}
	txns := []models.Transaction{
		txn("card", 12, 14.30, "Interest Charge", "fees"),
	}

	bundle := d.Compute("u1", txns, accounts, liabilities, testNow)
	credit := bundle.Long.Credit

	if math.Abs(credit.MaxUtilizationPct-68.0) > 0.001 {
		t.Errorf("max utilization = %.2f, want 68", credit.MaxUtilizationPct)
	}
	if !credit.AboveWarn || !credit.AboveHigh || credit.AboveCritical {
		t.Errorf("threshold flags wrong: warn=%v high=%v critical=%v",
			credit.AboveWarn, credit.AboveHigh, credit.AboveCritical)
	}
	if !credit.MinimumPaymentOnly {
		t.Error("expected minimum-payment-only pattern (51 within 5%% of 50)")
	}
	if !credit.HasInterestAccrual {
		t.Error("expected interest accrual flag from non-zero APR")
	}
	if !credit.HasInterestCharges {
		t.Error("expected posted interest charge detection")
	}
}

func TestDetectCreditInterestOutsideLookback(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	accounts := []models.Account{creditAccount("card", 100, 1000)}
	txns := []models.Transaction{
		txn("card", 90, 14.30, "Interest Charge", "fees"), // beyond 35-day lookback
	}

	bundle := d.Compute("u1", txns, accounts, nil, testNow)
	if bundle.Long.Credit.HasInterestCharges {
		t.Error("interest charge outside lookback window should not flag")
	}
}

func TestDetectCreditNoCards(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	bundle := d.Compute("u1", nil, []models.Account{checkingAccount("chk")}, nil, testNow)

	credit := bundle.Long.Credit
	if credit.HasCards || credit.MaxUtilizationPct != 0 || credit.AboveWarn {
		t.Errorf("expected empty credit signals, got %+v", credit)
	}
}

func TestDetectCreditOverdueLiabilityWithoutCardRow(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	accounts := []models.Account{checkingAccount("chk")}
	liabilities := []models.Liability{
		{UserID: "u1", AccountID: "card_closed", IsOverdue: true},
	}

	bundle := d.Compute("u1", nil, accounts, liabilities, testNow)
	credit := bundle.Long.Credit

	if !credit.AnyOverdue {
		t.Fatal("overdue liability must surface even without a credit account row")
	}
	if credit.HasCards {
		t.Error("no credit account rows, HasCards should be false")
	}

	result := NewPersonaClassifier(testPersonaConfig()).Classify(bundle)
	if result.Persona != PersonaHighUtilization {
		t.Errorf("persona = %s, want HighUtilization from the overdue liability", result.Persona)
	}
	if !result.CriteriaMet["liability_overdue"] {
		t.Errorf("criteria = %+v, want liability_overdue", result.CriteriaMet)
	}
}

func TestDetectIncomeFrequency(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	accounts := []models.Account{checkingAccount("chk")}

	tests := []struct {
		name     string
		gapDays  int
		wantFreq string
	}{
		{"weekly", 7, PayFrequencyWeekly},
		{"biweekly", 14, PayFrequencyBiweekly},
		{"monthly", 30, PayFrequencyMonthly},
		{"variable", 50, PayFrequencyVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txns []models.Transaction
			for daysAgo := 5; daysAgo < 180; daysAgo += tt.gapDays {
				txns = append(txns, txn("chk", daysAgo, -1500, "ACME Payroll", "income"))
			}
			bundle := d.Compute("u1", txns, accounts, nil, testNow)
			income := bundle.Long.Income

			if !income.Detected {
				t.Fatal("expected income detected")
			}
			if income.PayFrequency != tt.wantFreq {
				t.Errorf("frequency = %s, want %s", income.PayFrequency, tt.wantFreq)
			}
			if math.Abs(income.MedianPayGapDays-float64(tt.gapDays)) > 0.001 {
				t.Errorf("median gap = %.1f, want %d", income.MedianPayGapDays, tt.gapDays)
			}
		})
	}
}

func TestDetectIncomeInsufficientOccurrences(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	txns := []models.Transaction{
		txn("chk", 10, -1500, "ACME Payroll", "income"),
	}
	bundle := d.Compute("u1", txns, []models.Account{checkingAccount("chk")}, nil, testNow)

	income := bundle.Long.Income
	if income.Detected || income.MedianPayGapDays != 0 || income.PayFrequency != "" {
		t.Errorf("expected empty income signals, got %+v", income)
	}
}

func TestDetectIncomeCashBuffer(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	accounts := []models.Account{checkingAccount("chk")}

	// Paychecks every 30 days plus matching expenses.
	var txns []models.Transaction
	for daysAgo := 15; daysAgo < 180; daysAgo += 30 {
		txns = append(txns, txn("chk", daysAgo, -3000, "ACME Payroll", "income"))
		txns = append(txns, txn("chk", daysAgo-5, 1500, "Rent Co", "rent"))
	}
	bundle := d.Compute("u1", txns, accounts, nil, testNow)
	income := bundle.Long.Income

	// income = 3000/month, expense = 1500/month, buffer = (3000-1500)/1500 = 1.0
	if math.Abs(income.CashBufferMonths-1.0) > 0.01 {
		t.Errorf("cash buffer = %.2f, want 1.0", income.CashBufferMonths)
	}
}

func TestComputeIdempotent(t *testing.T) {
	d := NewSignalDetector(testSignalConfig())
	accounts := []models.Account{checkingAccount("chk"), creditAccount("card", 680, 1000)}
	txns := []models.Transaction{
		txn("chk", 10, -1500, "ACME Payroll", "income"),
		txn("chk", 24, -1500, "ACME Payroll", "income"),
		txn("chk", 5, 250, "Grocery Mart", "groceries"),
	}

	first := d.Compute("u1", txns, accounts, nil, testNow)
	second := d.Compute("u1", txns, accounts, nil, testNow)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different bundles:\n%+v\n%+v", first, second)
	}
}
