package models

import "time"

// Transaction represents a single posted transaction on a user's account.
//
// Sign convention follows the ingestion feed: negative amounts are credits
// (inflows to the account), positive amounts are debits (outflows). All
// signal computation relies on this convention.
//
// Key Fields:
//   - UserID/AccountID: ownership (both indexed for per-user window queries)
//   - Date: posting date (indexed for time-based queries)
//   - Amount: signed value, negative = credit/inflow, positive = debit/outflow
//   - MerchantName: normalized merchant string used for recurrence grouping
//   - Category: upstream category label (e.g. "subscription", "interest charge")
type Transaction struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"size:64;index;not null" json:"user_id"`
	AccountID    string    `gorm:"size:64;index;not null" json:"account_id"`
	Date         time.Time `gorm:"index;not null" json:"date"`
	Amount       float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	MerchantName string    `gorm:"size:120" json:"merchant_name"`
	Category     string    `gorm:"size:80;index" json:"category"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// Account taxonomy constants. The engine only distinguishes depository
// (checking/savings) and credit (credit card) accounts.
const (
	AccountTypeDepository = "depository"
	AccountTypeCredit     = "credit"

	AccountSubtypeChecking   = "checking"
	AccountSubtypeSavings    = "savings"
	AccountSubtypeCreditCard = "credit card"
)

// Account represents a bank or card account owned by a user.
type Account struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	UserID           string    `gorm:"size:64;index;not null" json:"user_id"`
	Type             string    `gorm:"size:20;not null" json:"type"`    // depository, credit
	Subtype          string    `gorm:"size:20;not null" json:"subtype"` // checking, savings, credit card
	CurrentBalance   float64   `gorm:"type:decimal(15,2);not null" json:"current_balance"`
	AvailableBalance float64   `gorm:"type:decimal(15,2)" json:"available_balance"`
	CreditLimit      *float64  `gorm:"type:decimal(15,2)" json:"credit_limit,omitempty"` // credit accounts only
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Liability represents the revolving-debt facts attached to a credit account.
//
// Key Fields:
//   - APR: current annual percentage rate; non-zero implies interest accrual
//   - MinimumPayment: statement minimum due
//   - LastPaymentAmount: most recent payment, compared against the minimum
//     to detect a minimum-payment-only pattern
//   - IsOverdue: upstream overdue flag
type Liability struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            string    `gorm:"size:64;index;not null" json:"user_id"`
	AccountID         string    `gorm:"size:64;index;not null" json:"account_id"`
	APR               float64   `gorm:"type:decimal(6,3)" json:"apr"`
	MinimumPayment    float64   `gorm:"type:decimal(15,2)" json:"minimum_payment"`
	LastPaymentAmount float64   `gorm:"type:decimal(15,2)" json:"last_payment_amount"`
	IsOverdue         bool      `gorm:"default:false" json:"is_overdue"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for Liability
func (Liability) TableName() string {
	return "liabilities"
}

// User represents an end user of the recommendation engine. Consent is
// read at recommendation time, never assumed from an earlier run.
type User struct {
	ID               string     `gorm:"primaryKey;size:64" json:"id"`
	ConsentGranted   bool       `gorm:"default:false" json:"consent_granted"`
	ConsentUpdatedAt *time.Time `json:"consent_updated_at,omitempty"`
	IncomeTier       string     `gorm:"size:20" json:"income_tier"` // low, medium, high
	AgeRange         string     `gorm:"size:20" json:"age_range"`
	Region           string     `gorm:"size:40" json:"region"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// PersonaAssignment is the point-of-record output of the classifier. A new
// row supersedes prior rows for the same user but old rows are never
// deleted, so the full assignment history stays queryable for audit.
//
// Key Fields:
//   - Persona: the single assigned label for this run
//   - CriteriaMet: JSON map of the winning predicate's satisfied criteria
//   - PredicateResults: JSON map of every evaluated persona -> matched bool
//   - RunID: ties the assignment to one pipeline run across stores
type PersonaAssignment struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           string    `gorm:"size:64;index;not null" json:"user_id"`
	RunID            string    `gorm:"size:36;index;not null" json:"run_id"`
	Persona          string    `gorm:"size:40;not null" json:"persona"`
	CriteriaMet      string    `gorm:"type:text" json:"criteria_met"`      // JSON object
	PredicateResults string    `gorm:"type:text" json:"predicate_results"` // JSON object
	AssignedAt       time.Time `gorm:"index;not null" json:"assigned_at"`
}

// TableName specifies the table name for PersonaAssignment
func (PersonaAssignment) TableName() string {
	return "persona_assignments"
}

// AuditRecord is one append-only entry in a user's audit trace. The trace
// for a user is the ordered set of records with that user_id; records are
// never updated or deleted.
type AuditRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"size:64;index;not null" json:"user_id"`
	RunID      string    `gorm:"size:36;index;not null" json:"run_id"`
	Stage      string    `gorm:"size:40;not null" json:"stage"`     // signals, persona, guardrails, recommendations
	Payload    string    `gorm:"type:text;not null" json:"payload"` // JSON snapshot of the stage output
	RecordedAt time.Time `gorm:"index;not null" json:"recorded_at"`
}

// TableName specifies the table name for AuditRecord
func (AuditRecord) TableName() string {
	return "audit_records"
}
