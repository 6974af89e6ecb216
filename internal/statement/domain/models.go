package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// StatementStatus is the business lifecycle of a statement.
type StatementStatus string

const (
	StatusPending StatementStatus = "PENDING"
	StatusSent    StatementStatus = "SENT"
	StatusViewed  StatementStatus = "VIEWED"
	StatusPaid    StatementStatus = "PAID"
	StatusFailed  StatementStatus = "FAILED"
)

// GenerationState tracks the background snapshot build, orthogonal to the
// business lifecycle. A FAILED generation forces status FAILED; a SUCCEEDED
// generation leaves the statement PENDING until an actor sends it.
type GenerationState string

const (
	GenerationRequested GenerationState = "REQUESTED"
	GenerationRunning   GenerationState = "RUNNING"
	GenerationSucceeded GenerationState = "SUCCEEDED"
	GenerationFailed    GenerationState = "FAILED"
)

// AgingBuckets is the receivable balance split by days overdue as of the
// statement date.
type AgingBuckets struct {
	Current     int64 `json:"current"`
	Days31To60  int64 `json:"days_31_to_60"`
	Days61To90  int64 `json:"days_61_to_90"`
	Days91To120 int64 `json:"days_91_to_120"`
	Over120     int64 `json:"over_120"`
}

func (b AgingBuckets) Total() int64 {
	return b.Current + b.Days31To60 + b.Days61To90 + b.Days91To120 + b.Over120
}

// Statement is a frozen point-in-time financial snapshot for one customer of
// one org over one period. Snapshot fields are write-once: they are populated
// exactly once by the generation worker and never change afterwards.
type Statement struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID `gorm:"not null;index" json:"organization_id"`
	CustomerID     snowflake.ID `gorm:"not null;index" json:"customer_id"`
	DocumentNumber string       `gorm:"not null;uniqueIndex" json:"document_number"`

	RecipientName    string `gorm:"not null" json:"recipient_name"`
	RecipientEmail   string `gorm:"not null;index" json:"recipient_email"`
	RecipientPhone   string `json:"recipient_phone,omitempty"`
	RecipientAddress string `json:"recipient_address,omitempty"`

	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`

	Status                StatementStatus `gorm:"not null;index" json:"status"`
	GenerationState       GenerationState `gorm:"not null;index" json:"generation_state"`
	GenerationAttempts    int             `gorm:"not null;default:0" json:"generation_attempts"`
	GenerationHeartbeatAt *time.Time      `json:"generation_heartbeat_at,omitempty"`
	// GeneratedAt is when the snapshot finished building, so it is nil until
	// generation succeeds. The request itself is timestamped by CreatedAt.
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	SentAt                *time.Time      `json:"sent_at,omitempty"`
	ViewedAt              *time.Time      `json:"viewed_at,omitempty"`
	PaidAt                *time.Time      `json:"paid_at,omitempty"`

	AgingCurrent   int64 `gorm:"not null;default:0" json:"aging_current"`
	Aging31To60    int64 `gorm:"column:aging_31_60;not null;default:0" json:"aging_31_60"`
	Aging61To90    int64 `gorm:"column:aging_61_90;not null;default:0" json:"aging_61_90"`
	Aging91To120   int64 `gorm:"column:aging_91_120;not null;default:0" json:"aging_91_120"`
	AgingOver120   int64 `gorm:"column:aging_over_120;not null;default:0" json:"aging_over_120"`
	TotalInterest  int64 `gorm:"not null;default:0" json:"total_interest"`
	TotalAmountDue int64 `gorm:"not null;default:0" json:"total_amount_due"`

	Notes       string `json:"notes,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (s *Statement) Buckets() AgingBuckets {
	return AgingBuckets{
		Current:     s.AgingCurrent,
		Days31To60:  s.Aging31To60,
		Days61To90:  s.Aging61To90,
		Days91To120: s.Aging91To120,
		Over120:     s.AgingOver120,
	}
}

// LineItem is one frozen ledger entry inside a statement snapshot.
type LineItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID `gorm:"not null;index" json:"organization_id"`
	StatementID    snowflake.ID `gorm:"not null;index" json:"statement_id"`
	LedgerRecordID snowflake.ID `gorm:"not null" json:"ledger_record_id"`
	Reference      string       `gorm:"not null" json:"reference"`
	Amount         int64        `gorm:"not null" json:"amount"`
	DueDate        time.Time    `gorm:"not null" json:"due_date"`
	AgeDays        int          `gorm:"not null" json:"age_days"`
	Position       int          `gorm:"not null" json:"position"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LineItem) TableName() string { return "statement_line_items" }

// Snapshot is the frozen financial content of one generated statement.
type Snapshot struct {
	Buckets        AgingBuckets `json:"aging"`
	TotalInterest  int64        `json:"total_interest"`
	TotalAmountDue int64        `json:"total_amount_due"`
	LineItems      []LineItem   `json:"line_items"`
}
