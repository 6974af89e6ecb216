package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// LedgerRecord is one receivable row in the external ledger. The statement
// engine only ever reads these; other systems create and settle them.
type LedgerRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"organization_id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`
	Reference  string       `gorm:"not null" json:"reference"`
	Amount     int64        `gorm:"not null" json:"amount"`
	Currency   string       `gorm:"not null" json:"currency"`
	IssuedAt   time.Time    `gorm:"not null" json:"issued_at"`
	DueDate    time.Time    `gorm:"not null" json:"due_date"`
	PaidDate   *time.Time   `json:"paid_date,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// Paid reports whether the record was settled on or before asOf.
func (r LedgerRecord) Paid(asOf time.Time) bool {
	return r.PaidDate != nil && !r.PaidDate.After(asOf)
}

// ErrUnavailable signals a transient ledger read failure worth retrying.
var ErrUnavailable = errors.New("ledger_unavailable")
