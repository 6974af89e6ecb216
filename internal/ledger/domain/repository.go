package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Period is a closed date range of statement activity.
type Period struct {
	Start time.Time
	End   time.Time
}

type Repository interface {
	// ListForStatement returns records issued inside the period plus unpaid
	// records due on or before asOf, regardless of period.
	ListForStatement(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, period Period, asOf time.Time) ([]LedgerRecord, error)
}
