package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/finledger/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows statement listings. Zero values mean "no constraint".
// RecipientEmail plus Statuses is how the received scope is enforced at the
// query level, so out-of-scope rows never leave the database.
type ListFilter struct {
	OrgID          snowflake.ID
	CustomerID     snowflake.ID
	Statuses       []StatementStatus
	RecipientEmail string
	PeriodFrom     *time.Time
	PeriodTo       *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, statement *Statement) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Statement, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Statement, error)

	// MarkRunning flips REQUESTED to RUNNING with an initial heartbeat.
	// Returns false when the statement is no longer in REQUESTED.
	MarkRunning(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	Heartbeat(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	IncrementAttempts(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// WriteSnapshot writes the frozen snapshot fields and line items in one
	// transaction, guarded on generation_state = RUNNING so it can happen at
	// most once. Returns false when the guard matched no row.
	WriteSnapshot(ctx context.Context, db *gorm.DB, statement *Statement, items []LineItem, at time.Time) (bool, error)

	// MarkGenerationFailed records the failure outcome: generation_state and
	// status both FAILED plus the diagnostic detail.
	MarkGenerationFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, detail string, at time.Time) (bool, error)

	// Transition performs a guarded status update (UPDATE ... WHERE status = from).
	// Returns false when the row was not in the expected source status.
	Transition(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from, to StatementStatus, at time.Time) (bool, error)

	ListLineItems(ctx context.Context, db *gorm.DB, orgID, statementID snowflake.ID) ([]LineItem, error)

	// ListStaleGenerating returns statements whose generation was interrupted:
	// RUNNING rows whose heartbeat is older than the cutoff, and REQUESTED
	// rows untouched since the cutoff (queued in a process that died before
	// claiming them). Both feed the recovery sweep.
	ListStaleGenerating(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]*Statement, error)
}
