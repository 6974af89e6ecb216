package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/finledger/backoffice/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListForStatement(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, period domain.Period, asOf time.Time) ([]domain.LedgerRecord, error) {
	var records []domain.LedgerRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, customer_id, reference, amount, currency, issued_at, due_date, paid_date, created_at
		 FROM ledger_records
		 WHERE org_id = ? AND customer_id = ?
		   AND (
		     (issued_at >= ? AND issued_at <= ?)
		     OR (due_date <= ? AND (paid_date IS NULL OR paid_date > ?))
		   )
		 ORDER BY due_date, id`,
		orgID,
		customerID,
		period.Start,
		period.End,
		asOf,
		asOf,
	).Scan(&records).Error
	if err != nil {
		return nil, classifyReadError(err)
	}
	return records, nil
}

// classifyReadError folds transient driver failures into ErrUnavailable so
// callers can retry them. Anything else is permanent and passes through.
func classifyReadError(err error) error {
	if err == nil {
		return nil
	}
	if isTransientErr(err) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}

func isTransientErr(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Connection-class failures that only surface as text through the driver.
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		// PostgreSQL 57P03
		"the database system is starting up",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
