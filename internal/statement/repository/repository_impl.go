package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/finledger/backoffice/internal/statement/domain"
	"github.com/finledger/backoffice/pkg/db/option"
	"github.com/finledger/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, statement *domain.Statement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO statements (
		   id, org_id, customer_id, document_number,
		   recipient_name, recipient_email, recipient_phone, recipient_address,
		   period_start, period_end, status, generation_state, generation_attempts,
		   aging_current, aging_31_60, aging_61_90, aging_91_120, aging_over_120,
		   total_interest, total_amount_due, notes, error_detail, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, 0, 0, 0, ?, '', ?, ?)`,
		statement.ID,
		statement.OrgID,
		statement.CustomerID,
		statement.DocumentNumber,
		statement.RecipientName,
		statement.RecipientEmail,
		statement.RecipientPhone,
		statement.RecipientAddress,
		statement.PeriodStart,
		statement.PeriodEnd,
		statement.Status,
		statement.GenerationState,
		statement.GenerationAttempts,
		statement.Notes,
		statement.CreatedAt,
		statement.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Statement, error) {
	var statement domain.Statement
	err := db.WithContext(ctx).
		Model(&domain.Statement{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Scan(&statement).Error
	if err != nil {
		return nil, err
	}
	if statement.ID == 0 {
		return nil, nil
	}
	return &statement, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Statement, error) {
	var statements []*domain.Statement
	stmt := db.WithContext(ctx).
		Model(&domain.Statement{}).
		Where("org_id = ?", filter.OrgID)
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.RecipientEmail != "" {
		stmt = stmt.Where("recipient_email = ?", filter.RecipientEmail)
	}
	if filter.PeriodFrom != nil {
		stmt = stmt.Where("period_start >= ?", *filter.PeriodFrom)
	}
	if filter.PeriodTo != nil {
		stmt = stmt.Where("period_end <= ?", *filter.PeriodTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&statements).Error
	if err != nil {
		return nil, err
	}
	return statements, nil
}

func (r *repo) MarkRunning(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE statements
		 SET generation_state = ?, generation_heartbeat_at = ?, updated_at = ?
		 WHERE id = ? AND generation_state = ?`,
		domain.GenerationRunning,
		at,
		at,
		id,
		domain.GenerationRequested,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Heartbeat(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE statements SET generation_heartbeat_at = ? WHERE id = ? AND generation_state = ?`,
		at,
		id,
		domain.GenerationRunning,
	).Error
}

func (r *repo) IncrementAttempts(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE statements SET generation_attempts = generation_attempts + 1 WHERE id = ?`,
		id,
	).Error
}

func (r *repo) WriteSnapshot(ctx context.Context, db *gorm.DB, statement *domain.Statement, items []domain.LineItem, at time.Time) (bool, error) {
	written := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE statements
			 SET aging_current = ?, aging_31_60 = ?, aging_61_90 = ?, aging_91_120 = ?, aging_over_120 = ?,
			     total_interest = ?, total_amount_due = ?,
			     generation_state = ?, generated_at = ?, updated_at = ?
			 WHERE id = ? AND generation_state = ?`,
			statement.AgingCurrent,
			statement.Aging31To60,
			statement.Aging61To90,
			statement.Aging91To120,
			statement.AgingOver120,
			statement.TotalInterest,
			statement.TotalAmountDue,
			domain.GenerationSucceeded,
			at,
			at,
			statement.ID,
			domain.GenerationRunning,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		for _, item := range items {
			if err := tx.Exec(
				`INSERT INTO statement_line_items (
				   id, org_id, statement_id, ledger_record_id, reference, amount, due_date, age_days, position, created_at
				 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID,
				item.OrgID,
				item.StatementID,
				item.LedgerRecordID,
				item.Reference,
				item.Amount,
				item.DueDate,
				item.AgeDays,
				item.Position,
				item.CreatedAt,
			).Error; err != nil {
				return err
			}
		}

		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return written, nil
}

func (r *repo) MarkGenerationFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, detail string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE statements
		 SET generation_state = ?, status = ?, error_detail = ?, updated_at = ?
		 WHERE id = ? AND generation_state IN ?`,
		domain.GenerationFailed,
		domain.StatusFailed,
		detail,
		at,
		id,
		[]domain.GenerationState{domain.GenerationRequested, domain.GenerationRunning},
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from, to domain.StatementStatus, at time.Time) (bool, error) {
	query := `UPDATE statements SET status = ?, updated_at = ?`
	args := []any{to, at}
	switch to {
	case domain.StatusSent:
		query += `, sent_at = ?`
		args = append(args, at)
	case domain.StatusViewed:
		query += `, viewed_at = ?`
		args = append(args, at)
	case domain.StatusPaid:
		query += `, paid_at = ?`
		args = append(args, at)
	}
	query += ` WHERE org_id = ? AND id = ? AND status = ?`
	args = append(args, orgID, id, from)

	result := db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, orgID, statementID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, statement_id, ledger_record_id, reference, amount, due_date, age_days, position, created_at
		 FROM statement_line_items
		 WHERE org_id = ? AND statement_id = ?
		 ORDER BY position`,
		orgID,
		statementID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListStaleGenerating(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]*domain.Statement, error) {
	var statements []*domain.Statement
	err := db.WithContext(ctx).
		Model(&domain.Statement{}).
		Where(
			`(generation_state = ? AND (generation_heartbeat_at IS NULL OR generation_heartbeat_at < ?))
			 OR (generation_state = ? AND updated_at < ?)`,
			domain.GenerationRunning,
			cutoff,
			domain.GenerationRequested,
			cutoff,
		).
		Find(&statements).Error
	if err != nil {
		return nil, err
	}
	return statements, nil
}
