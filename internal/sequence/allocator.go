package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const documentNumberFormat = "STMT-%06d"

var ErrAllocationFailed = errors.New("sequence_allocation_failed")

// Allocator hands out gapless per-org document numbers. The counter lives in
// document_sequences and is advanced with a single atomic upsert, so two
// transactions can never observe the same value.
type Allocator struct{}

func New() *Allocator {
	return &Allocator{}
}

// Next advances the org counter and returns the formatted document number.
// Must run inside the transaction that inserts the statement so an aborted
// insert rolls the counter back with it.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (string, error) {
	if tx == nil {
		return "", ErrAllocationFailed
	}

	var lastValue int64
	err := tx.WithContext(ctx).Raw(
		`INSERT INTO document_sequences (org_id, last_value)
		 VALUES (?, 1)
		 ON CONFLICT (org_id) DO UPDATE SET last_value = document_sequences.last_value + 1
		 RETURNING last_value`,
		orgID,
	).Scan(&lastValue).Error
	if err != nil {
		return "", err
	}
	if lastValue <= 0 {
		return "", ErrAllocationFailed
	}

	return fmt.Sprintf(documentNumberFormat, lastValue), nil
}

var Module = fx.Module("sequence",
	fx.Provide(New),
)
