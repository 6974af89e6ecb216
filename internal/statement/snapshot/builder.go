package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/finledger/backoffice/internal/config"
	ledgerdomain "github.com/finledger/backoffice/internal/ledger/domain"
	"github.com/finledger/backoffice/internal/statement/aging"
	"github.com/finledger/backoffice/internal/statement/domain"
	"github.com/finledger/backoffice/internal/statement/interest"
	"gorm.io/gorm"
)

// ErrInconsistentSnapshot means the bucket totals diverged from the line item
// totals. It should be impossible; when it fires the snapshot is discarded
// rather than persisted half-wrong.
var ErrInconsistentSnapshot = errors.New("inconsistent_snapshot")

// Builder assembles the frozen financial content of one statement: the open
// ledger items, their aging classification and the accrued interest. It
// reads, never writes.
type Builder struct {
	ledger     ledgerdomain.Repository
	calculator *interest.Calculator
	policy     *config.StatementPolicyHolder
}

func NewBuilder(ledger ledgerdomain.Repository, calculator *interest.Calculator, policy *config.StatementPolicyHolder) *Builder {
	return &Builder{
		ledger:     ledger,
		calculator: calculator,
		policy:     policy,
	}
}

// Build computes the snapshot for one customer and period as of asOf. An
// empty ledger yields a valid zero snapshot.
func (b *Builder) Build(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, period ledgerdomain.Period, asOf time.Time) (domain.Snapshot, error) {
	records, err := b.ledger.ListForStatement(ctx, db, orgID, customerID, period, asOf)
	if err != nil {
		return domain.Snapshot{}, err
	}

	buckets := aging.Bucket(records, asOf)

	items := make([]domain.LineItem, 0, len(records))
	var itemTotal int64
	for _, record := range records {
		if record.Paid(asOf) {
			continue
		}
		items = append(items, domain.LineItem{
			LedgerRecordID: record.ID,
			Reference:      record.Reference,
			Amount:         record.Amount,
			DueDate:        record.DueDate,
			AgeDays:        aging.AgeDays(record.DueDate, asOf),
			Position:       len(items),
		})
		itemTotal += record.Amount
	}

	if buckets.Total() != itemTotal {
		return domain.Snapshot{}, ErrInconsistentSnapshot
	}

	totalInterest := b.calculator.Accrue(buckets, b.policy.Get().Interest)

	return domain.Snapshot{
		Buckets:        buckets,
		TotalInterest:  totalInterest,
		TotalAmountDue: buckets.Total() + totalInterest,
		LineItems:      items,
	}, nil
}
