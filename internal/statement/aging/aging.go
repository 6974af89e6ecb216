package aging

import (
	"time"

	ledgerdomain "github.com/finledger/backoffice/internal/ledger/domain"
	"github.com/finledger/backoffice/internal/statement/domain"
)

// AgeDays returns whole days elapsed between dueDate and asOf, negative when
// the due date is still in the future. Partial days truncate toward zero.
func AgeDays(dueDate, asOf time.Time) int {
	return int(asOf.Sub(dueDate).Hours() / 24)
}

// Bucket classifies unpaid ledger records into aging buckets as of asOf.
// Records settled on or before asOf carry no balance and are skipped.
func Bucket(records []ledgerdomain.LedgerRecord, asOf time.Time) domain.AgingBuckets {
	var buckets domain.AgingBuckets
	for _, record := range records {
		if record.Paid(asOf) {
			continue
		}
		add(&buckets, AgeDays(record.DueDate, asOf), record.Amount)
	}
	return buckets
}

func add(buckets *domain.AgingBuckets, ageDays int, amount int64) {
	switch {
	case ageDays <= 30:
		buckets.Current += amount
	case ageDays <= 60:
		buckets.Days31To60 += amount
	case ageDays <= 90:
		buckets.Days61To90 += amount
	case ageDays <= 120:
		buckets.Days91To120 += amount
	default:
		buckets.Over120 += amount
	}
}
