package interest

import (
	"github.com/finledger/backoffice/internal/config"
	"github.com/finledger/backoffice/internal/statement/domain"
	"github.com/shopspring/decimal"
)

// Policy bucket names, matching the statement policy file.
const (
	BucketDays31To60  = "days31to60"
	BucketDays61To90  = "days61to90"
	BucketDays91To120 = "days91to120"
	BucketOver120     = "over120"
)

// Calculator accrues simple interest on overdue aging buckets. The current
// bucket never accrues. All arithmetic is decimal so repeated runs over the
// same inputs produce the same minor-unit result.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Accrue returns the total interest in minor units for the given buckets
// under the given policy, rounded half-up per bucket.
func (c *Calculator) Accrue(buckets domain.AgingBuckets, policy config.InterestPolicy) int64 {
	basis := policy.DayCountBasis
	if basis <= 0 {
		basis = 365
	}

	total := decimal.Zero
	for _, rate := range policy.Buckets {
		amount := bucketAmount(buckets, rate.Bucket)
		if amount == 0 || rate.AnnualRateBps <= 0 || rate.AccrualDays <= 0 {
			continue
		}

		// amount * bps/10000 * days/basis
		accrued := decimal.NewFromInt(amount).
			Mul(decimal.NewFromInt(rate.AnnualRateBps)).
			Div(decimal.NewFromInt(10000)).
			Mul(decimal.NewFromInt(int64(rate.AccrualDays))).
			Div(decimal.NewFromInt(int64(basis)))
		total = total.Add(accrued.Round(0))
	}

	return total.IntPart()
}

func bucketAmount(buckets domain.AgingBuckets, name string) int64 {
	switch name {
	case BucketDays31To60:
		return buckets.Days31To60
	case BucketDays61To90:
		return buckets.Days61To90
	case BucketDays91To120:
		return buckets.Days91To120
	case BucketOver120:
		return buckets.Over120
	default:
		return 0
	}
}
