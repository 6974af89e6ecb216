package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStatementPolicy(t *testing.T) {
	policy := DefaultStatementPolicy()

	assert.Equal(t, 365, policy.Interest.DayCountBasis)
	require.Len(t, policy.Interest.Buckets, 4)
	assert.Equal(t, "days31to60", policy.Interest.Buckets[0].Bucket)
	assert.Equal(t, int64(1200), policy.Interest.Buckets[0].AnnualRateBps)
	assert.Equal(t, 45, policy.Interest.Buckets[0].AccrualDays)
	assert.Equal(t, "over120", policy.Interest.Buckets[3].Bucket)
	assert.Equal(t, int64(1800), policy.Interest.Buckets[3].AnnualRateBps)

	assert.Equal(t, 4, policy.Generation.Workers)
	assert.Equal(t, 900, policy.Generation.RecoveryAfterSecond)
}

func TestWithPolicyDefaults(t *testing.T) {
	filled := withPolicyDefaults(StatementPolicy{})
	assert.Equal(t, DefaultStatementPolicy(), filled)

	partial := withPolicyDefaults(StatementPolicy{
		Interest:   InterestPolicy{DayCountBasis: 360},
		Generation: GenerationPolicy{Workers: 1},
	})
	assert.Equal(t, 360, partial.Interest.DayCountBasis)
	assert.Equal(t, 1, partial.Generation.Workers)
	// Unset knobs fall back.
	assert.NotEmpty(t, partial.Interest.Buckets)
	assert.Equal(t, DefaultStatementPolicy().Generation.HeartbeatSeconds, partial.Generation.HeartbeatSeconds)
}

func TestValidateStatementPolicy(t *testing.T) {
	assert.NoError(t, validateStatementPolicy(DefaultStatementPolicy()))

	negativeRate := DefaultStatementPolicy()
	negativeRate.Interest.Buckets[0].AnnualRateBps = -1
	assert.Error(t, validateStatementPolicy(negativeRate))

	negativeDays := DefaultStatementPolicy()
	negativeDays.Interest.Buckets[1].AccrualDays = -10
	assert.Error(t, validateStatementPolicy(negativeDays))
}

func TestStaticPolicyHolder(t *testing.T) {
	holder := NewStaticPolicyHolder(StatementPolicy{
		Generation: GenerationPolicy{Workers: 2},
	})

	got := holder.Get()
	assert.Equal(t, 2, got.Generation.Workers)
	// Defaults were applied on the way in.
	assert.Equal(t, 365, got.Interest.DayCountBasis)
	assert.NotEmpty(t, got.Interest.Buckets)
}
