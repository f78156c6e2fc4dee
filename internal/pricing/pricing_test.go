package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightpass/ticket-reservation/internal/model"
)

func testTiers(earlyQuota, t1Quota, t2Quota int) [3]model.Tier {
	return [3]model.Tier{
		{Label: model.TierEarlyBird, BoyPriceCents: 1000, GirlPriceCents: 800, Quota: earlyQuota},
		{Label: model.TierOne, BoyPriceCents: 1500, GirlPriceCents: 1200, Quota: t1Quota},
		{Label: model.TierTwo, BoyPriceCents: 2000, GirlPriceCents: 1600, Quota: t2Quota},
	}
}

func TestComputeSpansTiers(t *testing.T) {
	// Early Bird quota 2 (boy 10.00, girl 8.00), Tier-1 quota 10
	// (boy 15.00, girl 12.00).  Request 1 boy + 3 girls: Early Bird
	// supplies the boy and one girl (18.00), Tier-1 the two girls
	// that overflow (24.00), for 42.00 total.
	q, err := Compute(testTiers(2, 10, 0), 1, 3)
	require.NoError(t, err)
	require.Len(t, q.Lines, 2)

	assert.Equal(t, model.TierEarlyBird, q.Lines[0].Tier)
	assert.Equal(t, 1, q.Lines[0].Boys)
	assert.Equal(t, 1, q.Lines[0].Girls)
	assert.Equal(t, int64(1800), q.Lines[0].SubtotalCents)

	assert.Equal(t, model.TierOne, q.Lines[1].Tier)
	assert.Equal(t, 0, q.Lines[1].Boys)
	assert.Equal(t, 2, q.Lines[1].Girls)
	assert.Equal(t, int64(2400), q.Lines[1].SubtotalCents)

	assert.Equal(t, int64(4200), q.TotalCents)
}

func TestComputeTotalEqualsSumOfSubtotals(t *testing.T) {
	tiers := testTiers(3, 5, 7)
	for boys := 0; boys <= 8; boys++ {
		for girls := 0; girls <= 8; girls++ {
			if boys+girls == 0 {
				continue
			}
			q, err := Compute(tiers, boys, girls)
			require.NoError(t, err, "boys=%d girls=%d", boys, girls)

			var sum int64
			allocBoys, allocGirls := 0, 0
			for _, l := range q.Lines {
				sum += l.SubtotalCents
				allocBoys += l.Boys
				allocGirls += l.Girls
				assert.Positive(t, l.Seats(), "tier contributed an empty line")
			}
			assert.Equal(t, q.TotalCents, sum)
			assert.Equal(t, boys, allocBoys)
			assert.Equal(t, girls, allocGirls)
		}
	}
}

func TestComputeSkipsExhaustedTier(t *testing.T) {
	tiers := testTiers(2, 10, 0)
	tiers[0].Sold = 2 // early bird gone
	q, err := Compute(tiers, 1, 1)
	require.NoError(t, err)
	require.Len(t, q.Lines, 1)
	assert.Equal(t, model.TierOne, q.Lines[0].Tier)
	assert.Equal(t, int64(2700), q.TotalCents)
}

func TestComputeCountsReservedAsConsumed(t *testing.T) {
	tiers := testTiers(2, 0, 0)
	tiers[0].Reserved = 1
	_, err := Compute(tiers, 2, 0)
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	q, err := Compute(tiers, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), q.TotalCents)
}

func TestComputeInsufficientInventory(t *testing.T) {
	_, err := Compute(testTiers(1, 1, 1), 2, 2)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
}

func TestComputeRejectsEmptyOrNegativeDemand(t *testing.T) {
	_, err := Compute(testTiers(5, 5, 5), 0, 0)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	_, err = Compute(testTiers(5, 5, 5), -1, 2)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
}

func TestComputeDeterministic(t *testing.T) {
	tiers := testTiers(2, 4, 4)
	a, err := Compute(tiers, 3, 3)
	require.NoError(t, err)
	b, err := Compute(tiers, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
