package stake_test

import (
	"math"
	"testing"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/stake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 0.1 ETH expressed in wei.
const pricePerSeat domain.Amount = 100_000_000_000_000_000

func TestRequiredHostStake(t *testing.T) {
	calc := stake.NewCalculator(stake.DefaultPercentage)

	tests := []struct {
		name     string
		price    domain.Amount
		seats    uint32
		expected domain.Amount
	}{
		{"four seats at 0.1", pricePerSeat, 4, 80_000_000_000_000_000},
		{"truncates toward zero", 7, 3, 4},
		{"free run", 0, 10, 0},
		{"below one unit", 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.RequiredHostStake(tt.price, tt.seats)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBookingCost(t *testing.T) {
	calc := stake.NewCalculator(stake.DefaultPercentage)

	cost, err := calc.BookingCost(pricePerSeat, 2)
	require.NoError(t, err)

	assert.Equal(t, domain.Amount(200_000_000_000_000_000), cost.Payment)
	assert.Equal(t, domain.Amount(40_000_000_000_000_000), cost.Stake)
	assert.Equal(t, domain.Amount(240_000_000_000_000_000), cost.Total)
	assert.Equal(t, cost.Payment+cost.Stake, cost.Total)
}

func TestBookingCost_Overflow(t *testing.T) {
	calc := stake.NewCalculator(stake.DefaultPercentage)

	_, err := calc.BookingCost(math.MaxUint64/2, 3)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)

	_, err = calc.RequiredHostStake(math.MaxUint64, 2)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)
}

func TestPercent_LargeIntermediateProduct(t *testing.T) {
	// amount * 20 exceeds 64 bits but the result does not.
	got, err := stake.Percent(math.MaxUint64, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(math.MaxUint64/5), got)

	_, err = stake.Percent(math.MaxUint64, 101)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)
}

func TestSum(t *testing.T) {
	total, err := stake.Sum(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(6), total)

	_, err = stake.Sum(math.MaxUint64, 1)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)
}
