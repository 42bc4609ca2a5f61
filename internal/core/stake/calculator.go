// Package stake derives host stakes and booking totals. All arithmetic is
// integer arithmetic with truncating division; overflow is reported, never
// wrapped.
package stake

import (
	"fmt"
	"math/bits"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

const DefaultPercentage = 20

type Cost struct {
	Payment domain.Amount `json:"payment"`
	Stake   domain.Amount `json:"stake"`
	Total   domain.Amount `json:"total"`
}

type Calculator struct {
	Percentage uint64
}

func NewCalculator(percentage uint64) Calculator {
	return Calculator{Percentage: percentage}
}

// RequiredHostStake is floor(price * maxSeats * pct / 100).
func (c Calculator) RequiredHostStake(price domain.Amount, maxSeats uint32) (domain.Amount, error) {
	total, err := mul(price, uint64(maxSeats))
	if err != nil {
		return 0, err
	}

	return Percent(total, c.Percentage)
}

func (c Calculator) BookingCost(price domain.Amount, seatCount uint32) (Cost, error) {
	payment, err := mul(price, uint64(seatCount))
	if err != nil {
		return Cost{}, err
	}

	stake, err := Percent(payment, c.Percentage)
	if err != nil {
		return Cost{}, err
	}

	total, err := Add(payment, stake)
	if err != nil {
		return Cost{}, err
	}

	return Cost{Payment: payment, Stake: stake, Total: total}, nil
}

// Percent is floor(amount * pct / 100) computed over 128 bits so the
// intermediate product cannot wrap.
func Percent(amount domain.Amount, pct uint64) (domain.Amount, error) {
	hi, lo := bits.Mul64(uint64(amount), pct)
	if hi >= 100 {
		return 0, fmt.Errorf("%w: %d * %d%%", domain.ErrArithmeticOverflow, amount, pct)
	}

	quo, _ := bits.Div64(hi, lo, 100)

	return domain.Amount(quo), nil
}

func Add(a, b domain.Amount) (domain.Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", domain.ErrArithmeticOverflow, a, b)
	}

	return domain.Amount(sum), nil
}

// Sum adds amounts, failing on the first overflow.
func Sum(amounts ...domain.Amount) (domain.Amount, error) {
	var total domain.Amount
	for _, a := range amounts {
		var err error
		if total, err = Add(total, a); err != nil {
			return 0, err
		}
	}

	return total, nil
}

func mul(a domain.Amount, n uint64) (domain.Amount, error) {
	hi, lo := bits.Mul64(uint64(a), n)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", domain.ErrArithmeticOverflow, a, n)
	}

	return domain.Amount(lo), nil
}
