package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Amount is a monetary value in the smallest indivisible unit of the
// settlement currency.
type Amount uint64

// Value encodes the amount as a decimal string. database/sql refuses uint64
// values with the high bit set.
func (a Amount) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(a), 10), nil
}

func (a *Amount) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: negative amount %d", ErrArithmeticOverflow, v)
		}
		*a = Amount(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrArithmeticOverflow, s)
	}
	*a = Amount(n)

	return nil
}

// Account identifies a host, traveler, operator or the platform itself.
type Account string
