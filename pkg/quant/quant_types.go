package quant

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceMicros represents price multiplied by 1,000,000 (10^6).
// E.g., 453.71 USD = 453,710,000 PriceMicros.
type PriceMicros int64

// QtySats represents quantity multiplied by 100,000,000 (10^8).
// E.g., 0.011 BTC = 1,100,000 QtySats.
type QtySats int64

const (
	PriceDecimals = 6
	QtyDecimals   = 8

	PriceScale = 1000000
	QtyScale   = 100000000
)

// ErrOutOfRange is returned when a scaled value does not fit in int64.
var ErrOutOfRange = errors.New("quant: value out of int64 range")

// ErrPrecision is returned by the Exact conversions when rounding would
// drop digits.
var ErrPrecision = errors.New("quant: too many decimal places")

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// ToPriceMicros scales an exact decimal to PriceMicros.
// Digits beyond 10^-6 are rounded half away from zero.
func ToPriceMicros(d decimal.Decimal) (PriceMicros, error) {
	v, err := scale(d, PriceDecimals)
	return PriceMicros(v), err
}

// ToQtySats scales an exact decimal to QtySats.
func ToQtySats(d decimal.Decimal) (QtySats, error) {
	v, err := scale(d, QtyDecimals)
	return QtySats(v), err
}

// MustQtySats is ToQtySats for values known to be in range (tests, constants).
func MustQtySats(d decimal.Decimal) QtySats {
	q, err := ToQtySats(d)
	if err != nil {
		panic(err)
	}
	return q
}

// ExactPriceMicros is ToPriceMicros that refuses to round.
func ExactPriceMicros(d decimal.Decimal) (PriceMicros, error) {
	p, err := ToPriceMicros(d)
	if err == nil && !p.Decimal().Equal(d) {
		return 0, fmt.Errorf("%w: %s has more than %d places", ErrPrecision, d.String(), PriceDecimals)
	}
	return p, err
}

// ExactQtySats is ToQtySats that refuses to round.
func ExactQtySats(d decimal.Decimal) (QtySats, error) {
	q, err := ToQtySats(d)
	if err == nil && !q.Decimal().Equal(d) {
		return 0, fmt.Errorf("%w: %s has more than %d places", ErrPrecision, d.String(), QtyDecimals)
	}
	return q, err
}

func scale(d decimal.Decimal, places int32) (int64, error) {
	scaled := d.Shift(places).Round(0)
	if scaled.GreaterThan(maxInt64) || scaled.LessThan(minInt64) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return scaled.IntPart(), nil
}

// Decimal converts back to an exact decimal.
func (p PriceMicros) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -PriceDecimals)
}

// Decimal converts back to an exact decimal.
func (q QtySats) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -QtyDecimals)
}

func (p PriceMicros) String() string {
	return p.Decimal().StringFixed(PriceDecimals)
}

func (q QtySats) String() string {
	return q.Decimal().StringFixed(QtyDecimals)
}
