package dto

import (
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// minorExp is the exponent of the minor currency unit (cents).
const minorExp = -2

// FormatMinor renders minor units as a fixed two-decimal major amount, e.g. -15000 -> "-150.00".
func FormatMinor(v int64) string {
	return decimal.New(v, minorExp).StringFixed(2)
}
