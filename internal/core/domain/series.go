package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
)

// SeriesMode distinguishes fixed-length installment plans from open-ended recurring templates.
type SeriesMode string

const (
	SeriesInstallment SeriesMode = "INSTALLMENT"
	SeriesRecurring   SeriesMode = "RECURRING"
)

// Frequency is the spacing between consecutive series members.
type Frequency string

const (
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Series is a root entry together with its materialized members, ordered by date.
// For installments the root is also Members[0]; a recurring header is never a member.
type Series struct {
	Mode      SeriesMode `json:"mode"`
	Frequency Frequency  `json:"frequency"`
	Root      Entry      `json:"root"`
	Members   []Entry    `json:"members"`
}

// Advance returns the n-th date after start at the given frequency.
// Monthly and yearly steps keep start's day of month, clamped to the target month's length,
// so Jan 31 advances to Feb 28 (or 29) and then Mar 31.
func (f Frequency) Advance(start time.Time, n int) time.Time {
	start = DateOnly(start)
	switch f {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case FrequencyYearly:
		return addMonthsClamped(start, 12*n)
	default:
		return addMonthsClamped(start, n)
	}
}

func addMonthsClamped(start time.Time, months int) time.Time {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	return dayInMonth(first.Year(), first.Month(), start.Day())
}

// SplitAmount divides total into count magnitudes. The remainder goes to the first member
// so the parts always add up to total.
func SplitAmount(total int64, count int) ([]int64, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: series needs at least one member", apperrors.ErrValidation)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total amount must be positive", apperrors.ErrValidation)
	}
	share := total / int64(count)
	if share == 0 {
		return nil, fmt.Errorf("%w: total amount %d cannot be split into %d members", apperrors.ErrValidation, total, count)
	}
	parts := make([]int64, count)
	for i := range parts {
		parts[i] = share
	}
	parts[0] += total - share*int64(count)
	return parts, nil
}
