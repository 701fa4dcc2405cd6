package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
)

// InvoicePeriod is a month-granularity billing-cycle tag. The period's due
// date always falls in Year/Month.
type InvoicePeriod struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// String formats the period as YYYY-MM.
func (p InvoicePeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// ParseInvoicePeriod parses the YYYY-MM form produced by String.
func ParseInvoicePeriod(s string) (InvoicePeriod, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return InvoicePeriod{}, fmt.Errorf("%w: invalid invoice period %q", apperrors.ErrValidation, s)
	}
	return InvoicePeriod{Year: t.Year(), Month: t.Month()}, nil
}

// AddMonths moves the period n months forward (or back for negative n).
func (p InvoicePeriod) AddMonths(n int) InvoicePeriod {
	t := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return InvoicePeriod{Year: t.Year(), Month: t.Month()}
}

// Before reports whether p is earlier than o.
func (p InvoicePeriod) Before(o InvoicePeriod) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// BillingCycle holds the closing and due dates of one invoice period.
type BillingCycle struct {
	Period  InvoicePeriod
	Closing time.Time
	Due     time.Time
}

func validateCycleDays(closingDay, dueDay int) error {
	if closingDay < 1 || closingDay > 31 || dueDay < 1 || dueDay > 31 {
		return fmt.Errorf("%w: closing day %d and due day %d must be within 1..31", apperrors.ErrValidation, closingDay, dueDay)
	}
	return nil
}

// dayInMonth builds a date, clamping day to the length of the month.
func dayInMonth(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CycleFor returns the closing and due dates of period.
// The closing date shares the due date's month when dueDay > closingDay,
// otherwise it falls in the month before.
func CycleFor(period InvoicePeriod, closingDay, dueDay int) (BillingCycle, error) {
	if err := validateCycleDays(closingDay, dueDay); err != nil {
		return BillingCycle{}, err
	}
	due := dayInMonth(period.Year, period.Month, dueDay)
	closingMonth := period
	if dueDay <= closingDay {
		closingMonth = period.AddMonths(-1)
	}
	return BillingCycle{
		Period:  period,
		Closing: dayInMonth(closingMonth.Year, closingMonth.Month, closingDay),
		Due:     due,
	}, nil
}

// InvoicePeriodFor maps a purchase date to the invoice period it is billed in.
// A purchase on or before a closing date belongs to the period due right after
// that closing; a purchase after it rolls into the following period.
func InvoicePeriodFor(date time.Time, closingDay, dueDay int) (InvoicePeriod, error) {
	if err := validateCycleDays(closingDay, dueDay); err != nil {
		return InvoicePeriod{}, err
	}
	date = DateOnly(date)
	// The period whose closing date lands in the purchase month.
	candidate := InvoicePeriod{Year: date.Year(), Month: date.Month()}
	if dueDay <= closingDay {
		candidate = candidate.AddMonths(1)
	}
	cycle, err := CycleFor(candidate, closingDay, dueDay)
	if err != nil {
		return InvoicePeriod{}, err
	}
	if date.After(cycle.Closing) {
		return candidate.AddMonths(1), nil
	}
	return candidate, nil
}
