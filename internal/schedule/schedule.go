// Package schedule computes recurring-transaction occurrence dates.
//
// Each interval type has its own stepper that encapsulates the calendar
// arithmetic for one period. NextOccurrence is pure: no I/O, no hidden
// state, identical inputs always produce the identical date.
package schedule

import (
	"fmt"

	"welth/internal/core"
)

// Stepper is the strategy interface for advancing an anchor date by one
// recurrence period.
type Stepper interface {
	// Step returns the occurrence that follows anchor.
	Step(anchor core.Date) core.Date
}

// DailyStepper advances by one day.
type DailyStepper struct{}

func (DailyStepper) Step(anchor core.Date) core.Date {
	return core.Date{Time: anchor.AddDate(0, 0, 1)}
}

// WeeklyStepper advances by seven days.
type WeeklyStepper struct{}

func (WeeklyStepper) Step(anchor core.Date) core.Date {
	return core.Date{Time: anchor.AddDate(0, 0, 7)}
}

// MonthlyStepper advances by one calendar month. Month-length overflow
// normalizes per time.AddDate (Jan 31 + 1 month = Mar 2/3).
type MonthlyStepper struct{}

func (MonthlyStepper) Step(anchor core.Date) core.Date {
	return core.Date{Time: anchor.AddDate(0, 1, 0)}
}

// YearlyStepper advances by one calendar year. Feb 29 anchors normalize to
// Mar 1 on non-leap years, per time.AddDate.
type YearlyStepper struct{}

func (YearlyStepper) Step(anchor core.Date) core.Date {
	return core.Date{Time: anchor.AddDate(1, 0, 0)}
}

// steppers maps intervals to their calendar steppers.
var steppers = map[core.RecurringInterval]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// NextOccurrence returns the occurrence following anchor for the given
// interval. Unknown intervals fail closed with core.ErrInvalidInput rather
// than echoing the anchor back.
func NextOccurrence(anchor core.Date, interval core.RecurringInterval) (core.Date, error) {
	s, ok := steppers[interval]
	if !ok {
		return core.Date{}, fmt.Errorf("%w: unknown recurring interval %q", core.ErrInvalidInput, string(interval))
	}
	return s.Step(anchor), nil
}
