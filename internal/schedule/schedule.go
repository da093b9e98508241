// Package schedule computes delivery slots for meal subscriptions.
package schedule

import (
	"errors"
	"time"
)

var (
	ErrNoWeekdays   = errors.New("subscription plan needs at least one weekday")
	ErrInvalidTime  = errors.New("subscription plan delivery time out of range")
	ErrInvalidRange = errors.New("subscription plan ends before it starts")
)

// Plan is a weekly meal subscription: one delivery at Hour:Minute on each of
// Weekdays, from Start until Until (inclusive, optional). Times are
// interpreted in Start's location.
type Plan struct {
	Weekdays []time.Weekday `bson:"weekdays" json:"weekdays"`
	Hour     int            `bson:"hour" json:"hour"`
	Minute   int            `bson:"minute" json:"minute"`
	Start    time.Time      `bson:"start" json:"start"`
	Until    *time.Time     `bson:"until,omitempty" json:"until,omitempty"`
}

func (p *Plan) Validate() error {
	if len(p.Weekdays) == 0 {
		return ErrNoWeekdays
	}
	for _, d := range p.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return ErrNoWeekdays
		}
	}
	if p.Hour < 0 || p.Hour > 23 || p.Minute < 0 || p.Minute > 59 {
		return ErrInvalidTime
	}
	if p.Until != nil && p.Until.Before(p.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Next returns up to n delivery slots strictly after from (and not before Start).
func (p *Plan) Next(from time.Time, n int) []time.Time {
	if n <= 0 || p.Validate() != nil {
		return nil
	}
	days := map[time.Weekday]bool{}
	for _, d := range p.Weekdays {
		days[d] = true
	}
	loc := p.Start.Location()
	cursor := from.In(loc)
	if cursor.Before(p.Start) {
		cursor = p.Start.Add(-time.Nanosecond)
	}
	day := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, loc)

	out := make([]time.Time, 0, n)
	// a week always contains every requested weekday, so n weeks plus one is enough
	for i := 0; i < 7*(n+1) && len(out) < n; i++ {
		d := day.AddDate(0, 0, i)
		if !days[d.Weekday()] {
			continue
		}
		slot := time.Date(d.Year(), d.Month(), d.Day(), p.Hour, p.Minute, 0, 0, loc)
		if !slot.After(cursor) {
			continue
		}
		if p.Until != nil && slot.After(*p.Until) {
			break
		}
		out = append(out, slot)
	}
	return out
}
