package config

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

const (
	dayLabelLayout = "Monday, January 2, 2006"

	// maxFestivalDays bounds the schedule so an open-ended rule cannot run away
	maxFestivalDays = 31
)

// FestivalDays expands festival.schedule from festival.startDate into the list of event days,
// applying the shift options of the first matching day override
func (c *Config) FestivalDays() ([]model.FestivalDay, error) {
	start, err := time.ParseInLocation("2006-01-02", c.Festival.StartDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid festival start date: %w", err)
	}
	end := start.AddDate(0, 0, maxFestivalDays)

	rule, err := rrule.StrToRRule(c.Festival.Schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse festival schedule: %w", err)
	}
	rule.DTStart(start)
	dates := rule.Between(start, end, true)

	overrides := make([]*rrule.RRule, 0, len(c.Festival.DayOverrides))
	for i, override := range c.Festival.DayOverrides {
		r, err := rrule.StrToRRule(override.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for day override %d: %w", i, err)
		}
		// Overrides are evaluated over the same window as the schedule
		r.DTStart(start)
		overrides = append(overrides, r)
	}

	days := make([]model.FestivalDay, 0, len(dates))
	for _, date := range dates {
		shifts := c.Festival.Shifts
		for i, r := range overrides {
			if occursOn(r, date, start, end) {
				shifts = c.Festival.DayOverrides[i].Shifts
				break
			}
		}

		days = append(days, model.FestivalDay{
			Date:   date,
			Label:  date.Format(dayLabelLayout),
			Shifts: append([]string(nil), shifts...),
		})
	}

	return days, nil
}

// occursOn checks whether the rule has an occurrence on the calendar day of date
func occursOn(rule *rrule.RRule, date, windowStart, windowEnd time.Time) bool {
	for _, occurrence := range rule.Between(windowStart, windowEnd, true) {
		if occurrence.Format("2006-01-02") == date.Format("2006-01-02") {
			return true
		}
	}
	return false
}

// AvailabilityColumns names the registration availability columns: one per
// festival day in the shift variant, nil (a single summary column) for stations
func (c *Config) AvailabilityColumns() ([]string, error) {
	if c.Festival.Variant != VariantShifts {
		return nil, nil
	}
	days, err := c.FestivalDays()
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Label
	}
	return labels, nil
}
