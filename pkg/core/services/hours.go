package services

import (
	"sort"
	"time"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

// VolunteerHours totals one volunteer's completed In/Out pairs
type VolunteerHours struct {
	Name      string
	Worked    time.Duration
	Shifts    int  // completed In/Out pairs
	OpenShift bool // last punch was an In with no Out yet
	Unmatched int  // Out punches with no preceding In, or rows with an unreadable timestamp
}

// SummarizeHours pairs each In with the next Out by the same name, in timestamp order.
// A second In before an Out restarts the shift. Results are sorted by name.
func SummarizeHours(punches []db.Punch) []VolunteerHours {
	type stamped struct {
		direction model.Direction
		at        time.Time
	}

	byName := make(map[string][]stamped)
	unreadable := make(map[string]int)
	for _, p := range punches {
		direction, ok := model.ParseDirection(p.Direction)
		at, err := time.ParseInLocation(model.TimestampLayout, p.Timestamp, time.Local)
		if !ok || err != nil {
			unreadable[p.Name]++
			continue
		}
		byName[p.Name] = append(byName[p.Name], stamped{direction: direction, at: at})
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	for name := range unreadable {
		if _, ok := byName[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	summaries := make([]VolunteerHours, 0, len(names))
	for _, name := range names {
		events := byName[name]
		sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

		summary := VolunteerHours{Name: name, Unmatched: unreadable[name]}
		var start *time.Time
		for _, e := range events {
			switch e.direction {
			case model.DirectionIn:
				at := e.at
				start = &at
			case model.DirectionOut:
				if start == nil {
					summary.Unmatched++
					continue
				}
				summary.Worked += e.at.Sub(*start)
				summary.Shifts++
				start = nil
			}
		}
		summary.OpenShift = start != nil
		summaries = append(summaries, summary)
	}

	return summaries
}
