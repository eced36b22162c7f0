package habit

import (
	"fmt"
	"slices"
	"time"

	"github.com/rankflow/rankflow/internal/domain"
)

// ComputeStreak derives streak counters from a habit's completion dates.
//
// A period is one due day, or one ISO week for weekly habits. Days the
// habit is not due on (weekends for a weekdays habit) neither extend nor
// break a run. The current run may end in the period before today's when
// today's is still open, so an unfinished day does not reset it.
func ComputeStreak(h domain.Habit, today time.Time) domain.Streak {
	day := dayOf(today)
	st := domain.Streak{CompletedToday: h.CompletedOn(domain.FormatDate(day))}

	done := make(map[string]bool)
	var dates []time.Time
	for _, s := range h.CompletedDates {
		d, err := domain.ParseDate(s)
		if err != nil {
			continue
		}
		done[key(h.Frequency, d)] = true
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return st
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	dates = slices.CompactFunc(dates, func(a, b time.Time) bool { return a.Equal(b) })
	st.Total = len(dates)
	st.LastDate = domain.FormatDate(dates[len(dates)-1])

	// Current run.
	cur := anchor(h.Frequency, day)
	if !done[key(h.Frequency, cur)] && open(h.Frequency, day) {
		cur = prev(h.Frequency, cur)
	}
	for done[key(h.Frequency, cur)] {
		st.Current++
		cur = prev(h.Frequency, cur)
	}

	// Longest run, scanning periods in ascending order.
	var last time.Time
	run := 0
	for _, d := range dates {
		if !counts(h.Frequency, d) {
			continue
		}
		p := anchor(h.Frequency, d)
		switch {
		case !last.IsZero() && p.Equal(last):
			continue // second completion in the same week
		case !last.IsZero() && prev(h.Frequency, p).Equal(last):
			run++
		default:
			run = 1
		}
		last = p
		st.Longest = max(st.Longest, run)
	}
	st.Longest = max(st.Longest, st.Current)
	return st
}

// dayOf truncates t to its calendar day, as UTC midnight.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// key identifies the period d belongs to.
func key(f domain.HabitFrequency, d time.Time) string {
	if f == domain.FrequencyWeekly {
		return isoWeek(d)
	}
	return domain.FormatDate(d)
}

// anchor returns the latest period start at or before d.
func anchor(f domain.HabitFrequency, d time.Time) time.Time {
	if f == domain.FrequencyWeekly {
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	}
	for !f.Due(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// prev returns the start of the period before p.
func prev(f domain.HabitFrequency, p time.Time) time.Time {
	if f == domain.FrequencyWeekly {
		return p.AddDate(0, 0, -7)
	}
	return anchor(f, p.AddDate(0, 0, -1))
}

// open reports whether the period containing today is still running.
func open(f domain.HabitFrequency, today time.Time) bool {
	return f == domain.FrequencyWeekly || f.Due(today)
}

// counts reports whether a completion on d belongs to a due period.
func counts(f domain.HabitFrequency, d time.Time) bool {
	return f == domain.FrequencyWeekly || f.Due(d)
}

// isoWeek returns "YYYY-Www" for the given time.
func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
