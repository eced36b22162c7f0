// Package dashboard computes summary statistics over tasks and habits.
package dashboard

import (
	"math"
	"time"

	"github.com/rankflow/rankflow/internal/domain"
)

// Average is the mean rank of one criterion.
type Average struct {
	Criterion domain.Criterion `json:"criterion"`
	Label     string           `json:"label"`
	Avg       float64          `json:"avg"`
}

// Stats is the dashboard payload.
type Stats struct {
	Date                 string    `json:"date"`
	Tasks                int       `json:"tasks"`
	Todo                 int       `json:"todo"`
	Done                 int       `json:"done"`
	CompletionPercent    int       `json:"completion_percent"`
	Overdue              int       `json:"overdue"`
	DueToday             int       `json:"due_today"`
	Averages             []Average `json:"averages"`
	Habits               int       `json:"habits"`
	HabitsDueToday       int       `json:"habits_due_today"`
	HabitsCompletedToday int       `json:"habits_completed_today"`
}

// Day lists what happens on one calendar date.
type Day struct {
	Date   string         `json:"date"`
	Tasks  []domain.Task  `json:"tasks"`
	Habits []domain.Habit `json:"habits"` // habits completed that day
}

// Compute builds Stats as of today. tasks need not be sorted.
func Compute(tasks []domain.Task, habits []domain.Habit, today time.Time) Stats {
	day := domain.FormatDate(today)
	st := Stats{Date: day, Tasks: len(tasks), Habits: len(habits)}

	sums := make(map[domain.Criterion]int, len(domain.Criteria))
	for _, t := range tasks {
		if t.IsDone() {
			st.Done++
		} else {
			st.Todo++
		}
		if t.Overdue(today) {
			st.Overdue++
		}
		if t.DueDate == day {
			st.DueToday++
		}
		for _, c := range domain.Criteria {
			sums[c] += t.Rank(c)
		}
	}
	if len(tasks) > 0 {
		st.CompletionPercent = int(math.Round(float64(st.Done) * 100 / float64(len(tasks))))
	}

	st.Averages = make([]Average, 0, len(domain.Criteria))
	for _, c := range domain.Criteria {
		a := Average{Criterion: c, Label: c.Label()}
		if len(tasks) > 0 {
			a.Avg = float64(sums[c]) / float64(len(tasks))
		}
		st.Averages = append(st.Averages, a)
	}

	for _, h := range habits {
		if h.Frequency.Due(today) {
			st.HabitsDueToday++
		}
		if h.CompletedOn(day) {
			st.HabitsCompletedToday++
		}
	}
	return st
}

// Calendar collects the tasks due on date and the habits completed on it.
// tasks should already be in display order.
func Calendar(date string, tasks []domain.Task, habits []domain.Habit) Day {
	d := Day{Date: date, Tasks: []domain.Task{}, Habits: []domain.Habit{}}
	for _, t := range tasks {
		if t.DueDate == date {
			d.Tasks = append(d.Tasks, t)
		}
	}
	for _, h := range habits {
		if h.CompletedOn(date) {
			d.Habits = append(d.Habits, h)
		}
	}
	return d
}
