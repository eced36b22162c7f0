package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rankflow/rankflow/internal/domain"
)

var today = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) // Monday

func fixture() ([]domain.Task, []domain.Habit) {
	tasks := []domain.Task{
		{ID: "a", Title: "a", PriorityRank: 1, DifficultyRank: 3, UrgencyRank: 2, Status: domain.StatusTodo, DueDate: "2026-10-18"},
		{ID: "b", Title: "b", PriorityRank: 2, DifficultyRank: 1, UrgencyRank: 1, Status: domain.StatusDone, DueDate: "2026-10-17"},
		{ID: "c", Title: "c", PriorityRank: 3, DifficultyRank: 2, UrgencyRank: 3, Status: domain.StatusTodo, DueDate: "2026-10-19"},
	}
	habits := []domain.Habit{
		{ID: "h1", Title: "read", Frequency: domain.FrequencyDaily, CompletedDates: []string{"2026-10-19"}},
		{ID: "h2", Title: "hike", Frequency: domain.FrequencyWeekend, CompletedDates: []string{"2026-10-18"}},
	}
	return tasks, habits
}

func TestCompute(t *testing.T) {
	tasks, habits := fixture()
	st := Compute(tasks, habits, today)

	assert.Equal(t, "2026-10-19", st.Date)
	assert.Equal(t, 3, st.Tasks)
	assert.Equal(t, 2, st.Todo)
	assert.Equal(t, 1, st.Done)
	assert.Equal(t, 33, st.CompletionPercent)
	assert.Equal(t, 1, st.Overdue, "done tasks are never overdue")
	assert.Equal(t, 1, st.DueToday)
	assert.Equal(t, 2, st.Habits)
	assert.Equal(t, 1, st.HabitsDueToday)
	assert.Equal(t, 1, st.HabitsCompletedToday)

	// Dense ranks over 3 tasks always average 2.
	if assert.Len(t, st.Averages, 3) {
		for _, a := range st.Averages {
			assert.InDelta(t, 2.0, a.Avg, 1e-9, a.Label)
		}
		assert.Equal(t, "priority", st.Averages[0].Label)
	}
}

func TestCompute_Empty(t *testing.T) {
	st := Compute(nil, nil, today)
	assert.Zero(t, st.CompletionPercent)
	assert.Len(t, st.Averages, 3)
	for _, a := range st.Averages {
		assert.Zero(t, a.Avg)
	}
}

func TestCalendar(t *testing.T) {
	tasks, habits := fixture()

	d := Calendar("2026-10-18", tasks, habits)
	assert.Equal(t, []string{"a"}, ids(d.Tasks))
	if assert.Len(t, d.Habits, 1) {
		assert.Equal(t, "h2", d.Habits[0].ID)
	}

	empty := Calendar("2027-01-01", tasks, habits)
	assert.NotNil(t, empty.Tasks)
	assert.Empty(t, empty.Tasks)
	assert.Empty(t, empty.Habits)
}

func ids(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
