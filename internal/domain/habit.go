// Habit and note types.
//
// Habits track recurring completions per calendar day; notes are free text.

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ─── Habit Types ────────────────────────────────────────────────────────────

// HabitFrequency says which days a habit is expected on.
type HabitFrequency string

const (
	FrequencyDaily    HabitFrequency = "daily"
	FrequencyWeekly   HabitFrequency = "weekly"
	FrequencyWeekdays HabitFrequency = "weekdays"
	FrequencyWeekend  HabitFrequency = "weekend"
)

// ParseFrequency validates a frequency value. Empty means daily.
func ParseFrequency(s string) (HabitFrequency, error) {
	f := HabitFrequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FrequencyDaily, nil
	case FrequencyDaily, FrequencyWeekly, FrequencyWeekdays, FrequencyWeekend:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// Due reports whether the habit is expected on day d.
// Weekly habits are due every day of the week; one completion covers it.
func (f HabitFrequency) Due(d time.Time) bool {
	wd := d.Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday
	switch f {
	case FrequencyWeekdays:
		return !weekend
	case FrequencyWeekend:
		return weekend
	}
	return true
}

// Habit is a recurring activity.
type Habit struct {
	ID             string         `json:"id" yaml:"id" toml:"id" validate:"required,max=128"`
	Title          string         `json:"title" yaml:"title" toml:"title" validate:"required,max=500"`
	Frequency      HabitFrequency `json:"frequency" yaml:"frequency" toml:"frequency" validate:"required,oneof=daily weekly weekdays weekend"`
	CompletedDates []string       `json:"completedDates" yaml:"completedDates" toml:"completedDates" validate:"dive,datetime=2006-01-02"`
	CreatedAt      int64          `json:"createdAt" yaml:"createdAt" toml:"createdAt" validate:"gte=0"`
}

// NewHabit builds a habit with a fresh UUID.
func NewHabit(title string, freq HabitFrequency, now time.Time) Habit {
	return Habit{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(title),
		Frequency:      freq,
		CompletedDates: []string{},
		CreatedAt:      now.UnixMilli(),
	}
}

// CompletedOn reports whether day is in CompletedDates.
func (h Habit) CompletedOn(day string) bool {
	for _, d := range h.CompletedDates {
		if d == day {
			return true
		}
	}
	return false
}

// Streak summarizes consecutive completions of a habit.
type Streak struct {
	Current        int    `json:"current"`
	Longest        int    `json:"longest"`
	Total          int    `json:"total"`
	CompletedToday bool   `json:"completed_today"`
	LastDate       string `json:"last_date,omitempty"`
}

// ─── Note Types ─────────────────────────────────────────────────────────────

// Note is a free-text jotting.
type Note struct {
	ID        string `json:"id" yaml:"id" toml:"id" validate:"required,max=128"`
	Content   string `json:"content" yaml:"content" toml:"content" validate:"required,max=100000"`
	CreatedAt int64  `json:"createdAt" yaml:"createdAt" toml:"createdAt" validate:"gte=0"`
}

// NewNote builds a note with a fresh UUID.
func NewNote(content string, now time.Time) Note {
	return Note{
		ID:        uuid.NewString(),
		Content:   strings.TrimSpace(content),
		CreatedAt: now.UnixMilli(),
	}
}
