package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.
// Callers wrap them with context and match with errors.Is.

var (
	// Ranking errors
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidRank       = errors.New("rank out of range")
	ErrInvalidCriterion  = errors.New("unknown ranking criterion")
	ErrInvalidDirection  = errors.New("unknown move direction")
	ErrDuplicateTask     = errors.New("task id already exists")
	ErrInvalidTask       = errors.New("invalid task")
	ErrRankNotDense      = errors.New("ranks do not form a dense permutation")
	ErrInvalidTaskStatus = errors.New("unknown task status")

	// Habit errors
	ErrHabitNotFound    = errors.New("habit not found")
	ErrInvalidHabit     = errors.New("invalid habit")
	ErrInvalidFrequency = errors.New("unknown habit frequency")

	// Note errors
	ErrNoteNotFound = errors.New("note not found")
	ErrInvalidNote  = errors.New("invalid note")

	// Date errors
	ErrInvalidDate = errors.New("invalid date, want YYYY-MM-DD")
)
