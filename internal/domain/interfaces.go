package domain

import "context"

// ─── Storage Ports ──────────────────────────────────────────────────────────
// These interfaces define the boundary between the services and durable
// storage. Every adapter (sqlite, file, memory, mongo) implements Store.
// Save always replaces the whole collection; storage order carries no
// meaning and callers must not rely on it.

// TaskStore persists the full task collection, including all rank fields.
type TaskStore interface {
	LoadTasks(ctx context.Context) ([]Task, error)
	SaveTasks(ctx context.Context, tasks []Task) error
}

// HabitStore persists the full habit collection.
type HabitStore interface {
	LoadHabits(ctx context.Context) ([]Habit, error)
	SaveHabits(ctx context.Context, habits []Habit) error
}

// NoteStore persists the full note collection.
type NoteStore interface {
	LoadNotes(ctx context.Context) ([]Note, error)
	SaveNotes(ctx context.Context, notes []Note) error
}

// Store is the single storage port selected by configuration.
type Store interface {
	TaskStore
	HabitStore
	NoteStore

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases connections, file handles and watchers.
	Close() error
}
