package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rankflow/rankflow/internal/domain"
)

var _ domain.Store = (*DB)(nil)

// ─── Task Repository ────────────────────────────────────────────────────────

// LoadTasks returns every stored task. Row order carries no meaning.
func (d *DB) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, title, description, priority_rank, difficulty_rank, urgency_rank, status, created_at, due_date
		 FROM tasks`,
	)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SaveTasks replaces the stored task collection.
func (d *DB) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	err := d.replace(ctx, "tasks", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO tasks (id, title, description, priority_rank, difficulty_rank, urgency_rank, status, created_at, due_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range tasks {
			if _, err := stmt.ExecContext(ctx,
				t.ID, t.Title, t.Description,
				t.PriorityRank, t.DifficultyRank, t.UrgencyRank,
				string(t.Status), t.CreatedAt, t.DueDate,
			); err != nil {
				return fmt.Errorf("insert task %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func scanTask(s scanner) (domain.Task, error) {
	var t domain.Task
	var status string
	err := s.Scan(&t.ID, &t.Title, &t.Description,
		&t.PriorityRank, &t.DifficultyRank, &t.UrgencyRank,
		&status, &t.CreatedAt, &t.DueDate)
	t.Status = domain.TaskStatus(status)
	return t, err
}

// ─── Habit Repository ───────────────────────────────────────────────────────

// LoadHabits returns every stored habit with its completion dates sorted.
func (d *DB) LoadHabits(ctx context.Context) ([]domain.Habit, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, title, frequency, created_at FROM habits`)
	if err != nil {
		return nil, fmt.Errorf("load habits: %w", err)
	}
	habits := []domain.Habit{}
	index := make(map[string]int)
	for rows.Next() {
		var h domain.Habit
		var freq string
		if err := rows.Scan(&h.ID, &h.Title, &freq, &h.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		h.Frequency = domain.HabitFrequency(freq)
		h.CompletedDates = []string{}
		index[h.ID] = len(habits)
		habits = append(habits, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = d.db.QueryContext(ctx, `SELECT habit_id, day FROM habit_completions ORDER BY habit_id, day`)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, day string
		if err := rows.Scan(&id, &day); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if i, ok := index[id]; ok {
			habits[i].CompletedDates = append(habits[i].CompletedDates, day)
		}
	}
	return habits, rows.Err()
}

// SaveHabits replaces the stored habit collection and all completions.
func (d *DB) SaveHabits(ctx context.Context, habits []domain.Habit) error {
	err := d.replace(ctx, "habits", func(tx *sql.Tx) error {
		// The cascade only fires when foreign_keys is on for this connection.
		if _, err := tx.ExecContext(ctx, `DELETE FROM habit_completions`); err != nil {
			return fmt.Errorf("clear habit_completions: %w", err)
		}
		for _, h := range habits {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO habits (id, title, frequency, created_at) VALUES (?, ?, ?, ?)`,
				h.ID, h.Title, string(h.Frequency), h.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert habit %s: %w", h.ID, err)
			}
			for _, day := range h.CompletedDates {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO habit_completions (habit_id, day) VALUES (?, ?)`,
					h.ID, day,
				); err != nil {
					return fmt.Errorf("insert completion %s/%s: %w", h.ID, day, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save habits: %w", err)
	}
	return nil
}

// ─── Note Repository ────────────────────────────────────────────────────────

// LoadNotes returns every stored note, newest first.
func (d *DB) LoadNotes(ctx context.Context) ([]domain.Note, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, content, created_at FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// SaveNotes replaces the stored note collection.
func (d *DB) SaveNotes(ctx context.Context, notes []domain.Note) error {
	err := d.replace(ctx, "notes", func(tx *sql.Tx) error {
		for _, n := range notes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO notes (id, content, created_at) VALUES (?, ?, ?)`,
				n.ID, n.Content, n.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert note %s: %w", n.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}
