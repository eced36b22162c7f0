package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints of a task record, including rank
// positivity. Density across the collection is the engine's concern.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTask)
	}
	return structError(ErrInvalidTask, validate.Struct(t))
}

// Validate checks field constraints of a habit record.
func (h Habit) Validate() error {
	if strings.TrimSpace(h.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidHabit)
	}
	return structError(ErrInvalidHabit, validate.Struct(h))
}

// Validate checks field constraints of a note record.
func (n Note) Validate() error {
	if strings.TrimSpace(n.Content) == "" {
		return fmt.Errorf("%w: content required", ErrInvalidNote)
	}
	return structError(ErrInvalidNote, validate.Struct(n))
}

// structError flattens validator output into one message wrapping kind.
func structError(kind error, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", kind, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(msgs, "; "))
}
