package mongostore

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rankflow/rankflow/internal/domain"
)

// Field names match the JSON wire names so documents written by earlier
// clients load unchanged.

type taskDoc struct {
	MongoID        bson.ObjectID `bson:"_id,omitempty"`
	ID             string        `bson:"id,omitempty"`
	Title          string        `bson:"title"`
	Description    string        `bson:"description,omitempty"`
	PriorityRank   int           `bson:"priorityRank"`
	DifficultyRank int           `bson:"difficultyRank"`
	UrgencyRank    int           `bson:"urgencyRank"`
	Status         string        `bson:"status"`
	CreatedAt      int64         `bson:"createdAt"`
	DueDate        string        `bson:"dueDate,omitempty"`
}

func taskDocFrom(t domain.Task) taskDoc {
	return taskDoc{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		PriorityRank:   t.PriorityRank,
		DifficultyRank: t.DifficultyRank,
		UrgencyRank:    t.UrgencyRank,
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt,
		DueDate:        t.DueDate,
	}
}

func (d taskDoc) toDomain() domain.Task {
	return domain.Task{
		ID:             idOr(d.ID, d.MongoID),
		Title:          d.Title,
		Description:    d.Description,
		PriorityRank:   d.PriorityRank,
		DifficultyRank: d.DifficultyRank,
		UrgencyRank:    d.UrgencyRank,
		Status:         domain.TaskStatus(d.Status),
		CreatedAt:      d.CreatedAt,
		DueDate:        d.DueDate,
	}
}

type habitDoc struct {
	MongoID        bson.ObjectID `bson:"_id,omitempty"`
	ID             string        `bson:"id,omitempty"`
	Title          string        `bson:"title"`
	Frequency      string        `bson:"frequency"`
	CompletedDates []string      `bson:"completedDates"`
	CreatedAt      int64         `bson:"createdAt"`
}

func habitDocFrom(h domain.Habit) habitDoc {
	dates := h.CompletedDates
	if dates == nil {
		dates = []string{}
	}
	return habitDoc{
		ID:             h.ID,
		Title:          h.Title,
		Frequency:      string(h.Frequency),
		CompletedDates: dates,
		CreatedAt:      h.CreatedAt,
	}
}

func (d habitDoc) toDomain() domain.Habit {
	dates := d.CompletedDates
	if dates == nil {
		dates = []string{}
	}
	return domain.Habit{
		ID:             idOr(d.ID, d.MongoID),
		Title:          d.Title,
		Frequency:      domain.HabitFrequency(d.Frequency),
		CompletedDates: dates,
		CreatedAt:      d.CreatedAt,
	}
}

type noteDoc struct {
	MongoID   bson.ObjectID `bson:"_id,omitempty"`
	ID        string        `bson:"id,omitempty"`
	Content   string        `bson:"content"`
	CreatedAt int64         `bson:"createdAt"`
}

func noteDocFrom(n domain.Note) noteDoc {
	return noteDoc{ID: n.ID, Content: n.Content, CreatedAt: n.CreatedAt}
}

func (d noteDoc) toDomain() domain.Note {
	return domain.Note{ID: idOr(d.ID, d.MongoID), Content: d.Content, CreatedAt: d.CreatedAt}
}

func idOr(id string, oid bson.ObjectID) string {
	if id != "" || oid.IsZero() {
		return id
	}
	return oid.Hex()
}
