// Package mongostore stores RankFlow collections in MongoDB.
//
// Each collection (tasks, habits, notes) is replaced wholesale on save with
// DeleteMany followed by InsertMany. Documents keep the application id in
// an "id" field; documents created by other tools without one fall back to
// the hex form of their _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/rankflow/rankflow/internal/domain"
)

// DefaultDatabase is used when Config.Database is empty.
const DefaultDatabase = "rankflow"

// Config selects the deployment and database.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration // Server selection timeout
}

// Store implements domain.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// CleanURI trims whitespace and strips angle brackets left over from
// copy-pasted connection-string templates.
func CleanURI(uri string) string {
	uri = strings.TrimSpace(uri)
	return strings.NewReplacer("<", "", ">", "").Replace(uri)
}

// Open connects and pings the primary.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	uri := CleanURI(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(4).
		SetServerSelectionTimeout(cfg.Timeout)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s := &Store{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger.With("component", "mongostore", "database", cfg.Database),
	}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ─── domain.Store ───────────────────────────────────────────────────────────

func (s *Store) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	var docs []taskDoc
	if err := s.findAll(ctx, "tasks", &docs); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	tasks := make([]domain.Task, len(docs))
	for i, d := range docs {
		tasks[i] = d.toDomain()
	}
	return tasks, nil
}

func (s *Store) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	docs := make([]any, len(tasks))
	for i, t := range tasks {
		docs[i] = taskDocFrom(t)
	}
	if err := s.replaceAll(ctx, "tasks", docs); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func (s *Store) LoadHabits(ctx context.Context) ([]domain.Habit, error) {
	var docs []habitDoc
	if err := s.findAll(ctx, "habits", &docs); err != nil {
		return nil, fmt.Errorf("load habits: %w", err)
	}
	habits := make([]domain.Habit, len(docs))
	for i, d := range docs {
		habits[i] = d.toDomain()
	}
	return habits, nil
}

func (s *Store) SaveHabits(ctx context.Context, habits []domain.Habit) error {
	docs := make([]any, len(habits))
	for i, h := range habits {
		docs[i] = habitDocFrom(h)
	}
	if err := s.replaceAll(ctx, "habits", docs); err != nil {
		return fmt.Errorf("save habits: %w", err)
	}
	return nil
}

func (s *Store) LoadNotes(ctx context.Context) ([]domain.Note, error) {
	var docs []noteDoc
	if err := s.findAll(ctx, "notes", &docs); err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	notes := make([]domain.Note, len(docs))
	for i, d := range docs {
		notes[i] = d.toDomain()
	}
	return notes, nil
}

func (s *Store) SaveNotes(ctx context.Context, notes []domain.Note) error {
	docs := make([]any, len(notes))
	for i, n := range notes {
		docs[i] = noteDocFrom(n)
	}
	if err := s.replaceAll(ctx, "notes", docs); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *Store) findAll(ctx context.Context, collection string, out any) error {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// replaceAll empties collection and inserts docs. Without a replica set
// the two steps are not atomic; a failed insert leaves the collection
// empty until the next successful save.
func (s *Store) replaceAll(ctx context.Context, collection string, docs []any) error {
	coll := s.db.Collection(collection)
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		s.logger.Error("insert after delete failed", "collection", collection, "error", err)
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}
