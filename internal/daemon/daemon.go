package daemon

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/rankflow/rankflow/internal/api"
	"github.com/rankflow/rankflow/internal/app/habit"
	"github.com/rankflow/rankflow/internal/app/note"
	"github.com/rankflow/rankflow/internal/app/persist"
	"github.com/rankflow/rankflow/internal/app/ranking"
	"github.com/rankflow/rankflow/internal/domain"
	"github.com/rankflow/rankflow/internal/health"
	"github.com/rankflow/rankflow/internal/infra/filestore"
	"github.com/rankflow/rankflow/internal/infra/mongostore"
	"github.com/rankflow/rankflow/internal/infra/sqlite"
)

// flushTimeout bounds the final save on Close.
const flushTimeout = 10 * time.Second

// Daemon is the core RankFlow runtime. It wires together all services.
type Daemon struct {
	Config Config
	Logger *slog.Logger
	Store  domain.Store
	Engine *ranking.Engine
	Writer *persist.Writer
	Habits *habit.Service
	Notes  *note.Service
	Health *health.Checker
	Server *api.Server

	ctx        context.Context
	cancel     context.CancelFunc
	writerDone chan struct{}
	logCloser  io.Closer

	closeOnce sync.Once
	closeErr  error
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration. The stored
// collections are loaded before it returns.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, logCloser, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		Config:     cfg,
		Logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		writerDone: make(chan struct{}),
		logCloser:  logCloser,
	}
	if err := d.init(); err != nil {
		cancel()
		if d.Store != nil {
			_ = d.Store.Close()
		}
		_ = logCloser.Close()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) init() error {
	loadCtx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()

	store, err := OpenStore(loadCtx, d.Config.Storage, d.Logger)
	if err != nil {
		return err
	}
	d.Store = store

	// Ranking engine, seeded from storage before the writer subscribes so
	// the initial load is not written straight back.
	d.Engine = ranking.NewEngine(d.Logger)
	tasks, err := store.LoadTasks(loadCtx)
	if err != nil {
		return err
	}
	snap, err := d.Engine.Replace(tasks)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	// Background persistence
	d.Writer = persist.NewWriter(store, d.Config.PersistOptions(), d.Logger)
	d.Engine.Subscribe(d.Writer.Observe)
	go func() {
		defer close(d.writerDone)
		d.Writer.Run(d.ctx)
	}()
	if !sameTasks(tasks, snap.Tasks) {
		// Replace repaired the stored ranks; save the repaired collection.
		d.Writer.Observe(snap)
	}

	d.Habits = habit.NewService(store, d.Logger)
	if err := d.Habits.Load(loadCtx); err != nil {
		return err
	}
	d.Notes = note.NewService(store, d.Logger)
	if err := d.Notes.Load(loadCtx); err != nil {
		return err
	}

	d.Health = health.NewChecker(store, d.Engine, d.Writer, d.Logger)

	// API server
	srv := api.NewServer(api.Deps{
		Engine: d.Engine,
		Habits: d.Habits,
		Notes:  d.Notes,
		Health: d.Health,
		Writer: d.Writer,
		Logger: d.Logger,
	})
	srv.SetCORSOrigins(d.Config.API.CORSOrigins)
	srv.SetTimeout(parseDuration(d.Config.API.RequestTimeout, 30*time.Second))
	if d.Config.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	d.Logger.Debug("collections loaded",
		"backend", d.Config.Storage.Backend,
		"tasks", snap.Len(),
		"habits", len(d.Habits.List()),
		"notes", len(d.Notes.List()))
	return nil
}

// OpenStore opens the configured storage backend.
func OpenStore(ctx context.Context, cfg StorageConfig, logger *slog.Logger) (domain.Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		db, err := sqlite.Open(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	case BackendFile:
		format, err := filestore.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		fs, err := filestore.NewOS(cfg.Dir, format, logger)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case BackendMemory:
		return filestore.NewMemory(logger), nil
	case BackendMongo:
		ms, err := mongostore.Open(ctx, mongostore.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		}, logger)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Health checker (always runs)
	go d.Health.Run(ctx)

	// Reload collections edited by other processes
	if fs, ok := d.Store.(*filestore.Store); ok && d.Config.Storage.Watch {
		if err := fs.Watch(ctx, d.reload); err != nil {
			d.Logger.Warn("file watch disabled", "error", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case sig := <-sigCh:
			d.Logger.Info("shutting down", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("RankFlow serving on http://%s\n", addr)
	fmt.Printf("  Storage: %s\n", d.Config.Storage.Backend)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}

// reload refreshes one collection after an external edit.
func (d *Daemon) reload(collection string) {
	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	var err error
	switch collection {
	case filestore.CollectionTasks:
		err = d.reloadTasks(ctx)
	case filestore.CollectionHabits:
		err = d.Habits.Load(ctx)
	case filestore.CollectionNotes:
		err = d.Notes.Load(ctx)
	default:
		return
	}
	if err != nil {
		d.Logger.Warn("reload failed", "collection", collection, "error", err)
		return
	}
	d.Logger.Info("reloaded after external edit", "collection", collection)
}

func (d *Daemon) reloadTasks(ctx context.Context) error {
	tasks, err := d.Store.LoadTasks(ctx)
	if err != nil {
		return err
	}
	if sameTasks(tasks, d.Engine.Snapshot().Tasks) {
		return nil
	}
	_, err = d.Engine.Replace(tasks)
	return err
}

// Close flushes pending saves and shuts down all daemon resources. It is
// safe to call more than once.
func (d *Daemon) Close() error {
	d.closeOnce.Do(func() {
		var errs []error
		if d.Writer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			if err := d.Writer.Flush(ctx); err != nil {
				errs = append(errs, fmt.Errorf("flush tasks: %w", err))
			}
			cancel()
		}
		d.cancel()
		if d.Writer != nil {
			<-d.writerDone
		}
		if d.Store != nil {
			if err := d.Store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
		}
		if err := d.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}

// sameTasks compares two collections ignoring order.
func sameTasks(a, b []domain.Task) bool {
	if len(a) != len(b) {
		return false
	}
	byID := func(x, y domain.Task) int { return cmp.Compare(x.ID, y.ID) }
	a, b = slices.Clone(a), slices.Clone(b)
	slices.SortFunc(a, byID)
	slices.SortFunc(b, byID)
	return slices.Equal(a, b)
}
