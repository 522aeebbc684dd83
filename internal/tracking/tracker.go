// Package tracking records runs and the artifact versions they consume and produce.
//
// GormTracker persists runs in SQLite or PostgreSQL. NopTracker is used when
// tracking is disabled; it still hands out run ids so logs stay correlated.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/logger"
)

// DefaultDSN is the default SQLite database file.
const DefaultDSN = "./cleaning-data/tracking.db"

var (
	// ErrRunFinished is returned when a finished run is modified.
	ErrRunFinished = errors.New("run already finished")

	// ErrRunNotFound is returned by GetRun for an unknown id.
	ErrRunNotFound = errors.New("run not found")
)

// Tracker starts runs.
type Tracker interface {
	// Start creates a run for the given job type.
	Start(ctx context.Context, jobType string) (Run, error)
	// Close releases the tracker's resources.
	Close() error
}

// Run is a handle on one started run.
type Run interface {
	ID() string
	// RecordConfig stores the run parameters.
	RecordConfig(ctx context.Context, params map[string]interface{}) error
	// UseArtifact links a consumed artifact version to the run.
	UseArtifact(ctx context.Context, a *artifact.Artifact) error
	// LogArtifact links a produced artifact version to the run.
	LogArtifact(ctx context.Context, a *artifact.Artifact) error
	// Finish marks the run as done. A nil runErr means success.
	Finish(ctx context.Context, runErr error) error
}

// GormTracker stores runs through gorm.
type GormTracker struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the database selected by dsn and migrates the tables.
// "postgres://", "postgresql://" and "host=" DSNs use PostgreSQL; anything
// else is a SQLite file path (":memory:" included).
func Open(dsn string) (*GormTracker, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = DefaultDSN
	}

	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening tracking database: %w", err)
	}
	if isMemory(dsn) {
		// every new connection to ":memory:" would see an empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("opening tracking database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGormTracker(db)
}

// NewGormTracker wraps an open database and migrates the tables.
func NewGormTracker(db *gorm.DB) (*GormTracker, error) {
	if err := db.AutoMigrate(&RunRecord{}, &ArtifactLink{}); err != nil {
		return nil, fmt.Errorf("migrating tracking tables: %w", err)
	}
	return &GormTracker{db: db, now: time.Now}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") ||
		strings.HasPrefix(lower, "host=") {
		return postgres.Open(dsn), nil
	}
	if !isMemory(dsn) && !strings.HasPrefix(lower, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating tracking directory: %w", err)
			}
		}
	}
	return sqlite.Open(dsn), nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Start inserts a new run in the running state.
func (t *GormTracker) Start(ctx context.Context, jobType string) (Run, error) {
	rec := &RunRecord{
		JobType:   jobType,
		Status:    StatusRunning,
		StartedAt: t.now().UTC(),
	}
	if err := t.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	logger.Debug("tracked run started", "run_id", rec.ID, "job_type", jobType)
	return &gormRun{tracker: t, id: rec.ID}, nil
}

// ListRuns returns the most recent runs with their artifact links, newest first.
func (t *GormTracker) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []RunRecord
	err := t.db.WithContext(ctx).
		Preload("Artifacts", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a single run with its artifact links.
func (t *GormTracker) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var rec RunRecord
	err := t.db.WithContext(ctx).Preload("Artifacts").First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return &rec, nil
}

// Close closes the underlying connection pool.
func (t *GormTracker) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormRun struct {
	tracker  *GormTracker
	id       string
	finished bool
}

func (r *gormRun) ID() string {
	return r.id
}

func (r *gormRun) RecordConfig(ctx context.Context, params map[string]interface{}) error {
	if r.finished {
		return ErrRunFinished
	}
	err := r.tracker.db.WithContext(ctx).
		Model(&RunRecord{ID: r.id}).
		Select("Config").
		Updates(&RunRecord{Config: params}).Error
	if err != nil {
		return fmt.Errorf("recording config of run %s: %w", r.id, err)
	}
	return nil
}

func (r *gormRun) UseArtifact(ctx context.Context, a *artifact.Artifact) error {
	return r.link(ctx, DirectionInput, a)
}

func (r *gormRun) LogArtifact(ctx context.Context, a *artifact.Artifact) error {
	return r.link(ctx, DirectionOutput, a)
}

func (r *gormRun) link(ctx context.Context, direction string, a *artifact.Artifact) error {
	if r.finished {
		return ErrRunFinished
	}
	if a == nil {
		return fmt.Errorf("linking %s artifact: nil artifact", direction)
	}
	l := &ArtifactLink{
		RunID:     r.id,
		Direction: direction,
		Name:      a.Name,
		Version:   a.Version,
		Type:      a.Type,
		Digest:    a.Digest,
		CreatedAt: r.tracker.now().UTC(),
	}
	if err := r.tracker.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("linking %s artifact %s to run %s: %w", direction, a.Name, r.id, err)
	}
	return nil
}

func (r *gormRun) Finish(ctx context.Context, runErr error) error {
	if r.finished {
		return ErrRunFinished
	}
	status, msg := StatusSuccess, ""
	if runErr != nil {
		status, msg = StatusError, runErr.Error()
	}
	finishedAt := r.tracker.now().UTC()
	err := r.tracker.db.WithContext(ctx).
		Model(&RunRecord{ID: r.id}).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": msg,
			"finished_at":   finishedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", r.id, err)
	}
	r.finished = true
	return nil
}

// NopTracker hands out run ids without storing anything.
type NopTracker struct{}

// Start returns a run that records nothing.
func (NopTracker) Start(context.Context, string) (Run, error) {
	return &nopRun{id: uuid.New().String()}, nil
}

// Close does nothing.
func (NopTracker) Close() error { return nil }

type nopRun struct{ id string }

func (r *nopRun) ID() string { return r.id }

func (r *nopRun) RecordConfig(context.Context, map[string]interface{}) error { return nil }

func (r *nopRun) UseArtifact(context.Context, *artifact.Artifact) error { return nil }

func (r *nopRun) LogArtifact(context.Context, *artifact.Artifact) error { return nil }

func (r *nopRun) Finish(context.Context, error) error { return nil }

var (
	_ Tracker = (*GormTracker)(nil)
	_ Tracker = NopTracker{}
)
