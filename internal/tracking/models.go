package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Artifact link directions.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// RunRecord is one tracked execution of a job.
type RunRecord struct {
	ID           string                 `json:"id" gorm:"primaryKey;type:varchar(36)"`
	JobType      string                 `json:"job_type" gorm:"not null;size:100;index"`
	Status       string                 `json:"status" gorm:"not null;size:20;default:'running'"` // running, success, error
	Config       map[string]interface{} `json:"config,omitempty" gorm:"serializer:json"`
	ErrorMessage string                 `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt    time.Time              `json:"started_at" gorm:"not null;index"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`

	Artifacts []ArtifactLink `json:"artifacts,omitempty" gorm:"foreignKey:RunID"`
}

// TableName sets the table name.
func (RunRecord) TableName() string {
	return "runs"
}

// BeforeCreate generates the run id.
func (r *RunRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}
	return nil
}

// Duration returns how long the run took, or zero while it is still running.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ArtifactLink records that a run consumed or produced an artifact version.
type ArtifactLink struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RunID     string    `json:"run_id" gorm:"not null;type:varchar(36);index"`
	Direction string    `json:"direction" gorm:"not null;size:10"` // input, output
	Name      string    `json:"name" gorm:"not null;size:128;index"`
	Version   int       `json:"version"`
	Type      string    `json:"type" gorm:"size:100"`
	Digest    string    `json:"digest" gorm:"size:80"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the table name.
func (ArtifactLink) TableName() string {
	return "run_artifacts"
}

// BeforeCreate generates the link id.
func (l *ArtifactLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
