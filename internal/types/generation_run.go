package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// GenerationRun records one pipeline invocation, successful or not.
type GenerationRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    *uuid.UUID     `gorm:"type:uuid;index" json:"course_id,omitempty"`
	Source      string         `gorm:"column:source;not null" json:"source"` // syllabus|upload|description|cli
	Role        string         `gorm:"column:role;not null" json:"role"`
	Model       string         `gorm:"column:model" json:"model"`
	Status      string         `gorm:"column:status;not null;index" json:"status"` // running|succeeded|failed
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	ErrorKind   string         `gorm:"column:error_kind;index" json:"error_kind,omitempty"`
	Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
	SourceBytes int            `gorm:"column:source_bytes;not null;default:0" json:"source_bytes"`
	SourceHash  string         `gorm:"column:source_hash;index" json:"source_hash"`
	RawReply    string         `gorm:"column:raw_reply;type:text" json:"raw_reply,omitempty"`
	Usage       datatypes.JSON `gorm:"column:usage" json:"usage"`
	StartedAt   time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GenerationRun) TableName() string { return "generation_run" }
