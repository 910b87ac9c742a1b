package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/statement/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor identifies who performed an audited action.
type Actor struct {
	UserID    string
	Username  string
	IPAddress string
	UserAgent string
}

type AuditLog struct {
	ID         string            `json:"id" gorm:"primaryKey;size:64"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"size:64;index"`
	ActorName  string            `json:"actor_name,omitempty" gorm:"size:128"`
	Action     string            `json:"action" gorm:"size:64;not null;index"`
	TargetType string            `json:"target_type" gorm:"size:32;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"size:64;index"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"size:64"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        string
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

type ListAuditLogRequest struct {
	PageToken  string
	PageSize   int32
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

type Service interface {
	AuditLog(ctx context.Context, actor Actor, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
