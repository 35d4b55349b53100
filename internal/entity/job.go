package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// JobType identifies which execution strategy handles a job.
type JobType string

const (
	JobTypeStockIndicator   JobType = "stock_indicator_analysis"
	JobTypeStockReport      JobType = "stock_report"
	JobTypeStockNewsScraper JobType = "stock_news_scraper"
	JobTypeStockPriceAlert  JobType = "stock_price_alert"
)

// ExecutionStatus is the lifecycle state of a task execution.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// Job is a schedulable unit of work with a typed payload.
type Job struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Type        JobType        `gorm:"not null" json:"type"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	RetryPolicy datatypes.JSON `gorm:"type:jsonb" json:"retry_policy"`
	Timeout     int            `json:"timeout"`
	Schedules   []TaskSchedule `gorm:"foreignKey:JobID" json:"schedules"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Job model.
func (Job) TableName() string {
	return "jobs"
}

// TaskSchedule is one cron trigger for a job.
type TaskSchedule struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	JobID          uint         `gorm:"not null;index" json:"job_id"`
	CronExpression string       `gorm:"not null" json:"cron_expression"`
	IsActive       bool         `gorm:"not null" json:"is_active"`
	NextExecution  sql.NullTime `json:"next_execution"`
	LastExecution  sql.NullTime `json:"last_execution"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the TaskSchedule model.
func (TaskSchedule) TableName() string {
	return "task_schedules"
}

// TaskExecutionHistory records one attempt at executing a scheduled job. The
// scheduler creates it in the running state and the analyzer completes it.
type TaskExecutionHistory struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	JobID        uint            `gorm:"not null;index" json:"job_id"`
	ScheduleID   uint            `gorm:"index" json:"schedule_id"`
	Status       ExecutionStatus `gorm:"not null" json:"status"`
	Output       sql.NullString  `json:"output"`
	ErrorMessage sql.NullString  `json:"error_message"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  sql.NullTime    `json:"completed_at"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the TaskExecutionHistory model.
func (TaskExecutionHistory) TableName() string {
	return "task_execution_histories"
}
