package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"golang-stock-analyst/internal/entity"
	"golang-stock-analyst/internal/scheduler/config"
	"golang-stock-analyst/internal/scheduler/repository"
	"golang-stock-analyst/pkg/common"
	"golang-stock-analyst/pkg/logger"
	redisPkg "golang-stock-analyst/pkg/redis"
	"golang-stock-analyst/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// SchedulerService defines the interface for the job scheduling service.
type SchedulerService interface {
	Start(ctx context.Context)
	ProcessJobs(ctx context.Context)
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(scheduleRepo repository.TaskScheduleRepository, historyRepo repository.TaskExecutionHistoryRepository, redisClient *redisPkg.Client, logger *logger.Logger, pollingInterval time.Duration, cfg *config.Config) SchedulerService {
	return &schedulerService{
		scheduleRepo:    scheduleRepo,
		historyRepo:     historyRepo,
		redisClient:     redisClient,
		logger:          logger,
		pollingInterval: pollingInterval,
		cronParser:      cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		cfg:             cfg,
	}
}

type schedulerService struct {
	scheduleRepo    repository.TaskScheduleRepository
	historyRepo     repository.TaskExecutionHistoryRepository
	redisClient     *redisPkg.Client
	logger          *logger.Logger
	pollingInterval time.Duration
	cronParser      cron.Parser
	cfg             *config.Config
}

// Start begins the periodic job processing loop.
func (s *schedulerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler service stopping")
			return
		case <-ticker.C:
			s.ProcessJobs(ctx)
		}
	}
}

// ProcessJobs finds and enqueues jobs that are due.
func (s *schedulerService) ProcessJobs(ctx context.Context) {
	schedules, err := s.scheduleRepo.FindJobsToSchedule(ctx)
	if err != nil {
		s.logger.Error("Failed to find jobs to schedule", logger.ErrorField(err))
		return
	}

	for _, schedule := range schedules {
		s.publishTask(ctx, schedule)
	}
}

// publishTask records a running execution and hands it to the analysis
// service over the task execution stream. The history row is the message
// payload, so the consumer can complete the same row.
func (s *schedulerService) publishTask(ctx context.Context, schedule entity.TaskSchedule) {
	now := utils.TimeNowEastern()

	history := &entity.TaskExecutionHistory{
		JobID:      schedule.JobID,
		ScheduleID: schedule.ID,
		Status:     entity.StatusRunning,
		StartedAt:  now,
	}

	if err := s.historyRepo.Create(ctx, history); err != nil {
		s.logger.Error("Failed to create task history", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}

	taskPayload, err := json.Marshal(history)
	if err != nil {
		s.logger.Error("Failed to marshal task payload", logger.ErrorField(err), logger.Field("history_id", history.ID))
		return
	}

	if err := s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSchedulerTaskExecution,
		Values: map[string]interface{}{"payload": taskPayload},
		MaxLen: s.cfg.Redis.StreamMaxLen, // Limit the stream size
	}).Err(); err != nil {
		s.logger.Error("Failed to enqueue task", logger.ErrorField(err), logger.Field("history_id", history.ID))
		history.Status = entity.StatusFailed
		history.CompletedAt.Time = utils.TimeNowEastern()
		history.CompletedAt.Valid = true
		history.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if errInner := s.historyRepo.Update(ctx, history); errInner != nil {
			s.logger.Error("Failed to update task history", logger.ErrorField(errInner), logger.Field("history_id", history.ID))
		}
		return
	}

	s.logger.Info("Task published successfully", logger.Field("history_id", history.ID))

	// Update schedule for next run
	next, err := s.nextRun(schedule.CronExpression, now)
	if err != nil {
		s.logger.Error("Failed to parse cron expression", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}

	schedule.LastExecution.Time = now
	schedule.LastExecution.Valid = true
	schedule.NextExecution.Time = next
	schedule.NextExecution.Valid = true

	if err := s.scheduleRepo.Update(ctx, &schedule); err != nil {
		s.logger.Error("Failed to update next execution time", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
	}
}

// nextRun computes the next execution time after from for a cron expression.
// Standard five-field expressions and descriptors like @hourly are accepted.
func (s *schedulerService) nextRun(expression string, from time.Time) (time.Time, error) {
	cronSchedule, err := s.cronParser.Parse(expression)
	if err != nil {
		return time.Time{}, err
	}
	return cronSchedule.Next(from), nil
}
