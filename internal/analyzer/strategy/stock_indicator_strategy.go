package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-stock-analyst/internal/analyzer/dto"
	"golang-stock-analyst/internal/analyzer/repository"
	"golang-stock-analyst/internal/entity"
	"golang-stock-analyst/pkg/common"
	"golang-stock-analyst/pkg/logger"
	"golang-stock-analyst/pkg/redis"

	goRedis "github.com/redis/go-redis/v9"
)

const (
	defaultIndicatorInterval = "1d"
	defaultIndicatorRange    = "1y"
)

// StockIndicatorStrategy fans an indicator analysis job out into one stream
// message per stock, so a slow or failing ticker never blocks the rest.
type StockIndicatorStrategy struct {
	logger      *logger.Logger
	redisClient *redis.Client
	stockRepo   repository.StocksRepository
}

type StockIndicatorPayload struct {
	Interval   string   `json:"interval"`
	Range      string   `json:"range"`
	SkipStocks []string `json:"skip_stocks"`
}

// NewStockIndicatorStrategy creates a new StockIndicatorStrategy.
func NewStockIndicatorStrategy(log *logger.Logger, redisClient *redis.Client, stockRepo repository.StocksRepository) JobExecutionStrategy {
	return &StockIndicatorStrategy{logger: log, redisClient: redisClient, stockRepo: stockRepo}
}

// GetType returns the job type this strategy handles.
func (s *StockIndicatorStrategy) GetType() entity.JobType {
	return entity.JobTypeStockIndicator
}

// Execute enqueues one indicator analysis task per stock in the universe.
func (s *StockIndicatorStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	var payload StockIndicatorPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.Interval == "" {
		payload.Interval = defaultIndicatorInterval
	}
	if payload.Range == "" {
		payload.Range = defaultIndicatorRange
	}

	stocks, err := s.stockRepo.GetStocks(ctx)
	if err != nil {
		s.logger.Error("Failed to get stocks", logger.ErrorField(err))
		return "", fmt.Errorf("failed to get stocks: %w", err)
	}

	skipStocks := make(map[string]bool)
	for _, stock := range payload.SkipStocks {
		skipStocks[stock] = true
	}

	isSuccess := false

	var results []dto.ExecutorSummaryResult
	for _, stock := range stocks {
		if skipStocks[stock.Code] {
			s.logger.Info("Skipping stock", logger.Field("stock_code", stock.Code))
			continue
		}

		streamData := &dto.StreamDataStockIndicator{
			StockCode: stock.Code,
			Interval:  payload.Interval,
			Range:     payload.Range,
		}

		streamDataJSON, err := json.Marshal(streamData)
		if err != nil {
			s.logger.Error("Failed to marshal stock indicator payload", logger.ErrorField(err))
			results = append(results, dto.ExecutorSummaryResult{StockCode: stock.Code, Error: err.Error()})
			continue
		}

		if err := s.redisClient.XAdd(ctx, &goRedis.XAddArgs{
			Stream: common.RedisStreamStockIndicator,
			Values: map[string]interface{}{"payload": streamDataJSON},
		}).Err(); err != nil {
			s.logger.Error("Failed to enqueue stock indicator task", logger.ErrorField(err), logger.Field("stock_code", stock.Code))
			results = append(results, dto.ExecutorSummaryResult{StockCode: stock.Code, Error: err.Error()})
			continue
		}
		isSuccess = true
		results = append(results, dto.ExecutorSummaryResult{StockCode: stock.Code, IsSuccess: true})
	}

	resultJSON, err := json.Marshal(results)
	if err != nil {
		s.logger.Error("Failed to marshal results", logger.ErrorField(err))
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	if isSuccess {
		return string(resultJSON), nil
	}

	return "", fmt.Errorf("failed to enqueue stock indicator tasks")
}
