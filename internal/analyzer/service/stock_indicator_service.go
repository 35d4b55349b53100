package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang-stock-analyst/internal/analyzer/config"
	"golang-stock-analyst/internal/analyzer/dto"
	"golang-stock-analyst/internal/analyzer/repository"
	"golang-stock-analyst/internal/entity"
	"golang-stock-analyst/internal/indicator"
	"golang-stock-analyst/pkg/common"
	"golang-stock-analyst/pkg/logger"
	redisPkg "golang-stock-analyst/pkg/redis"
	"golang-stock-analyst/pkg/telegram"
	"golang-stock-analyst/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// snapshotSeriesLength caps how many trailing rows of each indicator series
// are stored with a snapshot.
const snapshotSeriesLength = 50

// StockIndicatorService consumes indicator tasks, runs the indicator engine
// over fresh chart data and persists the resulting snapshot.
type StockIndicatorService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	Analyze(ctx context.Context, stockCode string, interval string, rangeData string) error
}

type stockIndicatorService struct {
	cfg          *config.Config
	log          *logger.Logger
	redisClient  *redisPkg.Client
	yahooFinance repository.YahooFinanceRepository
	snapshotRepo repository.StockIndicatorSnapshotRepository
	telegramBot  telegram.Notifier
}

// NewStockIndicatorService creates a new StockIndicatorService.
func NewStockIndicatorService(cfg *config.Config, log *logger.Logger,
	redisClient *redisPkg.Client,
	yahooFinance repository.YahooFinanceRepository,
	snapshotRepo repository.StockIndicatorSnapshotRepository,
	telegramBot telegram.Notifier) StockIndicatorService {
	return &stockIndicatorService{
		cfg:          cfg,
		log:          log,
		redisClient:  redisClient,
		yahooFinance: yahooFinance,
		snapshotRepo: snapshotRepo,
		telegramBot:  telegramBot,
	}
}

func (s *stockIndicatorService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamStockIndicator, ">"}, // ">" means only new messages
		Count:    1,
		Block:    2 * time.Second, // Block for 2 seconds to allow graceful shutdown
	}).Result()
	if err != nil {
		// Ignore context cancellation and timeout errors, as they are expected during shutdown or idle periods.
		if err == context.Canceled || err == redis.Nil {
			return
		}
		s.log.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]

	// The task data is expected to be a JSON string in the 'payload' field.
	taskData, ok := message.Values["payload"].(string)
	if !ok {
		s.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", message.ID))
		return
	}

	var streamData dto.StreamDataStockIndicator
	if err := json.Unmarshal([]byte(taskData), &streamData); err != nil {
		s.log.Error("Failed to unmarshal task data", logger.ErrorField(err), logger.Field("message_id", message.ID))
		return
	}

	s.log.Debug("Processing stock indicator task", logger.StringField("stock_code", streamData.StockCode), logger.StringField("interval", streamData.Interval), logger.StringField("range", streamData.Range))

	if err := s.Analyze(ctx, streamData.StockCode, streamData.Interval, streamData.Range); err != nil {
		s.log.Error("Failed to analyze stock", logger.ErrorField(err), logger.Field("message_id", message.ID), logger.StringField("stock_code", streamData.StockCode), logger.StringField("interval", streamData.Interval), logger.StringField("range", streamData.Range))
		return
	}
	if err := s.AckNDel(ctx, common.RedisStreamStockIndicator, message.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete stock indicator task", logger.ErrorField(err), logger.Field("message_id", message.ID))
		return
	}

	s.log.Debug("Stock indicator task processed successfully", logger.StringField("stock_code", streamData.StockCode), logger.StringField("interval", streamData.Interval), logger.StringField("range", streamData.Range))
}

// Analyze fetches chart data, computes the indicator bundle and persists a
// snapshot of the trailing series plus the trend analysis.
func (s *stockIndicatorService) Analyze(ctx context.Context, stockCode string, interval string, rangeData string) error {
	stockData, err := s.yahooFinance.GetStockData(ctx, dto.GetStockDataParam{
		StockCode: stockCode,
		Interval:  interval,
		Range:     rangeData,
	})
	if err != nil {
		s.log.Error("Failed to get stock data", logger.ErrorField(err))
		return err
	}

	bundle, err := indicator.Compute(stockData.Bars())
	if err != nil {
		s.log.Error("Failed to compute indicators", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return fmt.Errorf("failed to compute indicators for %s: %w", stockCode, err)
	}

	dataJSON, err := json.Marshal(dto.IndicatorSnapshotData{
		Indicators:    bundle.Tail(snapshotSeriesLength),
		TrendAnalysis: bundle.Trend,
	})
	if err != nil {
		s.log.Error("Failed to marshal indicator snapshot", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return err
	}

	err = s.snapshotRepo.Create(ctx, &entity.StockIndicatorSnapshot{
		StockCode:   stockCode,
		Interval:    interval,
		Range:       rangeData,
		MarketPrice: stockData.MarketPrice,
		Data:        dataJSON,
	})
	if err != nil {
		s.log.Error("Failed to create indicator snapshot", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return err
	}

	// The snapshot is already persisted, a failed notification is not worth a retry.
	msg := telegram.FormatIndicatorSnapshotMessage(stockCode, interval, bundle.Trend)
	if err := s.telegramBot.SendMessage(msg); err != nil {
		s.log.Error("Failed to send indicator snapshot message", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
	}

	return nil
}

func (s *stockIndicatorService) AckNDel(ctx context.Context, streamName string, messageID string) error {
	if err := s.redisClient.XAck(ctx, streamName, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge stock indicator task", logger.ErrorField(err), logger.Field("message_id", messageID))
		return err
	}
	if err := s.redisClient.XDel(ctx, streamName, messageID).Err(); err != nil {
		s.log.Error("Failed to delete stock indicator task", logger.ErrorField(err), logger.Field("message_id", messageID))
		return err
	}
	return nil
}

func (s *stockIndicatorService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamStockIndicator,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Analyzer.RedisStreamStockIndicatorMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()

	if err != nil {
		s.log.Error("Failed to claim stock indicator task on retry", logger.ErrorField(err))
		return
	}

	if len(msgs) == 0 {
		s.log.Debug("Retry no pending messages found", logger.StringField("stream", common.RedisStreamStockIndicator))
		return
	}

	s.log.Info("Found pending messages", logger.StringField("stream", common.RedisStreamStockIndicator))

	pendingInfo, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: common.RedisStreamStockIndicator,
		Group:  common.RedisStreamGroup,
		Start:  msgs[0].ID,
		End:    msgs[0].ID,
		Count:  1,
	}).Result()

	if err != nil {
		s.log.Error("Failed to get pending info", logger.ErrorField(err))
		return
	}

	if len(pendingInfo) == 0 {
		s.log.Warn("pending msg not found, but exist on xautoclaim",
			logger.StringField("stream", common.RedisStreamStockIndicator),
			logger.StringField("message_id", msgs[0].ID))
		return
	}

	msg := msgs[0]
	// The task data is expected to be a JSON string in the 'payload' field.
	taskData, ok := msg.Values["payload"].(string)
	if !ok {
		s.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", msg.ID))
		return
	}

	var streamData dto.StreamDataStockIndicator
	if err := json.Unmarshal([]byte(taskData), &streamData); err != nil {
		s.log.Error("Failed to unmarshal task data", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}

	if pendingInfo[0].RetryCount >= int64(s.cfg.Analyzer.RedisStreamStockIndicatorMaxRetry) {
		s.log.Error("pending msg retry count exceeded",
			logger.StringField("stream", common.RedisStreamStockIndicator),
			logger.StringField("message_id", msg.ID),
			logger.StringField("stock_code", streamData.StockCode),
			logger.StringField("interval", streamData.Interval),
			logger.StringField("range", streamData.Range),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)),
			logger.IntField("max_retry", s.cfg.Analyzer.RedisStreamStockIndicatorMaxRetry),
		)
		msgTelegram := telegram.FormatErrorAlertMessage(
			utils.TimeNowEastern(),
			"Stock Indicator Task",
			fmt.Sprintf("retry count exceeded for stock %s, interval %s, range %s", streamData.StockCode, streamData.Interval, streamData.Range),
			taskData,
		)
		if err := s.telegramBot.SendMessage(msgTelegram); err != nil {
			s.log.Error("Failed to send telegram message retry exceeded", logger.ErrorField(err), logger.StringField("stock_code", streamData.StockCode), logger.StringField("interval", streamData.Interval), logger.StringField("range", streamData.Range))
		}
		if err := s.AckNDel(ctx, common.RedisStreamStockIndicator, msg.ID); err != nil {
			s.log.Error("Failed to acknowledge and delete stock indicator task", logger.ErrorField(err), logger.Field("message_id", msg.ID))
			return
		}
		return
	}

	if err := s.Analyze(ctx, streamData.StockCode, streamData.Interval, streamData.Range); err != nil {
		s.log.Error("Failed to analyze stock", logger.ErrorField(err), logger.Field("message_id", msg.ID), logger.StringField("stock_code", streamData.StockCode), logger.StringField("interval", streamData.Interval), logger.StringField("range", streamData.Range))
		return
	}

	if err := s.AckNDel(ctx, common.RedisStreamStockIndicator, msg.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete stock indicator task", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}
	s.log.Info("Retry stock indicator task processed successfully", logger.StringField("stock_code", streamData.StockCode), logger.StringField("interval", streamData.Interval), logger.StringField("range", streamData.Range))
}
