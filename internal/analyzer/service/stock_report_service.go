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
	"golang-stock-analyst/internal/report"
	"golang-stock-analyst/pkg/common"
	"golang-stock-analyst/pkg/logger"
	redisPkg "golang-stock-analyst/pkg/redis"
	"golang-stock-analyst/pkg/telegram"
	"golang-stock-analyst/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	// Reports always aggregate a daily series, regardless of the job range.
	reportDataInterval = "1d"
	reportNewsLimit    = 5

	defaultNewsMaxAgeDays = 7
)

// StockReportService consumes report tasks, aggregates chart data, company
// metadata and stored news into a report document and persists it.
type StockReportService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	BuildReport(ctx context.Context, stockCode string, rangeData string) error
}

type stockReportService struct {
	cfg           *config.Config
	log           *logger.Logger
	redisClient   *redisPkg.Client
	yahooFinance  repository.YahooFinanceRepository
	stockNewsRepo repository.StockNewsRepository
	reportRepo    repository.StockReportRepository
	telegramBot   telegram.Notifier
}

// NewStockReportService creates a new StockReportService.
func NewStockReportService(cfg *config.Config, log *logger.Logger,
	redisClient *redisPkg.Client,
	yahooFinance repository.YahooFinanceRepository,
	stockNewsRepo repository.StockNewsRepository,
	reportRepo repository.StockReportRepository,
	telegramBot telegram.Notifier) StockReportService {
	return &stockReportService{
		cfg:           cfg,
		log:           log,
		redisClient:   redisClient,
		yahooFinance:  yahooFinance,
		stockNewsRepo: stockNewsRepo,
		reportRepo:    reportRepo,
		telegramBot:   telegramBot,
	}
}

func (s *stockReportService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamStockReport, ">"}, // ">" means only new messages
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

	var streamData dto.StreamDataStockReport
	if err := json.Unmarshal([]byte(taskData), &streamData); err != nil {
		s.log.Error("Failed to unmarshal task data", logger.ErrorField(err), logger.Field("message_id", message.ID))
		return
	}

	s.log.Debug("Processing stock report task", logger.StringField("stock_code", streamData.StockCode), logger.StringField("range", streamData.Range))

	if err := s.BuildReport(ctx, streamData.StockCode, streamData.Range); err != nil {
		s.log.Error("Failed to build stock report", logger.ErrorField(err), logger.Field("message_id", message.ID), logger.StringField("stock_code", streamData.StockCode), logger.StringField("range", streamData.Range))
		return
	}
	if err := s.AckNDel(ctx, common.RedisStreamStockReport, message.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete stock report task", logger.ErrorField(err), logger.Field("message_id", message.ID))
		return
	}

	s.log.Debug("Stock report task processed successfully", logger.StringField("stock_code", streamData.StockCode), logger.StringField("range", streamData.Range))
}

// BuildReport aggregates the report inputs for one ticker and persists the
// result. A missing company profile or empty news set never fails the build,
// only an unusable price series does.
func (s *stockReportService) BuildReport(ctx context.Context, stockCode string, rangeData string) error {
	stockData, err := s.yahooFinance.GetStockData(ctx, dto.GetStockDataParam{
		StockCode: stockCode,
		Interval:  reportDataInterval,
		Range:     rangeData,
	})
	if err != nil {
		s.log.Error("Failed to get stock data", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return err
	}

	profile, err := s.yahooFinance.GetCompanyProfile(ctx, stockCode)
	if err != nil {
		s.log.Warn("Failed to get company profile, proceeding without metadata", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		profile = nil
	}

	rep, err := report.Build(stockCode, stockData.Bars(), profile.ReportMetadata(), s.recentHeadlines(ctx, stockCode))
	if err != nil {
		s.log.Error("Failed to build report", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return fmt.Errorf("failed to build report for %s: %w", stockCode, err)
	}

	dataJSON, err := json.Marshal(rep)
	if err != nil {
		s.log.Error("Failed to marshal report", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return err
	}

	err = s.reportRepo.Create(ctx, &entity.StockReport{
		StockCode:   stockCode,
		Range:       rangeData,
		WeekReturn:  rep.Performance.WeekReturn,
		MonthReturn: rep.Performance.MonthReturn,
		YearReturn:  rep.Performance.YearReturn,
		Volatility:  rep.Performance.Volatility,
		Data:        dataJSON,
	})
	if err != nil {
		s.log.Error("Failed to create stock report", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return err
	}

	// The report is already persisted, a failed notification is not worth a retry.
	msg := telegram.FormatStockReportMessage(stockCode, rep)
	if err := s.telegramBot.SendMessage(msg); err != nil {
		s.log.Error("Failed to send stock report message", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
	}

	return nil
}

// recentHeadlines loads the freshest stored news for the ticker. Failures
// degrade to an empty list.
func (s *stockReportService) recentHeadlines(ctx context.Context, stockCode string) []report.Headline {
	maxAgeDays := s.cfg.News.MaxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = defaultNewsMaxAgeDays
	}

	news, err := s.stockNewsRepo.FindRecentByCode(ctx, stockCode, reportNewsLimit, maxAgeDays)
	if err != nil {
		s.log.Warn("Failed to load recent news, proceeding without headlines", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return nil
	}

	headlines := make([]report.Headline, 0, len(news))
	for _, item := range news {
		headlines = append(headlines, report.Headline{Title: item.Title, Link: item.Link})
	}
	return headlines
}

func (s *stockReportService) AckNDel(ctx context.Context, streamName string, messageID string) error {
	if err := s.redisClient.XAck(ctx, streamName, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge stock report task", logger.ErrorField(err), logger.Field("message_id", messageID))
		return err
	}
	if err := s.redisClient.XDel(ctx, streamName, messageID).Err(); err != nil {
		s.log.Error("Failed to delete stock report task", logger.ErrorField(err), logger.Field("message_id", messageID))
		return err
	}
	return nil
}

func (s *stockReportService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamStockReport,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Analyzer.RedisStreamStockReportMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()

	if err != nil {
		s.log.Error("Failed to claim stock report task on retry", logger.ErrorField(err))
		return
	}

	if len(msgs) == 0 {
		s.log.Debug("Retry no pending messages found", logger.StringField("stream", common.RedisStreamStockReport))
		return
	}

	s.log.Info("Found pending messages", logger.StringField("stream", common.RedisStreamStockReport))

	pendingInfo, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: common.RedisStreamStockReport,
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
			logger.StringField("stream", common.RedisStreamStockReport),
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

	var streamData dto.StreamDataStockReport
	if err := json.Unmarshal([]byte(taskData), &streamData); err != nil {
		s.log.Error("Failed to unmarshal task data", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}

	if pendingInfo[0].RetryCount >= int64(s.cfg.Analyzer.RedisStreamStockReportMaxRetry) {
		s.log.Error("pending msg retry count exceeded",
			logger.StringField("stream", common.RedisStreamStockReport),
			logger.StringField("message_id", msg.ID),
			logger.StringField("stock_code", streamData.StockCode),
			logger.StringField("range", streamData.Range),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)),
			logger.IntField("max_retry", s.cfg.Analyzer.RedisStreamStockReportMaxRetry),
		)
		msgTelegram := telegram.FormatErrorAlertMessage(
			utils.TimeNowEastern(),
			"Stock Report Task",
			fmt.Sprintf("retry count exceeded for stock %s, range %s", streamData.StockCode, streamData.Range),
			taskData,
		)
		if err := s.telegramBot.SendMessage(msgTelegram); err != nil {
			s.log.Error("Failed to send telegram message retry exceeded", logger.ErrorField(err), logger.StringField("stock_code", streamData.StockCode), logger.StringField("range", streamData.Range))
		}
		if err := s.AckNDel(ctx, common.RedisStreamStockReport, msg.ID); err != nil {
			s.log.Error("Failed to acknowledge and delete stock report task", logger.ErrorField(err), logger.Field("message_id", msg.ID))
			return
		}
		return
	}

	if err := s.BuildReport(ctx, streamData.StockCode, streamData.Range); err != nil {
		s.log.Error("Failed to build stock report", logger.ErrorField(err), logger.Field("message_id", msg.ID), logger.StringField("stock_code", streamData.StockCode), logger.StringField("range", streamData.Range))
		return
	}

	if err := s.AckNDel(ctx, common.RedisStreamStockReport, msg.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete stock report task", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}
	s.log.Info("Retry stock report task processed successfully", logger.StringField("stock_code", streamData.StockCode), logger.StringField("range", streamData.Range))
}
