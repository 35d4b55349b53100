package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang-stock-analyst/internal/analyzer/dto"
	"golang-stock-analyst/internal/analyzer/repository"
	"golang-stock-analyst/internal/entity"
	"golang-stock-analyst/pkg/logger"
	redisPkg "golang-stock-analyst/pkg/redis"
	"golang-stock-analyst/pkg/telegram"
	"golang-stock-analyst/pkg/utils"

	redis "github.com/redis/go-redis/v9"
)

const (
	REDIS_KEY_STOCK_PRICE_ALERT = "stock_price_alert:%s:%s"
	REDIS_KEY_LAST_PRICE        = "last_price:%s"

	defaultAlertCacheDuration = "1h"
	defaultRSIOverbought      = 70
	defaultRSIOversold        = 30
)

// StockPriceAlertStrategy checks live quotes against the latest stored
// indicator snapshot and pushes Telegram alerts for overbought/oversold RSI
// and 52-week level breaches.
type StockPriceAlertStrategy struct {
	logger             *logger.Logger
	quoteRepository    repository.QuoteRepository
	snapshotRepository repository.StockIndicatorSnapshotRepository
	stocksRepository   repository.StocksRepository
	telegramNotifier   telegram.Notifier
	redisClient        *redisPkg.Client
}

// StockPriceAlertPayload defines the payload for stock price alert.
type StockPriceAlertPayload struct {
	AlertCacheDuration          string  `json:"alert_cache_duration"`
	AlertResendThresholdPercent float64 `json:"alert_resend_threshold_percent"`
	RSIOverbought               float64 `json:"rsi_overbought"`
	RSIOversold                 float64 `json:"rsi_oversold"`
	High52WeekProximityPercent  float64 `json:"high_52_week_proximity_percent"`
	Low52WeekProximityPercent   float64 `json:"low_52_week_proximity_percent"`
}

// StockPriceAlertResult defines the result for stock price alert.
type StockPriceAlertResult struct {
	StockCode string `json:"stock_code"`
	Status    string `json:"status"`
	Errors    string `json:"errors"`
}

// priceAlertTrigger is one fired rule: the observed value and the level it
// was compared against.
type priceAlertTrigger struct {
	alertType telegram.AlertType
	value     float64
	reference float64
}

// NewStockPriceAlertStrategy creates a new instance of StockPriceAlertStrategy.
func NewStockPriceAlertStrategy(logger *logger.Logger, quoteRepository repository.QuoteRepository, snapshotRepository repository.StockIndicatorSnapshotRepository, stocksRepository repository.StocksRepository, telegramNotifier telegram.Notifier, redisClient *redisPkg.Client) *StockPriceAlertStrategy {
	return &StockPriceAlertStrategy{
		logger:             logger,
		quoteRepository:    quoteRepository,
		snapshotRepository: snapshotRepository,
		stocksRepository:   stocksRepository,
		telegramNotifier:   telegramNotifier,
		redisClient:        redisClient,
	}
}

// GetType returns the job type this strategy handles.
func (s *StockPriceAlertStrategy) GetType() entity.JobType {
	return entity.JobTypeStockPriceAlert
}

// Execute runs the stock price alert job.
func (s *StockPriceAlertStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	s.logger.DebugContext(ctx, "Executing stock price alert job", logger.IntField("job_id", int(job.ID)))

	var (
		payload StockPriceAlertPayload
		results []StockPriceAlertResult
	)
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return "", fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.AlertCacheDuration == "" {
		payload.AlertCacheDuration = defaultAlertCacheDuration
	}
	if payload.RSIOverbought <= 0 {
		payload.RSIOverbought = defaultRSIOverbought
	}
	if payload.RSIOversold <= 0 {
		payload.RSIOversold = defaultRSIOversold
	}

	alertCacheDuration, err := time.ParseDuration(payload.AlertCacheDuration)
	if err != nil {
		s.logger.Error("Failed to parse alert_cache_duration", logger.ErrorField(err), logger.StringField("alert_cache_duration", payload.AlertCacheDuration), logger.IntField("job_id", int(job.ID)))
		return "", fmt.Errorf("failed to parse alert_cache_duration: %w", err)
	}

	stocks, err := s.stocksRepository.GetStocks(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get stocks: %w", err)
	}

	for _, stock := range stocks {
		if !utils.ShouldContinue(ctx, s.logger) {
			break
		}

		resultData := StockPriceAlertResult{
			StockCode: stock.Code,
		}

		s.logger.DebugContext(ctx, "Processing stock price alert", logger.StringField("stock_code", stock.Code))
		quote, err := s.quoteRepository.GetQuote(ctx, stock.Code)
		if err != nil {
			s.logger.Error("Failed to get quote", logger.ErrorField(err), logger.StringField("stock_code", stock.Code))
			resultData.Status = FAILED
			resultData.Errors = err.Error()
			results = append(results, resultData)
			continue
		}

		// set last price in Redis
		key := fmt.Sprintf(REDIS_KEY_LAST_PRICE, stock.Code)
		redisPipe := s.redisClient.Pipeline()
		redisPipe.HSet(ctx, key, map[string]interface{}{
			"price":     quote.Price,
			"timestamp": time.Now().Unix(),
		})
		redisPipe.Expire(ctx, key, alertCacheDuration+2*time.Minute)
		if _, errRedis := redisPipe.Exec(ctx); errRedis != nil {
			s.logger.Error("Failed to execute Redis pipeline",
				logger.ErrorField(errRedis), logger.StringField("stock_code", stock.Code))
		}

		rsi := s.latestRSI(ctx, stock.Code)
		triggers := evaluatePriceAlerts(quote, rsi, payload)

		var sendErr error
		for _, trigger := range triggers {
			if err := s.sendPriceAlert(ctx, stock.Code, trigger, alertCacheDuration, payload.AlertResendThresholdPercent); err != nil {
				sendErr = err
			}
		}

		if sendErr != nil {
			s.logger.Error("Failed to send price alert", logger.ErrorField(sendErr), logger.StringField("stock_code", stock.Code))
			resultData.Status = FAILED
			resultData.Errors = sendErr.Error()
		} else if len(triggers) > 0 {
			resultData.Status = SUCCESS
		} else {
			resultData.Status = SKIPPED
		}
		results = append(results, resultData)
	}

	resultJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	return string(resultJSON), nil
}

// latestRSI reads the RSI from the most recent stored indicator snapshot.
// Any failure is logged and treated as no RSI available.
func (s *StockPriceAlertStrategy) latestRSI(ctx context.Context, stockCode string) *float64 {
	snapshot, err := s.snapshotRepository.FindLatestByCode(ctx, stockCode)
	if err != nil {
		s.logger.Error("Failed to load latest indicator snapshot", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return nil
	}
	if snapshot == nil {
		return nil
	}

	var data dto.IndicatorSnapshotData
	if err := json.Unmarshal(snapshot.Data, &data); err != nil {
		s.logger.Error("Failed to unmarshal indicator snapshot data", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return nil
	}
	if data.TrendAnalysis == nil {
		return nil
	}
	return data.TrendAnalysis.RSI
}

// evaluatePriceAlerts applies the alert rules to one quote. A zero proximity
// percent means the rule fires only on an exact 52-week level breach.
func evaluatePriceAlerts(quote *dto.StockQuote, rsi *float64, payload StockPriceAlertPayload) []priceAlertTrigger {
	var triggers []priceAlertTrigger

	if rsi != nil {
		if *rsi >= payload.RSIOverbought {
			triggers = append(triggers, priceAlertTrigger{alertType: telegram.RSIOverbought, value: *rsi, reference: payload.RSIOverbought})
		}
		if *rsi <= payload.RSIOversold {
			triggers = append(triggers, priceAlertTrigger{alertType: telegram.RSIOversold, value: *rsi, reference: payload.RSIOversold})
		}
	}

	if quote.FiftyTwoWeekHigh > 0 && quote.Price >= quote.FiftyTwoWeekHigh*(1-payload.High52WeekProximityPercent/100) {
		triggers = append(triggers, priceAlertTrigger{alertType: telegram.Near52WeekHigh, value: quote.Price, reference: quote.FiftyTwoWeekHigh})
	}
	if quote.FiftyTwoWeekLow > 0 && quote.Price <= quote.FiftyTwoWeekLow*(1+payload.Low52WeekProximityPercent/100) {
		triggers = append(triggers, priceAlertTrigger{alertType: telegram.Near52WeekLow, value: quote.Price, reference: quote.FiftyTwoWeekLow})
	}

	return triggers
}

func (s *StockPriceAlertStrategy) sendPriceAlert(ctx context.Context, stockCode string, trigger priceAlertTrigger, cacheDuration time.Duration, alertResendThresholdPercent float64) error {
	ok, err := s.shouldTriggerAlert(ctx, stockCode, trigger, alertResendThresholdPercent)
	if err != nil {
		s.logger.Error("Failed to check alert", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return err
	}
	if !ok {
		return nil
	}

	message := telegram.FormatPriceAlertMessage(trigger.alertType, stockCode, trigger.value, trigger.reference, time.Now().Unix())
	if err := s.telegramNotifier.SendMessage(message); err != nil {
		s.logger.Error("Failed to send alert", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
	}

	s.logger.Debug("Send alert", logger.StringField("stock_code", stockCode), logger.StringField("alert_type", string(trigger.alertType)))

	return s.redisClient.Set(ctx, fmt.Sprintf(REDIS_KEY_STOCK_PRICE_ALERT, trigger.alertType, stockCode), trigger.value, cacheDuration).Err()
}

func (s *StockPriceAlertStrategy) getLastAlertValue(ctx context.Context, stockCode string, alertType telegram.AlertType) (float64, error) {
	lastAlertValue, err := s.redisClient.Get(ctx, fmt.Sprintf(REDIS_KEY_STOCK_PRICE_ALERT, alertType, stockCode)).Result()
	if err != nil && errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(lastAlertValue, 64)
}

func (s *StockPriceAlertStrategy) shouldTriggerAlert(ctx context.Context, stockCode string, trigger priceAlertTrigger, alertResendThresholdPercent float64) (bool, error) {
	lastAlertValue, err := s.getLastAlertValue(ctx, stockCode, trigger.alertType)
	if err != nil {
		return false, err
	}

	if lastAlertValue == 0 {
		return true, nil
	}

	diff := math.Abs(trigger.value - lastAlertValue)
	percentChange := (diff / lastAlertValue) * 100

	if percentChange >= alertResendThresholdPercent {
		s.logger.Debug("Trigger resend alert", logger.StringField("stock_code", stockCode), logger.IntField("trigger_value", int(trigger.value)), logger.IntField("last_alert_value", int(lastAlertValue)), logger.IntField("percent_change", int(percentChange)))
		return true, nil
	}

	s.logger.Debug("Skip resend alert", logger.StringField("stock_code", stockCode), logger.IntField("trigger_value", int(trigger.value)), logger.IntField("last_alert_value", int(lastAlertValue)), logger.IntField("percent_change", int(percentChange)))

	return false, nil
}
