package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"golang-stock-analyst/internal/analyzer/config"
	"golang-stock-analyst/internal/analyzer/dto"
	"golang-stock-analyst/pkg/logger"
	redisPkg "golang-stock-analyst/pkg/redis"

	"github.com/patrickmn/go-cache"
)

const (
	yahooCookieURL = "https://fc.yahoo.com"

	crumbCacheKey = "crumb"
	crumbCacheTTL = time.Hour

	redisKeyChartData = "yahoo_finance:chart:%s:%s:%s"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// errCrumbExpired marks a quoteSummary rejection that a fresh crumb may fix.
var errCrumbExpired = errors.New("yahoo finance: crumb rejected")

// YahooFinanceRepository fetches chart series and company profiles from the
// Yahoo Finance API.
type YahooFinanceRepository interface {
	GetStockData(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error)
	GetCompanyProfile(ctx context.Context, stockCode string) (*dto.CompanyProfile, error)
}

type yahooFinanceRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	redisClient    *redisPkg.Client
	crumbCache     *cache.Cache
	cookieURL      string
}

// NewYahooFinanceRepository creates a Yahoo Finance repository. The HTTP
// client carries a cookie jar because the quoteSummary crumb is only valid
// together with the session cookie that produced it.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger, redisClient *redisPkg.Client) (YahooFinanceRepository, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	secondsPerRequest := time.Minute / time.Duration(cfg.YahooFinance.MaxRequestPerMinute)
	return &yahooFinanceRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		redisClient:    redisClient,
		crumbCache:     cache.New(crumbCacheTTL, 2*crumbCacheTTL),
		cookieURL:      yahooCookieURL,
	}, nil
}

func (r *yahooFinanceRepository) GetStockData(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error) {
	if err := param.Validate(); err != nil {
		return nil, err
	}

	if cached := r.getCachedStockData(ctx, param); cached != nil {
		return cached, nil
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		r.cfg.YahooFinance.BaseURL, url.PathEscape(param.StockCode), param.Interval, param.Range)

	body, err := r.sendRequest(ctx, http.MethodGet, reqURL)
	if err != nil {
		return nil, err
	}

	var response dto.YahooChartResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chart response: %w", err)
	}
	if response.Chart.Error != nil {
		return nil, response.Chart.Error
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo finance: empty chart result for %s", param.StockCode)
	}

	result := response.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo finance: missing quote data for %s", param.StockCode)
	}
	quote := result.Indicators.Quote[0]

	stockData := &dto.StockData{
		StockCode:   param.StockCode,
		Interval:    param.Interval,
		Range:       param.Range,
		MarketPrice: result.Meta.RegularMarketPrice,
		OHLCV:       make([]dto.StockOHLCV, 0, len(result.Timestamp)),
	}

	// Halted or partial sessions come back as nulls inside the quote
	// arrays; those rows are dropped rather than zero-filled.
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		o, h, l, c := quote.Open[i], quote.High[i], quote.Low[i], quote.Close[i]
		if o == nil || h == nil || l == nil || c == nil || *c == 0 {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		stockData.OHLCV = append(stockData.OHLCV, dto.StockOHLCV{
			Timestamp: ts,
			Open:      *o,
			High:      *h,
			Low:       *l,
			Close:     *c,
			Volume:    volume,
		})
	}

	sort.Slice(stockData.OHLCV, func(i, j int) bool {
		return stockData.OHLCV[i].Timestamp < stockData.OHLCV[j].Timestamp
	})

	r.setCachedStockData(ctx, param, stockData)

	return stockData, nil
}

func (r *yahooFinanceRepository) GetCompanyProfile(ctx context.Context, stockCode string) (*dto.CompanyProfile, error) {
	if stockCode == "" {
		return nil, fmt.Errorf("stock code is required")
	}

	body, err := r.fetchQuoteSummary(ctx, stockCode)
	if errors.Is(err, errCrumbExpired) {
		r.crumbCache.Delete(crumbCacheKey)
		body, err = r.fetchQuoteSummary(ctx, stockCode)
	}
	if err != nil {
		return nil, err
	}

	var response dto.YahooQuoteSummaryResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote summary response: %w", err)
	}
	if response.QuoteSummary.Error != nil {
		return nil, response.QuoteSummary.Error
	}
	if len(response.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo finance: empty quote summary for %s", stockCode)
	}

	return buildCompanyProfile(stockCode, response.QuoteSummary.Result[0]), nil
}

func (r *yahooFinanceRepository) fetchQuoteSummary(ctx context.Context, stockCode string) ([]byte, error) {
	crumb, err := r.getCrumb(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile,summaryDetail,defaultKeyStatistics,price&crumb=%s",
		r.cfg.YahooFinance.BaseURL, url.PathEscape(stockCode), url.QueryEscape(crumb))

	return r.sendRequest(ctx, http.MethodGet, reqURL)
}

// getCrumb returns the cached API crumb, establishing a fresh session cookie
// and crumb when none is cached.
func (r *yahooFinanceRepository) getCrumb(ctx context.Context) (string, error) {
	if cached, found := r.crumbCache.Get(crumbCacheKey); found {
		return cached.(string), nil
	}

	// Hitting fc.yahoo.com sets the session cookie on the jar. The
	// endpoint itself responds 404, which is fine.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cookieURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to establish yahoo session: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	body, err := r.sendRequest(ctx, http.MethodGet, r.cfg.YahooFinance.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("failed to fetch crumb: %w", err)
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" {
		return "", fmt.Errorf("yahoo finance: empty crumb response")
	}

	r.crumbCache.Set(crumbCacheKey, crumb, cache.DefaultExpiration)
	r.log.DebugContext(ctx, "Refreshed Yahoo Finance crumb")

	return crumb, nil
}

func (r *yahooFinanceRepository) getCachedStockData(ctx context.Context, param dto.GetStockDataParam) *dto.StockData {
	if r.redisClient == nil || r.cfg.YahooFinance.CacheTTL <= 0 {
		return nil
	}
	key := fmt.Sprintf(redisKeyChartData, param.StockCode, param.Interval, param.Range)
	raw, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil
	}
	var data dto.StockData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		r.log.Error("Failed to unmarshal cached stock data", logger.ErrorField(err), logger.StringField("key", key))
		return nil
	}
	r.log.DebugContext(ctx, "Stock data cache hit", logger.StringField("key", key))
	return &data
}

func (r *yahooFinanceRepository) setCachedStockData(ctx context.Context, param dto.GetStockDataParam, data *dto.StockData) {
	if r.redisClient == nil || r.cfg.YahooFinance.CacheTTL <= 0 {
		return
	}
	key := fmt.Sprintf(redisKeyChartData, param.StockCode, param.Interval, param.Range)
	raw, err := json.Marshal(data)
	if err != nil {
		r.log.Error("Failed to marshal stock data for cache", logger.ErrorField(err), logger.StringField("key", key))
		return
	}
	if err := r.redisClient.Set(ctx, key, raw, r.cfg.YahooFinance.CacheTTL).Err(); err != nil {
		r.log.Error("Failed to cache stock data", logger.ErrorField(err), logger.StringField("key", key))
	}
}

func (r *yahooFinanceRepository) sendRequest(ctx context.Context, method string, reqURL string) ([]byte, error) {
	fields := []zap.Field{
		zap.String("url", reqURL),
		zap.Int("max_request_per_minute", r.cfg.YahooFinance.MaxRequestPerMinute),
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to wait for request limit", fields...)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to create new http request", fields...)
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to send request to Yahoo Finance API", fields...)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to read response body from Yahoo Finance API", fields...)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", errCrumbExpired, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		fields = append(fields, zap.Int("status_code", resp.StatusCode))
		r.log.ErrorContext(ctx, "Received non-OK response from Yahoo Finance API", fields...)
		return nil, fmt.Errorf("yahoo finance: unexpected status %d", resp.StatusCode)
	}

	return body, nil
}

func buildCompanyProfile(stockCode string, result dto.YahooQuoteSummaryResult) *dto.CompanyProfile {
	profile := &dto.CompanyProfile{StockCode: stockCode}

	if ap := result.AssetProfile; ap != nil {
		profile.Sector = ap.Sector
		profile.Industry = ap.Industry
		profile.Website = ap.Website
		profile.Country = ap.Country
		profile.Description = ap.LongBusinessSummary
		if ap.FullTimeEmployees != nil {
			employees := *ap.FullTimeEmployees
			profile.Employees = &employees
		}
	}
	if sd := result.SummaryDetail; sd != nil {
		profile.TrailingPE = sd.TrailingPE.RawValue()
		profile.ForwardPE = sd.ForwardPE.RawValue()
		profile.PriceToSales = sd.PriceToSales.RawValue()
		profile.MarketCap = sd.MarketCap.RawValue()
		profile.FiftyTwoWeekHigh = sd.FiftyTwoWeekHigh.RawValue()
		profile.FiftyTwoWeekLow = sd.FiftyTwoWeekLow.RawValue()
		profile.AverageVolume = sd.AverageVolume.RawValue()
		profile.DividendRate = sd.DividendRate.RawValue()
		profile.DividendYield = sd.DividendYield.RawValue()
		profile.Beta = sd.Beta.RawValue()
	}
	if ks := result.DefaultKeyStatistics; ks != nil {
		profile.PEGRatio = ks.PegRatio.RawValue()
		profile.PriceToBook = ks.PriceToBook.RawValue()
	}
	if p := result.Price; p != nil {
		profile.Name = p.LongName
		if profile.Name == "" {
			profile.Name = p.ShortName
		}
	}

	return profile
}
