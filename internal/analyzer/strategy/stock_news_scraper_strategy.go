package strategy

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang-stock-analyst/internal/analyzer/config"
	"golang-stock-analyst/internal/analyzer/repository"
	"golang-stock-analyst/internal/entity"
	"golang-stock-analyst/pkg/logger"
	"golang-stock-analyst/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/lib/pq"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
)

const (
	defaultRSSBaseURL      = "https://feeds.finance.yahoo.com/rss/2.0/headline"
	newsFeedCacheKey       = "news_feed:%s"
	newsFeedCacheDuration  = 15 * time.Minute
	defaultMaxNewsPerStock = 10
	defaultMaxNewsAgeDays  = 7
)

// StockNewsScraperStrategy pulls each stock's Yahoo Finance headline feed and
// stores fresh items, resolving every link to its canonical URL first.
type StockNewsScraperStrategy struct {
	cfg           *config.Config
	logger        *logger.Logger
	stockNewsRepo repository.StockNewsRepository
	stockRepo     repository.StocksRepository
	client        *http.Client
	inmemoryCache *cache.Cache
}

type StockNewsScraperPayload struct {
	AdditionalStockCodes []string `json:"additional_stock_codes"`
	DelayInterval        int      `json:"delay_interval"`
	MaxNews              int      `json:"max_news"`
	MaxNewsAgeInDays     int      `json:"max_news_age_in_days"`
	MaxConcurrent        int      `json:"max_concurrent"`
}

type scrapeResult struct {
	StockCode   string   `json:"stock_code"`
	Status      string   `json:"status"`
	FeedURL     string   `json:"feed_url"`
	FailedLinks []string `json:"failed_links"`
	Errors      []string `json:"errors"`
}

// NewStockNewsScraperStrategy creates a new instance of StockNewsScraperStrategy.
func NewStockNewsScraperStrategy(cfg *config.Config, logger *logger.Logger, stockNewsRepo repository.StockNewsRepository, stockRepo repository.StocksRepository) *StockNewsScraperStrategy {
	return &StockNewsScraperStrategy{
		cfg:           cfg,
		logger:        logger,
		stockNewsRepo: stockNewsRepo,
		stockRepo:     stockRepo,
		client:        &http.Client{Timeout: 15 * time.Second},
		inmemoryCache: cache.New(newsFeedCacheDuration, 2*newsFeedCacheDuration),
	}
}

// GetType returns the job type this strategy handles.
func (s *StockNewsScraperStrategy) GetType() entity.JobType {
	return entity.JobTypeStockNewsScraper
}

// Execute runs the stock news scraping job.
func (s *StockNewsScraperStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	var payload StockNewsScraperPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.MaxConcurrent <= 0 {
		payload.MaxConcurrent = 1
	}
	if payload.MaxNews <= 0 {
		payload.MaxNews = defaultMaxNewsPerStock
	}
	if payload.MaxNewsAgeInDays <= 0 {
		payload.MaxNewsAgeInDays = s.cfg.News.MaxAgeDays
	}
	if payload.MaxNewsAgeInDays <= 0 {
		payload.MaxNewsAgeInDays = defaultMaxNewsAgeDays
	}

	stocks, err := s.stockRepo.GetStocks(ctx)
	if err != nil {
		s.logger.Error("Failed to get stocks", logger.ErrorField(err))
		return "", fmt.Errorf("failed to get stocks: %w", err)
	}

	stockCodes := make([]string, 0, len(stocks)+len(payload.AdditionalStockCodes))
	for _, stock := range stocks {
		stockCodes = append(stockCodes, stock.Code)
	}
	stockCodes = append(stockCodes, payload.AdditionalStockCodes...)

	var (
		results []scrapeResult
		wg      sync.WaitGroup
		mu      sync.Mutex
	)
	semaphore := make(chan struct{}, payload.MaxConcurrent)

	for _, stockCode := range stockCodes {
		if !utils.ShouldContinue(ctx, s.logger) {
			break
		}
		stockCode := stockCode
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result := s.scrapeFeed(ctx, stockCode, payload)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		})
	}

	wg.Wait()

	resultJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	return string(resultJSON), nil
}

func (s *StockNewsScraperStrategy) scrapeFeed(ctx context.Context, stockCode string, payload StockNewsScraperPayload) scrapeResult {
	result := scrapeResult{
		StockCode:   stockCode,
		FeedURL:     s.feedURL(stockCode),
		FailedLinks: []string{},
		Errors:      []string{},
	}

	cacheKey := fmt.Sprintf(newsFeedCacheKey, stockCode)
	if _, found := s.inmemoryCache.Get(cacheKey); found {
		s.logger.Debug("Feed fetched recently, skipping", logger.StringField("stock_code", stockCode))
		result.Status = SKIPPED
		return result
	}

	s.logger.Info("Processing RSS feed", logger.StringField("url", result.FeedURL))
	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(result.FeedURL, ctx)
	if err != nil {
		s.logger.Error("Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		result.Status = FAILED
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	sort.Slice(feed.Items, func(i, j int) bool {
		if feed.Items[i].PublishedParsed == nil || feed.Items[j].PublishedParsed == nil {
			return false
		}
		return feed.Items[i].PublishedParsed.After(*feed.Items[j].PublishedParsed)
	})

	filteredItems, err := s.filterExistingNewsItems(ctx, feed.Items, payload.MaxNewsAgeInDays)
	if err != nil {
		s.logger.Error("Failed to filter existing news items", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		result.Status = FAILED
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	s.logger.Info("Filtered news items",
		logger.IntField("original_count", len(feed.Items)),
		logger.IntField("filtered_count", len(filteredItems)),
		logger.StringField("stock_code", stockCode),
	)

	countSuccess := 0
	for _, item := range filteredItems {
		if !utils.ShouldContinue(ctx, s.logger) {
			break
		}
		if countSuccess >= payload.MaxNews {
			break
		}

		status, news, err := s.processNewsItem(ctx, stockCode, item)
		if err != nil {
			result.FailedLinks = append(result.FailedLinks, item.Link)
			result.Errors = append(result.Errors, err.Error())
			s.logger.Error("Failed to process news item", logger.ErrorField(err), logger.StringField("title", item.Title))
			continue
		}
		if status != SUCCESS {
			continue
		}
		countSuccess++
		s.logger.Debug("Stored news item",
			logger.StringField("stock_code", stockCode),
			logger.StringField("link", news.Link),
			logger.IntField("count_success", countSuccess),
		)
		if payload.DelayInterval > 0 {
			time.Sleep(time.Duration(payload.DelayInterval) * time.Second)
		}
	}

	s.inmemoryCache.Set(cacheKey, struct{}{}, cache.DefaultExpiration)

	if len(result.FailedLinks) == 0 {
		result.Status = SUCCESS
	} else {
		result.Status = FAILED
	}
	return result
}

func (s *StockNewsScraperStrategy) feedURL(stockCode string) string {
	base := s.cfg.News.RSSBaseURL
	if base == "" {
		base = defaultRSSBaseURL
	}
	return fmt.Sprintf("%s?s=%s&region=US&lang=en-US", base, url.QueryEscape(stockCode))
}

// filterExistingNewsItems drops feed items already stored (by hash
// identifier) along with undated and stale ones.
func (s *StockNewsScraperStrategy) filterExistingNewsItems(ctx context.Context, items []*gofeed.Item, maxNewsAgeInDays int) ([]*gofeed.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	hashes := make([]string, 0, len(items))
	for _, item := range items {
		hashes = append(hashes, newsHashIdentifier(item))
	}

	existing, err := s.stockNewsRepo.GetExistingHashes(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing news hashes: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -maxNewsAgeInDays)

	var filtered []*gofeed.Item
	for i, item := range items {
		if _, ok := existing[hashes[i]]; ok {
			continue
		}
		if item.PublishedParsed == nil {
			s.logger.Debug("News published date is nil", logger.StringField("rss", item.Link))
			continue
		}
		if item.PublishedParsed.Before(cutoff) {
			continue
		}
		filtered = append(filtered, item)
	}

	return filtered, nil
}

func (s *StockNewsScraperStrategy) processNewsItem(ctx context.Context, stockCode string, item *gofeed.Item) (string, entity.StockNews, error) {
	if item.PublishedParsed == nil {
		return FAILED, entity.StockNews{}, fmt.Errorf("missing published date")
	}

	canonicalLink := s.resolveCanonicalLink(ctx, item.Link)

	parsedURL, err := url.Parse(canonicalLink)
	if err != nil {
		s.logger.Error("Could not parse canonical URL", logger.StringField("url", canonicalLink), logger.ErrorField(err))
		return FAILED, entity.StockNews{}, fmt.Errorf("failed to parse canonical URL: %w", err)
	}

	news := entity.StockNews{
		Title:          utils.CleanToValidUTF8(item.Title),
		Link:           canonicalLink,
		Source:         parsedURL.Hostname(),
		PublishedAt:    item.PublishedParsed,
		HashIdentifier: newsHashIdentifier(item),
		RSSLink:        item.Link,
		StockCodes:     pq.StringArray{stockCode},
	}

	inserted, err := s.stockNewsRepo.CreateIgnoreConflict(ctx, &news)
	if err != nil {
		s.logger.Error("Failed to create stock news", logger.ErrorField(err), logger.StringField("link", news.Link))
		return FAILED, news, fmt.Errorf("failed to create stock news: %w", err)
	}
	if !inserted {
		return SKIPPED, news, nil
	}

	return SUCCESS, news, nil
}

// resolveCanonicalLink follows the article page and prefers its declared
// canonical URL over the feed link. Any failure falls back to the feed link.
func (s *StockNewsScraperStrategy) resolveCanonicalLink(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return link
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("Failed to fetch article page", logger.ErrorField(err), logger.StringField("url", link))
		return link
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return link
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.logger.Debug("Failed to parse article page", logger.ErrorField(err), logger.StringField("url", link))
		return link
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && href != "" {
		return href
	}
	if content, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok && content != "" {
		return content
	}
	return link
}

func newsHashIdentifier(item *gofeed.Item) string {
	sum := md5.Sum([]byte(item.Link + "|" + item.Published))
	return hex.EncodeToString(sum[:])
}
