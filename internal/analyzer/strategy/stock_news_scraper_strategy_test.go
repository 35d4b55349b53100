package strategy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang-stock-analyst/internal/analyzer/config"
	"golang-stock-analyst/internal/entity"
	"golang-stock-analyst/pkg/logger"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStockNewsRepository struct {
	existing map[string]struct{}
	err      error
}

func (s *stubStockNewsRepository) CreateIgnoreConflict(ctx context.Context, stockNews *entity.StockNews) (bool, error) {
	return true, nil
}

func (s *stubStockNewsRepository) GetExistingHashes(ctx context.Context, hashes []string) (map[string]struct{}, error) {
	return s.existing, s.err
}

func (s *stubStockNewsRepository) FindRecentByCode(ctx context.Context, stockCode string, maxNews int, maxNewsAgeInDays int) ([]entity.StockNews, error) {
	return nil, nil
}

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func feedItem(link, published string, publishedAt *time.Time) *gofeed.Item {
	return &gofeed.Item{
		Title:           "headline",
		Link:            link,
		Published:       published,
		PublishedParsed: publishedAt,
	}
}

func TestNewsHashIdentifier(t *testing.T) {
	item := feedItem("https://finance.yahoo.com/news/acme-beats-estimates.html", "Mon, 05 Aug 2026 13:30:00 +0000", nil)

	// md5 of "https://finance.yahoo.com/news/acme-beats-estimates.html|Mon, 05 Aug 2026 13:30:00 +0000"
	assert.Equal(t, "77eaf95a4523e0620d71746eec4565e0", newsHashIdentifier(item))
}

func TestNewsHashIdentifierVariesWithPublished(t *testing.T) {
	// Republished items under the same link hash differently.
	first := feedItem("https://finance.yahoo.com/news/a.html", "Mon, 05 Aug 2026 13:30:00 +0000", nil)
	second := feedItem("https://finance.yahoo.com/news/a.html", "Tue, 06 Aug 2026 09:00:00 +0000", nil)

	assert.NotEqual(t, newsHashIdentifier(first), newsHashIdentifier(second))
	assert.Equal(t, newsHashIdentifier(first), newsHashIdentifier(first))
}

func TestFilterExistingNewsItems(t *testing.T) {
	now := time.Now()
	fresh := now.AddDate(0, 0, -1)
	stale := now.AddDate(0, 0, -10)

	freshItem := feedItem("https://finance.yahoo.com/news/fresh.html", "Sun, 23 Aug 2026 10:00:00 +0000", &fresh)
	knownItem := feedItem("https://finance.yahoo.com/news/known.html", "Sun, 23 Aug 2026 11:00:00 +0000", &fresh)
	undatedItem := feedItem("https://finance.yahoo.com/news/undated.html", "", nil)
	staleItem := feedItem("https://finance.yahoo.com/news/stale.html", "Fri, 14 Aug 2026 10:00:00 +0000", &stale)

	repo := &stubStockNewsRepository{
		existing: map[string]struct{}{
			newsHashIdentifier(knownItem): {},
		},
	}
	s := &StockNewsScraperStrategy{
		logger:        nopLogger(),
		stockNewsRepo: repo,
	}

	filtered, err := s.filterExistingNewsItems(context.Background(), []*gofeed.Item{freshItem, knownItem, undatedItem, staleItem}, 7)

	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, freshItem.Link, filtered[0].Link)
}

func TestFilterExistingNewsItemsEmptyFeed(t *testing.T) {
	s := &StockNewsScraperStrategy{
		logger:        nopLogger(),
		stockNewsRepo: &stubStockNewsRepository{},
	}

	filtered, err := s.filterExistingNewsItems(context.Background(), nil, 7)

	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestFilterExistingNewsItemsRepositoryError(t *testing.T) {
	now := time.Now()
	item := feedItem("https://finance.yahoo.com/news/a.html", "Sun, 23 Aug 2026 10:00:00 +0000", &now)

	s := &StockNewsScraperStrategy{
		logger:        nopLogger(),
		stockNewsRepo: &stubStockNewsRepository{err: assert.AnError},
	}

	_, err := s.filterExistingNewsItems(context.Background(), []*gofeed.Item{item}, 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestResolveCanonicalLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/canonical":
			w.Write([]byte(`<html><head><link rel="canonical" href="https://news.example.com/articles/real-story"/></head><body></body></html>`))
		case "/both":
			w.Write([]byte(`<html><head><link rel="canonical" href="https://news.example.com/articles/canonical-wins"/><meta property="og:url" content="https://news.example.com/articles/og-loses"/></head><body></body></html>`))
		case "/og":
			w.Write([]byte(`<html><head><meta property="og:url" content="https://news.example.com/articles/og-story"/></head><body></body></html>`))
		case "/plain":
			w.Write([]byte(`<html><head><title>no hints</title></head><body></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := &StockNewsScraperStrategy{
		logger: nopLogger(),
		client: srv.Client(),
	}

	ctx := context.Background()
	assert.Equal(t, "https://news.example.com/articles/real-story", s.resolveCanonicalLink(ctx, srv.URL+"/canonical"))
	assert.Equal(t, "https://news.example.com/articles/canonical-wins", s.resolveCanonicalLink(ctx, srv.URL+"/both"))
	assert.Equal(t, "https://news.example.com/articles/og-story", s.resolveCanonicalLink(ctx, srv.URL+"/og"))

	// Pages without a canonical hint and unreachable pages keep the feed link.
	assert.Equal(t, srv.URL+"/plain", s.resolveCanonicalLink(ctx, srv.URL+"/plain"))
	assert.Equal(t, srv.URL+"/missing", s.resolveCanonicalLink(ctx, srv.URL+"/missing"))
}

func TestResolveCanonicalLinkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	link := srv.URL + "/article"
	srv.Close()

	s := &StockNewsScraperStrategy{
		logger: nopLogger(),
		client: &http.Client{Timeout: time.Second},
	}

	assert.Equal(t, link, s.resolveCanonicalLink(context.Background(), link))
}

func TestFeedURL(t *testing.T) {
	cfg := &config.Config{}
	s := &StockNewsScraperStrategy{cfg: cfg, logger: nopLogger()}

	assert.Equal(t, "https://feeds.finance.yahoo.com/rss/2.0/headline?s=AAPL&region=US&lang=en-US", s.feedURL("AAPL"))

	cfg.News.RSSBaseURL = "http://localhost:8080/rss"
	assert.Equal(t, "http://localhost:8080/rss?s=BRK-B&region=US&lang=en-US", s.feedURL("BRK-B"))
}
