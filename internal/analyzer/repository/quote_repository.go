package repository

import (
	"context"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"golang-stock-analyst/internal/analyzer/dto"
	"golang-stock-analyst/pkg/logger"
)

// QuoteRepository serves live market quotes.
type QuoteRepository interface {
	GetQuote(ctx context.Context, stockCode string) (*dto.StockQuote, error)
	GetQuotes(ctx context.Context, stockCodes []string) ([]dto.StockQuote, error)
}

type quoteRepository struct {
	log *logger.Logger
}

func NewQuoteRepository(log *logger.Logger) QuoteRepository {
	return &quoteRepository{log: log}
}

func (r *quoteRepository) GetQuote(ctx context.Context, stockCode string) (*dto.StockQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := equity.Get(stockCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", stockCode, err)
	}
	if q == nil {
		return nil, fmt.Errorf("no quote found for %s", stockCode)
	}

	mapped := mapQuote(q)
	return &mapped, nil
}

// GetQuotes fetches quotes for many stocks in one round trip. Symbols the
// upstream does not know are simply absent from the result, so one bad code
// never sinks the batch.
func (r *quoteRepository) GetQuotes(ctx context.Context, stockCodes []string) ([]dto.StockQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(stockCodes) == 0 {
		return nil, nil
	}

	iter := equity.List(stockCodes)
	quotes := make([]dto.StockQuote, 0, len(stockCodes))
	for iter.Next() {
		quotes = append(quotes, mapQuote(iter.Equity()))
	}
	if err := iter.Err(); err != nil {
		if len(quotes) == 0 {
			return nil, fmt.Errorf("failed to list quotes: %w", err)
		}
		r.log.Error("Partial quote list result", logger.ErrorField(err), logger.IntField("fetched", len(quotes)), logger.IntField("requested", len(stockCodes)))
	}

	return quotes, nil
}

func mapQuote(q *finance.Equity) dto.StockQuote {
	return dto.StockQuote{
		StockCode:        q.Symbol,
		Price:            q.RegularMarketPrice,
		Change:           q.RegularMarketChange,
		ChangePercent:    q.RegularMarketChangePercent,
		Volume:           int64(q.RegularMarketVolume),
		DayHigh:          q.RegularMarketDayHigh,
		DayLow:           q.RegularMarketDayLow,
		MarketCap:        q.MarketCap,
		FiftyTwoWeekHigh: q.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  q.FiftyTwoWeekLow,
	}
}
