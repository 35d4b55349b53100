package repository

import (
	"context"
	"fmt"
	"time"

	"golang-stock-analyst/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockNewsRepository defines the interface for interacting with stock news data.
type StockNewsRepository interface {
	CreateIgnoreConflict(ctx context.Context, stockNews *entity.StockNews) (bool, error)
	GetExistingHashes(ctx context.Context, hashes []string) (map[string]struct{}, error)
	FindRecentByCode(ctx context.Context, stockCode string, maxNews int, maxNewsAgeInDays int) ([]entity.StockNews, error)
}

// NewStockNewsRepository creates a new instance of StockNewsRepository.
func NewStockNewsRepository(db *gorm.DB) StockNewsRepository {
	return &stockNewsRepository{db: db}
}

type stockNewsRepository struct {
	db *gorm.DB
}

// CreateIgnoreConflict inserts a news row, skipping items already stored
// under the same hash identifier. It reports whether a row was written.
func (r *stockNewsRepository) CreateIgnoreConflict(ctx context.Context, stockNews *entity.StockNews) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash_identifier"}},
		DoNothing: true,
	}).Create(stockNews)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// GetExistingHashes returns the subset of hashes already present, letting the
// scraper skip canonical-link resolution for known items.
func (r *stockNewsRepository) GetExistingHashes(ctx context.Context, hashes []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(hashes))
	if len(hashes) == 0 {
		return existing, nil
	}

	var found []string
	err := r.db.WithContext(ctx).
		Model(&entity.StockNews{}).
		Where("hash_identifier IN ?", hashes).
		Pluck("hash_identifier", &found).Error
	if err != nil {
		return nil, err
	}

	for _, h := range found {
		existing[h] = struct{}{}
	}
	return existing, nil
}

// FindRecentByCode returns the freshest stored news tagged with the stock
// code, newest first.
func (r *stockNewsRepository) FindRecentByCode(ctx context.Context, stockCode string, maxNews int, maxNewsAgeInDays int) ([]entity.StockNews, error) {
	var news []entity.StockNews
	since := time.Now().AddDate(0, 0, -maxNewsAgeInDays)

	err := r.db.WithContext(ctx).
		Where("? = ANY(stock_codes)", stockCode).
		Where("published_at >= ?", since).
		Order("published_at DESC").
		Limit(maxNews).
		Find(&news).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find recent news for %s: %w", stockCode, err)
	}

	return news, nil
}
