package repository

import (
	"context"
	"errors"

	"golang-stock-analyst/internal/entity"

	"gorm.io/gorm"
)

// StockReportRepository defines the interface for persisted stock reports.
type StockReportRepository interface {
	Create(ctx context.Context, report *entity.StockReport) error
	FindLatestByCode(ctx context.Context, stockCode string) (*entity.StockReport, error)
}

// NewStockReportRepository creates a new GORM-based report repository.
func NewStockReportRepository(db *gorm.DB) StockReportRepository {
	return &stockReportRepository{db: db}
}

type stockReportRepository struct {
	db *gorm.DB
}

func (r *stockReportRepository) Create(ctx context.Context, report *entity.StockReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// FindLatestByCode returns the newest report for a stock, or nil when none
// has been stored yet.
func (r *stockReportRepository) FindLatestByCode(ctx context.Context, stockCode string) (*entity.StockReport, error) {
	var report entity.StockReport
	err := r.db.WithContext(ctx).
		Where("stock_code = ?", stockCode).
		Order("created_at DESC").
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}
