package repository

import (
	"context"
	"errors"

	"golang-stock-analyst/internal/entity"

	"gorm.io/gorm"
)

// StockIndicatorSnapshotRepository defines the interface for persisted
// indicator snapshots.
type StockIndicatorSnapshotRepository interface {
	Create(ctx context.Context, snapshot *entity.StockIndicatorSnapshot) error
	FindLatestByCode(ctx context.Context, stockCode string) (*entity.StockIndicatorSnapshot, error)
}

// NewStockIndicatorSnapshotRepository creates a new GORM-based snapshot repository.
func NewStockIndicatorSnapshotRepository(db *gorm.DB) StockIndicatorSnapshotRepository {
	return &stockIndicatorSnapshotRepository{db: db}
}

type stockIndicatorSnapshotRepository struct {
	db *gorm.DB
}

func (r *stockIndicatorSnapshotRepository) Create(ctx context.Context, snapshot *entity.StockIndicatorSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// FindLatestByCode returns the newest snapshot for a stock, or nil when none
// has been stored yet.
func (r *stockIndicatorSnapshotRepository) FindLatestByCode(ctx context.Context, stockCode string) (*entity.StockIndicatorSnapshot, error) {
	var snapshot entity.StockIndicatorSnapshot
	err := r.db.WithContext(ctx).
		Where("stock_code = ?", stockCode).
		Order("created_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
