package repository

import (
	"context"

	"golang-stock-analyst/internal/entity"

	"gorm.io/gorm"
)

type StocksRepository interface {
	GetStocks(ctx context.Context) ([]entity.Stock, error)
	GetStocksByCodes(ctx context.Context, codes []string) ([]entity.Stock, error)
}

type stocksRepository struct {
	db *gorm.DB
}

func NewStocksRepository(db *gorm.DB) StocksRepository {
	return &stocksRepository{db: db}
}

func (s *stocksRepository) GetStocks(ctx context.Context) ([]entity.Stock, error) {
	var stocks []entity.Stock
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (s *stocksRepository) GetStocksByCodes(ctx context.Context, codes []string) ([]entity.Stock, error) {
	var stocks []entity.Stock
	if err := s.db.WithContext(ctx).Where("code IN ?", codes).Order("code ASC").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}
