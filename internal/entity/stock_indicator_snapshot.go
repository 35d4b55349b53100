package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StockIndicatorSnapshot is one persisted run of the indicator engine for a
// ticker. Data holds the trimmed indicator series plus the trend snapshot as
// produced for transport.
type StockIndicatorSnapshot struct {
	ID          int64          `json:"id"`
	StockCode   string         `json:"stock_code"`
	Interval    string         `json:"interval"`
	Range       string         `json:"range"`
	MarketPrice float64        `json:"market_price"`
	Data        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at"`
}

// TableName specifies the table name for the StockIndicatorSnapshot model.
func (StockIndicatorSnapshot) TableName() string {
	return "stock_indicator_snapshots"
}
