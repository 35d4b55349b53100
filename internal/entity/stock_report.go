package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StockReport is one persisted aggregate report for a ticker. The headline
// return/volatility numbers are lifted into columns for querying; Data holds
// the full report record.
type StockReport struct {
	ID          int64          `json:"id"`
	StockCode   string         `json:"stock_code"`
	Range       string         `json:"range"`
	WeekReturn  float64        `json:"week_return"`
	MonthReturn float64        `json:"month_return"`
	YearReturn  float64        `json:"year_return"`
	Volatility  *float64       `json:"volatility"`
	Data        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at"`
}

// TableName specifies the table name for the StockReport model.
func (StockReport) TableName() string {
	return "stock_reports"
}
