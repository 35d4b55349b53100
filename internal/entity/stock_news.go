package entity

import (
	"time"

	"github.com/lib/pq"
)

// StockNews is a headline harvested from a provider feed. The hash identifier
// dedups items across scraper runs; StockCodes lists every ticker whose feed
// carried the item.
type StockNews struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	Link           string         `gorm:"unique;not null" json:"link"`
	Source         string         `json:"source"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
	HashIdentifier string         `gorm:"unique;not null" json:"hash_identifier"`
	RSSLink        string         `json:"rss_link"`
	StockCodes     pq.StringArray `gorm:"column:stock_codes;type:text[]" json:"stock_codes"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the StockNews model.
func (StockNews) TableName() string {
	return "stock_news"
}
