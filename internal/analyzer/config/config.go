package config

import (
	"time"

	"golang-stock-analyst/pkg/config"
)

// Analyzer holds analysis-service specific configuration.
type Analyzer struct {
	MaxConcurrentTasks              int           `mapstructure:"max_concurrent_tasks"`
	RedisStreamTaskExecutionTimeout time.Duration `mapstructure:"redis_stream_task_execution_timeout"`

	// Stock Indicator
	RedisStreamStockIndicatorTimeout         time.Duration `mapstructure:"redis_stream_stock_indicator_timeout"`
	RedisStreamStockIndicatorRetryInterval   time.Duration `mapstructure:"redis_stream_stock_indicator_retry_interval"`
	RedisStreamStockIndicatorMaxIdleDuration time.Duration `mapstructure:"redis_stream_stock_indicator_max_idle_duration"`
	RedisStreamStockIndicatorMaxRetry        int           `mapstructure:"redis_stream_stock_indicator_max_retry"`

	// Stock Report
	RedisStreamStockReportTimeout         time.Duration `mapstructure:"redis_stream_stock_report_timeout"`
	RedisStreamStockReportRetryInterval   time.Duration `mapstructure:"redis_stream_stock_report_retry_interval"`
	RedisStreamStockReportMaxIdleDuration time.Duration `mapstructure:"redis_stream_stock_report_max_idle_duration"`
	RedisStreamStockReportMaxRetry        int           `mapstructure:"redis_stream_stock_report_max_retry"`
}

// YahooFinance holds the configuration for the Yahoo Finance API.
type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// News holds the configuration for the news scraper and report merge.
type News struct {
	RSSBaseURL string `mapstructure:"rss_base_url"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Config holds the full configuration for the analysis service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	Analyzer     Analyzer        `mapstructure:"analyzer"`
	Telegram     config.Telegram `mapstructure:"telegram"`
	YahooFinance YahooFinance    `mapstructure:"yahoo_finance"`
	News         News            `mapstructure:"news"`
}

// Load loads the analysis service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
