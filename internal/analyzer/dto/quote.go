package dto

// StockQuote is the live quote surface for one stock.
type StockQuote struct {
	StockCode        string  `json:"stock_code"`
	Price            float64 `json:"price"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"change_percent"`
	Volume           int64   `json:"volume"`
	DayHigh          float64 `json:"day_high"`
	DayLow           float64 `json:"day_low"`
	MarketCap        int64   `json:"market_cap"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low"`
}
