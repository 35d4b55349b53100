package dto

// StreamDataStockIndicator is the per-stock message fanned out to the
// indicator analysis stream.
type StreamDataStockIndicator struct {
	StockCode string `json:"stock_code"`
	Interval  string `json:"interval"`
	Range     string `json:"range"`
}

// StreamDataStockReport is the per-stock message fanned out to the report
// stream.
type StreamDataStockReport struct {
	StockCode string `json:"stock_code"`
	Range     string `json:"range"`
}

// ExecutorSummaryResult is one per-stock entry in a fan-out job's output.
type ExecutorSummaryResult struct {
	StockCode string `json:"stock_code"`
	IsSuccess bool   `json:"is_success"`
	Error     string `json:"error"`
}
