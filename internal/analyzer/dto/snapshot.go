package dto

import "golang-stock-analyst/internal/indicator"

// IndicatorSnapshotData is the jsonb document stored per indicator run. The
// price alert strategy reads TrendAnalysis back out of it.
type IndicatorSnapshotData struct {
	Indicators    *indicator.Bundle        `json:"indicators"`
	TrendAnalysis *indicator.TrendSnapshot `json:"trend_analysis"`
}
