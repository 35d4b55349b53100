package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-stock-analyst/internal/indicator"
	"golang-stock-analyst/internal/report"
	"golang-stock-analyst/pkg/utils"
)

// AlertType represents the type of alert
type AlertType string

const (
	RSIOverbought  AlertType = "RSI_OVERBOUGHT"
	RSIOversold    AlertType = "RSI_OVERSOLD"
	Near52WeekHigh AlertType = "NEAR_52W_HIGH"
	Near52WeekLow  AlertType = "NEAR_52W_LOW"
)

// FormatPriceAlertMessage formats a fired alert rule into a Markdown string
// for Telegram. For RSI alerts the values are RSI levels, otherwise prices.
func FormatPriceAlertMessage(alertType AlertType, stockCode string, triggerValue float64, referenceValue float64, timestamp int64) string {
	var builder strings.Builder

	var title, emoji string
	switch alertType {
	case RSIOverbought:
		title = "RSI Overbought!"
		emoji = "🔥"
	case RSIOversold:
		title = "RSI Oversold!"
		emoji = "🧊"
	case Near52WeekHigh:
		title = "Near 52-Week High!"
		emoji = "🚀"
	case Near52WeekLow:
		title = "Near 52-Week Low!"
		emoji = "⚠️"
	default:
		title = "Price Alert"
		emoji = "🔔"
	}

	builder.WriteString(fmt.Sprintf("%s [%s] %s\n", emoji, stockCode, title))
	switch alertType {
	case RSIOverbought, RSIOversold:
		builder.WriteString(fmt.Sprintf("📐 RSI at %.2f (threshold: %.0f)\n", triggerValue, referenceValue))
	default:
		builder.WriteString(fmt.Sprintf("💰 Price at %.2f (52w level: %.2f)\n", triggerValue, referenceValue))
	}
	builder.WriteString(fmt.Sprintf("%s\n", utils.PrettyDate(time.Unix(timestamp, 0))))
	return builder.String()
}

// FormatIndicatorSnapshotMessage formats the trend snapshot of a fresh
// indicator run into a Markdown string for Telegram.
func FormatIndicatorSnapshotMessage(stockCode, interval string, trend *indicator.TrendSnapshot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 *Indicator Snapshot: %s* (%s)\n\n", stockCode, interval))
	if trend == nil {
		sb.WriteString("_No trend data available._\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("💰 Price: %.2f\n", trend.Price))
	if trend.RSI != nil {
		sb.WriteString(fmt.Sprintf("📐 RSI(14): %.2f\n", *trend.RSI))
	}
	sb.WriteString(fmt.Sprintf("%s Above SMA-20\n", boolIcon(trend.Above20SMA)))
	sb.WriteString(fmt.Sprintf("%s Above SMA-50\n", boolIcon(trend.Above50SMA)))
	sb.WriteString(fmt.Sprintf("%s Above SMA-200\n", boolIcon(trend.Above200SMA)))
	sb.WriteString(fmt.Sprintf("%s SMA 20/50 bullish\n", boolIcon(trend.SMA20Above50)))
	sb.WriteString(fmt.Sprintf("%s SMA 50/200 bullish\n", boolIcon(trend.SMA50Above200)))
	sb.WriteString(fmt.Sprintf("%s MACD bullish\n", boolIcon(trend.MACDBullish)))

	return sb.String()
}

// FormatStockReportMessage formats an aggregated report into a Markdown
// string for Telegram.
func FormatStockReportMessage(stockCode string, rep *report.Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📋 *Stock Report: %s*\n", stockCode))
	if rep.CompanyInfo.Name != "" {
		sb.WriteString(fmt.Sprintf("🏢 %s", rep.CompanyInfo.Name))
		if rep.CompanyInfo.Sector != "" {
			sb.WriteString(fmt.Sprintf(" | %s", rep.CompanyInfo.Sector))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("💰 *Price*\n")
	sb.WriteString(fmt.Sprintf("• Current: %.2f\n", rep.PriceData.CurrentPrice))
	sb.WriteString(fmt.Sprintf("• 52w High: %s | 52w Low: %s\n", metricValue(rep.PriceData.FiftyTwoWeekHigh, "%.2f"), metricValue(rep.PriceData.FiftyTwoWeekLow, "%.2f")))
	sb.WriteString(fmt.Sprintf("• Avg Volume: %s\n", metricValue(rep.PriceData.AverageVolume, "%.0f")))
	sb.WriteString(fmt.Sprintf("• Market Cap: %s\n\n", metricValue(rep.PriceData.MarketCap, "%.0f")))

	sb.WriteString("📈 *Performance*\n")
	sb.WriteString(fmt.Sprintf("• Week: %+.2f%%\n", rep.Performance.WeekReturn))
	sb.WriteString(fmt.Sprintf("• Month: %+.2f%%\n", rep.Performance.MonthReturn))
	sb.WriteString(fmt.Sprintf("• Year: %+.2f%%\n", rep.Performance.YearReturn))
	if rep.Performance.Volatility != nil {
		sb.WriteString(fmt.Sprintf("• Volatility (ann.): %.1f%%\n", *rep.Performance.Volatility*100))
	}
	sb.WriteString("\n")

	sb.WriteString("📊 *Valuation*\n")
	sb.WriteString(fmt.Sprintf("• P/E: %s | Fwd P/E: %s\n", metricValue(rep.Valuation.PERatio, "%.2f"), metricValue(rep.Valuation.ForwardPE, "%.2f")))
	sb.WriteString(fmt.Sprintf("• PEG: %s | P/S: %s | P/B: %s\n\n", metricValue(rep.Valuation.PEGRatio, "%.2f"), metricValue(rep.Valuation.PriceToSales, "%.2f"), metricValue(rep.Valuation.PriceToBook, "%.2f")))

	sb.WriteString("🔧 *Technical*\n")
	sb.WriteString(fmt.Sprintf("%s Above SMA-20 | %s Above SMA-50 | %s Above SMA-200\n", boolIcon(rep.TechnicalStatus.Above20SMA), boolIcon(rep.TechnicalStatus.Above50SMA), boolIcon(rep.TechnicalStatus.Above200SMA)))
	sb.WriteString(fmt.Sprintf("%s SMA 20/50 bullish | %s SMA 50/200 bullish\n", boolIcon(rep.TechnicalStatus.SMA20Above50), boolIcon(rep.TechnicalStatus.SMA50Above200)))

	if len(rep.News) > 0 {
		sb.WriteString("\n📰 *Latest News*\n")
		for _, headline := range rep.News {
			sb.WriteString(fmt.Sprintf("• [%s](%s)\n", headline.Title, headline.Link))
		}
	}

	return sb.String()
}

func FormatErrorAlertMessage(time time.Time, errType string, errMsg string, data string) string {
	return fmt.Sprintf(`📛 [ERROR ALERT]
%s
🔧 %s
⚠️ %s

📄 Data: %s
`, utils.PrettyDate(time), errType, errMsg, data)
}

func metricValue(m report.Metric, format string) string {
	if m.Value == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *m.Value)
}

func boolIcon(v *bool) string {
	switch {
	case v == nil:
		return "➖"
	case *v:
		return "✅"
	default:
		return "❌"
	}
}
