package dto

import "golang-stock-analyst/internal/report"

// CompanyProfile is the merged quoteSummary view of one company. Pointer
// fields stay nil when Yahoo omits the module or the value.
type CompanyProfile struct {
	StockCode        string   `json:"stock_code"`
	Name             string   `json:"name"`
	Sector           string   `json:"sector"`
	Industry         string   `json:"industry"`
	Website          string   `json:"website"`
	Description      string   `json:"description"`
	Country          string   `json:"country"`
	Employees        *int64   `json:"employees"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low"`
	AverageVolume    *float64 `json:"average_volume"`
	MarketCap        *float64 `json:"market_cap"`
	TrailingPE       *float64 `json:"trailing_pe"`
	ForwardPE        *float64 `json:"forward_pe"`
	PEGRatio         *float64 `json:"peg_ratio"`
	PriceToSales     *float64 `json:"price_to_sales"`
	PriceToBook      *float64 `json:"price_to_book"`
	DividendRate     *float64 `json:"dividend_rate"`
	DividendYield    *float64 `json:"dividend_yield"`
	Beta             *float64 `json:"beta"`
}

// ReportMetadata maps the profile onto the aggregator's input. A nil profile
// yields the zero metadata, which the aggregator accepts.
func (p *CompanyProfile) ReportMetadata() report.Metadata {
	if p == nil {
		return report.Metadata{}
	}
	return report.Metadata{
		Name:             p.Name,
		Sector:           p.Sector,
		Industry:         p.Industry,
		Website:          p.Website,
		Description:      p.Description,
		FiftyTwoWeekHigh: p.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  p.FiftyTwoWeekLow,
		AverageVolume:    p.AverageVolume,
		MarketCap:        p.MarketCap,
		TrailingPE:       p.TrailingPE,
		ForwardPE:        p.ForwardPE,
		PEGRatio:         p.PEGRatio,
		PriceToSales:     p.PriceToSales,
		PriceToBook:      p.PriceToBook,
	}
}

// YahooQuoteSummaryResponse mirrors the v10 quoteSummary endpoint for the
// assetProfile, summaryDetail, defaultKeyStatistics and price modules.
type YahooQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []YahooQuoteSummaryResult `json:"result"`
		Error  *YahooAPIError            `json:"error"`
	} `json:"quoteSummary"`
}

type YahooQuoteSummaryResult struct {
	AssetProfile *struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		Website             string `json:"website"`
		Country             string `json:"country"`
		LongBusinessSummary string `json:"longBusinessSummary"`
		FullTimeEmployees   *int64 `json:"fullTimeEmployees"`
	} `json:"assetProfile"`
	SummaryDetail *struct {
		TrailingPE       *YahooValue `json:"trailingPE"`
		ForwardPE        *YahooValue `json:"forwardPE"`
		PriceToSales     *YahooValue `json:"priceToSalesTrailing12Months"`
		MarketCap        *YahooValue `json:"marketCap"`
		FiftyTwoWeekHigh *YahooValue `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  *YahooValue `json:"fiftyTwoWeekLow"`
		AverageVolume    *YahooValue `json:"averageVolume"`
		DividendRate     *YahooValue `json:"dividendRate"`
		DividendYield    *YahooValue `json:"dividendYield"`
		Beta             *YahooValue `json:"beta"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		PegRatio    *YahooValue `json:"pegRatio"`
		PriceToBook *YahooValue `json:"priceToBook"`
	} `json:"defaultKeyStatistics"`
	Price *struct {
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
	} `json:"price"`
}

// YahooValue is Yahoo's {raw, fmt} wrapper around a numeric field.
type YahooValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

// RawValue unwraps the numeric part, nil-safe on both levels.
func (v *YahooValue) RawValue() *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	raw := *v.Raw
	return &raw
}
