package quote

import "time"

// Quote is the latest price snapshot of a symbol
type Quote struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"changePercent"`
	Volume           int64   `json:"volume"`
	LatestTradingDay string  `json:"latestTradingDay"`
	Open             float64 `json:"open"`
	High             float64 `json:"high"`
	Low              float64 `json:"low"`
	PreviousClose    float64 `json:"previousClose"`
}

// Point is a single OHLCV entry of a time series
type Point struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjustedClose"`
	Volume        int64   `json:"volume"`
}

// HistoricalData is a time series of a symbol, newest point first
type HistoricalData struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Data     []Point `json:"data"`
}

// Metrics are fundamental company metrics
type Metrics struct {
	Symbol        string  `json:"symbol"`
	MarketCap     float64 `json:"marketCap"`
	PERatio       float64 `json:"peRatio"`
	EPS           float64 `json:"eps"`
	DividendYield float64 `json:"dividendYield"`
	Beta          float64 `json:"beta"`
	High52Week    float64 `json:"high52Week"`
	Low52Week     float64 `json:"low52Week"`
}

// FilterOptions selects what GetFilteredData returns
type FilterOptions struct {
	Symbols        []string
	Interval       string // daily or intraday interval for historical data
	TimeRange      string // 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y or 10y; when set, historical data is included
	IncludeMetrics bool
}

// FilteredData combines quotes with optional historical data and metrics
type FilteredData struct {
	Quotes     []Quote          `json:"quotes"`
	Historical []HistoricalData `json:"historical,omitempty"`
	Metrics    []Metrics        `json:"metrics,omitempty"`
	FetchedAt  time.Time        `json:"fetchedAt"`
}

// supported intervals of historical data
const (
	IntervalDaily = "daily"
)

var intradayIntervals = map[string]bool{"1min": true, "5min": true, "15min": true, "30min": true, "60min": true}

// timeRanges map a range name to the earliest date it covers
var timeRanges = map[string]func(time.Time) time.Time{
	"1d":  func(t time.Time) time.Time { return t.AddDate(0, 0, -1) },
	"5d":  func(t time.Time) time.Time { return t.AddDate(0, 0, -5) },
	"1mo": func(t time.Time) time.Time { return t.AddDate(0, -1, 0) },
	"3mo": func(t time.Time) time.Time { return t.AddDate(0, -3, 0) },
	"6mo": func(t time.Time) time.Time { return t.AddDate(0, -6, 0) },
	"1y":  func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) },
	"2y":  func(t time.Time) time.Time { return t.AddDate(-2, 0, 0) },
	"5y":  func(t time.Time) time.Time { return t.AddDate(-5, 0, 0) },
	"10y": func(t time.Time) time.Time { return t.AddDate(-10, 0, 0) },
}
