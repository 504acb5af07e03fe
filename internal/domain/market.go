package domain

import "time"

// Quote is a point-in-time price snapshot for a symbol.
type Quote struct {
	Symbol            string  `json:"symbol"`
	ShortName         string  `json:"short_name,omitempty"`
	LongName          string  `json:"long_name,omitempty"`
	Currency          string  `json:"currency,omitempty"`
	Exchange          string  `json:"exchange,omitempty"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	ChangePercent     float64 `json:"change_percent"`
	PreviousClose     float64 `json:"previous_close,omitempty"`
	Open              float64 `json:"open,omitempty"`
	DayHigh           float64 `json:"day_high,omitempty"`
	DayLow            float64 `json:"day_low,omitempty"`
	Volume            int64   `json:"volume,omitempty"`
	MarketCap         float64 `json:"market_cap,omitempty"`
	TrailingPE        float64 `json:"trailing_pe,omitempty"`
	FiftyTwoWeekHigh  float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow   float64 `json:"fifty_two_week_low,omitempty"`
	MarketState       string  `json:"market_state,omitempty"`
	RegularMarketTime int64   `json:"regular_market_time,omitempty"`
}

// Bar is one OHLCV point of a historical series.
type Bar struct {
	Time   int64   `json:"time"` // Unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// History is a historical price series.
type History struct {
	Symbol   string `json:"symbol"`
	Range    string `json:"range"`
	Interval string `json:"interval"`
	Currency string `json:"currency,omitempty"`
	Bars     []Bar  `json:"bars"`
}

// Officer is a company executive listed in a profile.
type Officer struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// Profile describes a listed company.
type Profile struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	Country   string    `json:"country,omitempty"`
	Website   string    `json:"website,omitempty"`
	Employees int64     `json:"employees,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Officers  []Officer `json:"officers,omitempty"`
}

// Holder is an institutional or fund holder of a security.
type Holder struct {
	Organization string  `json:"organization"`
	PctHeld      float64 `json:"pct_held"`
	Position     int64   `json:"position,omitempty"`
	Value        float64 `json:"value,omitempty"`
	ReportDate   string  `json:"report_date,omitempty"`
}

// Holders summarizes ownership of a security.
type Holders struct {
	Symbol                  string   `json:"symbol"`
	InsidersPercentHeld     float64  `json:"insiders_percent_held"`
	InstitutionsPercentHeld float64  `json:"institutions_percent_held"`
	InstitutionsCount       int64    `json:"institutions_count,omitempty"`
	Institutions            []Holder `json:"institutions"`
}

// NewsItem is a headline related to a symbol.
type NewsItem struct {
	UUID        string    `json:"uuid,omitempty"`
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher,omitempty"`
	Link        string    `json:"link,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// SearchResult is one instrument matched by a search query.
type SearchResult struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	QuoteType string `json:"quote_type,omitempty"`
}

// MarketEnvelope wraps every market-data answer. Fallback is true when Data
// comes from the built-in dataset instead of the upstream provider.
type MarketEnvelope struct {
	Data     interface{} `json:"data"`
	Fallback bool        `json:"fallback"`
	Source   string      `json:"source"`
	Warning  string      `json:"warning,omitempty"`
}
