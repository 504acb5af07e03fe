package marketdata

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// The fallback datasets below stand in for the provider when it is
// unreachable or returns nothing. Known symbols get their own figures; any
// other symbol gets a generic placeholder.

type fallbackCompany struct {
	quote   domain.Quote
	profile domain.Profile
	holders domain.Holders
}

var fallbackCompanies = map[string]fallbackCompany{
	"AAPL": {
		quote: domain.Quote{
			Symbol: "AAPL", ShortName: "Apple Inc.", LongName: "Apple Inc.", Currency: "USD", Exchange: "NasdaqGS",
			Price: 189.84, Change: 1.23, ChangePercent: 0.65, PreviousClose: 188.61, Open: 188.9,
			DayHigh: 190.32, DayLow: 188.19, Volume: 48734512, MarketCap: 2.95e12, TrailingPE: 29.4,
			FiftyTwoWeekHigh: 199.62, FiftyTwoWeekLow: 164.08, MarketState: "CLOSED",
		},
		profile: domain.Profile{
			Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Industry: "Consumer Electronics",
			Country: "United States", Website: "https://www.apple.com", Employees: 161000,
			Summary: "Apple Inc. designs, manufactures, and markets smartphones, personal computers, tablets, wearables, and accessories worldwide.",
			Officers: []domain.Officer{
				{Name: "Timothy D. Cook", Title: "CEO & Director"},
				{Name: "Kevan Parekh", Title: "Senior VP & CFO"},
			},
		},
		holders: domain.Holders{
			Symbol: "AAPL", InsidersPercentHeld: 0.0007, InstitutionsPercentHeld: 0.6142, InstitutionsCount: 6322,
			Institutions: []domain.Holder{
				{Organization: "Vanguard Group Inc", PctHeld: 0.0889, Position: 1358000000},
				{Organization: "Blackrock Inc.", PctHeld: 0.0654, Position: 1000000000},
				{Organization: "State Street Corporation", PctHeld: 0.0371, Position: 567000000},
			},
		},
	},
	"MSFT": {
		quote: domain.Quote{
			Symbol: "MSFT", ShortName: "Microsoft Corporation", LongName: "Microsoft Corporation", Currency: "USD", Exchange: "NasdaqGS",
			Price: 415.5, Change: -2.1, ChangePercent: -0.5, PreviousClose: 417.6, Open: 417.0,
			DayHigh: 418.2, DayLow: 413.9, Volume: 19876543, MarketCap: 3.09e12, TrailingPE: 36.1,
			FiftyTwoWeekHigh: 430.82, FiftyTwoWeekLow: 309.45, MarketState: "CLOSED",
		},
		profile: domain.Profile{
			Symbol: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", Industry: "Software - Infrastructure",
			Country: "United States", Website: "https://www.microsoft.com", Employees: 221000,
			Summary: "Microsoft Corporation develops and supports software, services, devices, and solutions worldwide.",
			Officers: []domain.Officer{
				{Name: "Satya Nadella", Title: "Chairman & CEO"},
				{Name: "Amy E. Hood", Title: "Executive VP & CFO"},
			},
		},
		holders: domain.Holders{
			Symbol: "MSFT", InsidersPercentHeld: 0.0005, InstitutionsPercentHeld: 0.7385, InstitutionsCount: 6741,
			Institutions: []domain.Holder{
				{Organization: "Vanguard Group Inc", PctHeld: 0.0893, Position: 664000000},
				{Organization: "Blackrock Inc.", PctHeld: 0.0726, Position: 540000000},
			},
		},
	},
	"GOOGL": {
		quote: domain.Quote{
			Symbol: "GOOGL", ShortName: "Alphabet Inc.", LongName: "Alphabet Inc.", Currency: "USD", Exchange: "NasdaqGS",
			Price: 171.95, Change: 0.84, ChangePercent: 0.49, PreviousClose: 171.11, Open: 171.3,
			DayHigh: 172.6, DayLow: 170.4, Volume: 25123456, MarketCap: 2.12e12, TrailingPE: 26.2,
			FiftyTwoWeekHigh: 191.75, FiftyTwoWeekLow: 120.21, MarketState: "CLOSED",
		},
		profile: domain.Profile{
			Symbol: "GOOGL", Name: "Alphabet Inc.", Sector: "Communication Services", Industry: "Internet Content & Information",
			Country: "United States", Website: "https://abc.xyz", Employees: 181269,
			Summary: "Alphabet Inc. offers various products and platforms in the United States, Europe, the Middle East, Africa, the Asia-Pacific, Canada, and Latin America.",
			Officers: []domain.Officer{{Name: "Sundar Pichai", Title: "CEO & Director"}},
		},
		holders: domain.Holders{
			Symbol: "GOOGL", InsidersPercentHeld: 0.0024, InstitutionsPercentHeld: 0.8012, InstitutionsCount: 4632,
			Institutions: []domain.Holder{
				{Organization: "Vanguard Group Inc", PctHeld: 0.0752, Position: 438000000},
			},
		},
	},
	"TSLA": {
		quote: domain.Quote{
			Symbol: "TSLA", ShortName: "Tesla, Inc.", LongName: "Tesla, Inc.", Currency: "USD", Exchange: "NasdaqGS",
			Price: 248.5, Change: 5.3, ChangePercent: 2.18, PreviousClose: 243.2, Open: 244.0,
			DayHigh: 251.2, DayLow: 242.7, Volume: 98765432, MarketCap: 7.93e11, TrailingPE: 68.3,
			FiftyTwoWeekHigh: 299.29, FiftyTwoWeekLow: 138.8, MarketState: "CLOSED",
		},
		profile: domain.Profile{
			Symbol: "TSLA", Name: "Tesla, Inc.", Sector: "Consumer Cyclical", Industry: "Auto Manufacturers",
			Country: "United States", Website: "https://www.tesla.com", Employees: 140473,
			Summary: "Tesla, Inc. designs, develops, manufactures, leases, and sells electric vehicles, and energy generation and storage systems.",
			Officers: []domain.Officer{{Name: "Elon R. Musk", Title: "Co-Founder, Technoking of Tesla, CEO & Director"}},
		},
		holders: domain.Holders{
			Symbol: "TSLA", InsidersPercentHeld: 0.1291, InstitutionsPercentHeld: 0.4585, InstitutionsCount: 3701,
			Institutions: []domain.Holder{
				{Organization: "Vanguard Group Inc", PctHeld: 0.0721, Position: 230000000},
			},
		},
	},
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FallbackQuote returns the built-in quote of symbol.
func FallbackQuote(symbol string) *domain.Quote {
	symbol = normalizeSymbol(symbol)
	if c, ok := fallbackCompanies[symbol]; ok {
		q := c.quote
		return &q
	}
	return &domain.Quote{Symbol: symbol, ShortName: symbol, Currency: "USD", Price: 100, PreviousClose: 100, MarketState: "CLOSED"}
}

// FallbackProfile returns the built-in profile of symbol.
func FallbackProfile(symbol string) *domain.Profile {
	symbol = normalizeSymbol(symbol)
	if c, ok := fallbackCompanies[symbol]; ok {
		p := c.profile
		p.Officers = append([]domain.Officer(nil), c.profile.Officers...)
		return &p
	}
	return &domain.Profile{Symbol: symbol, Name: symbol, Summary: "Company profile is temporarily unavailable."}
}

// FallbackHolders returns the built-in ownership breakdown of symbol.
func FallbackHolders(symbol string) *domain.Holders {
	symbol = normalizeSymbol(symbol)
	if c, ok := fallbackCompanies[symbol]; ok {
		h := c.holders
		h.Institutions = append([]domain.Holder(nil), c.holders.Institutions...)
		return &h
	}
	return &domain.Holders{Symbol: symbol, Institutions: []domain.Holder{}}
}

// FallbackHistory returns a deterministic synthetic series around the
// fallback price of symbol, ending at now.
func FallbackHistory(symbol, rng, interval string, now time.Time) *domain.History {
	q := FallbackQuote(symbol)
	step := intervalDuration(interval)
	count := int(rangeDuration(rng) / step)
	if count < 2 {
		count = 2
	}
	if count > 500 {
		count = 500
	}

	end := now.Truncate(step)
	bars := make([]domain.Bar, 0, count)
	for i := 0; i < count; i++ {
		// A slow wave so charts have a visible shape.
		phase := float64(i) / float64(count) * 2 * math.Pi
		closing := round2(q.Price * (1 + 0.04*math.Sin(phase) - 0.02*float64(count-1-i)/float64(count)))
		opening := round2(closing * (1 - 0.003*math.Cos(phase)))
		bars = append(bars, domain.Bar{
			Time:   end.Add(-time.Duration(count-1-i) * step).Unix(),
			Open:   opening,
			High:   round2(math.Max(opening, closing) * 1.005),
			Low:    round2(math.Min(opening, closing) * 0.995),
			Close:  closing,
			Volume: 1000000 + int64(i%7)*125000,
		})
	}
	return &domain.History{Symbol: q.Symbol, Range: rng, Interval: interval, Currency: q.Currency, Bars: bars}
}

// FallbackSearch returns the known instruments matching query.
func FallbackSearch(query string) []domain.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []domain.SearchResult{}
	for symbol, c := range fallbackCompanies {
		if q == "" || strings.Contains(strings.ToLower(symbol), q) || strings.Contains(strings.ToLower(c.quote.LongName), q) {
			results = append(results, domain.SearchResult{Symbol: symbol, Name: c.quote.LongName, Exchange: c.quote.Exchange, QuoteType: "EQUITY"})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })
	return results
}

// FallbackNews returns placeholder headlines for symbol.
func FallbackNews(symbol string, now time.Time) []domain.NewsItem {
	symbol = normalizeSymbol(symbol)
	name := FallbackQuote(symbol).ShortName
	return []domain.NewsItem{
		{Title: "Live news for " + name + " is temporarily unavailable", Publisher: "findash", PublishedAt: now.UTC().Truncate(time.Hour)},
	}
}

func rangeDuration(rng string) time.Duration {
	day := 24 * time.Hour
	switch rng {
	case "1d":
		return day
	case "5d":
		return 5 * day
	case "1mo":
		return 30 * day
	case "3mo":
		return 91 * day
	case "6mo":
		return 182 * day
	case "1y", "ytd":
		return 365 * day
	case "2y":
		return 730 * day
	case "5y", "10y", "max":
		return 1825 * day
	}
	return 30 * day
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h", "60m":
		return time.Hour
	case "1wk":
		return 7 * 24 * time.Hour
	case "1mo":
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
