package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, _, err := apiGet("/health")
		if err != nil {
			return err
		}
		var health map[string]interface{}
		if ok, err := decodeInto(body, &health); !ok || err != nil {
			return err
		}
		fmt.Printf("status: %v\nversion: %v\nassistant ready: %v\n", health["status"], health["version"], health["assistant_ready"])
		return nil
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol...]",
	Short: "Show latest quotes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuote,
}

var historyCmd = &cobra.Command{
	Use:   "history [symbol]",
	Short: "Show a price series",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search instruments",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var (
	historyRange    string
	historyInterval string
)

func init() {
	historyCmd.Flags().StringVar(&historyRange, "range", "1mo", "History range (1d, 5d, 1mo, 3mo, 6mo, 1y, 5y, max)")
	historyCmd.Flags().StringVar(&historyInterval, "interval", "1d", "Bar interval (1m, 5m, 1h, 1d, 1wk, 1mo)")
}

type quoteEnvelope struct {
	Data     domain.Quote `json:"data"`
	Fallback bool         `json:"fallback"`
}

func runQuote(cmd *cobra.Command, args []string) error {
	var quotes []quoteEnvelope
	for _, symbol := range args {
		body, _, err := apiGet("/v1/market/quote/" + url.PathEscape(symbol))
		if err != nil {
			return err
		}
		var env quoteEnvelope
		if ok, err := decodeInto(body, &env); err != nil {
			return err
		} else if ok {
			quotes = append(quotes, env)
		}
	}
	if len(quotes) > 0 {
		renderQuotes(os.Stdout, quotes)
	}
	return nil
}

func renderQuotes(w io.Writer, quotes []quoteEnvelope) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Symbol", "Name", "Price", "Change", "Change %", "Source"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, q := range quotes {
		source := "upstream"
		if q.Fallback {
			source = "fallback"
		}
		name := q.Data.ShortName
		if name == "" {
			name = q.Data.LongName
		}
		t.AppendRow(table.Row{
			q.Data.Symbol,
			name,
			fmt.Sprintf("%.2f", q.Data.Price),
			fmt.Sprintf("%+.2f", q.Data.Change),
			fmt.Sprintf("%+.2f%%", q.Data.ChangePercent),
			source,
		})
	}
	t.Render()
}

func runHistory(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	q.Set("range", historyRange)
	q.Set("interval", historyInterval)
	body, _, err := apiGet("/v1/market/history/" + url.PathEscape(args[0]) + "?" + q.Encode())
	if err != nil {
		return err
	}
	var env struct {
		Data     domain.History `json:"data"`
		Fallback bool           `json:"fallback"`
	}
	if ok, err := decodeInto(body, &env); !ok || err != nil {
		return err
	}
	renderHistory(os.Stdout, env.Data, env.Fallback)
	return nil
}

func renderHistory(w io.Writer, h domain.History, fallback bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	title := fmt.Sprintf("%s %s/%s", h.Symbol, h.Range, h.Interval)
	if fallback {
		title += " (fallback data)"
	}
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Time", "Open", "High", "Low", "Close", "Volume"})
	for _, b := range h.Bars {
		t.AppendRow(table.Row{
			time.Unix(b.Time, 0).UTC().Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", b.Open),
			fmt.Sprintf("%.2f", b.High),
			fmt.Sprintf("%.2f", b.Low),
			fmt.Sprintf("%.2f", b.Close),
			b.Volume,
		})
	}
	t.Render()
}

func runSearch(cmd *cobra.Command, args []string) error {
	body, _, err := apiGet("/v1/market/search?q=" + url.QueryEscape(args[0]))
	if err != nil {
		return err
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if ok, err := decodeInto(body, &env); !ok || err != nil {
		return err
	}
	var results []domain.SearchResult
	if err := json.Unmarshal(env.Data, &results); err != nil {
		return fmt.Errorf("invalid search results: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Symbol", "Name", "Exchange", "Type"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Symbol, r.Name, r.Exchange, r.QuoteType})
	}
	t.Render()
	return nil
}
