package agentclient

import (
	"fmt"
	"log"
	"strings"

	"github.com/stoewer/go-strcase"
	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// ResultShape names the payload variants a finished job can carry, in the
// order ExtractFinalResponse tries them.
type ResultShape int

const (
	ShapeContentItems ResultShape = iota // output.content[] typed items
	ShapeText                            // output.text, or output as a string
	ShapeFinalItem                       // output.items[] entry of type "final"
	ShapeTextItems                       // every text-bearing output.items[] entry
	ShapeSegments                        // segments[] minus tool traffic
	ShapeAbsent
)

func (s ResultShape) String() string {
	switch s {
	case ShapeContentItems:
		return "content_items"
	case ShapeText:
		return "text"
	case ShapeFinalItem:
		return "final_item"
	case ShapeTextItems:
		return "text_items"
	case ShapeSegments:
		return "segments"
	}
	return "absent"
}

type resultPayload struct {
	output   gjson.Result
	segments gjson.Result
}

type shapeMatcher struct {
	shape ResultShape
	match func(p resultPayload) (string, bool)
}

var shapeMatchers = []shapeMatcher{
	{ShapeContentItems, matchContentItems},
	{ShapeText, matchText},
	{ShapeFinalItem, matchFinalItem},
	{ShapeTextItems, matchTextItems},
	{ShapeSegments, matchSegments},
}

var (
	tickerKeys  = []string{"symbol", "ticker", "tickerSymbol", "ticker_symbol"}
	companyKeys = []string{"company_name", "companyName", "company", "name", "longName", "long_name", "shortName"}
	toolTypes   = map[string]bool{"tool_call": true, "tool_result": true, "tool_use": true, "function_call": true}
)

// ClassifyResult returns the first result shape that yields text for job.
// Output is only trusted once the job is completed.
func ClassifyResult(job *domain.AgentJob) (ResultShape, string) {
	if job == nil || job.Status != domain.JobStatusCompleted {
		return ShapeAbsent, ""
	}

	p := resultPayload{output: parseRaw(job.Output), segments: parseRaw(job.Segments)}
	if !p.segments.Exists() && p.output.IsObject() {
		p.segments = p.output.Get("segments")
	}

	for _, m := range shapeMatchers {
		if text, ok := m.match(p); ok {
			return m.shape, text
		}
	}
	return ShapeAbsent, ""
}

// ExtractFinalResponse normalizes a job's result into display text. It never
// panics and never returns an empty string: when no shape yields content it
// synthesizes a message from the prompt and status.
func ExtractFinalResponse(job *domain.AgentJob) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WARN: unexpected result payload: %v", r)
			text = fallbackMessage(job)
		}
	}()

	if _, t := ClassifyResult(job); strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return fallbackMessage(job)
}

func matchContentItems(p resultPayload) (string, bool) {
	items := p.output.Get("content")
	if !items.IsArray() {
		return "", false
	}

	var parts []string
	for _, item := range items.Array() {
		raw := itemContent(item)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parts = append(parts, formatStructured(raw))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

func matchText(p resultPayload) (string, bool) {
	if p.output.Type == gjson.String && strings.TrimSpace(p.output.String()) != "" {
		return p.output.String(), true
	}
	if t := p.output.Get("text"); t.Type == gjson.String && strings.TrimSpace(t.String()) != "" {
		return t.String(), true
	}
	return "", false
}

func matchFinalItem(p resultPayload) (string, bool) {
	for _, item := range p.output.Get("items").Array() {
		if item.Get("type").String() != "final" {
			continue
		}
		if s := itemText(item); strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

func matchTextItems(p resultPayload) (string, bool) {
	var parts []string
	for _, item := range p.output.Get("items").Array() {
		if s := itemText(item); strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

func matchSegments(p resultPayload) (string, bool) {
	var parts []string
	for _, seg := range p.segments.Array() {
		if toolTypes[seg.Get("type").String()] {
			continue
		}
		if s := itemText(seg); strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

// itemContent returns the content field of a typed content item. Structured
// content is kept as raw JSON for formatStructured.
func itemContent(item gjson.Result) string {
	if item.Type == gjson.String {
		return item.String()
	}
	for _, key := range []string{"content", "text"} {
		v := item.Get(key)
		switch {
		case v.Type == gjson.String:
			return v.String()
		case v.IsObject(), v.IsArray():
			return v.Raw
		}
	}
	return ""
}

// itemText returns the text carried by an item or segment.
func itemText(item gjson.Result) string {
	if item.Type == gjson.String {
		return item.String()
	}
	for _, key := range []string{"text", "content", "output_text", "message"} {
		v := item.Get(key)
		if v.Type == gjson.String {
			return v.String()
		}
		if v.IsArray() {
			var parts []string
			for _, sub := range v.Array() {
				if s := itemText(sub); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "\n")
			}
		}
	}
	return ""
}

// formatStructured renders a JSON object describing a company (it has both a
// ticker and a company name) as a key/value block. Anything else is returned
// as literal text.
func formatStructured(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return raw
	}
	obj := gjson.Parse(trimmed)
	if !hasAnyKey(obj, tickerKeys) || !hasAnyKey(obj, companyKeys) {
		return raw
	}

	title := cases.Title(language.English)
	var lines []string
	obj.ForEach(func(key, value gjson.Result) bool {
		v := renderValue(value)
		if v == "" {
			return true
		}
		lines = append(lines, fmt.Sprintf("%s: %s", humanize(title, key.String()), v))
		return true
	})
	if len(lines) == 0 {
		return raw
	}
	return strings.Join(lines, "\n")
}

func renderValue(v gjson.Result) string {
	switch {
	case v.Type == gjson.Null:
		return ""
	case v.IsArray():
		var parts []string
		for _, e := range v.Array() {
			if s := renderValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case v.IsObject():
		if raw := v.Get("fmt"); raw.Exists() {
			return raw.String()
		}
		return v.Raw
	}
	return strings.TrimSpace(v.String())
}

func humanize(title cases.Caser, key string) string {
	words := strings.Fields(strings.ReplaceAll(strcase.SnakeCase(key), "_", " "))
	return title.String(strings.Join(words, " "))
}

func hasAnyKey(obj gjson.Result, keys []string) bool {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.Type != gjson.Null && v.String() != "" {
			return true
		}
	}
	return false
}

func parseRaw(raw []byte) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

func fallbackMessage(job *domain.AgentJob) string {
	if job == nil {
		return "No response was received from the assistant."
	}

	subject := "your request"
	if p := strings.TrimSpace(job.Input); p != "" {
		subject = fmt.Sprintf("your request %q", truncate(p, 200))
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		return fmt.Sprintf("The assistant finished %s (status: %s) but returned no readable content.", subject, job.Status)
	case domain.JobStatusFailed, domain.JobStatusCancelled:
		msg := fmt.Sprintf("The assistant could not complete %s (status: %s).", subject, job.Status)
		if job.Error != "" {
			msg += " " + job.Error
		}
		return msg
	}

	status := job.Status
	if status == "" {
		status = domain.JobStatusPending
	}
	return fmt.Sprintf("The assistant is still working on %s (status: %s). Please check back shortly.", subject, status)
}
