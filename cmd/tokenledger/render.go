package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/janekbaraniewski/tokenledger/internal/aggregate"
	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/loader"
	"github.com/janekbaraniewski/tokenledger/internal/pricing"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

type report struct {
	Source     shared.Source
	Grouping   aggregate.Grouping
	Buckets    []aggregate.Bucket
	Totals     aggregate.Bucket
	Load       loader.Result
	Pricing    pricing.Origin
	Breakdown  bool
	Timezone   string
	DateFilter core.DateFilter
	Locale     string
}

type jsonReport struct {
	Source       string              `json:"source"`
	DisplayName  string              `json:"display_name"`
	Grouping     string              `json:"grouping"`
	Timezone     string              `json:"timezone"`
	Since        string              `json:"since,omitempty"`
	Until        string              `json:"until,omitempty"`
	Pricing      string              `json:"pricing"`
	Capabilities shared.Capabilities `json:"capabilities"`
	Files        int                 `json:"files"`
	CacheHits    int                 `json:"cache_hits"`
	Duplicates   int                 `json:"duplicates_skipped"`
	Buckets      []aggregate.Bucket  `json:"buckets"`
	Totals       jsonTotals          `json:"totals"`
}

type jsonTotals struct {
	Tokens      core.Tokens `json:"tokens"`
	TotalTokens int64       `json:"total_tokens"`
	Cost        float64     `json:"cost"`
	Count       int         `json:"count"`
}

func renderJSON(w io.Writer, rep report) error {
	buckets := rep.Buckets
	if buckets == nil {
		buckets = []aggregate.Bucket{}
	}
	out := jsonReport{
		Source:       rep.Source.Name(),
		DisplayName:  rep.Source.DisplayName(),
		Grouping:     string(rep.Grouping),
		Timezone:     rep.Timezone,
		Since:        rep.DateFilter.Since,
		Until:        rep.DateFilter.Until,
		Pricing:      string(rep.Pricing),
		Capabilities: rep.Source.Capabilities(),
		Files:        rep.Load.Files,
		CacheHits:    rep.Load.CacheHits,
		Duplicates:   rep.Load.Skipped,
		Buckets:      buckets,
		Totals: jsonTotals{
			Tokens:      rep.Totals.Tokens,
			TotalTokens: rep.Totals.Tokens.Total(),
			Cost:        rep.Totals.Cost,
			Count:       rep.Totals.Count,
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	dimStyle    = numberStyle.Faint(true)
	totalStyle  = numberStyle.Bold(true)
)

func keyHeader(g aggregate.Grouping) string {
	switch g {
	case aggregate.ByDay:
		return "Date"
	case aggregate.ByBlock:
		return "Block Start"
	default:
		return titleCase(string(g))
	}
}

func renderTable(w io.Writer, rep report) error {
	caps := rep.Source.Capabilities()
	if len(rep.Buckets) == 0 {
		_, err := fmt.Fprintf(w, "No %s usage found.\n", rep.Source.DisplayName())
		return err
	}

	headers := []string{keyHeader(rep.Grouping), "Models", "Input", "Output"}
	if caps.HasReasoningTokens {
		headers = append(headers, "Reasoning")
	}
	if caps.HasCacheCreation {
		headers = append(headers, "Cache Create")
	}
	headers = append(headers, "Cache Read", "Total Tokens", "Cost (USD)")

	row := func(label, models string, tok core.Tokens, cost float64) []string {
		r := []string{label, models, formatInt(tok.Input, rep.Locale), formatInt(tok.Output, rep.Locale)}
		if caps.HasReasoningTokens {
			r = append(r, formatInt(tok.Reasoning, rep.Locale))
		}
		if caps.HasCacheCreation {
			r = append(r, formatInt(tok.CacheCreation, rep.Locale))
		}
		return append(r, formatInt(tok.CacheRead, rep.Locale), formatInt(tok.Total(), rep.Locale), formatCost(cost))
	}

	var rows [][]string
	subRows := map[int]bool{}
	for _, b := range rep.Buckets {
		rows = append(rows, row(bucketLabel(rep.Grouping, b), strings.Join(b.ModelsUsed, ", "), b.Tokens, b.Cost))
		if !rep.Breakdown {
			continue
		}
		for _, name := range b.ModelsUsed {
			m, ok := b.Models[name]
			if !ok {
				continue
			}
			subRows[len(rows)] = true
			rows = append(rows, row("  └ "+name, "", m.Tokens, m.Cost))
		}
	}
	totalRow := len(rows)
	rows = append(rows, row("Total", "", rep.Totals.Tokens, rep.Totals.Cost))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(r, c int) lipgloss.Style {
			switch {
			case r == table.HeaderRow:
				return headerStyle
			case c < 2:
				return cellStyle
			case r == totalRow:
				return totalStyle
			case subRows[r]:
				return dimStyle
			default:
				return numberStyle
			}
		})

	title := fmt.Sprintf("%s usage by %s (%s)", rep.Source.DisplayName(), rep.Grouping, rep.Timezone)
	_, err := fmt.Fprintf(w, "%s\n%s\n", title, t.String())
	return err
}

func bucketLabel(g aggregate.Grouping, b aggregate.Bucket) string {
	switch g {
	case aggregate.BySession:
		if b.Project != "" {
			return b.Key + " (" + aggregate.ProjectName(b.Project) + ")"
		}
	case aggregate.ByProject, aggregate.ByWeek:
		return b.Label
	}
	return b.Key
}

// formatInt groups digits the way the locale does; unparsable locales use en-US.
func formatInt(n int64, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag).Sprintf("%d", n)
}

func formatCost(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
