package news

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// summaryLimit caps article summaries for the dashboard cards.
const summaryLimit = 200

// stripHTML flattens feed HTML fragments to plain text
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// truncateSummary shortens a summary to summaryLimit characters with an
// ellipsis. Counting is by rune so multi-byte text is never split.
func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= summaryLimit {
		return s
	}
	return strings.TrimSpace(string(runes[:summaryLimit])) + "..."
}

// RelativeTime renders how long ago t was, in coarse buckets. Dates
// older than a week render as a plain date.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	elapsed := now.Sub(t)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	case elapsed < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// Recent filters items published within the window before now
func Recent(items []models.NewsItem, window time.Duration, now time.Time) []models.NewsItem {
	cutoff := now.Add(-window)
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if item.PublishedAt.After(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

// Stats summarizes a batch of news items.
type Stats struct {
	Total    int            `json:"total"`
	Last24h  int            `json:"last_24h"`
	BySource map[string]int `json:"by_source"`
}

// Summarize computes counts over a batch of items
func Summarize(items []models.NewsItem, now time.Time) Stats {
	stats := Stats{Total: len(items), BySource: make(map[string]int)}
	cutoff := now.Add(-24 * time.Hour)
	for _, item := range items {
		stats.BySource[item.Source]++
		if item.PublishedAt.After(cutoff) {
			stats.Last24h++
		}
	}
	return stats
}
