package models

import "time"

// NewsItem is one news article matched to an impact stock.
type NewsItem struct {
	ID           string    `json:"id"`
	Ticker       string    `json:"ticker"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	Source       string    `json:"source"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"published_at"`
	RelativeTime string    `json:"relative_time,omitempty"`
}

// Validate validates a NewsItem
func (n *NewsItem) Validate() error {
	if n.Title == "" {
		return ErrInvalidNewsItem
	}
	if n.URL == "" {
		return ErrInvalidNewsItem
	}
	return nil
}
