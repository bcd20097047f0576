package news

import (
	"strings"
)

// Feed is one configured RSS source.
type Feed struct {
	Name string
	URL  string
}

// DefaultFeeds lists the market news sources polled when none are
// configured.
var DefaultFeeds = []Feed{
	{Name: "VnExpress Business", URL: "https://vnexpress.net/rss/kinh-doanh.rss"},
	{Name: "CafeF Market", URL: "https://cafef.vn/thi-truong-chung-khoan.rss"},
}

// ParseFeedSpecs parses "name=url" pairs into feeds. Entries without a
// name take their host part as the name; malformed entries are skipped.
func ParseFeedSpecs(specs []string) []Feed {
	feeds := make([]Feed, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		name, url, found := strings.Cut(spec, "=")
		if !found {
			url = name
			name = ""
		}
		name = strings.TrimSpace(name)
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if name == "" {
			name = hostOf(url)
		}
		feeds = append(feeds, Feed{Name: name, URL: url})
	}
	return feeds
}

func hostOf(url string) string {
	host := url
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.IndexAny(host, "/?"); idx >= 0 {
		host = host[:idx]
	}
	return host
}
