package event

import (
	"strings"
	"time"
)

// Category classifies an announcement
type Category string

const (
	CategoryLegendary Category = "legendary"
	CategoryFestival  Category = "festival"
	CategoryCommunity Category = "community"
	CategorySpotlight Category = "spotlight"
	CategoryRaids     Category = "raids"
	CategoryOther     Category = "other"
)

// Event is the canonical, validated event record. Instances are immutable
// after creation; a later scrape of the same announcement produces a new
// record with the same ID.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	SourceURL   string    `json:"sourceUrl"`
	Category    Category  `json:"category"`
	ScrapedAt   time.Time `json:"scrapedAt"`
}

// RawDraft is an unvalidated candidate produced by the extractor.
// Drafts never leave the scraping pipeline; invalid ones are dropped.
type RawDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	FullURL     string `json:"fullUrl"`
	Date        string `json:"date"`
	ImageURL    string `json:"imageUrl"`
}

// categoryKeywords maps title keywords (Spanish source locale plus the
// English loanwords the site mixes in) to categories. First match wins.
var categoryKeywords = []struct {
	keyword  string
	category Category
}{
	{"festival", CategoryFestival},
	{"go fest", CategoryFestival},
	{"comunidad", CategoryCommunity},
	{"community day", CategoryCommunity},
	{"incursi", CategoryRaids},
	{"raid", CategoryRaids},
	{"hora del foco", CategorySpotlight},
	{"spotlight", CategorySpotlight},
	{"legendario", CategoryLegendary},
	{"legendary", CategoryLegendary},
}

// ClassifyCategory derives a category from a title, defaulting to "other"
func ClassifyCategory(title string) Category {
	lower := strings.ToLower(title)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}
	return CategoryOther
}
