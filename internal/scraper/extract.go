package scraper

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/logger"
)

const (
	// minAnchorTextLen is the threshold below which the anchor's own text
	// is considered absent and the parent's text is used instead
	minAnchorTextLen = 5

	// minTitleLen rejects derived titles that are too short to be a news
	// headline
	minTitleLen = 10
)

// bracketPlaceholderRe matches empty "[ ]" placeholder titles
var bracketPlaceholderRe = regexp.MustCompile(`^\s*\[\s*\]\s*$`)

// boilerplatePhrases are footer/legal link texts that must never become
// events. This is a precision filter: dropping a real headline is
// acceptable, publishing a policy link is not.
var boilerplatePhrases = []string{
	"Política de",
	"Términos de",
	"Privacy",
}

// Extractor locates candidate event fragments in a news page and turns
// them into raw, unvalidated drafts. It never sorts or filters by date;
// document order is preserved.
type Extractor struct {
	log *logger.Logger
}

// NewExtractor creates an extractor
func NewExtractor() *Extractor {
	return &Extractor{log: logger.ForScraper()}
}

// Extract scans doc for anchors pointing at news or post content and
// derives one draft per distinct resolved link
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) []event.RawDraft {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var drafts []event.RawDraft
	seen := make(map[string]bool)

	doc.Find(`a[href*="/news/"], a[href*="/post/"]`).Each(func(i int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}

		title := deriveTitle(link)
		if !isValidTitle(title) {
			return
		}

		fullURL := resolveURL(base, href)
		if seen[fullURL] {
			return
		}
		seen[fullURL] = true

		date := ""
		if start, ok := event.ParseDateFragment(title); ok {
			date = start.Format("2006-01-02T15:04:05Z")
		}

		drafts = append(drafts, event.RawDraft{
			Title:       title,
			Description: deriveDescription(link, title),
			Link:        href,
			FullURL:     fullURL,
			Date:        date,
			ImageURL:    findImage(link),
		})
	})

	e.log.Debug().Int("candidates", len(drafts)).Msg("Extraction pass complete")
	return drafts
}

// deriveTitle takes the anchor's own text, falling back to its immediate
// container when the anchor text is absent or too short
func deriveTitle(link *goquery.Selection) string {
	title := event.CollapseWhitespace(link.Text())
	if utf8.RuneCountInString(title) < minAnchorTextLen {
		if parent := link.Parent(); parent.Length() > 0 {
			title = event.CollapseWhitespace(parent.Text())
		}
	}
	return title
}

// isValidTitle applies the precision filter for derived titles
func isValidTitle(title string) bool {
	if title == "" || utf8.RuneCountInString(title) <= minTitleLen {
		return false
	}
	if bracketPlaceholderRe.MatchString(title) {
		return false
	}
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(title, phrase) {
			return false
		}
	}
	return true
}

// deriveDescription looks for a paragraph near the anchor; the title
// doubles as the description on listing pages that carry none
func deriveDescription(link *goquery.Selection, title string) string {
	if p := link.Find("p").First(); p.Length() > 0 {
		if text := event.CollapseWhitespace(p.Text()); text != "" {
			return text
		}
	}
	if parent := link.Parent(); parent.Length() > 0 {
		if p := parent.Find("p").First(); p.Length() > 0 {
			if text := event.CollapseWhitespace(p.Text()); text != "" {
				return text
			}
		}
	}
	return title
}

// findImage checks for an image inside the anchor first, then inside its
// immediate parent; absent is valid
func findImage(link *goquery.Selection) string {
	if src, ok := link.Find("img").First().Attr("src"); ok && src != "" {
		return src
	}
	if parent := link.Parent(); parent.Length() > 0 {
		if src, ok := parent.Find("img").First().Attr("src"); ok && src != "" {
			return src
		}
	}
	return ""
}

// resolveURL makes href absolute against the page's own URL
func resolveURL(base *url.URL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
