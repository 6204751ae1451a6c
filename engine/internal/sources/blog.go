package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/interviewintel/pipeline/engine/internal/company"
	"github.com/interviewintel/pipeline/engine/internal/crawler"
	"github.com/interviewintel/pipeline/engine/models"
)

// experienceURLIndicators are substrings that mark a URL as probably
// containing an interview writeup, used to filter link discovery results
// on blog-style platforms.
var experienceURLIndicators = []string{
	"interview-experience",
	"interview-exp",
	"coding-interview",
	"sde-interview",
	"software-engineer-interview",
}

var inlineDateRe = regexp.MustCompile(`(?i)(?:last updated|published)\s*:?\s*([\w ,]{6,20}\d{4})|(\d{1,2}\s+\w+,?\s+\d{4})|(\w+\s+\d{1,2},?\s+\d{4})`)

// BlogAdapter discovers and extracts interview experiences from long-form
// article platforms (GeeksforGeeks and similar sites), where content lives
// in a handful of well-known article containers and discovery relies on
// per-company article listing pages plus guessed URL slugs.
type BlogAdapter struct {
	name             string
	baseURL          string
	companyVariants  map[string][]string
	titleSelectors   []string
	contentSelectors []string
	crawl            *crawler.Engine
	disambiguator    *company.Disambiguator
}

// NewBlogAdapter builds a BlogAdapter. companyVariants maps a canonical
// company name to the URL-slug spellings that platform uses for it.
func NewBlogAdapter(name, baseURL string, companyVariants map[string][]string, crawl *crawler.Engine, disambiguator *company.Disambiguator) *BlogAdapter {
	return &BlogAdapter{
		name:            name,
		baseURL:         strings.TrimRight(baseURL, "/"),
		companyVariants: companyVariants,
		titleSelectors:  []string{"h1.entry-title", "h1.article-title", "h1", ".page-title"},
		contentSelectors: []string{
			".entry-content", ".article-content", ".post-content", "article", ".content", "main",
		},
		crawl:         crawl,
		disambiguator: disambiguator,
	}
}

func (a *BlogAdapter) Name() string { return a.name }

func (a *BlogAdapter) variantsFor(company string) []string {
	if variants, ok := a.companyVariants[company]; ok {
		return variants
	}
	return []string{strings.ToLower(company)}
}

// DiscoverExperienceURLs checks the company's articles-listing page first,
// then falls back to a short list of guessed URL slugs. It stops once it
// has gathered enough candidates rather than exhausting every strategy.
func (a *BlogAdapter) DiscoverExperienceURLs(ctx context.Context, companyName string, maxPages int) ([]string, error) {
	found := make(map[string]struct{})

	for _, variant := range a.variantsFor(companyName) {
		listingURL := fmt.Sprintf("%s/companies/%s/articles/", a.baseURL, variant)
		body, status, err := a.crawl.Fetch(ctx, listingURL)
		if err != nil || status != 200 {
			continue
		}
		for _, link := range a.extractExperienceLinks(body) {
			found[link] = struct{}{}
		}
	}
	if len(found) >= 10 {
		return keysOf(found), nil
	}

	for _, variant := range a.variantsFor(companyName) {
		for _, suffix := range []string{
			"-interview-experience",
			"-software-engineer-interview-experience",
			"-sde-interview-experience",
			"-coding-interview-experience",
		} {
			candidate := fmt.Sprintf("%s/%s%s", a.baseURL, variant, suffix)
			_, status, err := a.crawl.Fetch(ctx, candidate)
			if err == nil && status == 200 && isInterviewExperienceURL(candidate) {
				found[candidate] = struct{}{}
			}
			if len(found) >= maxPages {
				return keysOf(found), nil
			}
		}
	}

	return keysOf(found), nil
}

func (a *BlogAdapter) extractExperienceLinks(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !isInterviewExperienceURL(href) {
			return
		}
		resolved := resolveURL(a.baseURL, href)
		if resolved != "" {
			links = append(links, resolved)
		}
	})
	return links
}

// ExtractExperienceData fetches rawURL and pulls title/content/metadata out
// of the first matching selector in each selector list, falling back to
// paragraph concatenation when none of the known containers are present.
func (a *BlogAdapter) ExtractExperienceData(ctx context.Context, rawURL, targetCompany string) (*models.Record, error) {
	body, status, err := a.crawl.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, &models.ParseError{URL: rawURL, Err: err}
	}

	title := firstMatchingText(doc, a.titleSelectors, 10)
	if title == "" {
		return nil, nil
	}

	contentHTML := firstMatchingHTML(doc, a.contentSelectors)
	content := htmlToMarkdown(contentHTML)
	if len(strings.TrimSpace(content)) < minContentLength {
		return nil, &models.ShortContentError{URL: rawURL, Length: len(content)}
	}

	experienceDate := a.extractDate(doc, string(body))
	companyName := a.disambiguator.Extract(title, content, targetCompany)
	role := extractRole(title, content)
	roundsCount, roundsDetails := extractRoundsInfo(content)

	return &models.Record{
		Title:                strings.TrimSpace(title),
		Content:              strings.TrimSpace(content),
		SourceURL:            rawURL,
		SourcePlatform:       a.name,
		Company:              companyName,
		Role:                 role,
		ExperienceDate:       experienceDate,
		RoundsCount:          roundsCount,
		RoundsDetails:        roundsDetails,
		DifficultyIndicators: extractDifficultyIndicators(content),
		Outcome:              extractOutcome(content),
	}, nil
}

var dateSelectors = []string{".entry-date", ".published-date", ".post-date", "time[datetime]"}

// extractDate looks for a structured date element first, then falls back to
// regex-matching common "Last Updated"/"Published" phrasings in the raw
// page text, and finally to a conservative staleness assumption.
func (a *BlogAdapter) extractDate(doc *goquery.Document, pageText string) time.Time {
	for _, sel := range dateSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		candidate, _ := el.Attr("datetime")
		if candidate == "" {
			candidate = strings.TrimSpace(el.Text())
		}
		if t, err := dateparse.ParseAny(candidate); err == nil {
			return t
		}
	}
	if match := inlineDateRe.FindStringSubmatch(pageText); match != nil {
		for _, g := range match[1:] {
			if g != "" {
				if t, err := dateparse.ParseAny(g); err == nil {
					return t
				}
			}
		}
	}
	return parseDate()
}

func isInterviewExperienceURL(u string) bool {
	lower := strings.ToLower(u)
	for _, indicator := range experienceURLIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

func firstMatchingText(doc *goquery.Document, selectors []string, minLen int) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if len(text) > minLen {
			return text
		}
	}
	return ""
}

func firstMatchingHTML(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		selection := doc.Find(sel).First()
		if selection.Length() == 0 {
			continue
		}
		html, err := selection.Html()
		if err == nil && strings.TrimSpace(html) != "" {
			return html
		}
	}
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n")
}

func keysOf(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
