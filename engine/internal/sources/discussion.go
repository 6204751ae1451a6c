package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/interviewintel/pipeline/engine/internal/company"
	"github.com/interviewintel/pipeline/engine/internal/crawler"
	"github.com/interviewintel/pipeline/engine/models"
)

// discussEdge mirrors the shape of one post node in a discussion platform's
// category-topic-list GraphQL-style JSON response. Only the fields this
// adapter cares about are declared; everything else is ignored by the JSON
// decoder.
type discussEdge struct {
	Node struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Content string `json:"content"`
		Created string `json:"creationDate"`
	} `json:"node"`
}

type discussSearchResponse struct {
	Data struct {
		CategoryTopicList struct {
			Edges []discussEdge `json:"edges"`
		} `json:"categoryTopicList"`
	} `json:"data"`
}

// DiscussionAdapter targets forum-style Q&A/discussion platforms whose
// search endpoint can return either a JSON payload (preferred, when the
// client sends an AJAX-style Accept header) or an HTML results page
// (fallback, when the platform serves a bot a plain page instead).
type DiscussionAdapter struct {
	name            string
	baseURL         string
	searchPath      string
	companyVariants map[string][]string
	titleSelectors  []string
	contentSelector []string
	crawl           *crawler.Engine
	disambiguator   *company.Disambiguator
}

// NewDiscussionAdapter builds a DiscussionAdapter. searchPath is appended to
// baseURL to form the discussion search endpoint (e.g. "/discuss/interview-question").
func NewDiscussionAdapter(name, baseURL, searchPath string, companyVariants map[string][]string, crawl *crawler.Engine, disambiguator *company.Disambiguator) *DiscussionAdapter {
	return &DiscussionAdapter{
		name:            name,
		baseURL:         strings.TrimRight(baseURL, "/"),
		searchPath:      searchPath,
		companyVariants: companyVariants,
		titleSelectors:  []string{"h1", ".question-title", ".discuss-title"},
		contentSelector: []string{".question-content", ".discuss-content", ".content"},
		crawl:           crawl,
		disambiguator:   disambiguator,
	}
}

func (a *DiscussionAdapter) Name() string { return a.name }

func (a *DiscussionAdapter) variantsFor(companyName string) []string {
	if variants, ok := a.companyVariants[companyName]; ok {
		return variants
	}
	return []string{strings.ToLower(companyName)}
}

// DiscoverExperienceURLs queries the search endpoint once per company
// variant per page, preferring the structured JSON edge list and falling
// back to scraping anchor tags out of an HTML results page.
func (a *DiscussionAdapter) DiscoverExperienceURLs(ctx context.Context, companyName string, maxPages int) ([]string, error) {
	found := make(map[string]struct{})
	if maxPages <= 0 || maxPages > 5 {
		maxPages = 5
	}

	for _, variant := range a.variantsFor(companyName) {
		for page := 1; page <= maxPages; page++ {
			query := url.Values{
				"currentPage": {fmt.Sprintf("%d", page)},
				"orderBy":     {"most_relevant"},
				"query":       {variant + " interview"},
			}
			searchURL := fmt.Sprintf("%s%s?%s", a.baseURL, a.searchPath, query.Encode())

			body, status, err := a.crawl.Fetch(ctx, searchURL)
			if err != nil || status != 200 {
				continue
			}

			var resp discussSearchResponse
			if jsonErr := json.Unmarshal(body, &resp); jsonErr == nil && len(resp.Data.CategoryTopicList.Edges) > 0 {
				for _, edge := range resp.Data.CategoryTopicList.Edges {
					if edge.Node.ID == "" {
						continue
					}
					if matchesCompanyText(edge.Node.Title+" "+edge.Node.Content, companyName, a.companyVariants) {
						found[fmt.Sprintf("%s%s/%s", a.baseURL, a.searchPath, edge.Node.ID)] = struct{}{}
					}
				}
				continue
			}

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
			if err != nil {
				continue
			}
			doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
				href, ok := s.Attr("href")
				if !ok || !strings.Contains(href, a.searchPath+"/") {
					return
				}
				if matchesCompanyText(s.Text(), companyName, a.companyVariants) {
					if resolved := resolveURL(a.baseURL, href); resolved != "" {
						found[resolved] = struct{}{}
					}
				}
			})
		}
	}

	return keysOf(found), nil
}

// ExtractExperienceData first tries to parse rawURL's response as a single
// discussion post JSON document, falling back to HTML selector extraction
// for platforms that render posts server-side.
func (a *DiscussionAdapter) ExtractExperienceData(ctx context.Context, rawURL, targetCompany string) (*models.Record, error) {
	body, status, err := a.crawl.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, nil
	}

	var post struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Created string `json:"creationDate"`
	}
	if jsonErr := json.Unmarshal(body, &post); jsonErr == nil && post.Title != "" {
		content := htmlToMarkdown(post.Content)
		if len(strings.TrimSpace(content)) < minContentLength {
			return nil, &models.ShortContentError{URL: rawURL, Length: len(content)}
		}
		return a.buildRecord(rawURL, targetCompany, post.Title, content, parseDate(post.Created)), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, &models.ParseError{URL: rawURL, Err: err}
	}
	title := firstMatchingText(doc, a.titleSelectors, 0)
	if title == "" {
		return nil, nil
	}
	content := strings.TrimSpace(htmlToMarkdown(firstMatchingHTML(doc, a.contentSelector)))
	if len(content) < minContentLength {
		return nil, &models.ShortContentError{URL: rawURL, Length: len(content)}
	}
	return a.buildRecord(rawURL, targetCompany, title, content, parseDate()), nil
}

func (a *DiscussionAdapter) buildRecord(rawURL, targetCompany, title, content string, experienceDate time.Time) *models.Record {
	companyName := a.disambiguator.Extract(title, content, targetCompany)
	role := extractRole(title, content)
	roundsCount, roundsDetails := extractRoundsInfo(content)
	return &models.Record{
		Title:                strings.TrimSpace(title),
		Content:              content,
		SourceURL:            rawURL,
		SourcePlatform:       a.name,
		Company:              companyName,
		Role:                 role,
		ExperienceDate:       experienceDate,
		RoundsCount:          roundsCount,
		RoundsDetails:        roundsDetails,
		DifficultyIndicators: extractDifficultyIndicators(content),
		Outcome:              extractOutcome(content),
	}
}

// matchesCompanyText reports whether text plausibly references companyName,
// checking both the canonical name and any known URL-slug variants.
func matchesCompanyText(text, companyName string, variants map[string][]string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, strings.ToLower(companyName)) {
		return true
	}
	for _, v := range variants[companyName] {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
