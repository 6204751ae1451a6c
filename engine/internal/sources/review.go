package sources

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/interviewintel/pipeline/engine/internal/company"
	"github.com/interviewintel/pipeline/engine/internal/crawler"
	"github.com/interviewintel/pipeline/engine/models"
)

// ReviewAdapter targets review-aggregator platforms (Glassdoor and
// similar). These sites run aggressive anti-bot detection, so discovery is
// intentionally conservative: a handful of known company IDs, limited link
// extraction per page, and a circuit that stops retrying a URL pattern once
// it has been seen returning 403.
type ReviewAdapter struct {
	name             string
	baseURL          string
	knownCompanyIDs  map[string]string
	titleSelectors   []string
	contentSelectors []string
	crawl            *crawler.Engine
	disambiguator    *company.Disambiguator

	mu             sync.Mutex
	blockedURLs    map[string]struct{}
}

// NewReviewAdapter builds a ReviewAdapter. knownCompanyIDs maps a canonical
// company name to the platform's internal numeric id, required to build a
// guessable interview-questions URL.
func NewReviewAdapter(name, baseURL string, knownCompanyIDs map[string]string, crawl *crawler.Engine, disambiguator *company.Disambiguator) *ReviewAdapter {
	return &ReviewAdapter{
		name:            name,
		baseURL:         strings.TrimRight(baseURL, "/"),
		knownCompanyIDs: knownCompanyIDs,
		titleSelectors:  []string{".interview-details h2", ".interviewQuestion", "h1", ".jobTitle"},
		contentSelectors: []string{
			".interviewQuestionDetails", ".interview-question-content", ".interviewContent", ".reviewText",
		},
		crawl:         crawl,
		disambiguator: disambiguator,
		blockedURLs:   make(map[string]struct{}),
	}
}

func (a *ReviewAdapter) Name() string { return a.name }

// DiscoverExperienceURLs tries the one or two public review-page URL
// patterns this platform is known to expose for a company id, extracting
// at most a handful of interview links per page. Patterns already observed
// returning 403 are skipped on subsequent calls for the life of the
// adapter.
func (a *ReviewAdapter) DiscoverExperienceURLs(ctx context.Context, companyName string, maxPages int) ([]string, error) {
	id, ok := a.knownCompanyIDs[companyName]
	if !ok {
		return nil, nil
	}

	patterns := []string{
		fmt.Sprintf("%s/Interview/%s-Interview-Questions-E%s.htm", a.baseURL, companyName, id),
		fmt.Sprintf("%s/Reviews/%s-Reviews-E%s.htm", a.baseURL, companyName, id),
	}

	found := make(map[string]struct{})
	for _, candidate := range patterns {
		if a.isBlocked(candidate) {
			continue
		}
		body, status, err := a.crawl.Fetch(ctx, candidate)
		if err != nil {
			continue
		}
		if status == 403 {
			a.markBlocked(candidate)
			continue
		}
		if status != 200 {
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			continue
		}
		count := 0
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			if count >= 3 {
				return
			}
			href, ok := s.Attr("href")
			if !ok || !strings.Contains(href, "Interview") {
				return
			}
			resolved := resolveURL(a.baseURL, href)
			if resolved != "" {
				found[resolved] = struct{}{}
				count++
			}
		})
		break
	}

	return keysOf(found), nil
}

func (a *ReviewAdapter) isBlocked(url string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.blockedURLs[url]
	return ok
}

func (a *ReviewAdapter) markBlocked(url string) {
	a.mu.Lock()
	a.blockedURLs[url] = struct{}{}
	a.mu.Unlock()
}

var ratingNumberRe = regexp.MustCompile(`(\d+\.?\d*)`)

// ExtractExperienceData pulls review-style fields (difficulty rating,
// outcome) out of the page in addition to the common title/content/date
// fields.
func (a *ReviewAdapter) ExtractExperienceData(ctx context.Context, rawURL, targetCompany string) (*models.Record, error) {
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

	title := firstMatchingText(doc, a.titleSelectors, 0)
	if title == "" {
		return nil, nil
	}

	content := strings.TrimSpace(htmlToMarkdown(firstMatchingHTML(doc, a.contentSelectors)))
	if len(content) < 50 {
		return nil, &models.ShortContentError{URL: rawURL, Length: len(content)}
	}

	experienceDate := a.extractDate(doc)
	companyName := a.disambiguator.Extract(title, content, targetCompany)
	role := extractRole(title, content)
	roundsCount, roundsDetails := extractRoundsInfo(content)
	outcome := a.extractOutcome(doc, content)

	indicators := extractDifficultyIndicators(content)
	if rating := a.extractDifficultyRating(doc); rating != nil {
		indicators = append(indicators, fmt.Sprintf("platform_rating:%.1f", *rating))
	}

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
		DifficultyIndicators: indicators,
		Outcome:              outcome,
	}, nil
}

var reviewDateSelectors = []string{".interview-date", ".reviewDate", "time[datetime]", ".date"}

func (a *ReviewAdapter) extractDate(doc *goquery.Document) time.Time {
	for _, sel := range reviewDateSelectors {
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
	return parseDate()
}

var reviewDifficultySelectors = []string{".difficultyRating", ".ratingNumber", "[data-test=\"difficulty-rating\"]"}

func (a *ReviewAdapter) extractDifficultyRating(doc *goquery.Document) *float64 {
	for _, sel := range reviewDifficultySelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		match := ratingNumberRe.FindString(el.Text())
		if match == "" {
			continue
		}
		if v, err := strconv.ParseFloat(match, 64); err == nil {
			return &v
		}
	}
	return nil
}

var reviewOutcomeSelectors = []string{".interviewOutcome", ".outcome", "[data-test=\"interview-outcome\"]"}

func (a *ReviewAdapter) extractOutcome(doc *goquery.Document, content string) models.Outcome {
	for _, sel := range reviewOutcomeSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(el.Text()))
		switch {
		case strings.Contains(text, "offer") || strings.Contains(text, "hired") || strings.Contains(text, "accepted"):
			return models.OutcomeOffer
		case strings.Contains(text, "rejected") || strings.Contains(text, "declined"):
			return models.OutcomeRejected
		}
	}
	return extractOutcome(content)
}
