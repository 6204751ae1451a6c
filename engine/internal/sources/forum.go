package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/interviewintel/pipeline/engine/internal/company"
	"github.com/interviewintel/pipeline/engine/internal/crawler"
	"github.com/interviewintel/pipeline/engine/models"
)

// redditListing mirrors the subset of Reddit's public search.json /
// comments.json response shape this adapter reads.
type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// ForumAdapter targets platforms exposing a public, unauthenticated JSON
// API over forum-style threads (Reddit's search.json/comments.json
// endpoints and similar). Discovery fans out across a fixed list of
// relevant subforums and search phrases rather than a single query, since
// these APIs rank relevance per-subforum.
type ForumAdapter struct {
	name          string
	apiBase       string
	subforums     []string
	searchPhrases []string
	crawl         *crawler.Engine
	disambiguator *company.Disambiguator
}

// NewForumAdapter builds a ForumAdapter. apiBase is the JSON API root (e.g.
// "https://www.reddit.com/r"); subforums are appended as "<apiBase>/<name>/search.json".
func NewForumAdapter(name, apiBase string, subforums []string, crawl *crawler.Engine, disambiguator *company.Disambiguator) *ForumAdapter {
	return &ForumAdapter{
		name:      name,
		apiBase:   strings.TrimRight(apiBase, "/"),
		subforums: subforums,
		searchPhrases: []string{
			"interview experience", "coding interview", "software engineer interview", "onsite interview", "phone screen",
		},
		crawl:         crawl,
		disambiguator: disambiguator,
	}
}

func (a *ForumAdapter) Name() string { return a.name }

// DiscoverExperienceURLs searches every configured subforum with every
// configured phrase for companyName, deduplicating permalinks across
// searches.
func (a *ForumAdapter) DiscoverExperienceURLs(ctx context.Context, companyName string, maxPages int) ([]string, error) {
	found := make(map[string]struct{})

	for _, subforum := range a.subforums {
		for _, phrase := range a.searchPhrases {
			query := url.Values{
				"q":          {fmt.Sprintf("%s %s", companyName, phrase)},
				"restrict_sr": {"on"},
				"sort":       {"relevance"},
				"limit":      {"25"},
				"t":          {"all"},
			}
			searchURL := fmt.Sprintf("%s/%s/search.json?%s", a.apiBase, subforum, query.Encode())

			body, status, err := a.crawl.Fetch(ctx, searchURL)
			if err != nil || status != 200 {
				continue
			}

			var listing redditListing
			if jsonErr := json.Unmarshal(body, &listing); jsonErr != nil {
				continue
			}
			for _, child := range listing.Data.Children {
				if child.Data.Permalink == "" {
					continue
				}
				matched := a.disambiguator.Extract(child.Data.Title, child.Data.Selftext, companyName)
				if matched != companyName {
					continue
				}
				if !isInterviewExperiencePost(child.Data.Title, child.Data.Selftext, matched) {
					continue
				}
				found[fmt.Sprintf("https://www.reddit.com%s", child.Data.Permalink)] = struct{}{}
			}
		}
	}

	return keysOf(found), nil
}

// ExtractExperienceData appends ".json" to a Reddit-style permalink to
// request the structured post payload instead of the rendered HTML page.
func (a *ForumAdapter) ExtractExperienceData(ctx context.Context, rawURL, targetCompany string) (*models.Record, error) {
	apiURL := strings.TrimRight(rawURL, "/") + ".json"
	body, status, err := a.crawl.Fetch(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, nil
	}

	var listings []redditListing
	if jsonErr := json.Unmarshal(body, &listings); jsonErr != nil || len(listings) == 0 {
		return nil, &models.ParseError{URL: rawURL, Err: jsonErr}
	}
	if len(listings[0].Data.Children) == 0 {
		return nil, nil
	}
	post := listings[0].Data.Children[0].Data

	content := strings.TrimSpace(post.Selftext)
	if len(content) < minContentLength {
		return nil, &models.ShortContentError{URL: rawURL, Length: len(content)}
	}

	companyName := a.disambiguator.Extract(post.Title, content, targetCompany)
	role := extractRole(post.Title, content)
	roundsCount, roundsDetails := extractRoundsInfo(content)
	experienceDate := time.Unix(int64(post.CreatedUTC), 0).UTC()

	return &models.Record{
		Title:                strings.TrimSpace(post.Title),
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
	}, nil
}
