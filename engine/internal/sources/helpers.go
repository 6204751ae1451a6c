package sources

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/araddon/dateparse"
	"github.com/interviewintel/pipeline/engine/models"
)

// minContentLength below which a candidate page is discarded as not a real
// interview experience.
const minContentLength = 100

// staleFallbackAge is used when no publish date can be found anywhere on
// the page; the content is treated as moderately stale rather than fresh.
const staleFallbackAge = 30 * 24 * time.Hour

var markdownConverter = converter.NewConverter(converter.WithPlugins(
	base.NewBasePlugin(),
	commonmark.NewCommonmarkPlugin(),
))

// htmlToMarkdown normalizes extracted HTML fragments into markdown so
// downstream topic extraction and storage see a consistent text shape
// regardless of source platform markup.
func htmlToMarkdown(html string) string {
	markdown, err := markdownConverter.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(markdown)
}

// parseDate tries every string in candidates in order and returns the first
// one that parses; falls back to now - staleFallbackAge, matching the
// conservative "assume moderately old" behavior used across adapters when
// no reliable publish date is present.
func parseDate(candidates ...string) time.Time {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if t, err := dateparse.ParseAny(c); err == nil {
			return t
		}
	}
	return time.Now().UTC().Add(-staleFallbackAge)
}

var rolePatterns = []struct {
	role     string
	keywords []string
}{
	{"SDE Intern", []string{"intern", "internship", "summer intern"}},
	{"SDE-3", []string{"sde-3", "sde 3", "senior sde", "staff engineer"}},
	{"SDE-2", []string{"sde-2", "sde 2", "sde ii"}},
	{"SDE-1", []string{"sde-1", "sde 1", "sde i"}},
	{"SDE", []string{"sde", "software development engineer", "software developer", "software engineer"}},
}

// extractRole scans title and content for role vocabulary, falling back to
// a generic title when nothing matches.
func extractRole(title, content string) string {
	text := strings.ToLower(title + " " + content)
	for _, rp := range rolePatterns {
		for _, kw := range rp.keywords {
			if strings.Contains(text, kw) {
				return rp.role
			}
		}
	}
	return "Software Engineer"
}

var positiveOutcomeIndicators = []string{
	"got the offer", "selected", "hired", "offer letter", "accepted", "joined", "success",
}

var negativeOutcomeIndicators = []string{
	"rejected", "not selected", "failed", "did not get", "unsuccessful", "didn't make it",
}

// extractOutcome classifies content as offer/rejected/unknown based on
// simple positive/negative phrase matching.
func extractOutcome(content string) models.Outcome {
	text := strings.ToLower(content)
	for _, p := range positiveOutcomeIndicators {
		if strings.Contains(text, p) {
			return models.OutcomeOffer
		}
	}
	for _, n := range negativeOutcomeIndicators {
		if strings.Contains(text, n) {
			return models.OutcomeRejected
		}
	}
	return models.OutcomeUnknown
}

var (
	roundNumberRe = regexp.MustCompile(`(?i)round\s*(\d+)|(\d+)\s*round|interview\s*(\d+)`)
	roundSplitRe  = regexp.MustCompile(`(?i)round\s*\d+|interview\s*\d+`)
)

// extractRoundsInfo counts distinct round numbers mentioned in content and,
// failing that, falls back to the count of round-shaped sections split out
// of the body text.
func extractRoundsInfo(content string) (int, []models.RoundDetail) {
	seen := make(map[int]struct{})
	for _, m := range roundNumberRe.FindAllStringSubmatch(content, -1) {
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			if n, err := parseRoundNumber(g); err == nil {
				seen[n] = struct{}{}
			}
		}
	}

	sections := roundSplitRe.Split(content, -1)
	var details []models.RoundDetail
	for i, section := range sections {
		if i == 0 {
			continue
		}
		trimmed := strings.TrimSpace(section)
		if len(trimmed) <= 50 {
			continue
		}
		if len(trimmed) > 500 {
			trimmed = trimmed[:500]
		}
		details = append(details, models.RoundDetail{RoundNumber: i, Description: trimmed})
	}

	count := len(seen)
	if count == 0 {
		count = len(details)
	}
	if count == 0 {
		count = 1
	}
	return count, details
}

func parseRoundNumber(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotANumber
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

var errNotANumber = errors.New("not a number")

var difficultyIndicatorKeywords = map[string][]string{
	"easy":   {"easy", "simple", "basic", "straightforward"},
	"medium": {"medium", "moderate", "intermediate", "standard"},
	"hard":   {"hard", "difficult", "challenging", "tough", "complex"},
}

// extractDifficultyIndicators reports which difficulty buckets' vocabulary
// shows up anywhere in content (a page can legitimately mention more than
// one, e.g. "easy warmup question, then a hard system design round").
func extractDifficultyIndicators(content string) []string {
	text := strings.ToLower(content)
	var indicators []string
	for _, level := range []string{"easy", "medium", "hard"} {
		for _, kw := range difficultyIndicatorKeywords[level] {
			if strings.Contains(text, kw) {
				indicators = append(indicators, level)
				break
			}
		}
	}
	return indicators
}

// interviewPostPatterns matches phrasing that actually describes going
// through an interview, as opposed to a post that merely mentions a
// company in passing.
var interviewPostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\binterview\s+experience\b`),
	regexp.MustCompile(`(?i)\binterview\s+(process|round|question)\b`),
	regexp.MustCompile(`(?i)\b(onsite|phone|technical|coding|behavioral)\s+interview\b`),
	regexp.MustCompile(`(?i)\b(got|received|rejected)\s+(offer|rejection)\b`),
	regexp.MustCompile(`(?i)\binterview\s+(failed|passed|cleared)\b`),
	regexp.MustCompile(`(?i)\bhired\s+at\b`),
	regexp.MustCompile(`(?i)\boffered\s+position\b`),
}

// interviewFalsePositiveKeywords rules out posts about hiring, compensation
// or culture that happen to share vocabulary with genuine interview writeups.
var interviewFalsePositiveKeywords = []string{
	"hiring", "job posting", "salary negotiation", "company culture",
	"benefits", "work life balance", "resignation", "performance review",
}

// isInterviewExperiencePost reports whether title+body reads like an actual
// interview writeup: mentions the target company, matches at least one
// interview-pattern phrase, clears a minimum combined length, and contains
// none of the false-positive keywords common to hiring/salary/culture posts.
func isInterviewExperiencePost(title, body, companyMatched string) bool {
	if companyMatched == "" {
		return false
	}
	fullText := strings.ToLower(title + " " + body)

	interviewMatch := false
	for _, re := range interviewPostPatterns {
		if re.MatchString(fullText) {
			interviewMatch = true
			break
		}
	}
	if !interviewMatch {
		return false
	}

	if len(title)+len(body) <= 150 {
		return false
	}

	for _, kw := range interviewFalsePositiveKeywords {
		if strings.Contains(fullText, kw) {
			return false
		}
	}

	return true
}
