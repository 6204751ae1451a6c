// Package sources implements one adapter per interview-experience platform.
// Every adapter routes its HTTP traffic through a shared crawl engine and
// resolves the company mentioned in free text through a shared
// disambiguator, so platform-specific code is limited to URL discovery and
// HTML/JSON field extraction.
package sources

import (
	"context"

	"github.com/interviewintel/pipeline/engine/models"
)

// Adapter discovers candidate experience URLs for a company on one platform
// and extracts a structured Record from any URL it returns.
type Adapter interface {
	// Name identifies the adapter for logging and source_platform tagging.
	Name() string
	// DiscoverExperienceURLs returns candidate URLs likely to contain an
	// interview experience for company, trying multiple strategies in
	// priority order and giving up early once enough are found.
	DiscoverExperienceURLs(ctx context.Context, company string, maxPages int) ([]string, error)
	// ExtractExperienceData fetches rawURL and parses it into a Record. It
	// returns (nil, nil) when the page has no usable title or is not a 200,
	// a *models.ShortContentError when the extracted content is too short,
	// and other errors for fetch and parse failures.
	ExtractExperienceData(ctx context.Context, rawURL, targetCompany string) (*models.Record, error)
}
