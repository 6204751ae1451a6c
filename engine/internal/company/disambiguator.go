// Package company resolves free-text titles and article bodies down to one
// of a fixed set of canonical company names, using priority-ordered
// word-boundary pattern matching rather than NLP.
package company

import (
	"regexp"
	"strings"
)

// Unknown is returned when no configured pattern matches.
const Unknown = "Unknown"

type companyPattern struct {
	name     string
	patterns []string
	compiled []*regexp.Regexp
}

// Disambiguator matches content against a priority-ordered table of company
// name patterns. Patterns are compiled once at construction; callers never
// pay per-call regex compilation cost.
type Disambiguator struct {
	entries []companyPattern
	byName  map[string]int
}

// defaultTable is the priority-ordered set of company name patterns.
// Entries earlier in the slice win ties, matching the source system's
// dict-ordering behavior (PhonePe/Myntra/PayPal/PayTM are listed first
// specifically because their names can appear as substrings of broader
// fintech discussion).
var defaultTable = []companyPattern{
	{name: "PhonePe", patterns: []string{"phonepe", "phone pe"}},
	{name: "Myntra", patterns: []string{"myntra", "myntra.com"}},
	{name: "PayPal", patterns: []string{"paypal", "paypal.com"}},
	{name: "PayTM", patterns: []string{"paytm", "paytm.com", "one97"}},

	{name: "Google", patterns: []string{"google", "alphabet", "goog", "google.com", "alphabet inc"}},
	{name: "Amazon", patterns: []string{"amazon", "amzn", "aws", "amazon.com", "amazon inc"}},
	{name: "Microsoft", patterns: []string{"microsoft", "msft", "ms", "microsoft.com", "microsoft corporation"}},
	{name: "Apple", patterns: []string{"apple", "aapl", "apple inc", "apple.com"}},
	{name: "Meta", patterns: []string{"meta", "facebook", "fb", "instagram", "whatsapp", "meta platforms"}},
	{name: "Netflix", patterns: []string{"netflix", "nflx", "netflix.com", "netflix inc"}},

	{name: "Flipkart", patterns: []string{"flipkart", "flipkart.com", "flipkart india"}},
	{name: "Zomato", patterns: []string{"zomato", "zomato.com"}},
	{name: "Swiggy", patterns: []string{"swiggy", "swiggy.com"}},
	{name: "Ola", patterns: []string{"ola", "ola cabs", "ola.com"}},
	{name: "Uber", patterns: []string{"uber", "uber.com"}},
	{name: "Razorpay", patterns: []string{"razorpay", "razorpay.com"}},
	{name: "Dream11", patterns: []string{"dream11", "dream 11"}},
	{name: "Carwale", patterns: []string{"carwale", "carwale.com", "car wale"}},
	{name: "BigBasket", patterns: []string{"bigbasket", "big basket"}},
	{name: "Grofers", patterns: []string{"grofers", "blinkit"}},
	{name: "Dunzo", patterns: []string{"dunzo", "dunzo.com"}},

	{name: "Freshworks", patterns: []string{"freshworks", "freshdesk", "freshservice"}},
	{name: "Zoho", patterns: []string{"zoho", "zoho.com"}},
	{name: "InMobi", patterns: []string{"inmobi", "inmobi.com"}},
	{name: "ShareChat", patterns: []string{"sharechat", "share chat"}},
	{name: "Nykaa", patterns: []string{"nykaa", "nykaa.com"}},
	{name: "PolicyBazaar", patterns: []string{"policybazaar", "policy bazaar"}},
	{name: "MakeMyTrip", patterns: []string{"makemytrip", "make my trip", "mmt"}},
	{name: "BookMyShow", patterns: []string{"bookmyshow", "book my show", "bms"}},
	{name: "Lenskart", patterns: []string{"lenskart", "lenskart.com"}},
	{name: "UrbanCompany", patterns: []string{"urbancompany", "urban company", "urbanclap", "urban clap"}},
	{name: "Cred", patterns: []string{"cred", "cred.com"}},
	{name: "Unacademy", patterns: []string{"unacademy", "unacademy.com"}},
	{name: "Vedantu", patterns: []string{"vedantu", "vedantu.com"}},
	{name: "Byju", patterns: []string{"byju", "byjus", "byju's"}},
}

// New builds a Disambiguator from the built-in priority-ordered company
// table, extended with any caller-supplied overlay entries (appended after
// the built-ins, so overlay patterns never outrank the defaults).
func New(overlay map[string][]string) *Disambiguator {
	entries := make([]companyPattern, 0, len(defaultTable)+len(overlay))
	for _, e := range defaultTable {
		entries = append(entries, compilePattern(e.name, e.patterns))
	}
	for name, patterns := range overlay {
		entries = append(entries, compilePattern(name, patterns))
	}

	byName := make(map[string]int, len(entries))
	for i, e := range entries {
		byName[e.name] = i
	}
	return &Disambiguator{entries: entries, byName: byName}
}

func compilePattern(name string, patterns []string) companyPattern {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
	}
	return companyPattern{name: name, patterns: patterns, compiled: compiled}
}

// Extract resolves the company name mentioned in title+content. If
// targetCompany is non-empty it is checked first (direct substring or its
// own configured patterns, or a fresh word-boundary pattern built from its
// lowercased name if it isn't in the table); on a miss the full
// priority-ordered table is scanned and the first match wins. Unknown is
// returned if nothing matches.
func (d *Disambiguator) Extract(title, content, targetCompany string) string {
	text := strings.ToLower(title + " " + content)

	if targetCompany != "" {
		if got := d.checkTargetFirst(text, targetCompany); got != Unknown {
			return got
		}
	}

	for _, e := range d.entries {
		if matchesAny(text, e.compiled) {
			return e.name
		}
	}

	return Unknown
}

func (d *Disambiguator) checkTargetFirst(text, targetCompany string) string {
	targetLower := strings.ToLower(targetCompany)
	if strings.Contains(text, targetLower) {
		return targetCompany
	}

	if idx, ok := d.byName[targetCompany]; ok {
		if matchesAny(text, d.entries[idx].compiled) {
			return targetCompany
		}
		return Unknown
	}

	// Not in the table: fall back to a single ad hoc word-boundary match on
	// its own lowercased name, same as the source's default-to-[target_lower]
	// behavior.
	adHoc := regexp.MustCompile(`\b` + regexp.QuoteMeta(targetLower) + `\b`)
	if adHoc.MatchString(text) {
		return targetCompany
	}
	return Unknown
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// AllCompanies returns every canonical company name known to the table, in
// priority order.
func (d *Disambiguator) AllCompanies() []string {
	out := make([]string, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.name
	}
	return out
}

// PatternsFor returns the raw patterns configured for a company name, or nil
// if it isn't in the table.
func (d *Disambiguator) PatternsFor(name string) []string {
	idx, ok := d.byName[name]
	if !ok {
		return nil
	}
	return d.entries[idx].patterns
}
