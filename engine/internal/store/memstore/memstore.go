// Package memstore is an in-memory store.Gateway, sufficient for tests and
// single-process deployments where an external database is out of scope.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/interviewintel/pipeline/engine/internal/store"
	"github.com/interviewintel/pipeline/engine/models"
)

// Store is a mutex-protected, map-backed store.Gateway implementation. All
// methods hold a single lock for the duration of the call; that is fine at
// the scale this pipeline targets (a handful of companies, low tens of
// thousands of experiences) and keeps the unit-of-work guarantees trivial
// to reason about.
type Store struct {
	mu sync.Mutex

	companies       map[string]models.Company       // canonical name -> company
	experiences     map[string]models.InterviewExperience // id -> experience
	experienceByURL map[string]string                // source_url -> id
	mentions        map[string][]models.TopicMention // experience id -> mentions
	topics          map[string]models.Topic          // id -> topic
	topicByName     map[string]string                // "category.topic" -> id
	insights        map[string][]models.CompanyInsight // canonical name -> insights
	rounds          map[string][]models.RoundMention // experience id -> round classifications
	keyInsights     map[string][]string              // experience id -> key insight strings
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		companies:       make(map[string]models.Company),
		experiences:     make(map[string]models.InterviewExperience),
		experienceByURL: make(map[string]string),
		mentions:        make(map[string][]models.TopicMention),
		topics:          make(map[string]models.Topic),
		topicByName:     make(map[string]string),
		insights:        make(map[string][]models.CompanyInsight),
		rounds:          make(map[string][]models.RoundMention),
		keyInsights:     make(map[string][]string),
	}
}

var _ store.Gateway = (*Store)(nil)

func (s *Store) UpsertExperience(ctx context.Context, companyName string, record models.Record) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.experienceByURL[record.SourceURL]; ok {
		return id, false, nil
	}

	if _, ok := s.companies[companyName]; !ok {
		s.companies[companyName] = models.Company{ID: uuid.NewString(), CanonicalName: companyName}
	}
	company := s.companies[companyName]

	id := uuid.NewString()
	exp := models.InterviewExperience{
		ID:             id,
		CompanyID:      company.ID,
		Title:          record.Title,
		Content:        record.Content,
		SourceURL:      record.SourceURL,
		SourcePlatform: record.SourcePlatform,
		Role:           record.Role,
		ExperienceDate: record.ExperienceDate,
		ScrapedAt:      time.Now().UTC(),
		TimeWeight:     record.TimeWeight,
		Success:        record.Outcome == models.OutcomeOffer,
		RoundsCount:    record.RoundsCount,
		RoundsDetails:  record.RoundsDetails,
		Outcome:        record.Outcome,
	}
	s.experiences[id] = exp
	s.experienceByURL[record.SourceURL] = id
	return id, true, nil
}

func (s *Store) CountExperiences(ctx context.Context, companyName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.experiencesForLocked(companyName)), nil
}

func (s *Store) LatestScrapedAt(ctx context.Context, companyName string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	found := false
	for _, exp := range s.experiencesForLocked(companyName) {
		if !found || exp.ScrapedAt.After(latest) {
			latest = exp.ScrapedAt
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) ListExperiences(ctx context.Context, companyName string) ([]models.InterviewExperience, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.experiencesForLocked(companyName)
	sort.Slice(out, func(i, j int) bool { return out[i].ScrapedAt.Before(out[j].ScrapedAt) })
	return out, nil
}

func (s *Store) ListUnprocessedOrStale(ctx context.Context, companyName string, ttl time.Duration) ([]models.InterviewExperience, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-ttl)
	var out []models.InterviewExperience
	for _, exp := range s.experiencesForLocked(companyName) {
		if exp.ProcessedAt == nil || exp.ProcessedAt.Before(cutoff) {
			out = append(out, exp)
		}
	}
	return out, nil
}

func (s *Store) experiencesForLocked(companyName string) []models.InterviewExperience {
	company, ok := s.companies[companyName]
	if !ok {
		return nil
	}
	var out []models.InterviewExperience
	for _, exp := range s.experiences {
		if exp.CompanyID == company.ID {
			out = append(out, exp)
		}
	}
	return out
}

func (s *Store) SaveTopicMentions(ctx context.Context, experienceID string, mentions []models.TopicMention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.TopicMention, len(mentions))
	copy(cp, mentions)
	s.mentions[experienceID] = cp
	return nil
}

func (s *Store) MarkProcessed(ctx context.Context, experienceID string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.experiences[experienceID]
	if !ok {
		return &models.StoreError{Op: "mark_processed", Err: errNotFound(experienceID)}
	}
	t := processedAt
	exp.ProcessedAt = &t
	s.experiences[experienceID] = exp
	return nil
}

func (s *Store) SetDifficultyScore(ctx context.Context, experienceID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.experiences[experienceID]
	if !ok {
		return &models.StoreError{Op: "set_difficulty_score", Err: errNotFound(experienceID)}
	}
	exp.DifficultyScore = &score
	s.experiences[experienceID] = exp
	return nil
}

func (s *Store) SaveRoundClassifications(ctx context.Context, experienceID string, rounds []models.RoundMention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.RoundMention, len(rounds))
	copy(cp, rounds)
	s.rounds[experienceID] = cp
	return nil
}

func (s *Store) RoundsFor(ctx context.Context, experienceID string) ([]models.RoundMention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds[experienceID], nil
}

func (s *Store) SaveKeyInsights(ctx context.Context, experienceID string, insights []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(insights))
	copy(cp, insights)
	s.keyInsights[experienceID] = cp
	return nil
}

func (s *Store) KeyInsightsFor(ctx context.Context, experienceID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyInsights[experienceID], nil
}

func (s *Store) MentionsFor(ctx context.Context, experienceID string) ([]models.TopicMention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mentions[experienceID], nil
}

func (s *Store) TopicByID(ctx context.Context, topicID string) (models.Topic, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topicID]
	return t, ok, nil
}

func (s *Store) EnsureTopic(ctx context.Context, category, topicName string) (models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := category + "." + topicName
	if id, ok := s.topicByName[key]; ok {
		return s.topics[id], nil
	}
	t := models.Topic{ID: uuid.NewString(), Category: category, TopicName: topicName, DisplayName: key}
	s.topics[t.ID] = t
	s.topicByName[key] = t.ID
	return t, nil
}

func (s *Store) ReplaceCompanyInsights(ctx context.Context, companyName string, newInsights []models.CompanyInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.CompanyInsight, len(newInsights))
	copy(cp, newInsights)
	s.insights[companyName] = cp
	return nil
}

func (s *Store) ListCompanyInsights(ctx context.Context, companyName string) ([]models.CompanyInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insights[companyName], nil
}

func (s *Store) Companies(ctx context.Context) ([]models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out, nil
}

type notFoundError string

func (e notFoundError) Error() string { return "experience not found: " + string(e) }

func errNotFound(id string) error { return notFoundError(id) }
