package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/sources"
)

const (
	defaultTopic       = "oncology"
	recommendedExperts = 5
)

type TrialSearcher interface {
	Search(ctx context.Context, q sources.TrialQuery) []models.Trial
}

type PublicationSearcher interface {
	Search(ctx context.Context, q string) []models.Publication
}

type ExpertSearcher interface {
	Search(ctx context.Context, q string) []models.Expert
}

// SearchService fronts the external sources. Results are never an error:
// an unreachable source yields an empty list.
type SearchService struct {
	trials       TrialSearcher
	publications PublicationSearcher
	experts      ExpertSearcher
}

func NewSearchService(trials TrialSearcher, publications PublicationSearcher, experts ExpertSearcher) *SearchService {
	return &SearchService{
		trials:       trials,
		publications: publications,
		experts:      experts,
	}
}

func (s *SearchService) Trials(ctx context.Context, q sources.TrialQuery) []models.Trial {
	return nonNil(s.trials.Search(ctx, q))
}

func (s *SearchService) Publications(ctx context.Context, q string) []models.Publication {
	return nonNil(s.publications.Search(ctx, q))
}

func (s *SearchService) Experts(ctx context.Context, q string) []models.Expert {
	return nonNil(s.experts.Search(ctx, q))
}

type RecommendationService struct {
	search   *SearchService
	profiles *ProfileService
	log      *zap.Logger
}

func NewRecommendationService(search *SearchService, profiles *ProfileService, log *zap.Logger) *RecommendationService {
	return &RecommendationService{
		search:   search,
		profiles: profiles,
		log:      log.Named("recommendations"),
	}
}

// Topic is the first of the profile's topics, or "oncology".
func Topic(p *models.Profile) string {
	if topics := p.Topics(); len(topics) > 0 {
		if t := strings.TrimSpace(topics[0]); t != "" {
			return t
		}
	}
	return defaultTopic
}

// Recommend builds the dashboard for userID from the first topic of their
// profile: trials and publications on that topic plus a few local
// researchers. Researchers never see themselves.
func (s *RecommendationService) Recommend(ctx context.Context, userID string) (*models.Recommendations, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	topic := Topic(profile)

	out := &models.Recommendations{}
	var g errgroup.Group
	g.Go(func() error {
		out.Trials = s.search.Trials(ctx, sources.TrialQuery{Q: topic})
		return nil
	})
	g.Go(func() error {
		out.Publications = s.search.Publications(ctx, topic)
		return nil
	})
	g.Go(func() error {
		exclude := ""
		if profile != nil && profile.Role == models.RoleResearcher {
			exclude = userID
		}
		experts, err := s.profiles.Researchers(ctx, exclude, recommendedExperts)
		if err != nil {
			s.log.Warn("local researcher directory failed", zap.String("user_id", userID), zap.Error(err))
			experts = []models.Expert{}
		}
		out.Experts = experts
		return nil
	})
	_ = g.Wait()

	return out, nil
}
