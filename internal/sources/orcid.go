package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curalink/backend/internal/cache"
	"github.com/curalink/backend/internal/models"
)

const (
	orcidSearchRows    = 10
	orcidProfilesShown = 6
	orcidSearchTimeout = 15 * time.Second
	orcidRecordTimeout = 5 * time.Second
	// DefaultEnrichTimeout bounds AI enrichment of one researcher profile.
	DefaultEnrichTimeout = 2 * time.Second
)

// ExpertInfoExtractor derives structured fields from a researcher biography.
type ExpertInfoExtractor interface {
	ExtractExpertInfo(ctx context.Context, biography, name string) (models.ExpertInfo, error)
}

// ExpertSource searches public ORCID records.
type ExpertSource struct {
	baseURL       string
	client        *HTTPClient
	cache         cache.Cache[[]models.Expert]
	enricher      ExpertInfoExtractor
	enrichTimeout time.Duration
	log           *zap.Logger
}

// NewExpertSource creates an ORCID adapter. enricher may be nil, in which case
// enrichment fields are always empty.
func NewExpertSource(baseURL string, client *HTTPClient, c cache.Cache[[]models.Expert], enricher ExpertInfoExtractor, log *zap.Logger) *ExpertSource {
	return &ExpertSource{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        client,
		cache:         c,
		enricher:      enricher,
		enrichTimeout: DefaultEnrichTimeout,
		log:           log.Named("orcid"),
	}
}

// SetEnrichTimeout overrides the per-profile enrichment deadline.
func (s *ExpertSource) SetEnrichTimeout(d time.Duration) {
	s.enrichTimeout = d
}

// Search returns informative researcher profiles matching q. A blank query
// returns an empty list without contacting ORCID.
func (s *ExpertSource) Search(ctx context.Context, q string) []models.Expert {
	if strings.TrimSpace(q) == "" {
		return []models.Expert{}
	}
	return cachedSearch(ctx, SourceExperts, s.cache, "orcid:"+q, s.log, func(ctx context.Context) ([]models.Expert, error) {
		return s.fetch(ctx, q)
	})
}

func (s *ExpertSource) fetch(ctx context.Context, q string) ([]models.Expert, error) {
	params := url.Values{"q": {q}, "rows": {strconv.Itoa(orcidSearchRows)}}
	var result orcidSearchResponse
	if err := s.client.GetJSON(ctx, s.baseURL+"/expanded-search/?"+params.Encode(), acceptORCIDJSON, orcidSearchTimeout, &result); err != nil {
		return nil, err
	}

	hits := result.Results
	if len(hits) > orcidProfilesShown {
		hits = hits[:orcidProfilesShown]
	}

	// Profiles are fetched concurrently; a failed profile only drops itself.
	experts := make([]*models.Expert, len(hits))
	var g errgroup.Group
	for i, hit := range hits {
		g.Go(func() error {
			expert, err := s.fetchProfile(ctx, hit.ORCID)
			if err != nil {
				s.log.Debug("orcid profile skipped", zap.String("orcid", hit.ORCID), zap.Error(err))
				return nil
			}
			experts[i] = expert
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.Expert, 0, len(experts))
	for _, e := range experts {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

// fetchProfile loads and normalizes one record. It returns nil, nil for a
// profile with nothing worth showing.
func (s *ExpertSource) fetchProfile(ctx context.Context, orcidID string) (*models.Expert, error) {
	if orcidID == "" {
		return nil, nil
	}

	var rec orcidRecord
	endpoint := s.baseURL + "/" + url.PathEscape(orcidID) + "/record"
	if err := s.client.GetJSON(ctx, endpoint, acceptORCIDJSON, orcidRecordTimeout, &rec); err != nil {
		return nil, err
	}

	expert := rec.normalize(orcidID)
	if expert == nil {
		return nil, nil
	}
	expert.ExpertInfo = models.EmptyExpertInfo()
	if expert.Biography != nil && s.enricher != nil {
		expert.ExpertInfo = s.enrich(ctx, *expert.Biography, expert.Name)
	}
	return expert, nil
}

// enrich races AI extraction against the enrichment timeout. Timeouts and
// errors yield empty fields.
func (s *ExpertSource) enrich(ctx context.Context, biography, name string) models.ExpertInfo {
	ctx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	type result struct {
		info models.ExpertInfo
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := s.enricher.ExtractExpertInfo(ctx, biography, name)
		done <- result{info: info, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.log.Debug("expert enrichment failed", zap.String("name", name), zap.Error(r.err))
			return models.EmptyExpertInfo()
		}
		if r.info.Specialties == nil {
			r.info.Specialties = []string{}
		}
		return r.info
	case <-ctx.Done():
		return models.EmptyExpertInfo()
	}
}

type orcidSearchResponse struct {
	Results []struct {
		ORCID string `json:"orcid-id"`
	} `json:"expanded-result"`
}

type orcidValue struct {
	Value string `json:"value"`
}

type orcidOrganization struct {
	Name    string `json:"name"`
	Address struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"address"`
}

type orcidAffiliation struct {
	DepartmentName string            `json:"department-name"`
	Organization   orcidOrganization `json:"organization"`
}

type orcidAffiliationGroups struct {
	Groups []struct {
		Summaries []struct {
			Employment *orcidAffiliation `json:"employment-summary"`
			Education  *orcidAffiliation `json:"education-summary"`
		} `json:"summaries"`
	} `json:"affiliation-group"`
}

func (g orcidAffiliationGroups) list() []orcidAffiliation {
	var out []orcidAffiliation
	for _, group := range g.Groups {
		for _, s := range group.Summaries {
			if s.Employment != nil {
				out = append(out, *s.Employment)
			}
			if s.Education != nil {
				out = append(out, *s.Education)
			}
		}
	}
	return out
}

type orcidRecord struct {
	Person struct {
		Name *struct {
			GivenNames orcidValue  `json:"given-names"`
			FamilyName orcidValue  `json:"family-name"`
			CreditName *orcidValue `json:"credit-name"`
		} `json:"name"`
		Biography *struct {
			Content string `json:"content"`
		} `json:"biography"`
		Addresses struct {
			Address []struct {
				Country orcidValue `json:"country"`
			} `json:"address"`
		} `json:"addresses"`
		Keywords struct {
			Keyword []struct {
				Content string `json:"content"`
			} `json:"keyword"`
		} `json:"keywords"`
		Emails struct {
			Email []struct {
				Email string `json:"email"`
			} `json:"email"`
		} `json:"emails"`
	} `json:"person"`
	Activities struct {
		Employments orcidAffiliationGroups `json:"employments"`
		Educations  orcidAffiliationGroups `json:"educations"`
	} `json:"activities-summary"`
}

const (
	unknownResearcher  = "Unknown Researcher"
	affiliationMissing = "Not Available"
	locationUnknown    = "Unknown"
)

// normalize flattens a record into an Expert, or returns nil when the record
// has no affiliation, no interests and no location.
func (r orcidRecord) normalize(orcidID string) *models.Expert {
	p := r.Person

	name := ""
	if p.Name != nil {
		name = strings.TrimSpace(p.Name.GivenNames.Value + " " + p.Name.FamilyName.Value)
		if name == "" && p.Name.CreditName != nil {
			name = p.Name.CreditName.Value
		}
	}
	name = firstNonEmpty(name, unknownResearcher)

	affiliations := append(r.Activities.Employments.list(), r.Activities.Educations.list()...)
	affiliation := affiliationMissing
	city := ""
	if len(affiliations) > 0 {
		first := affiliations[0]
		affiliation = firstNonEmpty(first.Organization.Name, first.DepartmentName, affiliationMissing)
		city = first.Organization.Address.City
	}

	country := ""
	if len(p.Addresses.Address) > 0 {
		country = p.Addresses.Address[0].Country.Value
	}
	location := firstNonEmpty(country, city, locationUnknown)

	interests := []string{}
	for _, k := range p.Keywords.Keyword {
		if strings.TrimSpace(k.Content) != "" {
			interests = append(interests, k.Content)
		}
	}

	if affiliation == affiliationMissing && len(interests) == 0 && location == locationUnknown {
		return nil
	}

	expert := &models.Expert{
		Name:              name,
		ORCID:             orcidID,
		ORCIDURL:          "https://orcid.org/" + orcidID,
		Affiliation:       affiliation,
		Location:          location,
		ResearchInterests: interests,
	}
	if p.Biography != nil && strings.TrimSpace(p.Biography.Content) != "" {
		bio := p.Biography.Content
		expert.Biography = &bio
	}
	if len(p.Emails.Email) > 0 {
		expert.Email = p.Emails.Email[0].Email
	}
	return expert
}
