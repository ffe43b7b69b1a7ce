package sources

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/cache"
	"github.com/curalink/backend/internal/models"
)

const (
	maxTrials     = 15
	trialsTimeout = 15 * time.Second
)

type TrialQuery struct {
	Q        string
	Status   string
	Location string
}

// CacheKey covers every query parameter; absent ones render as "".
func (q TrialQuery) CacheKey() string {
	return "ct:" + q.Q + ":" + q.Status + ":" + q.Location
}

// TrialSource searches the ClinicalTrials.gov v2 studies API.
type TrialSource struct {
	baseURL string
	client  *HTTPClient
	cache   cache.Cache[[]models.Trial]
	log     *zap.Logger
}

func NewTrialSource(baseURL string, client *HTTPClient, c cache.Cache[[]models.Trial], log *zap.Logger) *TrialSource {
	return &TrialSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   c,
		log:     log.Named("trials"),
	}
}

// Search returns at most 15 normalized trials. It never fails; upstream
// errors yield an empty list.
func (s *TrialSource) Search(ctx context.Context, q TrialQuery) []models.Trial {
	return cachedSearch(ctx, SourceTrials, s.cache, q.CacheKey(), s.log, func(ctx context.Context) ([]models.Trial, error) {
		return s.fetch(ctx, q)
	})
}

func (s *TrialSource) fetch(ctx context.Context, q TrialQuery) ([]models.Trial, error) {
	params := url.Values{}
	if q.Q != "" {
		params.Set("query.term", q.Q)
	}
	if q.Status != "" {
		params.Set("filter.overallStatus", q.Status)
	}
	if q.Location != "" {
		params.Set("filter.locationCountry", q.Location)
	}

	endpoint := s.baseURL + "/api/v2/studies"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var resp ctStudiesResponse
	if err := s.client.GetJSON(ctx, endpoint, acceptJSON, trialsTimeout, &resp); err != nil {
		return nil, err
	}

	studies := resp.Studies
	if len(studies) > maxTrials {
		studies = studies[:maxTrials]
	}
	trials := make([]models.Trial, 0, len(studies))
	for _, st := range studies {
		trials = append(trials, st.normalize())
	}
	return trials, nil
}

type ctStudiesResponse struct {
	Studies []ctStudy `json:"studies"`
}

type ctStudy struct {
	ProtocolSection ctProtocol `json:"protocolSection"`
	// Older payloads carried contacts beside the protocol section.
	ContactsLocationsModule *ctContactsLocations `json:"contactsLocationsModule"`
}

type ctProtocol struct {
	IdentificationModule struct {
		NCTID         string `json:"nctId"`
		OfficialTitle string `json:"officialTitle"`
		BriefTitle    string `json:"briefTitle"`
	} `json:"identificationModule"`
	StatusModule struct {
		OverallStatus string `json:"overallStatus"`
	} `json:"statusModule"`
	ConditionsModule struct {
		Conditions []string `json:"conditions"`
	} `json:"conditionsModule"`
	EligibilityModule struct {
		EligibilityCriteria        string `json:"eligibilityCriteria"`
		Sex                        string `json:"sex"`
		Gender                     string `json:"gender"`
		MinimumAge                 string `json:"minimumAge"`
		MaximumAge                 string `json:"maximumAge"`
		HealthyVolunteers          *bool  `json:"healthyVolunteers"`
		StudyPopulation            string `json:"studyPopulation"`
		StudyPopulationDescription string `json:"studyPopulationDescription"`
	} `json:"eligibilityModule"`
	DesignModule struct {
		Phases []string `json:"phases"`
	} `json:"designModule"`
	DescriptionModule struct {
		BriefSummary        string `json:"briefSummary"`
		DetailedDescription string `json:"detailedDescription"`
	} `json:"descriptionModule"`
	ContactsLocationsModule *ctContactsLocations `json:"contactsLocationsModule"`
}

type ctContactsLocations struct {
	CentralContacts []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"centralContacts"`
	Locations []struct {
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"locations"`
}

func (st ctStudy) normalize() models.Trial {
	p := st.ProtocolSection
	ident := p.IdentificationModule
	elig := p.EligibilityModule

	contactsLocations := p.ContactsLocationsModule
	if contactsLocations == nil {
		contactsLocations = st.ContactsLocationsModule
	}
	if contactsLocations == nil {
		contactsLocations = &ctContactsLocations{}
	}

	locations := make([]string, 0, len(contactsLocations.Locations))
	for _, loc := range contactsLocations.Locations {
		if joined := joinNonEmpty(", ", loc.City, loc.State, loc.Country); joined != "" {
			locations = append(locations, joined)
		}
	}

	contacts := make([]models.Contact, 0, len(contactsLocations.CentralContacts))
	for _, c := range contactsLocations.CentralContacts {
		contacts = append(contacts, models.Contact{Name: c.Name, Email: c.Email, Phone: c.Phone})
	}

	conditions := p.ConditionsModule.Conditions
	if conditions == nil {
		conditions = []string{}
	}

	healthy := "Unknown"
	if elig.HealthyVolunteers != nil {
		healthy = "No"
		if *elig.HealthyVolunteers {
			healthy = "Yes"
		}
	}

	phase := "N/A"
	if len(p.DesignModule.Phases) > 0 {
		phase = strings.Join(p.DesignModule.Phases, ", ")
	}

	return models.Trial{
		ID:         ident.NCTID,
		Title:      firstNonEmpty(ident.OfficialTitle, ident.BriefTitle, "Clinical Trial"),
		Status:     firstNonEmpty(p.StatusModule.OverallStatus, "Unknown"),
		Phase:      phase,
		Conditions: conditions,
		Location:   firstNonEmpty(strings.Join(locations, "; "), "Not specified"),
		Eligibility: models.Eligibility{
			Criteria:          firstNonEmpty(elig.EligibilityCriteria, "Not specified"),
			Gender:            firstNonEmpty(elig.Sex, elig.Gender, "All"),
			MinimumAge:        firstNonEmpty(elig.MinimumAge, "Not specified"),
			MaximumAge:        firstNonEmpty(elig.MaximumAge, "Not specified"),
			HealthyVolunteers: healthy,
			Population:        firstNonEmpty(elig.StudyPopulation, elig.StudyPopulationDescription),
		},
		Contacts:    contacts,
		Description: firstNonEmpty(p.DescriptionModule.BriefSummary, p.DescriptionModule.DetailedDescription, "No description available."),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
