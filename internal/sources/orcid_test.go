package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/curalink/backend/internal/cache"
	"github.com/curalink/backend/internal/models"
)

const orcidSearchFixture = `{"expanded-result":[
  {"orcid-id":"0000-0001"},
  {"orcid-id":"0000-0002"},
  {"orcid-id":"0000-0003"},
  {"orcid-id":"0000-0004"}
]}`

var orcidRecords = map[string]string{
	"0000-0001": `{
	  "person": {
	    "name": {"given-names": {"value": "Ada"}, "family-name": {"value": "Lovelace"}},
	    "biography": {"content": "Oncologist with 20 years of experience."},
	    "keywords": {"keyword": [{"content": "oncology"}, {"content": "genomics"}]},
	    "emails": {"email": [{"email": "ada@example.org"}]}
	  },
	  "activities-summary": {
	    "employments": {"affiliation-group": [{"summaries": [{"employment-summary": {"organization": {"name": "City Hospital", "address": {"city": "London"}}}}]}]}
	  }
	}`,
	"0000-0002": `{"person": {"name": {"credit-name": {"value": "B. Credit"}}, "addresses": {"address": [{"country": {"value": "DE"}}]}}}`,
	// Nothing informative: dropped.
	"0000-0003": `{"person": {"name": {"given-names": {"value": "Empty"}}}}`,
}

type stubExtractor struct {
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (s *stubExtractor) ExtractExpertInfo(ctx context.Context, biography, name string) (models.ExpertInfo, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return models.ExpertInfo{}, ctx.Err()
	}
	if s.err != nil {
		return models.ExpertInfo{}, s.err
	}
	education := "PhD"
	return models.ExpertInfo{Education: &education, Specialties: []string{"oncology"}}, nil
}

func newORCIDServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/expanded-search") {
			assert.Equal(t, "10", r.URL.Query().Get("rows"))
			_, _ = w.Write([]byte(orcidSearchFixture))
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/record")
		body, ok := orcidRecords[id]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newExpertSource(t *testing.T, baseURL string, enricher ExpertInfoExtractor) *ExpertSource {
	return NewExpertSource(baseURL, NewHTTPClient(0), cache.Nop[[]models.Expert]{}, enricher, zaptest.NewLogger(t))
}

func TestExpertSearchNormalizesAndFilters(t *testing.T) {
	srv := newORCIDServer(t)
	extractor := &stubExtractor{}

	experts := newExpertSource(t, srv.URL, extractor).Search(context.Background(), "oncology")

	require.Len(t, experts, 2, "uninformative and failing profiles are dropped")

	ada := experts[0]
	assert.Equal(t, "Ada Lovelace", ada.Name)
	assert.Equal(t, "0000-0001", ada.ORCID)
	assert.Equal(t, "https://orcid.org/0000-0001", ada.ORCIDURL)
	assert.Equal(t, "City Hospital", ada.Affiliation)
	assert.Equal(t, "London", ada.Location)
	assert.Equal(t, []string{"oncology", "genomics"}, ada.ResearchInterests)
	assert.Equal(t, "ada@example.org", ada.Email)
	require.NotNil(t, ada.Education)
	assert.Equal(t, "PhD", *ada.Education)

	credit := experts[1]
	assert.Equal(t, "B. Credit", credit.Name)
	assert.Equal(t, "Not Available", credit.Affiliation)
	assert.Equal(t, "DE", credit.Location)
	assert.Nil(t, credit.Biography)
	assert.Equal(t, []string{}, credit.Specialties)

	assert.Equal(t, int32(1), extractor.calls.Load(), "only profiles with a biography are enriched")
}

func TestExpertEnrichmentTimeoutLeavesFieldsEmpty(t *testing.T) {
	srv := newORCIDServer(t)
	src := newExpertSource(t, srv.URL, &stubExtractor{delay: time.Second})
	src.SetEnrichTimeout(20 * time.Millisecond)

	experts := src.Search(context.Background(), "oncology")

	require.NotEmpty(t, experts)
	assert.Nil(t, experts[0].Education)
	assert.Equal(t, []string{}, experts[0].Specialties)
}

func TestExpertEnrichmentErrorLeavesFieldsEmpty(t *testing.T) {
	srv := newORCIDServer(t)
	experts := newExpertSource(t, srv.URL, &stubExtractor{err: errors.New("quota")}).Search(context.Background(), "oncology")

	require.NotEmpty(t, experts)
	assert.Nil(t, experts[0].Education)
}

func TestExpertSearchBlankQuery(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	experts := newExpertSource(t, srv.URL, nil).Search(context.Background(), "  ")
	assert.Equal(t, []models.Expert{}, experts)
	assert.Zero(t, calls.Load())
}

func TestExpertSearchUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Empty(t, newExpertSource(t, srv.URL, nil).Search(context.Background(), "x"))
}
