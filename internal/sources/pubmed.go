package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/cache"
	"github.com/curalink/backend/internal/models"
)

const (
	defaultPublicationTerm = "oncology"
	maxPublications        = 9
	esearchTimeout         = 10 * time.Second
	efetchTimeout          = 15 * time.Second
)

// PublicationSource searches PubMed through the NCBI E-utilities: esearch
// for ids, then efetch for the article records.
type PublicationSource struct {
	baseURL string
	client  *HTTPClient
	cache   cache.Cache[[]models.Publication]
	log     *zap.Logger
}

func NewPublicationSource(baseURL string, client *HTTPClient, c cache.Cache[[]models.Publication], log *zap.Logger) *PublicationSource {
	return &PublicationSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   c,
		log:     log.Named("pubmed"),
	}
}

// Search returns at most 9 publications for q ("oncology" when blank).
func (s *PublicationSource) Search(ctx context.Context, q string) []models.Publication {
	return cachedSearch(ctx, SourcePublications, s.cache, "pm:"+q, s.log, func(ctx context.Context) ([]models.Publication, error) {
		return s.fetch(ctx, q)
	})
}

func (s *PublicationSource) fetch(ctx context.Context, q string) ([]models.Publication, error) {
	term := q
	if term == "" {
		term = defaultPublicationTerm
	}

	search := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmode": {"json"},
		"retmax":  {fmt.Sprint(maxPublications)},
	}
	var ids esearchResponse
	if err := s.client.GetJSON(ctx, s.baseURL+"/esearch.fcgi?"+search.Encode(), acceptJSON, esearchTimeout, &ids); err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	if len(ids.Result.IDList) == 0 {
		return []models.Publication{}, nil
	}

	fetch := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids.Result.IDList, ",")},
		"retmode": {"xml"},
	}
	body, err := s.client.Get(ctx, s.baseURL+"/efetch.fcgi?"+fetch.Encode(), acceptXML, efetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode efetch: %w", err)
	}

	pubs := make([]models.Publication, 0, len(set.Articles))
	for _, a := range set.Articles {
		pubs = append(pubs, a.normalize())
	}
	return pubs, nil
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Journal struct {
				Title string `xml:"Title"`
				Issue struct {
					Volume  string `xml:"Volume"`
					PubDate struct {
						Year  string `xml:"Year"`
						Month string `xml:"Month"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			Title      textContent `xml:"ArticleTitle"`
			Pagination struct {
				MedlinePgn string `xml:"MedlinePgn"`
			} `xml:"Pagination"`
			ELocationIDs []string      `xml:"ELocationID"`
			Abstract     []textContent `xml:"Abstract>AbstractText"`
			Authors      []struct {
				LastName string `xml:"LastName"`
				ForeName string `xml:"ForeName"`
			} `xml:"AuthorList>Author"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

func (a pubmedArticle) normalize() models.Publication {
	c := a.Citation
	art := c.Article

	authors := make([]string, 0, len(art.Authors))
	for _, au := range art.Authors {
		if name := strings.TrimSpace(au.ForeName + " " + au.LastName); name != "" {
			authors = append(authors, name)
		}
	}

	pub := models.Publication{
		PMID:    c.PMID,
		Title:   string(art.Title),
		Journal: art.Journal.Title,
		Year:    art.Journal.Issue.PubDate.Year,
		Month:   art.Journal.Issue.PubDate.Month,
		Authors: authors,
		Volume:  art.Journal.Issue.Volume,
		Pages:   art.Pagination.MedlinePgn,
		URL:     "https://pubmed.ncbi.nlm.nih.gov/" + c.PMID + "/",
	}
	if len(art.ELocationIDs) > 0 {
		pub.DOI = art.ELocationIDs[0]
	}
	if len(art.Abstract) > 0 {
		pub.Abstract = string(art.Abstract[0])
	}
	return pub
}

// textContent collects all character data of an element, including text
// inside inline markup such as <i> or <sup>.
type textContent string

func (t *textContent) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = textContent(b.String())
				return nil
			}
			depth--
		}
	}
}
