package models

import (
	"strings"
	"time"
)

// Trial is a clinical study flattened from the registry's nested modules.
type Trial struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Status      string      `json:"status"`
	Phase       string      `json:"phase"`
	Conditions  []string    `json:"conditions"`
	Location    string      `json:"location"`
	Eligibility Eligibility `json:"eligibility"`
	Contacts    []Contact   `json:"contacts"`
	Description string      `json:"description"`
}

type Eligibility struct {
	Criteria          string `json:"criteria"`
	Gender            string `json:"gender"`
	MinimumAge        string `json:"minimumAge"`
	MaximumAge        string `json:"maximumAge"`
	HealthyVolunteers string `json:"healthyVolunteers"`
	Population        string `json:"population"`
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Publication struct {
	PMID     string   `json:"pmid"`
	Title    string   `json:"title"`
	Journal  string   `json:"journal"`
	Year     string   `json:"year"`
	Month    string   `json:"month"`
	Authors  []string `json:"authors"`
	Volume   string   `json:"volume"`
	Pages    string   `json:"pages"`
	DOI      string   `json:"doi"`
	Abstract string   `json:"abstract"`
	URL      string   `json:"url"`
}

// ExpertInfo holds fields derived from a researcher biography by the AI
// collaborator. Every field is optional.
type ExpertInfo struct {
	Education         *string  `json:"education"`
	Age               *string  `json:"age"`
	YearsOfExperience *string  `json:"yearsOfExperience"`
	Specialties       []string `json:"specialties"`
	Achievements      *string  `json:"achievements"`
	CurrentPosition   *string  `json:"currentPosition"`
}

// EmptyExpertInfo is used whenever enrichment is skipped, times out or fails.
func EmptyExpertInfo() ExpertInfo {
	return ExpertInfo{Specialties: []string{}}
}

// Expert is the shape shared by external researcher profiles and the local
// researcher directory, so clients cannot tell the two apart.
type Expert struct {
	ID                string    `json:"_id,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	Name              string    `json:"name"`
	ORCID             string    `json:"orcid,omitempty"`
	ORCIDURL          string    `json:"orcidUrl,omitempty"`
	Email             string    `json:"email,omitempty"`
	Phone             *string   `json:"phone"`
	Affiliation       string    `json:"affiliation,omitempty"`
	Location          any       `json:"location"`
	ResearchInterests []string  `json:"researchInterests,omitempty"`
	Biography         *string   `json:"biography,omitempty"`
	Bio               *string   `json:"bio,omitempty"`
	Interests         []string  `json:"interests,omitempty"`
	Available         *bool     `json:"available,omitempty"`
	ExpertInfo
}

// Recommendations is the combined dashboard payload.
type Recommendations struct {
	Trials       []Trial       `json:"trials"`
	Publications []Publication `json:"publications"`
	Experts      []Expert      `json:"experts"`
}

// ResearcherTrial is a study published on the platform by a researcher.
type ResearcherTrial struct {
	ID           string    `json:"_id" bson:"_id"`
	ResearcherID string    `json:"researcherId" bson:"researcher_id"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description"`
	Status       string    `json:"status" bson:"status"`
	Phase        string    `json:"phase" bson:"phase"`
	Conditions   []string  `json:"conditions" bson:"conditions"`
	Location     string    `json:"location" bson:"location"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

type CreateTrialRequest struct {
	ResearcherID string   `json:"researcherId"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Status       string   `json:"status"`
	Phase        string   `json:"phase"`
	Conditions   []string `json:"conditions"`
	Location     string   `json:"location"`
}

func (r *CreateTrialRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.ResearcherID == "" {
		errors["researcherId"] = "Researcher is required"
	}
	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	}
	return errors
}
