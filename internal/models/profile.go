package models

import "time"

type Location struct {
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
}

type PatientProfile struct {
	Conditions []string  `json:"conditions" bson:"conditions"`
	Location   *Location `json:"location,omitempty" bson:"location,omitempty"`
	Keywords   []string  `json:"keywords" bson:"keywords"`
	Gender     string    `json:"gender,omitempty" bson:"gender,omitempty"`
}

type ResearcherProfile struct {
	Specialties  []string  `json:"specialties" bson:"specialties"`
	Interests    []string  `json:"interests" bson:"interests"`
	ORCID        string    `json:"orcid,omitempty" bson:"orcid,omitempty"`
	ResearchGate string    `json:"researchGate,omitempty" bson:"research_gate,omitempty"`
	Available    bool      `json:"available" bson:"available"`
	Bio          string    `json:"bio,omitempty" bson:"bio,omitempty"`
	Location     *Location `json:"location,omitempty" bson:"location,omitempty"`
	Gender       string    `json:"gender,omitempty" bson:"gender,omitempty"`
}

// Profile is the role-specific record owned by exactly one user. Only the
// sub-record matching Role is meaningful.
type Profile struct {
	UserID     string             `json:"userId" bson:"user_id"`
	Role       Role               `json:"role" bson:"role"`
	Patient    *PatientProfile    `json:"patient,omitempty" bson:"patient,omitempty"`
	Researcher *ResearcherProfile `json:"researcher,omitempty" bson:"researcher,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updated_at"`
}

type UpsertProfileRequest struct {
	Role       Role               `json:"role"`
	Patient    *PatientProfile    `json:"patient"`
	Researcher *ResearcherProfile `json:"researcher"`
}

// Topics returns the profile's search topics in priority order: patient
// conditions, or researcher interests falling back to specialties.
func (p *Profile) Topics() []string {
	if p == nil {
		return nil
	}
	switch p.Role {
	case RolePatient:
		if p.Patient != nil {
			return p.Patient.Conditions
		}
	case RoleResearcher:
		if p.Researcher != nil {
			if len(p.Researcher.Interests) > 0 {
				return p.Researcher.Interests
			}
			return p.Researcher.Specialties
		}
	}
	return nil
}
