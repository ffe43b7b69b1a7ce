package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

const unknownResearcher = "Unknown Researcher"

type ProfileService struct {
	profiles storage.ProfileStore
	users    storage.UserStore
	log      *zap.Logger
	now      func() time.Time
}

func NewProfileService(profiles storage.ProfileStore, users storage.UserStore, log *zap.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		users:    users,
		log:      log.Named("profiles"),
		now:      time.Now,
	}
}

// Get returns the user's profile, or nil when none has been saved.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Upsert replaces the user's profile. Only the sub-record for the requested
// role is kept.
func (s *ProfileService) Upsert(ctx context.Context, userID string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	if userID == "" {
		return nil, invalidField("userId", "User is required")
	}
	if !req.Role.Valid() {
		return nil, invalidField("role", "Role must be patient or researcher")
	}

	user, err := s.users.GetUser(ctx, userID)
	switch {
	case err == nil:
		if user.Role != req.Role {
			return nil, invalidField("role", "Role does not match the user's role")
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	p := &models.Profile{
		UserID:    userID,
		Role:      req.Role,
		UpdatedAt: s.now().UTC(),
	}
	switch req.Role {
	case models.RolePatient:
		patient := models.PatientProfile{}
		if req.Patient != nil {
			patient = *req.Patient
		}
		patient.Conditions = nonNil(patient.Conditions)
		patient.Keywords = nonNil(patient.Keywords)
		p.Patient = &patient
	case models.RoleResearcher:
		researcher := models.ResearcherProfile{}
		if req.Researcher != nil {
			researcher = *req.Researcher
		}
		researcher.Specialties = nonNil(researcher.Specialties)
		researcher.Interests = nonNil(researcher.Interests)
		p.Researcher = &researcher
	}

	if err := s.profiles.PutProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// Researchers lists the local researcher directory projected into the shape
// used for external experts. Profiles without a user or researcher record are
// skipped. limit <= 0 means no limit.
func (s *ProfileService) Researchers(ctx context.Context, excludeUserID string, limit int) ([]models.Expert, error) {
	profiles, err := s.profiles.ListProfilesByRole(ctx, models.RoleResearcher, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list researcher profiles: %w", err)
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load researcher users: %w", err)
	}

	experts := make([]models.Expert, 0, len(profiles))
	for _, p := range profiles {
		u, ok := users[p.UserID]
		if !ok || p.Researcher == nil {
			continue
		}
		experts = append(experts, researcherExpert(p, u))
	}
	return experts, nil
}

func researcherExpert(p *models.Profile, u *models.User) models.Expert {
	r := p.Researcher
	e := models.Expert{
		ID:         p.UserID,
		UserID:     p.UserID,
		Name:       unknownResearcher,
		Email:      u.Email,
		ORCID:      r.ORCID,
		Interests:  nonNil(r.Interests),
		Available:  &r.Available,
		ExpertInfo: models.ExpertInfo{Specialties: nonNil(r.Specialties)},
	}
	if u.Username != "" {
		e.Name = u.Username
	}
	if r.Bio != "" {
		bio := r.Bio
		e.Bio = &bio
	}
	if r.Location != nil {
		e.Location = r.Location
	}
	return e
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
