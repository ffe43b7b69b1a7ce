package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

const defaultTrialStatus = "RECRUITING"

// TrialService manages studies researchers publish on the platform.
type TrialService struct {
	trials storage.TrialStore
	users  storage.UserStore
	events *EventBus
	log    *zap.Logger
	now    func() time.Time
}

func NewTrialService(trials storage.TrialStore, users storage.UserStore, events *EventBus, log *zap.Logger) *TrialService {
	return &TrialService{
		trials: trials,
		users:  users,
		events: events,
		log:    log.Named("trials"),
		now:    time.Now,
	}
}

func (s *TrialService) Create(ctx context.Context, req *models.CreateTrialRequest) (*models.ResearcherTrial, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, req.ResearcherID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, invalidField("researcherId", "Researcher not found")
		}
		return nil, err
	}
	if user.Role != models.RoleResearcher {
		return nil, invalidField("researcherId", "Only researchers can publish trials")
	}

	conditions := make([]string, 0, len(req.Conditions))
	for _, c := range req.Conditions {
		if c = strings.TrimSpace(c); c != "" {
			conditions = append(conditions, c)
		}
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = defaultTrialStatus
	}

	trial := &models.ResearcherTrial{
		ID:           uuid.New().String(),
		ResearcherID: req.ResearcherID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Status:       status,
		Phase:        req.Phase,
		Conditions:   conditions,
		Location:     req.Location,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.trials.CreateTrial(ctx, trial); err != nil {
		return nil, fmt.Errorf("create trial: %w", err)
	}

	s.log.Info("trial published", zap.String("trial_id", trial.ID), zap.String("researcher_id", trial.ResearcherID))
	s.events.Publish(ctx, TrialCreated{Trial: trial})
	return trial, nil
}

// List returns trials newest first, limited to one researcher when set.
func (s *TrialService) List(ctx context.Context, researcherID string) ([]*models.ResearcherTrial, error) {
	trials, err := s.trials.ListTrials(ctx, researcherID)
	if err != nil {
		return nil, err
	}
	return nonNil(trials), nil
}
