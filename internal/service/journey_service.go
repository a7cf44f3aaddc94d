package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"donor-crm/internal/api/dto"
	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
	"donor-crm/internal/metrics"
	"donor-crm/internal/pkg/logger"

	"github.com/google/uuid"
)

type JourneyService interface {
	Create(ctx context.Context, caller domain.Caller, req dto.CreateJourneyRequest) (*domain.Journey, error)
	Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Journey, error)
	List(ctx context.Context, caller domain.Caller, status domain.JourneyStatus, opts ports.ListOptions) ([]domain.Journey, error)
	Update(ctx context.Context, caller domain.Caller, id uuid.UUID, req dto.UpdateJourneyRequest) (*domain.Journey, error)
	Activate(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Journey, error)
	Deactivate(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Journey, error)

	// Enroll starts one run per contact and returns how many were created
	Enroll(ctx context.Context, caller domain.Caller, id uuid.UUID, req dto.EnrollRequest) (int, error)
	GetRuns(ctx context.Context, caller domain.Caller, id uuid.UUID) ([]domain.JourneyRun, error)
}

type journeyService struct {
	journeys ports.JourneyRepository
	runs     ports.RunRepository
	contacts ports.ContactRepository
	clock    ports.Clock
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewJourneyService(
	journeys ports.JourneyRepository,
	runs ports.RunRepository,
	contacts ports.ContactRepository,
	clock ports.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
) JourneyService {
	return &journeyService{
		journeys: journeys,
		runs:     runs,
		contacts: contacts,
		clock:    clock,
		log:      log.Component("journey_service"),
		metrics:  m,
	}
}

func (s *journeyService) Create(ctx context.Context, caller domain.Caller, req dto.CreateJourneyRequest) (*domain.Journey, error) {
	orgID := req.OrganizationID
	if orgID == uuid.Nil {
		orgID = caller.OrganizationID
	}
	if !caller.CanAccess(orgID) {
		return nil, domain.ErrForbidden
	}

	journey := domain.NewJourney(orgID, req.Name, req.Description, req.Nodes, req.Edges)
	if err := checkJourney(journey); err != nil {
		return nil, err
	}

	if err := s.journeys.Create(ctx, journey); err != nil {
		return nil, fmt.Errorf("create journey: %w", err)
	}
	s.log.Info("Journey created", "journey_id", journey.ID, "organization_id", orgID, "nodes", len(journey.Nodes))
	return journey, nil
}

func (s *journeyService) Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Journey, error) {
	journey, err := s.journeys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(journey.OrganizationID) {
		return nil, domain.ErrForbidden
	}
	return journey, nil
}

func (s *journeyService) List(ctx context.Context, caller domain.Caller, status domain.JourneyStatus, opts ports.ListOptions) ([]domain.Journey, error) {
	orgID := uuid.Nil
	if !caller.IsPrivileged() {
		orgID = caller.OrganizationID
	}
	return s.journeys.List(ctx, orgID, status, opts)
}

func (s *journeyService) Update(ctx context.Context, caller domain.Caller, id uuid.UUID, req dto.UpdateJourneyRequest) (*domain.Journey, error) {
	journey, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		journey.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		journey.Description = *req.Description
	}
	if req.Nodes != nil {
		journey.Nodes = *req.Nodes
	}
	if req.Edges != nil {
		journey.Edges = *req.Edges
	}
	if err := checkJourney(journey); err != nil {
		return nil, err
	}

	if err := s.journeys.Update(ctx, journey); err != nil {
		return nil, fmt.Errorf("update journey %s: %w", id, err)
	}
	return journey, nil
}

func (s *journeyService) Activate(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Journey, error) {
	return s.setStatus(ctx, caller, id, domain.JourneyActive)
}

func (s *journeyService) Deactivate(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Journey, error) {
	return s.setStatus(ctx, caller, id, domain.JourneyInactive)
}

func (s *journeyService) setStatus(ctx context.Context, caller domain.Caller, id uuid.UUID, status domain.JourneyStatus) (*domain.Journey, error) {
	journey, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if journey.Status == status {
		return journey, nil
	}
	if err := s.journeys.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("set journey %s %s: %w", id, status, err)
	}
	s.log.Info("Journey status changed", "journey_id", id, "from", journey.Status, "to", status)
	journey.Status = status
	return journey, nil
}

func (s *journeyService) Enroll(ctx context.Context, caller domain.Caller, id uuid.UUID, req dto.EnrollRequest) (int, error) {
	journey, err := s.Get(ctx, caller, id)
	if err != nil {
		return 0, err
	}
	if !journey.IsActive() {
		return 0, fmt.Errorf("enroll journey %s (%s): %w", id, journey.Status, domain.ErrJourneyNotActive)
	}

	// privileged callers may enroll contacts of any organization
	scope := journey.OrganizationID
	if caller.IsPrivileged() {
		scope = uuid.Nil
	}
	contactIDs, err := s.resolveContacts(ctx, journey.ID, scope, req.ContactIDs)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	runs := make([]*domain.JourneyRun, 0, len(contactIDs))
	for _, contactID := range contactIDs {
		runs = append(runs, domain.NewRun(journey, contactID, now))
	}

	// TRANSACTION: all runs or none
	if err := s.runs.CreateBatch(ctx, runs); err != nil {
		return 0, fmt.Errorf("enroll journey %s: %w", id, err)
	}

	s.metrics.Enrolled(len(runs))
	s.log.Info("Contacts enrolled", "journey_id", id, "count", len(runs))
	return len(runs), nil
}

// resolveContacts dedupes ids by value and checks every one names a contact.
// A non-nil orgID also rejects contacts of other organizations.
func (s *journeyService) resolveContacts(ctx context.Context, journeyID, orgID uuid.UUID, raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	seenInvalid := make(map[string]bool)
	var ids []uuid.UUID
	var invalid []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := uuid.Parse(r)
		if err != nil {
			if !seenInvalid[r] {
				seenInvalid[r] = true
				invalid = append(invalid, r)
			}
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 && len(invalid) == 0 {
		return nil, fmt.Errorf("%w: no contact ids", domain.ErrValidation)
	}

	found, err := s.contacts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	usable := make(map[uuid.UUID]bool, len(found))
	for _, c := range found {
		if orgID == uuid.Nil || c.OrganizationID == orgID {
			usable[c.ID] = true
		}
	}

	valid := ids[:0]
	for _, id := range ids {
		if usable[id] {
			valid = append(valid, id)
		} else {
			invalid = append(invalid, id.String())
		}
	}
	if len(invalid) > 0 {
		return nil, &domain.EnrollmentError{JourneyID: journeyID, InvalidContactIDs: invalid}
	}
	return valid, nil
}

func (s *journeyService) GetRuns(ctx context.Context, caller domain.Caller, id uuid.UUID) ([]domain.JourneyRun, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.runs.ListByJourney(ctx, id)
}

func checkJourney(j *domain.Journey) error {
	if err := validateStruct(j); err != nil {
		return err
	}
	return j.CheckEdges()
}

// IsValidation reports errors a caller can fix by changing the request
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
