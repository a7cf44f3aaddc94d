package ports

import (
	"context"
	"time"

	"donor-crm/internal/domain"

	"github.com/google/uuid"
)

// ListOptions carries pagination for record listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// JourneyRepository persists journey definitions
type JourneyRepository interface {
	Create(ctx context.Context, journey *domain.Journey) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error)

	// List filters by organization (uuid.Nil for all) and status ("" for all)
	List(ctx context.Context, orgID uuid.UUID, status domain.JourneyStatus, opts ListOptions) ([]domain.Journey, error)
	Update(ctx context.Context, journey *domain.Journey) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JourneyStatus) error
}

// RunRepository persists journey runs
type RunRepository interface {
	// Create all runs of one enrollment in a single transaction
	CreateBatch(ctx context.Context, runs []*domain.JourneyRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.JourneyRun, error)
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]domain.JourneyRun, error)

	// FindDue returns schedulable runs whose scheduled_at <= now, oldest first,
	// plus claims older than staleBefore.
	FindDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]domain.JourneyRun, error)

	// Claim moves the run into RunClaimed if its version still matches.
	// Returns domain.ErrClaimConflict when another scheduler won.
	Claim(ctx context.Context, runID uuid.UUID, version int, now time.Time) error

	// SaveProgress writes the step outcome if the version still matches, bumping it.
	SaveProgress(ctx context.Context, run *domain.JourneyRun) error
}

type ContactRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Contact, error)
	Create(ctx context.Context, contact *domain.Contact) error
}

type DonationRepository interface {
	Create(ctx context.Context, donation *domain.Donation) error

	// Find returns matching donations, newest first, at most limit rows
	Find(ctx context.Context, match domain.DonationMatch, limit int) ([]domain.Donation, error)

	// Aggregate buckets matching donations by the query's group strategy
	Aggregate(ctx context.Context, q domain.AggregateQuery) ([]domain.AggregateRow, error)
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *domain.Campaign) error
	NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *domain.ReportDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReportDefinition, error)
	List(ctx context.Context, orgID uuid.UUID, opts ListOptions) ([]domain.ReportDefinition, error)
	Update(ctx context.Context, report *domain.ReportDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmailMessage, SMSMessage and Outcome are the notifier wire shapes
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type SMSMessage struct {
	To   string
	Body string
}

// Outcome is whatever the provider returned, kept in run history
type Outcome map[string]any

// Notifier dispatches outbound messages. Each call may fail on its own.
type Notifier interface {
	SendEmail(ctx context.Context, msg EmailMessage) (Outcome, error)
	SendSMS(ctx context.Context, msg SMSMessage) (Outcome, error)
	SendWhatsApp(ctx context.Context, msg SMSMessage) (Outcome, error)
}

// Clock is the time source used for scheduling
type Clock interface {
	Now() time.Time
}

// EventBus represents the run event stream
type EventBus interface {
	// Publish "run X moved to status Y"
	PublishRunEvent(ctx context.Context, event domain.RunEvent) error
}

// TickLock keeps scheduler ticks from overlapping across processes
type TickLock interface {
	// TryAcquire returns ok=false when another process holds the lease
	TryAcquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
