package repository

import (
	"context"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type journeyRepository struct {
	db *gorm.DB
}

// NewJourneyRepository creates a new instance of JourneyRepository
func NewJourneyRepository(db *gorm.DB) ports.JourneyRepository {
	return &journeyRepository{db: db}
}

func (r *journeyRepository) Create(ctx context.Context, journey *domain.Journey) error {
	return r.db.WithContext(ctx).Create(journey).Error
}

func (r *journeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error) {
	var journey domain.Journey
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&journey).Error
	if err != nil {
		return nil, notFound(err, "journey "+id.String())
	}
	return &journey, nil
}

func (r *journeyRepository) List(ctx context.Context, orgID uuid.UUID, status domain.JourneyStatus, opts ports.ListOptions) ([]domain.Journey, error) {
	q := r.db.WithContext(ctx).Model(&domain.Journey{})
	if orgID != uuid.Nil {
		q = q.Where("organization_id = ?", orgID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = paginate(q, opts)

	var journeys []domain.Journey
	err := q.Order("created_at DESC").Find(&journeys).Error
	return journeys, err
}

// Update saves the editable columns. Status moves through UpdateStatus only.
func (r *journeyRepository) Update(ctx context.Context, journey *domain.Journey) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Journey{}).
		Where("id = ?", journey.ID).
		Updates(map[string]interface{}{
			"name":        journey.Name,
			"description": journey.Description,
			"nodes":       journey.Nodes,
			"edges":       journey.Edges,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "journey "+journey.ID.String())
	}
	return nil
}

func (r *journeyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JourneyStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Journey{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "journey "+id.String())
	}
	return nil
}

func paginate(q *gorm.DB, opts ports.ListOptions) *gorm.DB {
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q
}
