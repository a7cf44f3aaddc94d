package repository

import (
	"context"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new instance of ReportRepository
func NewReportRepository(db *gorm.DB) ports.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.ReportDefinition) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReportDefinition, error) {
	var report domain.ReportDefinition
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, notFound(err, "report "+id.String())
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, orgID uuid.UUID, opts ports.ListOptions) ([]domain.ReportDefinition, error) {
	q := r.db.WithContext(ctx).Model(&domain.ReportDefinition{})
	if orgID != uuid.Nil {
		q = q.Where("organization_id = ?", orgID)
	}
	var reports []domain.ReportDefinition
	err := paginate(q, opts).Order("created_at DESC").Find(&reports).Error
	return reports, err
}

func (r *reportRepository) Update(ctx context.Context, report *domain.ReportDefinition) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ReportDefinition{}).
		Where("id = ?", report.ID).
		Updates(map[string]interface{}{
			"name":       report.Name,
			"type":       report.Type,
			"filters":    report.Filters,
			"fields":     report.Fields,
			"components": report.Components,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "report "+report.ID.String())
	}
	return nil
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ReportDefinition{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "report "+id.String())
	}
	return nil
}
