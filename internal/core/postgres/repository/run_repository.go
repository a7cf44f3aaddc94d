package repository

import (
	"context"
	"time"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type runRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) ports.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateBatch(ctx context.Context, runs []*domain.JourneyRun) error {
	if len(runs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(runs, 100).Error
	})
}

func (r *runRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.JourneyRun, error) {
	var run domain.JourneyRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		return nil, notFound(err, "run "+id.String())
	}
	return &run, nil
}

func (r *runRepository) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]domain.JourneyRun, error) {
	var runs []domain.JourneyRun
	err := r.db.WithContext(ctx).
		Where("journey_id = ?", journeyID).
		Order("created_at ASC").
		Find(&runs).Error
	return runs, err
}

func (r *runRepository) FindDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]domain.JourneyRun, error) {
	var runs []domain.JourneyRun
	err := r.db.WithContext(ctx).
		Where(
			r.db.Where("status IN ? AND current_node_id IS NOT NULL AND scheduled_at <= ?",
				[]domain.RunStatus{domain.RunPending, domain.RunRunning}, now).
				Or("status = ? AND claimed_at <= ?", domain.RunClaimed, staleBefore),
		).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// Claim is the optimistic lock: "Set Status=claimed WHERE ID=? AND Version=?"
func (r *runRepository) Claim(ctx context.Context, runID uuid.UUID, version int, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.JourneyRun{}).
		Where("id = ? AND version = ?", runID, version).
		Where("status IN ?", []domain.RunStatus{domain.RunPending, domain.RunRunning, domain.RunClaimed}).
		Updates(map[string]interface{}{
			"status":     domain.RunClaimed,
			"claimed_at": now,
			"version":    version + 1,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.ErrClaimConflict
	}

	return nil
}

func (r *runRepository) SaveProgress(ctx context.Context, run *domain.JourneyRun) error {
	result := r.db.WithContext(ctx).
		Model(&domain.JourneyRun{}).
		Where("id = ? AND version = ?", run.ID, run.Version).
		Updates(map[string]interface{}{
			"status":           run.Status,
			"current_node_id":  run.CurrentNodeID,
			"scheduled_at":     run.ScheduledAt,
			"last_executed_at": run.LastExecutedAt,
			"claimed_at":       run.ClaimedAt,
			"context":          run.Context,
			"history":          run.History,
			"version":          run.Version + 1,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.ErrClaimConflict
	}

	run.Version++
	return nil
}
