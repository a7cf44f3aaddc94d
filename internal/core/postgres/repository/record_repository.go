package repository

import (
	"context"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ports.ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error
	if err != nil {
		return nil, notFound(err, "contact "+id.String())
	}
	return &contact, nil
}

func (r *contactRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var contacts []domain.Contact
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&contacts).Error
	return contacts, err
}

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(contact).Error
}

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) ports.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *organizationRepository) NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	var orgs []domain.Organization
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&orgs).Error; err != nil {
			return nil, err
		}
	}
	names := make(map[uuid.UUID]string, len(orgs))
	for _, o := range orgs {
		names[o.ID] = o.Name
	}
	return names, nil
}

type campaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) ports.CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *campaignRepository) NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	var campaigns []domain.Campaign
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&campaigns).Error; err != nil {
			return nil, err
		}
	}
	names := make(map[uuid.UUID]string, len(campaigns))
	for _, c := range campaigns {
		names[c.ID] = c.Name
	}
	return names, nil
}
