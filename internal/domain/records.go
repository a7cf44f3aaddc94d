package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// The records below are owned by the CRM's CRUD surfaces. Only the fields the
// journey and report engines read are modelled.

type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Campaign struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organizationId"`
	Name           string    `gorm:"type:varchar(200);not null" json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Contact struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organizationId"`
	FirstName      string    `gorm:"type:varchar(100)" json:"firstName"`
	LastName       string    `gorm:"type:varchar(100)" json:"lastName"`
	Email          string    `gorm:"type:varchar(200);index" json:"email"`
	Phone          string    `gorm:"type:varchar(40)" json:"phone"`
	Mobile         string    `gorm:"type:varchar(40)" json:"mobile"`
	WhatsApp       string    `gorm:"column:whatsapp;type:varchar(40)" json:"whatsapp"`
	City           string    `gorm:"type:varchar(100);index" json:"city"`
	DonorType      string    `gorm:"type:varchar(50)" json:"donorType"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

const DonationCompleted = "completed"

type Donation struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"organizationId"`
	DonorID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"donorId"`
	CampaignID     *uuid.UUID `gorm:"type:uuid;index" json:"campaignId,omitempty"`
	Amount         float64    `gorm:"not null;default:0" json:"amount"`
	PaymentMethod  string     `gorm:"type:varchar(50);index" json:"paymentMethod"`
	Type           string     `gorm:"type:varchar(50)" json:"type"`
	Status         string     `gorm:"type:varchar(20);index" json:"status"`
	DonationDate   time.Time  `gorm:"index;not null" json:"donationDate"`
	Receipt80G     bool       `gorm:"column:receipt_80g;default:false" json:"receipt80G"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
