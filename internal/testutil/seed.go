package testutil

import (
	"testing"
	"time"

	"donor-crm/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func SeedOrganization(t *testing.T, db *gorm.DB, name string) domain.Organization {
	t.Helper()
	org := domain.Organization{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(&org).Error)
	return org
}

func SeedContact(t *testing.T, db *gorm.DB, c domain.Contact) domain.Contact {
	t.Helper()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// SeedJourney stores an active journey with the given nodes
func SeedJourney(t *testing.T, db *gorm.DB, orgID uuid.UUID, nodes ...domain.Node) *domain.Journey {
	t.Helper()
	j := domain.NewJourney(orgID, "Welcome series", "", nodes, nil)
	j.Status = domain.JourneyActive
	require.NoError(t, db.Create(j).Error)
	return j
}

func SeedDonation(t *testing.T, db *gorm.DB, d domain.Donation) domain.Donation {
	t.Helper()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DonationCompleted
	}
	if d.DonationDate.IsZero() {
		d.DonationDate = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}

// Node builds a journey node with an optional delay
func Node(id string, typ domain.NodeType, delay string, data map[string]any) domain.Node {
	if data == nil {
		data = map[string]any{}
	}
	if delay != "" {
		data["delay"] = delay
	}
	return domain.Node{ID: id, Type: typ, Data: data}
}
