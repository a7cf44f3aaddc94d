package report

import (
	"context"
	"fmt"

	"donor-crm/internal/domain"

	"github.com/google/uuid"
)

// detail is one donation joined with the records the catalog reads from
type detail struct {
	donation     domain.Donation
	donor        *domain.Contact
	organization string
	campaign     string
}

type fieldFunc func(d detail) any

// fieldCatalog lists every column a report can select
var fieldCatalog = map[string]fieldFunc{
	"Donor Name": func(d detail) any {
		if d.donor == nil {
			return ""
		}
		return d.donor.FullName()
	},
	"Donation Amount": func(d detail) any { return d.donation.Amount },
	"Donation Date":   func(d detail) any { return d.donation.DonationDate.UTC().Format("2006-01-02") },
	"Organization":    func(d detail) any { return d.organization },
	"Campaign":        func(d detail) any { return d.campaign },
	"Payment Method":  func(d detail) any { return d.donation.PaymentMethod },
	"80G Status": func(d detail) any {
		if d.donation.Receipt80G {
			return "Yes"
		}
		return "No"
	},
	"City": func(d detail) any {
		if d.donor == nil {
			return ""
		}
		return d.donor.City
	},
	"Donor Type": func(d detail) any {
		if d.donor == nil {
			return ""
		}
		return d.donor.DonorType
	},
}

// KnownFields keeps the catalog names of fields in order, dropping the rest.
func KnownFields(fields []string) []string {
	known := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if _, ok := fieldCatalog[f]; ok && !seen[f] {
			seen[f] = true
			known = append(known, f)
		}
	}
	return known
}

// selectedFields loads up to limit matching donations and projects columns.
func (e *Engine) selectedFields(ctx context.Context, match domain.DonationMatch, columns []string) ([]Row, error) {
	donations, err := e.donations.Find(ctx, match, e.detailLimit)
	if err != nil {
		return nil, fmt.Errorf("load donations: %w", err)
	}
	if len(donations) == 0 {
		return []Row{}, nil
	}

	donorIDs := make([]uuid.UUID, 0, len(donations))
	orgIDs := make([]uuid.UUID, 0, len(donations))
	campaignIDs := make([]uuid.UUID, 0, len(donations))
	for _, d := range donations {
		donorIDs = append(donorIDs, d.DonorID)
		orgIDs = append(orgIDs, d.OrganizationID)
		if d.CampaignID != nil {
			campaignIDs = append(campaignIDs, *d.CampaignID)
		}
	}

	contacts, err := e.contacts.FindByIDs(ctx, dedupe(donorIDs))
	if err != nil {
		return nil, fmt.Errorf("load donors: %w", err)
	}
	donors := make(map[uuid.UUID]*domain.Contact, len(contacts))
	for i := range contacts {
		donors[contacts[i].ID] = &contacts[i]
	}
	orgNames, err := e.orgs.NamesByIDs(ctx, dedupe(orgIDs))
	if err != nil {
		return nil, fmt.Errorf("load organizations: %w", err)
	}
	campaignNames, err := e.campaigns.NamesByIDs(ctx, dedupe(campaignIDs))
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}

	rows := make([]Row, 0, len(donations))
	for _, d := range donations {
		det := detail{
			donation:     d,
			donor:        donors[d.DonorID],
			organization: orgNames[d.OrganizationID],
		}
		if d.CampaignID != nil {
			det.campaign = campaignNames[*d.CampaignID]
		}
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = fieldCatalog[col](det)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
