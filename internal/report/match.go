package report

import (
	"strings"
	"time"

	"donor-crm/internal/domain"

	"github.com/google/uuid"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

const dateOnly = "2006-01-02"

// BuildDonationMatch resolves report filters into a donation match for caller.
// Only completed donations are ever matched. Malformed values are dropped.
func BuildDonationMatch(f domain.ReportFilters, caller domain.Caller) domain.DonationMatch {
	m := domain.DonationMatch{
		Status:        domain.DonationCompleted,
		PaymentMethod: strings.TrimSpace(f.PaymentMethod),
		Type:          strings.TrimSpace(f.Type),
		Search:        strings.TrimSpace(f.Search),
	}

	if caller.IsPrivileged() {
		m.OrganizationID = parseID(f.OrganizationID)
	} else {
		org := caller.OrganizationID
		m.OrganizationID = &org
	}
	m.CampaignID = parseID(f.CampaignID)

	if from, _, ok := parseDate(f.DateFrom); ok {
		m.From = &from
	}
	if to, dayOnly, ok := parseDate(f.DateTo); ok {
		if dayOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		m.To = &to
	}
	return m
}

func parseID(s string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}

// parseDate reads s as UTC. dayOnly is set when s carries no time of day.
func parseDate(s string) (t time.Time, dayOnly bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}
	if t, err := time.ParseInLocation(dateOnly, s, time.UTC); err == nil {
		return t, true, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), false, true
		}
	}
	return time.Time{}, false, false
}
