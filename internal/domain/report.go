package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReportType string

const (
	ReportDonation  ReportType = "donation"
	ReportDonor     ReportType = "donor"
	ReportCampaign  ReportType = "campaign"
	ReportFinancial ReportType = "financial"
)

type ComponentKind string

const (
	ComponentTable ComponentKind = "table"
	ComponentBar   ComponentKind = "bar"
	ComponentPie   ComponentKind = "pie"
	ComponentLine  ComponentKind = "line"
)

const (
	MetricSumAmount = "sumAmount"
	MetricCount     = "count"
)

type ReportFilters struct {
	DateFrom       string `json:"dateFrom,omitempty"`
	DateTo         string `json:"dateTo,omitempty"`
	CampaignID     string `json:"campaignId,omitempty"`
	PaymentMethod  string `json:"paymentMethod,omitempty"`
	Type           string `json:"type,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Search         string `json:"search,omitempty"`
}

// Merge returns f with every non-blank field of o laid over it.
func (f ReportFilters) Merge(o *ReportFilters) ReportFilters {
	if o == nil {
		return f
	}
	pick := func(base, over string) string {
		if strings.TrimSpace(over) != "" {
			return over
		}
		return base
	}
	return ReportFilters{
		DateFrom:       pick(f.DateFrom, o.DateFrom),
		DateTo:         pick(f.DateTo, o.DateTo),
		CampaignID:     pick(f.CampaignID, o.CampaignID),
		PaymentMethod:  pick(f.PaymentMethod, o.PaymentMethod),
		Type:           pick(f.Type, o.Type),
		OrganizationID: pick(f.OrganizationID, o.OrganizationID),
		Search:         pick(f.Search, o.Search),
	}
}

// SortSpec orders aggregate rows. Order is 1 for ascending, -1 for descending.
type SortSpec struct {
	Field string `json:"field" validate:"required,oneof=_id key sumAmount count donorCount campaignName"`
	Order int    `json:"order" validate:"oneof=-1 1"`
}

func (s SortSpec) Desc() bool {
	return s.Order < 0
}

type ReportComponent struct {
	ID       string         `json:"id"`
	Kind     ComponentKind  `json:"kind" validate:"omitempty,oneof=table bar pie line"`
	Title    string         `json:"title"`
	QueryKey string         `json:"queryKey,omitempty"`
	GroupBy  string         `json:"groupBy,omitempty"`
	Metrics  []string       `json:"metrics,omitempty" validate:"dive,oneof=sumAmount count"`
	Sort     []SortSpec     `json:"sort,omitempty" validate:"dive"`
	Filters  *ReportFilters `json:"filters,omitempty"`
}

// WantsMetric reports whether metric should be projected. No metrics means all.
func (c ReportComponent) WantsMetric(metric string) bool {
	if len(c.Metrics) == 0 {
		return true
	}
	for _, m := range c.Metrics {
		if m == metric {
			return true
		}
	}
	return false
}

type ReportDefinition struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"organizationId" validate:"required"`
	Name           string     `gorm:"type:varchar(200);not null" json:"name" validate:"required"`
	Type           ReportType `gorm:"type:varchar(20);default:'donation'" json:"type" validate:"oneof=donation donor campaign financial"`

	Filters    datatypes.JSONType[ReportFilters]    `gorm:"type:jsonb" json:"filters"`
	Fields     datatypes.JSONSlice[string]          `gorm:"type:jsonb" json:"fields"`
	Components datatypes.JSONSlice[ReportComponent] `gorm:"type:jsonb" json:"components" validate:"dive"`

	CreatedBy string    `gorm:"type:varchar(100)" json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
