package dto

import (
	"donor-crm/internal/domain"

	"github.com/google/uuid"
)

type CreateJourneyRequest struct {
	// OrganizationID defaults to the caller's organization
	OrganizationID uuid.UUID     `json:"organizationId"`
	Name           string        `json:"name" binding:"required"`
	Description    string        `json:"description"`
	Nodes          []domain.Node `json:"nodes"`
	Edges          []domain.Edge `json:"edges"`
}

// UpdateJourneyRequest replaces only the fields that are present
type UpdateJourneyRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Nodes       *[]domain.Node `json:"nodes"`
	Edges       *[]domain.Edge `json:"edges"`
}

type EnrollRequest struct {
	ContactIDs []string `json:"contactIds" binding:"required,min=1"`
}

type ReportRequest struct {
	// OrganizationID is honoured for privileged callers only
	OrganizationID uuid.UUID                `json:"organizationId"`
	Name           string                   `json:"name"`
	Type           domain.ReportType        `json:"type"`
	Filters        domain.ReportFilters     `json:"filters"`
	Fields         []string                 `json:"fields"`
	Components     []domain.ReportComponent `json:"components"`
}

type UpdateReportRequest struct {
	Name       *string                   `json:"name"`
	Type       *domain.ReportType        `json:"type"`
	Filters    *domain.ReportFilters     `json:"filters"`
	Fields     *[]string                 `json:"fields"`
	Components *[]domain.ReportComponent `json:"components"`
}
