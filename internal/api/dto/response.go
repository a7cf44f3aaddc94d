package dto

import (
	"donor-crm/internal/domain"
	"donor-crm/internal/report"

	"github.com/google/uuid"
)

type EnrollResponse struct {
	Count int `json:"count"`
}

type JourneyListResponse struct {
	Journeys []domain.Journey `json:"journeys"`
}

type RunListResponse struct {
	JourneyID uuid.UUID           `json:"journeyId"`
	Runs      []domain.JourneyRun `json:"runs"`
}

type ReportListResponse struct {
	Reports []domain.ReportDefinition `json:"reports"`
}

type ReportResultResponse struct {
	ReportID *uuid.UUID     `json:"reportId,omitempty"`
	Results  []report.Table `json:"results"`
}
