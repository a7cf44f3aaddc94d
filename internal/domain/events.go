package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunEvent is published after every persisted run transition.
type RunEvent struct {
	RunID          uuid.UUID `json:"run_id"`
	JourneyID      uuid.UUID `json:"journey_id"`
	ContactID      uuid.UUID `json:"contact_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	NodeID         string    `json:"node_id,omitempty"` // node executed in this step, if any
	Status         RunStatus `json:"status"`
	At             time.Time `json:"at"`
}

func NewRunEvent(run *JourneyRun, nodeID string, at time.Time) RunEvent {
	return RunEvent{
		RunID:          run.ID,
		JourneyID:      run.JourneyID,
		ContactID:      run.ContactID,
		OrganizationID: run.OrganizationID,
		NodeID:         nodeID,
		Status:         run.Status,
		At:             at,
	}
}
