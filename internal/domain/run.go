package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunClaimed   RunStatus = "claimed" // held by a scheduler while its step executes
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunError     RunStatus = "error"
)

// NodeResult is what a node execution leaves in the run history.
type NodeResult struct {
	OK             bool           `json:"ok"`
	Skipped        bool           `json:"skipped,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Error          string         `json:"error,omitempty"`
	Channel        string         `json:"channel,omitempty"`
	To             string         `json:"to,omitempty"`
	Outcome        map[string]any `json:"outcome,omitempty"`
	ConditionType  any            `json:"conditionType,omitempty"`
	ConditionValue any            `json:"conditionValue,omitempty"`
}

type HistoryEntry struct {
	NodeID     string     `json:"nodeId"`
	NodeType   NodeType   `json:"nodeType"`
	ExecutedAt time.Time  `json:"executedAt"`
	Result     NodeResult `json:"result"`
}

// JourneyRun is one contact's cursor through a journey.
type JourneyRun struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	JourneyID      uuid.UUID `gorm:"type:uuid;index;not null" json:"journeyId"`
	ContactID      uuid.UUID `gorm:"type:uuid;index;not null" json:"contactId"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organizationId"`

	// State
	Status         RunStatus  `gorm:"type:varchar(20);index;default:'pending'" json:"status"`
	CurrentNodeID  *string    `gorm:"type:varchar(100)" json:"currentNodeId,omitempty"`
	ScheduledAt    *time.Time `gorm:"index" json:"scheduledAt,omitempty"`
	LastExecutedAt *time.Time `json:"lastExecutedAt,omitempty"`
	ClaimedAt      *time.Time `json:"claimedAt,omitempty"`
	Version        int        `gorm:"default:1" json:"version"`

	Context datatypes.JSONMap                 `gorm:"type:jsonb" json:"context"`
	History datatypes.JSONSlice[HistoryEntry] `gorm:"type:jsonb" json:"history"`

	// Audit
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// --- FACTORY ---

// NewRun enrolls contactID at now. The cursor starts on the first node and
// is due after that node's delay. A journey without nodes yields a run that
// is already completed.
func NewRun(j *Journey, contactID uuid.UUID, now time.Time) *JourneyRun {
	run := &JourneyRun{
		ID:             uuid.New(),
		JourneyID:      j.ID,
		ContactID:      contactID,
		OrganizationID: j.OrganizationID,
		Status:         RunPending,
		Version:        1,
		Context:        datatypes.JSONMap{},
		History:        datatypes.JSONSlice[HistoryEntry]{},
		CreatedAt:      now,
	}

	first, ok := j.FirstNode()
	if !ok {
		run.Status = RunCompleted
		return run
	}
	run.moveTo(first, now)
	return run
}

// --- METHODS ---
func (r *JourneyRun) IsSchedulable() bool {
	return r.Status == RunPending || r.Status == RunRunning || r.Status == RunClaimed
}

func (r *JourneyRun) IsTerminal() bool {
	return r.Status == RunCompleted || r.Status == RunStopped || r.Status == RunError
}

// MarkClaimed mirrors a successful Claim in memory.
func (r *JourneyRun) MarkClaimed(now time.Time) {
	r.Status = RunClaimed
	r.ClaimedAt = &now
	r.Version++
}

func (r *JourneyRun) CurrentNode() string {
	if r.CurrentNodeID == nil {
		return ""
	}
	return *r.CurrentNodeID
}

// Advance points the cursor at next, due after next's delay.
func (r *JourneyRun) Advance(next Node, now time.Time) {
	r.moveTo(next, now)
	r.Status = RunRunning
	r.ClaimedAt = nil
}

// Finish moves the run into a terminal status. Completed and error runs
// drop their cursor; stopped runs keep it so the halt point stays visible.
func (r *JourneyRun) Finish(status RunStatus) {
	r.Status = status
	r.ScheduledAt = nil
	r.ClaimedAt = nil
	if status != RunStopped {
		r.CurrentNodeID = nil
	}
}

func (r *JourneyRun) Record(entry HistoryEntry) {
	r.History = append(r.History, entry)
	at := entry.ExecutedAt
	r.LastExecutedAt = &at
}

// ConsecutiveFailures counts failed entries at the tail of the history.
func (r *JourneyRun) ConsecutiveFailures() int {
	n := 0
	for i := len(r.History) - 1; i >= 0; i-- {
		res := r.History[i].Result
		if res.OK || res.Skipped {
			break
		}
		n++
	}
	return n
}

func (r *JourneyRun) moveTo(n Node, now time.Time) {
	id := n.ID
	due := now.Add(n.Delay())
	r.CurrentNodeID = &id
	r.ScheduledAt = &due
}
