package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JourneyStatus string

const (
	JourneyDraft    JourneyStatus = "draft"
	JourneyActive   JourneyStatus = "active"
	JourneyInactive JourneyStatus = "inactive"
)

type NodeType string

const (
	NodeEmail     NodeType = "email"
	NodeSMS       NodeType = "sms"
	NodeWhatsApp  NodeType = "whatsapp"
	NodeCondition NodeType = "condition"
	NodeDelay     NodeType = "delay"
)

// Node is one step of a journey. Data carries the type specific payload
// (delay, subject/title, content/subtitle, conditionType/conditionValue).
type Node struct {
	ID   string         `json:"id" validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data,omitempty"`
}

// Delay is the wait applied before this node executes.
func (n Node) Delay() time.Duration {
	s, _ := n.Data["delay"].(string)
	return ParseDelay(s)
}

// Text returns the first non-blank string value found under keys.
func (n Node) Text(keys ...string) string {
	for _, k := range keys {
		if s, ok := n.Data[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Value returns the first non-nil value found under keys.
func (n Node) Value(keys ...string) any {
	for _, k := range keys {
		if v, ok := n.Data[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Edge is kept with the definition for editors. Execution walks Nodes in order.
type Edge struct {
	ID   string `json:"id"`
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type Journey struct {
	ID             uuid.UUID     `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;index;not null" json:"organizationId" validate:"required"`
	Name           string        `gorm:"type:varchar(200);not null" json:"name" validate:"required"`
	Description    string        `gorm:"type:text" json:"description"`
	Status         JourneyStatus `gorm:"type:varchar(20);index;default:'draft'" json:"status" validate:"oneof=draft active inactive"`

	Nodes datatypes.JSONSlice[Node] `gorm:"type:jsonb" json:"nodes" validate:"unique=ID,dive"`
	Edges datatypes.JSONSlice[Edge] `gorm:"type:jsonb" json:"edges" validate:"dive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// --- FACTORY ---
func NewJourney(orgID uuid.UUID, name, description string, nodes []Node, edges []Edge) *Journey {
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return &Journey{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           strings.TrimSpace(name),
		Description:    description,
		Status:         JourneyDraft,
		Nodes:          nodes,
		Edges:          edges,
	}
}

// --- METHODS ---
func (j *Journey) IsActive() bool {
	return j.Status == JourneyActive
}

func (j *Journey) NodeIndex(nodeID string) int {
	for i, n := range j.Nodes {
		if n.ID == nodeID {
			return i
		}
	}
	return -1
}

func (j *Journey) NodeByID(nodeID string) (Node, bool) {
	if i := j.NodeIndex(nodeID); i >= 0 {
		return j.Nodes[i], true
	}
	return Node{}, false
}

func (j *Journey) FirstNode() (Node, bool) {
	if len(j.Nodes) == 0 {
		return Node{}, false
	}
	return j.Nodes[0], true
}

// NextNode returns the node immediately after nodeID in array order.
func (j *Journey) NextNode(nodeID string) (Node, bool) {
	i := j.NodeIndex(nodeID)
	if i < 0 || i+1 >= len(j.Nodes) {
		return Node{}, false
	}
	return j.Nodes[i+1], true
}

// CheckEdges reports edges pointing at nodes the journey does not have.
func (j *Journey) CheckEdges() error {
	for _, e := range j.Edges {
		if j.NodeIndex(e.From) < 0 || j.NodeIndex(e.To) < 0 {
			return fmt.Errorf("%w: edge %q references unknown node", ErrValidation, e.ID)
		}
	}
	return nil
}
