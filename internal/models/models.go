package models

import "time"

// Job lifecycle statuses.
const (
	JobStatusNew        = "new"
	JobStatusAssigned   = "assigned"
	JobStatusInProgress = "in_progress"
	JobStatusDone       = "done"
	JobStatusCancelled  = "cancelled"
)

// Technician statuses. Stored as free-form strings, compared case-insensitively.
const (
	TechStatusAvailable = "available"
	TechStatusBusy      = "busy"
	TechStatusOffshift  = "offshift"
)

// SLA action recommendations and lifecycle.
const (
	SLAActionReassign = "reassign"
	SLAActionNotify   = "notify"
	SLAActionEscalate = "escalate"

	SLAStatusPending = "pending"
	SLAStatusApplied = "applied"
	SLAStatusIgnored = "ignored"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

type Job struct {
	ID                       string     `json:"id"`
	CustomerName             string     `json:"customer_name"`
	Address                  string     `json:"address"`
	Lat                      *float64   `json:"lat"`
	Lon                      *float64   `json:"lon"`
	WindowStart              *time.Time `json:"requested_window_start"`
	WindowEnd                *time.Time `json:"requested_window_end"`
	RequiredSkills           []string   `json:"required_skills"`
	Status                   string     `json:"status"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	AssignedTechnicianID     *string    `json:"assigned_technician_id"`
	Notes                    string     `json:"notes,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

type Technician struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Skills    []string  `json:"skills"`
	Status    string    `json:"status"`
	LastLat   *float64  `json:"last_lat"`
	LastLon   *float64  `json:"last_lon"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment is an immutable audit record. One row is created per assignment
// event; rows are never updated afterwards.
type Assignment struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	TechnicianID   *string   `json:"technician_id"`
	ScoreBreakdown []byte    `json:"score_breakdown"`
	Reason         string    `json:"reason"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

type SLAAction struct {
	ID                    string     `json:"id"`
	JobID                 string     `json:"job_id"`
	RecommendedAction     string     `json:"recommended_action"`
	Reason                string     `json:"reason"`
	SuggestedTechnicianID *string    `json:"suggested_technician_id"`
	RiskScore             float64    `json:"risk_score"`
	RiskLevel             string     `json:"risk_level"`
	Status                string     `json:"status"`
	Meta                  []byte     `json:"meta"`
	CreatedAt             time.Time  `json:"created_at"`
	AppliedAt             *time.Time `json:"applied_at"`
}
