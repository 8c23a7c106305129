package model

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// AppraisalStatus stage of an appraisal case.
type AppraisalStatus string

const (
	StatusSubmitted           AppraisalStatus = "submitted"
	StatusHODApproved         AppraisalStatus = "hod_approved"
	StatusHODRejected         AppraisalStatus = "hod_rejected"
	StatusEscalatedToDean     AppraisalStatus = "escalated_to_dean"
	StatusDeanApproved        AppraisalStatus = "dean_approved"
	StatusReturnedToHOD       AppraisalStatus = "returned_to_hod"
	StatusEscalatedToDirector AppraisalStatus = "escalated_to_director"
	StatusFinalApproved       AppraisalStatus = "final_approved"
	StatusReturnedToDean      AppraisalStatus = "returned_to_dean"
)

// AppraisalStatuses every status, in workflow order.
var AppraisalStatuses = []AppraisalStatus{
	StatusSubmitted, StatusHODApproved, StatusHODRejected, StatusEscalatedToDean,
	StatusDeanApproved, StatusReturnedToHOD, StatusEscalatedToDirector,
	StatusFinalApproved, StatusReturnedToDean,
}

// Valid reports whether s is a known status.
func (s AppraisalStatus) Valid() bool {
	for _, known := range AppraisalStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AppraisalCase review state of one faculty member's submission, table appraisal_cases
// Addressed by (faculty_id, department). Rows are never deleted.
type AppraisalCase struct {
	FacultyID   string          `gorm:"type:varchar(50);primaryKey" json:"facultyId"`
	Department  string          `gorm:"type:varchar(20);primaryKey" json:"department"`
	Status      AppraisalStatus `gorm:"type:varchar(30);not null;index" json:"status"`
	SubmittedAt time.Time       `gorm:"not null" json:"submittedAt"`

	// HOD stage
	HODID              *string    `gorm:"column:hod_id;type:varchar(50)" json:"hodId,omitempty"`
	HODComments        *string    `gorm:"column:hod_comments;type:text"        json:"hodComments,omitempty"`
	HODApprovedAt      *time.Time `gorm:"column:hod_approved_at" json:"hodApprovedAt,omitempty"`
	HODRejectionReason *string    `gorm:"column:hod_rejection_reason;type:text"        json:"hodRejectionReason,omitempty"`
	HODRejectedAt      *time.Time `gorm:"column:hod_rejected_at" json:"hodRejectedAt,omitempty"`

	// HOD -> Dean escalation
	EscalatedToDean  bool       `gorm:"not null;default:false" json:"escalatedToDean"`
	EscalatedBy      *string    `gorm:"type:varchar(50)"       json:"escalatedBy,omitempty"`
	EscalationReason *string    `gorm:"type:text"              json:"escalationReason,omitempty"`
	EscalatedAt      *time.Time `json:"escalatedAt,omitempty"`

	// Dean stage
	DeanID              *string    `gorm:"type:varchar(50)" json:"deanId,omitempty"`
	DeanComments        *string    `gorm:"type:text"        json:"deanComments,omitempty"`
	DeanApprovedAt      *time.Time `json:"deanApprovedAt,omitempty"`
	DeanRejectionReason *string    `gorm:"type:text"        json:"deanRejectionReason,omitempty"`
	DeanRejectedAt      *time.Time `json:"deanRejectedAt,omitempty"`

	// Dean -> Director escalation
	EscalatedToDirector      bool       `gorm:"not null;default:false" json:"escalatedToDirector"`
	DirectorEscalatedBy      *string    `gorm:"type:varchar(50)"       json:"directorEscalatedBy,omitempty"`
	DirectorEscalationReason *string    `gorm:"type:text"              json:"directorEscalationReason,omitempty"`
	DirectorEscalatedAt      *time.Time `json:"directorEscalatedAt,omitempty"`

	// Director stage
	DirectorID              *string    `gorm:"type:varchar(50)" json:"directorId,omitempty"`
	DirectorComments        *string    `gorm:"type:text"        json:"directorComments,omitempty"`
	DirectorApprovedAt      *time.Time `json:"directorApprovedAt,omitempty"`
	DirectorRejectionReason *string    `gorm:"type:text"        json:"directorRejectionReason,omitempty"`
	DirectorRejectedAt      *time.Time `json:"directorRejectedAt,omitempty"`

	VersionedModel
}

// TableName table name
func (AppraisalCase) TableName() string { return "appraisal_cases" }

// AppraisalEvent append-only transition history, table appraisal_events
type AppraisalEvent struct {
	ID         string          `gorm:"type:char(26);primaryKey"        json:"id"` // ULID, sortable by time
	FacultyID  string          `gorm:"type:varchar(50);not null;index:idx_event_case" json:"facultyId"`
	Department string          `gorm:"type:varchar(20);not null;index:idx_event_case" json:"department"`
	Action     string          `gorm:"type:varchar(40);not null"       json:"action"`
	FromStatus AppraisalStatus `gorm:"type:varchar(30)"                json:"fromStatus"`
	ToStatus   AppraisalStatus `gorm:"type:varchar(30);not null"       json:"toStatus"`
	ActorID    string          `gorm:"type:varchar(50);not null"       json:"actorId"`
	ActorRole  Role            `gorm:"type:varchar(30);not null"       json:"actorRole"`
	Note       string          `gorm:"type:text"                       json:"note,omitempty"`
	At         time.Time       `gorm:"not null"                        json:"at"`
}

// TableName table name
func (AppraisalEvent) TableName() string { return "appraisal_events" }

// BeforeCreate assigns a ULID when the caller did not.
func (e *AppraisalEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	return nil
}
