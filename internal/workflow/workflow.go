// Package workflow is the appraisal approval state machine.
//
// It is pure: Plan validates an action against the current case and returns
// the next case together with the columns a guarded update has to write.
// Persisting the transition is the repository's job.
package workflow

import (
	"strings"
	"time"

	"faculty-appraisal/internal/model"
	pkgerrors "faculty-appraisal/pkg/errors"
)

// Action a named workflow transition.
type Action string

const (
	ActionSubmit             Action = "submit"
	ActionApprove            Action = "approve"
	ActionReject             Action = "reject"
	ActionEscalateToDean     Action = "escalate_to_dean"
	ActionDeanApprove        Action = "dean_approve"
	ActionDeanReject         Action = "dean_reject"
	ActionEscalateToDirector Action = "escalate_to_director"
	ActionDirectorApprove    Action = "director_approve"
	ActionDirectorReject     Action = "director_reject"
)

func (a Action) String() string { return string(a) }

// ── errors ──

var (
	ErrUnknownAction     = pkgerrors.Validation("Unknown workflow action")
	ErrReasonRequired    = pkgerrors.Validation("Rejection reason is required")
	ErrActorNotAllowed   = pkgerrors.Forbidden("Insufficient permissions")
	ErrCaseNotFound      = pkgerrors.NotFound("Appraisal not found")
	ErrAlreadySubmitted  = pkgerrors.Conflict("Appraisal already submitted")
	ErrInvalidTransition = pkgerrors.Conflict("Appraisal is not in a state that allows this action")
)

// Input actor and payload of one transition.
type Input struct {
	ActorID   string
	ActorRole model.Role
	Comments  string
	Reason    string
	At        time.Time
}

// Rule one row of the transition table.
type Rule struct {
	Action         Action
	Roles          []model.Role // Admin is always allowed on top of these
	From           []model.AppraisalStatus
	To             model.AppraisalStatus
	ReasonRequired bool
	Message        string
	// Columns written besides status, updated_at and version.
	Columns []string
	apply   func(c *model.AppraisalCase, in Input)
}

// Allows reports whether role may perform the rule's action.
func (r *Rule) Allows(role model.Role) bool {
	if role == model.RoleAdmin {
		return true
	}
	for _, allowed := range r.Roles {
		if role == allowed {
			return true
		}
	}
	return false
}

// AcceptsFrom reports whether status is in the rule's from-set.
func (r *Rule) AcceptsFrom(status model.AppraisalStatus) bool {
	for _, s := range r.From {
		if s == status {
			return true
		}
	}
	return false
}

// Transition a planned, not yet persisted state change.
type Transition struct {
	Action  Action
	From    model.AppraisalStatus // empty for a first submission
	To      model.AppraisalStatus
	Next    *model.AppraisalCase
	Columns []string // nil when Next is a new row
	Message string
	input   Input
}

// Created reports whether the transition creates the case.
func (t *Transition) Created() bool { return t.From == "" }

// ExpectedVersion the version the stored row must still carry.
func (t *Transition) ExpectedVersion() int { return t.Next.Version - 1 }

// Event builds the history row for the transition.
func (t *Transition) Event() *model.AppraisalEvent {
	in := t.input
	note := in.Reason
	if note == "" {
		note = in.Comments
	}
	return &model.AppraisalEvent{
		FacultyID:  t.Next.FacultyID,
		Department: t.Next.Department,
		Action:     t.Action.String(),
		FromStatus: t.From,
		ToStatus:   t.To,
		ActorID:    in.ActorID,
		ActorRole:  in.ActorRole,
		Note:       note,
		At:         in.At,
	}
}

var baseColumns = []string{"Status", "UpdatedAt", "Version"}

// Lookup returns the rule for action.
func Lookup(action Action) (*Rule, bool) {
	r, ok := rules[action]
	return r, ok
}

// Plan validates action against current and computes the next state.
// current is nil when no case exists for the faculty member yet.
func Plan(action Action, current *model.AppraisalCase, facultyID, department string, in Input) (*Transition, error) {
	rule, ok := rules[action]
	if !ok {
		return nil, ErrUnknownAction
	}
	if !rule.Allows(in.ActorRole) {
		return nil, ErrActorNotAllowed.
			WithDetail("required_roles", roleNames(rule.Roles)).
			WithDetail("your_role", in.ActorRole.String())
	}
	in.Reason = strings.TrimSpace(in.Reason)
	in.Comments = strings.TrimSpace(in.Comments)
	if rule.ReasonRequired && in.Reason == "" {
		return nil, ErrReasonRequired
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}

	if current == nil {
		if action != ActionSubmit {
			return nil, ErrCaseNotFound
		}
		next := &model.AppraisalCase{
			FacultyID:   facultyID,
			Department:  department,
			Status:      rule.To,
			SubmittedAt: in.At,
		}
		next.CreatedAt = in.At
		next.UpdatedAt = in.At
		next.Version = 1
		return &Transition{Action: action, To: rule.To, Next: next, Message: rule.Message, input: in}, nil
	}

	if !rule.AcceptsFrom(current.Status) {
		if action == ActionSubmit {
			return nil, ErrAlreadySubmitted.WithDetail("status", string(current.Status))
		}
		return nil, ErrInvalidTransition.WithDetail("status", string(current.Status))
	}

	next := *current
	rule.apply(&next, in)
	next.Status = rule.To
	next.UpdatedAt = in.At
	next.Version = current.Version + 1

	columns := make([]string, 0, len(rule.Columns)+len(baseColumns))
	columns = append(columns, rule.Columns...)
	columns = append(columns, baseColumns...)

	return &Transition{
		Action:  action,
		From:    current.Status,
		To:      rule.To,
		Next:    &next,
		Columns: columns,
		Message: rule.Message,
		input:   in,
	}, nil
}

func roleNames(roles []model.Role) []string {
	names := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		names = append(names, r.String())
	}
	return append(names, model.RoleAdmin.String())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stamp(t time.Time) *time.Time { return &t }

func actor(in Input) *string { return &in.ActorID }

// ── transition table ──

var hodReview = []model.AppraisalStatus{model.StatusSubmitted, model.StatusHODApproved, model.StatusReturnedToHOD}

var rules = map[Action]*Rule{
	ActionSubmit: {
		Action:  ActionSubmit,
		Roles:   []model.Role{model.RoleFaculty},
		From:    []model.AppraisalStatus{model.StatusHODRejected},
		To:      model.StatusSubmitted,
		Message: "Appraisal submitted",
		Columns: []string{
			"SubmittedAt",
			"HODID", "HODComments", "HODApprovedAt", "HODRejectionReason", "HODRejectedAt",
			"EscalatedToDean", "EscalatedBy", "EscalationReason", "EscalatedAt",
			"DeanID", "DeanComments", "DeanApprovedAt", "DeanRejectionReason", "DeanRejectedAt",
			"EscalatedToDirector", "DirectorEscalatedBy", "DirectorEscalationReason", "DirectorEscalatedAt",
			"DirectorID", "DirectorComments", "DirectorApprovedAt", "DirectorRejectionReason", "DirectorRejectedAt",
		},
		// resubmission starts a fresh review; the event log keeps the old one
		apply: func(c *model.AppraisalCase, in Input) {
			*c = model.AppraisalCase{
				FacultyID:      c.FacultyID,
				Department:     c.Department,
				SubmittedAt:    in.At,
				VersionedModel: c.VersionedModel,
			}
		},
	},
	ActionApprove: {
		Action:  ActionApprove,
		Roles:   []model.Role{model.RoleHOD},
		From:    []model.AppraisalStatus{model.StatusSubmitted, model.StatusReturnedToHOD},
		To:      model.StatusHODApproved,
		Message: "Appraisal approved successfully",
		Columns: []string{"HODID", "HODComments", "HODApprovedAt"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.HODID = actor(in)
			c.HODComments = optional(in.Comments)
			c.HODApprovedAt = stamp(in.At)
		},
	},
	ActionReject: {
		Action:         ActionReject,
		Roles:          []model.Role{model.RoleHOD},
		From:           hodReview,
		To:             model.StatusHODRejected,
		ReasonRequired: true,
		Message:        "Appraisal rejected",
		Columns:        []string{"HODID", "HODRejectionReason", "HODRejectedAt"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.HODID = actor(in)
			c.HODRejectionReason = optional(in.Reason)
			c.HODRejectedAt = stamp(in.At)
		},
	},
	ActionEscalateToDean: {
		Action:  ActionEscalateToDean,
		Roles:   []model.Role{model.RoleHOD},
		From:    hodReview,
		To:      model.StatusEscalatedToDean,
		Message: "Appraisal escalated to Dean",
		Columns: []string{"HODID", "EscalatedToDean", "EscalatedBy", "EscalationReason", "EscalatedAt"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.HODID = actor(in)
			c.EscalatedToDean = true
			c.EscalatedBy = actor(in)
			c.EscalationReason = optional(in.Reason)
			c.EscalatedAt = stamp(in.At)
		},
	},
	ActionDeanApprove: {
		Action:  ActionDeanApprove,
		Roles:   []model.Role{model.RoleDean},
		From:    []model.AppraisalStatus{model.StatusEscalatedToDean},
		To:      model.StatusDeanApproved,
		Message: "Appraisal approved by Dean",
		Columns: []string{"DeanID", "DeanComments", "DeanApprovedAt"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.DeanID = actor(in)
			c.DeanComments = optional(in.Comments)
			c.DeanApprovedAt = stamp(in.At)
		},
	},
	ActionDeanReject: {
		Action:         ActionDeanReject,
		Roles:          []model.Role{model.RoleDean},
		From:           []model.AppraisalStatus{model.StatusEscalatedToDean},
		To:             model.StatusReturnedToHOD,
		ReasonRequired: true,
		Message:        "Appraisal returned to HOD",
		Columns:        []string{"DeanID", "DeanRejectionReason", "DeanRejectedAt", "EscalatedToDean"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.DeanID = actor(in)
			c.DeanRejectionReason = optional(in.Reason)
			c.DeanRejectedAt = stamp(in.At)
			c.EscalatedToDean = false
		},
	},
	ActionEscalateToDirector: {
		Action:  ActionEscalateToDirector,
		Roles:   []model.Role{model.RoleDean},
		From:    []model.AppraisalStatus{model.StatusDeanApproved, model.StatusReturnedToDean},
		To:      model.StatusEscalatedToDirector,
		Message: "Appraisal escalated to Director",
		Columns: []string{"EscalatedToDirector", "DirectorEscalatedBy", "DirectorEscalationReason", "DirectorEscalatedAt"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.EscalatedToDirector = true
			c.DirectorEscalatedBy = actor(in)
			c.DirectorEscalationReason = optional(in.Reason)
			c.DirectorEscalatedAt = stamp(in.At)
		},
	},
	ActionDirectorApprove: {
		Action:  ActionDirectorApprove,
		Roles:   []model.Role{model.RoleDirector},
		From:    []model.AppraisalStatus{model.StatusEscalatedToDirector},
		To:      model.StatusFinalApproved,
		Message: "Appraisal approved by Director",
		Columns: []string{"DirectorID", "DirectorComments", "DirectorApprovedAt"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.DirectorID = actor(in)
			c.DirectorComments = optional(in.Comments)
			c.DirectorApprovedAt = stamp(in.At)
		},
	},
	ActionDirectorReject: {
		Action:         ActionDirectorReject,
		Roles:          []model.Role{model.RoleDirector},
		From:           []model.AppraisalStatus{model.StatusEscalatedToDirector},
		To:             model.StatusReturnedToDean,
		ReasonRequired: true,
		Message:        "Appraisal returned to Dean",
		Columns:        []string{"DirectorID", "DirectorRejectionReason", "DirectorRejectedAt", "EscalatedToDirector"},
		apply: func(c *model.AppraisalCase, in Input) {
			c.DirectorID = actor(in)
			c.DirectorRejectionReason = optional(in.Reason)
			c.DirectorRejectedAt = stamp(in.At)
			c.EscalatedToDirector = false
		},
	},
}
