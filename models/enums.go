// ABOUTME: Closed classification types for leads and customers
// ABOUTME: Stage, Priority, CustomerStatus, ActivityType, EntryKind and RelationshipBucket
package models

import "fmt"

// Stage is one column of the sales pipeline.
type Stage string

const (
	StageProspect    Stage = "prospect"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed_won"
	StageClosedLost  Stage = "closed_lost"
)

// AllStages returns the pipeline stages in board order.
func AllStages() []Stage {
	return []Stage{
		StageProspect,
		StageQualified,
		StageProposal,
		StageNegotiation,
		StageClosedWon,
		StageClosedLost,
	}
}

func (s Stage) Valid() bool {
	switch s {
	case StageProspect, StageQualified, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost:
		return true
	}
	return false
}

func (s Stage) Label() string {
	switch s {
	case StageProspect:
		return "Prospect"
	case StageQualified:
		return "Qualified"
	case StageProposal:
		return "Proposal"
	case StageNegotiation:
		return "Negotiation"
	case StageClosedWon:
		return "Closed Won"
	case StageClosedLost:
		return "Closed Lost"
	}
	return string(s)
}

// Index returns the stage's board position, or -1 for an unknown stage.
func (s Stage) Index() int {
	for i, st := range AllStages() {
		if st == s {
			return i
		}
	}
	return -1
}

func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid stage: %s (valid: prospect, qualified, proposal, negotiation, closed_won, closed_lost)", s)
	}
	return st, nil
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities for sorting: high sorts above medium above low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %s (valid: high, medium, low)", s)
	}
	return p, nil
}

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerProspect CustomerStatus = "prospect"
	CustomerChurned  CustomerStatus = "churned"
)

func AllCustomerStatuses() []CustomerStatus {
	return []CustomerStatus{CustomerActive, CustomerInactive, CustomerProspect, CustomerChurned}
}

func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerActive, CustomerInactive, CustomerProspect, CustomerChurned:
		return true
	}
	return false
}

func ParseCustomerStatus(s string) (CustomerStatus, error) {
	st := CustomerStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %s (valid: active, inactive, prospect, churned)", s)
	}
	return st, nil
}

type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivityNote    ActivityType = "note"
	ActivityTask    ActivityType = "task"
)

func (a ActivityType) Valid() bool {
	switch a {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask:
		return true
	}
	return false
}

func (a ActivityType) Label() string {
	switch a {
	case ActivityCall:
		return "Call"
	case ActivityEmail:
		return "Email"
	case ActivityMeeting:
		return "Meeting"
	case ActivityNote:
		return "Note"
	case ActivityTask:
		return "Task"
	}
	return string(a)
}

// EntryKind selects which nested list of a lead an Entry belongs to.
type EntryKind string

const (
	EntryActivity   EntryKind = "activity"
	EntryNote       EntryKind = "note"
	EntryAttachment EntryKind = "attachment"
)

func (k EntryKind) Valid() bool {
	switch k {
	case EntryActivity, EntryNote, EntryAttachment:
		return true
	}
	return false
}

// RelationshipBucket groups relationship scores for filtering.
type RelationshipBucket string

const (
	BucketExcellent RelationshipBucket = "excellent"
	BucketGood      RelationshipBucket = "good"
	BucketFair      RelationshipBucket = "fair"
	BucketPoor      RelationshipBucket = "poor"
)

func AllBuckets() []RelationshipBucket {
	return []RelationshipBucket{BucketExcellent, BucketGood, BucketFair, BucketPoor}
}

func (b RelationshipBucket) Valid() bool {
	switch b {
	case BucketExcellent, BucketGood, BucketFair, BucketPoor:
		return true
	}
	return false
}

// BucketFor maps a 0-100 relationship score onto its bucket.
func BucketFor(score int) RelationshipBucket {
	switch {
	case score >= 80:
		return BucketExcellent
	case score >= 60:
		return BucketGood
	case score >= 40:
		return BucketFair
	default:
		return BucketPoor
	}
}
