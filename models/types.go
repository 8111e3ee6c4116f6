// ABOUTME: Data models for pipeline entities
// ABOUTME: Defines Lead, Customer, their nested entries, and the Record interface
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is anything a listing view can select and a bulk action can target.
type Record interface {
	RecordID() string
}

// Entry is one item of a lead's nested activity, note, or attachment list.
type Entry struct {
	ID        string       `json:"id"`
	Kind      EntryKind    `json:"kind"`
	Type      ActivityType `json:"type,omitempty"` // activities only
	Body      string       `json:"body"`
	URL       string       `json:"url,omitempty"` // attachments only
	CreatedAt time.Time    `json:"created_at"`
}

type Lead struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Company          string    `json:"company,omitempty"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Location         string    `json:"location,omitempty"`
	Stage            Stage     `json:"stage"`
	Priority         Priority  `json:"priority"`
	Score            int       `json:"score"`
	DealValue        int64     `json:"deal_value"` // in cents
	Probability      int       `json:"probability"`
	Tags             []string  `json:"tags,omitempty"`
	LastActivity     string    `json:"last_activity,omitempty"`
	LastActivityDate time.Time `json:"last_activity_date"`
	Activities       []Entry   `json:"activities,omitempty"`
	Notes            []Entry   `json:"notes,omitempty"`
	Attachments      []Entry   `json:"attachments,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (l Lead) RecordID() string { return l.ID }

// NewLead fills identity, timestamps, and defaults for a lead about to be stored.
func NewLead(name string, stage Stage) *Lead {
	now := time.Now().UTC()
	if stage == "" {
		stage = StageProspect
	}
	return &Lead{
		ID:               uuid.New().String(),
		Name:             name,
		Stage:            stage,
		Priority:         PriorityMedium,
		LastActivity:     "Created",
		LastActivityDate: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks the lead's classification and commercial ranges.
func (l *Lead) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("lead name is required")
	}
	if !l.Stage.Valid() {
		return fmt.Errorf("invalid stage: %q", l.Stage)
	}
	if !l.Priority.Valid() {
		return fmt.Errorf("invalid priority: %q", l.Priority)
	}
	if l.Score < 0 || l.Score > 5 {
		return fmt.Errorf("score must be between 0 and 5, got %d", l.Score)
	}
	if l.DealValue < 0 {
		return fmt.Errorf("deal value must be non-negative, got %d", l.DealValue)
	}
	if l.Probability < 0 || l.Probability > 100 {
		return fmt.Errorf("probability must be between 0 and 100, got %d", l.Probability)
	}
	return nil
}

// Clone returns a deep copy so moves and bulk actions never alias caller state.
func (l Lead) Clone() Lead {
	l.Tags = cloneStrings(l.Tags)
	l.Activities = cloneEntries(l.Activities)
	l.Notes = cloneEntries(l.Notes)
	l.Attachments = cloneEntries(l.Attachments)
	return l
}

// AppendEntry adds a nested entry to the matching list and bumps the activity marker.
func (l *Lead) AppendEntry(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	switch e.Kind {
	case EntryActivity:
		if !e.Type.Valid() {
			return fmt.Errorf("invalid activity type: %q", e.Type)
		}
		l.Activities = append(l.Activities, e)
		l.LastActivity = e.Type.Label() + ": " + e.Body
	case EntryNote:
		l.Notes = append(l.Notes, e)
		l.LastActivity = "Note added"
	case EntryAttachment:
		l.Attachments = append(l.Attachments, e)
		l.LastActivity = "File attached: " + e.Body
	default:
		return fmt.Errorf("invalid entry kind: %q", e.Kind)
	}

	l.LastActivityDate = e.CreatedAt
	l.UpdatedAt = e.CreatedAt
	return nil
}

// HasAnyTag reports whether the lead carries at least one of tags.
func (l Lead) HasAnyTag(tags []string) bool {
	return anyTag(l.Tags, tags)
}

type Customer struct {
	ID                string         `json:"id"`
	Company           string         `json:"company"`
	ContactName       string         `json:"contact_name,omitempty"`
	Email             string         `json:"email,omitempty"`
	Phone             string         `json:"phone,omitempty"`
	Industry          string         `json:"industry,omitempty"`
	Location          string         `json:"location,omitempty"`
	Status            CustomerStatus `json:"status"`
	RelationshipScore int            `json:"relationship_score"`
	TotalValue        string         `json:"total_value,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	LastInteraction   *time.Time     `json:"last_interaction,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (c Customer) RecordID() string { return c.ID }

// NewCustomer fills identity, timestamps, and defaults for a new account.
func NewCustomer(company string) *Customer {
	now := time.Now().UTC()
	return &Customer{
		ID:        uuid.New().String(),
		Company:   company,
		Status:    CustomerProspect,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Customer) Validate() error {
	if c.Company == "" {
		return fmt.Errorf("customer company is required")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("invalid customer status: %q", c.Status)
	}
	if c.RelationshipScore < 0 || c.RelationshipScore > 100 {
		return fmt.Errorf("relationship score must be between 0 and 100, got %d", c.RelationshipScore)
	}
	return nil
}

func (c Customer) Clone() Customer {
	c.Tags = cloneStrings(c.Tags)
	if c.LastInteraction != nil {
		t := *c.LastInteraction
		c.LastInteraction = &t
	}
	return c
}

// Touch records an explicit contact action.
func (c *Customer) Touch(at time.Time) {
	c.LastInteraction = &at
	c.UpdatedAt = at
}

// Bucket returns the relationship bucket the customer's score falls into.
func (c Customer) Bucket() RelationshipBucket {
	return BucketFor(c.RelationshipScore)
}

func (c Customer) HasAnyTag(tags []string) bool {
	return anyTag(c.Tags, tags)
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneEntries(e []Entry) []Entry {
	if e == nil {
		return nil
	}
	out := make([]Entry, len(e))
	copy(out, e)
	return out
}
