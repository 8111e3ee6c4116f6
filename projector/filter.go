// ABOUTME: Filter criteria for lead and customer listings
// ABOUTME: Normalises malformed criteria to "no filter" and matches records with AND/OR semantics
package projector

import (
	"net/url"
	"strings"

	"github.com/harperreed/pipeboard/models"
)

// All is the sentinel a UI select sends for "no filter"; it is treated like "".
const All = "all"

// CustomerFilter combines independent predicates with AND. Tags match with OR.
type CustomerFilter struct {
	Status       models.CustomerStatus     `json:"status,omitempty"`
	Industry     string                    `json:"industry,omitempty"`
	Location     string                    `json:"location,omitempty"`
	Relationship models.RelationshipBucket `json:"relationship,omitempty"`
	Search       string                    `json:"search,omitempty"`
	Tags         []string                  `json:"tags,omitempty"`
}

// LeadFilter is the board-side equivalent of CustomerFilter.
type LeadFilter struct {
	Stage    models.Stage    `json:"stage,omitempty"`
	Priority models.Priority `json:"priority,omitempty"`
	Location string          `json:"location,omitempty"`
	Search   string          `json:"search,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
}

// Normalize drops values that cannot match anything meaningful so a malformed
// filter behaves as "no filter" for that field.
func (f CustomerFilter) Normalize() CustomerFilter {
	if !f.Status.Valid() {
		f.Status = ""
	}
	if !f.Relationship.Valid() {
		f.Relationship = ""
	}
	f.Industry = normChoice(f.Industry)
	f.Location = normChoice(f.Location)
	f.Search = strings.TrimSpace(f.Search)
	f.Tags = normTags(f.Tags)
	return f
}

func (f LeadFilter) Normalize() LeadFilter {
	if !f.Stage.Valid() {
		f.Stage = ""
	}
	if !f.Priority.Valid() {
		f.Priority = ""
	}
	f.Location = normChoice(f.Location)
	f.Search = strings.TrimSpace(f.Search)
	f.Tags = normTags(f.Tags)
	return f
}

// IsZero reports whether the filter lets every record through.
func (f CustomerFilter) IsZero() bool {
	n := f.Normalize()
	return n.Status == "" && n.Industry == "" && n.Location == "" && n.Relationship == "" && n.Search == "" && len(n.Tags) == 0
}

// Match assumes f is normalised.
func (f CustomerFilter) Match(c models.Customer) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Industry != "" && c.Industry != f.Industry {
		return false
	}
	if f.Location != "" && c.Location != f.Location {
		return false
	}
	if f.Relationship != "" && c.Bucket() != f.Relationship {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, c.Company, c.ContactName, c.Email) {
		return false
	}
	if len(f.Tags) > 0 && !c.HasAnyTag(f.Tags) {
		return false
	}
	return true
}

func (f LeadFilter) Match(l models.Lead) bool {
	if f.Stage != "" && l.Stage != f.Stage {
		return false
	}
	if f.Priority != "" && l.Priority != f.Priority {
		return false
	}
	if f.Location != "" && l.Location != f.Location {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, l.Name, l.Company, l.Email) {
		return false
	}
	if len(f.Tags) > 0 && !l.HasAnyTag(f.Tags) {
		return false
	}
	return true
}

// CustomerFilterFromQuery reads ?status=&industry=&location=&relationship=&search=&tags=a,b.
func CustomerFilterFromQuery(v url.Values) CustomerFilter {
	return CustomerFilter{
		Status:       models.CustomerStatus(v.Get("status")),
		Industry:     v.Get("industry"),
		Location:     v.Get("location"),
		Relationship: models.RelationshipBucket(v.Get("relationship")),
		Search:       v.Get("search"),
		Tags:         splitCSV(v.Get("tags")),
	}.Normalize()
}

func LeadFilterFromQuery(v url.Values) LeadFilter {
	return LeadFilter{
		Stage:    models.Stage(v.Get("stage")),
		Priority: models.Priority(v.Get("priority")),
		Location: v.Get("location"),
		Search:   v.Get("search"),
		Tags:     splitCSV(v.Get("tags")),
	}.Normalize()
}

func containsFold(needle string, fields ...string) bool {
	n := strings.ToLower(needle)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), n) {
			return true
		}
	}
	return false
}

func normChoice(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, All) {
		return ""
	}
	return s
}

func normTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return normTags(strings.Split(s, ","))
}
