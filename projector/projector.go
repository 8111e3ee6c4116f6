// ABOUTME: Filter/sort projector producing the visible order of a listing
// ABOUTME: Pure, stable, and deterministic; never mutates its input
package projector

import (
	"slices"
	"strings"
	"time"

	"github.com/harperreed/pipeboard/models"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection defaults anything unrecognised to ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// SortKey names the field a listing is ordered by. An empty or unknown key keeps
// the collection order.
type SortKey string

const (
	SortNone         SortKey = ""
	SortName         SortKey = "name"
	SortCompany      SortKey = "company"
	SortDealValue    SortKey = "deal_value"
	SortProbability  SortKey = "probability"
	SortScore        SortKey = "score"
	SortPriority     SortKey = "priority"
	SortLastActivity SortKey = "last_activity"
	SortRelationship SortKey = "relationship_score"
	SortLastContact  SortKey = "last_interaction"
	SortCreated      SortKey = "created_at"
)

type compareFunc[T any] func(a, b T) int

var leadComparators = map[SortKey]compareFunc[models.Lead]{
	SortName:         func(a, b models.Lead) int { return compareFold(a.Name, b.Name) },
	SortCompany:      func(a, b models.Lead) int { return compareFold(a.Company, b.Company) },
	SortDealValue:    func(a, b models.Lead) int { return compareInt(a.DealValue, b.DealValue) },
	SortProbability:  func(a, b models.Lead) int { return compareInt(a.Probability, b.Probability) },
	SortScore:        func(a, b models.Lead) int { return compareInt(a.Score, b.Score) },
	SortPriority:     func(a, b models.Lead) int { return compareInt(a.Priority.Rank(), b.Priority.Rank()) },
	SortLastActivity: func(a, b models.Lead) int { return a.LastActivityDate.Compare(b.LastActivityDate) },
	SortCreated:      func(a, b models.Lead) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

var customerComparators = map[SortKey]compareFunc[models.Customer]{
	SortName:         func(a, b models.Customer) int { return compareFold(a.Company, b.Company) },
	SortCompany:      func(a, b models.Customer) int { return compareFold(a.Company, b.Company) },
	SortRelationship: func(a, b models.Customer) int { return compareInt(a.RelationshipScore, b.RelationshipScore) },
	SortLastContact:  func(a, b models.Customer) int { return lastInteraction(a).Compare(lastInteraction(b)) },
	SortCreated:      func(a, b models.Customer) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// Leads returns the leads that pass f, ordered by key and dir. Ties keep their
// relative order from all.
func Leads(all []models.Lead, f LeadFilter, key SortKey, dir Direction) []models.Lead {
	f = f.Normalize()
	out := make([]models.Lead, 0, len(all))
	for _, l := range all {
		if f.Match(l) {
			out = append(out, l.Clone())
		}
	}
	stableSort(out, leadComparators[key], dir)
	return out
}

// Customers is Leads for the customer directory.
func Customers(all []models.Customer, f CustomerFilter, key SortKey, dir Direction) []models.Customer {
	f = f.Normalize()
	out := make([]models.Customer, 0, len(all))
	for _, c := range all {
		if f.Match(c) {
			out = append(out, c.Clone())
		}
	}
	stableSort(out, customerComparators[key], dir)
	return out
}

// IDs extracts record ids in order.
func IDs[T models.Record](records []T) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.RecordID()
	}
	return ids
}

func stableSort[T any](s []T, cmp compareFunc[T], dir Direction) {
	if cmp == nil {
		return
	}
	slices.SortStableFunc(s, func(a, b T) int {
		if dir == Desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareInt[N int | int64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func lastInteraction(c models.Customer) time.Time {
	if c.LastInteraction == nil {
		return time.Time{}
	}
	return *c.LastInteraction
}
