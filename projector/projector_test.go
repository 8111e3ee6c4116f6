// ABOUTME: Tests for the filter/sort projector
// ABOUTME: Verifies AND/OR filter semantics, stable sorting, normalisation and purity
package projector

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pipeboard/models"
)

func customer(id, company string, industry string, status models.CustomerStatus, score int) models.Customer {
	return models.Customer{
		ID:                id,
		Company:           company,
		Industry:          industry,
		Status:            status,
		RelationshipScore: score,
	}
}

func TestFilterAndSearchCombineWithAnd(t *testing.T) {
	var all []models.Customer
	for i := 0; i < 99; i++ {
		industry := "technology"
		name := fmt.Sprintf("Widget Co %d", i)
		if i%2 == 0 {
			industry = "retail"
			name = fmt.Sprintf("Acme Retail %d", i)
		}
		all = append(all, customer(fmt.Sprintf("c%d", i), name, industry, models.CustomerActive, i))
	}
	all = append(all, customer("target", "ACME Technologies", "technology", models.CustomerActive, 50))

	got := Customers(all, CustomerFilter{Industry: "technology", Search: "acme"}, SortNone, Asc)
	require.Len(t, got, 1)
	assert.Equal(t, "target", got[0].ID)
}

func TestSearchMatchesContactAndEmail(t *testing.T) {
	all := []models.Customer{
		{ID: "1", Company: "Initech", ContactName: "Peter Gibbons"},
		{ID: "2", Company: "Globex", Email: "hank@globex.example"},
		{ID: "3", Company: "Umbrella"},
	}

	assert.Equal(t, []string{"1"}, IDs(Customers(all, CustomerFilter{Search: "GIBBONS"}, SortNone, Asc)))
	assert.Equal(t, []string{"2"}, IDs(Customers(all, CustomerFilter{Search: "hank@"}, SortNone, Asc)))
}

func TestTagFilterUsesOr(t *testing.T) {
	all := []models.Customer{
		{ID: "1", Company: "A", Tags: []string{"vip"}},
		{ID: "2", Company: "B", Tags: []string{"renewal"}},
		{ID: "3", Company: "C", Tags: []string{"other"}},
		{ID: "4", Company: "D"},
	}

	got := Customers(all, CustomerFilter{Tags: []string{"vip", "renewal"}}, SortNone, Asc)
	assert.Equal(t, []string{"1", "2"}, IDs(got))
}

func TestRelationshipBucketFilter(t *testing.T) {
	all := []models.Customer{
		customer("1", "A", "", models.CustomerActive, 95),
		customer("2", "B", "", models.CustomerActive, 65),
		customer("3", "C", "", models.CustomerActive, 10),
	}

	got := Customers(all, CustomerFilter{Relationship: models.BucketGood}, SortNone, Asc)
	assert.Equal(t, []string{"2"}, IDs(got))
}

func TestMalformedFilterIsNoFilter(t *testing.T) {
	all := []models.Customer{
		customer("1", "A", "tech", models.CustomerActive, 10),
		customer("2", "B", "retail", models.CustomerChurned, 90),
	}

	f := CustomerFilter{Status: "bogus", Relationship: "stellar", Industry: "all", Search: "   ", Tags: []string{"", " "}}
	assert.True(t, f.IsZero())
	assert.Equal(t, []string{"1", "2"}, IDs(Customers(all, f, "no_such_key", "sideways")))
}

func TestSortByNameIsCaseInsensitive(t *testing.T) {
	all := []models.Customer{
		{ID: "1", Company: "banana"},
		{ID: "2", Company: "Apple"},
		{ID: "3", Company: "cherry"},
	}

	assert.Equal(t, []string{"2", "1", "3"}, IDs(Customers(all, CustomerFilter{}, SortName, Asc)))
	assert.Equal(t, []string{"3", "1", "2"}, IDs(Customers(all, CustomerFilter{}, SortName, Desc)))
}

func TestSortIsStable(t *testing.T) {
	// Already ordered by name; sorting by score must keep name order among ties.
	all := []models.Customer{
		customer("a", "Alpha", "", models.CustomerActive, 50),
		customer("b", "Bravo", "", models.CustomerActive, 70),
		customer("c", "Charlie", "", models.CustomerActive, 50),
		customer("d", "Delta", "", models.CustomerActive, 70),
		customer("e", "Echo", "", models.CustomerActive, 50),
	}

	asc := Customers(all, CustomerFilter{}, SortRelationship, Asc)
	assert.Equal(t, []string{"a", "c", "e", "b", "d"}, IDs(asc))

	desc := Customers(all, CustomerFilter{}, SortRelationship, Desc)
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, IDs(desc))
}

func TestSortByDateHandlesMissingInteraction(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	all := []models.Customer{
		{ID: "late", Company: "L", LastInteraction: &t2},
		{ID: "never", Company: "N"},
		{ID: "early", Company: "E", LastInteraction: &t1},
	}

	assert.Equal(t, []string{"never", "early", "late"}, IDs(Customers(all, CustomerFilter{}, SortLastContact, Asc)))
}

func TestProjectionDoesNotMutateInput(t *testing.T) {
	all := []models.Customer{
		{ID: "2", Company: "B", Tags: []string{"x"}},
		{ID: "1", Company: "A", Tags: []string{"y"}},
	}
	snapshot := []models.Customer{all[0].Clone(), all[1].Clone()}

	first := Customers(all, CustomerFilter{}, SortName, Asc)
	first[0].Tags[0] = "changed"
	second := Customers(all, CustomerFilter{}, SortName, Asc)

	assert.Equal(t, snapshot, all)
	assert.Equal(t, []string{"1", "2"}, IDs(second))
	assert.Equal(t, "y", second[0].Tags[0])
}

func TestLeadsFilterAndSort(t *testing.T) {
	all := []models.Lead{
		{ID: "1", Name: "Zed", Company: "Acme", Stage: models.StageProspect, Priority: models.PriorityLow, DealValue: 500},
		{ID: "2", Name: "Amy", Company: "Acme", Stage: models.StageProposal, Priority: models.PriorityHigh, DealValue: 1500},
		{ID: "3", Name: "Bob", Company: "Other", Stage: models.StageProspect, Priority: models.PriorityHigh, DealValue: 900},
	}

	got := Leads(all, LeadFilter{Search: "acme"}, SortDealValue, Desc)
	assert.Equal(t, []string{"2", "1"}, IDs(got))

	got = Leads(all, LeadFilter{Stage: models.StageProspect}, SortPriority, Desc)
	assert.Equal(t, []string{"3", "1"}, IDs(got))

	got = Leads(all, LeadFilter{Stage: "nope", Priority: "urgent"}, SortName, Asc)
	assert.Equal(t, []string{"2", "3", "1"}, IDs(got))
}

func TestFiltersFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("status", "active")
	q.Set("industry", "all")
	q.Set("relationship", "excellent")
	q.Set("search", " acme ")
	q.Set("tags", "vip, renewal,,")

	f := CustomerFilterFromQuery(q)
	assert.Equal(t, CustomerFilter{
		Status:       models.CustomerActive,
		Relationship: models.BucketExcellent,
		Search:       "acme",
		Tags:         []string{"vip", "renewal"},
	}, f)

	lf := LeadFilterFromQuery(url.Values{"stage": {"qualified"}, "priority": {"bad"}})
	assert.Equal(t, LeadFilter{Stage: models.StageQualified}, lf)
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Desc, ParseDirection("DESC"))
	assert.Equal(t, Asc, ParseDirection(""))
	assert.Equal(t, Asc, ParseDirection("up"))
}
