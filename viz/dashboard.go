// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides ASCII pipeline and customer overview computed from live board state
package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/pipeline"
)

const (
	// StaleLeadDays is how long a lead may go without activity before it needs attention.
	StaleLeadDays = 14
	// QuietCustomerDays is the same threshold for customer interactions.
	QuietCustomerDays = 30
)

type DashboardStats struct {
	// Pipeline overview, one entry per stage in board order
	Pipeline   []pipeline.Aggregate `json:"pipeline"`
	TotalLeads int                  `json:"total_leads"`
	OpenValue  int64                `json:"open_value"` // cents, excluding closed stages

	TotalCustomers    int                               `json:"total_customers"`
	CustomersByStatus map[models.CustomerStatus]int     `json:"customers_by_status"`
	CustomersByBucket map[models.RelationshipBucket]int `json:"customers_by_bucket"`

	// Needs attention
	StaleLeads     []StaleLead     `json:"stale_leads"`
	QuietCustomers []QuietCustomer `json:"quiet_customers"`
}

type StaleLead struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Stage     models.Stage `json:"stage"`
	DaysSince int          `json:"days_since"`
}

type QuietCustomer struct {
	ID        string `json:"id"`
	Company   string `json:"company"`
	DaysSince int    `json:"days_since"` // -1 when never contacted
}

// GenerateDashboardStats summarises board and customers as of now. Stage
// aggregates come straight from the board, never from a cache.
func GenerateDashboardStats(board *pipeline.Board, customers []models.Customer, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		Pipeline:          board.Aggregates(),
		TotalCustomers:    len(customers),
		CustomersByStatus: make(map[models.CustomerStatus]int),
		CustomersByBucket: make(map[models.RelationshipBucket]int),
		StaleLeads:        []StaleLead{},
		QuietCustomers:    []QuietCustomer{},
	}

	for _, agg := range stats.Pipeline {
		stats.TotalLeads += agg.Count
		if agg.Stage != models.StageClosedWon && agg.Stage != models.StageClosedLost {
			stats.OpenValue += agg.TotalValue
		}
	}

	for _, stage := range board.Stages() {
		if stage == models.StageClosedWon || stage == models.StageClosedLost {
			continue
		}
		for _, l := range board.List(stage) {
			days := daysBetween(l.LastActivityDate, now)
			if days >= StaleLeadDays {
				stats.StaleLeads = append(stats.StaleLeads, StaleLead{ID: l.ID, Name: l.Name, Stage: stage, DaysSince: days})
			}
		}
	}
	sort.SliceStable(stats.StaleLeads, func(i, j int) bool {
		return stats.StaleLeads[i].DaysSince > stats.StaleLeads[j].DaysSince
	})

	for _, c := range customers {
		stats.CustomersByStatus[c.Status]++
		stats.CustomersByBucket[c.Bucket()]++
		if c.Status == models.CustomerChurned || c.Status == models.CustomerInactive {
			continue
		}
		if c.LastInteraction == nil {
			stats.QuietCustomers = append(stats.QuietCustomers, QuietCustomer{ID: c.ID, Company: c.Company, DaysSince: -1})
			continue
		}
		if days := daysBetween(*c.LastInteraction, now); days >= QuietCustomerDays {
			stats.QuietCustomers = append(stats.QuietCustomers, QuietCustomer{ID: c.ID, Company: c.Company, DaysSince: days})
		}
	}

	return stats
}

func daysBetween(from, to time.Time) int {
	if from.IsZero() || to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	// Header
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  PIPEBOARD DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, stats.Pipeline)
	out.WriteString(fmt.Sprintf("  open value %s\n\n", export.FormatCents(stats.OpenValue)))

	out.WriteString("CUSTOMERS\n")
	out.WriteString(fmt.Sprintf("  %d total ", stats.TotalCustomers))
	for _, st := range models.AllCustomerStatuses() {
		out.WriteString(fmt.Sprintf(" %s:%d", st, stats.CustomersByStatus[st]))
	}
	out.WriteString("\n  relationship")
	for _, b := range models.AllBuckets() {
		out.WriteString(fmt.Sprintf(" %s:%d", b, stats.CustomersByBucket[b]))
	}
	out.WriteString("\n\n")

	if len(stats.StaleLeads) > 0 || len(stats.QuietCustomers) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.StaleLeads) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d leads - stale (no activity in %d+ days)\n", len(stats.StaleLeads), StaleLeadDays))
		}
		if len(stats.QuietCustomers) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d customers - no contact in %d+ days\n", len(stats.QuietCustomers), QuietCustomerDays))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, aggs []pipeline.Aggregate) {
	maxCount := 0
	for _, a := range aggs {
		if a.Count > maxCount {
			maxCount = a.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, a := range aggs {
		// 0-10 blocks
		barLength := (a.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-12s %s  %2d  %s  (%.0f%%)\n",
			a.Stage.Label(), bar, a.Count, export.FormatCents(a.TotalValue), a.AverageProbability))
	}
}
