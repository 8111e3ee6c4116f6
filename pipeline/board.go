// ABOUTME: Stage collection store for the sales pipeline board
// ABOUTME: Holds ordered lead lists per stage and computes live per-stage aggregates
package pipeline

import (
	"fmt"

	"github.com/harperreed/pipeboard/models"
)

// Board maps each pipeline stage to its ordered list of leads. A lead lives in
// exactly one list and its Stage field always names that list.
type Board struct {
	stages []models.Stage
	lists  map[models.Stage][]models.Lead
}

// Aggregate summarises one stage column.
type Aggregate struct {
	Stage              models.Stage `json:"stage"`
	Count              int          `json:"count"`
	TotalValue         int64        `json:"total_value"` // in cents
	AverageProbability float64      `json:"average_probability"`
}

// NewBoard creates an empty board with the given columns, in order.
func NewBoard(stages ...models.Stage) *Board {
	if len(stages) == 0 {
		stages = models.AllStages()
	}
	b := &Board{
		stages: append([]models.Stage(nil), stages...),
		lists:  make(map[models.Stage][]models.Lead, len(stages)),
	}
	for _, s := range stages {
		b.lists[s] = []models.Lead{}
	}
	return b
}

// FromLeads builds a full pipeline board, keeping the incoming order within each stage.
func FromLeads(leads []models.Lead) (*Board, error) {
	b := NewBoard()
	seen := make(map[string]models.Stage, len(leads))
	for _, l := range leads {
		if _, ok := b.lists[l.Stage]; !ok {
			return nil, fmt.Errorf("lead %s has unknown stage %q", l.ID, l.Stage)
		}
		if prev, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("lead %s appears in both %s and %s", l.ID, prev, l.Stage)
		}
		seen[l.ID] = l.Stage
		b.lists[l.Stage] = append(b.lists[l.Stage], l.Clone())
	}
	return b, nil
}

// Stages returns the board's columns in display order.
func (b *Board) Stages() []models.Stage {
	return append([]models.Stage(nil), b.stages...)
}

// Has reports whether stage is a column of this board.
func (b *Board) Has(stage models.Stage) bool {
	_, ok := b.lists[stage]
	return ok
}

// List returns a copy of the leads in stage.
func (b *Board) List(stage models.Stage) []models.Lead {
	src := b.lists[stage]
	out := make([]models.Lead, len(src))
	for i, l := range src {
		out[i] = l.Clone()
	}
	return out
}

// Leads returns every lead in board order: stage by stage, top to bottom.
func (b *Board) Leads() []models.Lead {
	var out []models.Lead
	for _, s := range b.stages {
		out = append(out, b.List(s)...)
	}
	return out
}

// Len returns the number of leads in stage.
func (b *Board) Len(stage models.Stage) int {
	return len(b.lists[stage])
}

// Count returns the total number of leads across all stages.
func (b *Board) Count() int {
	n := 0
	for _, l := range b.lists {
		n += len(l)
	}
	return n
}

// Find locates a lead by id.
func (b *Board) Find(id string) (models.Stage, int, bool) {
	for _, s := range b.stages {
		for i, l := range b.lists[s] {
			if l.ID == id {
				return s, i, true
			}
		}
	}
	return "", -1, false
}

// Replace swaps the whole list for stage. Every lead must already carry that
// stage and must not be present in any other column.
func (b *Board) Replace(stage models.Stage, leads []models.Lead) error {
	if !b.Has(stage) {
		return fmt.Errorf("unknown stage %q", stage)
	}

	others := make(map[string]models.Stage)
	for _, s := range b.stages {
		if s == stage {
			continue
		}
		for _, l := range b.lists[s] {
			others[l.ID] = s
		}
	}

	next := make([]models.Lead, 0, len(leads))
	ids := make(map[string]bool, len(leads))
	for _, l := range leads {
		if l.Stage != stage {
			return fmt.Errorf("lead %s has stage %q, cannot be placed in %q", l.ID, l.Stage, stage)
		}
		if s, ok := others[l.ID]; ok {
			return fmt.Errorf("lead %s is already in stage %q", l.ID, s)
		}
		if ids[l.ID] {
			return fmt.Errorf("lead %s listed twice", l.ID)
		}
		ids[l.ID] = true
		next = append(next, l.Clone())
	}

	b.lists[stage] = next
	return nil
}

// Aggregate computes count, total value, and mean probability from the live list.
func (b *Board) Aggregate(stage models.Stage) Aggregate {
	agg := Aggregate{Stage: stage}
	list := b.lists[stage]
	if len(list) == 0 {
		return agg
	}

	var probSum int
	for _, l := range list {
		agg.TotalValue += l.DealValue
		probSum += l.Probability
	}
	agg.Count = len(list)
	agg.AverageProbability = float64(probSum) / float64(len(list))
	return agg
}

// Aggregates returns one Aggregate per column in board order.
func (b *Board) Aggregates() []Aggregate {
	out := make([]Aggregate, 0, len(b.stages))
	for _, s := range b.stages {
		out = append(out, b.Aggregate(s))
	}
	return out
}

// Clone deep-copies the board.
func (b *Board) Clone() *Board {
	c := &Board{
		stages: append([]models.Stage(nil), b.stages...),
		lists:  make(map[models.Stage][]models.Lead, len(b.lists)),
	}
	for s := range b.lists {
		c.lists[s] = b.List(s)
	}
	return c
}

// Positions returns the lead ids of stage in order.
func (b *Board) Positions(stage models.Stage) []string {
	ids := make([]string, len(b.lists[stage]))
	for i, l := range b.lists[stage] {
		ids[i] = l.ID
	}
	return ids
}
