// ABOUTME: Tests for the drag reorder engine and stage collection store
// ABOUTME: Covers conservation, no-op moves, clamping, replace and aggregates
package pipeline

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pipeboard/models"
)

func lead(id string, stage models.Stage, value int64, prob int) models.Lead {
	return models.Lead{
		ID:          id,
		Name:        "Lead " + id,
		Stage:       stage,
		Priority:    models.PriorityMedium,
		DealValue:   value,
		Probability: prob,
	}
}

func testBoard(t *testing.T) *Board {
	t.Helper()
	b, err := FromLeads([]models.Lead{
		lead("A", models.StageProspect, 1000, 10),
		lead("B", models.StageProspect, 2000, 20),
		lead("C", models.StageProposal, 5000, 60),
	})
	require.NoError(t, err)
	return b
}

func assertConsistent(t *testing.T, b *Board) {
	t.Helper()
	for _, s := range b.Stages() {
		for _, l := range b.List(s) {
			assert.Equal(t, s, l.Stage, "lead %s stage field disagrees with its column", l.ID)
		}
	}
}

func TestMoveBetweenStages(t *testing.T) {
	b, err := FromLeads([]models.Lead{
		lead("A", models.StageProspect, 0, 0),
		lead("B", models.StageProspect, 0, 0),
	})
	require.NoError(t, err)

	next, res, err := Move(b, models.StageProspect, 0, models.StageQualified, 0)
	require.NoError(t, err)

	prospect := next.List(models.StageProspect)
	qualified := next.List(models.StageQualified)
	require.Len(t, prospect, 1)
	require.Len(t, qualified, 1)
	assert.Equal(t, "B", prospect[0].ID)
	assert.Equal(t, "A", qualified[0].ID)
	assert.Equal(t, models.StageQualified, qualified[0].Stage)

	assert.True(t, res.Moved)
	assert.Equal(t, "A", res.LeadID)
	assert.Equal(t, models.StageProspect, res.From)
	assert.Equal(t, models.StageQualified, res.To)

	// input untouched
	assert.Equal(t, 2, b.Len(models.StageProspect))
	assert.Equal(t, 0, b.Len(models.StageQualified))
}

func TestMoveNoOpReturnsUnchangedBoard(t *testing.T) {
	b := testBoard(t)
	before := b.Clone()

	next, res, err := Move(b, models.StageProspect, 1, models.StageProspect, 1)
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Same(t, b, next)
	assert.Equal(t, before, next)
}

func TestMoveClampsDestinationIndex(t *testing.T) {
	b := testBoard(t)

	next, res, err := Move(b, models.StageProspect, 0, models.StageProposal, 99)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Index)

	ids := next.Positions(models.StageProposal)
	assert.Equal(t, []string{"C", "A"}, ids)
}

func TestMoveWithinStage(t *testing.T) {
	b := testBoard(t)

	next, _, err := Move(b, models.StageProspect, 0, models.StageProspect, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, next.Positions(models.StageProspect))

	next, _, err = Move(b, models.StageProspect, 1, models.StageProspect, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, next.Positions(models.StageProspect))
}

func TestMoveInvalidPreconditions(t *testing.T) {
	b := testBoard(t)

	cases := []struct {
		name     string
		src, dst models.Stage
		si, di   int
	}{
		{"unknown source", "nowhere", models.StageProspect, 0, 0},
		{"unknown destination", models.StageProspect, "nowhere", 0, 0},
		{"source index too large", models.StageProspect, models.StageQualified, 2, 0},
		{"negative source index", models.StageProspect, models.StageQualified, -1, 0},
		{"negative destination index", models.StageProspect, models.StageQualified, 0, -1},
		{"empty source column", models.StageQualified, models.StageProspect, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := b.Clone()
			_, _, err := Move(b, tc.src, tc.si, tc.dst, tc.di)

			var invalid *InvalidMoveError
			require.True(t, errors.As(err, &invalid), "expected InvalidMoveError, got %v", err)
			assert.Equal(t, before, b, "failed move must not mutate the board")
		})
	}
}

func TestMoveConservesLeads(t *testing.T) {
	var leads []models.Lead
	stages := models.AllStages()
	for i := 0; i < 30; i++ {
		leads = append(leads, lead(fmt.Sprintf("L%02d", i), stages[i%len(stages)], int64(i*100), i%101))
	}
	b, err := FromLeads(leads)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 500; step++ {
		src := stages[rng.Intn(len(stages))]
		if b.Len(src) == 0 {
			continue
		}
		dst := stages[rng.Intn(len(stages))]
		next, _, err := Move(b, src, rng.Intn(b.Len(src)), dst, rng.Intn(b.Len(dst)+2))
		require.NoError(t, err)

		assert.Equal(t, len(leads), next.Count())
		assertConsistent(t, next)
		b = next
	}
}

func TestAggregateRecomputedAfterMove(t *testing.T) {
	b := testBoard(t)

	agg := b.Aggregate(models.StageProspect)
	assert.Equal(t, 2, agg.Count)
	assert.Equal(t, int64(3000), agg.TotalValue)
	assert.InDelta(t, 15.0, agg.AverageProbability, 0.001)

	empty := b.Aggregate(models.StageClosedWon)
	assert.Equal(t, Aggregate{Stage: models.StageClosedWon}, empty)

	next, _, err := Move(b, models.StageProspect, 1, models.StageProposal, 0)
	require.NoError(t, err)

	agg = next.Aggregate(models.StageProposal)
	assert.Equal(t, 2, agg.Count)
	assert.Equal(t, int64(7000), agg.TotalValue)
	assert.InDelta(t, 40.0, agg.AverageProbability, 0.001)
	assert.Len(t, next.Aggregates(), len(models.AllStages()))
}

func TestReplaceEnforcesMembership(t *testing.T) {
	b := testBoard(t)

	edited := lead("B", models.StageProspect, 9999, 90)
	require.NoError(t, b.Replace(models.StageProspect, []models.Lead{edited, lead("A", models.StageProspect, 1000, 10)}))
	assert.Equal(t, []string{"B", "A"}, b.Positions(models.StageProspect))
	assert.Equal(t, int64(10999), b.Aggregate(models.StageProspect).TotalValue)

	assert.Error(t, b.Replace(models.StageProspect, []models.Lead{lead("X", models.StageQualified, 0, 0)}))
	assert.Error(t, b.Replace(models.StageProspect, []models.Lead{lead("C", models.StageProspect, 0, 0)}))
	assert.Error(t, b.Replace(models.StageProspect, []models.Lead{lead("A", models.StageProspect, 0, 0), lead("A", models.StageProspect, 0, 0)}))
	assert.Error(t, b.Replace("nowhere", nil))
}

func TestFromLeadsRejectsBadInput(t *testing.T) {
	_, err := FromLeads([]models.Lead{lead("A", "limbo", 0, 0)})
	assert.Error(t, err)

	_, err = FromLeads([]models.Lead{lead("A", models.StageProspect, 0, 0), lead("A", models.StageQualified, 0, 0)})
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	b := testBoard(t)

	stage, idx, ok := b.Find("C")
	assert.True(t, ok)
	assert.Equal(t, models.StageProposal, stage)
	assert.Equal(t, 0, idx)

	_, _, ok = b.Find("missing")
	assert.False(t, ok)
}
