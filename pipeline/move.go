// ABOUTME: Drag reorder engine for the pipeline board
// ABOUTME: Moves one lead between or within stage columns, all-or-nothing
package pipeline

import (
	"fmt"

	"github.com/harperreed/pipeboard/models"
)

// InvalidMoveError reports a move whose preconditions do not hold.
type InvalidMoveError struct {
	Reason      string
	SourceStage models.Stage
	SourceIndex int
	DestStage   models.Stage
	DestIndex   int
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("invalid move %s[%d] -> %s[%d]: %s",
		e.SourceStage, e.SourceIndex, e.DestStage, e.DestIndex, e.Reason)
}

// MoveResult identifies what a move did so callers can report it.
type MoveResult struct {
	Moved  bool         `json:"moved"`
	LeadID string       `json:"lead_id,omitempty"`
	From   models.Stage `json:"from,omitempty"`
	To     models.Stage `json:"to,omitempty"`
	Index  int          `json:"index"`
}

// Move returns a new board with the lead at src[srcIndex] placed into dst at
// min(dstIndex, len(dst)). The input board is never modified. Moving a lead onto
// its own position returns the input board unchanged.
func Move(b *Board, src models.Stage, srcIndex int, dst models.Stage, dstIndex int) (*Board, MoveResult, error) {
	invalid := func(reason string) error {
		return &InvalidMoveError{
			Reason:      reason,
			SourceStage: src,
			SourceIndex: srcIndex,
			DestStage:   dst,
			DestIndex:   dstIndex,
		}
	}

	if b == nil {
		return nil, MoveResult{}, invalid("nil board")
	}
	if !b.Has(src) {
		return b, MoveResult{}, invalid("unknown source stage")
	}
	if !b.Has(dst) {
		return b, MoveResult{}, invalid("unknown destination stage")
	}
	if srcIndex < 0 || srcIndex >= b.Len(src) {
		return b, MoveResult{}, invalid("source index out of range")
	}
	if dstIndex < 0 {
		return b, MoveResult{}, invalid("negative destination index")
	}

	if src == dst && srcIndex == dstIndex {
		return b, MoveResult{LeadID: b.lists[src][srcIndex].ID, From: src, To: dst, Index: dstIndex}, nil
	}

	next := b.Clone()

	from := next.lists[src]
	lead := from[srcIndex]
	next.lists[src] = append(from[:srcIndex:srcIndex], from[srcIndex+1:]...)

	lead.Stage = dst
	to := next.lists[dst]
	at := min(dstIndex, len(to))
	inserted := make([]models.Lead, 0, len(to)+1)
	inserted = append(inserted, to[:at]...)
	inserted = append(inserted, lead)
	inserted = append(inserted, to[at:]...)
	next.lists[dst] = inserted

	return next, MoveResult{
		Moved:  true,
		LeadID: lead.ID,
		From:   src,
		To:     dst,
		Index:  at,
	}, nil
}
