// ABOUTME: Lead and lead entry database operations
// ABOUTME: Handles lead lifecycle, board column positions, and append-only entries
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/pipeboard/models"
)

// LeadQuery narrows ListLeads. Zero values mean "everything".
type LeadQuery struct {
	Stage models.Stage
	Limit int
}

const leadColumns = `id, name, company, email, phone, location, stage, priority, score, deal_value, probability, tags, last_activity, last_activity_date, created_at, updated_at`

func (s *Store) CreateLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	if lead.LastActivityDate.IsZero() {
		lead.LastActivityDate = now
	}
	if lead.Priority == "" {
		lead.Priority = models.PriorityMedium
	}
	if err := lead.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	tags, err := encodeTags(lead.Tags)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var pos int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(position) + 1, 0) FROM leads WHERE stage = ?`), lead.Stage).Scan(&pos); err != nil {
			return fmt.Errorf("failed to read column position: %w", err)
		}

		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO leads (`+leadColumns+`, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), lead.ID, lead.Name, lead.Company, lead.Email, lead.Phone, lead.Location, lead.Stage, lead.Priority,
			lead.Score, lead.DealValue, lead.Probability, tags, lead.LastActivity, lead.LastActivityDate,
			lead.CreatedAt, lead.UpdatedAt, pos)
		if err != nil {
			return fmt.Errorf("failed to insert lead: %w", err)
		}

		for _, list := range [][]models.Entry{lead.Activities, lead.Notes, lead.Attachments} {
			for _, e := range list {
				if err := s.insertEntry(ctx, tx, lead.ID, e); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EntityLeads, OpCreate, []string{lead.ID})
	return nil
}

func (s *Store) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+leadColumns+` FROM leads WHERE id = ?`), id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	entries, err := s.entriesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	attachEntries(&lead, entries[id])
	return &lead, nil
}

// ListLeads returns leads in board order: each stage's column top to bottom.
func (s *Store) ListLeads(ctx context.Context, query LeadQuery) ([]models.Lead, error) {
	sqlText := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	if query.Stage != "" {
		sqlText += ` WHERE stage = ?`
		args = append(args, query.Stage)
	}
	sqlText += ` ORDER BY position, created_at, id`
	if query.Limit > 0 {
		sqlText += ` LIMIT ?`
		args = append(args, query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(sqlText), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	var ids []string
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
		ids = append(ids, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries, err := s.entriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range leads {
		attachEntries(&leads[i], entries[leads[i].ID])
	}
	return leads, nil
}

// UpdateLead writes the lead's scalar fields. A stage change appends the lead
// to the bottom of its new column.
func (s *Store) UpdateLead(ctx context.Context, lead *models.Lead) error {
	if err := lead.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	tags, err := encodeTags(lead.Tags)
	if err != nil {
		return err
	}
	lead.UpdatedAt = time.Now().UTC()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var current models.Stage
		err := tx.QueryRowContext(ctx, s.q(`SELECT stage FROM leads WHERE id = ?`), lead.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lead %s: %w", lead.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read lead: %w", err)
		}

		if current != lead.Stage {
			var pos int
			if err := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(position) + 1, 0) FROM leads WHERE stage = ?`), lead.Stage).Scan(&pos); err != nil {
				return fmt.Errorf("failed to read column position: %w", err)
			}
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE leads SET position = ? WHERE id = ?`), pos, lead.ID); err != nil {
				return fmt.Errorf("failed to reposition lead: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE leads
			SET name = ?, company = ?, email = ?, phone = ?, location = ?, stage = ?, priority = ?, score = ?,
				deal_value = ?, probability = ?, tags = ?, last_activity = ?, last_activity_date = ?, updated_at = ?
			WHERE id = ?
		`), lead.Name, lead.Company, lead.Email, lead.Phone, lead.Location, lead.Stage, lead.Priority, lead.Score,
			lead.DealValue, lead.Probability, tags, lead.LastActivity, lead.LastActivityDate, lead.UpdatedAt, lead.ID)
		if err != nil {
			return fmt.Errorf("failed to update lead: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EntityLeads, OpUpdate, []string{lead.ID})
	return nil
}

// SaveBoardPositions persists the full order of the given columns in one
// transaction. Every id must exist.
func (s *Store) SaveBoardPositions(ctx context.Context, columns map[models.Stage][]string) error {
	now := time.Now().UTC()
	var moved []string

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stage := range models.AllStages() {
			ids, ok := columns[stage]
			if !ok {
				continue
			}
			for pos, id := range ids {
				res, err := tx.ExecContext(ctx, s.q(`UPDATE leads SET stage = ?, position = ?, updated_at = ? WHERE id = ?`), stage, pos, now, id)
				if err != nil {
					return fmt.Errorf("failed to save position of lead %s: %w", id, err)
				}
				if n, err := res.RowsAffected(); err == nil && n == 0 {
					return fmt.Errorf("lead %s: %w", id, ErrNotFound)
				}
				moved = append(moved, id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EntityLeads, OpMove, moved)
	return nil
}

// AddLeadEntry appends an activity, note or attachment and returns the updated lead.
func (s *Store) AddLeadEntry(ctx context.Context, leadID string, entry models.Entry) (*models.Lead, error) {
	lead, err := s.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if err := lead.AppendEntry(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	added := lastEntry(lead, entry.Kind)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertEntry(ctx, tx, lead.ID, added); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(`UPDATE leads SET last_activity = ?, last_activity_date = ?, updated_at = ? WHERE id = ?`),
			lead.LastActivity, lead.LastActivityDate, lead.UpdatedAt, lead.ID)
		if err != nil {
			return fmt.Errorf("failed to bump lead activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EntityLeads, OpUpdate, []string{lead.ID})
	return lead, nil
}

func (s *Store) DeleteLeads(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		in := placeholders(len(ids))
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM lead_entries WHERE lead_id IN (`+in+`)`), args...); err != nil {
			return fmt.Errorf("failed to delete lead entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM leads WHERE id IN (`+in+`)`), args...); err != nil {
			return fmt.Errorf("failed to delete leads: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EntityLeads, OpDelete, ids)
	return nil
}

func (s *Store) insertEntry(ctx context.Context, tx *sql.Tx, leadID string, e models.Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO lead_entries (id, lead_id, kind, type, body, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), e.ID, leadID, e.Kind, e.Type, e.Body, e.URL, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", e.Kind, err)
	}
	return nil
}

func (s *Store) entriesFor(ctx context.Context, leadIDs []string) (map[string][]models.Entry, error) {
	out := make(map[string][]models.Entry, len(leadIDs))
	if len(leadIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(leadIDs))
	for i, id := range leadIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, lead_id, kind, type, body, url, created_at
		FROM lead_entries
		WHERE lead_id IN (`+placeholders(len(leadIDs))+`)
		ORDER BY created_at, id
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lead entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Entry
		var leadID string
		if err := rows.Scan(&e.ID, &leadID, &e.Kind, &e.Type, &e.Body, &e.URL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead entry: %w", err)
		}
		out[leadID] = append(out[leadID], e)
	}
	return out, rows.Err()
}

func attachEntries(l *models.Lead, entries []models.Entry) {
	for _, e := range entries {
		switch e.Kind {
		case models.EntryActivity:
			l.Activities = append(l.Activities, e)
		case models.EntryNote:
			l.Notes = append(l.Notes, e)
		case models.EntryAttachment:
			l.Attachments = append(l.Attachments, e)
		}
	}
}

func lastEntry(l *models.Lead, kind models.EntryKind) models.Entry {
	var list []models.Entry
	switch kind {
	case models.EntryActivity:
		list = l.Activities
	case models.EntryNote:
		list = l.Notes
	case models.EntryAttachment:
		list = l.Attachments
	}
	return list[len(list)-1]
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (models.Lead, error) {
	var l models.Lead
	var tags string
	err := row.Scan(&l.ID, &l.Name, &l.Company, &l.Email, &l.Phone, &l.Location, &l.Stage, &l.Priority,
		&l.Score, &l.DealValue, &l.Probability, &tags, &l.LastActivity, &l.LastActivityDate, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	l.Tags, err = decodeTags(tags)
	return l, err
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}
