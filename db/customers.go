// ABOUTME: Customer database operations
// ABOUTME: Handles customer CRUD, batch updates for bulk actions, and contact touches
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/pipeboard/models"
)

// CustomerQuery narrows ListCustomers. Filtering beyond status is done by the
// projector on the full list.
type CustomerQuery struct {
	Status models.CustomerStatus
	Limit  int
}

const customerColumns = `id, company, contact_name, email, phone, industry, location, status, relationship_score, total_value, tags, last_interaction, created_at, updated_at`

func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.CustomerProspect
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	tags, err := encodeTags(c.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO customers (`+customerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), c.ID, c.Company, c.ContactName, c.Email, c.Phone, c.Industry, c.Location, c.Status,
		c.RelationshipScore, c.TotalValue, tags, nullTime(c.LastInteraction), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	s.publish(ctx, EntityCustomers, OpCreate, []string{c.ID})
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+customerColumns+` FROM customers WHERE id = ?`), id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// ListCustomers returns customers in creation order, the directory's natural order.
func (s *Store) ListCustomers(ctx context.Context, query CustomerQuery) ([]models.Customer, error) {
	sqlText := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if query.Status != "" {
		sqlText += ` WHERE status = ?`
		args = append(args, query.Status)
	}
	sqlText += ` ORDER BY created_at, id`
	if query.Limit > 0 {
		sqlText += ` LIMIT ?`
		args = append(args, query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(sqlText), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	return s.UpdateCustomers(ctx, []models.Customer{*c})
}

// UpdateCustomers writes every customer in one transaction: either all rows
// change or none do.
func (s *Store) UpdateCustomers(ctx context.Context, customers []models.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(customers))

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range customers {
			c := &customers[i]
			if err := c.Validate(); err != nil {
				return fmt.Errorf("%w: customer %s: %v", ErrInvalid, c.ID, err)
			}
			tags, err := encodeTags(c.Tags)
			if err != nil {
				return err
			}
			if c.UpdatedAt.IsZero() {
				c.UpdatedAt = time.Now().UTC()
			}

			res, err := tx.ExecContext(ctx, s.q(`
				UPDATE customers
				SET company = ?, contact_name = ?, email = ?, phone = ?, industry = ?, location = ?, status = ?,
					relationship_score = ?, total_value = ?, tags = ?, last_interaction = ?, updated_at = ?
				WHERE id = ?
			`), c.Company, c.ContactName, c.Email, c.Phone, c.Industry, c.Location, c.Status,
				c.RelationshipScore, c.TotalValue, tags, nullTime(c.LastInteraction), c.UpdatedAt, c.ID)
			if err != nil {
				return fmt.Errorf("failed to update customer %s: %w", c.ID, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("customer %s: %w", c.ID, ErrNotFound)
			}
			ids = append(ids, c.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EntityCustomers, OpUpdate, ids)
	return nil
}

// TouchCustomer records an explicit contact action at the given time.
func (s *Store) TouchCustomer(ctx context.Context, id string, at time.Time) (*models.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Touch(at.UTC())
	if err := s.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) DeleteCustomers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM customers WHERE id IN (`+placeholders(len(ids))+`)`), args...); err != nil {
		return fmt.Errorf("failed to delete customers: %w", err)
	}

	s.publish(ctx, EntityCustomers, OpDelete, ids)
	return nil
}

func scanCustomer(row rowScanner) (models.Customer, error) {
	var c models.Customer
	var tags string
	var last sql.NullTime
	err := row.Scan(&c.ID, &c.Company, &c.ContactName, &c.Email, &c.Phone, &c.Industry, &c.Location, &c.Status,
		&c.RelationshipScore, &c.TotalValue, &tags, &last, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	if last.Valid {
		t := last.Time
		c.LastInteraction = &t
	}
	c.Tags, err = decodeTags(tags)
	return c, err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
