// ABOUTME: Entity-agnostic record operations over leads and customers
// ABOUTME: List, create, patch-by-fields and delete used by the HTTP and MCP surfaces
package db

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harperreed/pipeboard/models"
)

// ParseEntity accepts "leads"/"lead" and "customers"/"customer".
func ParseEntity(s string) (Entity, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case "lead":
		return EntityLeads, nil
	case "customer":
		return EntityCustomers, nil
	}
	return "", fmt.Errorf("%w: unknown entity %s (valid: leads, customers)", ErrInvalid, s)
}

func (s *Store) ListRecords(ctx context.Context, entity Entity) ([]models.Record, error) {
	var out []models.Record
	switch entity {
	case EntityLeads:
		leads, err := s.ListLeads(ctx, LeadQuery{})
		if err != nil {
			return nil, err
		}
		for _, l := range leads {
			out = append(out, l)
		}
	case EntityCustomers:
		customers, err := s.ListCustomers(ctx, CustomerQuery{})
		if err != nil {
			return nil, err
		}
		for _, c := range customers {
			out = append(out, c)
		}
	default:
		return nil, fmt.Errorf("unknown entity: %s", entity)
	}
	return out, nil
}

// CreateRecord builds a new record of entity from fields and stores it.
func (s *Store) CreateRecord(ctx context.Context, entity Entity, fields map[string]any) (models.Record, error) {
	switch entity {
	case EntityLeads:
		name, _ := fields["name"].(string)
		stage, _ := fields["stage"].(string)
		lead := models.NewLead(name, models.Stage(stage))
		rest := without(fields, "stage")
		if err := ApplyLeadFields(lead, rest); err != nil {
			return nil, err
		}
		if err := s.CreateLead(ctx, lead); err != nil {
			return nil, err
		}
		return *lead, nil
	case EntityCustomers:
		company, _ := fields["company"].(string)
		c := models.NewCustomer(company)
		if err := ApplyCustomerFields(c, fields); err != nil {
			return nil, err
		}
		if err := s.CreateCustomer(ctx, c); err != nil {
			return nil, err
		}
		return *c, nil
	}
	return nil, fmt.Errorf("unknown entity: %s", entity)
}

// UpdateRecord applies fields to the stored record and writes it back.
func (s *Store) UpdateRecord(ctx context.Context, entity Entity, id string, fields map[string]any) (models.Record, error) {
	switch entity {
	case EntityLeads:
		lead, err := s.GetLead(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, ok := fields["stage"]; ok {
			return nil, fmt.Errorf("%w: stage cannot be patched; move the lead on the board instead", ErrInvalid)
		}
		if err := ApplyLeadFields(lead, fields); err != nil {
			return nil, err
		}
		if err := s.UpdateLead(ctx, lead); err != nil {
			return nil, err
		}
		return *lead, nil
	case EntityCustomers:
		c, err := s.GetCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := ApplyCustomerFields(c, fields); err != nil {
			return nil, err
		}
		c.UpdatedAt = time.Now().UTC()
		if err := s.UpdateCustomer(ctx, c); err != nil {
			return nil, err
		}
		return *c, nil
	}
	return nil, fmt.Errorf("unknown entity: %s", entity)
}

func (s *Store) DeleteRecords(ctx context.Context, entity Entity, ids []string) error {
	switch entity {
	case EntityLeads:
		return s.DeleteLeads(ctx, ids)
	case EntityCustomers:
		return s.DeleteCustomers(ctx, ids)
	}
	return fmt.Errorf("unknown entity: %s", entity)
}

// ApplyLeadFields sets the named lead fields from a decoded JSON object.
func ApplyLeadFields(l *models.Lead, fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "name":
			l.Name, err = asString(k, v)
		case "company":
			l.Company, err = asString(k, v)
		case "email":
			l.Email, err = asString(k, v)
		case "phone":
			l.Phone, err = asString(k, v)
		case "location":
			l.Location, err = asString(k, v)
		case "stage":
			var st string
			st, err = asString(k, v)
			l.Stage = models.Stage(st)
		case "priority":
			var p string
			p, err = asString(k, v)
			l.Priority = models.Priority(p)
		case "score":
			l.Score, err = asInt(k, v)
		case "deal_value":
			var n int
			n, err = asInt(k, v)
			l.DealValue = int64(n)
		case "probability":
			l.Probability, err = asInt(k, v)
		case "tags":
			l.Tags, err = asStrings(k, v)
		default:
			err = fmt.Errorf("unknown lead field: %s", k)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ApplyCustomerFields sets the named customer fields from a decoded JSON object.
func ApplyCustomerFields(c *models.Customer, fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "company":
			c.Company, err = asString(k, v)
		case "contact_name":
			c.ContactName, err = asString(k, v)
		case "email":
			c.Email, err = asString(k, v)
		case "phone":
			c.Phone, err = asString(k, v)
		case "industry":
			c.Industry, err = asString(k, v)
		case "location":
			c.Location, err = asString(k, v)
		case "status":
			var st string
			st, err = asString(k, v)
			c.Status = models.CustomerStatus(st)
		case "relationship_score":
			c.RelationshipScore, err = asInt(k, v)
		case "total_value":
			c.TotalValue, err = asString(k, v)
		case "tags":
			c.Tags, err = asStrings(k, v)
		default:
			err = fmt.Errorf("unknown customer field: %s", k)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func without(fields map[string]any, key string) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s must be a string", field)
	}
	return s, nil
}

func asInt(field string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("field %s must be a whole number", field)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("field %s must be a number", field)
}

func asStrings(field string, v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %s must be a list of strings", field)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("field %s must be a list of strings", field)
}
