// ABOUTME: Export collaborator turning selected records into downloadable artifacts
// ABOUTME: Supports csv, json, xlsx (excelize) and pdf (gofpdf) with a shared column table
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/harperreed/pipeboard/models"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrNothingToExport   = errors.New("nothing to export")
	ErrMixedRecords      = errors.New("cannot export leads and customers together")
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, XLSX, PDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s (valid: csv, json, xlsx, pdf)", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case JSON:
		return "application/json"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Artifact is one rendered export.
type Artifact struct {
	Content     []byte    `json:"content"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Exporter renders records. The zero value is ready to use.
type Exporter struct {
	Now func() time.Time
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Export renders records in format. All records must be of one kind.
func (e *Exporter) Export(ctx context.Context, records []models.Record, format Format) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return Artifact{}, err
	}

	table, err := Columns(records)
	if err != nil {
		return Artifact{}, err
	}

	var content []byte
	switch format {
	case CSV:
		content, err = renderCSV(table)
	case JSON:
		content, err = json.MarshalIndent(records, "", "  ")
	case XLSX:
		content, err = renderXLSX(table)
	case PDF:
		content, err = renderPDF(table)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to render %s: %w", format, err)
	}

	now := e.now()
	return Artifact{
		Content:     content,
		Filename:    fmt.Sprintf("%s-%s.%s", table.Entity, now.Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		CreatedAt:   now,
	}, nil
}

// Table is the flattened, display-ready form of a record list.
type Table struct {
	Entity string
	Header []string
	Rows   [][]string
}

// Columns flattens records into rows with a fixed column order per kind.
func Columns(records []models.Record) (Table, error) {
	if len(records) == 0 {
		return Table{}, ErrNothingToExport
	}

	switch records[0].(type) {
	case models.Customer:
		t := Table{Entity: "customers", Header: customerHeader}
		for _, r := range records {
			c, ok := r.(models.Customer)
			if !ok {
				return Table{}, ErrMixedRecords
			}
			t.Rows = append(t.Rows, customerRow(c))
		}
		return t, nil
	case models.Lead:
		t := Table{Entity: "leads", Header: leadHeader}
		for _, r := range records {
			l, ok := r.(models.Lead)
			if !ok {
				return Table{}, ErrMixedRecords
			}
			t.Rows = append(t.Rows, leadRow(l))
		}
		return t, nil
	}
	return Table{}, fmt.Errorf("cannot export record of type %T", records[0])
}

var customerHeader = []string{"ID", "Company", "Contact", "Email", "Phone", "Industry", "Location", "Status", "Relationship", "Total Value", "Tags", "Last Interaction"}

func customerRow(c models.Customer) []string {
	last := ""
	if c.LastInteraction != nil {
		last = c.LastInteraction.Format(time.RFC3339)
	}
	return []string{
		c.ID, c.Company, c.ContactName, c.Email, c.Phone, c.Industry, c.Location,
		string(c.Status), fmt.Sprintf("%d", c.RelationshipScore), c.TotalValue,
		strings.Join(c.Tags, "; "), last,
	}
}

var leadHeader = []string{"ID", "Name", "Company", "Email", "Phone", "Location", "Stage", "Priority", "Score", "Deal Value", "Probability", "Tags", "Last Activity", "Last Activity Date"}

func leadRow(l models.Lead) []string {
	return []string{
		l.ID, l.Name, l.Company, l.Email, l.Phone, l.Location,
		l.Stage.Label(), string(l.Priority), fmt.Sprintf("%d", l.Score),
		FormatCents(l.DealValue), fmt.Sprintf("%d%%", l.Probability),
		strings.Join(l.Tags, "; "), l.LastActivity, l.LastActivityDate.Format(time.RFC3339),
	}
}

// FormatCents renders an amount in cents as dollars, e.g. 123456 -> "$1,234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range dollars {
		if i > 0 && (len(dollars)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

func renderCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	rows := append([][]string{t.Header}, t.Rows...)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetSheetName(sheet, t.Entity); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(t Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(strings.ToUpper(t.Entity[:1])+t.Entity[1:], false)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := (pageWidth - left - right) / float64(len(t.Header))

	pdf.SetFont("Helvetica", "B", 7)
	for _, h := range t.Header {
		pdf.CellFormat(width, 6, tr(h), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 7)
	for _, row := range t.Rows {
		for _, v := range row {
			pdf.CellFormat(width, 6, tr(truncate(v, 28)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
