// ABOUTME: Tests for export rendering and the badger artifact vault
// ABOUTME: Checks every format, column order, handles, and failure cases
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/harperreed/pipeboard/models"
)

var stamp = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleCustomers() []models.Record {
	return []models.Record{
		models.Customer{ID: "1", Company: "Acme", Status: models.CustomerActive, RelationshipScore: 90, Tags: []string{"vip", "q1"}},
		models.Customer{ID: "2", Company: "Globex, Inc", Status: models.CustomerInactive},
	}
}

func testExporter() *Exporter {
	return &Exporter{Now: func() time.Time { return stamp }}
}

func TestExportCSV(t *testing.T) {
	a, err := testExporter().Export(context.Background(), sampleCustomers(), CSV)
	require.NoError(t, err)
	assert.Equal(t, "customers-20240301-120000.csv", a.Filename)
	assert.Equal(t, "text/csv", a.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(a.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, customerHeader, rows[0])
	assert.Equal(t, "Globex, Inc", rows[2][1])
	assert.Equal(t, "vip; q1", rows[1][10])
}

func TestExportJSON(t *testing.T) {
	a, err := testExporter().Export(context.Background(), sampleCustomers(), JSON)
	require.NoError(t, err)

	var decoded []models.Customer
	require.NoError(t, json.Unmarshal(a.Content, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Acme", decoded[0].Company)
}

func TestExportXLSX(t *testing.T) {
	a, err := testExporter().Export(context.Background(), sampleCustomers(), XLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(a.Content))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("customers", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Acme", v)
}

func TestExportPDF(t *testing.T) {
	leads := []models.Record{
		models.Lead{ID: "L1", Name: "Zoë", Stage: models.StageProposal, Priority: models.PriorityHigh, DealValue: 123456, Probability: 60},
	}
	a, err := testExporter().Export(context.Background(), leads, PDF)
	require.NoError(t, err)
	assert.Equal(t, "leads-20240301-120000.pdf", a.Filename)
	assert.True(t, bytes.HasPrefix(a.Content, []byte("%PDF-")))
}

func TestExportRejects(t *testing.T) {
	e := testExporter()

	_, err := e.Export(context.Background(), sampleCustomers(), "docx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = e.Export(context.Background(), nil, CSV)
	assert.True(t, errors.Is(err, ErrNothingToExport))

	mixed := append(sampleCustomers(), models.Lead{ID: "L"})
	_, err = e.Export(context.Background(), mixed, CSV)
	assert.True(t, errors.Is(err, ErrMixedRecords))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, sampleCustomers(), CSV)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLeadColumns(t *testing.T) {
	table, err := Columns([]models.Record{models.Lead{ID: "L1", Name: "A", Stage: models.StageClosedWon, DealValue: 500000, Probability: 100}})
	require.NoError(t, err)
	assert.Equal(t, "leads", table.Entity)
	row := table.Rows[0]
	assert.Equal(t, "Closed Won", row[6])
	assert.Equal(t, "$5,000.00", row[9])
	assert.Equal(t, "100%", row[10])
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "$1,234.56", FormatCents(123456))
	assert.Equal(t, "$1,000,000.00", FormatCents(100000000))
	assert.Equal(t, "-$12.00", FormatCents(-1200))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	_, err = ParseFormat("txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestVaultRoundTrip(t *testing.T) {
	v, err := OpenVault(t.TempDir())
	require.NoError(t, err)
	defer v.Close()

	ve := &VaultExporter{Exporter: testExporter(), Vault: v}
	first, err := ve.ExportRecords(context.Background(), sampleCustomers(), "csv")
	require.NoError(t, err)
	second, err := ve.ExportRecords(context.Background(), sampleCustomers(), "json")
	require.NoError(t, err)

	a, err := v.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "customers-20240301-120000.csv", a.Filename)
	assert.NotEmpty(t, a.Content)

	handles, err := v.List()
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, handles)

	require.NoError(t, v.Delete(first))
	_, err = v.Get(first)
	assert.True(t, errors.Is(err, ErrArtifactNotFound))

	_, err = ve.ExportRecords(context.Background(), sampleCustomers(), "rtf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestMemoryVault(t *testing.T) {
	v, err := OpenMemoryVault()
	require.NoError(t, err)
	defer v.Close()

	h, err := v.Put(Artifact{Filename: "x.csv", Content: []byte("a,b\n")})
	require.NoError(t, err)
	got, err := v.Get(h)
	require.NoError(t, err)
	assert.Equal(t, []byte("a,b\n"), got.Content)
}
