// ABOUTME: Imports deals from a legacy pagen CRM database into pipeboard leads
// ABOUTME: Provides dry-run and backup capabilities for safe migration.

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
)

func main() {
	legacyPath := flag.String("legacy", "", "Path to legacy pagen database file (required)")
	configPath := flag.String("config", "", "pipeboard config file")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup of the target before migration")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "migrate", ReportTimestamp: true})

	if *legacyPath == "" {
		logger.Fatal("-legacy flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	n, err := migrate(context.Background(), *legacyPath, cfg.Database, *dryRun, *backup, logger)
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}

	logger.Info("migration completed successfully", "leads", n, "dry_run", *dryRun)
}

// legacyStages maps pagen deal stages onto board stages.
var legacyStages = map[string]models.Stage{
	"prospecting":   models.StageProspect,
	"qualification": models.StageQualified,
	"proposal":      models.StageProposal,
	"negotiation":   models.StageNegotiation,
	"closed_won":    models.StageClosedWon,
	"closed_lost":   models.StageClosedLost,
}

type legacyDeal struct {
	ID             string
	Title          string
	Amount         int64
	Stage          string
	Company        string
	ContactEmail   string
	ContactPhone   string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func migrate(ctx context.Context, legacyPath string, target config.DatabaseConfig, dryRun, createBackup bool, logger *log.Logger) (int, error) {
	if _, err := os.Stat(legacyPath); os.IsNotExist(err) {
		return 0, fmt.Errorf("legacy database does not exist: %s", legacyPath)
	}

	legacy, err := sql.Open("sqlite3", "file:"+legacyPath+"?mode=ro")
	if err != nil {
		return 0, fmt.Errorf("failed to open legacy database: %w", err)
	}
	defer func() { _ = legacy.Close() }()

	deals, err := readDeals(ctx, legacy)
	if err != nil {
		return 0, err
	}
	logger.Info("found legacy deals", "count", len(deals))

	if dryRun {
		for _, d := range deals {
			stage, ok := legacyStages[d.Stage]
			if !ok {
				logger.Warn("[DRY RUN] would skip deal with unknown stage", "deal", d.Title, "stage", d.Stage)
				continue
			}
			logger.Info("[DRY RUN] would import", "deal", d.Title, "company", d.Company, "stage", stage)
		}
		return 0, nil
	}

	if createBackup && target.Driver == string(db.SQLite) {
		if err := backupFile(target.DSN, logger); err != nil {
			return 0, err
		}
	}

	store, err := db.Open(target.Driver, target.DSN)
	if err != nil {
		return 0, fmt.Errorf("failed to open target database: %w", err)
	}
	defer func() { _ = store.Close() }()

	return importDeals(ctx, legacy, store, deals, logger)
}

func readDeals(ctx context.Context, legacy *sql.DB) ([]legacyDeal, error) {
	rows, err := legacy.QueryContext(ctx, `
		SELECT d.id, d.title, COALESCE(d.amount, 0), d.stage, COALESCE(c.name, ''),
			COALESCE(p.email, ''), COALESCE(p.phone, ''), d.created_at, d.last_activity_at
		FROM deals d
		LEFT JOIN companies c ON c.id = d.company_id
		LEFT JOIN contacts p ON p.id = d.contact_id
		ORDER BY d.created_at, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy deals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deals []legacyDeal
	for rows.Next() {
		var d legacyDeal
		if err := rows.Scan(&d.ID, &d.Title, &d.Amount, &d.Stage, &d.Company,
			&d.ContactEmail, &d.ContactPhone, &d.CreatedAt, &d.LastActivityAt); err != nil {
			return nil, fmt.Errorf("failed to scan legacy deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func readNotes(ctx context.Context, legacy *sql.DB, dealID string) ([]models.Entry, error) {
	rows, err := legacy.QueryContext(ctx, `SELECT id, content, created_at FROM deal_notes WHERE deal_id = ? ORDER BY created_at`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []models.Entry
	for rows.Next() {
		e := models.Entry{Kind: models.EntryNote}
		if err := rows.Scan(&e.ID, &e.Body, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan legacy note: %w", err)
		}
		notes = append(notes, e)
	}
	return notes, rows.Err()
}

// importDeals creates one lead per deal, keeping the deal id. Deals already
// imported are skipped so the tool can be rerun.
func importDeals(ctx context.Context, legacy *sql.DB, store *db.Store, deals []legacyDeal, logger *log.Logger) (int, error) {
	imported := 0
	for _, d := range deals {
		stage, ok := legacyStages[d.Stage]
		if !ok {
			logger.Warn("skipping deal with unknown stage", "deal", d.Title, "stage", d.Stage)
			continue
		}

		if _, err := store.GetLead(ctx, d.ID); err == nil {
			logger.Debug("already imported", "deal", d.Title)
			continue
		} else if !errors.Is(err, db.ErrNotFound) {
			return imported, err
		}

		lead := models.NewLead(d.Title, stage)
		lead.ID = d.ID
		lead.Company = d.Company
		lead.Email = d.ContactEmail
		lead.Phone = d.ContactPhone
		lead.DealValue = d.Amount
		lead.CreatedAt = d.CreatedAt
		lead.LastActivity = "Imported from pagen"

		notes, err := readNotes(ctx, legacy, d.ID)
		if err != nil {
			return imported, err
		}
		for _, n := range notes {
			if err := lead.AppendEntry(n); err != nil {
				return imported, fmt.Errorf("failed to import note for %s: %w", d.Title, err)
			}
		}
		last := d.LastActivityAt
		if n := len(lead.Notes); n > 0 && lead.Notes[n-1].CreatedAt.After(last) {
			last = lead.Notes[n-1].CreatedAt
		}
		lead.LastActivityDate = last

		if err := store.CreateLead(ctx, lead); err != nil {
			return imported, fmt.Errorf("failed to import deal %s: %w", d.Title, err)
		}
		imported++
		logger.Info("imported", "deal", d.Title, "stage", stage, "notes", len(notes))
	}
	return imported, nil
}

func backupFile(path string, logger *log.Logger) error {
	input, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read target database: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, input, 0644); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	logger.Info("backup created", "path", backupPath)
	return nil
}
