// ABOUTME: Shared wiring for every subcommand
// ABOUTME: Opens the store, export vault, notifiers and bulk dispatcher from config
package cli

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pipeboard/bulk"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/notify"
	"github.com/harperreed/pipeboard/view"
)

// App holds the collaborators subcommands run against.
type App struct {
	Config     *config.Config
	Store      *db.Store
	Vault      *export.Vault
	Dispatcher *bulk.Dispatcher
	Notifier   notify.Notifier
	Logger     *log.Logger

	Out io.Writer
	In  io.Reader
	// Interactive reports whether In is a terminal that can answer prompts.
	Interactive bool

	closers []func() error
	writes  sync.Mutex
}

// NewApp opens everything cfg describes. The AMQP notifier is only dialled
// when a broker URL is configured; a failed dial degrades to log-only toasts.
func NewApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	store, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	var vault *export.Vault
	if cfg.Export.Dir == "" {
		vault, err = export.OpenMemoryVault()
	} else {
		vault, err = export.OpenVault(cfg.Export.Dir)
	}
	if err != nil {
		store.Close()
		return nil, err
	}

	app := NewAppWith(cfg, store, vault, logger)
	app.closers = append(app.closers, vault.Close, store.Close)

	if cfg.AMQP.URL != "" {
		broker, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn("toasts will only be logged", "error", err)
		} else {
			app.Notifier = notify.Multi{app.Notifier, broker}
			app.closers = append([]func() error{broker.Close}, app.closers...)
		}
	}

	app.Interactive = isTerminal(os.Stdin)
	return app, nil
}

// NewAppWith wires an App around an already-open store and vault. The caller
// keeps ownership of both.
func NewAppWith(cfg *config.Config, store *db.Store, vault *export.Vault, logger *log.Logger) *App {
	if logger == nil {
		logger = log.Default()
	}
	dispatcher := bulk.NewDispatcher(store, export.NewVaultExporter(vault), logger)
	dispatcher.Strict = cfg.Strict

	return &App{
		Config:     cfg,
		Store:      store,
		Vault:      vault,
		Dispatcher: dispatcher,
		Notifier:   notify.Log{Logger: logger},
		Logger:     logger,
		Out:        os.Stdout,
		In:         os.Stdin,
	}
}

// Deps are the shared collaborators handed to every view session.
func (a *App) Deps() view.Deps {
	return view.Deps{
		Dispatcher: a.Dispatcher,
		Notifier:   a.Notifier,
		Logger:     a.Logger,
		Writes:     &a.writes,
	}
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
