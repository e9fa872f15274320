// Package engine wires the export list components together.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/exports/internal/exportlist/bootstrap"
	"github.com/grovetools/exports/internal/exportlist/bulk"
	"github.com/grovetools/exports/internal/exportlist/poller"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/internal/exportlist/toggle"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/sirupsen/logrus"
)

// Engine owns the store and every component acting on it.
type Engine struct {
	store   *store.Store
	client  exportapi.Client
	poller  *poller.Supervisor
	toggles *toggle.Controller
	bulk    *bulk.Aggregator
	loader  *bootstrap.Loader
	logger  *logrus.Entry

	wg sync.WaitGroup
}

// New creates an Engine talking to client.
func New(client exportapi.Client, opts poller.Options, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	st := store.New()
	sup := poller.New(st, client, opts, logger.WithField("component", "poller"))
	return &Engine{
		store:   st,
		client:  client,
		poller:  sup,
		toggles: toggle.New(st, client, sup, logger.WithField("component", "toggle")),
		bulk:    bulk.New(st, logger.WithField("component", "bulk")),
		loader:  bootstrap.NewLoader(st, sup, logger.WithField("component", "bootstrap")),
		logger:  logger,
	}
}

// Store returns the record store.
func (e *Engine) Store() *store.Store { return e.store }

// Client returns the server client.
func (e *Engine) Client() exportapi.Client { return e.client }

// Poller returns the polling supervisor.
func (e *Engine) Poller() *poller.Supervisor { return e.poller }

// Toggles returns the toggle controller.
func (e *Engine) Toggles() *toggle.Controller { return e.toggles }

// Bulk returns the bulk selection aggregator.
func (e *Engine) Bulk() *bulk.Aggregator { return e.bulk }

// Load replaces the records with decoded descriptors.
func (e *Engine) Load(ctx context.Context, descriptors []map[string]interface{}) error {
	return e.loader.Load(ctx, descriptors)
}

// LoadFile replaces the records with the contents of a descriptor file.
func (e *Engine) LoadFile(ctx context.Context, path string) error {
	return e.loader.LoadFile(ctx, path)
}

// Fetch replaces the records with the server's export list.
func (e *Engine) Fetch(ctx context.Context) error {
	return e.loader.Fetch(ctx, e.client)
}

// Watch reloads path whenever it changes, until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, path string, debounce time.Duration) error {
	logger := e.logger.WithField("component", "watcher")
	w, err := bootstrap.NewWatcher(path, debounce, func(p string) {
		if err := e.loader.LoadFile(ctx, p); err != nil {
			logger.WithError(err).Error("Reload failed, keeping previous records")
		}
	}, logger)
	if err != nil {
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		w.Start(ctx)
	}()
	return nil
}

// Idle blocks until no polling cycle is running.
func (e *Engine) Idle() {
	e.poller.Wait()
}

// Run logs store activity and blocks until ctx is cancelled. On return every
// polling cycle has stopped and the client is closed.
func (e *Engine) Run(ctx context.Context) {
	updates := e.store.Subscribe()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				e.logger.WithFields(logrus.Fields{
					"type":      u.Type,
					"export_id": u.RecordID,
				}).Debug("Store updated")
			}
		}
	}()

	<-ctx.Done()
	e.logger.Info("Shutting down export engine")
	e.poller.StopAll()
	e.poller.Wait()
	e.wg.Wait()
	e.store.Unsubscribe(updates)
	e.bulk.Close()
	if err := e.client.Close(); err != nil {
		e.logger.WithError(err).Warn("Failed to close client")
	}
}
