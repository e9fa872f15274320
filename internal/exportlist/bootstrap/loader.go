package bootstrap

import (
	"context"

	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/grovetools/exports/pkg/models"
	"github.com/sirupsen/logrus"
)

// Poller is the part of the polling supervisor a load needs.
type Poller interface {
	Resume(ctx context.Context, id string) error
	StopAll()
}

// Loader replaces the store contents and picks up tasks that were already
// running when the list was rendered.
type Loader struct {
	store  *store.Store
	poller Poller
	logger *logrus.Entry
}

// NewLoader creates a Loader.
func NewLoader(st *store.Store, poller Poller, logger *logrus.Entry) *Loader {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loader{store: st, poller: poller, logger: logger}
}

// Apply replaces the store with records and resumes polling for every record
// whose task is in progress. Polling cycles of the previous record set are
// cancelled once the new set is accepted; a rejected set leaves both the
// records and their polling untouched.
func (l *Loader) Apply(ctx context.Context, records []models.ExportRecord) error {
	if err := l.store.Replace(records); err != nil {
		return err
	}
	l.poller.StopAll()

	resumed := 0
	for _, r := range l.store.List() {
		st := r.Status()
		if st == nil || !st.InProgress || st.Success {
			continue
		}
		if err := l.poller.Resume(ctx, r.ID); err != nil {
			l.logger.WithError(err).WithField("export_id", r.ID).Warn("Failed to resume polling")
			continue
		}
		resumed++
	}

	l.logger.WithFields(logrus.Fields{
		"records": len(records),
		"mine":    len(l.store.Mine()),
		"resumed": resumed,
	}).Info("Export list loaded")
	return nil
}

// Load decodes descriptors and applies them.
func (l *Loader) Load(ctx context.Context, descriptors []map[string]interface{}) error {
	records, err := Decode(descriptors, l.logger)
	if err != nil {
		return err
	}
	return l.Apply(ctx, records)
}

// LoadFile reads, decodes and applies a descriptor file.
func (l *Loader) LoadFile(ctx context.Context, path string) error {
	descriptors, err := ReadFile(path)
	if err != nil {
		return err
	}
	return l.Load(ctx, descriptors)
}

// Fetch loads the descriptors the server lists.
func (l *Loader) Fetch(ctx context.Context, client exportapi.Client) error {
	descriptors, err := client.ListExports(ctx)
	if err != nil {
		return err
	}
	return l.Load(ctx, descriptors)
}
