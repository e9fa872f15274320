// Package bulk derives the bulk-download view from the per-record selection flags.
package bulk

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/grovetools/exports/pkg/models"
	"github.com/sirupsen/logrus"
)

// View is what a renderer needs to draw the bulk-download control.
type View struct {
	Visible bool   `json:"visible"`
	Count   int    `json:"count"`
	Payload string `json:"payload,omitempty"`
}

// Aggregator keeps View in step with the store. It observes the store
// synchronously, so the view is current as soon as a selection call returns.
type Aggregator struct {
	store  *store.Store
	logger *logrus.Entry

	mu          sync.Mutex
	view        View
	subscribers map[uuid.UUID]func(View)
	stop        func()
}

// New creates an Aggregator bound to st.
func New(st *store.Store, logger *logrus.Entry) *Aggregator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	a := &Aggregator{
		store:       st,
		logger:      logger,
		subscribers: make(map[uuid.UUID]func(View)),
	}
	a.recompute()
	a.stop = st.Observe(a.onUpdate)
	return a
}

// Close detaches the aggregator from the store.
func (a *Aggregator) Close() {
	a.stop()
}

// SelectAll adds every record to the selection.
func (a *Aggregator) SelectAll() {
	n := a.store.SetAllAddedToBulk(true)
	a.logger.WithField("changed", n).Debug("Selected all exports")
}

// SelectNone clears the selection.
func (a *Aggregator) SelectNone() {
	n := a.store.SetAllAddedToBulk(false)
	a.logger.WithField("changed", n).Debug("Cleared export selection")
}

// Set adds or removes one record.
func (a *Aggregator) Set(id string, selected bool) error {
	return a.store.SetAddedToBulk(id, selected)
}

// Flip inverts one record's selection and returns the new value.
func (a *Aggregator) Flip(id string) (bool, error) {
	r, err := a.store.Get(id)
	if err != nil {
		return false, err
	}
	return !r.AddedToBulk, a.store.SetAddedToBulk(id, !r.AddedToBulk)
}

// View returns the current view.
func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Visible reports whether at least one record is selected.
func (a *Aggregator) Visible() bool {
	return a.View().Visible
}

// Payload returns the serialized selection, or "" while nothing is selected.
func (a *Aggregator) Payload() string {
	return a.View().Payload
}

// Form returns the bulk-download form for the current selection.
func (a *Aggregator) Form() url.Values {
	form := url.Values{}
	form.Set(exportapi.BulkFormField, a.Payload())
	return form
}

// Download submits the current selection.
func (a *Aggregator) Download(ctx context.Context, client exportapi.Client) (exportapi.BulkDownloadResult, error) {
	if !a.Visible() {
		return exportapi.BulkDownloadResult{}, errors.New(errors.ErrCodeInvalidInput, "no exports selected for bulk download")
	}
	return client.BulkDownload(ctx, a.Form())
}

// Subscribe registers fn to receive every changed view. fn runs on the
// goroutine that mutated the store and must not mutate it.
func (a *Aggregator) Subscribe(fn func(View)) (unsubscribe func()) {
	id := uuid.New()
	a.mu.Lock()
	a.subscribers[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}

func (a *Aggregator) onUpdate(u store.Update) {
	switch u.Type {
	case store.UpdateReplaced, store.UpdateSelection:
		a.recompute()
	case store.UpdateTaskStatus, store.UpdateUpdatingData, store.UpdateAutoRebuild:
		// The payload carries full snapshots, so selected records stay fresh.
		if u.Entry != nil && u.Entry.AddedToBulk {
			a.recompute()
		}
	}
}

func (a *Aggregator) recompute() {
	selected := a.store.Selected()
	view := View{Visible: len(selected) > 0, Count: len(selected)}
	if view.Visible {
		view.Payload = encode(selected)
	}

	a.mu.Lock()
	if view == a.view {
		a.mu.Unlock()
		return
	}
	a.view = view
	subs := make([]func(View), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(view)
	}
}

func encode(records []models.ExportRecord) string {
	data, err := json.Marshal(records)
	if err != nil {
		return ""
	}
	return string(data)
}
