// Package toggle serializes the per-record actions a user can trigger from the
// export list: flipping auto-rebuild and requesting regeneration.
package toggle

import (
	"context"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Starter begins a polling cycle for a record.
type Starter interface {
	Start(ctx context.Context, id string) error
}

// Controller issues auto-rebuild toggles and regeneration requests.
type Controller struct {
	store  *store.Store
	client exportapi.Client
	poller Starter
	logger *logrus.Entry

	regen singleflight.Group
}

// New creates a Controller.
func New(st *store.Store, client exportapi.Client, poller Starter, logger *logrus.Entry) *Controller {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		store:  st,
		client: client,
		poller: poller,
		logger: logger,
	}
}

// Toggle sends the record's current auto-rebuild flag and applies the value the
// server answers with. It fails fast with ErrCodeToggleInFlight while an earlier
// toggle for the same record is outstanding.
func (c *Controller) Toggle(ctx context.Context, id string) (bool, error) {
	began, err := c.store.BeginToggle(id)
	if err != nil {
		return false, err
	}
	if !began {
		return false, errors.ToggleInFlight(id)
	}
	defer func() {
		_ = c.store.SetToggleBusy(id, false)
	}()

	rec, err := c.store.Get(id)
	if err != nil {
		return false, err
	}
	current := rec.IsAutoRebuildEnabled
	logger := c.logger.WithField("export_id", id)

	resp, err := c.client.ToggleAutoRebuild(ctx, id, current)
	if err == nil && !resp.Success {
		err = errors.Rejected("auto-rebuild toggle", id)
	}
	if err != nil {
		logger.WithError(err).Warn("Auto-rebuild toggle failed")
		_ = c.store.SetLastError(id, err.Error())
		return current, err
	}

	if err := c.store.SetAutoRebuild(id, resp.IsAutoRebuildEnabled); err != nil {
		return current, err
	}
	_ = c.store.SetLastError(id, "")
	// The record may have been reloaded while the request was out.
	if fresh, err := c.store.Get(id); err == nil {
		c.store.CloseModal(store.ModalKey(store.ModalAutoRefresh, id, fresh.GroupID()))
	}
	logger.WithField("enabled", resp.IsAutoRebuildEnabled).Info("Auto-rebuild updated")
	return resp.IsAutoRebuildEnabled, nil
}

// RequestRegeneration asks the server to rebuild a record's emailed export and
// starts polling once it accepts. Concurrent calls for one record share a
// single request.
func (c *Controller) RequestRegeneration(ctx context.Context, id string) error {
	rec, err := c.store.Get(id)
	if err != nil {
		return err
	}
	if !rec.HasTask() {
		return errors.NoTask(id)
	}

	_, err, shared := c.regen.Do(id, func() (interface{}, error) {
		return nil, c.regenerate(ctx, id, rec.GroupID())
	})
	if shared {
		c.logger.WithField("export_id", id).Debug("Joined in-flight regeneration request")
	}
	return err
}

func (c *Controller) regenerate(ctx context.Context, id, groupID string) error {
	logger := c.logger.WithField("export_id", id)

	c.store.CloseModal(store.ModalKey(store.ModalRefreshConfirm, id, groupID))
	if err := c.store.SetUpdatingData(id, true); err != nil {
		return err
	}

	resp, err := c.client.RequestRegeneration(ctx, id)
	if err == nil && !resp.Success {
		err = errors.Rejected("regeneration", id)
	}
	if err != nil {
		logger.WithError(err).Warn("Regeneration request failed")
		_ = c.store.SetUpdatingData(id, false)
		_ = c.store.SetLastError(id, err.Error())
		return err
	}

	_ = c.store.SetLastError(id, "")
	logger.Info("Regeneration accepted, polling progress")
	// The cycle outlives the request that started it.
	return c.poller.Start(context.WithoutCancel(ctx), id)
}
