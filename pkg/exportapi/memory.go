package exportapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/pkg/models"
)

// Operation names used for MemoryClient accounting.
const (
	OpRegenerate = "regenerate"
	OpToggle     = "toggle"
	OpProgress   = "progress"
	OpList       = "list"
	OpBulk       = "bulk"
)

// ProgressStep is one scripted reply to a progress poll.
// A non-nil Err simulates a transport failure.
type ProgressStep struct {
	Status *models.TaskStatus
	Err    error
}

// MemoryClient implements Client in-process. Unscripted tasks advance by
// RampStep percent per poll until they succeed; unscripted toggles flip the
// value that was sent.
type MemoryClient struct {
	// RampStep is the percent added per poll for unscripted tasks.
	RampStep int
	// Latency delays every request, honouring context cancellation.
	Latency time.Duration
	// Hook runs while a request is counted as in flight.
	Hook func(ctx context.Context, op, exportID string)
	// ToggleFunc overrides the default toggle behaviour.
	ToggleFunc func(exportID string, current bool) (ToggleResponse, error)
	// RegenerateFunc overrides the default regeneration behaviour.
	RegenerateFunc func(exportID string) (RegenerateResponse, error)

	mu          sync.Mutex
	descriptors []map[string]interface{}
	scripts     map[string][]ProgressStep
	ramp        map[string]int
	calls       map[string]int
	inFlight    map[string]int
	maxInFlight map[string]int
	bulkForms   []url.Values
}

// NewMemoryClient creates a MemoryClient serving the given descriptors.
func NewMemoryClient(descriptors []map[string]interface{}) *MemoryClient {
	return &MemoryClient{
		RampStep:    25,
		descriptors: descriptors,
		scripts:     make(map[string][]ProgressStep),
		ramp:        make(map[string]int),
		calls:       make(map[string]int),
		inFlight:    make(map[string]int),
		maxInFlight: make(map[string]int),
	}
}

// Script queues progress replies for a record. The last step repeats once
// the queue runs dry.
func (c *MemoryClient) Script(exportID string, steps ...ProgressStep) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[exportID] = append(c.scripts[exportID], steps...)
}

// Calls returns how many requests of op were issued for a record.
func (c *MemoryClient) Calls(op, exportID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key(op, exportID)]
}

// MaxInFlight returns the highest number of simultaneous op requests seen for a record.
func (c *MemoryClient) MaxInFlight(op, exportID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight[key(op, exportID)]
}

// BulkForms returns the bulk-download forms received so far.
func (c *MemoryClient) BulkForms() []url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]url.Values(nil), c.bulkForms...)
}

// RequestRegeneration restarts the simulated task for a record.
func (c *MemoryClient) RequestRegeneration(ctx context.Context, exportID string) (RegenerateResponse, error) {
	if err := c.enter(ctx, OpRegenerate, exportID); err != nil {
		return RegenerateResponse{}, err
	}
	defer c.leave(OpRegenerate, exportID)

	if c.RegenerateFunc != nil {
		return c.RegenerateFunc(exportID)
	}
	c.mu.Lock()
	c.ramp[exportID] = 0
	c.mu.Unlock()
	return RegenerateResponse{Success: true}, nil
}

// ToggleAutoRebuild returns the inverse of the sent value unless ToggleFunc is set.
func (c *MemoryClient) ToggleAutoRebuild(ctx context.Context, exportID string, current bool) (ToggleResponse, error) {
	if err := c.enter(ctx, OpToggle, exportID); err != nil {
		return ToggleResponse{}, err
	}
	defer c.leave(OpToggle, exportID)

	if c.ToggleFunc != nil {
		return c.ToggleFunc(exportID, current)
	}
	return ToggleResponse{Success: true, IsAutoRebuildEnabled: !current}, nil
}

// TaskProgress replies from the record's script, or advances the simulated task.
func (c *MemoryClient) TaskProgress(ctx context.Context, exportID string) (ProgressResponse, error) {
	if err := c.enter(ctx, OpProgress, exportID); err != nil {
		return ProgressResponse{}, err
	}
	defer c.leave(OpProgress, exportID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if steps := c.scripts[exportID]; len(steps) > 0 {
		step := steps[0]
		if len(steps) > 1 {
			c.scripts[exportID] = steps[1:]
		}
		if step.Err != nil {
			return ProgressResponse{}, errors.Transport("task progress", step.Err)
		}
		return ProgressResponse{TaskStatus: step.Status.Clone()}, nil
	}

	pct := c.ramp[exportID] + c.RampStep
	if pct >= 100 {
		pct = 100
	}
	c.ramp[exportID] = pct
	return ProgressResponse{TaskStatus: &models.TaskStatus{
		PercentComplete: pct,
		InProgress:      pct < 100,
		Success:         pct >= 100,
	}}, nil
}

// ListExports returns a copy of the configured descriptors.
func (c *MemoryClient) ListExports(ctx context.Context) ([]map[string]interface{}, error) {
	if err := c.enter(ctx, OpList, ""); err != nil {
		return nil, err
	}
	defer c.leave(OpList, "")

	// Round-trip through JSON so callers can't reach into our copies.
	data, err := json.Marshal(c.descriptors)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to copy descriptors")
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to copy descriptors")
	}
	return out, nil
}

// BulkDownload records the form and reports the number of exports it named.
func (c *MemoryClient) BulkDownload(ctx context.Context, form url.Values) (BulkDownloadResult, error) {
	if err := c.enter(ctx, OpBulk, ""); err != nil {
		return BulkDownloadResult{}, err
	}
	defer c.leave(OpBulk, "")

	var selected []json.RawMessage
	if err := json.Unmarshal([]byte(form.Get(BulkFormField)), &selected); err != nil {
		return BulkDownloadResult{}, errors.New(errors.ErrCodeInvalidInput, "bulk form carries no export list")
	}

	c.mu.Lock()
	c.bulkForms = append(c.bulkForms, form)
	c.mu.Unlock()

	return BulkDownloadResult{
		Filename: "bulk_export.zip",
		Bytes:    int64(len(form.Get(BulkFormField))),
		Exports:  len(selected),
	}, nil
}

// Close is a no-op.
func (c *MemoryClient) Close() error {
	return nil
}

func (c *MemoryClient) enter(ctx context.Context, op, exportID string) error {
	k := key(op, exportID)
	c.mu.Lock()
	c.calls[k]++
	c.inFlight[k]++
	if c.inFlight[k] > c.maxInFlight[k] {
		c.maxInFlight[k] = c.inFlight[k]
	}
	c.mu.Unlock()

	if c.Hook != nil {
		c.Hook(ctx, op, exportID)
	}

	if c.Latency > 0 {
		t := time.NewTimer(c.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			c.leave(op, exportID)
			return errors.Transport(op, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		c.leave(op, exportID)
		return errors.Transport(op, err)
	}
	return nil
}

func (c *MemoryClient) leave(op, exportID string) {
	c.mu.Lock()
	c.inFlight[key(op, exportID)]--
	c.mu.Unlock()
}

func key(op, exportID string) string {
	return fmt.Sprintf("%s:%s", op, exportID)
}

// Ensure MemoryClient implements Client interface.
var _ Client = (*MemoryClient)(nil)
