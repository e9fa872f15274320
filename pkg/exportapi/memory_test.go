package exportapi

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientRamp(t *testing.T) {
	c := NewMemoryClient(nil)
	c.RampStep = 50
	ctx := context.Background()

	resp, err := c.TaskProgress(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 50, resp.TaskStatus.PercentComplete)
	assert.False(t, resp.TaskStatus.Success)

	resp, err = c.TaskProgress(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, resp.TaskStatus.Success)
	assert.Equal(t, 2, c.Calls(OpProgress, "e1"))

	_, err = c.RequestRegeneration(ctx, "e1")
	require.NoError(t, err)
	resp, _ = c.TaskProgress(ctx, "e1")
	assert.Equal(t, 50, resp.TaskStatus.PercentComplete, "regeneration restarts the ramp")
}

func TestMemoryClientScript(t *testing.T) {
	c := NewMemoryClient(nil)
	c.Script("e1",
		ProgressStep{Err: fmt.Errorf("connection reset")},
		ProgressStep{Status: &models.TaskStatus{Success: true}},
	)
	ctx := context.Background()

	_, err := c.TaskProgress(ctx, "e1")
	assert.Equal(t, errors.ErrCodeTransport, errors.GetCode(err))

	for i := 0; i < 2; i++ {
		resp, err := c.TaskProgress(ctx, "e1")
		require.NoError(t, err)
		assert.True(t, resp.TaskStatus.Success, "last step repeats")
	}
}

func TestMemoryClientCancelledContext(t *testing.T) {
	c := NewMemoryClient(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ToggleAutoRebuild(ctx, "e1", false)
	assert.Equal(t, errors.ErrCodeTransport, errors.GetCode(err))
	assert.Equal(t, 1, c.MaxInFlight(OpToggle, "e1"))
}

func TestMemoryClientBulk(t *testing.T) {
	c := NewMemoryClient(nil)

	_, err := c.BulkDownload(context.Background(), url.Values{})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	res, err := c.BulkDownload(context.Background(), url.Values{BulkFormField: {`[{"id":"a"}]`}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Exports)
	assert.Len(t, c.BulkForms(), 1)
}

func TestMemoryClientListIsCopy(t *testing.T) {
	c := NewMemoryClient([]map[string]interface{}{{"id": "1", "name": "Forms"}})

	list, err := c.ListExports(context.Background())
	require.NoError(t, err)
	list[0]["name"] = "changed"

	again, _ := c.ListExports(context.Background())
	assert.Equal(t, "Forms", again[0]["name"])
}
