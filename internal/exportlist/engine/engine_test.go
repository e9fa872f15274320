package engine

import (
	"context"
	"testing"
	"time"

	"github.com/grovetools/exports/internal/exportlist/poller"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/grovetools/exports/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() poller.Options {
	return poller.Options{Interval: time.Millisecond, BackoffInitial: time.Millisecond, BackoffMax: time.Millisecond}
}

func TestEngineEndToEnd(t *testing.T) {
	client := exportapi.NewMemoryClient([]map[string]interface{}{
		{"id": "1", "name": "Forms", "my_export": true, "is_auto_rebuild_enabled": true,
			"emailed_export": map[string]interface{}{"group_id": "g1"}},
		{"id": "2", "name": "Cases"},
	})
	e := New(client, fastOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	require.NoError(t, e.Fetch(ctx))
	require.Equal(t, 2, e.Store().Len())

	enabled, err := e.Toggles().Toggle(ctx, "1")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, e.Toggles().RequestRegeneration(ctx, "1"))
	e.Idle()
	r, _ := e.Store().Get("1")
	assert.Equal(t, models.PhaseSucceeded, r.Status().Phase())

	e.Bulk().SelectAll()
	assert.Equal(t, 2, e.Bulk().View().Count)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestRunStopsPolling(t *testing.T) {
	client := exportapi.NewMemoryClient(nil)
	client.Script("1", exportapi.ProgressStep{Status: &models.TaskStatus{PercentComplete: 5}})
	e := New(client, fastOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	require.NoError(t, e.Load(ctx, []map[string]interface{}{
		{"id": "1", "emailedExport": map[string]interface{}{
			"taskStatus": map[string]interface{}{"inProgress": true},
		}},
	}))
	require.Eventually(t, func() bool { return client.Calls(exportapi.OpProgress, "1") > 2 },
		time.Second, time.Millisecond)

	cancel()
	<-done
	assert.False(t, e.Poller().Active("1"))
}
