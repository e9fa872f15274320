package bootstrap

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/poller"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/grovetools/exports/pkg/models"
	"github.com/grovetools/exports/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoader(t *testing.T) (*store.Store, *exportapi.MemoryClient, *poller.Supervisor, *Loader) {
	t.Helper()
	st := store.New()
	client := exportapi.NewMemoryClient(nil)
	sup := poller.New(st, client, poller.Options{
		Interval:       time.Millisecond,
		BackoffInitial: time.Millisecond,
		BackoffMax:     time.Millisecond,
	}, nil)
	t.Cleanup(func() {
		sup.StopAll()
		sup.Wait()
	})
	return st, client, sup, NewLoader(st, sup, nil)
}

func TestInProgressRecordPolledAtLoad(t *testing.T) {
	_, client, _, l := newLoader(t)

	err := l.Load(context.Background(), []map[string]interface{}{
		{"id": "1", "emailedExport": map[string]interface{}{
			"taskStatus": map[string]interface{}{"inProgress": true, "success": false},
		}},
		{"id": "2", "emailedExport": map[string]interface{}{
			"taskStatus": map[string]interface{}{"inProgress": false, "success": true},
		}},
		{"id": "3"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return client.Calls(exportapi.OpProgress, "1") >= 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, client.Calls(exportapi.OpProgress, "2"))
	assert.Equal(t, 0, client.Calls(exportapi.OpProgress, "3"))
}

func TestLoadPartitions(t *testing.T) {
	st, _, _, l := newLoader(t)
	require.NoError(t, l.Load(context.Background(), []map[string]interface{}{
		{"id": "a", "my_export": true},
		{"id": "b"},
		{"id": "c", "myExport": "1"},
	}))

	var mine, others []string
	for _, r := range st.Mine() {
		mine = append(mine, r.ID)
	}
	for _, r := range st.Others() {
		others = append(others, r.ID)
	}
	assert.Equal(t, []string{"a", "c"}, mine)
	assert.Equal(t, []string{"b"}, others)
}

func TestReloadStopsOldCycles(t *testing.T) {
	st, client, sup, l := newLoader(t)
	client.RampStep = 1
	running := []map[string]interface{}{
		{"id": "1", "emailedExport": map[string]interface{}{
			"taskStatus": map[string]interface{}{"inProgress": true},
		}},
	}
	require.NoError(t, l.Load(context.Background(), running))
	require.Eventually(t, func() bool { return sup.Active("1") }, time.Second, time.Millisecond)

	require.NoError(t, l.Load(context.Background(), []map[string]interface{}{{"id": "1"}}))
	require.Eventually(t, func() bool { return !sup.Active("1") }, time.Second, time.Millisecond)

	r, _ := st.Get("1")
	assert.False(t, r.HasTask())
}

func TestRejectedRecordSetKeepsPolling(t *testing.T) {
	st, client, sup, l := newLoader(t)
	client.RampStep = 0 // never finishes
	require.NoError(t, l.Load(context.Background(), []map[string]interface{}{
		{"id": "1", "emailedExport": map[string]interface{}{
			"taskStatus": map[string]interface{}{"inProgress": true},
		}},
	}))
	require.Eventually(t, func() bool { return sup.Active("1") }, time.Second, time.Millisecond)

	err := l.Apply(context.Background(), []models.ExportRecord{{ID: "x"}, {ID: "x"}})
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateRecord))

	r, err := st.Get("1")
	require.NoError(t, err)
	assert.True(t, r.HasTask())
	assert.True(t, sup.Active("1"))
}

func TestFetchUsesClient(t *testing.T) {
	st := store.New()
	client := exportapi.NewMemoryClient([]map[string]interface{}{{"id": "x", "name": "From server"}})
	sup := poller.New(st, client, poller.DefaultOptions(), nil)
	l := NewLoader(st, sup, nil)

	require.NoError(t, l.Fetch(context.Background(), client))
	r, err := st.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "From server", r.Name)
}

func TestWatcherReloadsFile(t *testing.T) {
	st, _, _, l := newLoader(t)
	path := testutil.WriteDescriptorFile(t, t.TempDir(), []map[string]interface{}{
		testutil.Descriptor("1", "First", true, ""),
	})
	require.NoError(t, l.LoadFile(context.Background(), path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := NewWatcher(path, 10*time.Millisecond, func(p string) {
		assert.NoError(t, l.LoadFile(ctx, p))
	}, nil)
	require.NoError(t, err)
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "1"}, {"id": "2"}]`), 0o644))
	require.Eventually(t, func() bool { return st.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
}
