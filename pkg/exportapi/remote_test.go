package exportapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/exports/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RemoteClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewRemoteClient(RemoteOptions{BaseURL: srv.URL + "/", CSRFToken: "tok", Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestToggleSendsCurrentValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathToggle, r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-CSRFToken"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "e1", r.PostForm.Get("export_id"))
		assert.Equal(t, "true", r.PostForm.Get("is_auto_rebuild_enabled"))
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true, "isAutoRebuildEnabled": false})
	})

	resp, err := c.ToggleAutoRebuild(context.Background(), "e1", true)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.IsAutoRebuildEnabled)
}

func TestTaskProgressQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "e7", r.URL.Query().Get("export_instance_id"))
		_, _ = w.Write([]byte(`{"taskStatus":{"percentComplete":40,"inProgress":true,"success":false}}`))
	})

	resp, err := c.TaskProgress(context.Background(), "e7")
	require.NoError(t, err)
	require.NotNil(t, resp.TaskStatus)
	assert.Equal(t, 40, resp.TaskStatus.PercentComplete)
	assert.True(t, resp.TaskStatus.InProgress)
}

func TestTaskProgressWithoutStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := c.TaskProgress(context.Background(), "e7")
	require.NoError(t, err)
	assert.Nil(t, resp.TaskStatus)
}

func TestTaskProgressLooseTypes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantNil bool
		wantPct int
	}{
		{name: "float percentage", body: `{"taskStatus":{"percentComplete":42.5,"inProgress":true}}`, wantPct: 42},
		{name: "string percentage", body: `{"taskStatus":{"percentComplete":"75","success":"true"}}`, wantPct: 75},
		{name: "unreadable percentage", body: `{"taskStatus":{"percentComplete":"n/a","inProgress":true}}`, wantNil: true},
		{name: "status not an object", body: `{"taskStatus":"pending"}`, wantNil: true},
		{name: "null body", body: `null`, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := c.TaskProgress(context.Background(), "e7")
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, resp.TaskStatus)
				return
			}
			require.NotNil(t, resp.TaskStatus)
			assert.Equal(t, tt.wantPct, resp.TaskStatus.PercentComplete)
		})
	}
}

func TestTaskProgressNonObjectIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	})

	_, err := c.TaskProgress(context.Background(), "e7")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMalformedResponse, errors.GetCode(err))
}

func TestErrorMapping(t *testing.T) {
	t.Run("non-2xx is a transport error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})
		_, err := c.RequestRegeneration(context.Background(), "e1")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeTransport, errors.GetCode(err))
	})

	t.Run("bad json is malformed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		})
		_, err := c.RequestRegeneration(context.Background(), "e1")
		assert.Equal(t, errors.ErrCodeMalformedResponse, errors.GetCode(err))
	})

	t.Run("unreachable server", func(t *testing.T) {
		c, err := NewRemoteClient(RemoteOptions{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
		require.NoError(t, err)
		_, err = c.TaskProgress(context.Background(), "e1")
		assert.Equal(t, errors.ErrCodeTransport, errors.GetCode(err))
	})
}

func TestListExportsShapes(t *testing.T) {
	for name, body := range map[string]string{
		"bare array": `[{"id":"1"},{"id":"2"}]`,
		"wrapped":    `{"exports":[{"id":"1"},{"id":"2"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			list, err := c.ListExports(context.Background())
			require.NoError(t, err)
			assert.Len(t, list, 2)
		})
	}
}

func TestBulkDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get(BulkFormField), `"id":"1"`)
		w.Header().Set("Content-Disposition", `attachment; filename="bulk.zip"`)
		_, _ = w.Write([]byte("zipdata"))
	})

	form := url.Values{BulkFormField: {`[{"id":"1"},{"id":"2"}]`}}
	res, err := c.BulkDownload(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "bulk.zip", res.Filename)
	assert.Equal(t, int64(7), res.Bytes)
	assert.Equal(t, 2, res.Exports)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c, err := NewRemoteClient(RemoteOptions{BaseURL: srv.URL, RateLimit: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = c.RequestRegeneration(context.Background(), "e1")
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.RequestRegeneration(ctx, "e1")
	assert.Equal(t, errors.ErrCodeTransport, errors.GetCode(err))
}

func TestInvalidBaseURL(t *testing.T) {
	_, err := NewRemoteClient(RemoteOptions{BaseURL: ""})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}
