// Package exportapi provides a client interface for the export server endpoints
// the export list depends on. RemoteClient speaks HTTP; MemoryClient is an
// in-process stand-in used by tests and demo mode.
package exportapi

import (
	"context"
	"net/url"

	"github.com/grovetools/exports/pkg/models"
)

// Endpoint paths relative to the server base URL.
const (
	PathRegenerate   = "/exports/update_emailed_export_data"
	PathToggle       = "/exports/toggle_saved_export_enabled"
	PathProgress     = "/exports/get_saved_export_progress"
	PathList         = "/exports/list"
	PathBulkDownload = "/exports/bulk_download"
)

// BulkFormField is the form field carrying the serialized selection.
const BulkFormField = "export_list"

// Client defines the operations the export list performs against the server.
type Client interface {
	// RequestRegeneration asks the server to rebuild a record's emailed export.
	RequestRegeneration(ctx context.Context, exportID string) (RegenerateResponse, error)

	// ToggleAutoRebuild sends the current flag value; the server returns the new one.
	ToggleAutoRebuild(ctx context.Context, exportID string, current bool) (ToggleResponse, error)

	// TaskProgress fetches the generation progress of a record's task.
	TaskProgress(ctx context.Context, exportID string) (ProgressResponse, error)

	// ListExports fetches the raw record descriptors used at bootstrap.
	ListExports(ctx context.Context) ([]map[string]interface{}, error)

	// BulkDownload submits the bulk-download form.
	BulkDownload(ctx context.Context, form url.Values) (BulkDownloadResult, error)

	// Close cleans up any resources used by the client.
	Close() error
}

// RegenerateResponse is the reply to a regeneration request.
type RegenerateResponse struct {
	Success bool `json:"success"`
}

// ToggleResponse is the reply to an auto-rebuild toggle.
type ToggleResponse struct {
	Success              bool `json:"success"`
	IsAutoRebuildEnabled bool `json:"isAutoRebuildEnabled"`
}

// ProgressResponse is the reply to a progress poll. TaskStatus may be absent
// while the server has not registered the task yet.
type ProgressResponse struct {
	TaskStatus *models.TaskStatus `json:"taskStatus"`
}

// BulkDownloadResult describes the file produced by a bulk download.
type BulkDownloadResult struct {
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Exports  int    `json:"exports"`
}
