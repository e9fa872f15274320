// Package store provides the in-memory export record store for the export list.
package store

import (
	"fmt"

	"github.com/grovetools/exports/pkg/models"
)

// Entry is a record together with the control state a renderer needs.
type Entry struct {
	models.ExportRecord
	ToggleBusy bool   `json:"toggleBusy"`
	LastError  string `json:"lastError,omitempty"`
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateReplaced     UpdateType = "replaced"
	UpdateTaskStatus   UpdateType = "task_status"
	UpdateUpdatingData UpdateType = "updating_data"
	UpdateAutoRebuild  UpdateType = "auto_rebuild"
	UpdateSelection    UpdateType = "selection"
	UpdateToggleBusy   UpdateType = "toggle_busy"
	UpdateLastError    UpdateType = "last_error"
	UpdateModal        UpdateType = "modal"
)

// Update represents a change to the store.
type Update struct {
	Type       UpdateType `json:"type"`
	Generation uint64     `json:"generation"`
	RecordID   string     `json:"recordId,omitempty"`
	Entry      *Entry     `json:"entry,omitempty"`     // Snapshot after the change
	RecordIDs  []string   `json:"recordIds,omitempty"` // Batch changes carry ids, no snapshots
	Modal      string     `json:"modal,omitempty"`
	ModalOpen  bool       `json:"modalOpen,omitempty"`
}

// ModalKind names one of the per-record confirmation dialogs.
type ModalKind string

const (
	ModalRefreshConfirm ModalKind = "refresh-confirm"
	ModalAutoRefresh    ModalKind = "auto-refresh"
)

// ModalKey identifies a dialog instance for one record and task group.
func ModalKey(kind ModalKind, recordID, groupID string) string {
	return fmt.Sprintf("%s-%s-%s", kind, recordID, groupID)
}
