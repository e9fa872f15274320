package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusPhase(t *testing.T) {
	tests := []struct {
		name   string
		status *TaskStatus
		want   TaskPhase
	}{
		{"nil status", nil, PhaseIdle},
		{"not started", &TaskStatus{}, PhaseIdle},
		{"running", &TaskStatus{InProgress: true}, PhasePolling},
		{"done", &TaskStatus{Success: true, JustFinished: true}, PhaseSucceeded},
		{"failed wins over in progress", &TaskStatus{InProgress: true, Failed: true}, PhaseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Phase())
		})
	}
}

func TestTaskStatusNormalize(t *testing.T) {
	s := &TaskStatus{PercentComplete: 140}
	s.Normalize()
	assert.Equal(t, 100, s.PercentComplete)

	s.PercentComplete = -3
	s.Normalize()
	assert.Equal(t, 0, s.PercentComplete)
}

func TestExportRecordCloneIsDeep(t *testing.T) {
	orig := ExportRecord{
		ID: "e1",
		EmailedExport: &TaskState{
			GroupID:    "g1",
			TaskStatus: &TaskStatus{PercentComplete: 10, InProgress: true},
		},
	}

	c := orig.Clone()
	c.EmailedExport.TaskStatus.PercentComplete = 90
	c.EmailedExport.GroupID = "other"

	assert.Equal(t, 10, orig.EmailedExport.TaskStatus.PercentComplete)
	assert.Equal(t, "g1", orig.GroupID())
}

func TestIsLocationSafeForUser(t *testing.T) {
	assert.True(t, ExportRecord{ID: "a"}.IsLocationSafeForUser())
	assert.False(t, ExportRecord{ID: "b", EmailedExport: &TaskState{}}.IsLocationSafeForUser())
	assert.True(t, ExportRecord{ID: "c", EmailedExport: &TaskState{IsLocationSafeForUser: true}}.IsLocationSafeForUser())
}

func TestExportRecordFieldOrder(t *testing.T) {
	data, err := json.Marshal(ExportRecord{ID: "e1", Name: "Forms", ExportType: ExportTypeForm})
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":"e1","name":"Forms","exportType":"form","myExport":false,"isAutoRebuildEnabled":false,`+
			`"isDailySaved":false,"isFeed":false,"showLink":false,"addedToBulk":false}`,
		string(data))
}
