package cmd

import (
	"time"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/grovetools/exports/pkg/models"
)

// demoDescriptors is the record list served in --demo mode.
var demoDescriptors = []map[string]interface{}{
	{
		"id": "1001", "name": "Weekly household survey", "export_type": "form",
		"my_export": true, "is_auto_rebuild_enabled": true, "is_daily_saved": true,
		"emailed_export": map[string]interface{}{
			"group_id": "g-1001", "is_location_safe_for_user": true,
			"task_status": map[string]interface{}{"percent_complete": 40, "in_progress": true},
		},
	},
	{
		"id": "1002", "name": "Facility cases", "export_type": "case", "my_export": true,
		"emailed_export": map[string]interface{}{
			"group_id": "g-1002", "is_location_safe_for_user": true,
			"last_updated": "2 days ago", "size": "1.2 MB",
		},
	},
	{
		"id": "1003", "name": "Referral follow-ups", "export_type": "case",
		"emailed_export": map[string]interface{}{
			"group_id": "g-1003", "is_location_safe_for_user": true,
		},
	},
	{"id": "1004", "name": "Registration form", "export_type": "form", "show_link": true},
}

// newDemoClient returns an in-process server with slow, scripted progress.
// Record 1003 fails twice before recovering.
func newDemoClient() *exportapi.MemoryClient {
	c := exportapi.NewMemoryClient(demoDescriptors)
	c.RampStep = 20
	c.Latency = 150 * time.Millisecond
	c.Script("1003",
		exportapi.ProgressStep{Err: errors.New(errors.ErrCodeTransport, "demo: connection reset")},
		exportapi.ProgressStep{Err: errors.New(errors.ErrCodeTransport, "demo: connection reset")},
		exportapi.ProgressStep{Status: &models.TaskStatus{PercentComplete: 50, InProgress: true}},
		exportapi.ProgressStep{Status: &models.TaskStatus{PercentComplete: 100, Success: true}},
	)
	return c
}
