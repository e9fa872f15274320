package models

// ExportType tags the kind of data an export definition pulls from.
type ExportType string

const (
	ExportTypeForm ExportType = "form"
	ExportTypeCase ExportType = "case"
)

// TaskPhase is the polling phase derived from a TaskStatus snapshot.
type TaskPhase string

const (
	PhaseIdle      TaskPhase = "idle"
	PhasePolling   TaskPhase = "polling"
	PhaseSucceeded TaskPhase = "succeeded"
	PhaseFailed    TaskPhase = "failed"
)

// TaskStatus is a transient snapshot of a background generation task.
type TaskStatus struct {
	PercentComplete int  `json:"percentComplete"`
	InProgress      bool `json:"inProgress"`
	Success         bool `json:"success"`
	JustFinished    bool `json:"justFinished"`

	// Failed marks a cycle that stopped because the server could not be reached.
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// StartedStatus is the status a record gets when a new generation cycle begins.
func StartedStatus() *TaskStatus {
	return &TaskStatus{PercentComplete: 0, InProgress: true, Success: false}
}

// Phase derives the polling phase. A nil status is Idle.
func (s *TaskStatus) Phase() TaskPhase {
	switch {
	case s == nil:
		return PhaseIdle
	case s.Failed:
		return PhaseFailed
	case s.Success:
		return PhaseSucceeded
	case s.InProgress:
		return PhasePolling
	default:
		return PhaseIdle
	}
}

// Normalize clamps PercentComplete into 0..100.
func (s *TaskStatus) Normalize() {
	if s == nil {
		return
	}
	if s.PercentComplete < 0 {
		s.PercentComplete = 0
	}
	if s.PercentComplete > 100 {
		s.PercentComplete = 100
	}
}

// Clone returns a copy of the status, or nil.
func (s *TaskStatus) Clone() *TaskStatus {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// TaskState describes the emailed (scheduled) export attached to a record.
type TaskState struct {
	GroupID      string      `json:"groupId"`
	UpdatingData bool        `json:"updatingData"`
	TaskStatus   *TaskStatus `json:"taskStatus,omitempty"`

	// IsLocationSafeForUser is evaluated by the server at load and never changed here.
	IsLocationSafeForUser bool `json:"isLocationSafeForUser"`

	FileURL     string `json:"fileUrl,omitempty"`
	Size        string `json:"size,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

// Clone returns a deep copy of the task state, or nil.
func (t *TaskState) Clone() *TaskState {
	if t == nil {
		return nil
	}
	c := *t
	c.TaskStatus = t.TaskStatus.Clone()
	return &c
}

// ExportRecord is one export definition shown in the list.
// Field order is the serialization order of bulk payloads.
type ExportRecord struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	ExportType           ExportType `json:"exportType"`
	MyExport             bool       `json:"myExport"`
	IsAutoRebuildEnabled bool       `json:"isAutoRebuildEnabled"`
	IsDailySaved         bool       `json:"isDailySaved"`
	IsFeed               bool       `json:"isFeed"`
	ShowLink             bool       `json:"showLink"`
	AddedToBulk          bool       `json:"addedToBulk"`
	EmailedExport        *TaskState `json:"emailedExport,omitempty"`
}

// Clone returns a deep copy of the record.
func (r ExportRecord) Clone() ExportRecord {
	r.EmailedExport = r.EmailedExport.Clone()
	return r
}

// HasTask reports whether the record carries an emailed export.
func (r ExportRecord) HasTask() bool {
	return r.EmailedExport != nil
}

// Status returns the current task status, or nil.
func (r ExportRecord) Status() *TaskStatus {
	if r.EmailedExport == nil {
		return nil
	}
	return r.EmailedExport.TaskStatus
}

// GroupID returns the task group id, or "" when the record has no task.
func (r ExportRecord) GroupID() string {
	if r.EmailedExport == nil {
		return ""
	}
	return r.EmailedExport.GroupID
}

// IsLocationSafeForUser is true for records without a task, otherwise the server flag.
func (r ExportRecord) IsLocationSafeForUser() bool {
	return r.EmailedExport == nil || r.EmailedExport.IsLocationSafeForUser
}
