package domain

import (
	"sort"
	"time"
)

// StageType names one phase of ticket resolution.
type StageType string

const (
	StageAbnormalDescription  StageType = "abnormal_description"
	StageAbnormalAnalysis     StageType = "abnormal_analysis"
	StageRequiredParts        StageType = "required_parts"
	StageOnSiteSolution       StageType = "on_site_solution"
	StageSummary              StageType = "summary"
	StageCustomerConfirmation StageType = "customer_confirmation"
)

// StageTypes lists every stage type in display order.
var StageTypes = []StageType{
	StageAbnormalDescription,
	StageAbnormalAnalysis,
	StageRequiredParts,
	StageOnSiteSolution,
	StageSummary,
	StageCustomerConfirmation,
}

// Index returns the position of the stage type in the fixed order, or -1.
func (s StageType) Index() int {
	for i, candidate := range StageTypes {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the six stage types.
func (s StageType) Valid() bool {
	return s.Index() >= 0
}

// Previous returns the stage type preceding s and whether one exists.
func (s StageType) Previous() (StageType, bool) {
	idx := s.Index()
	if idx <= 0 {
		return "", false
	}
	return StageTypes[idx-1], true
}

// RequiresContent reports whether saving the stage needs non-empty content.
// A parts list may consist of attachments only.
func (s StageType) RequiresContent() bool {
	return s != StageRequiredParts
}

// MaxStageContentLength bounds free text stored on a stage, counted in characters.
const MaxStageContentLength = 10000

// StageStatus tracks completion of a single stage.
type StageStatus string

const (
	StageStatusNotStarted StageStatus = "not_started"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
)

// Attachment references a blob held by the file store.
type Attachment struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Stage is the persisted record for one stage type of a ticket.
type Stage struct {
	ID           string
	TicketID     string
	StageType    StageType
	Content      string
	Attachments  []Attachment
	ExpectedDate *time.Time
	Status       StageStatus
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Completed reports whether the stage has been marked completed.
func (s *Stage) Completed() bool {
	return s != nil && s.Status == StageStatusCompleted
}

// SortStages orders stages by the fixed enumeration, ignoring timestamps.
func SortStages(stages []Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].StageType.Index() < stages[j].StageType.Index()
	})
}
