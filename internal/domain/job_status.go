package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// JobStatusValue is the status string reported by the generation service
type JobStatusValue string

const (
	JobComplete   JobStatusValue = "complete"
	JobError      JobStatusValue = "error"
	JobFinalizing JobStatusValue = "finalizing"
	JobPending    JobStatusValue = "pending"
	JobStarted    JobStatusValue = "started"
)

// StageCompleteStatus returns the "stage{N}_complete" marker for a one-based stage number
func StageCompleteStatus(stageNo int) JobStatusValue {
	return JobStatusValue(fmt.Sprintf("stage%d_complete", stageNo))
}

// StageProcessingStatus returns the "stage{N}_processing" marker for a one-based stage number
func StageProcessingStatus(stageNo int) JobStatusValue {
	return JobStatusValue(fmt.Sprintf("stage%d_processing", stageNo))
}

// CompletedStage returns the one-based stage number carried by a
// "stage{N}_complete" status.
func (v JobStatusValue) CompletedStage() (int, bool) {
	s := string(v)
	if !strings.HasPrefix(s, "stage") || !strings.HasSuffix(s, "_complete") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "stage"), "_complete"))
	if err != nil || n < 1 || n > StageCount {
		return 0, false
	}
	return n, true
}

// IsError reports whether the job failed on the service side
func (v JobStatusValue) IsError() bool {
	return v == JobError
}

// JobStatus is one status snapshot fetched from the generation service.
// It has no lifecycle of its own: it is folded into the session and dropped.
type JobStatus struct {
	CurrentMessage string         `json:"current_message,omitempty"`
	CurrentStage   int            `json:"current_stage,omitempty"`
	Error          string         `json:"error,omitempty"`
	FinalVideoURL  string         `json:"final_video_url,omitempty"`
	Progress       int            `json:"progress"`
	Status         JobStatusValue `json:"status"`
	StoryText      string         `json:"story_text,omitempty"`
	VideoURL       string         `json:"video_url,omitempty"`
}

// ClampedProgress returns the progress bounded to 0..100
func (s JobStatus) ClampedProgress() int {
	switch {
	case s.Progress < 0:
		return 0
	case s.Progress > 100:
		return 100
	default:
		return s.Progress
	}
}

// ErrorMessage returns the service-provided error or a generic fallback
func (s JobStatus) ErrorMessage() string {
	if s.Error != "" {
		return s.Error
	}
	return "unknown generation error"
}
