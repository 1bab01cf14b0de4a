package devserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/itory/itory/internal/domain"
)

// FailMarker in a subject or choice text makes the simulated generation fail
const FailMarker = "#fail"

type jobStep string

const (
	stepProcessing jobStep = "processing"
	stepComplete   jobStep = "complete"
	stepFinalizing jobStep = "finalizing"
	stepDone       jobStep = "done"
)

// job is one simulated generation. Progress is derived from elapsed time
// whenever the job is read, so the simulator needs no background workers.
type job struct {
	choices   map[int]string
	failing   bool
	id        string
	lastSeen  time.Time
	stage     int
	startedAt time.Time
	step      jobStep
	style     domain.ArtStyle
	title     string
}

func newJob(id, title string, style domain.ArtStyle, now time.Time) *job {
	return &job{
		choices:   make(map[int]string),
		failing:   strings.Contains(title, FailMarker),
		id:        id,
		lastSeen:  now,
		stage:     1,
		startedAt: now,
		step:      stepProcessing,
		style:     style,
		title:     title,
	}
}

func (j *job) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(j.lastSeen) > ttl
}

// settle moves the job forward to where elapsed time says it should be
func (j *job) settle(now time.Time, cfg Config) {
	elapsed := now.Sub(j.startedAt)
	switch j.step {
	case stepProcessing:
		if elapsed >= cfg.StageDuration && !j.failing {
			j.step = stepComplete
		}
	case stepFinalizing:
		if elapsed >= cfg.FinalizeDuration {
			j.step = stepDone
		}
	}
}

// beginStage starts generating a stage after a choice
func (j *job) beginStage(stageNo int, text string, now time.Time) {
	j.choices[stageNo] = text
	j.stage = stageNo
	j.step = stepProcessing
	j.startedAt = now
	j.failing = strings.Contains(text, FailMarker)
}

func (j *job) beginFinalize(now time.Time) {
	j.step = stepFinalizing
	j.startedAt = now
}

func (j *job) status(now time.Time, cfg Config) domain.JobStatus {
	elapsed := now.Sub(j.startedAt)
	st := domain.JobStatus{CurrentStage: j.stage}

	switch j.step {
	case stepProcessing:
		if j.failing && elapsed >= cfg.StageDuration {
			st.Status = domain.JobError
			st.Error = fmt.Sprintf("stage %d generation failed", j.stage)
			st.CurrentMessage = "error: " + st.Error
			st.Progress = stepProgress(elapsed, cfg.StageDuration)
			return st
		}
		st.Status = domain.StageProcessingStatus(j.stage)
		if j.stage == 1 && elapsed == 0 {
			st.Status = domain.JobStarted
		}
		st.Progress = stepProgress(elapsed, cfg.StageDuration)
		st.CurrentMessage = fmt.Sprintf("Generating stage %d...", j.stage)
	case stepComplete:
		st.Status = domain.StageCompleteStatus(j.stage)
		st.Progress = 100
		st.VideoURL = fmt.Sprintf("/stages/%s_stage%d.mp4", j.id, j.stage)
		st.StoryText = j.storyText(j.stage)
		st.CurrentMessage = fmt.Sprintf("Stage %d complete!", j.stage)
	case stepFinalizing:
		st.Status = domain.JobFinalizing
		st.Progress = stepProgress(elapsed, cfg.FinalizeDuration)
		st.CurrentMessage = "Merging all five stages..."
	case stepDone:
		st.Status = domain.JobComplete
		st.Progress = 100
		st.VideoURL = fmt.Sprintf("/stages/%s_stage%d.mp4", j.id, domain.StageCount)
		st.FinalVideoURL = fmt.Sprintf("/final/%s.mp4", j.id)
		st.CurrentMessage = "Full video complete!"
	}
	return st
}

func (j *job) storyText(stageNo int) string {
	stage, err := domain.StageAt(stageNo - 1)
	if err != nil {
		return ""
	}
	if choice, ok := j.choices[stageNo]; ok {
		return fmt.Sprintf("%s of %q: %s.", stage.Name, j.title, choice)
	}
	return fmt.Sprintf("%s of %q, drawn in %s style.", stage.Name, j.title, j.style)
}

// options proposes choices for the stage about to be generated
func (j *job) options(stageNo int) []string {
	stage, err := domain.StageAt(stageNo - 1)
	if err != nil || !stage.HasChoices {
		return nil
	}
	return []string{
		domain.DefaultOptionTexts(stage.ID)[0],
		fmt.Sprintf("Something only %q could explain", j.title),
	}
}

// busy reports whether a stage is being generated and has not failed
func (j *job) busy(now time.Time, cfg Config) bool {
	if j.step != stepProcessing {
		return false
	}
	return !j.failing || now.Sub(j.startedAt) < cfg.StageDuration
}

// stepProgress maps elapsed time to 0..99; 100 is reserved for completion
func stepProgress(elapsed, total time.Duration) int {
	if total <= 0 {
		return 99
	}
	p := int(elapsed * 100 / total)
	return min(max(p, 0), 99)
}
