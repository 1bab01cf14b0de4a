package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ports"
)

// EventKind is the closed set of outcomes reported to listeners
type EventKind string

const (
	EventExpired  EventKind = "expired"
	EventFailed   EventKind = "failed"
	EventProgress EventKind = "progress"
	EventReady    EventKind = "ready"
)

// Event is an outcome of background generation
type Event struct {
	Kind     EventKind
	Message  string
	Progress int
	State    domain.State
}

// Listener receives events. It is never called with the controller lock held.
type Listener func(Event)

// StageController drives one session through the stage pipeline. It is the
// only writer of session state: poll results reach it through callbacks that
// are dropped once the loop that produced them is no longer current.
type StageController struct {
	client ports.GenerationClient
	poller StatusPoller
	store  *SessionStore
	now    func() time.Time

	// actions serializes user operations so at most one request is in flight
	actions sync.Mutex

	mu         sync.Mutex
	session    *domain.Session
	state      domain.State
	progress   int
	message    string
	lastStatus domain.JobStatusValue
	pollGen    uint64
	listener   Listener

	lifetime context.Context
	stop     context.CancelFunc
}

// NewStageController creates a controller with no session
func NewStageController(client ports.GenerationClient, poller StatusPoller, store *SessionStore) *StageController {
	lifetime, stop := context.WithCancel(context.Background())
	return &StageController{
		client:   client,
		poller:   poller,
		store:    store,
		now:      func() time.Time { return time.Now().UTC().Round(0) },
		state:    domain.IdleState(),
		lifetime: lifetime,
		stop:     stop,
	}
}

// OnEvent registers the listener for background outcomes, replacing any previous one
func (c *StageController) OnEvent(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// State returns the current state
func (c *StageController) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the current session, or nil
func (c *StageController) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// Progress returns the progress of the current generation step and its label
func (c *StageController) Progress() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress, c.message
}

// Close stops any background polling. The persisted session is kept.
func (c *StageController) Close() {
	c.mu.Lock()
	c.poller.Cancel()
	c.pollGen++
	c.mu.Unlock()
	c.stop()
}

// Create starts a new job on the generation service and a session for it
func (c *StageController) Create(ctx context.Context, subject string, style domain.ArtStyle) (string, error) {
	c.actions.Lock()
	defer c.actions.Unlock()

	c.mu.Lock()
	if c.occupiedLocked() {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: a session is already in progress", domain.ErrInvalidSession)
	}
	c.mu.Unlock()

	jobID, err := c.client.StartJob(ctx, subject, style)
	if err != nil {
		return "", fmt.Errorf("failed to start job: %w", err)
	}
	logging.Logger.Info("Job started", "job_id", jobID, "subject", subject, "style", style)

	if err := c.start(ctx, jobID); err != nil {
		return "", err
	}
	return jobID, nil
}

// Start initializes a session for an existing job and begins polling for the intro
func (c *StageController) Start(ctx context.Context, jobID string) error {
	c.actions.Lock()
	defer c.actions.Unlock()
	return c.start(ctx, jobID)
}

func (c *StageController) start(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("%w: empty job id", domain.ErrInvalidSession)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.occupiedLocked() {
		return fmt.Errorf("%w: a session is already in progress", domain.ErrInvalidSession)
	}

	c.session = domain.NewSession(jobID)
	c.state = domain.AwaitingIntroGeneration()
	c.resetProgressLocked()
	c.persistLocked(ctx)
	c.pollStageLocked(0)

	logging.Logger.Info("Session started", "job_id", jobID)
	return nil
}

// Resume restores the persisted session and restarts whatever background
// work its state implies. Choices are never resubmitted.
func (c *StageController) Resume(ctx context.Context) (domain.State, error) {
	c.actions.Lock()
	defer c.actions.Unlock()

	c.mu.Lock()
	if c.occupiedLocked() {
		defer c.mu.Unlock()
		return c.state, c.transitionErrorLocked("resume", c.state.Stage)
	}

	session, state := c.store.Load(ctx)
	c.session = session
	c.state = state
	c.resetProgressLocked()
	if session == nil {
		c.mu.Unlock()
		return state, nil
	}

	logging.Logger.Info("Session resumed", "job_id", session.JobID, "state", state.String())

	switch state.Phase {
	case domain.PhaseAwaitingIntroGeneration, domain.PhaseChoiceSubmittedPolling:
		c.pollStageLocked(state.Stage)
	case domain.PhaseAwaitingFinalize:
		c.pollFinalizeLocked()
	case domain.PhaseAllStagesComplete:
		c.mu.Unlock()
		if err := c.finalize(ctx); err != nil {
			return c.State(), err
		}
		return c.State(), nil
	}

	state = c.state
	c.mu.Unlock()
	return state, nil
}

// LoadOptions returns the choice texts for the current stage. The sequence
// can be consumed once. When the service has no options, or cannot be
// reached, the built-in options for the stage are returned.
func (c *StageController) LoadOptions(ctx context.Context, stageIndex int) (iter.Seq[string], error) {
	c.actions.Lock()
	defer c.actions.Unlock()

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, domain.ErrNoSession
	}
	stage, err := domain.StageAt(stageIndex)
	if err != nil || !stage.HasChoices || c.state != domain.AwaitingChoice(stageIndex) {
		defer c.mu.Unlock()
		return nil, c.transitionErrorLocked("load_options", stageIndex)
	}
	jobID := c.session.JobID
	gen := c.pollGen
	c.mu.Unlock()

	texts, err := c.client.Options(ctx, jobID, stage.Number())
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.expire(ctx, gen)
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		logging.Logger.Warn("Failed to load options, using defaults", "job_id", jobID, "stage", stage.ID, "error", err)
		texts = nil
	}

	if len(texts) == 0 {
		texts = domain.DefaultOptionTexts(stage.ID)
	}
	return singleUse(texts), nil
}

// SubmitChoice records the choice for the stage awaiting one, sends it to the
// service and then polls for its generation. A nil error means the choice was
// recorded and polling started, not that the service accepted it.
func (c *StageController) SubmitChoice(ctx context.Context, stageIndex int, choiceID, text string) error {
	if choiceID == "" && text == "" {
		return domain.ErrEmptyChoice
	}
	if choiceID == "" {
		choiceID = domain.CustomChoiceID
	}

	c.actions.Lock()
	defer c.actions.Unlock()

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return domain.ErrNoSession
	}
	if c.state != domain.AwaitingChoice(stageIndex) {
		defer c.mu.Unlock()
		return c.transitionErrorLocked("submit_choice", stageIndex)
	}

	stage := domain.Stages[stageIndex]
	submittedAt := c.now()
	rec := c.session.EnsureRecord(stageIndex)
	rec.Choice = &domain.Choice{ID: choiceID, Text: text}
	rec.SubmittedAt = &submittedAt
	rec.JobStatusAtSubmit = c.lastStatus
	if rec.JobStatusAtSubmit == "" {
		rec.JobStatusAtSubmit = domain.StageCompleteStatus(stage.Index)
	}

	c.state = domain.ChoiceSubmittedPolling(stageIndex)
	c.resetProgressLocked()
	c.persistLocked(ctx)
	gen := c.pollGen
	jobID := c.session.JobID
	c.mu.Unlock()

	logging.Logger.Info("Choice submitted", "job_id", jobID, "stage", stage.ID, "choice_id", choiceID)

	// Polling starts only after the service has seen the choice. Until then
	// it still reports the previous outcome (an error, or a completion left
	// over from before a redo).
	err := c.client.SubmitChoice(ctx, jobID, stage.Number(), choiceID, text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrJobNotFound):
		c.expire(ctx, gen)
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	case errors.Is(err, domain.ErrRequestRejected):
		c.rollbackChoice(ctx, gen, stageIndex)
		return fmt.Errorf("choice for stage %s rejected: %w", stage.ID, err)
	default:
		// The poll loop observes whether generation starts anyway
		logging.Logger.Warn("Choice delivery failed, still polling", "job_id", jobID, "stage", stage.ID, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.pollGen && c.session != nil && c.state == domain.ChoiceSubmittedPolling(stageIndex) {
		c.pollStageLocked(stageIndex)
	}
	return nil
}

// RedoStage discards the record of stageIndex and every later stage and
// returns the session to that stage. The intro cannot be regenerated: redoing
// it keeps its record and discards the rest.
func (c *StageController) RedoStage(ctx context.Context, stageIndex int) error {
	c.actions.Lock()
	defer c.actions.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return domain.ErrNoSession
	}
	if stageIndex < 0 || stageIndex > c.session.CurrentStageIndex || c.state.IsExpired() {
		return c.transitionErrorLocked("redo", stageIndex)
	}

	c.cancelPollLocked()
	c.resetProgressLocked()

	if stageIndex == 0 {
		c.session.DiscardFrom(1)
		c.session.CurrentStageIndex = 0
		intro := c.session.EnsureRecord(0)
		if intro.Completed {
			c.state = domain.IntroReady()
		} else {
			c.state = domain.AwaitingIntroGeneration()
			c.pollStageLocked(0)
		}
	} else {
		// The record is recreated when the new choice is submitted
		c.session.DiscardFrom(stageIndex)
		c.session.CurrentStageIndex = stageIndex
		c.state = domain.AwaitingChoice(stageIndex)
	}
	c.persistLocked(ctx)

	logging.Logger.Info("Stage redo", "job_id", c.session.JobID, "stage", stageIndex, "state", c.state.String())
	return nil
}

// Advance moves from a ready stage to the next one. Advancing past the ending
// requests the final artifact.
func (c *StageController) Advance(ctx context.Context) error {
	c.actions.Lock()
	defer c.actions.Unlock()

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return domain.ErrNoSession
	}
	n := c.session.CurrentStageIndex
	ready := (n == 0 && c.state == domain.IntroReady()) || (n > 0 && c.state == domain.StageReady(n))
	if !ready {
		defer c.mu.Unlock()
		return c.transitionErrorLocked("advance", n)
	}

	if n < domain.LastStageIndex {
		c.session.CurrentStageIndex = n + 1
		c.session.EnsureRecord(n + 1)
		c.state = domain.AwaitingChoice(n + 1)
		c.resetProgressLocked()
		c.persistLocked(ctx)
		c.mu.Unlock()
		logging.Logger.Info("Advanced to next stage", "stage", domain.Stages[n+1].ID)
		return nil
	}

	c.state = domain.AllStagesComplete()
	c.persistLocked(ctx)
	c.mu.Unlock()
	logging.Logger.Info("All stages complete, finalizing")

	return c.finalize(ctx)
}

// Finalize requests the final artifact. It is only needed to retry after
// Advance could not reach the service.
func (c *StageController) Finalize(ctx context.Context) error {
	c.actions.Lock()
	defer c.actions.Unlock()
	return c.finalize(ctx)
}

func (c *StageController) finalize(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return domain.ErrNoSession
	}
	if c.state != domain.AllStagesComplete() {
		defer c.mu.Unlock()
		return c.transitionErrorLocked("finalize", c.session.CurrentStageIndex)
	}
	jobID := c.session.JobID
	gen := c.pollGen
	c.mu.Unlock()

	err := c.client.Finalize(ctx, jobID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrJobNotFound):
		c.expire(ctx, gen)
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	case errors.Is(err, domain.ErrRequestRejected):
		// Already finalizing or done: the poll settles it
		logging.Logger.Info("Finalize request rejected, polling for completion", "job_id", jobID, "error", err)
	default:
		return fmt.Errorf("failed to request finalize: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.JobID != jobID || c.state != domain.AllStagesComplete() {
		return nil
	}
	c.state = domain.AwaitingFinalize()
	c.resetProgressLocked()
	c.persistLocked(ctx)
	c.pollFinalizeLocked()
	return nil
}

// Reset abandons the session: polling stops and the persisted snapshot is removed
func (c *StageController) Reset(ctx context.Context) error {
	c.actions.Lock()
	defer c.actions.Unlock()

	c.mu.Lock()
	c.cancelPollLocked()
	c.session = nil
	c.state = domain.IdleState()
	c.lastStatus = ""
	c.resetProgressLocked()
	c.mu.Unlock()

	logging.Logger.Info("Session reset")
	return c.store.Clear(ctx)
}

func (c *StageController) pollStageLocked(stageIndex int) {
	stage := domain.Stages[stageIndex]
	c.pollGen++
	gen := c.pollGen

	c.poller.Poll(c.lifetime, c.session.JobID, stage.CompletionTargets(), PollHandlers{
		OnProgress: func(status domain.JobStatus) { c.handleProgress(gen, status) },
		OnComplete: func(status domain.JobStatus) { c.handleStageComplete(gen, stageIndex, status) },
		OnError:    func(message string) { c.handleError(gen, message) },
		OnExpired:  func() { c.expire(context.Background(), gen) },
	})
}

func (c *StageController) pollFinalizeLocked() {
	c.pollGen++
	gen := c.pollGen

	c.poller.Poll(c.lifetime, c.session.JobID, []domain.JobStatusValue{domain.JobComplete}, PollHandlers{
		OnProgress: func(status domain.JobStatus) { c.handleProgress(gen, status) },
		OnComplete: func(status domain.JobStatus) { c.handleFinalizeComplete(gen, status) },
		OnError:    func(message string) { c.handleError(gen, message) },
		OnExpired:  func() { c.expire(context.Background(), gen) },
	})
}

func (c *StageController) cancelPollLocked() {
	c.poller.Cancel()
	c.pollGen++
}

func (c *StageController) handleProgress(gen uint64, status domain.JobStatus) {
	c.mu.Lock()
	if gen != c.pollGen || c.session == nil || !c.state.IsPolling() {
		c.mu.Unlock()
		return
	}
	c.lastStatus = status.Status
	// Progress never moves backwards within one generation step
	c.progress = max(c.progress, status.ClampedProgress())
	if status.CurrentMessage != "" {
		c.message = status.CurrentMessage
	}
	ev := Event{Kind: EventProgress, Progress: c.progress, Message: c.message, State: c.state}
	l := c.listener
	c.mu.Unlock()

	emit(l, ev)
}

func (c *StageController) handleStageComplete(gen uint64, stageIndex int, status domain.JobStatus) {
	c.mu.Lock()
	if gen != c.pollGen || c.session == nil {
		c.mu.Unlock()
		return
	}
	expected := domain.ChoiceSubmittedPolling(stageIndex)
	if stageIndex == 0 {
		expected = domain.AwaitingIntroGeneration()
	}
	if c.state != expected {
		c.mu.Unlock()
		return
	}

	completedAt := c.now()
	rec := c.session.EnsureRecord(stageIndex)
	rec.Completed = true
	rec.CompletedAt = &completedAt
	rec.ArtifactURL = status.VideoURL
	rec.StoryText = status.StoryText

	c.lastStatus = status.Status
	c.progress = 100
	c.message = ""
	if stageIndex == 0 {
		c.state = domain.IntroReady()
	} else {
		c.state = domain.StageReady(stageIndex)
	}
	c.persistLocked(context.Background())

	logging.Logger.Info("Stage ready", "job_id", c.session.JobID, "stage", domain.Stages[stageIndex].ID, "video_url", status.VideoURL)
	ev := Event{Kind: EventReady, Progress: 100, State: c.state}
	l := c.listener
	c.mu.Unlock()

	emit(l, ev)
}

func (c *StageController) handleFinalizeComplete(gen uint64, status domain.JobStatus) {
	c.mu.Lock()
	if gen != c.pollGen || c.session == nil || c.state != domain.AwaitingFinalize() {
		c.mu.Unlock()
		return
	}

	c.session.FinalArtifact = status.FinalVideoURL
	if c.session.FinalArtifact == "" {
		c.session.FinalArtifact = status.VideoURL
	}
	c.lastStatus = status.Status
	c.progress = 100
	c.message = ""
	c.state = domain.FinalizeComplete()
	c.persistLocked(context.Background())

	logging.Logger.Info("Story finalized", "job_id", c.session.JobID, "final_artifact", c.session.FinalArtifact)
	ev := Event{Kind: EventReady, Progress: 100, State: c.state}
	l := c.listener
	c.mu.Unlock()

	emit(l, ev)
}

func (c *StageController) handleError(gen uint64, message string) {
	c.mu.Lock()
	if gen != c.pollGen || c.session == nil || !c.state.IsPolling() {
		c.mu.Unlock()
		return
	}
	c.lastStatus = domain.JobError
	c.state = domain.Failed(c.state.Stage, domain.FailureGeneration, message)
	c.persistLocked(context.Background())

	logging.Logger.Error("Generation failed", "job_id", c.session.JobID, "stage", c.state.Stage, "error", message)
	ev := Event{Kind: EventFailed, Message: message, Progress: c.progress, State: c.state}
	l := c.listener
	c.mu.Unlock()

	emit(l, ev)
}

// expire discards all local state once the service no longer knows the job.
// gen guards against expiring a session that has since been replaced.
func (c *StageController) expire(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if gen != c.pollGen || c.session == nil {
		c.mu.Unlock()
		return
	}
	jobID := c.session.JobID
	c.cancelPollLocked()
	c.session = nil
	c.state = domain.Failed(c.state.Stage, domain.FailureExpired, "job no longer exists on the generation service")
	c.lastStatus = ""
	c.resetProgressLocked()
	ev := Event{Kind: EventExpired, Message: c.state.Message, State: c.state}
	l := c.listener
	c.mu.Unlock()

	logging.Logger.Warn("Session expired", "job_id", jobID)
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		logging.Logger.Warn("Failed to clear expired session", "job_id", jobID, "error", err)
	}
	emit(l, ev)
}

func (c *StageController) rollbackChoice(ctx context.Context, gen uint64, stageIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.pollGen || c.session == nil || c.state != domain.ChoiceSubmittedPolling(stageIndex) {
		return
	}
	c.cancelPollLocked()
	if rec := c.session.Record(stageIndex); rec != nil {
		rec.Choice = nil
		rec.SubmittedAt = nil
		rec.JobStatusAtSubmit = ""
	}
	c.state = domain.AwaitingChoice(stageIndex)
	c.resetProgressLocked()
	c.persistLocked(ctx)
}

// occupiedLocked reports whether the controller holds a session or an
// expired one that has not been reset yet
func (c *StageController) occupiedLocked() bool {
	return c.session != nil || c.state.Phase != domain.PhaseIdle
}

func (c *StageController) resetProgressLocked() {
	c.progress = 0
	c.message = ""
}

// persistLocked writes the session through to the store. A failed write is
// logged: the in-memory state stays authoritative for this process.
func (c *StageController) persistLocked(ctx context.Context) {
	if c.session == nil {
		return
	}
	if err := c.store.Save(context.WithoutCancel(ctx), c.session, c.state); err != nil {
		logging.Logger.Warn("Failed to persist session", "job_id", c.session.JobID, "error", err)
	}
}

func (c *StageController) transitionErrorLocked(op string, stage int) error {
	return &domain.TransitionError{From: c.state, Op: op, Stage: stage}
}

func emit(l Listener, ev Event) {
	if l != nil {
		l(ev)
	}
}

// singleUse returns a sequence that yields items on its first iteration only
func singleUse(items []string) iter.Seq[string] {
	var used atomic.Bool
	return func(yield func(string) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}
