package services

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itory/itory/internal/domain"
)

func TestStageController_StartPollsIntroUntilReady(t *testing.T) {
	h := newHarness(t)
	h.script.Set(
		progressStep(domain.JobStarted, 0),
		progressStep(domain.StageProcessingStatus(1), 40),
		completeStep(1),
	)

	require.NoError(t, h.controller.Start(context.Background(), testJobID))
	assert.Equal(t, domain.AwaitingIntroGeneration(), h.controller.State())

	h.waitState(t, domain.IntroReady())

	session := h.controller.Session()
	intro := session.Record(0)
	require.NotNil(t, intro)
	assert.True(t, intro.Completed)
	assert.Equal(t, "http://svc/stages/stage1.mp4", intro.ArtifactURL)
	assert.Equal(t, "story 1", intro.StoryText)
	assert.Equal(t, testNow, *intro.CompletedAt)
	assert.Equal(t, 1, h.events.count(EventReady))

	persisted, state := h.store.Load(context.Background())
	require.NotNil(t, persisted)
	assert.Equal(t, domain.IntroReady(), state)
}

func TestStageController_StartTwiceIsInvalid(t *testing.T) {
	h := newHarness(t)
	h.script.Set(progressStep(domain.JobStarted, 0))

	require.NoError(t, h.controller.Start(context.Background(), testJobID))
	err := h.controller.Start(context.Background(), "job-2")

	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	assert.Equal(t, testJobID, h.controller.Session().JobID)
}

func TestStageController_CreateStartsJob(t *testing.T) {
	h := newHarness(t)
	h.script.Set(progressStep(domain.JobStarted, 0))
	h.client.EXPECT().StartJob(mock.Anything, "Peter Pan", domain.ArtStylePixar).Return(testJobID, nil)

	jobID, err := h.controller.Create(context.Background(), "Peter Pan", domain.ArtStylePixar)

	require.NoError(t, err)
	assert.Equal(t, testJobID, jobID)
	assert.Equal(t, domain.AwaitingIntroGeneration(), h.controller.State())
}

func TestStageController_CreateFailureLeavesIdle(t *testing.T) {
	h := newHarness(t)
	h.client.EXPECT().StartJob(mock.Anything, "Peter Pan", domain.ArtStylePixar).Return("", errors.New("connection refused"))

	_, err := h.controller.Create(context.Background(), "Peter Pan", domain.ArtStylePixar)

	assert.ErrorContains(t, err, "failed to start job")
	assert.Equal(t, domain.IdleState(), h.controller.State())
	assert.Nil(t, h.controller.Session())
}

func TestStageController_SubmitProgressThenReadyExactlyOnce(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 1)

	h.script.Set(
		progressStep(domain.JobPending, 10),
		progressStep(domain.JobPending, 55),
		completeStep(2),
	)
	before := len(h.events.all())
	require.NoError(t, h.controller.SubmitChoice(context.Background(), 1, "A", "They discovered something mysterious"))

	h.waitState(t, domain.StageReady(1))
	time.Sleep(5 * testPollInterval)

	events := h.events.all()[before:]
	var kinds []EventKind
	var progress []int
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventProgress {
			progress = append(progress, ev.Progress)
			assert.Equal(t, domain.ChoiceSubmittedPolling(1), ev.State)
		}
	}
	assert.Equal(t, []EventKind{EventProgress, EventProgress, EventReady}, kinds)
	assert.Equal(t, []int{10, 55}, progress)
	assert.Equal(t, domain.StageReady(1), events[len(events)-1].State)
	assert.Equal(t, domain.StageReady(1), h.controller.State(), "must not re-enter polling")

	rec := h.controller.Session().Record(1)
	require.NotNil(t, rec)
	assert.True(t, rec.Completed)
	assert.Equal(t, &domain.Choice{ID: "A", Text: "They discovered something mysterious"}, rec.Choice)
	assert.Equal(t, domain.StageCompleteStatus(1), rec.JobStatusAtSubmit)
}

func TestStageController_ProgressNeverMovesBackwards(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 1)

	h.script.Set(
		progressStep(domain.JobPending, 60),
		progressStep(domain.JobPending, 30),
		progressStep(domain.JobPending, 70),
		completeStep(2),
	)
	before := len(h.events.all())
	require.NoError(t, h.controller.SubmitChoice(context.Background(), 1, "A", "x"))
	h.waitState(t, domain.StageReady(1))

	var progress []int
	for _, ev := range h.events.all()[before:] {
		if ev.Kind == EventProgress {
			progress = append(progress, ev.Progress)
		}
	}
	assert.Equal(t, []int{60, 60, 70}, progress)
}

func TestStageController_SubmitOutsideAwaitingChoiceIsInvalid(t *testing.T) {
	h := newHarness(t)
	h.script.Set(completeStep(1))
	require.NoError(t, h.controller.Start(context.Background(), testJobID))
	h.waitState(t, domain.IntroReady())

	cases := []struct {
		name  string
		stage int
	}{
		{name: "intro has no choice", stage: 0},
		{name: "current stage not yet advanced to", stage: 1},
		{name: "future stage", stage: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stateBefore := h.controller.State()
			sessionBefore := h.controller.Session()

			err := h.controller.SubmitChoice(context.Background(), tc.stage, "A", "x")

			require.ErrorIs(t, err, domain.ErrInvalidTransition)
			var te *domain.TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, "submit_choice", te.Op)
			assert.Equal(t, stateBefore, h.controller.State())
			assert.Equal(t, sessionBefore, h.controller.Session())
		})
	}

	// A second submission for the same stage is rejected as well
	require.NoError(t, h.controller.Advance(context.Background()))
	h.script.Set(progressStep(domain.JobPending, 10))
	h.acceptChoices()
	require.NoError(t, h.controller.SubmitChoice(context.Background(), 1, "A", "x"))
	err := h.controller.SubmitChoice(context.Background(), 1, "B", "y")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "A", h.controller.Session().Record(1).Choice.ID)
}

func TestStageController_SubmitRequiresChoice(t *testing.T) {
	h := newHarness(t)

	err := h.controller.SubmitChoice(context.Background(), 1, "", "")

	assert.ErrorIs(t, err, domain.ErrEmptyChoice)
}

func TestStageController_CustomChoiceID(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 1)
	h.script.Set(progressStep(domain.JobPending, 10))

	require.NoError(t, h.controller.SubmitChoice(context.Background(), 1, "", "A dragon moved in next door"))

	rec := h.controller.Session().Record(1)
	assert.True(t, rec.Choice.IsCustom())
	assert.Equal(t, "A dragon moved in next door", rec.Choice.Text)
}

func TestStageController_NotFoundExpiresAtAnyPollingPoint(t *testing.T) {
	setups := []struct {
		name  string
		drive func(t *testing.T, h *harness)
	}{
		{
			name: "intro generation",
			drive: func(t *testing.T, h *harness) {
				h.script.Set(progressStep(domain.JobStarted, 5), errorStep(domain.ErrJobNotFound))
				require.NoError(t, h.controller.Start(context.Background(), testJobID))
			},
		},
		{
			name: "stage generation",
			drive: func(t *testing.T, h *harness) {
				h.driveToChoice(t, 2)
				h.script.Set(progressStep(domain.JobPending, 30), errorStep(domain.ErrJobNotFound))
				require.NoError(t, h.controller.SubmitChoice(context.Background(), 2, "B", "x"))
			},
		},
		{
			name: "finalize",
			drive: func(t *testing.T, h *harness) {
				h.driveToChoice(t, domain.LastStageIndex)
				h.completeStage(t, domain.LastStageIndex)
				h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(nil)
				h.script.Set(progressStep(domain.JobFinalizing, 10), errorStep(domain.ErrJobNotFound))
				require.NoError(t, h.controller.Advance(context.Background()))
			},
		},
	}

	for _, tc := range setups {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			tc.drive(t, h)

			require.Eventually(t, func() bool {
				return h.controller.State().IsExpired()
			}, waitFor, tick)

			assert.Nil(t, h.controller.Session())
			assert.False(t, h.snapshots.has(h.store.Key()), "snapshot must be cleared")
			assert.Equal(t, 1, h.events.count(EventExpired))
			assert.False(t, h.poller.Active())

			// Expired is absorbing until reset
			assert.ErrorIs(t, h.controller.Start(context.Background(), "job-2"), domain.ErrInvalidSession)
			require.NoError(t, h.controller.Reset(context.Background()))
			assert.Equal(t, domain.IdleState(), h.controller.State())
		})
	}
}

func TestStageController_EmptyOptionsFallBackToDefaults(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 2)
	h.client.EXPECT().Options(mock.Anything, testJobID, 3).Return([]string{}, nil)

	seq, err := h.controller.LoadOptions(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"A villain appeared", "A difficult situation arose"}, slices.Collect(seq))
	assert.Empty(t, slices.Collect(seq), "options can be consumed once")
}

func TestStageController_OptionsFromService(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 1)
	h.client.EXPECT().Options(mock.Anything, testJobID, 2).Return([]string{"x", "y", "z"}, nil)

	seq, err := h.controller.LoadOptions(context.Background(), 1)
	require.NoError(t, err)

	var got []string
	for opt := range seq {
		got = append(got, opt)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestStageController_OptionsTransientErrorFallsBack(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 4)
	h.client.EXPECT().Options(mock.Anything, testJobID, 5).Return(nil, errors.New("api error: status=500"))

	seq, err := h.controller.LoadOptions(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultOptionTexts(domain.StageEnding), slices.Collect(seq))
}

func TestStageController_OptionsNotFoundExpires(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 1)
	h.client.EXPECT().Options(mock.Anything, testJobID, 2).Return(nil, domain.ErrJobNotFound)

	_, err := h.controller.LoadOptions(context.Background(), 1)

	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.True(t, h.controller.State().IsExpired())
	assert.False(t, h.snapshots.has(h.store.Key()))
}

func TestStageController_OptionsOnlyForCurrentChoiceStage(t *testing.T) {
	h := newHarness(t)

	_, err := h.controller.LoadOptions(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	h.driveToChoice(t, 2)
	for _, stage := range []int{0, 1, 3, 5, -1} {
		_, err := h.controller.LoadOptions(context.Background(), stage)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "stage %d", stage)
	}

	// Once the choice is in, the stage has no options to offer
	h.script.Set(progressStep(domain.StageProcessingStatus(3), 10))
	require.NoError(t, h.controller.SubmitChoice(context.Background(), 2, "A", "villain"))
	_, err = h.controller.LoadOptions(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "while generating")

	h.script.Set(completeStep(3))
	h.waitState(t, domain.StageReady(2))
	_, err = h.controller.LoadOptions(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "once ready")
}

func TestStageController_RedoDiscardsLaterRecords(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 4)
	h.script.Set(progressStep(domain.JobPending, 10))
	require.NoError(t, h.controller.SubmitChoice(context.Background(), 4, "A", "happy"))

	session := h.controller.Session()
	for _, id := range []domain.StageID{domain.StageCrisis, domain.StageClimax, domain.StageEnding} {
		require.Contains(t, session.StageRecords, id)
	}

	require.NoError(t, h.controller.RedoStage(context.Background(), 2))

	assert.Equal(t, domain.AwaitingChoice(2), h.controller.State())
	session = h.controller.Session()
	assert.Equal(t, 2, session.CurrentStageIndex)
	assert.NotContains(t, session.StageRecords, domain.StageCrisis)
	assert.NotContains(t, session.StageRecords, domain.StageClimax)
	assert.NotContains(t, session.StageRecords, domain.StageEnding)
	assert.Contains(t, session.StageRecords, domain.StageDevelopment)
	assert.False(t, h.poller.Active(), "redo cancels the running poll")

	_, state := h.store.Load(context.Background())
	assert.Equal(t, domain.AwaitingChoice(2), state)
}

func TestStageController_RedoIntroKeepsIntro(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 2)

	require.NoError(t, h.controller.RedoStage(context.Background(), 0))

	assert.Equal(t, domain.IntroReady(), h.controller.State())
	session := h.controller.Session()
	assert.Equal(t, 0, session.CurrentStageIndex)
	assert.Equal(t, []domain.StageID{domain.StageIntro}, session.OrderedRecords())
	assert.True(t, session.Record(0).Completed)
}

func TestStageController_RedoBeyondCurrentStageIsInvalid(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 1)

	err := h.controller.RedoStage(context.Background(), 2)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.AwaitingChoice(1), h.controller.State())
}

func TestStageController_StaleCallbacksAreDropped(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 2)

	// Stage 2 generation would complete, but the user redoes stage 1 first
	h.script.Set(progressStep(domain.JobPending, 10))
	require.NoError(t, h.controller.SubmitChoice(context.Background(), 2, "A", "x"))
	require.NoError(t, h.controller.RedoStage(context.Background(), 1))
	h.script.Set(completeStep(3))

	time.Sleep(10 * testPollInterval)

	assert.Equal(t, domain.AwaitingChoice(1), h.controller.State())
	assert.NotContains(t, h.controller.Session().StageRecords, domain.StageCrisis)
}

func TestStageController_StageIndexMonotonicExceptRedo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.acceptChoices()

	lastIndex := 0
	check := func(op string, redoTo int) {
		t.Helper()
		idx := h.controller.Session().CurrentStageIndex
		if redoTo >= 0 {
			assert.Equal(t, redoTo, idx, "%s must set the redone index", op)
		} else {
			assert.GreaterOrEqual(t, idx, lastIndex, "%s regressed the stage index", op)
		}
		assert.GreaterOrEqual(t, idx, h.controller.Session().HighestRecordedStage())
		lastIndex = idx
	}

	h.script.Set(completeStep(1))
	require.NoError(t, h.controller.Start(ctx, testJobID))
	h.waitState(t, domain.IntroReady())
	check("start", -1)

	ops := []struct {
		name   string
		run    func()
		redoTo int
	}{
		{name: "advance", run: func() { require.NoError(t, h.controller.Advance(ctx)) }, redoTo: -1},
		{name: "complete 1", run: func() { h.completeStage(t, 1) }, redoTo: -1},
		{name: "advance", run: func() { require.NoError(t, h.controller.Advance(ctx)) }, redoTo: -1},
		{name: "complete 2", run: func() { h.completeStage(t, 2) }, redoTo: -1},
		{name: "redo 1", run: func() { require.NoError(t, h.controller.RedoStage(ctx, 1)) }, redoTo: 1},
		{name: "complete 1 again", run: func() { h.completeStage(t, 1) }, redoTo: -1},
		{name: "advance", run: func() { require.NoError(t, h.controller.Advance(ctx)) }, redoTo: -1},
		{name: "complete 2 again", run: func() { h.completeStage(t, 2) }, redoTo: -1},
		{name: "advance", run: func() { require.NoError(t, h.controller.Advance(ctx)) }, redoTo: -1},
		{name: "redo 3", run: func() { require.NoError(t, h.controller.RedoStage(ctx, 3)) }, redoTo: 3},
		{name: "complete 3", run: func() { h.completeStage(t, 3) }, redoTo: -1},
		{name: "advance", run: func() { require.NoError(t, h.controller.Advance(ctx)) }, redoTo: -1},
	}
	for _, op := range ops {
		op.run()
		check(op.name, op.redoTo)
	}
	assert.Equal(t, domain.AwaitingChoice(4), h.controller.State())
}

func TestStageController_AtMostOnePollLoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.driveToChoice(t, 1)
	// Generation never finishes, so every submission leaves a live loop
	h.script.Set(progressStep(domain.JobPending, 10))

	assertInvariant := func(step string) {
		t.Helper()
		stats := h.poller.Stats()
		live := stats.Started - stats.Cancelled - stats.Finished
		assert.LessOrEqual(t, live, 1, step)
		assert.Equal(t, 1, stats.MaxActive, step)
		assert.Equal(t, h.controller.State().IsPolling(), h.poller.Active(), step)
	}

	sequence := []struct {
		name string
		run  func() error
	}{
		{"submit 1", func() error { return h.controller.SubmitChoice(ctx, 1, "A", "a") }},
		{"redo 1", func() error { return h.controller.RedoStage(ctx, 1) }},
		{"submit 1", func() error { return h.controller.SubmitChoice(ctx, 1, "B", "b") }},
		{"redo 0", func() error { return h.controller.RedoStage(ctx, 0) }},
		{"advance", func() error { return h.controller.Advance(ctx) }},
		{"submit 1", func() error { return h.controller.SubmitChoice(ctx, 1, "A", "a") }},
		{"redo 1", func() error { return h.controller.RedoStage(ctx, 1) }},
		{"redo 1 again", func() error { return h.controller.RedoStage(ctx, 1) }},
		{"submit 1", func() error { return h.controller.SubmitChoice(ctx, 1, "custom", "c") }},
	}
	for _, step := range sequence {
		require.NoError(t, step.run(), step.name)
		assertInvariant(step.name)
	}

	stats := h.poller.Stats()
	// intro poll plus four submissions
	assert.Equal(t, 5, stats.Started)
}

func TestStageController_GenerationErrorThenRedo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.driveToChoice(t, 2)

	h.script.Set(
		progressStep(domain.JobPending, 40),
		statusStep{status: &domain.JobStatus{Status: domain.JobError, Error: "image model overloaded"}},
	)
	require.NoError(t, h.controller.SubmitChoice(ctx, 2, "A", "villain"))

	h.waitState(t, domain.Failed(2, domain.FailureGeneration, "image model overloaded"))
	assert.Equal(t, 1, h.events.count(EventFailed))
	assert.True(t, h.snapshots.has(h.store.Key()), "snapshot is kept after a generation error")

	// Failed is absorbing for everything except redo and reset
	assert.ErrorIs(t, h.controller.Advance(ctx), domain.ErrInvalidTransition)
	assert.ErrorIs(t, h.controller.SubmitChoice(ctx, 2, "B", "x"), domain.ErrInvalidTransition)

	require.NoError(t, h.controller.RedoStage(ctx, 2))
	assert.Equal(t, domain.AwaitingChoice(2), h.controller.State())
	h.completeStage(t, 2)
}

func TestStageController_RetryAfterErrorIgnoresPreviousOutcome(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	afterSubmit := h.staleUntilSubmit(30 * time.Millisecond)
	h.toFirstChoice(t)

	afterSubmit(statusStep{status: &domain.JobStatus{Status: domain.JobError, Error: "old failure"}})
	require.NoError(t, h.controller.SubmitChoice(ctx, 1, "A", "a map"))
	h.waitState(t, domain.Failed(1, domain.FailureGeneration, "old failure"))

	require.NoError(t, h.controller.RedoStage(ctx, 1))

	// The service keeps reporting the error until the new choice arrives
	afterSubmit(progressStep(domain.StageProcessingStatus(2), 20))
	require.NoError(t, h.controller.SubmitChoice(ctx, 1, "B", "a fox"))

	calls := h.script.Calls()
	require.Eventually(t, func() bool { return h.script.Calls() >= calls+3 }, waitFor, tick)
	assert.Equal(t, domain.ChoiceSubmittedPolling(1), h.controller.State())
	assert.Equal(t, 1, h.events.count(EventFailed))
}

func TestStageController_RedoIgnoresPreviousCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	afterSubmit := h.staleUntilSubmit(30 * time.Millisecond)
	h.toFirstChoice(t)

	afterSubmit(completeStep(2))
	require.NoError(t, h.controller.SubmitChoice(ctx, 1, "A", "a map"))
	h.waitState(t, domain.StageReady(1))
	oldVideo := h.controller.Session().Record(1).ArtifactURL

	require.NoError(t, h.controller.RedoStage(ctx, 1))

	// stage2_complete with the old video is still reported until the choice lands
	afterSubmit(progressStep(domain.StageProcessingStatus(2), 20))
	require.NoError(t, h.controller.SubmitChoice(ctx, 1, "B", "a fox"))

	calls := h.script.Calls()
	require.Eventually(t, func() bool { return h.script.Calls() >= calls+3 }, waitFor, tick)
	require.Equal(t, domain.ChoiceSubmittedPolling(1), h.controller.State())
	assert.Empty(t, h.controller.Session().Record(1).ArtifactURL)

	h.script.Set(statusStep{status: &domain.JobStatus{
		Status:   domain.StageCompleteStatus(2),
		Progress: 100,
		VideoURL: "http://svc/stages/stage2-redo.mp4",
	}})
	h.waitState(t, domain.StageReady(1))
	assert.Equal(t, "http://svc/stages/stage2-redo.mp4", h.controller.Session().Record(1).ArtifactURL)
	assert.NotEqual(t, oldVideo, h.controller.Session().Record(1).ArtifactURL)
}

func TestStageController_SubmitRejectedRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.script.Set(completeStep(1))
	require.NoError(t, h.controller.Start(ctx, testJobID))
	h.waitState(t, domain.IntroReady())
	require.NoError(t, h.controller.Advance(ctx))

	h.script.Set(progressStep(domain.JobPending, 0))
	h.client.EXPECT().SubmitChoice(mock.Anything, testJobID, 2, "A", "x").
		Return(errors.Join(domain.ErrRequestRejected, errors.New("api error: status=409")))

	err := h.controller.SubmitChoice(ctx, 1, "A", "x")

	assert.ErrorIs(t, err, domain.ErrRequestRejected)
	assert.Equal(t, domain.AwaitingChoice(1), h.controller.State())
	assert.Nil(t, h.controller.Session().Record(1).Choice)
	assert.False(t, h.poller.Active())
}

func TestStageController_SubmitTransportFailureKeepsPolling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.script.Set(completeStep(1))
	require.NoError(t, h.controller.Start(ctx, testJobID))
	h.waitState(t, domain.IntroReady())
	require.NoError(t, h.controller.Advance(ctx))

	h.script.Set(progressStep(domain.JobPending, 20), completeStep(2))
	h.client.EXPECT().SubmitChoice(mock.Anything, testJobID, 2, "A", "x").Return(errors.New("connection reset by peer"))

	require.NoError(t, h.controller.SubmitChoice(ctx, 1, "A", "x"))

	h.waitState(t, domain.StageReady(1))
}

func TestStageController_SubmitNotFoundExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.script.Set(completeStep(1))
	require.NoError(t, h.controller.Start(ctx, testJobID))
	h.waitState(t, domain.IntroReady())
	require.NoError(t, h.controller.Advance(ctx))

	h.script.Set(progressStep(domain.JobPending, 20))
	h.client.EXPECT().SubmitChoice(mock.Anything, testJobID, 2, "A", "x").Return(domain.ErrJobNotFound)

	err := h.controller.SubmitChoice(ctx, 1, "A", "x")

	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.True(t, h.controller.State().IsExpired())
	assert.False(t, h.snapshots.has(h.store.Key()))
}

func TestStageController_FinalizeFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.driveToChoice(t, domain.LastStageIndex)
	h.completeStage(t, domain.LastStageIndex)

	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(nil)
	h.script.Set(
		progressStep(domain.JobFinalizing, 30),
		statusStep{status: &domain.JobStatus{Status: domain.JobComplete, Progress: 100, FinalVideoURL: "http://svc/final/job-1.mp4"}},
	)

	require.NoError(t, h.controller.Advance(ctx))
	h.waitState(t, domain.FinalizeComplete())

	session := h.controller.Session()
	assert.Equal(t, "http://svc/final/job-1.mp4", session.FinalArtifact)
	assert.Len(t, session.ResultArtifacts(), domain.StageCount)

	persisted, state := h.store.Load(ctx)
	assert.Equal(t, domain.FinalizeComplete(), state)
	assert.Equal(t, session, persisted)
}

func TestStageController_FinalizeRejectedStillPolls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.driveToChoice(t, domain.LastStageIndex)
	h.completeStage(t, domain.LastStageIndex)

	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(domain.ErrRequestRejected)
	h.script.Set(statusStep{status: &domain.JobStatus{Status: domain.JobComplete, Progress: 100, FinalVideoURL: "http://svc/final/job-1.mp4"}})

	require.NoError(t, h.controller.Advance(ctx))
	h.waitState(t, domain.FinalizeComplete())
}

func TestStageController_FinalizeTransportErrorCanBeRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.driveToChoice(t, domain.LastStageIndex)
	h.completeStage(t, domain.LastStageIndex)

	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(errors.New("connection refused")).Once()
	err := h.controller.Advance(ctx)
	assert.ErrorContains(t, err, "failed to request finalize")
	assert.Equal(t, domain.AllStagesComplete(), h.controller.State())

	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(nil).Once()
	h.script.Set(statusStep{status: &domain.JobStatus{Status: domain.JobComplete, Progress: 100, FinalVideoURL: "http://svc/final/job-1.mp4"}})
	require.NoError(t, h.controller.Finalize(ctx))
	h.waitState(t, domain.FinalizeComplete())

	assert.ErrorIs(t, h.controller.Finalize(ctx), domain.ErrInvalidTransition)
}

func TestStageController_ResumeRestartsPollingWithoutResubmitting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.driveToChoice(t, 2)
	h.script.Set(progressStep(domain.JobPending, 10))
	require.NoError(t, h.controller.SubmitChoice(ctx, 2, "A", "villain"))
	h.controller.Close()

	// A fresh process over the same store
	resumed := NewStageController(h.client, NewJobPoller(h.client, testPollInterval), h.store)
	t.Cleanup(resumed.Close)
	h.script.Set(completeStep(3))

	state, err := resumed.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ChoiceSubmittedPolling(2), state)

	require.Eventually(t, func() bool {
		return resumed.State() == domain.StageReady(2)
	}, waitFor, tick)
	h.client.AssertNumberOfCalls(t, "SubmitChoice", 2)
}

func TestStageController_ResumeTriggersPendingFinalize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.driveToChoice(t, domain.LastStageIndex)
	h.completeStage(t, domain.LastStageIndex)
	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(errors.New("offline")).Once()
	require.Error(t, h.controller.Advance(ctx))
	h.controller.Close()

	resumed := NewStageController(h.client, NewJobPoller(h.client, testPollInterval), h.store)
	t.Cleanup(resumed.Close)
	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(nil).Once()
	h.script.Set(
		progressStep(domain.JobFinalizing, 10),
		statusStep{status: &domain.JobStatus{Status: domain.JobComplete, FinalVideoURL: "http://svc/final/job-1.mp4"}},
	)

	state, err := resumed.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AwaitingFinalize(), state)
	require.Eventually(t, func() bool {
		return resumed.State() == domain.FinalizeComplete()
	}, waitFor, tick)
}

func TestStageController_ResumeWithoutSnapshot(t *testing.T) {
	h := newHarness(t)

	state, err := h.controller.Resume(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.IdleState(), state)
	assert.Nil(t, h.controller.Session())
}

func TestStageController_SnapshotRoundTripForReachableStates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assertRoundTrip := func(label string) {
		t.Helper()
		session := h.controller.Session()
		state := h.controller.State()
		data, err := h.store.Snapshot(session, state)
		require.NoError(t, err, label)
		restored, restoredState := h.store.Restore(data)
		assert.Equal(t, session, restored, label)
		assert.Equal(t, state, restoredState, label)
	}

	h.script.Set(progressStep(domain.JobStarted, 0))
	require.NoError(t, h.controller.Start(ctx, testJobID))
	assertRoundTrip("awaiting intro")

	h.script.Set(completeStep(1))
	h.waitState(t, domain.IntroReady())
	assertRoundTrip("intro ready")

	require.NoError(t, h.controller.Advance(ctx))
	assertRoundTrip("awaiting choice")

	h.acceptChoices()
	h.script.Set(progressStep(domain.JobPending, 50))
	require.NoError(t, h.controller.SubmitChoice(ctx, 1, "A", "x"))
	assertRoundTrip("polling")

	h.script.Set(completeStep(2))
	h.waitState(t, domain.StageReady(1))
	assertRoundTrip("stage ready")

	for i := 2; i <= domain.LastStageIndex; i++ {
		require.NoError(t, h.controller.Advance(ctx))
		h.completeStage(t, i)
	}
	assertRoundTrip("ending ready")

	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(errors.New("offline")).Once()
	require.Error(t, h.controller.Advance(ctx))
	assertRoundTrip("all stages complete")

	h.client.EXPECT().Finalize(mock.Anything, testJobID).Return(nil).Once()
	h.script.Set(progressStep(domain.JobFinalizing, 10))
	require.NoError(t, h.controller.Finalize(ctx))
	assertRoundTrip("awaiting finalize")

	h.script.Set(statusStep{status: &domain.JobStatus{Status: domain.JobComplete, FinalVideoURL: "http://svc/final/job-1.mp4"}})
	h.waitState(t, domain.FinalizeComplete())
	assertRoundTrip("finalized")
}

func TestStageController_ResetClearsEverything(t *testing.T) {
	h := newHarness(t)
	h.driveToChoice(t, 1)
	h.script.Set(progressStep(domain.JobPending, 10))
	require.NoError(t, h.controller.SubmitChoice(context.Background(), 1, "A", "x"))

	require.NoError(t, h.controller.Reset(context.Background()))

	assert.Equal(t, domain.IdleState(), h.controller.State())
	assert.Nil(t, h.controller.Session())
	assert.False(t, h.poller.Active())
	assert.False(t, h.snapshots.has(h.store.Key()))
	progress, message := h.controller.Progress()
	assert.Zero(t, progress)
	assert.Empty(t, message)
}
