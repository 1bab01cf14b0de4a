package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/ports"
	portsmocks "github.com/itory/itory/internal/ports/mocks"
)

const (
	testJobID        = "job-1"
	testPollInterval = 5 * time.Millisecond
	waitFor          = 2 * time.Second
	tick             = 2 * time.Millisecond
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// memSnapshots is an in-memory SnapshotStore that counts writes
type memSnapshots struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

var _ ports.SnapshotStore = (*memSnapshots)(nil)

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: make(map[string][]byte)}
}

func (m *memSnapshots) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memSnapshots) Save(ctx context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), payload...)
	m.saves++
	return nil
}

func (m *memSnapshots) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memSnapshots) Close() error { return nil }

func (m *memSnapshots) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// statusStep is one scripted answer of the status endpoint
type statusStep struct {
	err    error
	status *domain.JobStatus
}

func progressStep(value domain.JobStatusValue, progress int) statusStep {
	return statusStep{status: &domain.JobStatus{Status: value, Progress: progress}}
}

func completeStep(stageNo int) statusStep {
	return statusStep{status: &domain.JobStatus{
		Status:    domain.StageCompleteStatus(stageNo),
		Progress:  100,
		VideoURL:  "http://svc/stages/stage" + string(rune('0'+stageNo)) + ".mp4",
		StoryText: "story " + string(rune('0'+stageNo)),
	}}
}

func errorStep(err error) statusStep {
	return statusStep{err: err}
}

// statusScript replays steps in order and then repeats the last one
type statusScript struct {
	mu    sync.Mutex
	calls int
	steps []statusStep
}

func (s *statusScript) Set(steps ...statusStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = steps
}

func (s *statusScript) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *statusScript) Next(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.steps) == 0 {
		return &domain.JobStatus{Status: domain.JobPending}, nil
	}
	step := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	if step.err != nil {
		return nil, step.err
	}
	cp := *step.status
	return &cp, nil
}

// eventLog records listener events
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, ev := range l.all() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type harness struct {
	client     *portsmocks.MockGenerationClient
	controller *StageController
	events     *eventLog
	poller     *JobPoller
	script     *statusScript
	snapshots  *memSnapshots
	store      *SessionStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		client:    portsmocks.NewMockGenerationClient(t),
		events:    &eventLog{},
		script:    &statusScript{},
		snapshots: newMemSnapshots(),
	}
	h.client.EXPECT().Status(mock.Anything, testJobID).RunAndReturn(h.script.Next).Maybe()

	h.poller = NewJobPoller(h.client, testPollInterval)
	h.store = NewSessionStore(h.snapshots, "test")
	h.controller = NewStageController(h.client, h.poller, h.store)
	h.controller.now = func() time.Time { return testNow }
	h.controller.OnEvent(h.events.record)
	t.Cleanup(h.controller.Close)
	return h
}

func (h *harness) acceptChoices() {
	h.client.EXPECT().SubmitChoice(mock.Anything, testJobID, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (h *harness) waitState(t *testing.T, want domain.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.controller.State() == want
	}, waitFor, tick, "never reached %s, last state %s", want, h.controller.State())
}

// driveToChoice starts a session and advances until stageIndex awaits a choice
func (h *harness) driveToChoice(t *testing.T, stageIndex int) {
	t.Helper()
	ctx := context.Background()
	h.acceptChoices()

	h.script.Set(completeStep(1))
	require.NoError(t, h.controller.Start(ctx, testJobID))
	h.waitState(t, domain.IntroReady())
	require.NoError(t, h.controller.Advance(ctx))

	for i := 1; i < stageIndex; i++ {
		h.completeStage(t, i)
		require.NoError(t, h.controller.Advance(ctx))
	}
	require.Equal(t, domain.AwaitingChoice(stageIndex), h.controller.State())
}

// completeStage submits a choice for stageIndex and waits until it is ready
func (h *harness) completeStage(t *testing.T, stageIndex int) {
	t.Helper()
	h.script.Set(completeStep(stageIndex + 1))
	require.NoError(t, h.controller.SubmitChoice(context.Background(), stageIndex, "A", "option A"))
	h.waitState(t, domain.StageReady(stageIndex))
}

// staleUntilSubmit makes the status endpoint keep its previous answer until a
// submitted choice reaches the service, which takes latency. The returned
// func sets what the endpoint reports once the next choice has arrived.
func (h *harness) staleUntilSubmit(latency time.Duration) func(steps ...statusStep) {
	var mu sync.Mutex
	var after []statusStep
	h.client.EXPECT().SubmitChoice(mock.Anything, testJobID, mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, jobID string, stageNo int, choiceID, text string) error {
			time.Sleep(latency)
			mu.Lock()
			defer mu.Unlock()
			h.script.Set(after...)
			return nil
		}).Maybe()
	return func(steps ...statusStep) {
		mu.Lock()
		defer mu.Unlock()
		after = steps
	}
}

// toFirstChoice starts a session and advances to the development stage
func (h *harness) toFirstChoice(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	h.script.Set(completeStep(1))
	require.NoError(t, h.controller.Start(ctx, testJobID))
	h.waitState(t, domain.IntroReady())
	require.NoError(t, h.controller.Advance(ctx))
	require.Equal(t, domain.AwaitingChoice(1), h.controller.State())
}
