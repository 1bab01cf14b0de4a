package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itory/itory/internal/adapters/storage"
	"github.com/itory/itory/internal/domain"
	portsmocks "github.com/itory/itory/internal/ports/mocks"
	"github.com/itory/itory/internal/services"
)

func newTestController(t *testing.T, status *domain.JobStatus) (*services.StageController, *portsmocks.MockGenerationClient) {
	t.Helper()
	client := portsmocks.NewMockGenerationClient(t)
	client.EXPECT().Status(mock.Anything, mock.Anything).Return(status, nil).Maybe()
	poller := services.NewJobPoller(client, time.Millisecond)
	store := services.NewSessionStore(storage.NewMemoryStore(), "")
	controller := services.NewStageController(client, poller, store)
	t.Cleanup(controller.Close)
	return controller, client
}

func TestPlayModel_IdleShowsStoryForm(t *testing.T) {
	controller, _ := newTestController(t, &domain.JobStatus{Status: domain.JobPending})
	m := NewPlayModel(controller, domain.ArtStylePixar, false)

	m.Init()

	require.NotNil(t, m.storyForm)
	assert.Equal(t, domain.ArtStylePixar, m.storyForm.Result().Style)
	assert.Contains(t, m.View(), "Which tale should we tell?")
}

func TestPlayModel_ReadyStageRendersStory(t *testing.T) {
	controller, _ := newTestController(t, &domain.JobStatus{
		Status:    domain.StageCompleteStatus(1),
		Progress:  100,
		StoryText: "Once upon a time a mermaid sang.",
		VideoURL:  "http://svc/stages/job_stage1.mp4",
	})
	require.NoError(t, controller.Start(context.Background(), "job_1"))
	require.Eventually(t, func() bool {
		return controller.State() == domain.IntroReady()
	}, 2*time.Second, 2*time.Millisecond)

	m := NewPlayModel(controller, "", false)
	m.Init()
	view := m.View()

	assert.Nil(t, m.storyForm)
	assert.Contains(t, view, "Stage 1 of 5: Introduction")
	assert.Contains(t, view, "Once upon a time a mermaid sang.")
	assert.Contains(t, view, "http://svc/stages/job_stage1.mp4")
	assert.True(t, m.keys.Next.Enabled())
	assert.False(t, m.keys.Redo.Enabled(), "the intro cannot be redone from the ready screen")
}

func TestPlayModel_FailureEventShowsError(t *testing.T) {
	controller, _ := newTestController(t, &domain.JobStatus{Status: domain.JobPending})
	m := NewPlayModel(controller, "", false)
	m.Init()

	_, _ = m.Update(eventMsg{event: services.Event{Kind: services.EventFailed, Message: "image model overloaded"}})

	assert.Contains(t, m.View(), "Error: image model overloaded")
}

func TestPlayModel_QuitReleasesForwarding(t *testing.T) {
	controller, _ := newTestController(t, &domain.JobStatus{Status: domain.JobPending})
	m := NewPlayModel(controller, "", false)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)

	// With the buffer full, outcome events must not block once the UI is gone
	for range eventBuffer {
		m.forward(services.Event{Kind: services.EventProgress})
	}
	delivered := make(chan struct{})
	go func() {
		m.forward(services.Event{Kind: services.EventReady})
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("forward blocked after quit")
	}
}

func TestChoiceForm_Choice(t *testing.T) {
	cf := NewChoiceForm(2, []string{"A villain appeared", "A difficult situation arose"})

	id, text := cf.Choice()
	assert.Equal(t, "A", id)
	assert.Equal(t, "A villain appeared", text)

	cf.choiceID = "B"
	id, text = cf.Choice()
	assert.Equal(t, "B", id)
	assert.Equal(t, "A difficult situation arose", text)

	cf.choiceID = domain.CustomChoiceID
	cf.custom = "  A storm rolled in  "
	id, text = cf.Choice()
	assert.Equal(t, domain.CustomChoiceID, id)
	assert.Equal(t, "A storm rolled in", text)
}

func TestPlayKeys_EnableFor(t *testing.T) {
	tests := []struct {
		name     string
		state    domain.State
		next     bool
		redo     bool
		finalize bool
		restart  bool
	}{
		{name: "intro ready", state: domain.IntroReady(), next: true},
		{name: "stage ready", state: domain.StageReady(2), next: true, redo: true},
		{name: "generation failed", state: domain.Failed(2, domain.FailureGeneration, "x"), redo: true},
		{name: "expired", state: domain.Failed(1, domain.FailureExpired, ""), restart: true},
		{name: "finalize pending", state: domain.AllStagesComplete(), finalize: true},
		{name: "finished", state: domain.FinalizeComplete(), restart: true},
		{name: "polling", state: domain.ChoiceSubmittedPolling(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := newPlayKeys()
			keys.enableFor(tt.state)
			assert.Equal(t, tt.next, keys.Next.Enabled())
			assert.Equal(t, tt.redo, keys.Redo.Enabled())
			assert.Equal(t, tt.finalize, keys.Finalize.Enabled())
			assert.Equal(t, tt.restart, keys.Restart.Enabled())
			assert.True(t, keys.Quit.Enabled())
		})
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	assert.Empty(t, formatErrorForDisplay(nil, 80))
	assert.Equal(t, "Error: boom", formatErrorForDisplay(errors.New("boom"), 80))
	assert.Equal(t, "Error: unknown error", formatErrorForDisplay(errors.New(" "), 80))

	long := errors.New(strings.Repeat("stage generation timed out ", 20))
	out := formatErrorForDisplay(long, 40)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, maxErrorLines)
	assert.True(t, strings.HasPrefix(lines[0], errorPrefix))
	assert.True(t, strings.HasSuffix(lines[1], truncationMark))
}
