package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/services"
	"github.com/itory/itory/internal/theme"
)

const eventBuffer = 32

// PlayModel is the interactive story screen. The controller owns every
// state decision; the model only renders its projection and forwards input.
type PlayModel struct {
	busy         bool
	choiceForm   *ChoiceForm
	controller   *services.StageController
	defaultStyle domain.ArtStyle
	devMode      bool
	done         chan struct{}
	err          error
	events       chan services.Event
	help         help.Model
	keys         PlayKeys
	loading      bool
	message      string
	percent      int
	progress     progress.Model
	session      *domain.Session
	spinner      spinner.Model
	state        domain.State
	storyForm    *StoryForm
	width        int
}

// NewPlayModel creates the play screen for controller. The controller should
// already have resumed any persisted session.
func NewPlayModel(controller *services.StageController, defaultStyle domain.ArtStyle, devMode bool) *PlayModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.SpinnerStyle

	m := &PlayModel{
		controller:   controller,
		defaultStyle: defaultStyle,
		devMode:      devMode,
		done:         make(chan struct{}),
		events:       make(chan services.Event, eventBuffer),
		help:         help.New(),
		keys:         newPlayKeys(),
		progress:     progress.New(progress.WithGradient(string(theme.ColorProgressStart), string(theme.ColorProgressEnd))),
		spinner:      s,
		width:        80,
	}
	controller.OnEvent(m.forward)
	return m
}

// forward hands an event to the UI loop. Progress events are dropped when
// the UI lags behind; outcomes are always delivered.
func (m *PlayModel) forward(ev services.Event) {
	if ev.Kind == services.EventProgress {
		select {
		case m.events <- ev:
		default:
		}
		return
	}
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

func (m *PlayModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), waitForEvent(m.events), m.spinner.Tick)
}

func (m *PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-10, 20)
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		logging.Logger.Debug("Controller event", "kind", msg.event.Kind, "state", msg.event.State.String())
		if msg.event.Kind == services.EventFailed || msg.event.Kind == services.EventExpired {
			m.err = errors.New(msg.event.Message)
		}
		return m, tea.Batch(m.refresh(), waitForEvent(m.events))

	case actionDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err != nil {
			logging.Logger.Warn("Action failed", "action", msg.action, "error", msg.err)
		}
		return m, m.refresh()

	case optionsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			// Expiry arrives as its own event, so no refresh here
			m.err = msg.err
			return m, nil
		}
		if m.state != domain.AwaitingChoice(msg.stageIndex) {
			return m, nil
		}
		m.choiceForm = NewChoiceForm(msg.stageIndex, msg.texts)
		return m, m.choiceForm.Init()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.progress.Update(msg)
		if p, ok := model.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
	}

	if m.storyForm != nil {
		return m.updateStoryForm(msg)
	}
	if m.choiceForm != nil {
		return m.updateChoiceForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.busy {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		return m, m.quit()
	case key.Matches(keyMsg, m.keys.Next):
		return m, m.run("advance", m.controller.Advance)
	case key.Matches(keyMsg, m.keys.Redo):
		stage := m.state.Stage
		return m, m.run("redo", func(ctx context.Context) error {
			return m.controller.RedoStage(ctx, stage)
		})
	case key.Matches(keyMsg, m.keys.Finalize):
		return m, m.run("finalize", m.controller.Finalize)
	case key.Matches(keyMsg, m.keys.Restart):
		return m, m.run("reset", m.controller.Reset)
	}
	return m, nil
}

func (m *PlayModel) updateStoryForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.storyForm.Update(msg)
	m.storyForm = form
	if !form.Completed {
		return m, cmd
	}

	result := form.Result()
	m.storyForm = nil
	if result.Cancelled {
		return m, m.quit()
	}
	return m, m.run("create", func(ctx context.Context) error {
		_, err := m.controller.Create(ctx, result.Subject, result.Style)
		return err
	})
}

func (m *PlayModel) updateChoiceForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.choiceForm.Update(msg)
	m.choiceForm = form
	if !form.Completed {
		return m, cmd
	}

	stage := form.stageIndex
	choiceID, text := form.Choice()
	m.choiceForm = nil
	return m, m.run("submit", func(ctx context.Context) error {
		return m.controller.SubmitChoice(ctx, stage, choiceID, text)
	})
}

// run executes a controller operation off the UI goroutine
func (m *PlayModel) run(action string, op func(context.Context) error) tea.Cmd {
	m.busy = true
	m.err = nil
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return actionDoneMsg{action: action, err: op(context.Background())}
	})
}

func (m *PlayModel) quit() tea.Cmd {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	return tea.Quit
}

// refresh pulls the controller projection and starts whatever input the new
// state needs: the story form when idle, the options when a choice is due.
func (m *PlayModel) refresh() tea.Cmd {
	m.state = m.controller.State()
	m.session = m.controller.Session()
	m.percent, m.message = m.controller.Progress()
	m.keys.enableFor(m.state)

	var cmds []tea.Cmd
	cmds = append(cmds, m.progress.SetPercent(float64(m.percent)/100))

	if m.state.Phase != domain.PhaseAwaitingChoice {
		m.choiceForm = nil
	}

	switch {
	case m.state.Phase == domain.PhaseIdle && m.storyForm == nil && !m.busy:
		m.storyForm = NewStoryForm(m.defaultStyle)
		cmds = append(cmds, m.storyForm.Init())

	case m.state.Phase == domain.PhaseAwaitingChoice && m.choiceForm == nil && !m.loading && !m.busy:
		m.loading = true
		stage := m.state.Stage
		cmds = append(cmds, func() tea.Msg {
			seq, err := m.controller.LoadOptions(context.Background(), stage)
			if err != nil {
				return optionsLoadedMsg{err: err, stageIndex: stage}
			}
			return optionsLoadedMsg{stageIndex: stage, texts: slices.Collect(seq)}
		})
	}
	return tea.Batch(cmds...)
}

func (m *PlayModel) View() string {
	var b strings.Builder
	b.WriteString(renderHeader(m.devMode, m.subtitle()))
	b.WriteString("\n")

	switch {
	case m.storyForm != nil:
		b.WriteString(m.storyForm.View())
	case m.choiceForm != nil:
		b.WriteString(m.choiceForm.View())
	default:
		b.WriteString(m.body())
	}

	if m.err != nil {
		b.WriteString("\n\n" + theme.ErrorStyle.Render(formatErrorForDisplay(m.err, m.width)))
	}
	if m.storyForm == nil && m.choiceForm == nil {
		b.WriteString("\n" + theme.HelpStyle.Render(m.help.View(m.keys)))
	}
	return b.String() + "\n"
}

func (m *PlayModel) subtitle() string {
	if m.session == nil {
		return ""
	}
	stage := domain.Stages[m.session.CurrentStageIndex]
	return fmt.Sprintf("Stage %d of %d: %s", stage.Number(), domain.StageCount, stage.Name)
}

func (m *PlayModel) body() string {
	state := m.state
	stateLine := theme.PhaseStyle(state.Phase).Render(state.String())

	if m.busy || m.loading {
		return fmt.Sprintf("%s %s", m.spinner.View(), stateLine)
	}

	switch state.Phase {
	case domain.PhaseAwaitingIntroGeneration, domain.PhaseChoiceSubmittedPolling, domain.PhaseAwaitingFinalize:
		label := m.message
		if label == "" {
			label = "Generating..."
		}
		return fmt.Sprintf("%s %s\n\n%s\n%s",
			m.spinner.View(), theme.NormalStyle.Render(label),
			m.progress.ViewAs(float64(m.percent)/100),
			theme.LabelStyle.Render(fmt.Sprintf("%d%%", m.percent)))

	case domain.PhaseIntroReady, domain.PhaseStageReady:
		return m.stageView(state.Stage)

	case domain.PhaseAllStagesComplete:
		return stateLine + "\n" + theme.NormalStyle.Render("Every stage is done. The final video has not been requested yet.")

	case domain.PhaseFinalizeComplete:
		return stateLine + "\n\n" +
			theme.QuestionStyle.Render("Your story is complete!") + "\n" +
			theme.LabelStyle.Render("Final video: ") + theme.LinkStyle.Render(m.session.FinalArtifact)

	case domain.PhaseFailed:
		if state.IsExpired() {
			return stateLine + "\n" + theme.NormalStyle.Render("This story is no longer available on the server. Start a new one.")
		}
		return stateLine + "\n" + theme.NormalStyle.Render("Generation failed. Redo the stage to try again.")
	}
	return stateLine
}

func (m *PlayModel) stageView(stageIndex int) string {
	rec := m.session.Record(stageIndex)
	stage := domain.Stages[stageIndex]
	if rec == nil {
		return theme.PhaseStyle(m.state.Phase).Render(m.state.String())
	}

	var b strings.Builder
	b.WriteString(theme.QuestionStyle.Render(stage.Name) + "\n")
	if rec.Choice != nil {
		b.WriteString(theme.LabelStyle.Render("You chose: ") + theme.NormalStyle.Render(rec.Choice.Text) + "\n")
	}
	if rec.StoryText != "" {
		b.WriteString(theme.StoryStyle.Width(max(m.width-4, 20)).Render(rec.StoryText) + "\n")
	}
	b.WriteString(theme.LabelStyle.Render("Video: ") + theme.LinkStyle.Render(rec.ArtifactURL))
	return b.String()
}
