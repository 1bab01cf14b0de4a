package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/itory/itory/internal/services"
)

// eventMsg carries a controller event into the Bubble Tea loop
type eventMsg struct {
	event services.Event
}

// actionDoneMsg is sent when a controller operation started from the UI returns
type actionDoneMsg struct {
	action string
	err    error
}

// optionsLoadedMsg is sent when the options of a stage have been fetched
type optionsLoadedMsg struct {
	err        error
	stageIndex int
	texts      []string
}

// waitForEvent blocks until the next controller event
func waitForEvent(events <-chan services.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}
