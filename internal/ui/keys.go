package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/itory/itory/internal/domain"
)

// PlayKeys defines the key bindings of the play screen
type PlayKeys struct {
	Finalize key.Binding
	Next     key.Binding
	Quit     key.Binding
	Redo     key.Binding
	Restart  key.Binding
}

func newPlayKeys() PlayKeys {
	return PlayKeys{
		Finalize: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "retry finalize"),
		),
		Next: key.NewBinding(
			key.WithKeys("n", "enter"),
			key.WithHelp("n/enter", "next stage"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Redo: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "redo stage"),
		),
		Restart: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "new story"),
		),
	}
}

// enableFor turns on only the bindings that make sense in the current phase
func (k *PlayKeys) enableFor(state domain.State) {
	ready := state.IsReady()
	k.Next.SetEnabled(ready)
	k.Redo.SetEnabled((ready && state.Stage > 0) || (state.Phase == domain.PhaseFailed && !state.IsExpired()))
	k.Finalize.SetEnabled(state.Phase == domain.PhaseAllStagesComplete)
	k.Restart.SetEnabled(state.IsExpired() || state.Phase == domain.PhaseFinalizeComplete)
}

// ShortHelp implements help.KeyMap
func (k PlayKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Redo, k.Finalize, k.Restart, k.Quit}
}

// FullHelp implements help.KeyMap
func (k PlayKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
