package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/itory/itory/internal/domain"
)

// StoryFormResult contains the answers of the new story form
type StoryFormResult struct {
	Cancelled bool
	Style     domain.ArtStyle
	Subject   string
}

// StoryForm asks for the tale and art style of a new story
type StoryForm struct {
	Completed bool
	form      *huh.Form
	result    StoryFormResult
}

// NewStoryForm creates the form, preselecting defaultStyle when set
func NewStoryForm(defaultStyle domain.ArtStyle) *StoryForm {
	sf := &StoryForm{result: StoryFormResult{Style: defaultStyle}}
	if sf.result.Style == "" {
		sf.result.Style = domain.ArtStyleWatercolor
	}

	styles := make([]huh.Option[domain.ArtStyle], 0, len(domain.ArtStyles))
	for _, st := range domain.ArtStyles {
		styles = append(styles, huh.NewOption(st.Name, st.Style))
	}

	sf.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Which tale should we tell?").
			Placeholder("The Little Mermaid").
			Value(&sf.result.Subject).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("a tale title is required")
				}
				return nil
			}),
		huh.NewSelect[domain.ArtStyle]().
			Title("Art style").
			Options(styles...).
			Value(&sf.result.Style),
	))

	return sf
}

func (sf *StoryForm) Init() tea.Cmd {
	return sf.form.Init()
}

func (sf *StoryForm) Update(msg tea.Msg) (*StoryForm, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		sf.Completed = true
		sf.result.Cancelled = true
		return sf, nil
	}

	form, cmd := sf.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		sf.form = f
	}

	switch sf.form.State {
	case huh.StateCompleted:
		sf.Completed = true
		sf.result.Subject = strings.TrimSpace(sf.result.Subject)
	case huh.StateAborted:
		sf.Completed = true
		sf.result.Cancelled = true
	}
	return sf, cmd
}

func (sf *StoryForm) View() string {
	return sf.form.View()
}

// Result returns the form result
func (sf *StoryForm) Result() StoryFormResult {
	return sf.result
}
