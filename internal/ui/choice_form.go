package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/itory/itory/internal/domain"
)

// ChoiceForm lets the user pick one of the stage options or write their own
type ChoiceForm struct {
	Completed  bool
	choiceID   string
	custom     string
	form       *huh.Form
	stageIndex int
	texts      []string
}

// NewChoiceForm builds the form for the stage at stageIndex
func NewChoiceForm(stageIndex int, texts []string) *ChoiceForm {
	cf := &ChoiceForm{stageIndex: stageIndex, texts: texts}
	stage := domain.Stages[stageIndex]

	options := make([]huh.Option[string], 0, len(texts)+1)
	for i, text := range texts {
		options = append(options, huh.NewOption(fmt.Sprintf("%s. %s", domain.OptionID(i), text), domain.OptionID(i)))
	}
	options = append(options, huh.NewOption("Write my own", domain.CustomChoiceID))
	if len(texts) > 0 {
		cf.choiceID = domain.OptionID(0)
	}

	cf.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(stage.Question).
				Options(options...).
				Value(&cf.choiceID),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Your idea").
				Placeholder("A dragon moved in next door").
				CharLimit(300).
				Value(&cf.custom).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("describe what happens next")
					}
					return nil
				}),
		).WithHideFunc(func() bool {
			return cf.choiceID != domain.CustomChoiceID
		}),
	)
	return cf
}

func (cf *ChoiceForm) Init() tea.Cmd {
	return cf.form.Init()
}

func (cf *ChoiceForm) Update(msg tea.Msg) (*ChoiceForm, tea.Cmd) {
	form, cmd := cf.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		cf.form = f
	}
	if cf.form.State == huh.StateCompleted {
		cf.Completed = true
	}
	return cf, cmd
}

func (cf *ChoiceForm) View() string {
	return cf.form.View()
}

// Choice returns the selected option id and the text sent with it
func (cf *ChoiceForm) Choice() (string, string) {
	if cf.choiceID == domain.CustomChoiceID {
		return cf.choiceID, strings.TrimSpace(cf.custom)
	}
	for i, text := range cf.texts {
		if domain.OptionID(i) == cf.choiceID {
			return cf.choiceID, text
		}
	}
	return cf.choiceID, ""
}
