package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/itory/itory/internal/config"
	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/services"
)

// StartCmd starts a new job and its session
type StartCmd struct {
	Force   bool   `help:"Discard the story already in progress in this slot"`
	Style   string `help:"Art style: realistic, cartoon_2d, cartoon_3d, pixar, watercolor" short:"s"`
	Subject string `arg:"" help:"Title of the tale to tell"`
	Wait    bool   `help:"Wait until the intro is generated" short:"w"`
}

// Run executes the start command
func (s *StartCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	style, err := resolveStyle(s.Style, cli.settings)
	if err != nil {
		return err
	}

	container, state, err := resume(ctx, cli)
	if err != nil {
		return err
	}
	controller := container.Controller

	if state.Phase != domain.PhaseIdle {
		if !s.Force {
			return fmt.Errorf("slot %q already has a story in progress (%s); use --force or reset", cli.Slot, state)
		}
		if err := controller.Reset(ctx); err != nil {
			return fmt.Errorf("failed to discard previous story: %w", err)
		}
	}

	jobID, err := controller.Create(ctx, s.Subject, style)
	if err != nil {
		return err
	}
	fmt.Printf("Started job %s (%s, %s)\n", jobID, s.Subject, style)

	if !s.Wait {
		return nil
	}
	return waitAndReport(ctx, controller, 0)
}

// OptionsCmd lists the choices for the stage awaiting one
type OptionsCmd struct{}

// Run executes the options command
func (o *OptionsCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	container, state, err := resume(ctx, cli)
	if err != nil {
		return err
	}
	if state.Phase != domain.PhaseAwaitingChoice {
		return fmt.Errorf("no choice is due (%s)", state)
	}

	texts, err := loadOptions(ctx, container.Controller, state.Stage)
	if err != nil {
		return err
	}

	stage := domain.Stages[state.Stage]
	fmt.Printf("Stage %d: %s\n%s\n\n", stage.Number(), stage.Name, stage.Question)
	for i, text := range texts {
		fmt.Printf("  %s. %s\n", domain.OptionID(i), text)
	}
	fmt.Printf("\nUse `itory choose <letter>` or `itory choose --text \"...\"` for your own idea.\n")
	return nil
}

// ChooseCmd submits a choice for the stage awaiting one
type ChooseCmd struct {
	Option string `arg:"" optional:"" help:"Option letter from 'itory options'"`
	Text   string `help:"Write your own choice instead of picking an option" short:"t"`
	Wait   bool   `help:"Wait until the stage is generated" short:"w"`
}

// Run executes the choose command
func (c *ChooseCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	if c.Option == "" && strings.TrimSpace(c.Text) == "" {
		return domain.ErrEmptyChoice
	}

	container, state, err := resume(ctx, cli)
	if err != nil {
		return err
	}
	controller := container.Controller
	if state.Phase != domain.PhaseAwaitingChoice {
		return fmt.Errorf("no choice is due (%s)", state)
	}

	choiceID, text := domain.CustomChoiceID, strings.TrimSpace(c.Text)
	if c.Option != "" {
		texts, err := loadOptions(ctx, controller, state.Stage)
		if err != nil {
			return err
		}
		choiceID, text, err = pickOption(texts, c.Option)
		if err != nil {
			return err
		}
	}

	if err := controller.SubmitChoice(ctx, state.Stage, choiceID, text); err != nil {
		return err
	}
	fmt.Printf("Chose %s: %s\n", choiceID, text)

	if !c.Wait {
		return nil
	}
	return waitAndReport(ctx, controller, 0)
}

// AdvanceCmd moves from a ready stage to the next one
type AdvanceCmd struct {
	Wait bool `help:"Wait for the final video after the ending" short:"w"`
}

// Run executes the advance command
func (a *AdvanceCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	container, _, err := resume(ctx, cli)
	if err != nil {
		return err
	}
	controller := container.Controller

	if err := controller.Advance(ctx); err != nil {
		return err
	}
	printState(os.Stdout, controller.State(), controller.Session())

	if !a.Wait {
		return nil
	}
	return waitAndReport(ctx, controller, 0)
}

// RedoCmd discards a stage and everything after it
type RedoCmd struct {
	Stage int `arg:"" help:"Stage number (1-5) to redo"`
}

// Run executes the redo command
func (r *RedoCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	index, err := stageIndexFromNumber(r.Stage)
	if err != nil {
		return err
	}

	container, _, err := resume(ctx, cli)
	if err != nil {
		return err
	}
	controller := container.Controller

	if err := controller.RedoStage(ctx, index); err != nil {
		return err
	}
	printState(os.Stdout, controller.State(), controller.Session())
	return nil
}

// WaitCmd blocks until the running generation settles
type WaitCmd struct {
	Timeout time.Duration `help:"Give up after this long (0 waits forever)" default:"0"`
}

// Run executes the wait command
func (w *WaitCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	container, _, err := resume(ctx, cli)
	if err != nil {
		return err
	}
	return waitAndReport(ctx, container.Controller, w.Timeout)
}

// ResetCmd abandons the story in the slot
type ResetCmd struct{}

// Run executes the reset command
func (r *ResetCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	container, err := cli.open(ctx)
	if err != nil {
		return err
	}
	if err := container.Controller.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	fmt.Printf("Slot %q is empty\n", cli.Slot)
	return nil
}

// resume opens the container and restores the slot's session, restarting
// whatever polling its state implies
func resume(ctx context.Context, cli *CLI) (*Container, domain.State, error) {
	container, err := cli.open(ctx)
	if err != nil {
		return nil, domain.State{}, err
	}
	state, err := container.Controller.Resume(ctx)
	if err != nil {
		return nil, state, fmt.Errorf("failed to resume session: %w", err)
	}
	logging.Logger.Debug("Session resumed for command", "slot", cli.Slot, "state", state.String())
	return container, state, nil
}

func loadOptions(ctx context.Context, controller *services.StageController, stageIndex int) ([]string, error) {
	seq, err := controller.LoadOptions(ctx, stageIndex)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// pickOption resolves an option letter (case-insensitive) or a 1-based position
func pickOption(texts []string, option string) (string, string, error) {
	option = strings.ToUpper(strings.TrimSpace(option))
	for i, text := range texts {
		if domain.OptionID(i) == option || strconv.Itoa(i+1) == option {
			return domain.OptionID(i), text, nil
		}
	}
	return "", "", fmt.Errorf("unknown option %q (have %d options)", option, len(texts))
}

func stageIndexFromNumber(n int) (int, error) {
	stage, err := domain.StageAt(n - 1)
	if err != nil {
		return 0, fmt.Errorf("stage must be between 1 and %d: %w", domain.StageCount, err)
	}
	return stage.Index, nil
}

func resolveStyle(flag string, settings *config.Settings) (domain.ArtStyle, error) {
	style := flag
	if style == "" && settings != nil {
		style = settings.DefaultStyle
	}
	if style == "" {
		return domain.ArtStyleWatercolor, nil
	}
	return domain.ParseArtStyle(style)
}

// waitAndReport waits for the generation to settle and prints the outcome
func waitAndReport(ctx context.Context, controller *services.StageController, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	state, err := waitSettled(ctx, controller, os.Stdout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("still generating after %s (%s)", timeout, state)
		}
		return err
	}

	printState(os.Stdout, state, controller.Session())
	if state.Phase == domain.PhaseFailed {
		if state.IsExpired() {
			return fmt.Errorf("%w: %s", domain.ErrSessionExpired, state.Message)
		}
		return fmt.Errorf("generation failed: %s", state.Message)
	}
	return nil
}

// waitSettled blocks until the controller leaves every polling phase,
// printing progress as it arrives
func waitSettled(ctx context.Context, controller *services.StageController, out io.Writer) (domain.State, error) {
	changed := make(chan struct{}, 1)
	controller.OnEvent(func(ev services.Event) {
		if ev.Kind == services.EventProgress {
			label := ev.Message
			if label == "" {
				label = "generating"
			}
			fmt.Fprintf(out, "  %3d%% %s\n", ev.Progress, label)
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer controller.OnEvent(nil)

	for {
		state := controller.State()
		if !state.IsPolling() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-changed:
		}
	}
}

func printState(out io.Writer, state domain.State, session *domain.Session) {
	fmt.Fprintf(out, "State: %s\n", state)
	if session == nil {
		return
	}

	switch state.Phase {
	case domain.PhaseIntroReady, domain.PhaseStageReady:
		stage := domain.Stages[state.Stage]
		if rec := session.Record(state.Stage); rec != nil {
			fmt.Fprintf(out, "\n%s\n", stage.Name)
			if rec.StoryText != "" {
				fmt.Fprintf(out, "%s\n", rec.StoryText)
			}
			fmt.Fprintf(out, "Video: %s\n", rec.ArtifactURL)
		}
	case domain.PhaseAwaitingChoice:
		fmt.Fprintf(out, "Next: %s (see `itory options`)\n", domain.Stages[state.Stage].Question)
	case domain.PhaseAllStagesComplete:
		fmt.Fprintln(out, "Final video not requested yet; `itory wait` retries the request.")
	case domain.PhaseFinalizeComplete:
		fmt.Fprintf(out, "Final video: %s\n", session.FinalArtifact)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
