package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/itory/itory/internal/domain"
)

// StatusCmd shows the persisted session of the slot without resuming it
type StatusCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
	Remote bool   `help:"Also fetch the live job status from the generation service"`
}

type statusStage struct {
	Choice    string `json:"choice,omitempty"`
	Completed bool   `json:"completed"`
	Name      string `json:"name"`
	Number    int    `json:"number"`
	Video     string `json:"video,omitempty"`
}

type statusReport struct {
	FinalVideo string            `json:"final_video,omitempty"`
	JobID      string            `json:"job_id,omitempty"`
	Remote     *domain.JobStatus `json:"remote,omitempty"`
	Slot       string            `json:"slot"`
	Stages     []statusStage     `json:"stages"`
	State      string            `json:"state"`
}

// Run executes the status command
func (s *StatusCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	container, err := cli.open(ctx)
	if err != nil {
		return err
	}

	session, state := container.SessionStore.Load(ctx)
	report := buildStatusReport(cli.Slot, session, state)

	if s.Remote && session != nil {
		status, err := container.Client.Status(ctx, session.JobID)
		if err != nil {
			return fmt.Errorf("failed to fetch job status: %w", err)
		}
		report.Remote = status
	}

	if s.Format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	renderStatus(os.Stdout, report)
	return nil
}

func buildStatusReport(slot string, session *domain.Session, state domain.State) statusReport {
	report := statusReport{Slot: slot, State: state.String(), Stages: []statusStage{}}
	if session == nil {
		return report
	}

	report.JobID = session.JobID
	report.FinalVideo = session.FinalArtifact
	for _, stage := range domain.Stages {
		rec := session.Record(stage.Index)
		if rec == nil {
			continue
		}
		row := statusStage{
			Completed: rec.Completed,
			Name:      stage.Name,
			Number:    stage.Number(),
			Video:     rec.ArtifactURL,
		}
		if rec.Choice != nil {
			row.Choice = fmt.Sprintf("%s: %s", rec.Choice.ID, rec.Choice.Text)
		}
		report.Stages = append(report.Stages, row)
	}
	return report
}

func renderStatus(out io.Writer, report statusReport) {
	fmt.Fprintf(out, "Slot:  %s\n", report.Slot)
	fmt.Fprintf(out, "State: %s\n", report.State)
	if report.JobID == "" {
		fmt.Fprintln(out, "No story in progress. Start one with `itory start <title>` or `itory play`.")
		return
	}
	fmt.Fprintf(out, "Job:   %s\n\n", report.JobID)

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"#", "Stage", "Choice", "Status", "Video"})
	for _, st := range report.Stages {
		status := "waiting for choice"
		switch {
		case st.Completed:
			status = "ready"
		case st.Choice != "" || st.Number == 1:
			status = "generating"
		}
		tw.AppendRow(table.Row{st.Number, st.Name, st.Choice, status, st.Video})
	}
	tw.Render()

	if report.FinalVideo != "" {
		fmt.Fprintf(out, "\nFinal video: %s\n", report.FinalVideo)
	}
	if report.Remote != nil {
		fmt.Fprintf(out, "\nService: %s %d%% %s (checked %s)\n",
			report.Remote.Status, report.Remote.ClampedProgress(), report.Remote.CurrentMessage,
			time.Now().Format(time.Kitchen))
	}
}
