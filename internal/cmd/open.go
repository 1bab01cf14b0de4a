package cmd

import (
	"context"
	"fmt"

	"github.com/itory/itory/internal/adapters/viewer"
	"github.com/itory/itory/internal/domain"
)

// OpenCmd plays a generated video
type OpenCmd struct {
	Player string `help:"Player command (defaults to $ITORY_PLAYER, $BROWSER, then the platform opener)"`
	Stage  int    `arg:"" optional:"" help:"Stage number (1-5); defaults to the final video, or the latest ready stage"`
}

// Run executes the open command
func (o *OpenCmd) Run(cli *CLI) error {
	container, err := cli.open(context.Background())
	if err != nil {
		return err
	}

	session, _ := container.SessionStore.Load(context.Background())
	target, err := videoFor(session, o.Stage)
	if err != nil {
		return err
	}
	return viewer.NewOpener(o.Player).Open(target)
}

// videoFor picks the artifact of stage number n, or the most advanced video
// available when n is zero
func videoFor(session *domain.Session, n int) (string, error) {
	if session == nil {
		return "", fmt.Errorf("no story in progress")
	}

	if n != 0 {
		index, err := stageIndexFromNumber(n)
		if err != nil {
			return "", err
		}
		rec := session.Record(index)
		if rec == nil || !rec.Completed || rec.ArtifactURL == "" {
			return "", fmt.Errorf("stage %d has no video yet", n)
		}
		return rec.ArtifactURL, nil
	}

	if session.FinalArtifact != "" {
		return session.FinalArtifact, nil
	}
	for i := domain.LastStageIndex; i >= 0; i-- {
		if rec := session.Record(i); rec != nil && rec.Completed && rec.ArtifactURL != "" {
			return rec.ArtifactURL, nil
		}
	}
	return "", fmt.Errorf("no video generated yet")
}
