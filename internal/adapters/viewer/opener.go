// Package viewer opens generated videos in an external player
package viewer

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"

	"github.com/itory/itory/internal/logging"
)

// Opener launches a video player for an artifact URL
type Opener struct {
	player string
}

// NewOpener creates an opener. An empty player falls back to the environment
// and then to the platform default.
func NewOpener(player string) *Opener {
	return &Opener{player: player}
}

// Open starts the player on target without waiting for it to exit
func (o *Opener) Open(target string) error {
	if target == "" {
		return fmt.Errorf("no video to open")
	}
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file") {
		return fmt.Errorf("not a playable video URL: %q", target)
	}

	player, args := o.findPlayer(target)
	if player == "" {
		return fmt.Errorf("no video player found. Set --player or $ITORY_PLAYER")
	}

	logging.Logger.Info("Opening video", "player", player, "url", target)

	cmd := exec.Command(player, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			logging.Logger.Warn("Player exited with error", "error", err, "player", player)
		}
	}()

	return nil
}

func (o *Opener) findPlayer(target string) (string, []string) {
	// Priority: flag, $ITORY_PLAYER, $BROWSER, platform default
	if o.player != "" {
		return o.player, []string{target}
	}
	if player := os.Getenv("ITORY_PLAYER"); player != "" {
		return player, []string{target}
	}
	if browser := os.Getenv("BROWSER"); browser != "" {
		return browser, []string{target}
	}
	return findPlatformPlayer(target)
}
