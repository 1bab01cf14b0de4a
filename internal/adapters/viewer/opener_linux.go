//go:build linux

package viewer

import "os/exec"

var defaultPlayers = []string{
	"xdg-open",
	"mpv",
	"vlc",
}

func findPlatformPlayer(target string) (string, []string) {
	for _, player := range defaultPlayers {
		if _, err := exec.LookPath(player); err == nil {
			return player, []string{target}
		}
	}
	return "", nil
}
