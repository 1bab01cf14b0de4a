//go:build darwin

package viewer

func findPlatformPlayer(target string) (string, []string) {
	return "open", []string{target}
}
