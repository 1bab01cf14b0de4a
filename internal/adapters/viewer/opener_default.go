//go:build !darwin && !linux && !windows

package viewer

func findPlatformPlayer(target string) (string, []string) {
	return "", nil
}
