//go:build windows

package viewer

func findPlatformPlayer(target string) (string, []string) {
	return "rundll32", []string{"url.dll,FileProtocolHandler", target}
}
