package ui

import (
	"fmt"

	"github.com/itory/itory/internal/theme"
	"github.com/itory/itory/internal/version"
)

// renderHeader renders the app name, the tagline and an optional subtitle.
// In dev mode the build information follows the app name.
func renderHeader(devMode bool, subtitle string) string {
	appNameLine := theme.AppNameStyle.Render("itory")
	if devMode {
		commit := version.Commit
		if len(commit) > 7 {
			commit = commit[:7] // Short commit hash
		}
		appNameLine += theme.VersionStyle.Render(fmt.Sprintf(" %s | %s | %s | %s",
			version.Version,
			commit,
			version.Date,
			version.GoVersion))
	}

	result := appNameLine + "\n"
	result += theme.TaglineStyle.Render(version.Tagline)

	if subtitle != "" {
		result += "\n\n" + theme.SubtitleStyle.Render(subtitle)
	}

	result += "\n"
	return result
}
