package theme

import "github.com/charmbracelet/lipgloss"

// Color is an alias for lipgloss.Color for convenience
type Color = lipgloss.Color

// Brand colors
const (
	ColorPrimary   Color = "99" // Purple - app name, titles
	ColorSecondary Color = "86" // Cyan - subtitles
)

// Phase colors
const (
	ColorFailed  Color = "1"   // Red - generation failed or expired
	ColorPolling Color = "3"   // Yellow - generating
	ColorReady   Color = "2"   // Green - stage ready
	ColorWaiting Color = "141" // Purple - waiting for the user
)

// UI semantic colors
const (
	ColorError     Color = "196" // Bright red
	ColorHighlight Color = "255" // White - emphasis
	ColorMuted     Color = "241" // Gray - secondary text
	ColorNormal    Color = "250" // Default text
	ColorSubtle    Color = "245" // Light gray - labels
	ColorVersion   Color = "240" // Dark gray
)

// Accent colors
const (
	ColorProgressEnd   Color = "#EE6FF8"
	ColorProgressStart Color = "#5A56E0"
	ColorSpinner       Color = "205" // Pink
)
