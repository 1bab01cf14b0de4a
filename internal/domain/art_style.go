package domain

import "fmt"

// ArtStyle is the visual style the generation service renders a story in
type ArtStyle string

const (
	ArtStyleCartoon2D  ArtStyle = "cartoon_2d"
	ArtStyleCartoon3D  ArtStyle = "cartoon_3d"
	ArtStylePixar      ArtStyle = "pixar"
	ArtStyleRealistic  ArtStyle = "realistic"
	ArtStyleWatercolor ArtStyle = "watercolor"
)

// ArtStyles lists the supported styles with display names
var ArtStyles = []struct {
	Name  string
	Style ArtStyle
}{
	{Style: ArtStyleRealistic, Name: "Realistic"},
	{Style: ArtStyleCartoon2D, Name: "2D animation"},
	{Style: ArtStyleCartoon3D, Name: "3D cartoon"},
	{Style: ArtStylePixar, Name: "Pixar style"},
	{Style: ArtStyleWatercolor, Name: "Watercolor"},
}

// ParseArtStyle validates a style identifier
func ParseArtStyle(s string) (ArtStyle, error) {
	for _, st := range ArtStyles {
		if string(st.Style) == s {
			return st.Style, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownArtStyle, s)
}
