package media

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// TitleFromRef derives a human readable title from a media reference when the
// caller did not supply one. Separators become spaces and each word is
// title-cased, so "road_trip-day2.mp4" yields "Road Trip Day2".
func TitleFromRef(ref string) string {
	base := filepath.Base(strings.TrimSpace(ref))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return titleCaser.String(base)
}
