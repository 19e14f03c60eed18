package romfile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayTitle renders a cleaned title for human-facing output. Titles that
// are entirely lower case get title casing; mixed-case input is trusted as
// intentional.
func DisplayTitle(clean string) string {
	trimmed := strings.TrimSpace(clean)
	if trimmed == "" {
		return "Unknown Title"
	}
	if trimmed == strings.ToLower(trimmed) {
		return cases.Title(language.Und).String(trimmed)
	}
	return trimmed
}
