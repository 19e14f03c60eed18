package romfile

import (
	"path/filepath"
	"regexp"
	"strings"
)

// TagCategory classifies an annotation stripped from a ROM filename.
type TagCategory string

const (
	TagRegion      TagCategory = "region"
	TagVersion     TagCategory = "version"
	TagTranslation TagCategory = "translation"
	TagDumpGroup   TagCategory = "dump"
	TagMedia       TagCategory = "media"
	TagOther       TagCategory = "other"
)

// Normalized holds the cleaned search title plus the annotations that were
// stripped from it. Tags are kept rather than discarded because region and
// version markers feed scoring bonuses later.
type Normalized struct {
	Clean string
	Tags  map[TagCategory][]string
}

var (
	bracketGroup = regexp.MustCompile(`\[([^]]*)\]`)
	parenGroup   = regexp.MustCompile(`\(([^)]*)\)`)
	separators   = strings.NewReplacer("_", " ", "-", " ", ".", " ")
	spaceRun     = regexp.MustCompile(`\s+`)
)

var regionTokens = map[string]string{
	"usa": "usa", "us": "usa", "u": "usa", "ntsc": "usa", "ntsc-u": "usa",
	"europe": "europe", "eur": "europe", "eu": "europe", "e": "europe", "pal": "europe",
	"japan": "japan", "jpn": "japan", "jp": "japan", "j": "japan", "ntsc-j": "japan",
	"world": "world", "w": "world",
	"australia": "australia", "aus": "australia",
	"korea": "korea", "kor": "korea", "k": "korea",
	"china": "china", "chn": "china",
	"brazil": "brazil", "bra": "brazil",
	"france": "france", "fra": "france", "f": "france",
	"germany": "germany", "ger": "germany", "g": "germany",
	"spain": "spain", "spa": "spain", "s": "spain",
	"italy": "italy", "ita": "italy", "i": "italy",
	"en": "usa", "fr": "france", "de": "germany", "es": "spain", "it": "italy",
}

var dumpCodes = map[string]string{
	"!": "verified", "b": "bad", "o": "overdump", "h": "hack",
	"a": "alternate", "f": "fixed", "t": "trained", "p": "pirate",
}

var mediaMarkers = []string{"disc", "disk", "side", "tape", "cart"}

// Normalize turns a raw ROM filename into a canonical search title. Bracketed
// and parenthetical dump annotations are extracted into Tags, separators are
// normalized to spaces, and whitespace is collapsed. Malformed or empty input
// never errors: the result is an empty Clean string with empty tags.
func Normalize(raw string) Normalized {
	result := Normalized{Tags: make(map[TagCategory][]string)}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return result
	}

	base := filepath.Base(raw)
	if ext := filepath.Ext(base); ext != "" && len(ext) <= 5 && !strings.ContainsAny(ext, " ()[]") {
		base = strings.TrimSuffix(base, ext)
	}

	base = bracketGroup.ReplaceAllStringFunc(base, func(group string) string {
		inner := strings.TrimSpace(strings.Trim(group, "[]"))
		result.addTag(classifyBracket(inner))
		return " "
	})
	base = parenGroup.ReplaceAllStringFunc(base, func(group string) string {
		inner := strings.TrimSpace(strings.Trim(group, "()"))
		result.addTag(classifyParen(inner))
		return " "
	})

	base = separators.Replace(base)
	result.Clean = strings.TrimSpace(spaceRun.ReplaceAllString(base, " "))
	return result
}

func (n *Normalized) addTag(category TagCategory, values []string) {
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if !containsString(n.Tags[category], value) {
			n.Tags[category] = append(n.Tags[category], value)
		}
	}
}

// classifyBracket handles [...] groups: GoodTools-style dump codes plus
// translation markers like T+Eng.
func classifyBracket(inner string) (TagCategory, []string) {
	if inner == "" {
		return TagOther, nil
	}
	lower := strings.ToLower(inner)
	if strings.HasPrefix(lower, "t+") || strings.HasPrefix(lower, "t-") {
		return TagTranslation, []string{lower}
	}
	if code, ok := dumpCodes[strings.TrimRight(lower, "0123456789")]; ok {
		return TagDumpGroup, []string{code}
	}
	if code, ok := dumpCodes[lower]; ok {
		return TagDumpGroup, []string{code}
	}
	return TagOther, []string{lower}
}

// classifyParen handles (...) groups: regions, revisions, media markers.
// Comma-separated region lists ("USA, Europe") split into individual tags.
func classifyParen(inner string) (TagCategory, []string) {
	if inner == "" {
		return TagOther, nil
	}
	lower := strings.ToLower(inner)

	parts := strings.Split(lower, ",")
	regions := make([]string, 0, len(parts))
	for _, part := range parts {
		if canonical, ok := regionTokens[strings.TrimSpace(part)]; ok {
			regions = append(regions, canonical)
		}
	}
	if len(regions) == len(parts) && len(regions) > 0 {
		return TagRegion, regions
	}

	if strings.HasPrefix(lower, "rev") || strings.HasPrefix(lower, "v") && len(lower) > 1 && isDigit(lower[1]) ||
		strings.HasPrefix(lower, "beta") || strings.HasPrefix(lower, "proto") ||
		strings.HasPrefix(lower, "sample") || strings.HasPrefix(lower, "demo") {
		return TagVersion, []string{lower}
	}

	for _, marker := range mediaMarkers {
		if strings.HasPrefix(lower, marker+" ") || lower == marker {
			return TagMedia, []string{lower}
		}
	}

	return TagOther, []string{lower}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
