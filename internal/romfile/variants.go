package romfile

import "strings"

var romanToArabic = map[string]string{
	"i": "1", "ii": "2", "iii": "3", "iv": "4", "v": "5",
	"vi": "6", "vii": "7", "viii": "8", "ix": "9", "x": "10",
}

var arabicToRoman = map[string]string{
	"1": "i", "2": "ii", "3": "iii", "4": "iv", "5": "v",
	"6": "vi", "7": "vii", "8": "viii", "9": "ix", "10": "x",
}

var wordToDigit = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
}

var digitToWord = map[string]string{
	"0": "zero", "1": "one", "2": "two", "3": "three", "4": "four",
	"5": "five", "6": "six", "7": "seven", "8": "eight", "9": "nine", "10": "ten",
}

// Variants returns alternate spellings of a cleaned title for search and
// comparison. The original title is always first; substitutions cover
// Roman/Arabic numerals (I through X) and numeral words (zero through ten).
// Substituted tokens preserve the casing style of the source token.
func Variants(clean string) []string {
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil
	}

	variants := []string{clean}
	for _, table := range []map[string]string{romanToArabic, arabicToRoman, wordToDigit, digitToWord} {
		if variant, ok := substituteTokens(clean, table); ok {
			variants = appendUnique(variants, variant)
		}
	}
	return variants
}

func substituteTokens(title string, table map[string]string) (string, bool) {
	tokens := strings.Fields(title)
	changed := false
	for i, token := range tokens {
		replacement, ok := table[strings.ToLower(token)]
		if !ok {
			continue
		}
		tokens[i] = matchCase(replacement, token)
		changed = true
	}
	if !changed {
		return "", false
	}
	return strings.Join(tokens, " "), true
}

// matchCase applies the source token's casing style to the replacement so
// "VII" becomes "7" and "seven" in "Final Fantasy Seven" becomes "7" without
// mangling display titles. A digit source has no casing of its own; Roman
// numerals replacing it follow the "II"/"VII" convention while number words
// stay lowercase.
func matchCase(replacement, source string) string {
	if replacement == "" || source == "" {
		return replacement
	}
	if isDigits(source) {
		if _, roman := romanToArabic[strings.ToLower(replacement)]; roman {
			return strings.ToUpper(replacement)
		}
		return replacement
	}
	if source == strings.ToUpper(source) && len(source) > 1 {
		return strings.ToUpper(replacement)
	}
	if source[0] >= 'A' && source[0] <= 'Z' {
		return strings.ToUpper(replacement[:1]) + replacement[1:]
	}
	return replacement
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func appendUnique(values []string, candidate string) []string {
	for _, value := range values {
		if strings.EqualFold(value, candidate) {
			return values
		}
	}
	return append(values, candidate)
}
