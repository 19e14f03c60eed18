// Package matching turns scanned file titles into metadata matches. It
// builds the ordered query strategies for a title, scores candidate pools
// with a composite additive scorer, and falls back to a standalone
// Jaro-Winkler fuzzy path when no candidate clears the composite threshold.
package matching
