// Package romfile discovers ROM files and turns their names into canonical
// search titles.
//
// Normalization strips dump annotations (region, revision, translation, and
// dump-group tags) into a structured side-channel instead of discarding them,
// and Variants produces the alternate spellings (Roman numerals, numeral
// words) the search strategies fan out over.
package romfile
