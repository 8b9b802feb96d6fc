package embedder

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// wordPattern matches runs of two or more word characters. RE2's \w and \b
// are ASCII-only, so letters are spelled out to keep accented Spanish words whole.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// analyzeWords lowercases text and extracts word tokens of length >= 2.
func analyzeWords(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(norm.NFC.String(text)), -1)
}

// analyzeFields splits on whitespace and keeps case.
func analyzeFields(text string) []string {
	return strings.Fields(norm.NFC.String(text))
}
