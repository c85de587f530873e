package textnorm

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	spaceRE         = regexp.MustCompile(`\s+`)
	lineBreakRE     = regexp.MustCompile(`[\n\r\t]+`)
)

// Fold removes accents, lowercases, and collapses whitespace runs to a
// single space. Line breaks and tabs normalize to spaces first so that
// multi-line source cells fingerprint identically to their single-line
// forms.
func Fold(text string) string {
	if text == "" {
		return ""
	}
	text = lineBreakRE.ReplaceAllString(text, " ")
	folded, _, err := transform.String(foldTransformer, text)
	if err != nil {
		folded = text
	}
	folded = spaceRE.ReplaceAllString(folded, " ")
	return strings.ToLower(strings.TrimSpace(folded))
}

// Hash returns the hex MD5 of the text as-is. Variation generation is
// responsible for producing the folded forms before hashing.
func Hash(text string) string {
	if text == "" {
		return ""
	}
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is the canonical deterministic hash of a descriptor: the MD5
// of its folded form.
func Fingerprint(text string) string {
	folded := Fold(text)
	if folded == "" {
		return ""
	}
	return Hash(folded)
}

// Tokens splits folded text on the separators found in exam descriptors.
func Tokens(folded string) []string {
	parts := tokenSplitRE.Split(folded, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

var tokenSplitRE = regexp.MustCompile(`[;+/\n\r\s-]+`)
