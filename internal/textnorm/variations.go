package textnorm

import (
	"regexp"
	"sort"
	"strings"
)

// methodTerms are method descriptors and connective stopwords commonly
// embedded in exam names. Stripping them yields the bare analyte name,
// which is what the curated base fingerprints.
var methodTerms = []string{
	"alta sensibilidade", "ultra sensivel", "ultra-sensivel", "automatizado",
	"dosagem", "quantificacao", "determinacao", "analise", "confirmacao",
	"h.p.l.c", "hplc", "quimioluminescencia", "eletroquimioluminescencia",
	"imunoturbidimetria", "nefelometria", "colorimetrico", "cinetico",
	"elisa", "enzimatico", "por", "soro", "plasma", "basal", "total",
	"livre", "indireta", "direta", "reverso", "fracoes",
	"hormonio", "vitamina", "de", "e", "para",
}

var parenthesesRE = regexp.MustCompile(`\((.*?)\)`)

// Variations expands a descriptor into the ordered list of match attempts
// used by the deterministic fast path:
//
//  1. the original text lowercased
//  2. the folded form (accents stripped)
//  3. parenthesized acronyms, and the text with the parenthetical removed
//  4. the folded form with method modifiers stripped
//  5. trigrams, bigrams, then individual tokens
//
// Order matters: earlier entries are more specific, and the first
// fingerprint hit wins. Duplicates are removed preserving order.
func Variations(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var candidates []string
	lower := strings.ToLower(text)
	candidates = append(candidates, lower)

	folded := Fold(text)
	candidates = append(candidates, folded)

	if m := parenthesesRE.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if inner != "" {
			candidates = append(candidates, strings.ToLower(inner), Fold(inner))
			without := strings.TrimSpace(strings.Replace(text, "("+m[1]+")", "", 1))
			if without != "" {
				candidates = append(candidates, strings.ToLower(without), Fold(without))
			}
		}
	}

	if stripped := stripMethodTerms(folded); stripped != "" && stripped != folded {
		candidates = append(candidates, stripped)
	}

	tokens := Tokens(folded)
	if len(tokens) > 1 {
		candidates = append(candidates, ngrams(tokens, 3)...)
		candidates = append(candidates, ngrams(tokens, 2)...)
		for _, tok := range tokens {
			if len(tok) > 1 && !isStopToken(tok) {
				candidates = append(candidates, tok)
			}
		}
	}

	return dedupe(candidates)
}

func stripMethodTerms(folded string) string {
	terms := append([]string(nil), methodTerms...)
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })

	out := folded
	changed := false
	for _, term := range terms {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
		if re.MatchString(out) {
			out = re.ReplaceAllString(out, " ")
			changed = true
		}
	}
	if !changed {
		return folded
	}
	return strings.TrimSpace(spaceRE.ReplaceAllString(out, " "))
}

func ngrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}

func isStopToken(tok string) bool {
	switch tok {
	case "de", "da", "do", "em":
		return true
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
