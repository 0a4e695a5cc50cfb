package scoring

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"curator/internal/suggest"
)

// genericTerms are base-name tokens that carry no identifying value. A
// suggestion built from them is penalized in both convention scoring and the
// adjusted confidence.
var genericTerms = map[string]struct{}{
	"file":     {},
	"document": {},
	"doc":      {},
	"untitled": {},
	"new":      {},
	"data":     {},
	"misc":     {},
	"other":    {},
	"temp":     {},
	"tmp":      {},
	"stuff":    {},
	"copy":     {},
	"item":     {},
	"final":    {},
}

var titleCaser = cases.Title(language.Und)

const (
	maxValueLength       = 255
	nearIdenticalCutoff  = 0.95
	largeFileBytes int64 = 100 << 20
	smallFileBytes int64 = 1 << 20
)

// structuralScore checks that the suggested value is a well-formed filename.
func structuralScore(value string, fctx suggest.FileContext, flags *[]string) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		*flags = append(*flags, FlagEmptyValue)
		return 0
	}

	score := 100.0
	if strings.ContainsAny(trimmed, `/\`) {
		*flags = append(*flags, FlagPathSeparator)
		score -= 60
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			*flags = append(*flags, FlagControlChars)
			score -= 60
			break
		}
	}
	if len(trimmed) > maxValueLength {
		*flags = append(*flags, FlagValueTooLong)
		score -= 40
	}
	if len(trimmed) < 3 {
		score -= 20
	}
	if trimmed != value || strings.HasSuffix(trimmed, ".") {
		score -= 10
	}
	if extensionOf(fctx.OriginalName) != "" && extensionOf(trimmed) == "" {
		*flags = append(*flags, FlagMissingExtension)
		score -= 30
	}
	return clamp(score, 0, 100)
}

// alignmentScore checks that the suggestion agrees with what is known about
// the file: its extension and its size class.
func alignmentScore(value string, fctx suggest.FileContext, flags *[]string) float64 {
	score := 100.0

	wantExt := strings.ToLower(strings.TrimSpace(fctx.Extension))
	if wantExt == "" {
		wantExt = extensionOf(fctx.OriginalName)
	}
	gotExt := extensionOf(value)
	if wantExt != "" && gotExt != "" && gotExt != wantExt {
		*flags = append(*flags, FlagExtensionChanged)
		score -= 50
	} else if wantExt != "" && gotExt == "" {
		score -= 40
	}

	lower := strings.ToLower(value)
	if fctx.Size > 0 {
		claimsLarge := strings.Contains(lower, "large") || strings.Contains(lower, "big")
		claimsSmall := strings.Contains(lower, "small") || strings.Contains(lower, "tiny")
		if (claimsLarge && fctx.Size < smallFileBytes) || (claimsSmall && fctx.Size > largeFileBytes) {
			*flags = append(*flags, FlagSizeTermMismatch)
			score -= 15
		}
	}
	return clamp(score, 0, 100)
}

// consistencyScore checks the AI's reasoning against the value it proposed.
// A rename that barely changes the original name scores low regardless of how
// confident the model was.
func consistencyScore(raw suggest.RawSuggestion, fctx suggest.FileContext, flags *[]string) float64 {
	score := 60.0

	reasoning := strings.TrimSpace(raw.Reasoning)
	if reasoning == "" {
		*flags = append(*flags, FlagMissingReasoning)
		score = 20
	} else {
		if len(reasoning) < 10 {
			*flags = append(*flags, FlagThinReasoning)
			score -= 20
		}
		if overlap := tokenOverlap(raw.Value, reasoning); overlap > 0 {
			score += 40 * overlap
		}
	}

	if similarity(baseName(raw.Value), baseName(fctx.OriginalName)) >= nearIdenticalCutoff {
		*flags = append(*flags, FlagNearIdentical)
		if score > 20 {
			score = 20
		}
	}
	return clamp(score, 0, 100)
}

// conventionScore checks naming discipline: generic terms, separator mixing,
// and casing consistency.
func conventionScore(value string, flags *[]string) float64 {
	score := 100.0
	base := baseName(value)

	for _, token := range tokenize(base) {
		if _, generic := genericTerms[strings.ToLower(token)]; generic {
			*flags = append(*flags, FlagGenericTerm)
			score -= 40
			break
		}
	}

	separators := 0
	for _, sep := range []string{"_", "-", " "} {
		if strings.Contains(base, sep) {
			separators++
		}
	}
	if separators > 1 {
		*flags = append(*flags, FlagMixedSeparators)
		score -= 15
	}

	if !consistentCasing(base) {
		*flags = append(*flags, FlagInconsistentCase)
		score -= 15
	}
	return clamp(score, 0, 100)
}

// isSpecific reports whether the value is descriptive enough to earn the
// specificity bonus: several distinct meaningful tokens and nothing generic.
func isSpecific(value string, flags []string) bool {
	if hasFlag(flags, FlagGenericTerm) || hasFlag(flags, FlagNearIdentical) {
		return false
	}
	tokens := tokenize(baseName(value))
	distinct := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if len(token) >= 3 {
			distinct[strings.ToLower(token)] = struct{}{}
		}
	}
	return len(distinct) >= 3
}

// similarity is a normalized inverse levenshtein distance in [0,1].
func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// tokenOverlap reports the fraction of value tokens that appear in the text.
func tokenOverlap(value, text string) float64 {
	tokens := tokenize(baseName(value))
	if len(tokens) == 0 {
		return 0
	}
	lowerText := strings.ToLower(text)
	matched := 0
	for _, token := range tokens {
		if strings.Contains(lowerText, strings.ToLower(token)) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// consistentCasing accepts all-lower, all-upper, and per-word title casing.
func consistentCasing(base string) bool {
	words := tokenize(base)
	if len(words) == 0 {
		return true
	}
	lower, upper, title := true, true, true
	for _, word := range words {
		if word != strings.ToLower(word) {
			lower = false
		}
		if word != strings.ToUpper(word) {
			upper = false
		}
		if word != titleCaser.String(strings.ToLower(word)) {
			title = false
		}
	}
	return lower || upper || title
}

func tokenize(base string) []string {
	return strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func baseName(value string) string {
	base := strings.TrimSpace(value)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func extensionOf(name string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
}
