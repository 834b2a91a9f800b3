// Package dedupe implements the per-run, in-memory exact + near-duplicate
// detection engine (spec.md §4.4).
package dedupe

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRunsRe    = regexp.MustCompile(`\s+`)
	nonAlnumSpaceRe     = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// NormalizeText applies the deterministic normalization pipeline used for
// both exact hashing and MinHash shingling (spec.md §4.4): lowercase →
// Unicode NFKD → collapse whitespace → strip non-alphanumeric/space.
func NormalizeText(text string) string {
	lowered := strings.ToLower(text)
	decomposed := nfkd(lowered)
	collapsed := whitespaceRunsRe.ReplaceAllString(decomposed, " ")
	stripped := nonAlnumSpaceRe.ReplaceAllString(collapsed, "")
	return strings.TrimSpace(stripped)
}

// nfkd applies Unicode NFKD normalization, dropping any combining marks
// produced so the result matches Python's unicodedata.normalize("NFKD", ..)
// followed by the caller's ASCII-biased downstream regex (both treat
// decomposed accents as separate, strippable code points).
func nfkd(s string) string {
	t := transform.Chain(norm.NFKD, dropCombiningMarks{})
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// dropCombiningMarks removes Unicode combining marks left over after NFKD
// decomposition (e.g. "é" → "e" + U+0301 → "e").
type dropCombiningMarks struct{ transform.NopResetter }

func (dropCombiningMarks) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size <= 1 {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			size = 1
		}
		if !unicode.Is(unicode.Mn, r) {
			if nDst+size > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			n := copy(dst[nDst:], src[nSrc:nSrc+size])
			nDst += n
		}
		nSrc += size
	}
	return nDst, nSrc, nil
}

// Shingles returns the word-level 3-shingles of normalized text
// (spec.md §4.4).
func Shingles(normalized string) []string {
	words := strings.Fields(normalized)
	if len(words) < 3 {
		return nil
	}
	set := make(map[string]struct{})
	for i := 0; i+3 <= len(words); i++ {
		set[strings.Join(words[i:i+3], " ")] = struct{}{}
	}
	shingles := make([]string, 0, len(set))
	for s := range set {
		shingles = append(shingles, s)
	}
	return shingles
}
