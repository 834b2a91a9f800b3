package dedupe

import (
	"strings"
	"testing"
)

func TestNormalizeTextLowercasesAndStripsPunctuation(t *testing.T) {
	got := NormalizeText("Hello,   World! Café.")
	if strings.Contains(got, ",") || strings.Contains(got, "!") || strings.Contains(got, ".") {
		t.Errorf("punctuation not stripped: %q", got)
	}
	if got != strings.ToLower(got) {
		t.Errorf("expected lowercase output, got %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestNormalizeTextDeterministic(t *testing.T) {
	text := "The Quick Brown Fox Jumps Over the Lazy Dog!!"
	a := NormalizeText(text)
	b := NormalizeText(text)
	if a != b {
		t.Fatalf("normalization is not deterministic: %q vs %q", a, b)
	}
}

func TestShinglesWordLevelThree(t *testing.T) {
	shingles := Shingles("a b c d")
	want := map[string]bool{"a b c": true, "b c d": true}
	if len(shingles) != 2 {
		t.Fatalf("expected 2 shingles, got %d: %v", len(shingles), shingles)
	}
	for _, s := range shingles {
		if !want[s] {
			t.Errorf("unexpected shingle %q", s)
		}
	}
}

func TestShinglesShortTextYieldsNone(t *testing.T) {
	if got := Shingles("a b"); got != nil {
		t.Errorf("expected no shingles for <3 words, got %v", got)
	}
}

func TestEngineExactDuplicate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 5)

	first := e.CheckAndRegister("entry-1", text)
	if first.IsExact || first.IsNear {
		t.Fatalf("first registration should not be a duplicate: %+v", first)
	}

	second := e.CheckAndRegister("entry-2", text)
	if !second.IsExact {
		t.Fatalf("identical text should be an exact duplicate: %+v", second)
	}
	if second.DuplicateOf != "entry-1" {
		t.Errorf("duplicate_of = %q, want entry-1", second.DuplicateOf)
	}
	if second.Similarity != 1.0 {
		t.Errorf("similarity = %v, want 1.0", second.Similarity)
	}
}

func TestEngineNearDuplicateRegistersHashNotLSH(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := "russia launches new offensive near the eastern border town today amid rising tensions across the region"
	near := base + " overnight"

	first := e.CheckAndRegister("entry-1", base)
	if first.IsExact || first.IsNear {
		t.Fatalf("first registration should be fresh: %+v", first)
	}

	second := e.CheckAndRegister("entry-2", near)
	if second.IsExact {
		t.Fatalf("near-duplicate must not be classified exact")
	}
	if second.IsNear {
		if second.DuplicateOf != "entry-1" {
			t.Errorf("duplicate_of = %q, want entry-1", second.DuplicateOf)
		}
		// A near-duplicate is NOT inserted into the LSH index, so a third
		// text similar only to entry-2 (not entry-1) must not match it
		// through entry-2.
		stats := e.Stats()
		if stats.LSHEntries != 1 {
			t.Errorf("expected exactly 1 LSH entry (entry-1 only), got %d", stats.LSHEntries)
		}
	}
}

func TestEngineDistinctTextsAreNotDuplicates(t *testing.T) {
	e := NewEngine(DefaultConfig())
	a := e.CheckAndRegister("entry-1", "completely unrelated story about agricultural subsidies in the midwest farming regions")
	b := e.CheckAndRegister("entry-2", "a totally different report concerning semiconductor export controls and trade policy")
	if a.IsExact || a.IsNear || b.IsExact || b.IsNear {
		t.Fatalf("unrelated texts must not be flagged as duplicates: a=%+v b=%+v", a, b)
	}
}

func TestMinHashJaccardIdenticalSignatures(t *testing.T) {
	perms := permutations(64)
	mh1 := NewMinHash([]string{"a b c", "b c d"}, perms)
	mh2 := NewMinHash([]string{"a b c", "b c d"}, perms)
	if got := mh1.Jaccard(mh2); got != 1.0 {
		t.Errorf("identical shingle sets should yield Jaccard 1.0, got %v", got)
	}
}

func TestComputeContentHashDeterministic(t *testing.T) {
	h1 := ComputeContentHash("Some Article Text.")
	h2 := ComputeContentHash("some article text")
	if h1 != h2 {
		t.Errorf("normalization should make these hash equal: %q vs %q", h1, h2)
	}
}
