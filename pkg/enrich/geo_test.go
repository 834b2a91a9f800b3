package enrich

import (
	"testing"

	"github.com/flashpointintel/pipeline/pkg/model"
)

func TestResolveCountryOverridesBeforeGeneral(t *testing.T) {
	rec, ok := resolveCountry("USA")
	if !ok || rec.alpha3 != "USA" {
		t.Fatalf("expected USA override to resolve, got %+v ok=%v", rec, ok)
	}
	rec, ok = resolveCountry("Great Britain")
	if !ok || rec.alpha2 != "GB" {
		t.Fatalf("expected Great Britain to resolve to GB, got %+v", rec)
	}
}

func TestResolveCountryUnknownReturnsFalse(t *testing.T) {
	if _, ok := resolveCountry("Narnia"); ok {
		t.Errorf("expected unknown place name to not resolve")
	}
}

func TestExtractGeoEntitiesSortsByCountDesc(t *testing.T) {
	entities := map[string][]model.NamedEntity{
		"GPE": {
			{Text: "France", Score: 0.9},
			{Text: "Germany", Score: 0.8},
			{Text: "Germany", Score: 0.7},
		},
	}
	got := ExtractGeoEntities(entities, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 countries, got %d: %+v", len(got), got)
	}
	if got[0].Alpha3 != "DEU" || got[0].Count != 2 {
		t.Errorf("expected Germany ranked first with count 2, got %+v", got[0])
	}
}

func TestExtractGeoEntitiesSourceCountryFallback(t *testing.T) {
	got := ExtractGeoEntities(map[string][]model.NamedEntity{}, "Russia")
	if len(got) != 1 {
		t.Fatalf("expected 1 entry from source country fallback, got %d", len(got))
	}
	if got[0].AvgScore != 0.5 {
		t.Errorf("expected lower-confidence fallback score 0.5, got %v", got[0].AvgScore)
	}
}

func TestExtractGeoEntitiesSourceCountryNotDuplicated(t *testing.T) {
	entities := map[string][]model.NamedEntity{
		"LOC": {{Text: "Russia", Score: 0.95}},
	}
	got := ExtractGeoEntities(entities, "Russia")
	if len(got) != 1 {
		t.Fatalf("expected source country not duplicated, got %d entries", len(got))
	}
	if got[0].AvgScore != 0.95 {
		t.Errorf("expected NER score to take precedence over fallback, got %v", got[0].AvgScore)
	}
}
