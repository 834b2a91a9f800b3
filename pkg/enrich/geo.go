// Package enrich implements the post-extraction enrichment fan-out
// (spec.md §4.6 step 5): geo-entity resolution and image collection. The
// ML-backed steps (language detection, translation, NER) are consumed
// through injected interfaces — this package owns the deterministic glue
// around them, not the models themselves.
package enrich

import (
	"sort"
	"strings"

	"github.com/flashpointintel/pipeline/pkg/model"
)

type countryRecord struct {
	name   string
	alpha2 string
	alpha3 string
}

// nameOverrides resolves common name variants pycountry's exact/fuzzy
// match misses, ported verbatim from original_source's _NAME_OVERRIDES.
var nameOverrides = map[string]countryRecord{
	"usa":                      {"United States", "US", "USA"},
	"u.s.":                     {"United States", "US", "USA"},
	"u. s.":                    {"United States", "US", "USA"},
	"u.s.a.":                   {"United States", "US", "USA"},
	"united states of america": {"United States", "US", "USA"},
	"united states":            {"United States", "US", "USA"},
	"america":                  {"United States", "US", "USA"},
	"uk":                       {"United Kingdom", "GB", "GBR"},
	"u.k.":                     {"United Kingdom", "GB", "GBR"},
	"britain":                  {"United Kingdom", "GB", "GBR"},
	"great britain":            {"United Kingdom", "GB", "GBR"},
	"england":                  {"United Kingdom", "GB", "GBR"},
	"russia":                   {"Russia", "RU", "RUS"},
	"south korea":              {"South Korea", "KR", "KOR"},
	"north korea":              {"North Korea", "KP", "PRK"},
	"iran":                     {"Iran", "IR", "IRN"},
	"syria":                    {"Syria", "SY", "SYR"},
	"palestine":                {"Palestine", "PS", "PSE"},
	"taiwan":                   {"Taiwan", "TW", "TWN"},
	"czech republic":           {"Czechia", "CZ", "CZE"},
	"ivory coast":              {"Côte d'Ivoire", "CI", "CIV"},
	"congo":                    {"Congo", "CG", "COG"},
	"dr congo":                 {"DR Congo", "CD", "COD"},
	"drc":                      {"DR Congo", "CD", "COD"},
	"uae":                      {"United Arab Emirates", "AE", "ARE"},
}

// generalCountries is a standalone alpha-2/alpha-3 table covering the
// countries that commonly appear as NER hits in news text. It is a scoped
// subset rather than the full ISO-3166 list (no ecosystem ISO country
// package exists in the retrieved pack to port in full — ambient,
// justified as a stdlib-only table) but resolves by exact or common name
// the way pycountry.countries.get(name=...)/get(common_name=...) would.
var generalCountries = map[string]countryRecord{
	"china":         {"China", "CN", "CHN"},
	"japan":         {"Japan", "JP", "JPN"},
	"india":         {"India", "IN", "IND"},
	"germany":       {"Germany", "DE", "DEU"},
	"france":        {"France", "FR", "FRA"},
	"italy":         {"Italy", "IT", "ITA"},
	"spain":         {"Spain", "ES", "ESP"},
	"brazil":        {"Brazil", "BR", "BRA"},
	"canada":        {"Canada", "CA", "CAN"},
	"mexico":        {"Mexico", "MX", "MEX"},
	"australia":     {"Australia", "AU", "AUS"},
	"ukraine":       {"Ukraine", "UA", "UKR"},
	"poland":        {"Poland", "PL", "POL"},
	"turkey":        {"Turkey", "TR", "TUR"},
	"israel":        {"Israel", "IL", "ISR"},
	"egypt":         {"Egypt", "EG", "EGY"},
	"saudi arabia":  {"Saudi Arabia", "SA", "SAU"},
	"pakistan":      {"Pakistan", "PK", "PAK"},
	"indonesia":     {"Indonesia", "ID", "IDN"},
	"nigeria":       {"Nigeria", "NG", "NGA"},
	"south africa":  {"South Africa", "ZA", "ZAF"},
	"argentina":     {"Argentina", "AR", "ARG"},
	"sweden":        {"Sweden", "SE", "SWE"},
	"norway":        {"Norway", "NO", "NOR"},
	"finland":       {"Finland", "FI", "FIN"},
	"netherlands":   {"Netherlands", "NL", "NLD"},
	"belgium":       {"Belgium", "BE", "BEL"},
	"switzerland":   {"Switzerland", "CH", "CHE"},
	"greece":        {"Greece", "GR", "GRC"},
	"portugal":      {"Portugal", "PT", "PRT"},
	"austria":       {"Austria", "AT", "AUT"},
	"afghanistan":   {"Afghanistan", "AF", "AFG"},
	"iraq":          {"Iraq", "IQ", "IRQ"},
	"yemen":         {"Yemen", "YE", "YEM"},
	"lebanon":       {"Lebanon", "LB", "LBN"},
	"jordan":        {"Jordan", "JO", "JOR"},
	"vietnam":       {"Vietnam", "VN", "VNM"},
	"thailand":      {"Thailand", "TH", "THA"},
	"philippines":   {"Philippines", "PH", "PHL"},
	"colombia":      {"Colombia", "CO", "COL"},
	"venezuela":     {"Venezuela", "VE", "VEN"},
	"chile":         {"Chile", "CL", "CHL"},
	"ethiopia":      {"Ethiopia", "ET", "ETH"},
	"kenya":         {"Kenya", "KE", "KEN"},
	"sudan":         {"Sudan", "SD", "SDN"},
	"somalia":       {"Somalia", "SO", "SOM"},
	"libya":         {"Libya", "LY", "LBY"},
	"serbia":        {"Serbia", "RS", "SRB"},
	"georgia":       {"Georgia", "GE", "GEO"},
	"armenia":       {"Armenia", "AM", "ARM"},
	"azerbaijan":    {"Azerbaijan", "AZ", "AZE"},
	"kazakhstan":    {"Kazakhstan", "KZ", "KAZ"},
}

// resolveCountry resolves a location name to a country record, checking
// the override table before the general table (spec.md/original_source
// order: overrides first, then exact/common-name lookup).
func resolveCountry(name string) (countryRecord, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if rec, ok := nameOverrides[key]; ok {
		return rec, true
	}
	if rec, ok := generalCountries[key]; ok {
		return rec, true
	}
	return countryRecord{}, false
}

// ExtractGeoEntities resolves LOC/GPE NER hits (plus an optional
// source-country fallback) to country records (spec.md §4.6 step 5).
// Results are sorted by mention count descending; the source country is
// included only as a lower-confidence fallback when not already present.
func ExtractGeoEntities(entities map[string][]model.NamedEntity, sourceCountry string) []model.GeoEntity {
	type accum struct {
		rec    countryRecord
		scores []float64
		count  int
	}
	byAlpha3 := make(map[string]*accum)
	order := make([]string, 0)

	for _, category := range []string{"LOC", "GPE"} {
		for _, ent := range entities[category] {
			if ent.Text == "" {
				continue
			}
			rec, ok := resolveCountry(ent.Text)
			if !ok {
				continue
			}
			a, exists := byAlpha3[rec.alpha3]
			if !exists {
				a = &accum{rec: rec}
				byAlpha3[rec.alpha3] = a
				order = append(order, rec.alpha3)
			}
			a.scores = append(a.scores, ent.Score)
			a.count++
		}
	}

	if sourceCountry != "" {
		if rec, ok := resolveCountry(sourceCountry); ok {
			if _, exists := byAlpha3[rec.alpha3]; !exists {
				byAlpha3[rec.alpha3] = &accum{rec: rec, scores: []float64{0.5}, count: 1}
				order = append(order, rec.alpha3)
			}
		}
	}

	out := make([]model.GeoEntity, 0, len(order))
	for _, alpha3 := range order {
		a := byAlpha3[alpha3]
		var sum float64
		for _, s := range a.scores {
			sum += s
		}
		avg := 0.0
		if len(a.scores) > 0 {
			avg = sum / float64(len(a.scores))
		}
		out = append(out, model.GeoEntity{
			Name:     a.rec.name,
			Count:    a.count,
			Alpha2:   a.rec.alpha2,
			Alpha3:   a.rec.alpha3,
			AvgScore: avg,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
