package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/flashpointintel/pipeline/pkg/model"
)

var isoLanguageRe = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// LanguageDetector identifies the dominant language of text.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// Translator translates text into English. A no-op implementation is
// acceptable when no translation model is configured (spec.md §4.6 step 2).
type Translator interface {
	TranslateToEnglish(ctx context.Context, text, sourceLang string) (string, error)
}

// NERExtractor extracts named entities grouped by category (LOC, GPE,
// PERSON, ORG, ...).
type NERExtractor interface {
	Extract(ctx context.Context, text string) (map[string][]model.NamedEntity, error)
}

// Enricher drives the fan-out enrichment order for a single entry
// (spec.md §4.6 steps 1-6; step 7's dedupe-check and Job transition are
// the orchestrator's responsibility since they need run-scoped state).
type Enricher struct {
	langDetector LanguageDetector
	translator   Translator
	ner          NERExtractor
	log          *logrus.Logger
}

// NewEnricher builds an Enricher. Any of langDetector/translator/ner may
// be nil, in which case that step is skipped without failing the entry
// (spec.md §4.6: "failures here are warnings, not fatal").
func NewEnricher(langDetector LanguageDetector, translator Translator, ner NERExtractor, log *logrus.Logger) *Enricher {
	return &Enricher{langDetector: langDetector, translator: translator, ner: ner, log: log}
}

// Enrich fills in entry's Language, TitleEN, Hostname, Entities,
// GeoEntities, and Images fields from its content and rawHTML, in the
// spec's prescribed order.
func (e *Enricher) Enrich(ctx context.Context, entry *model.FeedEntry, rawHTML string) {
	e.resolveLanguage(ctx, entry)
	e.translateTitle(ctx, entry)
	entry.Hostname = deriveHostname(entry.URL)
	e.extractEntities(ctx, entry)

	entry.GeoEntities = ExtractGeoEntities(entry.Entities, entry.SourceCountry)
	entry.Images = ExtractImages(rawHTML, entry.URL)
}

func (e *Enricher) resolveLanguage(ctx context.Context, entry *model.FeedEntry) {
	if isoLanguageRe.MatchString(entry.Language) {
		return
	}
	if e.langDetector == nil {
		return
	}
	lang, err := e.langDetector.Detect(ctx, entry.Content)
	if err != nil {
		e.log.WithError(err).Warn("enrich: language detection failed")
		return
	}
	entry.Language = lang
}

func (e *Enricher) translateTitle(ctx context.Context, entry *model.FeedEntry) {
	if entry.Language == "" || entry.Language == "en" {
		entry.TitleEN = entry.Title
		return
	}
	if e.translator == nil {
		entry.TitleEN = entry.Title
		return
	}
	translated, err := e.translator.TranslateToEnglish(ctx, entry.Title, entry.Language)
	if err != nil {
		e.log.WithError(err).Warn("enrich: title translation failed")
		entry.TitleEN = entry.Title
		return
	}
	entry.TitleEN = translated
}

func (e *Enricher) extractEntities(ctx context.Context, entry *model.FeedEntry) {
	if e.ner == nil {
		return
	}
	entities, err := e.ner.Extract(ctx, entry.Content)
	if err != nil {
		e.log.WithError(err).Warn("enrich: named entity extraction failed")
		return
	}
	entry.Entities = entities
}

func deriveHostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
