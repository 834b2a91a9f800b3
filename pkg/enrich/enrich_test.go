package enrich

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/flashpointintel/pipeline/pkg/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.FatalLevel)
	return l
}

type stubDetector struct{ lang string }

func (s stubDetector) Detect(ctx context.Context, text string) (string, error) { return s.lang, nil }

type stubTranslator struct{ out string }

func (s stubTranslator) TranslateToEnglish(ctx context.Context, text, sourceLang string) (string, error) {
	return s.out, nil
}

type stubNER struct{ entities map[string][]model.NamedEntity }

func (s stubNER) Extract(ctx context.Context, text string) (map[string][]model.NamedEntity, error) {
	return s.entities, nil
}

func TestResolveLanguageTrustsISOLike(t *testing.T) {
	e := NewEnricher(stubDetector{lang: "fr"}, nil, nil, quietLogger())
	entry := &model.FeedEntry{Language: "de"}
	e.resolveLanguage(context.Background(), entry)
	if entry.Language != "de" {
		t.Errorf("expected existing ISO-like language to be trusted, got %q", entry.Language)
	}
}

func TestResolveLanguageDetectsWhenMissing(t *testing.T) {
	e := NewEnricher(stubDetector{lang: "es"}, nil, nil, quietLogger())
	entry := &model.FeedEntry{Language: "unknown-value"}
	e.resolveLanguage(context.Background(), entry)
	if entry.Language != "es" {
		t.Errorf("expected detected language, got %q", entry.Language)
	}
}

func TestTranslateTitleNoOpWhenEnglish(t *testing.T) {
	e := NewEnricher(nil, stubTranslator{out: "should not be used"}, nil, quietLogger())
	entry := &model.FeedEntry{Language: "en", Title: "Hello World"}
	e.translateTitle(context.Background(), entry)
	if entry.TitleEN != "Hello World" {
		t.Errorf("expected no-op translation, got %q", entry.TitleEN)
	}
}

func TestTranslateTitleUsesTranslator(t *testing.T) {
	e := NewEnricher(nil, stubTranslator{out: "Translated Title"}, nil, quietLogger())
	entry := &model.FeedEntry{Language: "fr", Title: "Titre Original"}
	e.translateTitle(context.Background(), entry)
	if entry.TitleEN != "Translated Title" {
		t.Errorf("expected translated title, got %q", entry.TitleEN)
	}
}

func TestDeriveHostnameStripsWWW(t *testing.T) {
	if got := deriveHostname("https://www.example.com/a/b"); got != "example.com" {
		t.Errorf("got %q", got)
	}
}

func TestEnrichFullPipeline(t *testing.T) {
	e := NewEnricher(
		stubDetector{lang: "en"},
		stubTranslator{out: "translated"},
		stubNER{entities: map[string][]model.NamedEntity{
			"GPE": {{Text: "USA", Score: 0.9}},
		}},
		quietLogger(),
	)
	entry := &model.FeedEntry{
		URL:   "https://news.example.com/story",
		Title: "Title",
	}
	rawHTML := `<html><head><meta property="og:image" content="https://img.example.com/a.jpg"></head><body></body></html>`
	e.Enrich(context.Background(), entry, rawHTML)

	if entry.Hostname != "news.example.com" {
		t.Errorf("hostname = %q", entry.Hostname)
	}
	if len(entry.GeoEntities) != 1 || entry.GeoEntities[0].Alpha3 != "USA" {
		t.Errorf("geo entities = %+v", entry.GeoEntities)
	}
	if len(entry.Images) != 1 {
		t.Errorf("images = %v", entry.Images)
	}
}
