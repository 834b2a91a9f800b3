package extract

import "regexp"

// Regex indicators ported verbatim (semantics, not syntax) from
// original_source's JS_INDICATORS/CONSENT_INDICATORS/PAYWALL_INDICATORS.
var (
	jsIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?enable\s+javascript`),
		regexp.MustCompile(`(?i)window\.__NUXT__`),
		regexp.MustCompile(`(?is)<div[^>]*id=["']app["'][^>]*>\s*</div>`),
		regexp.MustCompile(`(?i)react-root|__next`),
	}

	consentIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)cookie[- ]?consent|cookie[- ]?banner|gdpr`),
		regexp.MustCompile(`(?i)accept.*cookies|manage.*preferences`),
	}

	paywallIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)subscribe\s+to\s+continue|paywall|premium\s+content`),
		regexp.MustCompile(`(?i)sign\s+in\s+to\s+read|create.*account.*to.*continue`),
	}

	bodyTagRe = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	anyTagRe  = regexp.MustCompile(`<[^>]+>`)
)

// DetectFailureReason scans raw HTML for the regex indicators, returning
// the first matching reason (spec.md §4.3: paywall, then consent, then
// js_required when the body is near-empty, else no_text).
func DetectFailureReason(html string, extractedText string) FailureReason {
	if html == "" {
		return ReasonNoText
	}

	if anyMatches(paywallIndicators, html) {
		return ReasonPaywall
	}
	if anyMatches(consentIndicators, html) {
		return ReasonConsent
	}
	if anyMatches(jsIndicators, html) {
		// Prefer the <body> content when present, but an SPA shell served
		// without a <body> tag at all (just a root <div> and a <script>) is
		// exactly the js_required case, so fall back to the whole document.
		inspect := html
		if m := bodyTagRe.FindStringSubmatch(html); m != nil {
			inspect = m[1]
		}
		bodyText := anyTagRe.ReplaceAllString(inspect, "")
		if len(trim(bodyText)) < 100 {
			return ReasonJSRequired
		}
	}
	return ReasonNoText
}

// NeedsBrowser reports whether a failure reason warrants an optional
// browser-render fallback outside the core (spec.md §4.3).
func NeedsBrowser(reason FailureReason) bool {
	return reason == ReasonJSRequired || reason == ReasonConsent
}

func anyMatches(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func trim(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
