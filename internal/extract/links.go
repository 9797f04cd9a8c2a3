package extract

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"interview-harvester/internal/document"
)

// LinkResolutionError reports an href that could not be resolved against its page.
type LinkResolutionError struct {
	Base string
	Href string
	Err  error
}

func (e *LinkResolutionError) Error() string {
	return fmt.Sprintf("resolve href %q against %s: %v", e.Href, e.Base, e.Err)
}

func (e *LinkResolutionError) Unwrap() error { return e.Err }

// LinkExtractor collects absolute http(s) links from a document.
type LinkExtractor struct {
	logger *zap.Logger
}

func NewLinkExtractor(logger *zap.Logger) *LinkExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkExtractor{logger: logger.With(zap.String("component", "link_extractor"))}
}

// Extract resolves every a[href] against baseURL and returns the distinct
// http and https results in first-seen order. Unresolvable hrefs are skipped.
func (l *LinkExtractor) Extract(doc document.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		l.logger.Debug("skipping links of unparsable page url", zap.String("url", baseURL), zap.Error(err))
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	for _, a := range doc.Select("a") {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		abs, err := resolve(base, href)
		if err != nil {
			l.logger.Debug("skipping link", zap.Error(err))
			continue
		}
		if abs == "" || seen[abs] {
			continue
		}
		seen[abs] = true
		links = append(links, abs)
	}
	return links
}

// resolve returns "" for references that resolve to a non-http scheme.
func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", &LinkResolutionError{Base: base.String(), Href: href, Err: err}
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", nil
	}
	return abs.String(), nil
}
