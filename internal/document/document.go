// Package document exposes the narrow query surface the extractors need over parsed HTML.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// QueryError reports HTML that could not be turned into a queryable document.
type QueryError struct {
	URL string
	Err error
}

func (e *QueryError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("query document: %v", e.Err)
	}
	return fmt.Sprintf("query document %s: %v", e.URL, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ErrEmptyDocument is wrapped by QueryError when there is no markup to parse.
var ErrEmptyDocument = errors.New("empty document")

// Document is a parsed page.
type Document interface {
	// Title is the trimmed text of the first <title> element.
	Title() string
	// BodyText approximates the rendered text of <body>, with blank lines between paragraphs.
	BodyText() string
	// Select returns every element with one of the given tag names, in document order.
	Select(tags ...string) []Element
}

// Element is a single node of a Document.
type Element interface {
	Tag() string
	// Text is the element's text content, trimmed.
	Text() string
	Attr(name string) (string, bool)
	// Next is the following element sibling.
	Next() (Element, bool)
}

type goqueryDocument struct {
	doc      *goquery.Document
	bodyText string
}

// Parse builds a Document from raw HTML. url is only used for error context.
func Parse(url, html string) (Document, error) {
	if strings.TrimSpace(html) == "" {
		return nil, &QueryError{URL: url, Err: ErrEmptyDocument}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &QueryError{URL: url, Err: err}
	}
	return &goqueryDocument{
		doc:      doc,
		bodyText: renderText(doc.Find("body")),
	}, nil
}

func (d *goqueryDocument) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

func (d *goqueryDocument) BodyText() string {
	return d.bodyText
}

func (d *goqueryDocument) Select(tags ...string) []Element {
	if len(tags) == 0 {
		return nil
	}
	sel := d.doc.Find(strings.Join(tags, ", "))
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{sel: s})
	})
	return out
}

type element struct {
	sel *goquery.Selection
}

func (e element) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e element) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e element) Next() (Element, bool) {
	next := e.sel.Next()
	if next.Length() == 0 {
		return nil, false
	}
	return element{sel: next}, true
}
