// Package render loads pages in a headless browser.
package render

import (
	"context"
	"fmt"
)

// Page is the rendered state of a URL.
type Page struct {
	URL   string
	Title string
	HTML  string
}

// Renderer turns a URL into rendered HTML.
type Renderer interface {
	Open(ctx context.Context, url string) (Page, error)
	Close() error
}

// Render stages reported by RenderError.
const (
	StageNavigate = "navigate"
	StageRead     = "read"
)

// RenderError reports a page that could not be rendered.
type RenderError struct {
	URL   string
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (%s): %v", e.URL, e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
