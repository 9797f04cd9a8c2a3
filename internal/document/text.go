package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Line breaks required around an element when flattening it to text,
// following how browsers lay out innerText.
var breaksAround = map[string]int{
	"p": 2,
	"h1": 1, "h2": 1, "h3": 1, "h4": 1, "h5": 1, "h6": 1,
	"div": 1, "section": 1, "article": 1, "header": 1, "footer": 1, "main": 1, "nav": 1, "aside": 1,
	"ul": 1, "ol": 1, "li": 1, "dl": 1, "dt": 1, "dd": 1,
	"table": 1, "tr": 1, "blockquote": 1, "pre": 1, "form": 1, "details": 1, "summary": 1,
	"figure": 1, "figcaption": 1, "address": 1, "hr": 1,
}

var hiddenTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

type textBuilder struct {
	sb      strings.Builder
	pending int
}

func (b *textBuilder) requestBreak(n int) {
	if n > b.pending {
		b.pending = n
	}
}

func (b *textBuilder) writeText(s string) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return
	}
	if b.sb.Len() > 0 {
		if b.pending > 0 {
			b.sb.WriteString(strings.Repeat("\n", b.pending))
		} else if last := b.sb.String()[b.sb.Len()-1]; last != ' ' && last != '\n' {
			b.sb.WriteByte(' ')
		}
	}
	b.pending = 0
	b.sb.WriteString(s)
}

func (b *textBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.writeText(n.Data)
		return
	case html.ElementNode:
		if hiddenTags[n.Data] {
			return
		}
		if n.Data == "br" {
			b.sb.WriteByte('\n')
			b.pending = 0
			return
		}
	}
	breaks := breaksAround[n.Data]
	if n.Type == html.ElementNode && breaks > 0 {
		b.requestBreak(breaks)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
	if n.Type == html.ElementNode && breaks > 0 {
		b.requestBreak(breaks)
	}
}

// renderText flattens a selection into readable text: hidden elements are
// dropped, whitespace is collapsed and block elements start new lines.
func renderText(sel *goquery.Selection) string {
	var b textBuilder
	for _, n := range sel.Nodes {
		b.walk(n)
	}
	return b.sb.String()
}
