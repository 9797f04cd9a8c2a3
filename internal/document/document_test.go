package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html>
<head><title>  Top Interview Questions </title><style>p { color: red }</style></head>
<body>
  <h2>What is a closure?</h2>
  <p>A function bundled with its lexical scope.</p>
  <p>Second   paragraph
     spans lines.</p>
  <script>var ignored = "Q: hidden?";</script>
  <ul><li>First?</li><li>Second</li></ul>
  <a href="/more" class="nav">More</a>
</body>
</html>`

func TestParseTitleAndSelect(t *testing.T) {
	doc, err := Parse("https://example.com/x", samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Top Interview Questions", doc.Title())

	els := doc.Select("h2", "p", "li")
	var tags, texts []string
	for _, el := range els {
		tags = append(tags, el.Tag())
		texts = append(texts, el.Text())
	}
	assert.Equal(t, []string{"h2", "p", "p", "li", "li"}, tags)
	assert.Equal(t, "What is a closure?", texts[0])
	assert.Equal(t, "First?", texts[3])
}

func TestElementAttrAndNext(t *testing.T) {
	doc, err := Parse("", samplePage)
	require.NoError(t, err)

	anchors := doc.Select("a")
	require.Len(t, anchors, 1)
	href, ok := anchors[0].Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "/more", href)
	_, ok = anchors[0].Attr("title")
	assert.False(t, ok)

	heading := doc.Select("h2")[0]
	next, ok := heading.Next()
	require.True(t, ok)
	assert.Equal(t, "p", next.Tag())
	assert.Equal(t, "A function bundled with its lexical scope.", next.Text())

	_, ok = anchors[0].Next()
	assert.False(t, ok)
}

func TestBodyTextSeparatesParagraphs(t *testing.T) {
	doc, err := Parse("", samplePage)
	require.NoError(t, err)

	body := doc.BodyText()
	assert.NotContains(t, body, "ignored")
	assert.NotContains(t, body, "color: red")
	assert.Contains(t, body, "What is a closure?\n\nA function bundled with its lexical scope.\n\nSecond paragraph spans lines.")
	assert.True(t, strings.HasSuffix(body, "More"))
}

func TestParseEmptyDocument(t *testing.T) {
	_, err := Parse("https://example.com/blank", "   \n")
	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, "https://example.com/blank", qerr.URL)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestSelectWithoutTags(t *testing.T) {
	doc, err := Parse("", samplePage)
	require.NoError(t, err)
	assert.Empty(t, doc.Select())
}
