package htmlprocessor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcriptPage = `<!DOCTYPE html>
<html>
<head>
  <title>  Sorting algorithms  </title>
  <script src="/static/app.js"></script>
  <script>window.__remixContext = {"state":{"a":1}};</script>
</head>
<body>
  <div data-message-author-role="user"><p>What is <b>quicksort</b>?</p><button>Copy</button></div>
  <div data-message-author-role="assistant">
    <ul><li>Divide</li><li>Conquer</li></ul>
    <button class="copy">Copy code</button>
  </div>
  <script type="application/json">{"x": "<b>not markup</b>"}</script>
</body>
</html>`

func parse(t *testing.T, page string) Document {
	t.Helper()
	doc, err := ParseWithDOM([]byte(page))
	require.NoError(t, err)
	return doc
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Sorting algorithms", parse(t, transcriptPage).Title())
	assert.Equal(t, "", parse(t, "<html><body>x</body></html>").Title())

	long := "<title>" + strings.Repeat("é", 250) + "</title>"
	assert.Equal(t, maxTitleLength, len([]rune(parse(t, long).Title())))
}

func TestInlineScripts(t *testing.T) {
	scripts := parse(t, transcriptPage).InlineScripts()
	require.Len(t, scripts, 2)
	assert.Equal(t, `window.__remixContext = {"state":{"a":1}};`, scripts[0])
	assert.Equal(t, `{"x": "<b>not markup</b>"}`, scripts[1])
}

func TestElementsWithAttr_DocumentOrder(t *testing.T) {
	elements := parse(t, transcriptPage).ElementsWithAttr("data-message-author-role")
	require.Len(t, elements, 2)
	assert.Equal(t, "user", elements[0].Attr("data-message-author-role"))
	assert.Equal(t, "assistant", elements[1].Attr("data-message-author-role"))
	assert.Equal(t, "", elements[0].Attr("missing"))
}

func TestElement_Text(t *testing.T) {
	elements := parse(t, transcriptPage).ElementsWithAttr("data-message-author-role")
	assert.Equal(t, "What is quicksort?Copy", elements[0].Text())
	assert.Equal(t, "What is quicksort?", elements[0].Text("button"))
}

func TestElement_InnerHTMLStripsControls(t *testing.T) {
	doc := parse(t, transcriptPage)
	elements := doc.ElementsWithAttr("data-message-author-role")

	markup, err := elements[0].InnerHTML("button")
	require.NoError(t, err)
	assert.Equal(t, "<p>What is <b>quicksort</b>?</p>", markup)

	markup, err = elements[1].InnerHTML("button")
	require.NoError(t, err)
	assert.Contains(t, markup, "<ul><li>Divide</li><li>Conquer</li></ul>")
	assert.NotContains(t, markup, "button")

	// the source document still has its buttons
	assert.Contains(t, string(doc.HTML()), "Copy code")
}

func TestElementsWithAttr_None(t *testing.T) {
	assert.Empty(t, parse(t, "<html><body><p>hi</p></body></html>").ElementsWithAttr("data-message-author-role"))
}
