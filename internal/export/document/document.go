// Package document builds the self-contained HTML page that gets printed to PDF.
package document

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/edgecomet/chatexport/internal/export/conversation"
)

const (
	userIcon      = "🙋"
	assistantIcon = "🤖"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>{{.Stylesheet}}</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Blocks}}<div class="{{.Class}}">
<div class="message-container">
<div class="user-icon">{{.Icon}}</div>
<div class="message-content">{{.Content}}</div>
</div>
</div>
{{end}}</body>
</html>
`))

type page struct {
	Title      string
	Stylesheet template.CSS
	Blocks     []block
}

type block struct {
	Class   string
	Icon    string
	Content template.HTML
}

// Synthesize renders messages into a standalone HTML document. Markup
// messages are inserted verbatim; plain messages are escaped and split into
// paragraphs. Identical input yields identical output.
func Synthesize(messages []conversation.Message, title string, darkMode bool) (string, error) {
	p := page{
		Title:      title,
		Stylesheet: template.CSS(Stylesheet(darkMode)),
		Blocks:     make([]block, 0, len(messages)),
	}

	for _, m := range messages {
		b := block{Class: "ai-message", Icon: assistantIcon}
		if m.Role == conversation.RoleUser {
			b.Class = "user-message"
			b.Icon = userIcon
		}

		if m.Markup {
			b.Content = template.HTML(m.Content)
		} else {
			b.Content = paragraphs(m.Content)
		}
		p.Blocks = append(p.Blocks, b)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("execute page template: %w", err)
	}
	return buf.String(), nil
}

// paragraphs escapes plain text and wraps each non-blank line in <p>
func paragraphs(text string) template.HTML {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(template.HTMLEscapeString(line))
		b.WriteString("</p>")
	}
	return template.HTML(b.String())
}
