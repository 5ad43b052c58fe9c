package document

import (
	"bytes"
	"text/template"
)

// Theme is the set of color tokens the stylesheet is built from
type Theme struct {
	Background     string
	Text           string
	Heading        string
	Rule           string
	CodeBackground string
	CodeText       string
	Strong         string
	Link           string
	UserBubble     string
	UserText       string
	AIBubble       string
	AIText         string
}

var (
	LightTheme = Theme{
		Background:     "#ffffff",
		Text:           "#333333",
		Heading:        "#000000",
		Rule:           "#eeeeee",
		CodeBackground: "#f5f5f5",
		CodeText:       "#333333",
		Strong:         "#000000",
		Link:           "#3498db",
		UserBubble:     "#e8f5e9",
		UserText:       "#000000",
		AIBubble:       "#f5f5f5",
		AIText:         "#333333",
	}

	DarkTheme = Theme{
		Background:     "#333333",
		Text:           "#e0e0e0",
		Heading:        "#ffffff",
		Rule:           "#444444",
		CodeBackground: "#1a1a1a",
		CodeText:       "#00ff00",
		Strong:         "#ffffff",
		Link:           "#3498db",
		UserBubble:     "#17472D",
		UserText:       "#ffffff",
		AIBubble:       "#1a1a1a",
		AIText:         "#e0e0e0",
	}
)

// ThemeFor picks the palette for the dark mode flag
func ThemeFor(darkMode bool) Theme {
	if darkMode {
		return DarkTheme
	}
	return LightTheme
}

// Theme values are trusted constants, so text/template is enough here.
var stylesheetTemplate = template.Must(template.New("stylesheet").Parse(`
body {
  font-family: Arial, sans-serif;
  padding: 20px;
  line-height: 1.6;
  color: {{.Text}};
  background-color: {{.Background}};
}
h1 {
  color: {{.Heading}};
  border-bottom: 1px solid {{.Rule}};
  padding-bottom: 10px;
}
pre {
  background-color: {{.CodeBackground}};
  color: {{.CodeText}};
  padding: 10px;
  border-radius: 5px;
  overflow-x: auto;
  white-space: pre-wrap;
}
code {
  font-family: 'Courier New', Courier, monospace;
}
a {
  color: {{.Link}};
}
p, ul, ol {
  margin-bottom: 15px;
}
strong, b {
  color: {{.Strong}};
}
.user-message {
  background-color: {{.UserBubble}};
  color: {{.UserText}};
  margin-bottom: 15px;
  padding: 10px;
  border-radius: 10px;
  display: flex;
  align-items: flex-start;
}
.ai-message {
  background-color: {{.AIBubble}};
  color: {{.AIText}};
  margin-bottom: 15px;
  padding: 10px;
  border-radius: 10px;
}
.user-icon {
  font-size: 24px;
  margin-right: 10px;
}
.message-content {
  flex-grow: 1;
}
.message-container {
  display: flex;
  flex-direction: row;
  align-items: center;
}
`))

// Stylesheet returns the CSS for the given mode
func Stylesheet(darkMode bool) string {
	var buf bytes.Buffer
	// Executing a parsed template over a struct of strings cannot fail.
	_ = stylesheetTemplate.Execute(&buf, ThemeFor(darkMode))
	return buf.String()
}
