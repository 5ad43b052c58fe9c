package htmlprocessor

const maxTitleLength = 200

// Document provides read access to a parsed HTML page.
type Document interface {
	// Title returns the trimmed <title> text, truncated to 200 runes.
	// Returns empty string if not found.
	Title() string

	// InlineScripts returns the bodies of <script> elements without a src
	// attribute, in document order.
	InlineScripts() []string

	// ElementsWithAttr returns every element carrying attr, in document order.
	ElementsWithAttr(attr string) []Element

	// HTML re-serializes the document.
	HTML() []byte
}
