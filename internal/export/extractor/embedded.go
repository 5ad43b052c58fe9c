package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/edgecomet/chatexport/internal/common/htmlprocessor"
	"github.com/edgecomet/chatexport/internal/export/conversation"
	"github.com/edgecomet/chatexport/internal/export/exporterr"
)

const (
	// RemixContextMarker identifies the hydration script of a shared transcript
	RemixContextMarker = "window.__remixContext"
	// ConversationKey names the ordered message array inside the payload
	ConversationKey = "linear_conversation"
	// ConversationAnchorKey is the field that directly follows ConversationKey.
	// Extraction breaks if the upstream payload reorders these two fields.
	ConversationAnchorKey = "has_user_editable_context"
)

var defaultArrayPattern = arrayPattern(ConversationKey, ConversationAnchorKey)

// EmbeddedExtractor reads the conversation from the hydration payload of
// the static page.
type EmbeddedExtractor struct {
	fetcher      StaticFetcher
	defaultTitle string
}

func NewEmbeddedExtractor(fetcher StaticFetcher, defaultTitle string) *EmbeddedExtractor {
	return &EmbeddedExtractor{fetcher: fetcher, defaultTitle: defaultTitle}
}

func (e *EmbeddedExtractor) Extract(ctx context.Context, url string) (*Result, error) {
	body, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ExtractEmbedded(body, e.defaultTitle)
}

// ExtractEmbedded runs embedded extraction over already fetched markup
func ExtractEmbedded(markup []byte, defaultTitle string) (*Result, error) {
	doc, err := htmlprocessor.ParseWithDOM(markup)
	if err != nil {
		return nil, exporterr.Malformed("malformed payload", fmt.Errorf("parse html: %w", err))
	}

	scripts := FindMarkedScripts(doc.InlineScripts(), RemixContextMarker)
	if len(scripts) == 0 {
		return nil, exporterr.NotFound("Remix context not found")
	}

	// later scripts stream data chunks into the context, so the newest wins
	var raw string
	found := false
	for i := len(scripts) - 1; i >= 0 && !found; i-- {
		raw, found = LocateEmbeddedArray(scripts[i], ConversationKey, ConversationAnchorKey)
	}
	if !found {
		return nil, exporterr.NotFound("Linear conversation not found")
	}

	items, err := decodeLinearConversation(raw)
	if err != nil {
		return nil, exporterr.Malformed("malformed payload", err)
	}

	return &Result{
		Title: titleOr(doc.Title(), defaultTitle),
		Items: items,
	}, nil
}

// FindMarkedScripts returns every script body containing marker, in document order
func FindMarkedScripts(scripts []string, marker string) []string {
	var marked []string
	for _, s := range scripts {
		if strings.Contains(s, marker) {
			marked = append(marked, s)
		}
	}
	return marked
}

// LocateEmbeddedArray captures the JSON array stored under startKey, ending
// at the first ']' that is immediately followed by endKeyAnchor. The match
// is textual: the surrounding script is not valid JSON, so the array is
// delimited by its sibling key rather than by bracket counting.
func LocateEmbeddedArray(script, startKey, endKeyAnchor string) (string, bool) {
	re := defaultArrayPattern
	if startKey != ConversationKey || endKeyAnchor != ConversationAnchorKey {
		re = arrayPattern(startKey, endKeyAnchor)
	}

	m := re.FindStringSubmatch(script)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// RE2 has no lookahead, so the anchor is consumed and only group 1 is used.
func arrayPattern(startKey, endKeyAnchor string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(startKey) + `":\s*(\[[\s\S]*?\]),\s*"` + regexp.QuoteMeta(endKeyAnchor) + `"`)
}

type linearItem struct {
	Message *struct {
		Author struct {
			Role string `json:"role"`
		} `json:"author"`
		Content struct {
			Parts []json.RawMessage `json:"parts"`
		} `json:"content"`
	} `json:"message"`
}

func decodeLinearConversation(raw string) ([]conversation.RawItem, error) {
	var entries []linearItem
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ConversationKey, err)
	}

	items := make([]conversation.RawItem, 0, len(entries))
	for _, entry := range entries {
		if entry.Message == nil {
			continue
		}
		item := conversation.RawItem{Role: entry.Message.Author.Role}
		for _, part := range entry.Message.Content.Parts {
			// parts can also hold objects such as image pointers
			var text string
			if json.Unmarshal(part, &text) == nil {
				item.Parts = append(item.Parts, text)
			}
		}
		items = append(items, item)
	}
	return items, nil
}
