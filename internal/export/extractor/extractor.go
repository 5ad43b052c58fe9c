// Package extractor pulls raw conversation items out of a transcript page.
package extractor

import (
	"context"
	"fmt"

	"github.com/edgecomet/chatexport/internal/common/config"
	"github.com/edgecomet/chatexport/internal/export/conversation"
)

// Result is the raw output of one extraction
type Result struct {
	Title string
	Items []conversation.RawItem
}

// Extractor finds the conversation behind a transcript URL.
// Failures are *exporterr.Error values.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Result, error)
}

// StaticFetcher returns the raw response body of a page
type StaticFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RenderedFetcher returns the outer HTML of a page after scripts ran
type RenderedFetcher interface {
	FetchRendered(ctx context.Context, url string) (string, error)
}

// ContentMode selects how DOM extraction reads a message element
type ContentMode int

const (
	// ContentText reads plain text only
	ContentText ContentMode = iota
	// ContentMarkup keeps inner markup for rendering, minus interactive controls
	ContentMarkup
)

func (m ContentMode) String() string {
	if m == ContentMarkup {
		return "markup"
	}
	return "text"
}

// New builds the extractor configured for strategy
func New(strategy string, static StaticFetcher, rendered RenderedFetcher, mode ContentMode, defaultTitle string) (Extractor, error) {
	switch strategy {
	case config.StrategyEmbedded:
		if static == nil {
			return nil, fmt.Errorf("embedded extraction requires a static fetcher")
		}
		return &EmbeddedExtractor{fetcher: static, defaultTitle: defaultTitle}, nil
	case config.StrategyDOM:
		if rendered == nil {
			return nil, fmt.Errorf("dom extraction requires a rendered fetcher")
		}
		return &DOMExtractor{fetcher: rendered, mode: mode, defaultTitle: defaultTitle}, nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", strategy)
	}
}

func titleOr(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return title
}
