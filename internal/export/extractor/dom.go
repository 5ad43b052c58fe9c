package extractor

import (
	"context"
	"fmt"

	"github.com/edgecomet/chatexport/internal/common/htmlprocessor"
	"github.com/edgecomet/chatexport/internal/export/conversation"
	"github.com/edgecomet/chatexport/internal/export/exporterr"
)

const (
	// AuthorRoleAttr marks every rendered message element
	AuthorRoleAttr = "data-message-author-role"

	controlsSelector = "button"
)

// DOMExtractor reads message elements from the rendered page
type DOMExtractor struct {
	fetcher      RenderedFetcher
	mode         ContentMode
	defaultTitle string
}

func NewDOMExtractor(fetcher RenderedFetcher, mode ContentMode, defaultTitle string) *DOMExtractor {
	return &DOMExtractor{fetcher: fetcher, mode: mode, defaultTitle: defaultTitle}
}

func (d *DOMExtractor) Extract(ctx context.Context, url string) (*Result, error) {
	markup, err := d.fetcher.FetchRendered(ctx, url)
	if err != nil {
		return nil, err
	}
	return ExtractDOM([]byte(markup), d.mode, d.defaultTitle)
}

// ExtractDOM runs DOM extraction over rendered outer HTML. Element order is
// document order, which is the conversation order.
func ExtractDOM(markup []byte, mode ContentMode, defaultTitle string) (*Result, error) {
	doc, err := htmlprocessor.ParseWithDOM(markup)
	if err != nil {
		return nil, exporterr.Malformed("malformed payload", fmt.Errorf("parse rendered html: %w", err))
	}

	elements := doc.ElementsWithAttr(AuthorRoleAttr)
	if len(elements) == 0 {
		return nil, exporterr.NotFound("no messages found")
	}

	items := make([]conversation.RawItem, 0, len(elements))
	for _, el := range elements {
		item := conversation.RawItem{Role: el.Attr(AuthorRoleAttr)}

		switch mode {
		case ContentMarkup:
			content, err := el.InnerHTML(controlsSelector)
			if err != nil {
				return nil, exporterr.Malformed("malformed payload", fmt.Errorf("serialize message: %w", err))
			}
			item.Parts = []string{content}
			item.Markup = true
		default:
			item.Parts = []string{el.Text(controlsSelector)}
		}

		items = append(items, item)
	}

	return &Result{
		Title: titleOr(doc.Title(), defaultTitle),
		Items: items,
	}, nil
}
