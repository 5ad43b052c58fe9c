package chrome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/export/exporterr"
)

const publicRenderError = "Failed to render PDF"

// PrintOptions controls page layout of the printed document
type PrintOptions struct {
	PaperFormat string
	MarginPx    float64
}

// PrintPDF loads html into a fresh tab as document content (no navigation)
// and prints it with backgrounds on and the same margin on every side.
func (b *Browser) PrintPDF(ctx context.Context, html string, opts PrintOptions) ([]byte, error) {
	paper, ok := LookupPaper(opts.PaperFormat)
	if !ok {
		return nil, exporterr.Render(publicRenderError, fmt.Errorf("%w: %q", ErrUnknownPaper, opts.PaperFormat))
	}
	margin := PixelsToInches(opts.MarginPx)

	ctx, cancel := context.WithTimeout(ctx, b.renderTimeout)
	defer cancel()

	start := time.Now()
	var pdf []byte
	err := b.withTab(ctx, func(tabCtx context.Context) error {
		return chromedp.Run(tabCtx,
			b.blockRequests(),
			chromedp.Navigate("about:blank"),
			setDocumentContent(html),
			chromedp.WaitReady("body", chromedp.ByQuery),
			waitForFonts(),
			chromedp.ActionFunc(func(ctx context.Context) error {
				var err error
				pdf, _, err = page.PrintToPDF().
					WithPaperWidth(paper.Width).
					WithPaperHeight(paper.Height).
					WithMarginTop(margin).
					WithMarginRight(margin).
					WithMarginBottom(margin).
					WithMarginLeft(margin).
					WithPrintBackground(true).
					Do(ctx)
				if err != nil {
					return errors.Join(ErrPrintFailed, err)
				}
				return nil
			}),
		)
	})
	if err != nil {
		b.logger.Warn("PDF print failed",
			zap.String("paper_format", opts.PaperFormat),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, exporterr.Render(publicRenderError, err)
	}

	b.logger.Debug("PDF printed",
		zap.String("paper_format", opts.PaperFormat),
		zap.Int("pdf_size", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// setDocumentContent replaces the main frame's document with html
func setDocumentContent(html string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	}
}

// waitForFonts blocks until web fonts used by the document are loaded
func waitForFonts() chromedp.Action {
	var ready bool
	return chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &ready,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		})
}
