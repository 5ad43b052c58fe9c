package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/urlutil"
	"github.com/edgecomet/chatexport/internal/export/exporterr"
)

const (
	lifecycleNetworkIdle = "networkIdle"
	maxHTMLResponseSize  = 20 * 1024 * 1024
	// time left for HTML extraction after the navigation wait
	extractionGrace = 5 * time.Second
)

// FetchRendered navigates to url, waits until the network is idle and
// returns the document's outer HTML.
func (b *Browser) FetchRendered(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.navigationTimeout+extractionGrace)
	defer cancel()

	start := time.Now()
	var html string
	err := b.withTab(ctx, func(tabCtx context.Context) error {
		return chromedp.Run(tabCtx,
			b.blockRequests(),
			enableLifeCycle(),
			b.navigateAndWait(url),
			extractHTML(&html),
		)
	})
	if err != nil {
		b.logger.Warn("Rendered fetch failed",
			zap.String("url", url),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", classifyFetchError(err)
	}

	if len(html) > maxHTMLResponseSize {
		return "", exporterr.Fetch("Failed to fetch content",
			fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, len(html)))
	}

	b.logger.Debug("Rendered fetch completed",
		zap.String("url", url),
		zap.Int("html_size", len(html)),
		zap.Duration("duration", time.Since(start)))
	return html, nil
}

func classifyFetchError(err error) error {
	if errors.Is(err, ErrWaitTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return exporterr.FetchTimeout("Failed to fetch content", err)
	}
	return exporterr.Fetch("Failed to fetch content", err)
}

// Reasons a paused request is aborted
const (
	blockReasonBlocklist      = "blocklist"
	blockReasonPrivateNetwork = "private_network"
)

// blockReason returns why a request must be aborted, or "" to let it through
func (b *Browser) blockReason(reqURL, resourceType string) string {
	if b.blocklist.IsBlocked(reqURL) || b.blocklist.IsResourceTypeBlocked(resourceType) {
		return blockReasonBlocklist
	}
	if b.lookupIP != nil {
		if err := urlutil.CheckPublicURL(b.lookupIP, reqURL); err != nil {
			return blockReasonPrivateNetwork
		}
	}
	return ""
}

// blockRequests intercepts every request and aborts the ones blockReason rejects
func (b *Browser) blockRequests() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			paused, ok := ev.(*fetch.EventRequestPaused)
			if !ok {
				return
			}
			// CDP calls must not run on the event goroutine
			go func() {
				cmdCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				executor := cdp.WithExecutor(cmdCtx, chromedp.FromContext(cmdCtx).Target)

				var err error
				if reason := b.blockReason(paused.Request.URL, string(paused.ResourceType)); reason != "" {
					b.logger.Debug("Blocked request",
						zap.String("host", urlutil.ExtractHost(paused.Request.URL)),
						zap.String("resource_type", string(paused.ResourceType)),
						zap.String("reason", reason))
					err = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(executor)
				} else {
					err = fetch.ContinueRequest(paused.RequestID).Do(executor)
				}
				if err != nil && cmdCtx.Err() == nil {
					b.logger.Debug("Failed to resolve paused request",
						zap.String("url", paused.Request.URL),
						zap.Error(err))
				}
			}()
		})
		return fetch.Enable().Do(ctx)
	}
}

// enableLifeCycle enables page lifecycle events
func enableLifeCycle() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.Enable().Do(ctx); err != nil {
			return err
		}
		return page.SetLifecycleEventsEnabled(true).Do(ctx)
	}
}

// navigateAndWait navigates and blocks until networkIdle fires for this navigation
func (b *Browser) navigateAndWait(url string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		frameID, loaderID, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return errors.Join(ErrNavigateFailed, err)
		}
		if errorText != "" {
			return fmt.Errorf("%w: %s", ErrNavigateFailed, errorText)
		}

		return waitForEvent(ctx, lifecycleNetworkIdle, string(frameID), string(loaderID), b.navigationTimeout)
	}
}

// waitForEvent waits for a lifecycle event matching frameID and loaderID
func waitForEvent(ctx context.Context, eventName, frameID, loaderID string, timeout time.Duration) error {
	ch := make(chan struct{})
	var once sync.Once

	listenerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chromedp.ListenTarget(listenerCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || string(e.FrameID) != frameID || string(e.LoaderID) != loaderID {
			return
		}
		if string(e.Name) == eventName {
			once.Do(func() {
				cancel()
				close(ch)
			})
		}
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWaitTimeout
	}
}

// extractHTML reads the document's outer HTML, retrying briefly while the
// DOM settles
func extractHTML(output *string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var lastErr error

		for attempt := 0; attempt < 3; attempt++ {
			root, err := dom.GetDocument().Do(ctx)
			if err == nil {
				var html string
				html, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
				if err == nil {
					*output = html
					return nil
				}
			}
			lastErr = err

			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrExtractHTML, ctx.Err())
			case <-time.After(300 * time.Millisecond):
			}
		}

		return fmt.Errorf("%w after 3 attempts: %v", ErrExtractHTML, lastErr)
	}
}
