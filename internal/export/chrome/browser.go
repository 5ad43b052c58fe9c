// Package chrome drives short-lived headless Chrome sessions for rendered
// page fetches and PDF printing.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/config"
	"github.com/edgecomet/chatexport/internal/common/urlutil"
)

// Browser launches one Chrome process per call. Nothing is shared between
// calls, so a Browser is safe for concurrent use.
type Browser struct {
	allocatorOpts     []chromedp.ExecAllocatorOption
	navigationTimeout time.Duration
	renderTimeout     time.Duration
	blocklist         *Blocklist
	// nil disables the private network guard
	lookupIP urlutil.LookupFunc
	logger   *zap.Logger
}

// Option customizes a Browser
type Option func(*Browser)

// WithPrivateNetworkGuard aborts every page request whose host resolves to
// a private or reserved address, navigation included.
func WithPrivateNetworkGuard(lookup urlutil.LookupFunc) Option {
	return func(b *Browser) {
		b.lookupIP = lookup
	}
}

// New builds a Browser from configuration. With auto_download set, a
// compatible Chromium is fetched into the local cache first.
func New(cfg config.ChromeConfig, logger *zap.Logger, opts ...Option) (*Browser, error) {
	execPath := cfg.ExecPath
	if cfg.AutoDownload {
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			return nil, fmt.Errorf("%w: downloading browser: %v", ErrNoBrowser, err)
		}
		logger.Info("Using downloaded Chromium", zap.String("exec_path", path))
		execPath = path
	}

	b := &Browser{
		allocatorOpts:     allocatorOptions(execPath, cfg.NoSandbox),
		navigationTimeout: cfg.NavigationTimeout.ToDuration(),
		renderTimeout:     cfg.RenderTimeout.ToDuration(),
		blocklist:         NewBlocklist(cfg.BlockedPatterns, cfg.BlockedResourceTypes),
		logger:            logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func allocatorOptions(execPath string, noSandbox bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	if noSandbox {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-setuid-sandbox", true))
	}
	return opts
}

// withTab starts a browser, opens a tab and runs fn in it. Tab, browser
// and process are torn down when withTab returns, whatever fn did.
func (b *Browser) withTab(ctx context.Context, fn func(tabCtx context.Context) error) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// Start the browser eagerly so launch failures are told apart from page failures
	if err := chromedp.Run(browserCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Join(ErrNoBrowser, err)
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	return fn(tabCtx)
}

// Version launches a throwaway browser and returns its product string.
// Used as a startup check.
func (b *Browser) Version(ctx context.Context) (string, error) {
	var product string
	err := b.withTab(ctx, func(tabCtx context.Context) error {
		return chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			_, product, _, _, _, err = browser.GetVersion().Do(ctx)
			return err
		}))
	})
	return product, err
}
