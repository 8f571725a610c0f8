package aarp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/futureroot-service/internal/adapter/upstream"
)

// Renderer returns the HTML of a page after client-side rendering.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// HTTPRenderer fetches pages without running scripts. It works against
// server-rendered mirrors and test fixtures.
type HTTPRenderer struct {
	http  *resty.Client
	guard *upstream.Guard
}

// NewHTTPRenderer creates a plain HTTP renderer.
func NewHTTPRenderer(timeout time.Duration, guard *upstream.Guard) *HTTPRenderer {
	return &HTTPRenderer{
		http:  resty.New().SetTimeout(timeout).SetHeader("Accept", "text/html"),
		guard: guard,
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	return upstream.Do(ctx, r.guard, func(ctx context.Context) (string, error) {
		res, err := r.http.R().SetContext(ctx).Get(url)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
		if res.IsError() {
			return "", &upstream.StatusError{Service: r.guard.Name(), Code: res.StatusCode(), Body: res.String()}
		}
		return res.String(), nil
	})
}

// BrowserRenderer drives headless Chrome and waits for the score chart to draw.
type BrowserRenderer struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	loadTimeout time.Duration
	waitFor     string
	guard       *upstream.Guard
	logger      *slog.Logger
}

// NewBrowserRenderer starts a headless Chrome allocator. Close releases it.
func NewBrowserRenderer(loadTimeout time.Duration, guard *upstream.Guard, logger *slog.Logger) *BrowserRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &BrowserRenderer{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		loadTimeout: loadTimeout,
		waitFor:     "svg text",
		guard:       guard,
		logger:      logger,
	}
}

func (b *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	return upstream.Do(ctx, b.guard, func(ctx context.Context) (string, error) {
		tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
		defer cancelTab()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.loadTimeout)
		defer cancelTimeout()

		// Propagate caller cancellation into the tab.
		stop := context.AfterFunc(ctx, cancelTab)
		defer stop()

		var html string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitVisible(b.waitFor, chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", url, err)
		}
		b.logger.Debug("rendered page", "url", url, "bytes", len(html))
		return html, nil
	})
}

// Close shuts down the browser.
func (b *BrowserRenderer) Close() {
	b.cancelAlloc()
}
