package fetch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinContentLength is the minimum extracted text length to consider an HTTP fetch
// successful. Shorter pages are likely rendered client-side.
const MinContentLength = 500

// DefaultBrowserTimeout bounds a headless render
const DefaultBrowserTimeout = 30 * time.Second

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely a JavaScript-rendered SPA.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// Renderer returns the rendered HTML of a page
type Renderer func(ctx context.Context, url string) (string, error)

// HeadlessChrome returns a Renderer backed by a local Chrome/Chromium
func HeadlessChrome(timeout time.Duration) Renderer {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	return func(ctx context.Context, url string) (string, error) {
		return WithBrowser(ctx, url, timeout)
	}
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url string, timeout time.Duration) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give client-side rendering a moment to fill the page
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	log.Printf("[fetch] rendered %s in browser: %d bytes", url, len(html))
	return html, nil
}

// PageText fetches url and returns its main text, at most limit runes. When the
// plain HTTP fetch yields too little text and render is non-nil, the page is
// rendered in a browser and the longer of the two extractions is kept.
func PageText(ctx context.Context, url string, limit int, opts *Options, render Renderer) (string, error) {
	var text string
	result, fetchErr := URL(ctx, url, opts)
	if fetchErr == nil {
		extracted, err := ExtractMainText(result.HTML, CompanyPageSelectors())
		if err != nil {
			return "", err
		}
		text = extracted
	}

	if render != nil && ShouldUseBrowser(text) {
		html, err := render(ctx, url)
		if err != nil {
			log.Printf("[fetch] browser fallback for %s failed: %v", url, err)
		} else if rendered, err := ExtractMainText(html, CompanyPageSelectors()); err == nil && len(rendered) > len(text) {
			text = rendered
		}
	}

	if text == "" && fetchErr != nil {
		return "", fetchErr
	}
	return Truncate(text, limit), nil
}
