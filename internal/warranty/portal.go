package warranty

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// PortalLookup resolves warranty status by scraping the manufacturer's
// self-service portal with a headless browser. It is the alternative to
// the local sqlite registry for vendors that expose no API. The browser
// session is created lazily and reused across lookups.
type PortalLookup struct {
	URL      string // portal page; the serial is appended as ?serial=
	Selector string // CSS selector of the status element

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewPortalLookup(portalURL, selector string) *PortalLookup {
	return &PortalLookup{URL: portalURL, Selector: selector}
}

func (p *PortalLookup) initBrowser() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browserCtx != nil {
		select {
		case <-p.browserCtx.Done():
			p.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	p.browserCtx, p.browserCancel = chromedp.NewContext(p.allocCtx)

	return chromedp.Run(p.browserCtx)
}

func (p *PortalLookup) cleanup() {
	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	p.browserCtx = nil
	p.allocCtx = nil
}

// Check navigates to the portal page for the serial and reads the status
// element's text.
func (p *PortalLookup) Check(ctx context.Context, serial string) (string, error) {
	if err := p.initBrowser(); err != nil {
		return "", fmt.Errorf("failed to initialize browser: %v", err)
	}

	target := fmt.Sprintf("%s?serial=%s", p.URL, url.QueryEscape(serial))

	actionCtx, cancel := context.WithTimeout(p.browserCtx, 60*time.Second)
	defer cancel()

	var status string
	err := chromedp.Run(actionCtx,
		chromedp.Navigate(target),
		chromedp.WaitVisible(p.Selector, chromedp.ByQuery),
		chromedp.Text(p.Selector, &status, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("portal lookup for %s: %v", serial, err)
	}

	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Sprintf("no warranty on record for serial %s", serial), nil
	}
	return "portal: " + status, nil
}

func (p *PortalLookup) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanup()
}
