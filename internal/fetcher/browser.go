package fetcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"ceneo-opinions/internal/config"
	"ceneo-opinions/internal/observability"
	"ceneo-opinions/internal/scraper"
)

// BrowserFetcher renders pages in headless Chrome. It is used when the
// reviews tab is only filled in by client-side scripts.
type BrowserFetcher struct {
	cfg      *config.Config
	logger   *observability.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser

	mu sync.Mutex
}

func NewBrowserFetcher(cfg *config.Config, logger *observability.Logger) (*BrowserFetcher, error) {
	l := launcher.New().Headless(true)
	if cfg.Rod.ChromePath != "" {
		l = l.Bin(cfg.Rod.ChromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	logger.Info("Browser started", "control_url", controlURL)

	return &BrowserFetcher{
		cfg:      cfg,
		logger:   logger,
		launcher: l,
		browser:  browser,
	}, nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, urlStr string) (*scraper.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			b.logger.Warn("Failed to close tab", "error", err)
		}
	}()

	page = page.Context(ctx).Timeout(b.cfg.GetRodPageTimeout())

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("failed to enable network events: %w", err)
	}

	status := 0
	waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(urlStr); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	waitResponse()

	if err := page.Timeout(b.cfg.GetRodWaitLoadTimeout()).WaitLoad(); err != nil {
		return nil, fmt.Errorf("page did not finish loading: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}

	finalURL := urlStr
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	b.logger.Debug("Rendered page", "url", urlStr, "status", status, "bytes", len(html))

	return &scraper.Page{
		StatusCode: status,
		Body:       []byte(html),
		URL:        finalURL,
	}, nil
}

func (b *BrowserFetcher) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}
