package chromedp_fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

const browserUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36`

const maxFallbackBody = 10 * 1024 * 1024

// ChromedpFetcher fetches rendered pages through a pool of headless Chrome
// allocators, falling back to a scripted HTTP request with browser-like
// fingerprints when the target blocks the automated client.
type ChromedpFetcher struct {
	allocatorPool *sync.Pool
	httpClient    *http.Client
	timeout       time.Duration
}

// NewChromedpFetcher creates a new fetcher implementation using chromedp.
func NewChromedpFetcher(maxConcurrency int, pageLoadTimeout time.Duration) (repository.PageFetcher, error) {
	pool := &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(browserUserAgent),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	// Pre-warm the pool
	for i := 0; i < maxConcurrency; i++ {
		allocCtx := pool.Get().(context.Context)
		pool.Put(allocCtx)
	}

	return &ChromedpFetcher{
		allocatorPool: pool,
		httpClient:    &http.Client{Timeout: pageLoadTimeout},
		timeout:       pageLoadTimeout,
	}, nil
}

// Fetch navigates to the URL in a scoped browser session and returns the
// rendered DOM and final address. The session is created per attempt and
// released on every exit path.
func (f *ChromedpFetcher) Fetch(ctx context.Context, url string) (*entity.Page, error) {
	page, err := f.fetchBrowser(ctx, url)
	if err == nil {
		return page, nil
	}
	if errors.Is(err, repository.ErrFetchBlocked) {
		slog.Info("Browser fetch blocked, retrying with scripted request", "url", url)
		return f.fetchScripted(ctx, url)
	}
	return nil, err
}

func (f *ChromedpFetcher) fetchBrowser(ctx context.Context, url string) (*entity.Page, error) {
	allocCtx := f.allocatorPool.Get().(context.Context)
	defer f.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	taskCtx, cancel = context.WithTimeout(taskCtx, f.timeout)
	defer cancel()

	// Propagate caller cancellation (sweep shutdown) into the browser task.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var htmlContent, finalURL string
	var resp *network.Response

	resp, err := chromedp.RunResponse(taskCtx, chromedp.Navigate(url))
	if err == nil {
		err = chromedp.Run(taskCtx,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &htmlContent),
			chromedp.Location(&finalURL),
		)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", repository.ErrFetchTimeout, url, f.timeout)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
	}

	if resp != nil {
		switch {
		case resp.Status == http.StatusForbidden || resp.Status == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: received status code %d", repository.ErrFetchBlocked, resp.Status)
		case resp.Status >= 400:
			return nil, fmt.Errorf("%w: received status code %d", repository.ErrNavigationFailed, resp.Status)
		case resp.MimeType != "" && !strings.Contains(resp.MimeType, "html"):
			return nil, fmt.Errorf("%w: mime type %s", repository.ErrInvalidContent, resp.MimeType)
		}
	}

	if finalURL == "" {
		finalURL = url
	}
	return &entity.Page{HTML: htmlContent, FinalURL: finalURL}, nil
}

// fetchScripted performs a plain HTTP request that mimics a browser
// fingerprint. It cannot execute client-side rendering, but gets past targets
// that reject headless Chrome outright.
func (f *ChromedpFetcher) fetchScripted(ctx context.Context, url string) (*entity.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", repository.ErrFetchTimeout, url)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: received status code %d", repository.ErrFetchBlocked, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: received status code %d", repository.ErrNavigationFailed, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && !strings.Contains(mediaType, "html") {
			return nil, fmt.Errorf("%w: content type %s", repository.ErrInvalidContent, mediaType)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFallbackBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", repository.ErrNavigationFailed, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &entity.Page{HTML: string(body), FinalURL: finalURL}, nil
}
