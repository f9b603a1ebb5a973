package repository

import (
	"context"

	"github.com/user/asset-pipeline/internal/entity"
)

// PageFetcher defines the contract for retrieving a URL's fully rendered HTML.
type PageFetcher interface {
	// Fetch navigates to the URL, waits for client-side rendering, and returns
	// the DOM plus the final resolved address. Failures are one of the typed
	// fetch errors; the scoped browser session is released on every path.
	Fetch(ctx context.Context, url string) (*entity.Page, error)
}
