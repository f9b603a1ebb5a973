package entity

// Page is the outcome of one rendered-page fetch: the DOM after client-side
// rendering and the address the navigation finally resolved to.
type Page struct {
	HTML     string
	FinalURL string
}
