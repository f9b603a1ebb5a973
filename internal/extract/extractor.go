// Package extract locates document and image references in rendered HTML.
package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/asset-pipeline/internal/entity"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".bmp": {}, ".tiff": {}, ".webp": {}, ".svg": {},
}

var cssURLPattern = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

// Assets parses rendered HTML and returns the deduplicated set of asset
// references it contains, normalized to absolute URLs and sorted by address.
// The parse is best-effort: malformed markup yields whatever goquery can
// recover, never an error for the page.
func Assets(htmlContent, baseURL string) []entity.AssetRef {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]entity.AssetRef)
	add := func(ref string, want entity.AssetType) {
		abs, ok := resolve(base, ref)
		if !ok {
			return
		}
		typ, ok := classify(abs)
		if !ok || typ != want {
			return
		}
		seen[abs] = entity.AssetRef{URL: abs, Type: typ}
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src"} {
			if v, ok := s.Attr(attr); ok {
				add(v, entity.AssetTypeImage)
			}
		}
		if v, ok := s.Attr("srcset"); ok {
			for _, candidate := range srcsetURLs(v) {
				add(candidate, entity.AssetTypeImage)
			}
		}
	})

	doc.Find("source").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("srcset"); ok {
			for _, candidate := range srcsetURLs(v) {
				add(candidate, entity.AssetTypeImage)
			}
		}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if !strings.Contains(style, "background-image") {
			return
		}
		for _, m := range cssURLPattern.FindAllStringSubmatch(style, -1) {
			add(m[1], entity.AssetTypeImage)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		add(href, entity.AssetTypePDF)
	})

	refs := make([]entity.AssetRef, 0, len(seen))
	for _, ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].URL < refs[j].URL })
	return refs
}

// srcsetURLs splits a srcset attribute into its candidate URLs, dropping the
// width/density descriptors.
func srcsetURLs(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

func resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") {
		return "", false
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(rel)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

// classify infers an asset type from the URL path extension.
func classify(rawURL string) (entity.AssetType, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	path := strings.ToLower(u.Path)
	if strings.HasSuffix(path, ".pdf") {
		return entity.AssetTypePDF, true
	}
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		if _, ok := imageExtensions[path[idx:]]; ok {
			return entity.AssetTypeImage, true
		}
	}
	return "", false
}
