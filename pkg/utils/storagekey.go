package utils

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// AssetStorageKey derives the durable object key for an asset from its
// identifier. The key depends only on the asset id plus the source file
// extension, so retried uploads overwrite the same object.
func AssetStorageKey(assetID int64, assetURL string) string {
	return fmt.Sprintf("assets/%d%s", assetID, fileExt(assetURL))
}

// fileExt extracts a lowercase file extension from a URL path, if any.
func fileExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	// Guard against query leftovers or absurd suffixes on extension-less paths.
	if len(ext) > 6 {
		return ""
	}
	return ext
}
