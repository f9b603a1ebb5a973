package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/asset-pipeline/internal/entity"
)

func urls(refs []entity.AssetRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.URL)
	}
	return out
}

func TestAssets_ImgAndPDFLinks(t *testing.T) {
	html := `<html><body>
		<img src="/img/logo.png">
		<img src="https://cdn.example.com/banner.jpeg">
		<a href="/docs/report.pdf">Report</a>
		<a href="/about">About us</a>
	</body></html>`

	refs := Assets(html, "https://example.com/page")

	assert.Equal(t, []string{
		"https://cdn.example.com/banner.jpeg",
		"https://example.com/docs/report.pdf",
		"https://example.com/img/logo.png",
	}, urls(refs))

	byURL := make(map[string]entity.AssetType)
	for _, r := range refs {
		byURL[r.URL] = r.Type
	}
	assert.Equal(t, entity.AssetTypePDF, byURL["https://example.com/docs/report.pdf"])
	assert.Equal(t, entity.AssetTypeImage, byURL["https://example.com/img/logo.png"])
}

func TestAssets_LazyAndResponsiveSources(t *testing.T) {
	html := `<html><body>
		<img data-src="/lazy/photo.webp">
		<img srcset="/small.png 480w, /large.png 1024w">
		<picture><source srcset="/hero.jpg 2x"></picture>
	</body></html>`

	refs := Assets(html, "https://example.com/")

	assert.Equal(t, []string{
		"https://example.com/hero.jpg",
		"https://example.com/large.png",
		"https://example.com/lazy/photo.webp",
		"https://example.com/small.png",
	}, urls(refs))
}

func TestAssets_InlineBackgroundImages(t *testing.T) {
	html := `<html><body>
		<div style="background-image: url('/bg/texture.png'); color: red"></div>
		<div style="background-image: url(&quot;/bg/hero.jpg&quot;)"></div>
		<div style="color: blue"></div>
	</body></html>`

	refs := Assets(html, "https://example.com/")

	assert.Equal(t, []string{
		"https://example.com/bg/hero.jpg",
		"https://example.com/bg/texture.png",
	}, urls(refs))
}

func TestAssets_DeduplicatesRepeatedReferences(t *testing.T) {
	html := `<html><body>
		<img src="/logo.png">
		<img src="/logo.png">
		<img src="https://example.com/logo.png">
		<div style="background-image: url('/logo.png')"></div>
	</body></html>`

	refs := Assets(html, "https://example.com/")

	require.Len(t, refs, 1)
	assert.Equal(t, "https://example.com/logo.png", refs[0].URL)
}

func TestAssets_SkipsNonFetchableReferences(t *testing.T) {
	html := `<html><body>
		<img src="data:image/png;base64,iVBORw0KGgo=">
		<img src="javascript:alert(1)">
		<a href="mailto:team@example.com">Mail</a>
		<a href="ftp://example.com/file.pdf">FTP</a>
		<img src="">
	</body></html>`

	refs := Assets(html, "https://example.com/")
	assert.Empty(t, refs)
}

func TestAssets_IgnoresUnclassifiableExtensions(t *testing.T) {
	html := `<html><body>
		<img src="/dynamic/image">
		<a href="/download/archive.zip">Archive</a>
		<a href="/doc.pdf#page=3">Doc</a>
	</body></html>`

	refs := Assets(html, "https://example.com/")

	require.Len(t, refs, 1)
	assert.Equal(t, "https://example.com/doc.pdf", refs[0].URL, "fragment is stripped")
}

func TestAssets_ResolvesAgainstFinalURL(t *testing.T) {
	html := `<img src="../shared/icon.svg">`

	refs := Assets(html, "https://example.com/blog/post/")

	require.Len(t, refs, 1)
	assert.Equal(t, "https://example.com/blog/shared/icon.svg", refs[0].URL)
}

func TestAssets_MalformedHTMLIsBestEffort(t *testing.T) {
	html := `<html><body><img src="/ok.png"><div><<<>broken<a href="/f.pdf"`

	refs := Assets(html, "https://example.com/")

	assert.Contains(t, urls(refs), "https://example.com/ok.png")
}

func TestAssets_DeterministicOrder(t *testing.T) {
	html := `<html><body>
		<img src="/z.png"><img src="/a.png"><img src="/m.png">
	</body></html>`

	first := Assets(html, "https://example.com/")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Assets(html, "https://example.com/"))
	}
	assert.Equal(t, []string{
		"https://example.com/a.png",
		"https://example.com/m.png",
		"https://example.com/z.png",
	}, urls(first))
}
