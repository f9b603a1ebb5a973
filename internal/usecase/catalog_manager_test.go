package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

func newCatalogManagerFixture() (*fakeCatalog, *stubSweeper, CatalogManager) {
	catalog := newFakeCatalog()
	sweeper := &stubSweeper{}
	manager := NewCatalogManager(
		&fakeDomainRepo{c: catalog},
		&fakeURLRepo{c: catalog},
		&fakeAssetRepo{c: catalog},
		&fakeOCRResultRepo{c: catalog},
		sweeper,
		time.Minute,
	)
	return catalog, sweeper, manager
}

func TestSubmitDomain_NormalizesAndSeedsRootURL(t *testing.T) {
	catalog, _, manager := newCatalogManagerFixture()

	d, err := manager.SubmitDomain(context.Background(), 7, "HTTPS://Example.COM/some/path")
	require.NoError(t, err)
	assert.Equal(t, "example.com", d.Domain)
	assert.Equal(t, int64(7), d.UserID)

	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	require.Len(t, catalog.urls, 1)
	for _, u := range catalog.urls {
		assert.Equal(t, "https://example.com/", u.Address)
		assert.Equal(t, entity.URLStatusPending, u.Status)
	}
}

func TestSubmitDomain_RejectsInvalidNames(t *testing.T) {
	_, _, manager := newCatalogManagerFixture()

	for _, raw := range []string{"", "   ", "localhost", "no spaces allowed.com here"} {
		_, err := manager.SubmitDomain(context.Background(), 1, raw)
		assert.ErrorIs(t, err, ErrInvalidDomain, "input %q", raw)
	}
}

func TestSubmitDomain_DuplicateReturnsConflict(t *testing.T) {
	_, _, manager := newCatalogManagerFixture()

	_, err := manager.SubmitDomain(context.Background(), 1, "example.com")
	require.NoError(t, err)

	_, err = manager.SubmitDomain(context.Background(), 1, "example.com")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestSeedURL_AcceptsDomainAndSubdomainPages(t *testing.T) {
	_, _, manager := newCatalogManagerFixture()
	d, err := manager.SubmitDomain(context.Background(), 1, "example.com")
	require.NoError(t, err)

	u, err := manager.SeedURL(context.Background(), d.ID, "https://example.com/pricing")
	require.NoError(t, err)
	assert.Equal(t, entity.URLStatusPending, u.Status)

	_, err = manager.SeedURL(context.Background(), d.ID, "https://docs.example.com/guide")
	assert.NoError(t, err)
}

func TestSeedURL_RejectsForeignAndMalformedURLs(t *testing.T) {
	_, _, manager := newCatalogManagerFixture()
	d, err := manager.SubmitDomain(context.Background(), 1, "example.com")
	require.NoError(t, err)

	cases := []string{
		"https://other.org/page",
		"https://badexample.com/",
		"ftp://example.com/file",
		"not a url",
	}
	for _, raw := range cases {
		_, err := manager.SeedURL(context.Background(), d.ID, raw)
		assert.ErrorIs(t, err, ErrInvalidURL, "input %q", raw)
	}
}

func TestSeedURL_UnknownDomainReturnsNotFound(t *testing.T) {
	_, _, manager := newCatalogManagerFixture()

	_, err := manager.SeedURL(context.Background(), 42, "https://example.com/")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTriggerSweep_RunsSweepInBackground(t *testing.T) {
	_, sweeper, manager := newCatalogManagerFixture()

	target := int64(3)
	sweepID := manager.TriggerSweep(&target)
	assert.NotEmpty(t, sweepID)

	require.Eventually(t, func() bool {
		return sweeper.callCount() == 1
	}, time.Second, 10*time.Millisecond)

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()
	require.Len(t, sweeper.domains, 1)
	require.NotNil(t, sweeper.domains[0])
	assert.Equal(t, int64(3), *sweeper.domains[0])
}

func TestGetDomainStatus_AggregatesURLCounts(t *testing.T) {
	catalog, _, manager := newCatalogManagerFixture()
	d, err := manager.SubmitDomain(context.Background(), 1, "example.com")
	require.NoError(t, err)
	catalog.addURL(d.ID, "https://example.com/a", entity.URLStatusExtracted, 0)
	catalog.addURL(d.ID, "https://example.com/b", entity.URLStatusFailed, 3)

	status, err := manager.GetDomainStatus(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "example.com", status.Domain.Domain)
	assert.Equal(t, 1, status.URLCounts[entity.URLStatusPending])
	assert.Equal(t, 1, status.URLCounts[entity.URLStatusExtracted])
	assert.Equal(t, 1, status.URLCounts[entity.URLStatusFailed])
}

func TestGetAssetStatus_IncludesLatestOCRResult(t *testing.T) {
	catalog, _, manager := newCatalogManagerFixture()
	catalog.addDomain(1, "example.com")
	u := catalog.addURL(1, "https://example.com/", entity.URLStatusExtracted, 0)
	a := catalog.addAsset(u.ID, "https://example.com/scan.png", entity.AssetTypeImage, entity.AssetStatusStored, 0)

	status, err := manager.GetAssetStatus(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, status.OCRResult, "no result before OCR completes")

	assetRepo := &fakeAssetRepo{c: catalog}
	_, err = assetRepo.Claim(context.Background(), entity.AssetStatusStored, 10, time.Minute)
	require.NoError(t, err)
	require.NoError(t, assetRepo.MarkOCRDone(context.Background(), a.ID, entity.Recognition{Text: "hello", Confidence: 0.8}))

	status, err = manager.GetAssetStatus(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, status.OCRResult)
	assert.Equal(t, "hello", status.OCRResult.Content)
	assert.Equal(t, entity.AssetStatusOCRDone, status.Asset.Status)
}

func TestDeleteDomain_UnknownDomainReturnsNotFound(t *testing.T) {
	_, _, manager := newCatalogManagerFixture()

	err := manager.DeleteDomain(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
