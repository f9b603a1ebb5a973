package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

var (
	ErrInvalidDomain = errors.New("invalid domain name")
	ErrInvalidURL    = errors.New("invalid url for domain")
)

// DomainStatus aggregates a domain with its URL pipeline progress.
type DomainStatus struct {
	Domain    *entity.Domain
	URLCounts map[entity.URLStatus]int
}

// AssetStatus aggregates an asset with its latest OCR result, if any.
type AssetStatus struct {
	Asset     *entity.Asset
	OCRResult *entity.OCRResult
}

// CatalogManager is the inbound API of the pipeline: domain submission, sweep
// triggering and status queries.
type CatalogManager interface {
	SubmitDomain(ctx context.Context, userID int64, domain string) (*entity.Domain, error)
	SeedURL(ctx context.Context, domainID int64, rawURL string) (*entity.PageURL, error)
	DeleteDomain(ctx context.Context, domainID int64) error
	TriggerSweep(domainID *int64) string
	GetDomainStatus(ctx context.Context, domainID int64) (*DomainStatus, error)
	GetURLStatus(ctx context.Context, urlID int64) (*entity.PageURL, error)
	GetAssetStatus(ctx context.Context, assetID int64) (*AssetStatus, error)
}

type catalogManagerUseCase struct {
	domains    repository.DomainRepository
	urls       repository.URLRepository
	assets     repository.AssetRepository
	ocrResults repository.OCRResultRepository
	sweeper    Sweeper
	sweepLimit time.Duration
}

// NewCatalogManager creates a new CatalogManager use case.
func NewCatalogManager(
	domains repository.DomainRepository,
	urls repository.URLRepository,
	assets repository.AssetRepository,
	ocrResults repository.OCRResultRepository,
	sweeper Sweeper,
	sweepLimit time.Duration,
) CatalogManager {
	return &catalogManagerUseCase{
		domains:    domains,
		urls:       urls,
		assets:     assets,
		ocrResults: ocrResults,
		sweeper:    sweeper,
		sweepLimit: sweepLimit,
	}
}

// SubmitDomain registers a domain for a user and seeds its root URL as the
// first pending page.
func (uc *catalogManagerUseCase) SubmitDomain(ctx context.Context, userID int64, domain string) (*entity.Domain, error) {
	host, err := normalizeHost(domain)
	if err != nil {
		return nil, err
	}

	d, err := uc.domains.Create(ctx, userID, host)
	if err != nil {
		return nil, fmt.Errorf("create domain %s: %w", host, err)
	}

	seed := "https://" + host + "/"
	if _, err := uc.urls.Create(ctx, d.ID, seed); err != nil && !errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("seed root url for domain %d: %w", d.ID, err)
	}

	slog.Info("Domain submitted", "domain_id", d.ID, "domain", host, "user_id", userID)
	return d, nil
}

// SeedURL registers an explicit page under the domain as pending.
func (uc *catalogManagerUseCase) SeedURL(ctx context.Context, domainID int64, rawURL string) (*entity.PageURL, error) {
	d, err := uc.domains.GetByID(ctx, domainID)
	if err != nil {
		return nil, err
	}

	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, ErrInvalidURL
	}
	host := strings.ToLower(parsed.Hostname())
	if host != d.Domain && !strings.HasSuffix(host, "."+d.Domain) {
		return nil, fmt.Errorf("%w: host %s is outside domain %s", ErrInvalidURL, host, d.Domain)
	}

	u, err := uc.urls.Create(ctx, domainID, parsed.String())
	if err != nil {
		return nil, err
	}
	slog.Info("URL seeded", "url_id", u.ID, "domain_id", domainID, "address", u.Address)
	return u, nil
}

func (uc *catalogManagerUseCase) DeleteDomain(ctx context.Context, domainID int64) error {
	return uc.domains.Delete(ctx, domainID)
}

// TriggerSweep starts an on-demand sweep in the background and returns its
// id. Overlap with a scheduled sweep is safe: workers coordinate through
// catalog claims, not in-memory locks.
func (uc *catalogManagerUseCase) TriggerSweep(domainID *int64) string {
	sweepID := uuid.NewString()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), uc.sweepLimit)
		defer cancel()

		stats, err := uc.sweeper.Sweep(ctx, domainID, TriggerManual)
		if err != nil {
			slog.Error("On-demand sweep failed", "sweep_id", sweepID, "error", err)
			return
		}
		slog.Info("On-demand sweep completed",
			"sweep_id", sweepID,
			"urls_claimed", stats.URLsClaimed,
			"assets_stored", stats.AssetsStored,
			"assets_ocr_done", stats.AssetsOCRDone,
		)
	}()

	return sweepID
}

func (uc *catalogManagerUseCase) GetDomainStatus(ctx context.Context, domainID int64) (*DomainStatus, error) {
	d, err := uc.domains.GetByID(ctx, domainID)
	if err != nil {
		return nil, err
	}
	counts, err := uc.urls.CountByDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	return &DomainStatus{Domain: d, URLCounts: counts}, nil
}

func (uc *catalogManagerUseCase) GetURLStatus(ctx context.Context, urlID int64) (*entity.PageURL, error) {
	return uc.urls.GetByID(ctx, urlID)
}

func (uc *catalogManagerUseCase) GetAssetStatus(ctx context.Context, assetID int64) (*AssetStatus, error) {
	a, err := uc.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	res, err := uc.ocrResults.LatestByAsset(ctx, assetID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return &AssetStatus{Asset: a, OCRResult: res}, nil
}

// normalizeHost reduces a user-supplied domain to a bare lowercase hostname.
func normalizeHost(raw string) (string, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimSuffix(strings.SplitN(raw, "/", 2)[0], ".")

	if raw == "" || !strings.Contains(raw, ".") || strings.ContainsAny(raw, " \t") {
		return "", ErrInvalidDomain
	}
	if _, err := url.Parse("https://" + raw + "/"); err != nil {
		return "", ErrInvalidDomain
	}
	return raw, nil
}
