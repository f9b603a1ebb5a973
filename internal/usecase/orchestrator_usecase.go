package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/extract"
	"github.com/user/asset-pipeline/internal/repository"
	"github.com/user/asset-pipeline/pkg/metrics"
	"github.com/user/asset-pipeline/pkg/utils"
)

// Trigger identifies what started a sweep.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// SweepStats summarizes one orchestrator pass.
type SweepStats struct {
	URLsClaimed      int64
	URLsExtracted    int64
	URLsFailed       int64
	URLsRetried      int64
	AssetsDiscovered int64
	AssetsStored     int64
	AssetsOCRDone    int64
	AssetsFailed     int64
	AssetsRetried    int64
}

type sweepCounters struct {
	urlsClaimed      atomic.Int64
	urlsExtracted    atomic.Int64
	urlsFailed       atomic.Int64
	urlsRetried      atomic.Int64
	assetsDiscovered atomic.Int64
	assetsStored     atomic.Int64
	assetsOCRDone    atomic.Int64
	assetsFailed     atomic.Int64
	assetsRetried    atomic.Int64
}

func (c *sweepCounters) snapshot() *SweepStats {
	return &SweepStats{
		URLsClaimed:      c.urlsClaimed.Load(),
		URLsExtracted:    c.urlsExtracted.Load(),
		URLsFailed:       c.urlsFailed.Load(),
		URLsRetried:      c.urlsRetried.Load(),
		AssetsDiscovered: c.assetsDiscovered.Load(),
		AssetsStored:     c.assetsStored.Load(),
		AssetsOCRDone:    c.assetsOCRDone.Load(),
		AssetsFailed:     c.assetsFailed.Load(),
		AssetsRetried:    c.assetsRetried.Load(),
	}
}

// OrchestratorConfig bounds a sweep's batch sizes, concurrency and retries.
type OrchestratorConfig struct {
	ClaimBatchSize int
	MaxConcurrency int
	MaxRetries     int
	ClaimLease     time.Duration
	DomainGuardTTL time.Duration
}

// Sweeper is the orchestrator entry point shared by the scheduler and the
// on-demand trigger.
type Sweeper interface {
	Sweep(ctx context.Context, domainID *int64, trigger Trigger) (*SweepStats, error)
}

type orchestrator struct {
	domains repository.DomainRepository
	urls    repository.URLRepository
	assets  repository.AssetRepository
	fetcher repository.PageFetcher
	store   repository.ObjectStore
	ocr     repository.OCRClient
	guard   repository.SweepGuard
	cfg     OrchestratorConfig
}

// NewOrchestrator creates the pipeline orchestrator.
func NewOrchestrator(
	domains repository.DomainRepository,
	urls repository.URLRepository,
	assets repository.AssetRepository,
	fetcher repository.PageFetcher,
	store repository.ObjectStore,
	ocr repository.OCRClient,
	guard repository.SweepGuard,
	cfg OrchestratorConfig,
) Sweeper {
	// errgroup.SetLimit(0) would block every Go call forever.
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	return &orchestrator{
		domains: domains,
		urls:    urls,
		assets:  assets,
		fetcher: fetcher,
		store:   store,
		ocr:     ocr,
		guard:   guard,
		cfg:     cfg,
	}
}

// Sweep claims a bounded batch of due URLs per domain, drives them through
// fetch+extract, then drives claimed asset batches through upload and OCR.
// All coordination with concurrent sweeps happens through catalog claims, so
// overlapping invocations are safe; a sweep with nothing due is a no-op.
func (o *orchestrator) Sweep(ctx context.Context, domainID *int64, trigger Trigger) (*SweepStats, error) {
	start := time.Now()
	metrics.SweepsTotal.WithLabelValues(string(trigger)).Inc()

	counters := &sweepCounters{}

	if err := o.sweepURLs(ctx, domainID, trigger, counters); err != nil {
		return counters.snapshot(), err
	}
	if err := o.sweepAssetStage(ctx, entity.AssetStatusPending, counters); err != nil {
		return counters.snapshot(), err
	}
	if err := o.sweepAssetStage(ctx, entity.AssetStatusStored, counters); err != nil {
		return counters.snapshot(), err
	}

	stats := counters.snapshot()
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	slog.Info("Sweep finished",
		"trigger", trigger,
		"duration_ms", time.Since(start).Milliseconds(),
		"urls_claimed", stats.URLsClaimed,
		"urls_extracted", stats.URLsExtracted,
		"assets_discovered", stats.AssetsDiscovered,
		"assets_stored", stats.AssetsStored,
		"assets_ocr_done", stats.AssetsOCRDone,
	)
	return stats, nil
}

func (o *orchestrator) sweepURLs(ctx context.Context, domainID *int64, trigger Trigger, counters *sweepCounters) error {
	targets, err := o.targetDomains(ctx, domainID, trigger)
	if err != nil {
		return fmt.Errorf("resolve sweep targets: %w", err)
	}

	for _, id := range targets {
		id := id
		claimed, err := o.urls.Claim(ctx, &id, o.cfg.ClaimBatchSize, o.cfg.ClaimLease)
		if err != nil {
			return fmt.Errorf("claim urls for domain %d: %w", id, err)
		}
		counters.urlsClaimed.Add(int64(len(claimed)))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.MaxConcurrency)
		for _, u := range claimed {
			u := u
			g.Go(func() error {
				return o.processURL(gctx, u, counters)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if o.guard != nil {
			if err := o.guard.MarkSwept(ctx, id, o.cfg.DomainGuardTTL); err != nil {
				// Guard is advisory only, never fails a sweep.
				slog.Warn("Failed to mark domain as swept", "domain_id", id, "error", err)
			}
		}
	}
	return nil
}

func (o *orchestrator) targetDomains(ctx context.Context, domainID *int64, trigger Trigger) ([]int64, error) {
	if domainID != nil {
		return []int64{*domainID}, nil
	}

	ids, err := o.domains.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	if o.guard == nil || trigger != TriggerScheduled {
		return ids, nil
	}

	// Scheduled sweeps skip domains swept within the guard window. Manual
	// sweeps always run.
	due := ids[:0]
	for _, id := range ids {
		recent, err := o.guard.RecentlySwept(ctx, id)
		if err != nil {
			slog.Warn("Sweep guard check failed, including domain", "domain_id", id, "error", err)
			recent = false
		}
		if !recent {
			due = append(due, id)
		}
	}
	return due, nil
}

// processURL drives one claimed URL through fetch and extraction, then writes
// the resulting status transition. Stage errors never escape; only catalog
// failures propagate and abort the sweep.
func (o *orchestrator) processURL(ctx context.Context, u *entity.PageURL, counters *sweepCounters) error {
	start := time.Now()
	page, err := o.fetcher.Fetch(ctx, u.Address)
	metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())

	if err != nil {
		return o.settleURLFailure(ctx, u, err, counters)
	}

	refs := extract.Assets(page.HTML, page.FinalURL)
	inserted, err := o.assets.InsertRefs(ctx, u.ID, refs)
	if err != nil {
		return fmt.Errorf("insert assets for url %d: %w", u.ID, err)
	}
	counters.assetsDiscovered.Add(int64(inserted))
	metrics.AssetsDiscovered.Add(float64(inserted))

	if err := o.urls.MarkExtracted(ctx, u.ID); err != nil {
		return o.settleTransitionErr("url", u.ID, err)
	}
	counters.urlsExtracted.Add(1)
	metrics.StageTotal.WithLabelValues("fetch", "success").Inc()
	slog.Info("URL extracted", "url_id", u.ID, "address", u.Address, "assets_found", len(refs), "assets_new", inserted)
	return nil
}

func (o *orchestrator) settleURLFailure(ctx context.Context, u *entity.PageURL, stageErr error, counters *sweepCounters) error {
	if isPermanent(stageErr) || u.RetryCount+1 >= o.cfg.MaxRetries {
		if err := o.urls.MarkFailed(ctx, u.ID, stageErr.Error()); err != nil {
			return o.settleTransitionErr("url", u.ID, err)
		}
		counters.urlsFailed.Add(1)
		metrics.StageTotal.WithLabelValues("fetch", "failed").Inc()
		slog.Error("URL failed terminally", "url_id", u.ID, "address", u.Address, "error", stageErr)
		return nil
	}

	retryAt := nextRetryAt(time.Now(), u.RetryCount, initialBackoff)
	if err := o.urls.ReturnForRetry(ctx, u.ID, stageErr.Error(), retryAt); err != nil {
		return o.settleTransitionErr("url", u.ID, err)
	}
	counters.urlsRetried.Add(1)
	metrics.StageTotal.WithLabelValues("fetch", "retry").Inc()
	slog.Warn("URL fetch failed, scheduled retry", "url_id", u.ID, "attempt", u.RetryCount+1, "next_retry_at", retryAt, "error", stageErr)
	return nil
}

// sweepAssetStage claims a bounded batch of assets in the given claimable
// status and drives them through the matching stage.
func (o *orchestrator) sweepAssetStage(ctx context.Context, from entity.AssetStatus, counters *sweepCounters) error {
	claimed, err := o.assets.Claim(ctx, from, o.cfg.ClaimBatchSize, o.cfg.ClaimLease)
	if err != nil {
		return fmt.Errorf("claim %s assets: %w", from, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrency)
	for _, a := range claimed {
		a := a
		g.Go(func() error {
			switch from {
			case entity.AssetStatusPending:
				return o.processPendingAsset(gctx, a, counters)
			default:
				return o.processStoredAsset(gctx, a, counters)
			}
		})
	}
	return g.Wait()
}

// processPendingAsset downloads the asset and streams it to object storage.
func (o *orchestrator) processPendingAsset(ctx context.Context, a *entity.Asset, counters *sweepCounters) error {
	key := utils.AssetStorageKey(a.ID, a.AssetURL)

	start := time.Now()
	err := o.store.Store(ctx, a.AssetURL, key)
	metrics.StageDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())

	if err != nil {
		return o.settleAssetFailure(ctx, a, entity.AssetStatusPending, err, "store", counters)
	}

	if err := o.assets.MarkStored(ctx, a.ID, key); err != nil {
		return o.settleTransitionErr("asset", a.ID, err)
	}
	counters.assetsStored.Add(1)
	metrics.StageTotal.WithLabelValues("store", "success").Inc()
	slog.Info("Asset stored", "asset_id", a.ID, "key", key)
	return nil
}

// processStoredAsset submits the stored object for OCR and records the result.
func (o *orchestrator) processStoredAsset(ctx context.Context, a *entity.Asset, counters *sweepCounters) error {
	start := time.Now()
	rec, err := o.ocr.Recognize(ctx, a.StorageKey)
	metrics.StageDuration.WithLabelValues("ocr").Observe(time.Since(start).Seconds())

	if err != nil {
		return o.settleAssetFailure(ctx, a, entity.AssetStatusStored, err, "ocr", counters)
	}

	if err := o.assets.MarkOCRDone(ctx, a.ID, *rec); err != nil {
		return o.settleTransitionErr("asset", a.ID, err)
	}
	counters.assetsOCRDone.Add(1)
	metrics.StageTotal.WithLabelValues("ocr", "success").Inc()
	slog.Info("Asset OCR complete", "asset_id", a.ID, "confidence", rec.Confidence)
	return nil
}

func (o *orchestrator) settleAssetFailure(ctx context.Context, a *entity.Asset, retryTo entity.AssetStatus, stageErr error, stage string, counters *sweepCounters) error {
	if isPermanent(stageErr) || a.RetryCount+1 >= o.cfg.MaxRetries {
		if err := o.assets.MarkFailed(ctx, a.ID, stageErr.Error()); err != nil {
			return o.settleTransitionErr("asset", a.ID, err)
		}
		counters.assetsFailed.Add(1)
		metrics.StageTotal.WithLabelValues(stage, "failed").Inc()
		slog.Error("Asset failed terminally", "asset_id", a.ID, "stage", stage, "error", stageErr)
		return nil
	}

	base := initialBackoff
	if errors.Is(stageErr, repository.ErrOCRQuota) {
		base = quotaBackoff
	}
	retryAt := nextRetryAt(time.Now(), a.RetryCount, base)
	if err := o.assets.ReturnForRetry(ctx, a.ID, retryTo, stageErr.Error(), retryAt); err != nil {
		return o.settleTransitionErr("asset", a.ID, err)
	}
	counters.assetsRetried.Add(1)
	metrics.StageTotal.WithLabelValues(stage, "retry").Inc()
	slog.Warn("Asset stage failed, scheduled retry", "asset_id", a.ID, "stage", stage, "attempt", a.RetryCount+1, "next_retry_at", retryAt, "error", stageErr)
	return nil
}

// settleTransitionErr decides whether a failed status write aborts the sweep.
// ErrNotFound means another worker already advanced the row; that item is
// simply dropped. Anything else is an infrastructure failure.
func (o *orchestrator) settleTransitionErr(kind string, id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		slog.Warn("Item advanced by another worker, skipping", "kind", kind, "id", id)
		return nil
	}
	return fmt.Errorf("update %s %d: %w", kind, id, err)
}

// isPermanent reports whether a stage error must not be retried.
func isPermanent(err error) bool {
	return errors.Is(err, repository.ErrInvalidContent) ||
		errors.Is(err, repository.ErrOCRUnsupported) ||
		errors.Is(err, repository.ErrAssetTooLarge)
}
