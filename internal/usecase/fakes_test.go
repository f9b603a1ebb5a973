package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

// fakeCatalog is an in-memory stand-in for the PostgreSQL repositories. It
// reproduces the claim and guarded-transition semantics the orchestrator
// depends on, protected by one mutex since sweeps run workers concurrently.
type fakeCatalog struct {
	mu sync.Mutex

	domains map[int64]*entity.Domain
	urls    map[int64]*entity.PageURL
	assets  map[int64]*entity.Asset
	results []entity.OCRResult

	nextURLID    int64
	nextAssetID  int64
	nextResultID int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		domains: make(map[int64]*entity.Domain),
		urls:    make(map[int64]*entity.PageURL),
		assets:  make(map[int64]*entity.Asset),
	}
}

func (c *fakeCatalog) addDomain(id int64, host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.domains[id] = &entity.Domain{ID: id, UserID: 1, Domain: host, CreatedAt: time.Now()}
}

func (c *fakeCatalog) addURL(domainID int64, address string, status entity.URLStatus, retryCount int) *entity.PageURL {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextURLID++
	u := &entity.PageURL{
		ID:          c.nextURLID,
		DomainID:    domainID,
		Address:     address,
		Status:      status,
		RetryCount:  retryCount,
		NextRetryAt: time.Now().Add(-time.Second),
	}
	c.urls[u.ID] = u
	return u
}

func (c *fakeCatalog) addAsset(urlID int64, assetURL string, typ entity.AssetType, status entity.AssetStatus, retryCount int) *entity.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextAssetID++
	a := &entity.Asset{
		ID:          c.nextAssetID,
		URLID:       urlID,
		AssetURL:    assetURL,
		Type:        typ,
		Status:      status,
		RetryCount:  retryCount,
		NextRetryAt: time.Now().Add(-time.Second),
	}
	if status == entity.AssetStatusStored {
		a.StorageKey = "assets/1.png"
	}
	c.assets[a.ID] = a
	return a
}

func (c *fakeCatalog) urlByID(id int64) entity.PageURL {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.urls[id]
}

func (c *fakeCatalog) assetByID(id int64) entity.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.assets[id]
}

func (c *fakeCatalog) assetsByURL(urlID int64) []entity.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []entity.Asset
	for _, a := range c.assets {
		if a.URLID == urlID {
			out = append(out, *a)
		}
	}
	return out
}

// --- DomainRepository ---

type fakeDomainRepo struct{ c *fakeCatalog }

func (r *fakeDomainRepo) Create(_ context.Context, userID int64, domain string) (*entity.Domain, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, d := range r.c.domains {
		if d.UserID == userID && d.Domain == domain {
			return nil, repository.ErrConflict
		}
	}
	id := int64(len(r.c.domains) + 1)
	d := &entity.Domain{ID: id, UserID: userID, Domain: domain, CreatedAt: time.Now()}
	r.c.domains[id] = d
	return d, nil
}

func (r *fakeDomainRepo) GetByID(_ context.Context, id int64) (*entity.Domain, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	d, ok := r.c.domains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDomainRepo) ListIDs(_ context.Context) ([]int64, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var ids []int64
	for id := range r.c.domains {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeDomainRepo) Delete(_ context.Context, id int64) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.domains[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.c.domains, id)
	return nil
}

// --- URLRepository ---

type fakeURLRepo struct{ c *fakeCatalog }

func (r *fakeURLRepo) Create(_ context.Context, domainID int64, address string) (*entity.PageURL, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, u := range r.c.urls {
		if u.DomainID == domainID && u.Address == address {
			return nil, repository.ErrConflict
		}
	}
	r.c.nextURLID++
	u := &entity.PageURL{
		ID:          r.c.nextURLID,
		DomainID:    domainID,
		Address:     address,
		Status:      entity.URLStatusPending,
		NextRetryAt: time.Now(),
	}
	r.c.urls[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *fakeURLRepo) GetByID(_ context.Context, id int64) (*entity.PageURL, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	u, ok := r.c.urls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeURLRepo) CountByDomain(_ context.Context, domainID int64) (map[entity.URLStatus]int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	counts := make(map[entity.URLStatus]int)
	for _, u := range r.c.urls {
		if u.DomainID == domainID {
			counts[u.Status]++
		}
	}
	return counts, nil
}

func (r *fakeURLRepo) Claim(_ context.Context, domainID *int64, limit int, lease time.Duration) ([]*entity.PageURL, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	now := time.Now()
	var claimed []*entity.PageURL
	for _, u := range r.c.urls {
		if len(claimed) >= limit {
			break
		}
		if domainID != nil && u.DomainID != *domainID {
			continue
		}
		due := u.Status == entity.URLStatusPending && !u.NextRetryAt.After(now)
		expired := u.Status == entity.URLStatusFetching && u.LeaseExpiresAt != nil && u.LeaseExpiresAt.Before(now)
		if !due && !expired {
			continue
		}
		u.Status = entity.URLStatusFetching
		deadline := now.Add(lease)
		u.LeaseExpiresAt = &deadline
		cp := *u
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (r *fakeURLRepo) MarkExtracted(_ context.Context, id int64) error {
	return r.transition(id, entity.URLStatusFetching, func(u *entity.PageURL) {
		u.Status = entity.URLStatusExtracted
		u.LeaseExpiresAt = nil
		u.FailureReason = ""
	})
}

func (r *fakeURLRepo) MarkFailed(_ context.Context, id int64, reason string) error {
	return r.transition(id, entity.URLStatusFetching, func(u *entity.PageURL) {
		u.Status = entity.URLStatusFailed
		u.LeaseExpiresAt = nil
		u.FailureReason = reason
	})
}

func (r *fakeURLRepo) ReturnForRetry(_ context.Context, id int64, reason string, nextRetryAt time.Time) error {
	return r.transition(id, entity.URLStatusFetching, func(u *entity.PageURL) {
		u.Status = entity.URLStatusPending
		u.RetryCount++
		u.NextRetryAt = nextRetryAt
		u.FailureReason = reason
		u.LeaseExpiresAt = nil
	})
}

func (r *fakeURLRepo) transition(id int64, from entity.URLStatus, apply func(*entity.PageURL)) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	u, ok := r.c.urls[id]
	if !ok || u.Status != from {
		return repository.ErrNotFound
	}
	apply(u)
	return nil
}

// --- AssetRepository ---

type fakeAssetRepo struct{ c *fakeCatalog }

func (r *fakeAssetRepo) InsertRefs(_ context.Context, urlID int64, refs []entity.AssetRef) (int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	inserted := 0
	for _, ref := range refs {
		exists := false
		for _, a := range r.c.assets {
			if a.URLID == urlID && a.AssetURL == ref.URL {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		r.c.nextAssetID++
		r.c.assets[r.c.nextAssetID] = &entity.Asset{
			ID:          r.c.nextAssetID,
			URLID:       urlID,
			AssetURL:    ref.URL,
			Type:        ref.Type,
			Status:      entity.AssetStatusPending,
			NextRetryAt: time.Now().Add(-time.Second),
		}
		inserted++
	}
	return inserted, nil
}

func (r *fakeAssetRepo) GetByID(_ context.Context, id int64) (*entity.Asset, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	a, ok := r.c.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAssetRepo) Claim(_ context.Context, from entity.AssetStatus, limit int, lease time.Duration) ([]*entity.Asset, error) {
	to := entity.AssetStatusDownloading
	if from == entity.AssetStatusStored {
		to = entity.AssetStatusOCRPending
	}

	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	now := time.Now()
	var claimed []*entity.Asset
	for _, a := range r.c.assets {
		if len(claimed) >= limit {
			break
		}
		due := a.Status == from && !a.NextRetryAt.After(now)
		expired := a.Status == to && a.LeaseExpiresAt != nil && a.LeaseExpiresAt.Before(now)
		if !due && !expired {
			continue
		}
		a.Status = to
		deadline := now.Add(lease)
		a.LeaseExpiresAt = &deadline
		cp := *a
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (r *fakeAssetRepo) MarkStored(_ context.Context, id int64, storageKey string) error {
	return r.transition(id, entity.AssetStatusDownloading, func(a *entity.Asset) {
		a.Status = entity.AssetStatusStored
		a.StorageKey = storageKey
		a.LeaseExpiresAt = nil
		a.FailureReason = ""
	})
}

func (r *fakeAssetRepo) MarkOCRDone(_ context.Context, id int64, rec entity.Recognition) error {
	err := r.transition(id, entity.AssetStatusOCRPending, func(a *entity.Asset) {
		a.Status = entity.AssetStatusOCRDone
		a.LeaseExpiresAt = nil
		a.FailureReason = ""
	})
	if err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.nextResultID++
	r.c.results = append(r.c.results, entity.OCRResult{
		ID:         r.c.nextResultID,
		AssetID:    id,
		Content:    rec.Text,
		Confidence: rec.Confidence,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (r *fakeAssetRepo) MarkFailed(_ context.Context, id int64, reason string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	a, ok := r.c.assets[id]
	if !ok || (a.Status != entity.AssetStatusDownloading && a.Status != entity.AssetStatusOCRPending) {
		return repository.ErrNotFound
	}
	a.Status = entity.AssetStatusFailed
	a.LeaseExpiresAt = nil
	a.FailureReason = reason
	return nil
}

func (r *fakeAssetRepo) ReturnForRetry(_ context.Context, id int64, to entity.AssetStatus, reason string, nextRetryAt time.Time) error {
	from := entity.AssetStatusDownloading
	if to == entity.AssetStatusStored {
		from = entity.AssetStatusOCRPending
	}
	return r.transition(id, from, func(a *entity.Asset) {
		a.Status = to
		a.RetryCount++
		a.NextRetryAt = nextRetryAt
		a.FailureReason = reason
		a.LeaseExpiresAt = nil
	})
}

func (r *fakeAssetRepo) transition(id int64, from entity.AssetStatus, apply func(*entity.Asset)) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	a, ok := r.c.assets[id]
	if !ok || a.Status != from {
		return repository.ErrNotFound
	}
	apply(a)
	return nil
}

// --- OCRResultRepository ---

type fakeOCRResultRepo struct{ c *fakeCatalog }

func (r *fakeOCRResultRepo) LatestByAsset(_ context.Context, assetID int64) (*entity.OCRResult, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for i := len(r.c.results) - 1; i >= 0; i-- {
		if r.c.results[i].AssetID == assetID {
			cp := r.c.results[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- Outbound stubs ---

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(url string) (*entity.Page, error)
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*entity.Page, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(url)
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubStore struct {
	mu   sync.Mutex
	keys []string
	fn   func(srcURL, key string) error
}

func (s *stubStore) Store(_ context.Context, srcURL, key string) error {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(srcURL, key)
	}
	return nil
}

type stubOCR struct {
	mu    sync.Mutex
	calls int
	fn    func(storageKey string) (*entity.Recognition, error)
}

func (o *stubOCR) Recognize(_ context.Context, storageKey string) (*entity.Recognition, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	return o.fn(storageKey)
}

type stubGuard struct {
	mu    sync.Mutex
	swept map[int64]time.Time
}

func newStubGuard() *stubGuard {
	return &stubGuard{swept: make(map[int64]time.Time)}
}

func (g *stubGuard) MarkSwept(_ context.Context, domainID int64, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.swept[domainID] = time.Now().Add(ttl)
	return nil
}

func (g *stubGuard) RecentlySwept(_ context.Context, domainID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.swept[domainID]
	return ok && until.After(time.Now()), nil
}

type stubSweeper struct {
	mu      sync.Mutex
	calls   int
	domains []*int64
}

func (s *stubSweeper) Sweep(_ context.Context, domainID *int64, _ Trigger) (*SweepStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.domains = append(s.domains, domainID)
	return &SweepStats{}, nil
}

func (s *stubSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
