// Package catalog serves the read-only product catalog from a static JSON
// document fetched over HTTP, cached in memory for a fixed freshness
// window. Fetch failures degrade to the last good cache and a user
// notice; they never surface as hard errors.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/bluehouse-sports/storefront/internal/domain"
	"github.com/bluehouse-sports/storefront/internal/kv"
	"github.com/bluehouse-sports/storefront/internal/notify"
)

const (
	defaultFreshness    = 5 * time.Minute
	defaultFetchTimeout = 5 * time.Second
	fetchRetries        = 2
	recentSearchesKey   = "bluehouse_recent_searches"
	maxRecentSearches   = 10
)

type Provider struct {
	url      string
	client   *http.Client
	store    kv.Store
	notifier notify.Notifier
	logger   *slog.Logger

	freshness    time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu         sync.Mutex
	cache      []domain.Product
	cachedAt   time.Time
	generation uint64

	searchMu sync.Mutex

	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

type Option func(*Provider)

func WithFreshness(d time.Duration) Option {
	return func(p *Provider) { p.freshness = d }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(p *Provider) { p.fetchTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(url string, client *http.Client, store kv.Store, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		url:          url,
		client:       client,
		store:        store,
		notifier:     notifier,
		logger:       logger,
		freshness:    defaultFreshness,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	meter := otel.Meter("storefront/catalog")
	p.cacheHits, _ = meter.Int64Counter("catalog.cache.hits")
	p.cacheMisses, _ = meter.Int64Counter("catalog.cache.misses")

	return p
}

// Products returns the full catalog, serving from cache while it is
// younger than the freshness window. On fetch failure it falls back to
// the last good cache, else an empty slice.
func (p *Provider) Products(ctx context.Context) []domain.Product {
	p.mu.Lock()
	if p.cacheValid() {
		products := slices.Clone(p.cache)
		p.mu.Unlock()
		p.cacheHits.Add(ctx, 1)
		return products
	}
	generation := p.generation
	lastGood := slices.Clone(p.cache)
	p.mu.Unlock()

	p.cacheMisses.Add(ctx, 1)

	products, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("catalog fetch failed, serving cached data", "error", err, "cached", len(lastGood))
		p.notifier.Notify(notify.KindError, "Could not refresh the catalog. Check your connection.")
		if len(lastGood) > 0 {
			return lastGood
		}
		return []domain.Product{}
	}

	for i := range products {
		products[i].Rating = products[i].ComputeRating()
	}

	p.mu.Lock()
	// An invalidation or a newer fetch may have raced this one; a stale
	// result must not clobber the fresher cache entry.
	if p.generation == generation {
		p.cache = slices.Clone(products)
		p.cachedAt = p.now()
		p.generation++
	}
	p.mu.Unlock()

	return products
}

// ProductByID fails fast for structurally invalid ids without touching
// the network.
func (p *Provider) ProductByID(ctx context.Context, id int) (domain.Product, bool) {
	if id <= 0 {
		return domain.Product{}, false
	}
	for _, product := range p.Products(ctx) {
		if product.ID == id {
			return product, true
		}
	}
	return domain.Product{}, false
}

func (p *Provider) ProductsByVariant(ctx context.Context, variant domain.Variant) []domain.Product {
	var matched []domain.Product
	for _, product := range p.Products(ctx) {
		if product.Variant == variant {
			matched = append(matched, product)
		}
	}
	return matched
}

// Filtered returns the catalog narrowed by f and ordered by s.
func (p *Provider) Filtered(ctx context.Context, f Filter, s Sort) []domain.Product {
	return applyFilterSort(p.Products(ctx), f, s)
}

// Recommended picks up to limit products sharing the variant of the one
// being viewed, excluding it.
func (p *Provider) Recommended(ctx context.Context, currentID int, variant domain.Variant, limit int) []domain.Product {
	var recommended []domain.Product
	for _, product := range p.ProductsByVariant(ctx, variant) {
		if product.ID == currentID {
			continue
		}
		recommended = append(recommended, product)
		if len(recommended) == limit {
			break
		}
	}
	return recommended
}

// Search matches the sanitized term case-insensitively against product
// names and variant tags, and records non-empty terms in the recent
// search history.
func (p *Provider) Search(ctx context.Context, term string) []domain.Product {
	sanitized := SanitizeTerm(term)
	if sanitized == "" {
		return []domain.Product{}
	}

	p.recordSearch(ctx, sanitized)

	matched := []domain.Product{}
	for _, product := range p.Products(ctx) {
		if strings.Contains(strings.ToLower(product.Name), sanitized) ||
			strings.Contains(strings.ToLower(string(product.Variant)), sanitized) {
			matched = append(matched, product)
		}
	}
	return matched
}

// AddReview appends a review to the cached product and recomputes its
// rating. It reports false when the product is unknown.
func (p *Provider) AddReview(ctx context.Context, productID int, review domain.Review) (domain.Product, bool) {
	if _, ok := p.ProductByID(ctx, productID); !ok {
		return domain.Product{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.cache {
		if p.cache[i].ID == productID {
			p.cache[i].Reviews = append(slices.Clone(p.cache[i].Reviews), review)
			p.cache[i].Rating = p.cache[i].ComputeRating()
			return p.cache[i], true
		}
	}
	return domain.Product{}, false
}

// InvalidateCache forces the next Products call to refetch and fences off
// any fetch already in flight.
func (p *Provider) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = nil
	p.cachedAt = time.Time{}
	p.generation++
}

// RecentSearches returns the persisted search history, most recent first.
// A missing or malformed blob reads as empty.
func (p *Provider) RecentSearches(ctx context.Context) []string {
	raw, err := p.store.Get(ctx, recentSearchesKey)
	if err != nil {
		if err != kv.ErrNotFound {
			p.logger.Warn("failed to load recent searches", "error", err)
		}
		return []string{}
	}
	var terms []string
	if err := json.Unmarshal(raw, &terms); err != nil {
		p.logger.Warn("discarding malformed recent searches", "error", err)
		return []string{}
	}
	return terms
}

func (p *Provider) recordSearch(ctx context.Context, term string) {
	// The history update is a read-modify-write of one blob; parallel
	// searches must not drop each other's terms.
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	terms := p.RecentSearches(ctx)
	updated := []string{term}
	for _, t := range terms {
		if t != term {
			updated = append(updated, t)
		}
		if len(updated) == maxRecentSearches {
			break
		}
	}
	raw, err := json.Marshal(updated)
	if err != nil {
		return
	}
	if err := p.store.Set(ctx, recentSearchesKey, raw); err != nil {
		p.logger.Warn("failed to persist recent searches", "error", err)
	}
}

func (p *Provider) cacheValid() bool {
	return len(p.cache) > 0 && !p.cachedAt.IsZero() && p.now().Sub(p.cachedAt) < p.freshness
}

func (p *Provider) fetch(ctx context.Context) ([]domain.Product, error) {
	var lastErr error
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		products, err := p.fetchOnce(ctx)
		if err == nil {
			return products, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (p *Provider) fetchOnce(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog source returned status %d", resp.StatusCode)
	}

	var products []domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return products, nil
}
