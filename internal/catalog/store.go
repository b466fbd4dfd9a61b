// Package catalog owns the catalog state: fetched products and categories,
// the active filters, the page cursor and the load status.
//
// A Store is the single writer of its state. Commands apply exactly one state
// transition under the write lock; queries read a consistent snapshot. The
// derived view is computed lazily by package view on every read.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/procart/internal/catalog/view"
	"github.com/xenking/procart/internal/domain/product"
)

// Options configures a Store. Zero values select defaults.
type Options struct {
	// PageSize is fixed for the Store's lifetime. Defaults to view.DefaultPageSize.
	PageSize      int
	Logger        *zap.Logger
	MeterProvider metric.MeterProvider
}

func (o *Options) setDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = view.DefaultPageSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = noop.NewMeterProvider()
	}
}

// viewKey identifies a projection; products are replaced wholesale, so a
// version counter stands in for their content.
type viewKey struct {
	version  uint64
	category string
	query    string
	page     int
}

// Store holds the catalog state and exposes commands and queries over it.
// It is safe for concurrent use.
type Store struct {
	src     product.Source
	lg      *zap.Logger
	metrics *metrics

	mu    sync.RWMutex
	state State
	// catalogGen and categoriesGen count initiated fetches. A resolving fetch
	// is applied only if it is still the latest one initiated.
	catalogGen    uint64
	categoriesGen uint64
	// version increments whenever Products is replaced.
	version uint64

	memoMu  sync.Mutex
	memoKey viewKey
	memo    *view.Result
}

// New creates a Store in the idle state backed by src.
func New(src product.Source, opts Options) *Store {
	opts.setDefaults()
	return &Store{
		src:     src,
		lg:      opts.Logger,
		metrics: newMetrics(opts.MeterProvider),
		state: State{
			Products:    []product.Product{},
			Categories:  []string{},
			CurrentPage: 1,
			PageSize:    opts.PageSize,
			LoadStatus:  StatusIdle,
		},
	}
}

// LoadCatalog fetches the product list. The status is loading while the
// fetch is in flight, then loaded or failed. On failure the previous products
// are kept and LastError is set. The fetch error is also returned.
//
// Overlapping calls are allowed: only the most recently initiated call
// applies its result, earlier ones resolve without touching the state.
func (s *Store) LoadCatalog(ctx context.Context) error {
	s.mu.Lock()
	s.catalogGen++
	gen := s.catalogGen
	s.state.LoadStatus = StatusLoading
	s.state.LastError = ""
	s.mu.Unlock()

	lg := s.lg.With(zap.Uint64("generation", gen))
	lg.Debug("Loading catalog")

	start := time.Now()
	products, err := s.src.FetchProducts(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	if gen != s.catalogGen {
		s.mu.Unlock()
		lg.Debug("Dropping stale catalog response", zap.Duration("took", elapsed))
		s.metrics.recordFetch(ctx, "products", resultStale, elapsed)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
		return nil
	}
	if err != nil {
		s.state.LoadStatus = StatusFailed
		s.state.LastError = err.Error()
		s.mu.Unlock()
		lg.Error("Catalog load failed", zap.Error(err), zap.Duration("took", elapsed))
		s.metrics.recordFetch(ctx, "products", resultError, elapsed)
		return errors.Wrap(err, "load catalog")
	}
	if products == nil {
		products = []product.Product{}
	}
	s.state.Products = products
	s.state.LoadStatus = StatusLoaded
	s.version++
	s.mu.Unlock()

	lg.Debug("Catalog loaded", zap.Int("products", len(products)), zap.Duration("took", elapsed))
	s.metrics.recordFetch(ctx, "products", resultOK, elapsed)
	return nil
}

// LoadCategories fetches the category list. A failure leaves the current
// categories unchanged and is not reflected in the state.
func (s *Store) LoadCategories(ctx context.Context) {
	s.mu.Lock()
	s.categoriesGen++
	gen := s.categoriesGen
	s.mu.Unlock()

	start := time.Now()
	categories, err := s.src.FetchCategories(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	if gen != s.categoriesGen {
		s.mu.Unlock()
		s.metrics.recordFetch(ctx, "categories", resultStale, elapsed)
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.lg.Warn("Category load failed", zap.Error(err), zap.Duration("took", elapsed))
		s.metrics.recordFetch(ctx, "categories", resultError, elapsed)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	s.state.Categories = categories
	s.mu.Unlock()

	s.lg.Debug("Categories loaded", zap.Int("categories", len(categories)))
	s.metrics.recordFetch(ctx, "categories", resultOK, elapsed)
}

// LoadAll loads products and categories concurrently. Only the catalog
// error is returned.
func (s *Store) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return s.LoadCatalog(ctx)
	})
	g.Go(func() error {
		s.LoadCategories(ctx)
		return nil
	})
	return g.Wait()
}

// SetCategory selects a category filter; an empty label selects all.
// The page cursor is left untouched.
func (s *Store) SetCategory(label string) {
	s.mu.Lock()
	s.state.SelectedCategory = label
	s.mu.Unlock()
}

// SetSearchQuery sets the title search query verbatim.
func (s *Store) SetSearchQuery(text string) {
	s.mu.Lock()
	s.state.SearchQuery = text
	s.mu.Unlock()
}

// SetCurrentPage sets the page cursor verbatim. Out of range values are
// accepted and produce an empty view.
func (s *Store) SetCurrentPage(n int) {
	s.mu.Lock()
	s.state.CurrentPage = n
	s.mu.Unlock()
}

// Cursor is the part of the state a reader navigates with.
type Cursor struct {
	Category string
	Query    string
	Page     int
}

// Update applies fn to the cursor as a single transition, so readers never
// observe a filter change without the matching page change.
func (s *Store) Update(fn func(c *Cursor)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Cursor{
		Category: s.state.SelectedCategory,
		Query:    s.state.SearchQuery,
		Page:     s.state.CurrentPage,
	}
	fn(&c)
	s.state.SelectedCategory = c.Category
	s.state.SearchQuery = c.Query
	s.state.CurrentPage = c.Page
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Products = slices.Clone(s.state.Products)
	st.Categories = slices.Clone(s.state.Categories)
	return st
}

// Status returns the current load status.
func (s *Store) Status() LoadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoadStatus
}

// HasLoaded reports whether any catalog load has succeeded.
func (s *Store) HasLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version > 0
}

// View projects the current state into the visible slice.
func (s *Store) View() view.Result {
	s.mu.RLock()
	key, in := s.viewInput()
	s.mu.RUnlock()

	return s.project(key, in)
}

// Read returns a copy of the state together with its projection, both taken
// from the same state.
func (s *Store) Read() (State, view.Result) {
	s.mu.RLock()
	st := s.state
	st.Products = slices.Clone(s.state.Products)
	st.Categories = slices.Clone(s.state.Categories)
	key, in := s.viewInput()
	s.mu.RUnlock()

	return st, s.project(key, in)
}

// viewInput must be called with mu held.
func (s *Store) viewInput() (viewKey, view.Input) {
	key := viewKey{
		version:  s.version,
		category: s.state.SelectedCategory,
		query:    s.state.SearchQuery,
		page:     s.state.CurrentPage,
	}
	return key, view.Input{
		// Products is never mutated in place, sharing it is safe.
		Products: s.state.Products,
		Category: key.category,
		Query:    key.query,
		Page:     key.page,
		PageSize: s.state.PageSize,
	}
}

func (s *Store) project(key viewKey, in view.Input) view.Result {
	s.memoMu.Lock()
	defer s.memoMu.Unlock()

	hit := s.memo != nil && s.memoKey == key
	s.metrics.recordView(hit)
	if !hit {
		res := view.Project(in)
		s.memo, s.memoKey = &res, key
	}

	res := *s.memo
	res.Products = slices.Clone(res.Products)
	return res
}

// Product returns a single product, from the loaded catalog when present
// and from the source otherwise. It does not change the state.
func (s *Store) Product(ctx context.Context, id string) (*product.Product, error) {
	s.mu.RLock()
	for _, p := range s.state.Products {
		if p.ID == id {
			s.mu.RUnlock()
			return &p, nil
		}
	}
	s.mu.RUnlock()

	p, err := s.src.FetchProduct(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "fetch product %s", id)
	}
	return p, nil
}
