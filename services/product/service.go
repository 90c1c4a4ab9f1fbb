package product

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"sjsage522/productresolver/config"
	"sjsage522/productresolver/internal/extractor"
	"sjsage522/productresolver/internal/fetcher"
	"sjsage522/productresolver/internal/resolver"
	"sjsage522/productresolver/logger"
	perrors "sjsage522/productresolver/pkg/errors"
	"sjsage522/productresolver/services/cache"
	"sjsage522/productresolver/services/store"
)

// Service runs the full parse pipeline: resolve, fetch, extract,
// normalize, persist. It is safe for concurrent use.
type Service struct {
	resolver *resolver.Resolver
	fetcher  *fetcher.Fetcher
	cacheSvc cache.CacheService
	store    store.Store
	cacheTTL time.Duration
	batch    int
	history  *parseHistory
	log      *logger.Logger
}

// NewService wires the pipeline. cacheSvc and st may be nil; the
// pipeline then runs uncached and unpersisted.
func NewService(res *resolver.Resolver, f *fetcher.Fetcher, cacheSvc cache.CacheService, st store.Store, cfg *config.Config) *Service {
	return &Service{
		resolver: res,
		fetcher:  f,
		cacheSvc: cacheSvc,
		store:    st,
		cacheTTL: cfg.ProductCacheTTL,
		batch:    cfg.BatchLimit,
		history:  newParseHistory(cfg.ParseHistorySize),
		log:      logger.ForService(),
	}
}

// Parse resolves and parses one product link. It never returns an
// error; failures come back as a Product with Success=false.
func (s *Service) Parse(ctx context.Context, rawURL string) *Product {
	start := time.Now()

	resolved, rerr := s.resolver.Resolve(ctx, rawURL)
	if rerr != nil {
		return s.fail(rawURL, start, rerr)
	}

	id := ProductID(resolved)
	if cached := s.cachedProduct(id); cached != nil {
		s.log.WithField("id", id).Debug().Msg("Product cache hit")
		s.history.record(rawURL, true, time.Since(start))
		return cached
	}

	result, rerr := s.fetcher.Fetch(ctx, resolved.FinalURL, resolved.Platform())
	if rerr != nil {
		return s.fail(rawURL, start, rerr)
	}

	fields, rerr := extractor.Extract(resolved.PlatformKey, result.HTML)
	if rerr != nil {
		return s.fail(rawURL, start, rerr)
	}

	p := Normalize(fields, resolved, rawURL)
	s.persist(ctx, p)
	s.history.record(rawURL, true, time.Since(start))

	s.log.WithFields(logger.Fields{
		"id":       p.ID,
		"title":    p.Title,
		"platform": p.Platform,
		"duration": time.Since(start).String(),
	}).Info().Msg("Parsed product")

	return p
}

// Summary describes one batch run.
type Summary struct {
	Total     int   `json:"total"`
	Success   int   `json:"success"`
	Failure   int   `json:"failure"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// ParseBatch parses the URLs concurrently, bounded by the configured
// batch limit. Results are positional: results[i] always corresponds to
// urls[i], and one bad link never sinks its neighbors.
func (s *Service) ParseBatch(ctx context.Context, urls []string) ([]*Product, Summary) {
	start := time.Now()
	results := make([]*Product, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batch)
	for i, rawURL := range urls {
		i, rawURL := i, rawURL
		g.Go(func() error {
			results[i] = s.Parse(ctx, rawURL)
			return nil
		})
	}
	// Parse never returns an error, so Wait only synchronizes.
	_ = g.Wait()

	summary := Summary{
		Total:     len(urls),
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	for _, p := range results {
		if p.Success {
			summary.Success++
		} else {
			summary.Failure++
		}
	}
	return results, summary
}

// Stats reports the recent parse history window.
func (s *Service) Stats() Stats {
	return s.history.stats()
}

func (s *Service) fail(rawURL string, start time.Time, rerr *perrors.ResolveError) *Product {
	s.log.WithError(rerr).WithField("url", rawURL).Warn().Msg("Parse failed")
	s.history.record(rawURL, false, time.Since(start))
	return ErrorProduct(rawURL, rerr)
}

func (s *Service) cachedProduct(id string) *Product {
	if s.cacheSvc == nil {
		return nil
	}
	data, err := s.cacheSvc.Get("product:" + id)
	if err != nil || data == nil {
		return nil
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

func (s *Service) persist(ctx context.Context, p *Product) {
	data, err := json.Marshal(p)
	if err != nil {
		s.log.WithError(err).Error().Msg("Failed to marshal product")
		return
	}

	if s.cacheSvc != nil {
		if err := s.cacheSvc.Set("product:"+p.ID, data, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn().Msg("Failed to cache product")
		}
	}

	if s.store == nil {
		return
	}
	if err := s.store.SaveProduct(ctx, p.ID, data); err != nil {
		s.log.WithError(err).Warn().Msg("Failed to persist product")
		return
	}
	if p.Price != "" {
		point := store.PricePoint{
			Price:        p.Price,
			Availability: p.Availability,
			Date:         p.ParsedAt,
		}
		if err := s.store.RecordPrice(ctx, p.ID, point); err != nil {
			s.log.WithError(err).Warn().Msg("Failed to record price point")
		}
	}
}
