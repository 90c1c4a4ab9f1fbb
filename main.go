package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/productresolver/config"
	"sjsage522/productresolver/internal/fetcher"
	"sjsage522/productresolver/internal/resolver"
	"sjsage522/productresolver/logger"
	"sjsage522/productresolver/services/cache"
	"sjsage522/productresolver/services/product"
	"sjsage522/productresolver/services/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	urls := os.Args[1:]
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: productresolver <url> [url ...]")
		os.Exit(1)
	}

	log.Info().
		Str("environment", cfg.Environment).
		Int("url_count", len(urls)).
		Msg("Starting product resolution")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Initialize services
	services := initializeServices(cfg)
	defer services.Cleanup()

	svc := product.NewService(
		resolver.New(resolver.NewHTTPTransport(cfg.HTTPTimeout), services.Cache, cfg),
		fetcher.New(cfg),
		services.Cache,
		services.Store,
		cfg,
	)

	if len(urls) == 1 {
		printJSON(svc.Parse(ctx, urls[0]))
		return
	}

	results, summary := svc.ParseBatch(ctx, urls)
	printJSON(map[string]interface{}{
		"results": results,
		"summary": summary,
		"stats":   svc.Stats(),
	})
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Default.Fatal().Err(err).Msg("Failed to encode result")
	}
	fmt.Println(string(out))
}

// Services holds all the initialized services
type Services struct {
	Cache cache.CacheService
	Store store.Store
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(cfg *config.Config) *Services {
	services := &Services{}

	services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	services.Store = store.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.ParseHistorySize)
	logger.Info("Connected to Redis at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)

	return services
}
