package di

import (
	"context"
	"io"
	"time"

	"FinSight/internal/coalesce"
	"FinSight/internal/handler/api"
	"FinSight/internal/service/ai"
	"FinSight/internal/service/markets"
	"FinSight/internal/service/quotes"
	"FinSight/internal/service/ratelimit"
	"FinSight/internal/service/store"
	"FinSight/internal/service/technical"
	"FinSight/pkg/cache"
	"FinSight/pkg/config"
	xhttp "FinSight/pkg/http"
	pkgkafka "FinSight/pkg/kafka"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/metrics"
	"FinSight/pkg/server"
)

// ProvideLogger creates the application logger. Production runs emit
// JSON; everything else gets console output at debug level.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "debug", Format: "console", Output: "stdout"}
	if cfg.Environment == "production" {
		lc.Level = "info"
		lc.Format = "json"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideCacheBackend connects to Redis. A missing address or a failed
// ping degrades to a nil backend so the store runs in always-miss mode
// instead of blocking startup.
func ProvideCacheBackend(cfg *config.Config, l *applogger.Logger) cache.Service {
	if cfg.Redis.Addr == "" {
		l.Warn("redis not configured, caching disabled")
		return nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		l.Warn("redis client init failed, caching disabled", applogger.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unreachable, caching disabled",
			applogger.String("addr", cfg.Redis.Addr),
			applogger.Error(err))
		_ = rc.Close()
		return nil
	}

	l.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	return rc
}

// ProvideStore wraps the cache backend with category TTLs and hit
// accounting.
func ProvideStore(backend cache.Service, rec *metrics.Recorder, l *applogger.Logger) *store.Store {
	return store.New(backend, store.WithMetrics(rec), store.WithLogger(l))
}

// ProvideCoalescer creates the shared request coalescer.
func ProvideCoalescer(cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) *coalesce.Coalescer {
	return coalesce.New(
		coalesce.WithWindow(cfg.Coalescer.Window),
		coalesce.WithFetchTimeout(cfg.Coalescer.FetchTimeout),
		coalesce.WithMetrics(rec),
		coalesce.WithLogger(l),
	)
}

// ProvideLimiter creates the per-user hourly chat rate limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.AI.RateLimitPerHour)
}

// ProvideMarketsService builds the stock and crypto providers and the
// market data service on top of them.
func ProvideMarketsService(cfg *config.Config, st *store.Store, c *coalesce.Coalescer, l *applogger.Logger) *markets.Service {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Markets.Timeout))
	stocks := markets.NewYahooProvider(client, cfg.Markets.StockBaseURL)
	crypto := markets.NewCoinGeckoProvider(client, cfg.Markets.CryptoBaseURL)
	return markets.NewService(stocks, crypto, st, c, l)
}

// ProvideTechnicalService computes indicator snapshots from the market
// data service's price history.
func ProvideTechnicalService(cfg *config.Config, m *markets.Service, st *store.Store, c *coalesce.Coalescer, l *applogger.Logger) *technical.Service {
	return technical.New(m, st, c,
		technical.WithHistoryDays(cfg.Markets.HistoryDays),
		technical.WithRetry(cfg.Technical.MaxRetries, cfg.Technical.RetryBackoff),
		technical.WithCacheTTL(cfg.Technical.CacheTTL),
		technical.WithLocalEntries(cfg.Technical.LocalEntries),
		technical.WithLogger(l),
	)
}

// ProvideAIService wires both AI backends into the chat service. Either
// backend may be unconfigured; the service degrades per provider.
func ProvideAIService(cfg *config.Config, st *store.Store, limiter *ratelimit.Limiter, rec *metrics.Recorder, l *applogger.Logger) *ai.Service {
	analysis := ai.NewClaudeBackend(cfg.AI.AnthropicAPIKey, cfg.AI.ClaudeModel)
	live := ai.NewPerplexityBackend(
		xhttp.NewClient(xhttp.WithTimeout(cfg.AI.RequestTimeout)),
		cfg.AI.PerplexityAPIKey,
		cfg.AI.PerplexityModel,
	)
	return ai.NewService(analysis, live, st, limiter,
		ai.WithTimeout(cfg.AI.RequestTimeout),
		ai.WithCacheTTL(cfg.AI.CacheTTL),
		ai.WithServiceMetrics(rec),
		ai.WithServiceLogger(l),
	)
}

// ProvideKafkaProducer creates the quote fan-out producer, or nil when
// no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	return pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
}

// ProvideQuoteStream creates the live quote WebSocket stream.
func ProvideQuoteStream(cfg *config.Config, st *store.Store, producer *pkgkafka.Producer, rec *metrics.Recorder, l *applogger.Logger) *quotes.Stream {
	opts := []quotes.Option{
		quotes.WithMetrics(rec),
		quotes.WithReconnectDelay(cfg.Quotes.ReconnectDelay),
		quotes.WithPingInterval(cfg.Quotes.PingInterval),
	}
	if producer != nil && cfg.Kafka.Topic != "" {
		opts = append(opts, quotes.WithPublisher(producer, cfg.Kafka.Topic))
	}
	return quotes.New(cfg.Quotes.APIKey, cfg.Quotes.WebSocketURL, cfg.Quotes.Symbols, st, l, opts...)
}

// ProvideRouter aggregates all API handlers.
func ProvideRouter(l *applogger.Logger, aiSvc *ai.Service, m *markets.Service, tech *technical.Service, st *store.Store) *api.Router {
	return api.NewRouter(
		api.NewChatHandler(l, aiSvc),
		api.NewMarketsHandler(l, m),
		api.NewTechnicalHandler(l, tech),
		api.NewSystemHandler(l, st),
	)
}

// ProvideApp assembles the application with its background stream and
// shutdown closers.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	router *api.Router,
	stream *quotes.Stream,
	producer *pkgkafka.Producer,
	tech *technical.Service,
	backend cache.Service,
) *server.App {
	app := server.New(cfg, l, router)
	app.SetStream(stream)
	app.AddCloser("technical cache", tech)
	if producer != nil {
		app.AddCloser("kafka producer", producer)
	}
	if closer, ok := backend.(io.Closer); ok {
		app.AddCloser("redis", closer)
	}
	return app
}
