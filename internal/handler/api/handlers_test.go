package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/coalesce"
	"FinSight/internal/domain/models"
	"FinSight/internal/service/ai"
	"FinSight/internal/service/markets"
	"FinSight/internal/service/ratelimit"
	"FinSight/internal/service/store"
	"FinSight/internal/service/technical"
	xlogger "FinSight/pkg/logger"
)

type fakeStocks struct {
	quote   models.StockQuote
	history []models.PricePoint
	err     error
}

func (f *fakeStocks) Quote(ctx context.Context, symbol string) (models.StockQuote, error) {
	if f.err != nil {
		return models.StockQuote{}, f.err
	}
	q := f.quote
	q.Symbol = symbol
	return q, nil
}

func (f *fakeStocks) History(ctx context.Context, symbol string, days int) ([]models.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

type fakeCrypto struct {
	quote models.CryptoQuote
	top   []models.CryptoQuote
	err   error
}

func (f *fakeCrypto) Quote(ctx context.Context, coinID string) (models.CryptoQuote, error) {
	if f.err != nil {
		return models.CryptoQuote{}, f.err
	}
	q := f.quote
	q.ID = coinID
	return q, nil
}

func (f *fakeCrypto) Top(ctx context.Context, limit int) ([]models.CryptoQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

type fakeAnalysis struct {
	content string
	err     error
}

func (f *fakeAnalysis) Configured() bool { return true }

func (f *fakeAnalysis) Complete(ctx context.Context, query, systemPrompt string) (string, error) {
	return f.content, f.err
}

func (f *fakeAnalysis) Stream(ctx context.Context, query, systemPrompt string, emit func(string) error) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for _, chunk := range strings.SplitAfter(f.content, " ") {
		if err := emit(chunk); err != nil {
			return "", err
		}
	}
	return f.content, nil
}

type fakeLive struct {
	content string
}

func (f *fakeLive) Configured() bool { return true }

func (f *fakeLive) Search(ctx context.Context, query string) (string, []models.Citation, error) {
	return f.content, nil, nil
}

// envelope mirrors the response wrapper for assertions.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newMarketsEcho(t *testing.T, stocks markets.StockProvider, crypto markets.CryptoProvider) *echo.Echo {
	t.Helper()
	l := testLogger(t)
	svc := markets.NewService(stocks, crypto, store.New(nil), coalesce.New(), l)
	e := echo.New()
	NewMarketsHandler(l, svc).RegisterRoutes(e)
	return e
}

func TestStockQuoteEndpoint(t *testing.T) {
	stocks := &fakeStocks{quote: models.StockQuote{CurrentPrice: 187.5, PreviousClose: 185.0}}
	e := newMarketsEcho(t, stocks, &fakeCrypto{})

	rec := doRequest(e, http.MethodGet, "/api/stocks/AAPL", "")

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var q models.StockQuote
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 187.5, q.CurrentPrice)
}

func TestStockQuotesBatch(t *testing.T) {
	stocks := &fakeStocks{quote: models.StockQuote{CurrentPrice: 50}}
	e := newMarketsEcho(t, stocks, &fakeCrypto{})

	rec := doRequest(e, http.MethodGet, "/api/stocks?symbols=AAPL,msft,AAPL", "")

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows []models.StockQuote `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 2)
	assert.Equal(t, "AAPL", list.Rows[0].Symbol)
	assert.Equal(t, "MSFT", list.Rows[1].Symbol)
}

func TestStockQuotesRequiresSymbols(t *testing.T) {
	e := newMarketsEcho(t, &fakeStocks{}, &fakeCrypto{})

	rec := doRequest(e, http.MethodGet, "/api/stocks", "")

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestStockQuoteUpstreamFailure(t *testing.T) {
	stocks := &fakeStocks{err: context.DeadlineExceeded}
	e := newMarketsEcho(t, stocks, &fakeCrypto{})

	rec := doRequest(e, http.MethodGet, "/api/stocks/AAPL", "")

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadGateway, env.Status)
	assert.Contains(t, string(env.Data), "ERR_UPSTREAM")
}

func TestIndicesRouteIsNotShadowedBySymbol(t *testing.T) {
	stocks := &fakeStocks{quote: models.StockQuote{CurrentPrice: 5000}}
	e := newMarketsEcho(t, stocks, &fakeCrypto{})

	rec := doRequest(e, http.MethodGet, "/api/stocks/indices", "")

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows  []models.IndexQuote `json:"rows"`
		Total int64               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(len(list.Rows)), list.Total)
	assert.NotEmpty(t, list.Rows)
	for _, idx := range list.Rows {
		assert.NotEqual(t, "indices", idx.Symbol)
	}
}

func TestStockHistoryDefaultsDays(t *testing.T) {
	history := []models.PricePoint{
		{Time: time.Now().AddDate(0, 0, -1), Close: 100},
		{Time: time.Now(), Close: 101},
	}
	e := newMarketsEcho(t, &fakeStocks{history: history}, &fakeCrypto{})

	rec := doRequest(e, http.MethodGet, "/api/stocks/AAPL/history", "")

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows  []models.PricePoint `json:"rows"`
		Total int64               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 2)
}

func TestTopCryptosLimit(t *testing.T) {
	crypto := &fakeCrypto{top: []models.CryptoQuote{
		{ID: "bitcoin"}, {ID: "ethereum"}, {ID: "solana"},
	}}
	e := newMarketsEcho(t, &fakeStocks{}, crypto)

	rec := doRequest(e, http.MethodGet, "/api/crypto/top?limit=2", "")

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows []models.CryptoQuote `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 2)
}

func newChatEcho(t *testing.T, analysis ai.AnalysisBackend, live ai.LiveBackend, limit int) *echo.Echo {
	t.Helper()
	l := testLogger(t)
	svc := ai.NewService(analysis, live, store.New(nil), ratelimit.New(limit))
	e := echo.New()
	NewChatHandler(l, svc).RegisterRoutes(e)
	return e
}

func TestChatQuery(t *testing.T) {
	analysis := &fakeAnalysis{content: "AAPL fundamentals look solid."}
	e := newChatEcho(t, analysis, &fakeLive{}, 20)

	body := `{"query": "Analyze AAPL fundamentals", "context": {"user_id": "u1"}}`
	rec := doRequest(e, http.MethodPost, "/api/chat", body)

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var res models.ChatResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.ProviderClaude, res.Provider)
	assert.Equal(t, analysis.content, res.Content)
}

func TestChatQueryRejectsEmptyQuery(t *testing.T) {
	e := newChatEcho(t, &fakeAnalysis{}, &fakeLive{}, 20)

	rec := doRequest(e, http.MethodPost, "/api/chat", `{"query": ""}`)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestChatQueryRateLimited(t *testing.T) {
	e := newChatEcho(t, &fakeAnalysis{content: "ok"}, &fakeLive{}, 1)

	body := `{"query": "Analyze AAPL", "context": {"user_id": "u1"}}`
	first := decodeEnvelope(t, doRequest(e, http.MethodPost, "/api/chat", body))
	require.Equal(t, http.StatusOK, first.Status)

	// Same user, limit exhausted, and a different query so the cache
	// cannot satisfy it.
	body = `{"query": "Analyze MSFT", "context": {"user_id": "u1"}}`
	second := decodeEnvelope(t, doRequest(e, http.MethodPost, "/api/chat", body))
	assert.Equal(t, http.StatusTooManyRequests, second.Status)
	assert.Contains(t, string(second.Data), "ERR_RATE_LIMITED")
}

func TestChatStreamEmitsDeltasAndDone(t *testing.T) {
	analysis := &fakeAnalysis{content: "streamed answer text"}
	e := newChatEcho(t, analysis, &fakeLive{}, 20)

	body := `{"query": "Analyze NVDA", "context": {"user_id": "u1"}}`
	rec := doRequest(e, http.MethodPost, "/api/chat/stream", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	var deltas strings.Builder
	sawDone := false
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		deltas.WriteString(ev.Delta)
		if ev.Done {
			sawDone = true
		}
	}
	assert.True(t, sawDone)
	assert.Equal(t, analysis.content, deltas.String())
}

func TestChatHealth(t *testing.T) {
	e := newChatEcho(t, &fakeAnalysis{}, &fakeLive{}, 20)

	rec := doRequest(e, http.MethodGet, "/api/chat/health", "")

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var health models.BackendHealth
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
}

type errHistory struct{}

func (errHistory) DailyHistory(ctx context.Context, symbol string, days int) ([]models.PricePoint, error) {
	return nil, context.DeadlineExceeded
}

func TestTechnicalUnavailable(t *testing.T) {
	l := testLogger(t)
	svc := technical.New(errHistory{}, store.New(nil), coalesce.New(),
		technical.WithRetry(1, 0))
	t.Cleanup(func() { _ = svc.Close() })

	e := echo.New()
	NewTechnicalHandler(l, svc).RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/technical/AAPL", "")

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadGateway, env.Status)
	assert.Contains(t, string(env.Data), "ERR_UPSTREAM")
}

func TestClearCacheRequiresPattern(t *testing.T) {
	l := testLogger(t)
	e := echo.New()
	NewSystemHandler(l, store.New(nil)).RegisterRoutes(e)

	rec := doRequest(e, http.MethodDelete, "/api/system/cache", "")

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestCacheStats(t *testing.T) {
	l := testLogger(t)
	e := echo.New()
	NewSystemHandler(l, store.New(nil)).RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/system/cache/stats", "")

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Zero(t, stats.Hits)
}
