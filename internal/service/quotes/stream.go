package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"FinSight/internal/service/store"
	"FinSight/pkg/kafka"
	"FinSight/pkg/logger"
)

// Update is one live price tick for a subscribed symbol.
type Update struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher fans quote updates out to a message broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []kafka.Message) error
}

// Metrics counts processed updates.
type Metrics interface {
	RecordQuoteUpdate(symbol string)
}

// Stream maintains a WebSocket subscription for live trades and mirrors
// each tick into the store under stock:live:{symbol}. Publishing to Kafka
// is optional; a nil publisher just skips the fan-out.
type Stream struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	topic          string

	store     *store.Store
	publisher Publisher
	metrics   Metrics
	logger    *logger.Logger

	conn *websocket.Conn
}

type Option func(*Stream)

func WithPublisher(p Publisher, topic string) Option {
	return func(s *Stream) {
		s.publisher = p
		s.topic = topic
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Stream) { s.metrics = m }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(s *Stream) { s.reconnectDelay = d }
}

func WithPingInterval(d time.Duration) Option {
	return func(s *Stream) { s.pingInterval = d }
}

func New(apiKey, websocketURL string, symbols []string, st *store.Store, l *logger.Logger, opts ...Option) *Stream {
	s := &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		store:          st,
		logger:         l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether the stream has credentials and symbols to watch.
func (s *Stream) Enabled() bool {
	return s.apiKey != "" && len(s.symbols) > 0
}

// Run connects and consumes trades until ctx is cancelled, reconnecting
// after read failures with a fixed delay.
func (s *Stream) Run(ctx context.Context) error {
	if !s.Enabled() {
		return fmt.Errorf("quotes: stream not configured")
	}

	for {
		if err := s.connect(ctx); err != nil {
			s.logger.Warn("quote stream connect failed", logger.Error(err))
		} else {
			s.consume(ctx)
		}

		select {
		case <-ctx.Done():
			s.close()
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("quotes connect: %w", err)
	}
	s.conn = conn

	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			s.close()
			return fmt.Errorf("quotes subscribe %s: %w", sym, err)
		}
	}
	s.logger.Info("quote stream connected", logger.Strings("symbols", s.symbols))
	return nil
}

type tradeFrame struct {
	Type string `json:"type"`
	Data []struct {
		S string  `json:"s"`
		P float64 `json:"p"`
		V float64 `json:"v"`
		T int64   `json:"t"` // ms
	} `json:"data"`
}

// consume reads frames until the connection breaks or ctx ends.
func (s *Stream) consume(ctx context.Context) {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.pingLoop(pingCtx)

	for {
		select {
		case <-ctx.Done():
			s.close()
			return
		default:
		}

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("quote stream read failed", logger.Error(err))
			}
			s.close()
			return
		}

		var frame tradeFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != "trade" {
			continue
		}
		updates := make([]Update, 0, len(frame.Data))
		for _, d := range frame.Data {
			u := Update{
				Symbol:    d.S,
				Price:     d.P,
				Volume:    d.V,
				Timestamp: time.UnixMilli(d.T).UTC(),
			}
			s.record(ctx, u)
			updates = append(updates, u)
		}
		s.publish(ctx, updates)
	}
}

func (s *Stream) record(ctx context.Context, u Update) {
	key := fmt.Sprintf("stock:live:%s", u.Symbol)
	if err := s.store.Set(ctx, store.CategoryStockPrice, key, u); err != nil {
		s.logger.Warn("live quote not cached",
			logger.String("symbol", u.Symbol),
			logger.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordQuoteUpdate(u.Symbol)
	}
}

// publish fans a frame's ticks out in a single write when the frame
// carried more than one trade.
func (s *Stream) publish(ctx context.Context, updates []Update) {
	if s.publisher == nil || len(updates) == 0 {
		return
	}

	var err error
	if len(updates) == 1 {
		u := updates[0]
		err = s.publisher.Publish(ctx, s.topic, []byte(u.Symbol), u)
	} else {
		msgs := make([]kafka.Message, 0, len(updates))
		for _, u := range updates {
			msgs = append(msgs, kafka.Message{Key: []byte(u.Symbol), Value: u})
		}
		err = s.publisher.PublishBatch(ctx, s.topic, msgs)
	}
	if err != nil {
		s.logger.Warn("live quotes not published",
			logger.Int("count", len(updates)),
			logger.Error(err))
	}
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.conn != nil {
				_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *Stream) close() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
