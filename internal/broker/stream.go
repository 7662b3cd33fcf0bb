package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/redis"
)

const (
	trIDTickReal = "H0STCNT0" // 실시간 체결가

	maxSubscriptionsPerSession = 41

	pingInterval          = 30 * time.Second
	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 30 * time.Second
	maxReconnectAttempts  = 10
)

// Tick is a real-time trade tick from the quote stream
type Tick struct {
	Symbol     string
	Price      float64
	TradeTime  string
	ReceivedAt time.Time
}

// QuoteStream keeps a live KIS WebSocket session and pushes every tick
// into the quote cache so REST quote lookups stay fresh between polls.
// ⭐ SSOT: 실시간 시세 수신은 이 스트림에서만
type QuoteStream struct {
	cfg         config.KISConfig
	cache       *redis.Cache
	logger      *logger.Logger
	approvalKey string

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected bool

	subscriptions map[string]bool
	subMu         sync.RWMutex

	onTick  func(*Tick)
	onError func(error)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewQuoteStream creates a quote stream backed by the shared quote cache
func NewQuoteStream(cfg config.KISConfig, cache *redis.Cache, log *logger.Logger) *QuoteStream {
	return &QuoteStream{
		cfg:           cfg,
		cache:         cache,
		logger:        log,
		subscriptions: make(map[string]bool),
		stopCh:        make(chan struct{}),
	}
}

// OnTick registers a tick callback
func (s *QuoteStream) OnTick(fn func(*Tick)) { s.onTick = fn }

// OnError registers an error callback
func (s *QuoteStream) OnError(fn func(error)) { s.onError = fn }

// Connect establishes the WebSocket session and starts the read loop
func (s *QuoteStream) Connect(ctx context.Context) error {
	if err := s.getApprovalKey(ctx); err != nil {
		return fmt.Errorf("get approval key: %w", err)
	}

	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	s.logger.Info("KIS quote stream connected")
	return nil
}

// getApprovalKey gets the WebSocket approval key
func (s *QuoteStream) getApprovalKey(ctx context.Context) error {
	url := s.cfg.BaseURL + "/oauth2/Approval"
	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     s.cfg.AppKey,
		"secretkey":  s.cfg.AppSecret,
	}

	bodyBytes, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(bodyBytes)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var result struct {
		ApprovalKey string `json:"approval_key"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return err
	}

	s.approvalKey = result.ApprovalKey
	return nil
}

func (s *QuoteStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.WSURL, nil)
	if err != nil {
		return err
	}

	s.conn = conn
	s.connected = true
	return nil
}

// Disconnect closes the session
func (s *QuoteStream) Disconnect() error {
	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.connected = false
	}
	s.connMu.Unlock()

	s.wg.Wait()
	s.logger.Info("KIS quote stream disconnected")
	return nil
}

// IsConnected returns connection status
func (s *QuoteStream) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.connected
}

// Subscribe subscribes to tick data for symbols
func (s *QuoteStream) Subscribe(symbols ...string) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, symbol := range symbols {
		if s.subscriptions[symbol] {
			continue
		}

		if len(s.subscriptions) >= maxSubscriptionsPerSession {
			return fmt.Errorf("max subscriptions reached (%d)", maxSubscriptionsPerSession)
		}

		if err := s.sendSubscribe(symbol, "1"); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}

		s.subscriptions[symbol] = true
		s.logger.WithField("symbol", symbol).Debug("Subscribed to tick data")
	}

	return nil
}

// Unsubscribe removes symbol subscriptions
func (s *QuoteStream) Unsubscribe(symbols ...string) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, symbol := range symbols {
		if !s.subscriptions[symbol] {
			continue
		}

		if err := s.sendSubscribe(symbol, "2"); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", symbol, err)
		}

		delete(s.subscriptions, symbol)
	}

	return nil
}

func (s *QuoteStream) sendSubscribe(symbol, trType string) error {
	msg := streamMessage{
		Header: streamHeader{
			ApprovalKey: s.approvalKey,
			Custtype:    "P",
			TrType:      trType,
			ContentType: "utf-8",
		},
		Body: streamBody{
			Input: streamInput{
				TrID:  trIDTickReal,
				TrKey: symbol,
			},
		},
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	return s.conn.WriteJSON(msg)
}

// SubscriptionCount returns number of active subscriptions
func (s *QuoteStream) SubscriptionCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subscriptions)
}

func (s *QuoteStream) readLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if s.onError != nil {
				s.onError(fmt.Errorf("read error: %w", err))
			}
			s.handleDisconnect()
			return
		}

		s.handleMessage(message)
	}
}

func (s *QuoteStream) handleMessage(data []byte) {
	// PINGPONG은 그대로 에코
	if strings.Contains(string(data), "PINGPONG") {
		s.connMu.Lock()
		if s.conn != nil {
			s.conn.WriteMessage(websocket.TextMessage, data)
		}
		s.connMu.Unlock()
		return
	}

	// KIS format: encrypted|TR_ID|count|data
	parts := strings.Split(string(data), "|")
	if len(parts) < 4 {
		return // JSON response (subscription confirmation)
	}

	if parts[1] != trIDTickReal {
		return
	}

	tick := parseTick(parts[3])
	if tick == nil {
		return
	}

	if s.cache != nil {
		quote := contracts.Quote{Symbol: tick.Symbol, Price: tick.Price, Market: marketOf(tick.Symbol)}
		if err := s.cache.Set(context.Background(), "quote:"+tick.Symbol, quote, quoteCacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache streamed quote")
		}
	}

	if s.onTick != nil {
		s.onTick(tick)
	}
}

// parseTick parses tick data from KIS caret-delimited format
// Fields: symbol^time^price^...
func parseTick(body string) *Tick {
	fields := strings.Split(body, "^")
	if len(fields) < 3 {
		return nil
	}

	price, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil
	}

	return &Tick{
		Symbol:     fields[0],
		Price:      price,
		TradeTime:  fields[1],
		ReceivedAt: time.Now(),
	}
}

func (s *QuoteStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.connMu.Unlock()
					if s.onError != nil {
						s.onError(fmt.Errorf("ping error: %w", err))
					}
					s.handleDisconnect()
					return
				}
			}
			s.connMu.Unlock()
		}
	}
}

func (s *QuoteStream) handleDisconnect() {
	s.connMu.Lock()
	s.connected = false
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// Reconnect attempts to restore the session with backoff, restoring
// symbol subscriptions on success.
func (s *QuoteStream) Reconnect(ctx context.Context) error {
	delay := reconnectInitialDelay

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		s.logger.WithField("attempt", attempt).Info("Attempting quote stream reconnection")

		if err := s.getApprovalKey(ctx); err != nil {
			delay = backoff(delay)
			continue
		}

		if err := s.connect(ctx); err != nil {
			delay = backoff(delay)
			continue
		}

		s.subMu.Lock()
		symbols := make([]string, 0, len(s.subscriptions))
		for symbol := range s.subscriptions {
			symbols = append(symbols, symbol)
		}
		s.subscriptions = make(map[string]bool)
		s.subMu.Unlock()

		for _, symbol := range symbols {
			if err := s.Subscribe(symbol); err != nil {
				s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to resubscribe")
			}
		}

		s.stopCh = make(chan struct{})
		s.wg.Add(2)
		go s.readLoop()
		go s.pingLoop()

		s.logger.Info("Quote stream reconnected")
		return nil
	}

	return fmt.Errorf("max reconnect attempts reached")
}

func backoff(delay time.Duration) time.Duration {
	delay *= 2
	if delay > reconnectMaxDelay {
		delay = reconnectMaxDelay
	}
	return delay
}

type streamMessage struct {
	Header streamHeader `json:"header"`
	Body   streamBody   `json:"body,omitempty"`
}

type streamHeader struct {
	ApprovalKey string `json:"approval_key,omitempty"`
	Custtype    string `json:"custtype,omitempty"`
	TrType      string `json:"tr_type,omitempty"`
	ContentType string `json:"content-type,omitempty"`
}

type streamBody struct {
	Input streamInput `json:"input,omitempty"`
}

type streamInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}
