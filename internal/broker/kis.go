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

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/guards"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/httputil"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/redis"
)

// KIS TR IDs
const (
	trIDInquirePrice   = "FHKST01010100" // 현재가 조회
	trIDInquireMonthly = "FHKST03010100" // 기간별 시세
	trIDInquireBalance = "TTTC8434R"     // 잔고 조회
	trIDOrderCash      = "TTTC0802U"     // 현금 주문
	trIDOrderCancel    = "TTTC0803U"     // 주문 취소
	trIDInquireOrders  = "TTTC8001R"     // 주문 내역
)

const quoteCacheTTL = 5 * time.Second

// KISBroker is the live adapter for KIS (한국투자증권) OpenAPI.
// Every order placement is gated on the live-trading guard; quotes are
// served through a short-TTL cache to stay under the API rate limit.
// ⭐ SSOT: KIS REST 호출은 이 어댑터에서만
type KISBroker struct {
	cfg        config.KISConfig
	guard      *guards.Guard
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger

	accessToken string
	tokenExpiry time.Time
	tokenMu     sync.Mutex
}

// NewKISBroker creates a live KIS broker adapter
func NewKISBroker(cfg config.KISConfig, guard *guards.Guard, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *KISBroker {
	return &KISBroker{
		cfg:        cfg,
		guard:      guard,
		httpClient: httpClient,
		cache:      cache,
		logger:     log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// getToken returns a valid access token, refreshing when near expiry
func (b *KISBroker) getToken(ctx context.Context) (string, error) {
	b.tokenMu.Lock()
	defer b.tokenMu.Unlock()

	if b.accessToken != "" && time.Now().Before(b.tokenExpiry) {
		return b.accessToken, nil
	}

	url := b.cfg.BaseURL + "/oauth2/tokenP"
	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     b.cfg.AppKey,
		"appsecret":  b.cfg.AppSecret,
	}

	resp, err := b.httpClient.PostJSON(ctx, url, body)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	b.accessToken = tr.AccessToken
	b.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn-60) * time.Second) // 1분 여유

	b.logger.Info("KIS access token refreshed")
	return b.accessToken, nil
}

// headers builds the authenticated header set for a TR
func (b *KISBroker) headers(token, trID string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json; charset=utf-8",
		"authorization": "Bearer " + token,
		"appkey":        b.cfg.AppKey,
		"appsecret":     b.cfg.AppSecret,
		"tr_id":         trID,
	}
}

type priceOutput struct {
	Output struct {
		Price string `json:"stck_prpr"`
	} `json:"output"`
}

// GetQuotes retrieves current prices, consulting the quote cache first
func (b *KISBroker) GetQuotes(ctx context.Context, symbols []string) ([]contracts.Quote, error) {
	quotes := make([]contracts.Quote, 0, len(symbols))

	for _, symbol := range symbols {
		if b.cache != nil {
			var cached contracts.Quote
			if hit, _ := b.cache.Get(ctx, "quote:"+symbol, &cached); hit {
				quotes = append(quotes, cached)
				continue
			}
		}

		price, err := b.fetchPrice(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
		}

		quote := contracts.Quote{Symbol: symbol, Price: price, Market: marketOf(symbol)}
		if b.cache != nil {
			if err := b.cache.Set(ctx, "quote:"+symbol, quote, quoteCacheTTL); err != nil {
				b.logger.WithError(err).Warn("Failed to cache quote")
			}
		}
		quotes = append(quotes, quote)
	}

	return quotes, nil
}

func (b *KISBroker) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/uapi/domestic-stock/v1/quotations/inquire-price?FID_COND_MRKT_DIV_CODE=J&FID_INPUT_ISCD=%s",
		b.cfg.BaseURL, symbol)

	resp, err := b.httpClient.Get(ctx, url, b.headers(token, trIDInquirePrice))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("inquire-price returned status %d", resp.StatusCode)
	}

	var out priceOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(out.Output.Price), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", out.Output.Price, err)
	}

	return price, nil
}

type monthlyOutput struct {
	Output2 []struct {
		Close string `json:"stck_clpr"`
	} `json:"output2"`
}

// GetPricePairs retrieves current prices plus the monthly close from
// lookbackMonths ago.
func (b *KISBroker) GetPricePairs(ctx context.Context, symbols []string, lookbackMonths int) (map[string]contracts.PricePair, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	pairs := make(map[string]contracts.PricePair, len(symbols))

	for _, symbol := range symbols {
		url := fmt.Sprintf("%s/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice?FID_COND_MRKT_DIV_CODE=J&FID_INPUT_ISCD=%s&FID_PERIOD_DIV_CODE=M&FID_ORG_ADJ_PRC=0",
			b.cfg.BaseURL, symbol)

		resp, err := b.httpClient.Get(ctx, url, b.headers(token, trIDInquireMonthly))
		if err != nil {
			// 시세 조회 실패 종목은 페어에서 제외 (셀렉터가 조용히 스킵)
			b.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to fetch monthly prices")
			continue
		}

		var out monthlyOutput
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if decodeErr != nil || len(out.Output2) == 0 {
			continue
		}

		current, err := strconv.ParseFloat(strings.TrimSpace(out.Output2[0].Close), 64)
		if err != nil {
			continue
		}

		idx := lookbackMonths
		if idx >= len(out.Output2) {
			idx = len(out.Output2) - 1
		}
		lookback, err := strconv.ParseFloat(strings.TrimSpace(out.Output2[idx].Close), 64)
		if err != nil {
			continue
		}

		pairs[symbol] = contracts.PricePair{Current: current, Lookback: lookback}
	}

	return pairs, nil
}

type balanceOutput struct {
	Output1 []struct {
		Symbol string `json:"pdno"`
		Qty    string `json:"hldg_qty"`
	} `json:"output1"`
	Output2 []struct {
		Cash string `json:"dnca_tot_amt"`
	} `json:"output2"`
}

// GetBalance retrieves the live account balance
func (b *KISBroker) GetBalance(ctx context.Context) (*Balance, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/uapi/domestic-stock/v1/trading/inquire-balance?CANO=%s", b.cfg.BaseURL, b.cfg.AccountNo)

	resp, err := b.httpClient.Get(ctx, url, b.headers(token, trIDInquireBalance))
	if err != nil {
		return nil, fmt.Errorf("balance request failed: %w", err)
	}
	defer resp.Body.Close()

	var out balanceOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode balance response: %w", err)
	}

	balance := &Balance{Positions: make(map[string]float64)}
	if len(out.Output2) > 0 {
		balance.Cash, _ = strconv.ParseFloat(strings.TrimSpace(out.Output2[0].Cash), 64)
	}
	for _, pos := range out.Output1 {
		qty, _ := strconv.ParseFloat(strings.TrimSpace(pos.Qty), 64)
		if qty > 0 {
			balance.Positions[pos.Symbol] = qty
		}
	}

	return balance, nil
}

type orderOutput struct {
	Output struct {
		OrderNo string `json:"odno"`
	} `json:"output"`
	Msg string `json:"msg1"`
}

// PlaceOrder submits a live order. Blocked by the live-trading guard
// unless ENABLE_LIVE_TRADING is set.
func (b *KISBroker) PlaceOrder(ctx context.Context, order *contracts.Order) (*PlacedOrder, error) {
	if err := b.guard.CheckLiveTrading(); err != nil {
		return nil, err
	}

	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	url := b.cfg.BaseURL + "/uapi/domestic-stock/v1/trading/order-cash"
	payload := map[string]string{
		"CANO":         b.cfg.AccountNo,
		"PDNO":         order.Symbol,
		"ORD_DVSN":     "00", // 지정가
		"ORD_QTY":      strconv.FormatFloat(order.Qty, 'f', 0, 64),
		"ORD_UNPR":     strconv.FormatFloat(order.LimitPrice, 'f', 0, 64),
		"SLL_BUY_DVSN": sideCode(order.Side),
	}

	resp, err := b.httpClient.PostJSONWithHeaders(ctx, url, payload, b.headers(token, trIDOrderCash))
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	var out orderOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	b.logger.WithFields(map[string]interface{}{
		"symbol":          order.Symbol,
		"side":            order.Side,
		"broker_order_id": out.Output.OrderNo,
	}).Info("Live order placed")

	return &PlacedOrder{
		BrokerOrderID: out.Output.OrderNo,
		Status:        contracts.OrderSent,
		Message:       out.Msg,
	}, nil
}

// GetOrders retrieves today's broker-side orders
func (b *KISBroker) GetOrders(ctx context.Context) ([]PlacedOrder, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/uapi/domestic-stock/v1/trading/inquire-daily-ccld?CANO=%s", b.cfg.BaseURL, b.cfg.AccountNo)

	resp, err := b.httpClient.Get(ctx, url, b.headers(token, trIDInquireOrders))
	if err != nil {
		return nil, fmt.Errorf("orders request failed: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Output1 []struct {
			OrderNo   string `json:"odno"`
			FilledQty string `json:"tot_ccld_qty"`
			RemainQty string `json:"rmn_qty"`
		} `json:"output1"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode orders response: %w", err)
	}

	orders := make([]PlacedOrder, 0, len(out.Output1))
	for _, o := range out.Output1 {
		status := contracts.OrderSent
		remain, _ := strconv.ParseFloat(strings.TrimSpace(o.RemainQty), 64)
		filled, _ := strconv.ParseFloat(strings.TrimSpace(o.FilledQty), 64)
		switch {
		case remain == 0 && filled > 0:
			status = contracts.OrderFilled
		case filled > 0:
			status = contracts.OrderPartial
		}
		orders = append(orders, PlacedOrder{BrokerOrderID: o.OrderNo, Status: status})
	}

	return orders, nil
}

// GetFills retrieves fills for a broker order
func (b *KISBroker) GetFills(ctx context.Context, brokerOrderID string) ([]contracts.Fill, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/uapi/domestic-stock/v1/trading/inquire-daily-ccld?CANO=%s&ODNO=%s",
		b.cfg.BaseURL, b.cfg.AccountNo, brokerOrderID)

	resp, err := b.httpClient.Get(ctx, url, b.headers(token, trIDInquireOrders))
	if err != nil {
		return nil, fmt.Errorf("fills request failed: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Output1 []struct {
			FilledQty   string `json:"tot_ccld_qty"`
			FilledPrice string `json:"avg_prvs"`
		} `json:"output1"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode fills response: %w", err)
	}

	fills := make([]contracts.Fill, 0, len(out.Output1))
	for _, f := range out.Output1 {
		qty, _ := strconv.ParseFloat(strings.TrimSpace(f.FilledQty), 64)
		price, _ := strconv.ParseFloat(strings.TrimSpace(f.FilledPrice), 64)
		if qty > 0 {
			fills = append(fills, contracts.Fill{FilledQty: qty, FilledPrice: price, FilledAt: time.Now()})
		}
	}

	return fills, nil
}

// CancelOrder cancels a live order
func (b *KISBroker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	if err := b.guard.CheckLiveTrading(); err != nil {
		return err
	}

	token, err := b.getToken(ctx)
	if err != nil {
		return err
	}

	url := b.cfg.BaseURL + "/uapi/domestic-stock/v1/trading/order-rvsecncl"
	payload := map[string]string{
		"CANO":              b.cfg.AccountNo,
		"ORGN_ODNO":         brokerOrderID,
		"RVSE_CNCL_DVSN_CD": "02", // 취소
	}

	resp, err := b.httpClient.PostJSONWithHeaders(ctx, url, payload, b.headers(token, trIDOrderCancel))
	if err != nil {
		return fmt.Errorf("cancel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cancel returned status %d", resp.StatusCode)
	}

	return nil
}

// sideCode maps order side to the KIS wire value
func sideCode(side contracts.OrderSide) string {
	if side == contracts.OrderSideBuy {
		return "02"
	}
	return "01"
}
