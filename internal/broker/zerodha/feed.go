package zerodha

import (
	"context"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"algotrader/internal/interfaces"
	"algotrader/internal/logger"
	"algotrader/internal/types"
)

// Feed streams live ticks and order updates from the Kite WebSocket.
// Tick delivery per symbol is FIFO; the handler must not block.
type Feed struct {
	apiKey      string
	accessToken string
	exchange    string

	ticker *kiteticker.Ticker
	mapper *instrumentMapper

	mu       sync.Mutex
	onTick   func(types.PriceTick)
	onUpdate func(types.StatusEvent)
}

var _ interfaces.Feed = (*Feed)(nil)

func NewFeed(apiKey, accessToken, exchange string) *Feed {
	return &Feed{
		apiKey:      apiKey,
		accessToken: accessToken,
		exchange:    exchange,
		mapper:      newInstrumentMapper(),
	}
}

func (f *Feed) OnTick(fn func(types.PriceTick)) {
	f.mu.Lock()
	f.onTick = fn
	f.mu.Unlock()
}

func (f *Feed) OnOrderUpdate(fn func(types.StatusEvent)) {
	f.mu.Lock()
	f.onUpdate = fn
	f.mu.Unlock()
}

func (f *Feed) Start(ctx context.Context) error {
	f.ticker = kiteticker.New(f.apiKey, f.accessToken)
	f.setupEventHandlers()

	go f.ticker.Serve()
	return nil
}

func (f *Feed) Stop(ctx context.Context) {
	if f.ticker != nil {
		f.ticker.Stop()
	}
}

func (f *Feed) Subscribe(ctx context.Context, symbols []string) error {
	tokens, missing := f.mapper.tokensFor(symbols)
	if len(missing) > 0 {
		logger.Warn(ctx, "Symbols missing from instrument table not subscribed", "symbols", missing)
	}
	if err := f.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("subscribe to symbols: %w", err)
	}
	if err := f.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("set ticker mode: %w", err)
	}
	return nil
}

func (f *Feed) Unsubscribe(ctx context.Context, symbols []string) error {
	tokens, missing := f.mapper.tokensFor(symbols)
	if len(missing) > 0 {
		logger.Warn(ctx, "Symbols missing from instrument table not unsubscribed", "symbols", missing)
	}
	if err := f.ticker.Unsubscribe(tokens); err != nil {
		return fmt.Errorf("unsubscribe from symbols: %w", err)
	}
	return nil
}

func (f *Feed) setupEventHandlers() {
	f.ticker.OnConnect(f.onConnect)
	f.ticker.OnError(f.onError)
	f.ticker.OnClose(f.onClose)
	f.ticker.OnReconnect(f.onReconnect)
	f.ticker.OnNoReconnect(f.onNoReconnect)
	f.ticker.OnTick(f.handleTick)
	f.ticker.OnOrderUpdate(f.handleOrderUpdate)
}

func (f *Feed) onConnect() {
	logger.Info(context.Background(), "Kite WebSocket connected")
}

func (f *Feed) onError(err error) {
	logger.ErrorWithErr(context.Background(), "Kite WebSocket error", err)
}

func (f *Feed) onClose(code int, reason string) {
	logger.Warn(context.Background(), "Kite WebSocket closed", "code", code, "reason", reason)
}

func (f *Feed) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "Kite WebSocket reconnecting", "attempt", attempt, "delay", delay)
}

func (f *Feed) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "Kite WebSocket reconnection failed - giving up", "attempts", attempt)
}

func (f *Feed) handleTick(tick models.Tick) {
	symbol := f.mapper.symbolFor(tick.InstrumentToken)
	if symbol == "" {
		return
	}
	f.mu.Lock()
	fn := f.onTick
	f.mu.Unlock()
	if fn == nil {
		return
	}
	fn(types.PriceTick{
		Symbol:   symbol,
		Exchange: f.exchange,
		Price:    tick.LastPrice,
		Volume:   int64(tick.VolumeTraded),
		Ts:       tick.Timestamp.Time,
	})
}

// handleOrderUpdate translates Kite's postback stream into the
// coordinator's status events.
func (f *Feed) handleOrderUpdate(order kiteconnect.Order) {
	f.mu.Lock()
	fn := f.onUpdate
	f.mu.Unlock()
	if fn == nil {
		return
	}
	fn(types.StatusEvent{
		BrokerOrderID: order.OrderID,
		Status:        mapOrderStatus(order.Status),
		FilledQty:     int(order.FilledQuantity),
		AvgPrice:      order.AveragePrice,
		Message:       order.StatusMessage,
	})
}

func mapOrderStatus(kiteStatus string) types.OrderStatus {
	switch kiteStatus {
	case "COMPLETE":
		return types.StatusComplete
	case "REJECTED":
		return types.StatusRejected
	case "CANCELLED":
		return types.StatusCancelled
	default:
		// OPEN, TRIGGER PENDING, UPDATE and other intermediate states
		// keep the order in the pending index.
		return types.StatusOpen
	}
}
