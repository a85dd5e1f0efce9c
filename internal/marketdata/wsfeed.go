package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"algotrader/internal/interfaces"
	"algotrader/internal/logger"
	"algotrader/internal/types"
)

const (
	reconnectInterval = 5 * time.Second
	writeTimeout      = 10 * time.Second
)

// wsMessage is the wire format of the generic tick stream: one JSON
// object per message.
type wsMessage struct {
	Symbol   string  `json:"symbol"`
	Exchange string  `json:"exchange"`
	Price    float64 `json:"price"`
	Volume   int64   `json:"volume"`
	Ts       int64   `json:"ts"` // unix milliseconds
}

type wsSubscribe struct {
	Action  string   `json:"action"` // subscribe or unsubscribe
	Symbols []string `json:"symbols"`
}

// WSFeed consumes decoded price ticks from a JSON WebSocket endpoint.
// It reconnects with a fixed backoff and re-subscribes after reconnect.
type WSFeed struct {
	url      string
	exchange string

	mu      sync.Mutex
	conn    *websocket.Conn
	onTick  func(types.PriceTick)
	symbols map[string]bool
	stopCh  chan struct{}
	started bool
}

var _ interfaces.Feed = (*WSFeed)(nil)

func NewWSFeed(url, exchange string) *WSFeed {
	return &WSFeed{
		url:      url,
		exchange: exchange,
		symbols:  make(map[string]bool),
	}
}

func (f *WSFeed) OnTick(fn func(types.PriceTick)) {
	f.mu.Lock()
	f.onTick = fn
	f.mu.Unlock()
}

// OnOrderUpdate is part of the Feed contract; the generic tick stream
// carries no order events.
func (f *WSFeed) OnOrderUpdate(fn func(types.StatusEvent)) {}

func (f *WSFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	f.conn = conn
	f.started = true
	f.stopCh = make(chan struct{})
	go f.readLoop()
	logger.Info(ctx, "WebSocket feed connected", "url", f.url)
	return nil
}

func (f *WSFeed) Stop(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	f.started = false
	close(f.stopCh)
	if f.conn != nil {
		_ = f.conn.Close()
	}
}

func (f *WSFeed) Subscribe(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range symbols {
		f.symbols[s] = true
	}
	return f.send(wsSubscribe{Action: "subscribe", Symbols: symbols})
}

func (f *WSFeed) Unsubscribe(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range symbols {
		delete(f.symbols, s)
	}
	return f.send(wsSubscribe{Action: "unsubscribe", Symbols: symbols})
}

// send writes a control message; callers hold f.mu.
func (f *WSFeed) send(msg wsSubscribe) error {
	if f.conn == nil {
		return nil
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(msg)
}

func (f *WSFeed) readLoop() {
	for {
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.stopCh:
				return
			default:
			}
			logger.ErrorWithErr(context.Background(), "WebSocket read failed, reconnecting", err, "url", f.url)
			if !f.reconnect() {
				return
			}
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn(context.Background(), "Malformed tick message discarded", "error", err)
			continue
		}

		f.mu.Lock()
		fn := f.onTick
		f.mu.Unlock()
		if fn == nil {
			continue
		}
		exchange := msg.Exchange
		if exchange == "" {
			exchange = f.exchange
		}
		fn(types.PriceTick{
			Symbol:   msg.Symbol,
			Exchange: exchange,
			Price:    msg.Price,
			Volume:   msg.Volume,
			Ts:       time.UnixMilli(msg.Ts),
		})
	}
}

// reconnect dials until it succeeds or the feed is stopped, then
// replays the current subscription set.
func (f *WSFeed) reconnect() bool {
	for {
		select {
		case <-f.stopCh:
			return false
		case <-time.After(reconnectInterval):
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			logger.Warn(context.Background(), "WebSocket reconnect failed", "url", f.url, "error", err)
			continue
		}

		f.mu.Lock()
		f.conn = conn
		symbols := make([]string, 0, len(f.symbols))
		for s := range f.symbols {
			symbols = append(symbols, s)
		}
		err = f.send(wsSubscribe{Action: "subscribe", Symbols: symbols})
		f.mu.Unlock()

		if err != nil {
			logger.Warn(context.Background(), "Re-subscribe after reconnect failed", "error", err)
			continue
		}
		logger.Info(context.Background(), "WebSocket feed reconnected", "url", f.url, "symbols", len(symbols))
		return true
	}
}
