// Package zerodha implements the broker adapter over the Kite Connect
// API.
package zerodha

import (
	"context"
	"errors"
	"fmt"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"algotrader/internal/interfaces"
	"algotrader/internal/types"
)

type Params struct {
	APIKey      string
	AccessToken string
	Product     string // MIS for intraday, CNC for delivery
}

type Zerodha struct {
	p  Params
	kc *kiteconnect.Client
}

var _ interfaces.Broker = (*Zerodha)(nil)

func NewZerodha(p Params) *Zerodha {
	if p.Product == "" {
		p.Product = kiteconnect.ProductMIS
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &Zerodha{p: p, kc: kc}
}

// Authenticate verifies the configured credentials by fetching the user
// profile. Kite sessions are provisioned out of band via the daily
// request-token exchange; there is nothing to log in here.
func (z *Zerodha) Authenticate(ctx context.Context) error {
	if z.p.APIKey == "" || z.p.AccessToken == "" {
		return errors.New("missing API key/access token")
	}
	if _, err := z.kc.GetUserProfile(); err != nil {
		return fmt.Errorf("verify kite session: %w", err)
	}
	return nil
}

func (z *Zerodha) PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	params := kiteconnect.OrderParams{
		Exchange:        req.Exchange,
		Tradingsymbol:   req.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         z.p.Product,
		OrderType:       orderType(req.Kind),
		TransactionType: string(req.Side),
		Quantity:        req.Qty,
		Tag:             req.Strategy,
	}
	if req.Kind == types.OrderKindLimit {
		params.Price = req.Price
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return "", fmt.Errorf("kite place order: %w", err)
	}
	return resp.OrderID, nil
}

func (z *Zerodha) CancelOrder(ctx context.Context, brokerOrderID string) error {
	if _, err := z.kc.CancelOrder(kiteconnect.VarietyRegular, brokerOrderID, nil); err != nil {
		return fmt.Errorf("kite cancel order: %w", err)
	}
	return nil
}

func (z *Zerodha) LTP(ctx context.Context, symbol, exchange string) (float64, error) {
	instrument := exchange + ":" + symbol
	quotes, err := z.kc.GetLTP(instrument)
	if err != nil {
		return 0, fmt.Errorf("kite ltp: %w", err)
	}
	q, ok := quotes[instrument]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", instrument)
	}
	return q.LastPrice, nil
}

func orderType(kind types.OrderKind) string {
	if kind == types.OrderKindLimit {
		return kiteconnect.OrderTypeLimit
	}
	return kiteconnect.OrderTypeMarket
}
