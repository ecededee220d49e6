package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RESTClient speaks to an order-management service over HTTP. All endpoints
// are JSON; non-2xx responses are surfaced as errors with the status code.
type RESTClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewRESTClient builds a client against the given base URL.
func NewRESTClient(baseURL string, timeout time.Duration, log zerolog.Logger) *RESTClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type placeOrderRequest struct {
	Symbol string  `json:"symbol"`
	Token  int64   `json:"token"`
	Qty    int     `json:"qty"`
	Stop   float64 `json:"sl"`
	Target float64 `json:"tp"`
}

type placeOrderResponse struct {
	OrderID string `json:"order_id"`
}

type modifyStopRequest struct {
	Stop float64 `json:"sl"`
}

type portfolioResponse struct {
	Positions []struct {
		Symbol string  `json:"symbol"`
		Qty    int     `json:"qty"`
		LTP    float64 `json:"ltp"`
	} `json:"open_positions"`
}

type ltpResponse struct {
	Prices map[string]float64 `json:"ltp"`
}

// PlaceOrder submits the entry order and returns the venue order id.
func (c *RESTClient) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	payload := placeOrderRequest{
		Symbol: req.Symbol,
		Token:  req.Token,
		Qty:    req.Qty,
		Stop:   req.Stop,
		Target: req.Target,
	}
	var out placeOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &out); err != nil {
		return "", fmt.Errorf("place order %s: %w", req.Symbol, err)
	}
	if out.OrderID == "" {
		return "", fmt.Errorf("place order %s: empty order id", req.Symbol)
	}
	return out.OrderID, nil
}

// ModifyStop raises the protective stop of a working order.
func (c *RESTClient) ModifyStop(ctx context.Context, orderID string, stop float64) error {
	path := "/orders/" + orderID + "/stop"
	if err := c.do(ctx, http.MethodPut, path, modifyStopRequest{Stop: stop}, nil); err != nil {
		return fmt.Errorf("modify stop %s: %w", orderID, err)
	}
	return nil
}

// OpenPositions lists holdings the venue still reports as open.
func (c *RESTClient) OpenPositions(ctx context.Context) ([]Position, error) {
	var out portfolioResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch portfolio: %w", err)
	}
	positions := make([]Position, 0, len(out.Positions))
	for _, p := range out.Positions {
		positions = append(positions, Position{Symbol: p.Symbol, Qty: p.Qty, LastPrice: p.LTP})
	}
	return positions, nil
}

// LastPrices fetches last traded prices for a batch of instrument tokens.
func (c *RESTClient) LastPrices(ctx context.Context, tokens []int64) (map[int64]float64, error) {
	if len(tokens) == 0 {
		return map[int64]float64{}, nil
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = strconv.FormatInt(t, 10)
	}
	path := "/quotes/ltp?tokens=" + strings.Join(parts, ",")

	var out ltpResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch ltp: %w", err)
	}
	prices := make(map[int64]float64, len(out.Prices))
	for key, px := range out.Prices {
		token, err := strconv.ParseInt(key, 10, 64)
		if err != nil || px <= 0 {
			continue
		}
		prices[token] = px
	}
	return prices, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
