// Package broker abstracts the order-management surface the execution
// coordinator needs: place an entry with protective levels, tighten a stop,
// poll open positions, and fetch last traded prices in a batch.
package broker

import "context"

// OrderRequest describes a long entry with its protective stop and target.
// Price is left to the venue (market or marketable limit at the current tick).
type OrderRequest struct {
	Symbol string
	Token  int64
	Qty    int
	Stop   float64
	Target float64
}

// Position is one open holding as reported by the venue, marked with its last
// traded price.
type Position struct {
	Symbol    string
	Qty       int
	LastPrice float64
}

// Client is implemented by the REST client for a live venue and by the
// in-process paper broker used in tests and dry runs.
type Client interface {
	// PlaceOrder submits the entry and returns the venue order id.
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)

	// ModifyStop tightens the protective stop of an existing order. Callers
	// only invoke it with a stop strictly above the one currently working.
	ModifyStop(ctx context.Context, orderID string, stop float64) error

	// OpenPositions lists holdings still open at the venue. A symbol that was
	// placed but is absent here has been closed broker-side.
	OpenPositions(ctx context.Context) ([]Position, error)

	// LastPrices returns the last traded price per instrument token. Tokens
	// the venue cannot quote are simply absent from the map.
	LastPrices(ctx context.Context, tokens []int64) (map[int64]float64, error)
}
