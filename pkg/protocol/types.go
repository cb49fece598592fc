package protocol

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/priya3054/ZerodhaClone/pkg/models"
)

// EventKind names a message on the broadcast channel.
type EventKind string

// Server -> client
const (
	EventPriceUpdate    EventKind = "price-update"
	EventOrderConfirmed EventKind = "order-confirmed"
	EventOrderUpdate    EventKind = "order-update"
	EventBalanceUpdate  EventKind = "balance-update"
	EventError          EventKind = "error"
)

// Client -> server
const (
	EventPlaceOrder EventKind = "place-order"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Event EventKind       `json:"event"`
	ID    string          `json:"id,omitempty"` // request id, echoed on direct replies
	Data  json.RawMessage `json:"data,omitempty"`
}

// Payload is implemented by every event body. The set is closed: only the
// types in this file implement it.
type Payload interface {
	Kind() EventKind
}

// PriceTick is one synthetic price for one instrument.
type PriceTick struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderConfirmation reports the outcome of a place-order request.
type OrderConfirmation struct {
	Status  string        `json:"status"`
	Order   *models.Order `json:"order,omitempty"`
	Message string        `json:"message,omitempty"`
}

// OrderUpdate announces an order created through the REST path.
type OrderUpdate struct {
	Message string       `json:"message"`
	Order   models.Order `json:"order"`
}

// BalanceUpdate announces a new account balance.
type BalanceUpdate struct {
	UserID  string          `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

// ErrorMessage is sent directly to a single subscriber.
type ErrorMessage struct {
	Message string `json:"message"`
}

// PlaceOrder is the order submission sent by a client.
type PlaceOrder struct {
	Name  string          `json:"name"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
	Mode  models.Mode     `json:"mode"`
}

func (PriceTick) Kind() EventKind         { return EventPriceUpdate }
func (OrderConfirmation) Kind() EventKind { return EventOrderConfirmed }
func (OrderUpdate) Kind() EventKind       { return EventOrderUpdate }
func (BalanceUpdate) Kind() EventKind     { return EventBalanceUpdate }
func (ErrorMessage) Kind() EventKind      { return EventError }
func (PlaceOrder) Kind() EventKind        { return EventPlaceOrder }

// MarshalJSON renders the price with exactly two decimals, e.g. "1534.20".
func (t PriceTick) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string `json:"name"`
		Price string `json:"price"`
	}{Name: t.Name, Price: t.Price.StringFixed(2)})
}
