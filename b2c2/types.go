package b2c2

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a quote or order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType selects the execution policy of an order.
type OrderType string

const (
	// OrderTypeFOK fills the whole quantity at the limit price or nothing.
	OrderTypeFOK OrderType = "FOK"
	// OrderTypeMKT executes at the market price.
	OrderTypeMKT OrderType = "MKT"
)

// QuoteRequest is the body of POST request_for_quote/.
type QuoteRequest struct {
	Instrument  string          `json:"instrument" validate:"required"`
	Side        Side            `json:"side" validate:"required,oneof=buy sell"`
	Quantity    decimal.Decimal `json:"quantity" validate:"quantity"`
	ClientRFQID string          `json:"client_rfq_id" validate:"required"`
}

// Quote is a firm price valid until ValidUntil.
type Quote struct {
	ValidUntil  string          `json:"valid_until"`
	RFQID       string          `json:"rfq_id" validate:"required"`
	ClientRFQID string          `json:"client_rfq_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Side        Side            `json:"side"`
	Instrument  string          `json:"instrument"`
	Price       decimal.Decimal `json:"price"`
	Created     time.Time       `json:"created"`
	Extra       map[string]any  `json:"-"`
}

// OrderRequest is the body of POST order/.
type OrderRequest struct {
	Instrument    string          `json:"instrument" validate:"required"`
	Side          Side            `json:"side" validate:"required,oneof=buy sell"`
	Quantity      decimal.Decimal `json:"quantity" validate:"quantity"`
	Price         decimal.Decimal `json:"price" validate:"positive"`
	OrderType     OrderType       `json:"order_type" validate:"required,oneof=FOK MKT"`
	ValidUntil    string          `json:"valid_until" validate:"required"`
	ClientOrderID string          `json:"client_order_id" validate:"required"`
}

// Order is the outcome of an order placement. A null executed price means
// the order was rejected.
type Order struct {
	OrderID       string              `json:"order_id" validate:"required"`
	ClientOrderID string              `json:"client_order_id"`
	Instrument    string              `json:"instrument"`
	Side          Side                `json:"side"`
	Quantity      decimal.Decimal     `json:"quantity"`
	Price         decimal.NullDecimal `json:"price"`
	ExecutedPrice decimal.NullDecimal `json:"executed_price"`
	Trades        []Trade             `json:"trades" validate:"dive"`
	Created       time.Time           `json:"created"`
	Extra         map[string]any      `json:"-"`
}

// Rejected reports whether the order was not executed.
func (o *Order) Rejected() bool {
	return !o.ExecutedPrice.Valid
}

// Trade is a fill belonging to an order.
type Trade struct {
	TradeID    string          `json:"trade_id" validate:"required"`
	Instrument string          `json:"instrument"`
	Side       Side            `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Order      string          `json:"order"`
	RFQID      *string         `json:"rfq_id"`
	Created    time.Time       `json:"created"`
	Extra      map[string]any  `json:"-"`
}

// Instrument is a tradable instrument, e.g. BTCUSD.SPOT.
type Instrument struct {
	Name  string         `json:"name" validate:"required"`
	Extra map[string]any `json:"-"`
}

// Balance maps a currency to the account's net position in it. Positive
// amounts are owed to the account holder.
type Balance map[string]decimal.Decimal

// AccountInfo describes the account's risk limits.
type AccountInfo struct {
	RiskExposure    decimal.NullDecimal `json:"risk_exposure"`
	MaxRiskExposure decimal.NullDecimal `json:"max_risk_exposure"`
	// MaxQtyPerTrade is keyed by the upper-cased currency prefix of the
	// <currency>_max_qty_per_trade fields.
	MaxQtyPerTrade map[string]decimal.Decimal `json:"-"`
	Extra          map[string]any             `json:"-"`
}
