package b2c2

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const maxQtyPerTradeSuffix = "_max_qty_per_trade"

var knownFieldsCache sync.Map // reflect.Type -> map[string]struct{}

// knownFields returns the JSON names declared on struct type t.
func knownFields(t reflect.Type) map[string]struct{} {
	if cached, ok := knownFieldsCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	names := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names[name] = struct{}{}
		}
	}
	knownFieldsCache.Store(t, names)
	return names
}

// unknownFields decodes the members of the JSON object data that t does not declare.
func unknownFields(data []byte, t reflect.Type) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	known := knownFields(t)
	var extra map[string]any
	for k, v := range all {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra, nil
}

func (q *Quote) UnmarshalJSON(data []byte) error {
	type plain Quote
	if err := json.Unmarshal(data, (*plain)(q)); err != nil {
		return err
	}
	extra, err := unknownFields(data, reflect.TypeFor[Quote]())
	q.Extra = extra
	return err
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	if err := json.Unmarshal(data, (*plain)(o)); err != nil {
		return err
	}
	extra, err := unknownFields(data, reflect.TypeFor[Order]())
	o.Extra = extra
	return err
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	type plain Trade
	if err := json.Unmarshal(data, (*plain)(t)); err != nil {
		return err
	}
	extra, err := unknownFields(data, reflect.TypeFor[Trade]())
	t.Extra = extra
	return err
}

func (i *Instrument) UnmarshalJSON(data []byte) error {
	type plain Instrument
	if err := json.Unmarshal(data, (*plain)(i)); err != nil {
		return err
	}
	extra, err := unknownFields(data, reflect.TypeFor[Instrument]())
	i.Extra = extra
	return err
}

func (a *AccountInfo) UnmarshalJSON(data []byte) error {
	type plain AccountInfo
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	extra, err := unknownFields(data, reflect.TypeFor[AccountInfo]())
	if err != nil {
		return err
	}

	for k, v := range extra {
		currency, ok := strings.CutSuffix(k, maxQtyPerTradeSuffix)
		if !ok || v == nil {
			// A null limit stays in Extra and prints as-is.
			continue
		}
		qty, err := decimalFromAny(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		if a.MaxQtyPerTrade == nil {
			a.MaxQtyPerTrade = make(map[string]decimal.Decimal)
		}
		a.MaxQtyPerTrade[strings.ToUpper(currency)] = qty
		delete(extra, k)
	}
	if len(extra) > 0 {
		a.Extra = extra
	}
	return nil
}

func decimalFromAny(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		return decimal.NewFromString(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	default:
		return decimal.Zero, fmt.Errorf("expected a decimal, got %T", v)
	}
}

// Field is one printable key/value pair of a record.
type Field struct {
	Key   string
	Value string
}

// Fields lists the quote in API order followed by any extra members.
func (q *Quote) Fields() []Field {
	fields := []Field{
		{"valid_until", q.ValidUntil},
		{"rfq_id", q.RFQID},
		{"client_rfq_id", q.ClientRFQID},
		{"quantity", FormatDecimal(q.Quantity)},
		{"side", string(q.Side)},
		{"instrument", q.Instrument},
		{"price", FormatDecimal(q.Price)},
	}
	fields = appendTime(fields, "created", q.Created)
	return appendExtra(fields, q.Extra)
}

// Fields lists the order without its trades.
func (o *Order) Fields() []Field {
	fields := []Field{
		{"order_id", o.OrderID},
		{"client_order_id", o.ClientOrderID},
		{"instrument", o.Instrument},
		{"side", string(o.Side)},
		{"quantity", FormatDecimal(o.Quantity)},
		{"price", nullDecimalString(o.Price)},
		{"executed_price", nullDecimalString(o.ExecutedPrice)},
	}
	fields = appendTime(fields, "created", o.Created)
	return appendExtra(fields, o.Extra)
}

// Fields lists the trade without its trade_id.
func (t *Trade) Fields() []Field {
	rfqID := "null"
	if t.RFQID != nil {
		rfqID = *t.RFQID
	}
	fields := []Field{
		{"instrument", t.Instrument},
		{"side", string(t.Side)},
		{"price", FormatDecimal(t.Price)},
		{"quantity", FormatDecimal(t.Quantity)},
		{"order", t.Order},
		{"rfq_id", rfqID},
	}
	fields = appendTime(fields, "created", t.Created)
	return appendExtra(fields, t.Extra)
}

// Fields lists the account limits, per-trade maxima sorted by currency.
func (a *AccountInfo) Fields() []Field {
	fields := []Field{
		{"risk_exposure", nullDecimalString(a.RiskExposure)},
		{"max_risk_exposure", nullDecimalString(a.MaxRiskExposure)},
	}
	currencies := make([]string, 0, len(a.MaxQtyPerTrade))
	for c := range a.MaxQtyPerTrade {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		fields = append(fields, Field{strings.ToLower(c) + maxQtyPerTradeSuffix, FormatDecimal(a.MaxQtyPerTrade[c])})
	}
	return appendExtra(fields, a.Extra)
}

// Currencies returns the balance's currencies in alphabetical order.
func (b Balance) Currencies() []string {
	currencies := make([]string, 0, len(b))
	for c := range b {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	return currencies
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "null"
	}
	return FormatDecimal(d.Decimal)
}

// FormatDecimal prints d with the scale it was received with, so "700.00"
// stays "700.00".
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func appendTime(fields []Field, key string, t time.Time) []Field {
	if t.IsZero() {
		return fields
	}
	return append(fields, Field{key, t.Format(time.RFC3339Nano)})
}

func appendExtra(fields []Field, extra map[string]any) []Field {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, Field{k, formatValue(extra[k])})
	}
	return fields
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}
