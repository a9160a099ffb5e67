package b2c2

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/b2c2-cli/httpclient"
	"github.com/gaborage/b2c2-cli/logger"
)

const (
	testToken   = "fake_token"
	testBaseURL = "https://api.uat.b2c2.net"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	ctype  string
	body   string
}

// fakeAPI serves scripted responses per path and records every request.
type fakeAPI struct {
	*httptest.Server
	mu        sync.Mutex
	responses map[string][]scripted
	requests  []recordedRequest
}

type scripted struct {
	status int
	body   string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{responses: make(map[string][]scripted)}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) on(path string, responses ...scripted) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[path] = append(a.responses[path], responses...)
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.requests = append(a.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		auth:   r.Header.Get("Authorization"),
		ctype:  r.Header.Get("Content-Type"),
		body:   string(body),
	})
	queue := a.responses[r.URL.Path]
	resp := scripted{status: http.StatusNotFound, body: `{"errors":[{"field":"non_field_errors","message":"Not found."}]}`}
	if len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			a.responses[r.URL.Path] = queue[1:]
		}
	}
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (a *fakeAPI) recorded() []recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedRequest(nil), a.requests...)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	hc := httpclient.NewBuilder(logger.Nop()).Build()
	c, err := NewClient(Config{BaseURL: baseURL, Token: testToken}, hc, nil)
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesConfig(t *testing.T) {
	hc := httpclient.NewBuilder(logger.Nop()).Build()

	tests := []struct {
		name string
		cfg  Config
		hc   httpclient.Client
	}{
		{name: "missing token", cfg: Config{BaseURL: testBaseURL}, hc: hc},
		{name: "relative URL", cfg: Config{BaseURL: "api.b2c2.net", Token: "t"}, hc: hc},
		{name: "unparseable URL", cfg: Config{BaseURL: "http://[::1", Token: "t"}, hc: hc},
		{name: "missing http client", cfg: Config{BaseURL: testBaseURL, Token: "t"}, hc: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg, tt.hc, nil)
			assert.Error(t, err)
		})
	}
}

func TestRequestRoundTrip(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/my-endpoint", scripted{status: 200, body: `{"my": "response body"}`})
	c := newTestClient(t, api.URL)

	var out map[string]any
	err := c.Request(context.Background(), http.MethodPost, "my-endpoint",
		map[string]string{"param-key": "val"},
		map[string]any{"my": []string{"json", "body"}},
		&out)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"my": "response body"}, out)

	reqs := api.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Token "+testToken, reqs[0].auth)
	assert.Equal(t, "param-key=val", reqs[0].query)
	assert.Equal(t, "application/json", reqs[0].ctype)
	assert.JSONEq(t, `{"my":["json","body"]}`, reqs[0].body)
}

func TestRequestPostToOrderEndpoint(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/order/", scripted{status: 200, body: `{"my":"response"}`})
	c := newTestClient(t, api.URL)

	var out json.RawMessage
	err := c.Request(context.Background(), http.MethodPost, EndpointOrder, nil,
		json.RawMessage(`{"my":["json","body"]}`), &out)

	require.NoError(t, err)
	assert.JSONEq(t, `{"my":"response"}`, string(out))
	assert.JSONEq(t, `{"my":["json","body"]}`, api.recorded()[0].body)
}

func TestRequestResolvesAgainstBasePath(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/v1/balance/", scripted{status: 200, body: `{}`})
	c := newTestClient(t, api.URL+"/v1/")

	_, err := c.Balance(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/v1/balance/", api.recorded()[0].path)
}

func TestBalanceRetriesServerErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/balance/",
		scripted{status: 500}, scripted{status: 500}, scripted{status: 500}, scripted{status: 500},
		scripted{status: 200, body: `{}`},
	)
	c := newTestClient(t, api.URL)

	balance, err := c.Balance(context.Background())

	require.NoError(t, err)
	assert.Empty(t, balance)
	reqs := api.recorded()
	require.Len(t, reqs, 5)
	for i, r := range reqs {
		assert.Equal(t, "Token "+testToken, r.auth, "attempt %d", i+1)
		assert.Equal(t, http.MethodGet, r.method)
	}
}

func TestBalanceGivesUpAfterFiveAttempts(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/balance/", scripted{status: 503, body: `{}`})
	c := newTestClient(t, api.URL)

	_, err := c.Balance(context.Background())

	require.Error(t, err)
	assert.True(t, httpclient.IsErrorType(err, httpclient.RetriesExhaustedError))
	assert.Len(t, api.recorded(), 5)
}

func TestBalanceDeadlineDuringRetryKeepsLastFailure(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/balance/", scripted{status: 500, body: `{}`})
	hc := httpclient.NewBuilder(logger.Nop()).WithRetryDelay(200 * time.Millisecond).Build()
	c, err := NewClient(Config{BaseURL: api.URL, Token: testToken}, hc, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Balance(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, httpclient.IsErrorType(err, httpclient.HTTPError))
	assert.True(t, httpclient.IsHTTPStatusError(err, 500))
	assert.Len(t, api.recorded(), 1)
}

func TestClientErrorIsTerminal(t *testing.T) {
	api := newFakeAPI(t)
	body := `{"errors":[{"field":"quantity","message":"Quantity too small.","code":1100}]}`
	api.on("/request_for_quote/", scripted{status: 400, body: body})
	c := newTestClient(t, api.URL)

	_, err := c.RequestForQuote(context.Background(), QuoteRequest{
		Instrument:  "BTCUSD.SPOT",
		Side:        SideBuy,
		Quantity:    decimal.RequireFromString("0.0001"),
		ClientRFQID: "rfq-1",
	})

	require.Error(t, err)
	assert.Len(t, api.recorded(), 1)
	status, apiErrs, ok := APIErrors(err)
	require.True(t, ok)
	assert.Equal(t, 400, status)
	assert.Equal(t, []APIError{{Field: "quantity", Message: "Quantity too small.", Code: 1100}}, apiErrs)
}

func TestRequestForQuote(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/request_for_quote/", scripted{status: 200, body: `{
		"valid_until": "2017-01-01T19:45:22.025464Z",
		"rfq_id": "d4e41399-e7a1-4576-9b46-349420040e1a",
		"client_rfq_id": "149dc3e7-4e30-4e1a-bb9c-9c30bd8f5ec7",
		"quantity": "1.0000000000",
		"side": "buy",
		"instrument": "BTCUSD.SPOT",
		"price": "700.00000000",
		"created": "2018-02-06T16:07:50.122206Z",
		"executing_unit": "risk-adding-strategy"
	}`})
	c := newTestClient(t, api.URL)

	quote, err := c.RequestForQuote(context.Background(), QuoteRequest{
		Instrument:  "BTCUSD.SPOT",
		Side:        SideBuy,
		Quantity:    decimal.RequireFromString("1"),
		ClientRFQID: "149dc3e7-4e30-4e1a-bb9c-9c30bd8f5ec7",
	})

	require.NoError(t, err)
	assert.Equal(t, "d4e41399-e7a1-4576-9b46-349420040e1a", quote.RFQID)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, "2017-01-01T19:45:22.025464Z", quote.ValidUntil)
	assert.Equal(t, map[string]any{"executing_unit": "risk-adding-strategy"}, quote.Extra)
	assert.JSONEq(t,
		`{"instrument":"BTCUSD.SPOT","side":"buy","quantity":"1","client_rfq_id":"149dc3e7-4e30-4e1a-bb9c-9c30bd8f5ec7"}`,
		api.recorded()[0].body)
}

func TestRequestForQuoteRejectsInvalidRequest(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api.URL)

	_, err := c.RequestForQuote(context.Background(), QuoteRequest{
		Instrument: "BTCUSD.SPOT",
		Side:       "hold",
		Quantity:   decimal.RequireFromString("1.12345"),
	})

	require.Error(t, err)
	assert.True(t, httpclient.IsErrorType(err, httpclient.ValidationError))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	fields := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"side", "quantity", "client_rfq_id"}, fields)
	assert.Empty(t, api.recorded())
}

func TestPlaceOrder(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/order/", scripted{status: 200, body: `{
		"order_id": "d4e41399-e7a1-4576-9b46-349420040e1a",
		"client_order_id": "d4e41399-e7a1-4576-9b46-349420040e1a",
		"quantity": "3.0000000000",
		"side": "buy",
		"instrument": "BTCUSD.SPOT",
		"price": "1100.00000000",
		"executed_price": "1000.00000000",
		"executing_unit": "risk-adding-strategy",
		"trades": [{
			"instrument": "BTCUSD.SPOT",
			"trade_id": "b2c2-trade-1",
			"origin": "rest",
			"rfq_id": null,
			"created": "2018-02-26T14:27:53.876962Z",
			"price": "1000.00000000",
			"quantity": "3.0000000000",
			"order": "d4e41399-e7a1-4576-9b46-349420040e1a",
			"side": "buy"
		}],
		"created": "2018-02-06T16:07:50.122206Z"
	}`})
	c := newTestClient(t, api.URL)

	order, err := c.PlaceOrder(context.Background(), OrderRequest{
		Instrument:    "BTCUSD.SPOT",
		Side:          SideBuy,
		Quantity:      decimal.RequireFromString("3"),
		Price:         decimal.RequireFromString("1100"),
		ValidUntil:    "2018-02-06T16:08:00",
		ClientOrderID: "d4e41399-e7a1-4576-9b46-349420040e1a",
	})

	require.NoError(t, err)
	assert.False(t, order.Rejected())
	assert.True(t, order.ExecutedPrice.Decimal.Equal(decimal.NewFromInt(1000)))
	require.Len(t, order.Trades, 1)
	assert.Equal(t, "b2c2-trade-1", order.Trades[0].TradeID)
	assert.Nil(t, order.Trades[0].RFQID)
	assert.Equal(t, map[string]any{"origin": "rest"}, order.Trades[0].Extra)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.recorded()[0].body), &sent))
	assert.Equal(t, "FOK", sent["order_type"])
	assert.Equal(t, "1100", sent["price"])
}

func TestPlaceOrderRejected(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/order/", scripted{status: 200, body: `{"order_id":"o-1","executed_price":null,"trades":[]}`})
	c := newTestClient(t, api.URL)

	order, err := c.PlaceOrder(context.Background(), OrderRequest{
		Instrument:    "BTCUSD.SPOT",
		Side:          SideSell,
		Quantity:      decimal.RequireFromString("1"),
		Price:         decimal.RequireFromString("1000"),
		OrderType:     OrderTypeFOK,
		ValidUntil:    "2018-02-06T16:08:00",
		ClientOrderID: "c-1",
	})

	require.NoError(t, err)
	assert.True(t, order.Rejected())
}

func TestInstruments(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/instruments/", scripted{status: 200, body: `[{"name":"BTCUSD.SPOT"},{"name":"ETHUSD.SPOT","underlier":"ETHUSD"}]`})
	c := newTestClient(t, api.URL)

	instruments, err := c.Instruments(context.Background())

	require.NoError(t, err)
	require.Len(t, instruments, 2)
	assert.Equal(t, "BTCUSD.SPOT", instruments[0].Name)
	assert.Nil(t, instruments[0].Extra)
	assert.Equal(t, map[string]any{"underlier": "ETHUSD"}, instruments[1].Extra)
}

func TestBalance(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/balance/", scripted{status: 200, body: `{"USD":"-1500.5","BTC":"0.25","JPY":0}`})
	c := newTestClient(t, api.URL)

	balance, err := c.Balance(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "JPY", "USD"}, balance.Currencies())
	assert.True(t, balance["USD"].Equal(decimal.RequireFromString("-1500.5")))
	assert.True(t, balance["JPY"].IsZero())
}

func TestAccountInfo(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/account_info/", scripted{status: 200, body: `{
		"max_risk_exposure": "200000.0",
		"risk_exposure": "0",
		"btc_max_qty_per_trade": "100",
		"eth_max_qty_per_trade": "500",
		"currency": "USD"
	}`})
	c := newTestClient(t, api.URL)

	info, err := c.AccountInfo(context.Background())

	require.NoError(t, err)
	assert.True(t, info.MaxRiskExposure.Decimal.Equal(decimal.NewFromInt(200000)))
	assert.True(t, info.RiskExposure.Valid)
	assert.Len(t, info.MaxQtyPerTrade, 2)
	assert.True(t, info.MaxQtyPerTrade["ETH"].Equal(decimal.NewFromInt(500)))
	assert.Equal(t, map[string]any{"currency": "USD"}, info.Extra)
}

func TestDecodeFailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		call func(*Client) error
	}{
		{
			name: "invalid JSON",
			path: "/balance/",
			body: `not json`,
			call: func(c *Client) error { _, err := c.Balance(context.Background()); return err },
		},
		{
			name: "empty body",
			path: "/account_info/",
			body: ``,
			call: func(c *Client) error { _, err := c.AccountInfo(context.Background()); return err },
		},
		{
			name: "wrong shape",
			path: "/instruments/",
			body: `{"name":"BTCUSD.SPOT"}`,
			call: func(c *Client) error { _, err := c.Instruments(context.Background()); return err },
		},
		{
			name: "missing required field",
			path: "/instruments/",
			body: `[{"name":""}]`,
			call: func(c *Client) error { _, err := c.Instruments(context.Background()); return err },
		},
		{
			name: "wrong field type",
			path: "/balance/",
			body: `{"USD":true}`,
			call: func(c *Client) error { _, err := c.Balance(context.Background()); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.on(tt.path, scripted{status: 200, body: tt.body})
			c := newTestClient(t, api.URL)

			err := tt.call(c)

			require.Error(t, err)
			assert.True(t, httpclient.IsErrorType(err, httpclient.DecodeError))
			assert.Len(t, api.recorded(), 1)
		})
	}
}

func TestRequestWithoutOutput(t *testing.T) {
	api := newFakeAPI(t)
	api.on("/ping/", scripted{status: 204})
	c := newTestClient(t, api.URL)

	err := c.Request(context.Background(), http.MethodGet, "ping/", nil, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, api.recorded()[0].ctype)
}
