package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testToken = "e13e627c49705f83cbe7b60389ac411b6f86fee7"

type apiResponse struct {
	status int
	body   string
}

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   string
}

// fakeAPI serves scripted responses per "METHOD /path", repeating the last one.
type fakeAPI struct {
	*httptest.Server
	mu       sync.Mutex
	routes   map[string][]apiResponse
	requests []recordedRequest
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{routes: make(map[string][]apiResponse)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)

	t.Setenv("API_TOKEN", testToken)
	t.Setenv("API_URL", f.URL)
	t.Setenv("LOG_LEVEL", "error")
	return f
}

func (f *fakeAPI) on(method, path string, responses ...apiResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = responses
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		auth:   r.Header.Get("Authorization"),
		body:   string(body),
	})
	responses := f.routes[key]
	var resp apiResponse
	switch len(responses) {
	case 0:
		resp = apiResponse{status: http.StatusNotFound, body: `{"errors":[{"field":"non_field_errors","message":"Not found."}]}`}
	case 1:
		resp = responses[0]
	default:
		resp = responses[0]
		f.routes[key] = responses[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeAPI) requestsTo(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.path == path {
			out = append(out, r)
		}
	}
	return out
}

type result struct {
	stdout string
	stderr string
	code   int
}

func run(stdin string, args ...string) result {
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), "test", args, Streams{
		In:  strings.NewReader(stdin),
		Out: &out,
		Err: &errOut,
	})
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

func ok(body string) apiResponse {
	return apiResponse{status: http.StatusOK, body: body}
}

const (
	balanceBody = `{"USD": "0", "BTC": "0.00000000", "JPY": "-101.5", "GBP": "999.99"}`
	balanceOut  = "Getting your balance..\n" +
		"Your balance is:\n" +
		"BTC: 0.00000000\n" +
		"GBP: 999.99\n" +
		"JPY: -101.5\n" +
		"USD: 0\n"

	quoteBody = `{
		"valid_until": "2017-01-01T19:45:22.025464Z",
		"rfq_id": "d4e41399-e7a1-4576-9b46-349420040e1a",
		"client_rfq_id": "149dc3e7-4e30-4e1a-bb9c-9c30bd8f5ec7",
		"quantity": "1.0000000000",
		"side": "buy",
		"instrument": "BTCUSD.SPOT",
		"price": "700.00000000",
		"created": "2018-02-06T16:07:50.122206Z"
	}`

	filledOrderBody = `{
		"order_id": "d4e41399-e7a1-4576-9b46-349420040e1a",
		"client_order_id": "149dc3e7-4e30-4e1a-bb9c-9c30bd8f5ec7",
		"quantity": "1.0000000000",
		"side": "buy",
		"instrument": "BTCUSD.SPOT",
		"price": "700.00000000",
		"executed_price": "699.50000000",
		"trades": [{
			"instrument": "BTCUSD.SPOT",
			"trade_id": "b2c2-trade-1",
			"rfq_id": null,
			"order": "d4e41399-e7a1-4576-9b46-349420040e1a",
			"quantity": "1.0000000000",
			"side": "buy",
			"price": "699.50000000"
		}]
	}`

	rejectedOrderBody = `{
		"order_id": "d4e41399-e7a1-4576-9b46-349420040e1a",
		"client_order_id": "149dc3e7-4e30-4e1a-bb9c-9c30bd8f5ec7",
		"quantity": "1.0000000000",
		"side": "buy",
		"instrument": "BTCUSD.SPOT",
		"price": "700.00000000",
		"executed_price": null,
		"trades": []
	}`
)
