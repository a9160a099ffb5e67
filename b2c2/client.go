// Package b2c2 is a typed client for the B2C2 trading REST API. Every call
// goes through an httpclient.Client, so transient failures are retried and
// every attempt carries the account token.
package b2c2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"

	"github.com/gaborage/b2c2-cli/httpclient"
	"github.com/gaborage/b2c2-cli/logger"
)

// Endpoints, relative to the base URL.
const (
	EndpointRequestForQuote = "request_for_quote/"
	EndpointOrder           = "order/"
	EndpointInstruments     = "instruments/"
	EndpointBalance         = "balance/"
	EndpointAccountInfo     = "account_info/"
)

const contentTypeJSON = "application/json"

// Config is the immutable connection configuration of a Client.
type Config struct {
	BaseURL string
	Token   string
}

// Client calls the B2C2 API. It holds no mutable state and is safe for concurrent use.
type Client struct {
	base      *url.URL
	authValue string
	http      httpclient.Client
	validator *Validator
	logger    logger.Logger
}

// NewClient creates a Client sending requests through hc. log may be nil.
func NewClient(cfg Config, hc httpclient.Client, log logger.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("b2c2: token is required")
	}
	if hc == nil {
		return nil, errors.New("b2c2: http client is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("b2c2: invalid base URL: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("b2c2: base URL %q must be absolute", cfg.BaseURL)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		base:      base,
		authValue: "Token " + cfg.Token,
		http:      hc,
		validator: NewValidator(),
		logger:    log,
	}, nil
}

// RequestForQuote asks for a firm price for the given instrument, side and quantity.
func (c *Client) RequestForQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}
	var quote Quote
	if err := c.Request(ctx, http.MethodPost, EndpointRequestForQuote, nil, req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// PlaceOrder submits an order. An empty OrderType defaults to FOK.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.OrderType == "" {
		req.OrderType = OrderTypeFOK
	}
	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}
	var order Order
	if err := c.Request(ctx, http.MethodPost, EndpointOrder, nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Instruments lists the instruments the account may trade.
func (c *Client) Instruments(ctx context.Context) ([]Instrument, error) {
	var instruments []Instrument
	if err := c.Request(ctx, http.MethodGet, EndpointInstruments, nil, nil, &instruments); err != nil {
		return nil, err
	}
	return instruments, nil
}

// Balance returns the account balance per currency.
func (c *Client) Balance(ctx context.Context) (Balance, error) {
	var balance Balance
	if err := c.Request(ctx, http.MethodGet, EndpointBalance, nil, nil, &balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// AccountInfo returns the account's risk exposure and trade limits.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.Request(ctx, http.MethodGet, EndpointAccountInfo, nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Request sends method to endpoint (resolved against the base URL) with optional
// query parameters and JSON body, and decodes the JSON response into out when
// out is non-nil. Decoded structs are validated; shape mismatches are
// httpclient.DecodeError failures and are never retried.
func (c *Client) Request(ctx context.Context, method, endpoint string, query map[string]string, body, out any) error {
	target, err := c.resolve(endpoint)
	if err != nil {
		return err
	}

	headers := map[string]string{
		"Authorization": c.authValue,
		"Accept":        contentTypeJSON,
	}
	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return httpclient.NewValidationError(fmt.Sprintf("failed to encode body: %v", err), "body")
		}
		headers["Content-Type"] = contentTypeJSON
	}

	resp, err := c.http.Do(ctx, method, &httpclient.Request{
		URL:     target,
		Query:   query,
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	if out == nil {
		return nil
	}
	if err := c.decode(resp.Body, out); err != nil {
		c.logger.Warn().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Err(err).
			Msg("Failed to decode B2C2 response")
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return nil
}

func (c *Client) resolve(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", httpclient.NewValidationError(fmt.Sprintf("invalid endpoint %q: %v", endpoint, err), "endpoint")
	}
	return c.base.ResolveReference(ref).String(), nil
}

func (c *Client) decode(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return httpclient.NewDecodeError("empty response body", body, nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return httpclient.NewDecodeError("unexpected response shape", body, err)
	}
	if err := c.validateDecoded(out); err != nil {
		return httpclient.NewDecodeError("response is missing required fields", body, err)
	}
	return nil
}

// validateDecoded validates decoded structs, directly or as slice elements.
func (c *Client) validateDecoded(out any) error {
	v := reflect.Indirect(reflect.ValueOf(out))
	switch v.Kind() {
	case reflect.Struct:
		return c.validator.Validate(v.Addr().Interface())
	case reflect.Slice:
		for i := range v.Len() {
			elem := reflect.Indirect(v.Index(i))
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := c.validator.Validate(elem.Addr().Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}
