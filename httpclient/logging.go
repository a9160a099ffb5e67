package httpclient

import (
	nethttp "net/http"
)

const defaultMaxPayloadLogBytes = 1024

// logRequest logs an outgoing attempt; payloads are only logged at debug level when enabled.
func (c *client) logRequest(req *nethttp.Request, body []byte, requestID string) {
	event := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID)
	if n := len(req.Header); n > 0 {
		event = event.Int("header_count", n)
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.payloadPreview(body)
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Interface("headers", req.Header).
		Int("body_size", len(body)).
		Str("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg("REST client request")
}

// logResponse logs the response of a single attempt, successful or not.
func (c *client) logResponse(resp *Response, requestID string) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", requestID)
	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.payloadPreview(resp.Body)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Interface("headers", resp.Headers).
		Int("body_size", len(resp.Body)).
		Str("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg("REST client response")
}

func (c *client) payloadPreview(body []byte) (preview []byte, truncated string) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = defaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], "true"
	}
	return body, "false"
}
