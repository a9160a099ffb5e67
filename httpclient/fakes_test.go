package httpclient

import (
	"errors"
	"io"
	"maps"
	nethttp "net/http"
	"strings"
	"sync"
	"testing/iotest"
	"time"

	"github.com/gaborage/b2c2-cli/logger"
)

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{
		level:   e.level,
		fields:  maps.Clone(e.fields),
		message: msg,
	})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) { e.Msg(format) }

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger, capturing every event
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent                     { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent                    { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent                    { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent                     { return l.event("warn") }
func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger { return l }

func (l *fakeLogger) eventsByLevel(level string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var events []loggedEvent
	for _, event := range l.events {
		if event.level == level {
			events = append(events, event)
		}
	}
	return events
}

// fakeTransport returns scripted outcomes in order, repeating the last one,
// and records every request it receives.
type fakeTransport struct {
	mu       sync.Mutex
	outcomes []fakeOutcome
	requests []*nethttp.Request
}

type fakeOutcome struct {
	err     error
	status  int
	body    string
	readErr error
}

func (f *fakeTransport) Do(req *nethttp.Request) (*nethttp.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.outcomes) == 0 {
		return nil, errors.New("fakeTransport: no outcome scripted")
	}
	idx := min(len(f.requests), len(f.outcomes)) - 1
	out := f.outcomes[idx]
	if out.err != nil {
		return nil, out.err
	}
	body := nopBody(out.body)
	if out.readErr != nil {
		body = io.NopCloser(iotest.ErrReader(out.readErr))
	}
	return &nethttp.Response{
		StatusCode: out.status,
		Header:     nethttp.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
		Request:    req,
	}, nil
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// timeoutErr satisfies net.Error with Timeout() true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func nopBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
