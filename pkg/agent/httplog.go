package agent

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/strom/pkg/debug"
)

// RedactedAuthorization replaces the Authorization header value in logs.
const RedactedAuthorization = "Bearer [REDACTED]"

// defaultMaxLoggedBody caps the number of body bytes kept for logging.
const defaultMaxLoggedBody = 64 * 1024

// LoggingTransport is an http.RoundTripper that logs outbound agent
// requests and their responses. Request logging captures method, URL,
// headers and body; response logging tees the body while the caller reads
// it and emits one record when the body is closed or exhausted, so
// streamed responses are logged without being buffered up front.
type LoggingTransport struct {
	Base         http.RoundTripper
	Logger       *slog.Logger
	LogRequests  bool
	LogResponses bool
	MaxBody      int
}

// NewHTTPClient returns a client whose transport logs according to the
// flags. A zero timeout means no client-side timeout, which is what long
// streams need.
func NewHTTPClient(timeout time.Duration, logRequests, logResponses bool) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &LoggingTransport{
			LogRequests:  logRequests,
			LogResponses: logResponses,
		},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := t.logger()
	maxBody := t.maxBody()

	if t.LogRequests || debug.Enabled("agent") {
		var body string
		if req.Body != nil && req.Body != http.NoBody {
			data, err := io.ReadAll(req.Body)
			req.Body.Close()
			if err != nil {
				return nil, err
			}
			req.Body = io.NopCloser(bytes.NewReader(data))
			body = debug.Truncate(string(data), maxBody)
		}
		logger.Info("agent request",
			"method", req.Method,
			"url", req.URL.String(),
			"headers", RedactHeaders(req.Header),
			"body", body,
		)
	}

	start := time.Now()
	resp, err := t.base().RoundTrip(req)
	if err != nil {
		debug.Log("agent", "request failed", "url", req.URL.String(), "error", err.Error())
		return nil, err
	}

	if t.LogResponses || debug.Enabled("agent") {
		resp.Body = &loggingBody{
			ReadCloser: resp.Body,
			logger:     logger,
			url:        req.URL.String(),
			resp:       resp,
			start:      start,
			max:        maxBody,
		}
	}
	return resp, nil
}

func (t *LoggingTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *LoggingTransport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func (t *LoggingTransport) maxBody() int {
	if t.MaxBody > 0 {
		return t.MaxBody
	}
	return defaultMaxLoggedBody
}

// RedactHeaders flattens headers for logging with Authorization masked.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if strings.EqualFold(k, "Authorization") {
			out[k] = RedactedAuthorization
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

type loggingBody struct {
	io.ReadCloser
	logger *slog.Logger
	url    string
	resp   *http.Response
	start  time.Time
	max    int

	buf  bytes.Buffer
	once sync.Once
}

func (b *loggingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 && b.buf.Len() < b.max {
		room := b.max - b.buf.Len()
		if room > n {
			room = n
		}
		b.buf.Write(p[:room])
	}
	if err == io.EOF {
		b.emit()
	}
	return n, err
}

func (b *loggingBody) Close() error {
	b.emit()
	return b.ReadCloser.Close()
}

func (b *loggingBody) emit() {
	b.once.Do(func() {
		b.logger.Info("agent response",
			"url", b.url,
			"status", b.resp.StatusCode,
			"duration", time.Since(b.start),
			"headers", RedactHeaders(b.resp.Header),
			"body", b.buf.String(),
		)
	})
}
