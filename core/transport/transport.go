// Package transport defines the contract between the dispatcher and an
// external delivery provider.
package transport

import (
	"context"
	"encoding/json"
)

// Response is the provider payload returned by a successful send. It is kept
// opaque and copied verbatim into the broadcast report.
type Response = json.RawMessage

// Transport delivers one text message to one destination. Any returned error
// marks the delivery as failed for that destination only.
type Transport interface {
	Send(ctx context.Context, to, body string) (Response, error)
}

// Named is implemented by transports that report a provider name for logs and
// metrics.
type Named interface {
	Name() string
}

// NameOf returns the provider name of t or "unknown".
func NameOf(t Transport) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// Closer is implemented by transports holding connections.
type Closer interface {
	Close() error
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, to, body string) (Response, error)

func (f Func) Send(ctx context.Context, to, body string) (Response, error) { return f(ctx, to, body) }

// ProviderError is returned by transports when the provider answered with an
// error payload. Payload is reported as outcome detail.
type ProviderError struct {
	Provider string
	Status   int
	Payload  json.RawMessage
}

func (e *ProviderError) Error() string {
	if len(e.Payload) > 0 {
		return e.Provider + " error: " + string(e.Payload)
	}
	return e.Provider + " error"
}
