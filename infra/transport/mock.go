package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	coretransport "github.com/kilianp07/teamcast/core/transport"
)

// MockConfig configures the in-memory transport.
type MockConfig struct {
	// Fail lists destinations that are rejected.
	Fail []string `json:"fail"`
}

// SentMessage is one message accepted by Mock.
type SentMessage struct {
	To   string
	Body string
}

// Mock records messages in memory. It is used for dry runs and tests.
type Mock struct {
	mu   sync.Mutex
	sent []SentMessage
	fail map[string]bool
}

// NewMock creates a Mock failing for the destinations in cfg.Fail.
func NewMock(cfg MockConfig) *Mock {
	m := &Mock{fail: make(map[string]bool, len(cfg.Fail))}
	for _, f := range cfg.Fail {
		m.fail[f] = true
	}
	return m
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Send(ctx context.Context, to, body string) (coretransport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[to] {
		return nil, &coretransport.ProviderError{
			Provider: m.Name(),
			Payload:  json.RawMessage(fmt.Sprintf(`{"error":"destination %s rejected"}`, to)),
		}
	}
	m.sent = append(m.sent, SentMessage{To: to, Body: body})
	return json.RawMessage(fmt.Sprintf(`{"id":"mock-%d"}`, len(m.sent))), nil
}

// Sent returns a copy of the accepted messages.
func (m *Mock) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}
