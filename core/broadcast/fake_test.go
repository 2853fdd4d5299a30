package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/core/transport"
)

type call struct {
	To   string
	Body string
}

// fakeTransport records calls and fails for the configured destinations.
type fakeTransport struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
	panic string
}

func newFakeTransport() *fakeTransport { return &fakeTransport{fail: map[string]error{}} }

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(_ context.Context, to, body string) (transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{To: to, Body: body})
	if f.panic == to {
		panic("boom")
	}
	if err, ok := f.fail[to]; ok {
		return nil, err
	}
	return json.RawMessage(`{"messages":[{"id":"wamid.` + to + `"}]}`), nil
}

func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

var errRejected = errors.New("recipient rejected")

func anna() model.Participant {
	return model.Participant{ID: "anna", Name: "Anna", Group: model.GroupHousekeeping, Phone: "491"}
}

func bob() model.Participant {
	return model.Participant{ID: "bob", Name: "Bob", Group: model.GroupManagement, Phone: "492"}
}
