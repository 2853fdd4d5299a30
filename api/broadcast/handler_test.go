package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/teamcast/api"
	"github.com/kilianp07/teamcast/core/broadcast"
	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/core/transport"
)

type recorder struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]bool
	panic  bool
	called chan struct{}
}

func (r *recorder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) send(_ context.Context, to, _ string) (transport.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panic {
		panic("transport exploded")
	}
	r.calls = append(r.calls, to)
	if r.called != nil {
		r.called <- struct{}{}
	}
	if r.fail[to] {
		return nil, errors.New("number not on WhatsApp")
	}
	return json.RawMessage(`{"messages":[{"id":"wamid.` + to + `"}]}`), nil
}

func newServer(t *testing.T, rec *recorder) *httptest.Server {
	return newThrottledServer(t, rec, 0, nil)
}

func newThrottledServer(t *testing.T, rec *recorder, interval time.Duration, stop context.Context) *httptest.Server {
	t.Helper()
	svc := broadcast.NewService(broadcast.Deps{
		Dispatcher: broadcast.NewDispatcher(transport.Func(rec.send), broadcast.DispatcherConfig{Interval: interval}, nil),
	})
	h := NewHandler(svc, nil)
	if stop != nil {
		h.StopOn(stop)
	}
	srv := httptest.NewServer(api.NewRouter(api.Routes{Send: h.Send, Preview: h.Preview}, "", nil))
	t.Cleanup(srv.Close)
	return srv
}

const roster = `[
  {"id":"anna","name":"Anna","group":"Housekeeping","phone":"+49 151 1"},
  {"id":"bob","name":"Bob","group":"Geschäftsführung","phone":"+49 151 2"}
]`

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestSendScenarioC(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"491511": true}}
	srv := newServer(t, rec)

	resp, out := post(t, srv, "/api/send", `{"senderId":"bob","message":" Zimmer 12 bitte ","targetType":"Gruppe","targetGroup":"Housekeeping","participants":`+roster+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["totalRecipients"])
	assert.EqualValues(t, 1, out["deliveredCount"])
	assert.EqualValues(t, 1, out["failedCount"])
	assert.NotEmpty(t, out["broadcastId"])

	outcomes := out["outcomes"].([]any)
	first := outcomes[0].(map[string]any)
	assert.Equal(t, false, first["delivered"])
	assert.Equal(t, "number not on WhatsApp", first["detail"])
	assert.Equal(t, map[string]any{"id": "anna", "name": "Anna", "group": "Housekeeping"}, first["recipient"])
	second := outcomes[1].(map[string]any)
	assert.Equal(t, true, second["delivered"])
	assert.Equal(t, []string{"491511", "491512"}, rec.calls)
}

func TestSendRejections(t *testing.T) {
	var many []string
	for i := 0; i < 50; i++ {
		many = append(many, fmt.Sprintf(`{"id":"%d","name":"P%d","phone":"1"}`, i, i))
	}
	cases := []struct {
		name   string
		body   string
		reason model.Reason
	}{
		{"empty message", `{"message":"   ","targetType":"ALL","participants":` + roster + `}`, model.ReasonEmptyMessage},
		{"missing participants", `{"message":"hi","targetType":"ALL"}`, model.ReasonMissingParticipants},
		{"too many", `{"message":"hi","targetType":"ALL","participants":[` + strings.Join(many, ",") + `]}`, model.ReasonTooManyParticipants},
		{"unknown target", `{"message":"hi","targetType":"SOME","participants":` + roster + `}`, model.ReasonInvalidTarget},
		{"unknown group", `{"message":"hi","targetType":"BY_GROUP","targetGroup":"Küche","participants":` + roster + `}`, model.ReasonInvalidTarget},
		{"no recipients", `{"message":"hi","targetType":"ALL","participants":[]}`, model.ReasonNoRecipients},
		{"malformed", `{"message":`, model.ReasonMalformedBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			srv := newServer(t, rec)
			resp, out := post(t, srv, "/api/send", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, string(tc.reason), out["reason"])
			assert.Empty(t, rec.calls)
		})
	}
}

func TestSendAcceptsLongNames(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	name := strings.Repeat("Anna-Lena ", 40)
	resp, out := post(t, srv, "/api/send", `{"message":"hi","targetType":"ALL","participants":[{"id":"a","name":"`+name+`","phone":"1"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["deliveredCount"])
	recipient := out["outcomes"].([]any)[0].(map[string]any)["recipient"].(map[string]any)
	assert.Equal(t, strings.TrimSpace(name), recipient["name"])
}

func TestSendAllFailedIsOK(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"491511": true, "491512": true}}
	srv := newServer(t, rec)
	resp, out := post(t, srv, "/api/send", `{"message":"hi","targetType":"ALL","participants":`+roster+`}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["failedCount"])
}

func TestSendUnexpected(t *testing.T) {
	rec := &recorder{panic: true}
	srv := newServer(t, rec)
	resp, out := post(t, srv, "/api/send", `{"message":"hi","targetType":"ALL","participants":`+roster+`}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "unexpected error", "reason": "unexpected"}, out)
}

func TestPreview(t *testing.T) {
	srv := newServer(t, &recorder{})
	resp, out := post(t, srv, "/api/preview", `{"targetType":"BY_GROUP","targetGroup":"technik","participants":[
		{"id":"1","name":"Tom","group":"Technik"},
		{"id":"2","name":"Eva","group":"Geschäftsführung","phone":"12"},
		{"id":"3","name":"Eva","group":"Technik","phone":"13"}
	]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["count"])
	recipients := out["recipients"].([]any)
	assert.Equal(t, "Tom", recipients[0].(map[string]any)["name"])
	assert.Equal(t, false, recipients[0].(map[string]any)["reachable"])
	assert.Equal(t, "3", recipients[1].(map[string]any)["id"])
	assert.NotContains(t, recipients[1].(map[string]any), "phone")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newServer(t, &recorder{})
	resp, err := http.Get(srv.URL + "/api/send")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

const technikTeam = `{"message":"Heizung fällt aus","targetType":"ALL","participants":[
  {"id":"t1","name":"Tim","group":"Technik","phone":"1"},
  {"id":"t2","name":"Tom","group":"Technik","phone":"2"},
  {"id":"t3","name":"Tina","group":"Technik","phone":"3"}]}`

func waitCalled(t *testing.T, rec *recorder) {
	t.Helper()
	select {
	case <-rec.called:
	case <-time.After(5 * time.Second):
		t.Fatal("transport was never called")
	}
}

func TestSendContinuesAfterClientDisconnect(t *testing.T) {
	rec := &recorder{called: make(chan struct{}, 8)}
	srv := newThrottledServer(t, rec, 200*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/send", strings.NewReader(technikTeam))
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			_ = resp.Body.Close()
		}
	}()

	waitCalled(t, rec)
	cancel()
	<-done

	assert.Eventually(t, func() bool { return len(rec.sent()) == 3 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"1", "2", "3"}, rec.sent())
}

func TestSendStopsOnShutdown(t *testing.T) {
	rec := &recorder{called: make(chan struct{}, 8)}
	stop, shutdown := context.WithCancel(context.Background())
	defer shutdown()
	srv := newThrottledServer(t, rec, 200*time.Millisecond, stop)

	type reply struct {
		resp *http.Response
		out  map[string]any
	}
	replies := make(chan reply, 1)
	go func() {
		resp, out := post(t, srv, "/api/send", technikTeam)
		replies <- reply{resp, out}
	}()

	waitCalled(t, rec)
	shutdown()

	r := <-replies
	assert.Equal(t, http.StatusOK, r.resp.StatusCode)
	assert.EqualValues(t, 3, r.out["totalRecipients"])
	assert.EqualValues(t, 1, r.out["deliveredCount"])
	assert.EqualValues(t, 2, r.out["failedCount"])
	assert.Equal(t, []string{"1"}, rec.sent())
}
