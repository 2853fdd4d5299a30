package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/core/transport"
)

func TestDispatchScenarioC(t *testing.T) {
	tr := newFakeTransport()
	tr.fail["491"] = errRejected
	d := NewDispatcher(tr, DispatcherConfig{}, nil)

	outcomes, err := d.Dispatch(context.Background(), "  Hallo Team  ", []model.Participant{anna(), bob()})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "anna", outcomes[0].Recipient.ID)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, errRejected)
	assert.JSONEq(t, `"recipient rejected"`, string(outcomes[0].Detail))

	assert.Equal(t, "bob", outcomes[1].Recipient.ID)
	assert.True(t, outcomes[1].Delivered())
	assert.JSONEq(t, `{"messages":[{"id":"wamid.492"}]}`, string(outcomes[1].Detail))

	assert.Equal(t, []call{{To: "491", Body: "Hallo Team"}, {To: "492", Body: "Hallo Team"}}, tr.Calls())

	sum := Aggregate(outcomes)
	assert.Equal(t, 2, sum.TotalRecipients)
	assert.Equal(t, 1, sum.DeliveredCount)
	assert.Equal(t, 1, sum.FailedCount)
}

func TestDispatchRejectsEmptyInput(t *testing.T) {
	tr := newFakeTransport()
	d := NewDispatcher(tr, DispatcherConfig{}, nil)

	_, err := d.Dispatch(context.Background(), " \n\t ", []model.Participant{anna()})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, model.ReasonEmptyMessage, model.ReasonOf(err))

	_, err = d.Dispatch(context.Background(), "hi", nil)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, model.ReasonNoRecipients, model.ReasonOf(err))

	assert.Empty(t, tr.Calls())
}

func TestDispatchKeepsOrderAndThrottles(t *testing.T) {
	tr := newFakeTransport()
	var recipients []model.Participant
	for _, ph := range []string{"1", "2", "3", "4"} {
		recipients = append(recipients, model.Participant{ID: ph, Name: "P" + ph, Group: model.GroupTechnik, Phone: ph})
	}
	tr.fail["2"] = errRejected
	var hooked []string
	d := NewDispatcher(tr, DispatcherConfig{Interval: 10 * time.Millisecond}, nil)

	start := time.Now()
	outcomes, err := d.DispatchNotify(context.Background(), "x", recipients, func(o Outcome) {
		hooked = append(hooked, o.Recipient.ID)
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	for i, o := range outcomes {
		assert.Equal(t, recipients[i].ID, o.Recipient.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, hooked)
	assert.Len(t, tr.Calls(), 4)
}

func TestDispatchProviderErrorDetail(t *testing.T) {
	tr := transport.Func(func(context.Context, string, string) (transport.Response, error) {
		return nil, &transport.ProviderError{Provider: "whatsapp", Status: 400, Payload: json.RawMessage(`{"error":{"code":131030}}`)}
	})
	d := NewDispatcher(tr, DispatcherConfig{}, nil)
	outcomes, err := d.Dispatch(context.Background(), "x", []model.Participant{anna()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":131030}}`, string(outcomes[0].Detail))
}

func TestDispatchQuotesNonJSONResponse(t *testing.T) {
	tr := transport.Func(func(context.Context, string, string) (transport.Response, error) {
		return transport.Response("accepted"), nil
	})
	d := NewDispatcher(tr, DispatcherConfig{}, nil)
	outcomes, err := d.Dispatch(context.Background(), "x", []model.Participant{anna()})
	require.NoError(t, err)
	assert.JSONEq(t, `"accepted"`, string(outcomes[0].Detail))
}

func TestDispatchPhonelessRecipientFails(t *testing.T) {
	tr := newFakeTransport()
	d := NewDispatcher(tr, DispatcherConfig{}, nil)
	p := anna()
	p.Phone = ""
	outcomes, err := d.Dispatch(context.Background(), "x", []model.Participant{p, bob()})
	require.NoError(t, err)
	assert.ErrorIs(t, outcomes[0].Err, ErrNoPhone)
	assert.True(t, outcomes[1].Delivered())
	assert.Len(t, tr.Calls(), 1)
}

func TestDispatchCallTimeout(t *testing.T) {
	tr := transport.Func(func(ctx context.Context, _, _ string) (transport.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d := NewDispatcher(tr, DispatcherConfig{CallTimeout: 20 * time.Millisecond}, nil)
	outcomes, err := d.Dispatch(context.Background(), "x", []model.Participant{anna(), bob()})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, errors.Is(o.Err, context.DeadlineExceeded))
	}
}

func TestDispatchCanceledMarksRemainingFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := transport.Func(func(context.Context, string, string) (transport.Response, error) {
		cancel()
		return json.RawMessage(`{}`), nil
	})
	d := NewDispatcher(tr, DispatcherConfig{Interval: time.Hour}, nil)
	outcomes, err := d.Dispatch(ctx, "x", []model.Participant{anna(), bob()})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Delivered())
	assert.ErrorIs(t, outcomes[1].Err, context.Canceled)
	assert.Zero(t, outcomes[1].Latency)
}

func TestAggregatePreservesOutcomes(t *testing.T) {
	outcomes := []Outcome{
		{Recipient: anna(), Status: StatusDelivered},
		{Recipient: bob(), Status: StatusFailed},
		{Recipient: anna(), Status: StatusFailed},
	}
	sum := Aggregate(outcomes)
	assert.Equal(t, Summary{TotalRecipients: 3, DeliveredCount: 1, FailedCount: 2, Outcomes: outcomes}, sum)
	assert.Equal(t, Summary{}, Aggregate(nil))
}
