package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/teamcast/core/factory"
	coretransport "github.com/kilianp07/teamcast/core/transport"
)

func TestFactoryTypes(t *testing.T) {
	assert.Equal(t, []string{"mock", "mqtt", "whatsapp"}, Types())
}

func TestFactoryMock(t *testing.T) {
	tr, err := New(factory.ModuleConfig{Type: "mock", Conf: map[string]any{"fail": []any{"2"}}})
	require.NoError(t, err)
	assert.Equal(t, "mock", coretransport.NameOf(tr))

	_, err = tr.Send(context.Background(), "1", "x")
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), "2", "x")
	var pe *coretransport.ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Len(t, tr.(*Mock).Sent(), 1)
}

func TestFactoryWhatsAppDecode(t *testing.T) {
	tr, err := New(factory.ModuleConfig{Type: "whatsapp", Conf: map[string]any{
		"phone_number_id": 12345,
		"access_token":    "t",
		"timeout":         "5s",
	}})
	require.NoError(t, err)
	wa := tr.(*WhatsApp)
	assert.Equal(t, "https://graph.facebook.com/v20.0/12345/messages", wa.endpoint)
	assert.Equal(t, "5s", wa.client.Timeout.String())
}

func TestFactoryUnknown(t *testing.T) {
	_, err := New(factory.ModuleConfig{Type: "sms"})
	assert.ErrorContains(t, err, "unknown transport type")
}
