package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/teamcast/auth"
	coretransport "github.com/kilianp07/teamcast/core/transport"
)

func TestWhatsAppSend(t *testing.T) {
	var got whatsAppMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	wa, err := NewWhatsApp(WhatsAppConfig{BaseURL: srv.URL, PhoneNumberID: "12345", AccessToken: "secret"})
	require.NoError(t, err)
	resp, err := wa.Send(context.Background(), "4915112345", "Hallo")
	require.NoError(t, err)
	assert.JSONEq(t, `{"messages":[{"id":"wamid.1"}]}`, string(resp))
	assert.Equal(t, whatsAppMessage{MessagingProduct: "whatsapp", To: "4915112345", Type: "text", Text: whatsAppText{Body: "Hallo"}}, got)
}

func TestWhatsAppProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient","code":131030}}`))
	}))
	defer srv.Close()

	wa, err := NewWhatsApp(WhatsAppConfig{BaseURL: srv.URL, PhoneNumberID: "1", AccessToken: "t"})
	require.NoError(t, err)
	_, err = wa.Send(context.Background(), "1", "x")
	var pe *coretransport.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.JSONEq(t, `{"error":{"message":"invalid recipient","code":131030}}`, string(pe.Payload))
}

func TestWhatsAppOAuth(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"oauth-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer oauth-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer apiSrv.Close()

	wa, err := NewWhatsApp(WhatsAppConfig{
		BaseURL:       apiSrv.URL,
		PhoneNumberID: "1",
		OAuth:         auth.Conf{ClientID: "id", ClientSecret: "s", TokenURL: tokenSrv.URL},
	})
	require.NoError(t, err)
	_, err = wa.Send(context.Background(), "1", "x")
	assert.NoError(t, err)
}

func TestWhatsAppConfigErrors(t *testing.T) {
	_, err := NewWhatsApp(WhatsAppConfig{AccessToken: "t"})
	assert.Error(t, err)
	_, err = NewWhatsApp(WhatsAppConfig{PhoneNumberID: "1"})
	assert.Error(t, err)
}

func TestWhatsAppCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	wa, err := NewWhatsApp(WhatsAppConfig{BaseURL: srv.URL, PhoneNumberID: "1", AccessToken: "t"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = wa.Send(ctx, "1", "x")
	assert.ErrorIs(t, err, context.Canceled)
}
