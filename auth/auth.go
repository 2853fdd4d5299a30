// Package auth authorizes outgoing provider requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Authorizer sets credentials on an outgoing request.
type Authorizer interface {
	SetAuthHeader(r *http.Request) error
}

// StaticToken is a long-lived bearer token.
type StaticToken string

// SetAuthHeader sets the bearer token.
func (t StaticToken) SetAuthHeader(r *http.Request) error {
	if t == "" {
		return errors.New("empty access token")
	}
	r.Header.Set("Authorization", "Bearer "+string(t))
	return nil
}

// ClientCred obtains and caches tokens through the OAuth2 client
// credentials flow.
type ClientCred struct {
	conf clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{conf: conf.toOauth2Config()}
}

// Token returns the cached token or fetches a new one when it expired.
func (c *ClientCred) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.Valid() {
		return c.token, nil
	}
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return tok, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (c *ClientCred) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// SetAuthHeader sets the Authorization header using the request context for
// the token call.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	tok, err := c.Token(r.Context())
	if err != nil {
		return err
	}
	tok.SetAuthHeader(r)
	return nil
}

// New returns ClientCred when conf is enabled, else the static token.
func New(conf Conf, token string) (Authorizer, error) {
	if conf.Enabled() {
		return NewClientCred(conf), nil
	}
	if token == "" {
		return nil, errors.New("either access_token or oauth client credentials are required")
	}
	return StaticToken(token), nil
}
