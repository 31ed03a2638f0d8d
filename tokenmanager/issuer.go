package tokenmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// maxAuthResponseBytes bounds how much of an auth response body is read.
const maxAuthResponseBytes = 1 << 20

// AuthResponse is the JSON document returned by the identity endpoint.
type AuthResponse struct {
	AccessToken      string `json:"access_token"`
	InstanceURL      string `json:"instance_url,omitempty"`
	ID               string `json:"id,omitempty"`
	TokenType        string `json:"token_type"`
	IssuedAt         string `json:"issued_at,omitempty"`
	Signature        string `json:"signature,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Issuer performs single password-grant calls against the identity endpoint.
// It does not retry; see Manager and AsyncManager for the refresh policy.
type Issuer struct {
	cfg   Config
	store *Store
	opts  *options
}

// NewIssuer creates an Issuer that writes every issued token into store.
// Supported options are WithHTTPClient, WithLogger and WithLoggingEnabled.
func NewIssuer(cfg Config, store *Store, opts ...Option) *Issuer {
	return newIssuer(cfg.withDefaults(), store, newOptions(opts))
}

func newIssuer(cfg Config, store *Store, o *options) *Issuer {
	if store == nil {
		store = &Store{}
	}
	return &Issuer{cfg: cfg, store: store, opts: o}
}

// Issue requests a new token, stores it and returns it as "<token_type> <access_token>".
// Any failure is returned as an *AuthError and leaves the store untouched.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	tok, err := i.Exchange(ctx)
	if err != nil {
		return "", err
	}

	bearer := tok.TokenType + " " + tok.AccessToken
	i.store.Set(bearer)
	return bearer, nil
}

// Exchange requests a new token without storing it. The returned token carries
// instance_url, id, issued_at and signature in its Extra values.
func (i *Issuer) Exchange(ctx context.Context) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.cfg.TokenURL(), strings.NewReader(i.formBody()))
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client(ctx).Do(req)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	defer resp.Body.Close()

	var body AuthResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxAuthResponseBytes)).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body is only used for its error fields here; a broken body does not hide the status.
		i.opts.logf("tokenmanager: auth endpoint returned status %d", resp.StatusCode)
		return nil, &AuthError{
			StatusCode:  resp.StatusCode,
			Code:        body.Error,
			Description: body.ErrorDescription,
		}
	}

	switch {
	case decodeErr != nil && !errors.Is(decodeErr, io.EOF):
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	case body.Error != "":
		return nil, &AuthError{StatusCode: resp.StatusCode, Code: body.Error, Description: body.ErrorDescription}
	case body.AccessToken == "":
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: errors.New("response has no access token")}
	}

	tok := &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
	}

	return tok.WithExtra(map[string]any{
		"instance_url": body.InstanceURL,
		"id":           body.ID,
		"issued_at":    body.IssuedAt,
		"signature":    body.Signature,
	}), nil
}

// formBody renders the password-grant form in a fixed field order.
// Only the password is escaped, matching what the identity endpoint expects.
func (i *Issuer) formBody() string {
	var b strings.Builder
	b.WriteString("grant_type=password")
	b.WriteString("&username=")
	b.WriteString(i.cfg.Username)
	b.WriteString("&password=")
	b.WriteString(formEscape(i.cfg.Password))
	b.WriteString("&client_id=")
	b.WriteString(i.cfg.ClientID)
	b.WriteString("&client_secret=")
	b.WriteString(i.cfg.ClientSecret)
	return b.String()
}

// formEncoding turns url.QueryEscape output into application/x-www-form-urlencoded
// as identity endpoints expect it: '*' stays literal and '~' is escaped.
var formEncoding = strings.NewReplacer("%2A", "*", "~", "%7E")

func formEscape(s string) string {
	return formEncoding.Replace(url.QueryEscape(s))
}

// client picks the configured client, then one carried in ctx under
// oauth2.HTTPClient, then http.DefaultClient.
func (i *Issuer) client(ctx context.Context) *http.Client {
	if i.opts.httpClient != nil {
		return i.opts.httpClient
	}
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	return http.DefaultClient
}
