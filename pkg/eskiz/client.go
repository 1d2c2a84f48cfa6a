package eskiz

import (
	"context"
	"fmt"
	"net/http"

	eskizapi "github.com/iota-uz/eskiz"
)

// Client sends SMS through the Eskiz gateway, transparently refreshing the
// access token on first use and on 401 responses.
type Client struct {
	api       *eskizapi.APIClient
	cfg       Config
	refresher *tokenRefresher
}

func NewClient(cfg Config) *Client {
	api := eskizapi.NewAPIClient(eskizapi.NewConfiguration())
	return &Client{
		api: api,
		cfg: cfg,
		refresher: &tokenRefresher{
			client: api,
			cfg:    cfg,
		},
	}
}

func (c *Client) SendSMS(ctx context.Context, phone, message string) error {
	token := c.refresher.CurrentToken()
	if token == "" {
		refreshed, err := c.refresher.RefreshToken(ctx)
		if err != nil {
			return fmt.Errorf("eskiz: obtain token: %w", err)
		}
		token = refreshed
	}

	httpResp, err := c.send(ctx, token, phone, message)
	if httpResp != nil && httpResp.StatusCode == http.StatusUnauthorized {
		token, err = c.refresher.RefreshToken(ctx)
		if err != nil {
			return fmt.Errorf("eskiz: refresh token: %w", err)
		}
		httpResp, err = c.send(ctx, token, phone, message)
	}
	if err != nil {
		return fmt.Errorf("eskiz: send sms: %w", err)
	}
	if httpResp != nil && httpResp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("eskiz: send sms: unexpected status %d", httpResp.StatusCode)
	}
	return nil
}

func (c *Client) send(ctx context.Context, token, phone, message string) (*http.Response, error) {
	authCtx := context.WithValue(ctx, eskizapi.ContextAccessToken, token)
	_, httpResp, err := c.api.DefaultApi.
		SendSms(authCtx).
		MobilePhone(phone).
		Message(message).
		From(c.cfg.Sender()).
		Execute()
	if httpResp != nil {
		defer func() { _ = httpResp.Body.Close() }()
	}
	return httpResp, err
}
