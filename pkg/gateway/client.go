package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/pkg/logger"
)

// Client talks to the channel gateway that owns tenant sessions. Requests are
// never retried here: a send is not idempotent, and the scheduler retries on
// the next tick.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

func NewClient(cfg environments.GatewayConfig) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	client := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-gateway-auth-key", cfg.AuthKey)

	return &Client{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
	}
}

// GetChannelStatus asks the gateway for the tenant's channel state. A tenant
// without a session is reported as disconnected.
func (c *Client) GetChannelStatus(ctx context.Context, tenantID string) (*domain.ChannelState, error) {
	var state domain.ChannelState

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&state).
		Get(c.sessionURL(tenantID, "status"))
	if err != nil {
		return nil, transportError(err)
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
	case resp.StatusCode() == http.StatusNotFound:
		return &domain.ChannelState{TenantID: tenantID, Status: domain.ChannelDisconnected}, nil
	default:
		return nil, statusError(resp)
	}

	if state.TenantID == "" {
		state.TenantID = tenantID
	}
	return &state, nil
}

// SendMessage transmits content to destination through the tenant's channel.
func (c *Client) SendMessage(ctx context.Context, tenantID, destination, content string) (*domain.GatewaySendResponse, error) {
	payload := domain.GatewaySendRequest{
		To:      destination,
		Content: content,
	}

	var sendResp domain.GatewaySendResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&sendResp).
		Post(c.sessionURL(tenantID, "messages"))

	duration := time.Since(startTime)

	if err != nil {
		return nil, transportError(err)
	}

	logger.Debugf("Gateway send for tenant %s completed in %v (status: %d)", tenantID, duration, resp.StatusCode())

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return &sendResp, nil
	default:
		return nil, statusError(resp)
	}
}

func (c *Client) GetURL() string {
	return c.baseURL
}

func (c *Client) sessionURL(tenantID, action string) string {
	return fmt.Sprintf("%s/sessions/%s/%s", c.baseURL, url.PathEscape(tenantID), action)
}

// transportError classifies a failed round trip. A timeout while dialing means
// the request never left the process, so it counts as unreachable; only a
// timeout after the connection is up is ambiguous about delivery.
func transportError(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &domain.GatewayError{Kind: domain.GatewayUnreachable, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.GatewayError{Kind: domain.GatewayTimeout, Err: err}
	}
	return &domain.GatewayError{Kind: domain.GatewayUnreachable, Err: err}
}

func statusError(resp *resty.Response) error {
	code := resp.StatusCode()
	err := fmt.Errorf("unexpected status code %d, body: %s", code, resp.String())

	var kind domain.GatewayErrorKind
	switch {
	case code == http.StatusConflict, code == http.StatusNotFound:
		kind = domain.GatewayChannelNotReady
	case code >= http.StatusInternalServerError:
		kind = domain.GatewayProvider
	default:
		kind = domain.GatewayValidation
	}

	return &domain.GatewayError{Kind: kind, StatusCode: code, Err: err}
}
