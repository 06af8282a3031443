package domain

import "time"

// ChannelStatus is the tenant channel state reported by the gateway.
type ChannelStatus string

const (
	ChannelConnected             ChannelStatus = "connected"
	ChannelConnecting            ChannelStatus = "connecting"
	ChannelDisconnected          ChannelStatus = "disconnected"
	ChannelAwaitingAuthorization ChannelStatus = "awaiting-authorization"
	ChannelError                 ChannelStatus = "error"
)

type ChannelState struct {
	TenantID  string        `json:"tenantId"`
	Status    ChannelStatus `json:"status"`
	Phone     string        `json:"phone,omitempty"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

func (s ChannelState) Connected() bool {
	return s.Status == ChannelConnected
}

type GatewaySendRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type GatewaySendResponse struct {
	Message           string `json:"message,omitempty"`
	ProviderMessageID string `json:"messageId"`
}
