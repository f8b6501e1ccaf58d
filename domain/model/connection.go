package model

import "time"

type ConnectionStatus string

const (
	ConnectionStatusActive  ConnectionStatus = "active"
	ConnectionStatusExpired ConnectionStatus = "expired"
	ConnectionStatusRevoked ConnectionStatus = "revoked"
	ConnectionStatusError   ConnectionStatus = "error"
)

// SocialConnection stores one (user, platform) credential pair. AccessToken is
// encrypted at rest; the repository seals/opens it transparently. Workers treat
// the token as read-only; only the connection guard flips Status.
type SocialConnection struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Platform       Platform         `json:"platform"`
	AccessToken    string           `json:"-"`
	AccountID      string           `json:"account_id"`
	AccountName    *string          `json:"account_name,omitempty"`
	TokenExpiresAt *time.Time       `json:"token_expires_at,omitempty"`
	Status         ConnectionStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
