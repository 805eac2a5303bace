// Package connectors talks to the identity providers behind the three login
// methods. Mock and HTTP implementations share one interface and are picked
// when the application is assembled.
package connectors

import (
	"context"

	"challenge-reward-system/models"
)

// WalletAccount is what a wallet connect yields. UserID is empty when the
// provider has no account id of its own; the address stands in for it.
type WalletAccount struct {
	Address string
	UserID  string
	Token   string
}

// Account is what a social or email connect yields.
type Account struct {
	ExternalUserID string
	Email          string
	Name           string
	Token          string
}

type Connector interface {
	ConnectWallet(ctx context.Context) (*WalletAccount, error)
	ConnectSocial(ctx context.Context, provider models.SocialProvider) (*Account, error)
	ConnectEmail(ctx context.Context, email, password string) (*Account, error)
	Disconnect(ctx context.Context) error
}
