package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoginKind is the family of authentication an Identity came from.
type LoginKind string

const (
	LoginWallet LoginKind = "wallet"
	LoginSocial LoginKind = "social"
	LoginEmail  LoginKind = "email"
)

// SocialProvider names a supported social login.
type SocialProvider string

const (
	ProviderGoogle   SocialProvider = "google"
	ProviderApple    SocialProvider = "apple"
	ProviderFacebook SocialProvider = "facebook"
)

// SocialProviders lists every accepted provider.
var SocialProviders = []SocialProvider{ProviderGoogle, ProviderApple, ProviderFacebook}

// ParseSocialProvider accepts provider names case-insensitively.
func ParseSocialProvider(s string) (SocialProvider, error) {
	p := SocialProvider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unsupported social provider %q", s)
	}
	return p, nil
}

func (p SocialProvider) Valid() bool {
	for _, known := range SocialProviders {
		if p == known {
			return true
		}
	}
	return false
}

// Title returns the provider name for display ("Google").
func (p SocialProvider) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// LoginMethod is the tagged variant wallet | social(provider) | email.
type LoginMethod struct {
	Kind     LoginKind      `json:"kind"`
	Provider SocialProvider `json:"provider,omitempty"`
}

func WalletMethod() LoginMethod { return LoginMethod{Kind: LoginWallet} }
func EmailMethod() LoginMethod  { return LoginMethod{Kind: LoginEmail} }
func SocialMethod(p SocialProvider) LoginMethod {
	return LoginMethod{Kind: LoginSocial, Provider: p}
}

func (m LoginMethod) String() string {
	if m.Kind == LoginSocial {
		return string(m.Kind) + ":" + string(m.Provider)
	}
	return string(m.Kind)
}

var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is the authenticated principal. Address is set only for wallet
// logins, Email only for social and email logins.
type Identity struct {
	ID      string      `json:"id"`
	Method  LoginMethod `json:"method"`
	Address string      `json:"address,omitempty"`
	Email   string      `json:"email,omitempty"`
	Name    string      `json:"name,omitempty"`
}

// DisplayHandle is what the UI shows for the signed-in user.
func (i Identity) DisplayHandle() string {
	switch i.Method.Kind {
	case LoginWallet:
		return i.Address
	case LoginSocial:
		return i.Method.Provider.Title()
	default:
		return i.Email
	}
}

// Identifier is the authoritative handle: address for wallets, email otherwise.
func (i Identity) Identifier() string {
	if i.Method.Kind == LoginWallet {
		return i.Address
	}
	return i.Email
}

// Validate checks that the identity fields agree with its login method.
func (i Identity) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidIdentity)
	}
	switch i.Method.Kind {
	case LoginWallet:
		if i.Address == "" || i.Email != "" {
			return fmt.Errorf("%w: wallet identity needs an address and no email", ErrInvalidIdentity)
		}
	case LoginSocial:
		if !i.Method.Provider.Valid() {
			return fmt.Errorf("%w: unknown provider %q", ErrInvalidIdentity, i.Method.Provider)
		}
		fallthrough
	case LoginEmail:
		if i.Email == "" || i.Address != "" {
			return fmt.Errorf("%w: %s identity needs an email and no address", ErrInvalidIdentity, i.Method.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown login kind %q", ErrInvalidIdentity, i.Method.Kind)
	}
	return nil
}

// Session is the persisted record of a successful connect.
type Session struct {
	Identity Identity  `json:"identity"`
	Token    string    `json:"token,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}
