package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"challenge-reward-system/models"
	"challenge-reward-system/utils"
)

// SocialCredential is what a social provider's sign-in flow hands back.
type SocialCredential struct {
	Token string
	Email string
	Name  string
}

// SocialTokenSource runs the provider sign-in flow.
type SocialTokenSource interface {
	SocialToken(ctx context.Context, provider models.SocialProvider) (*SocialCredential, error)
}

// SocialTokenFunc adapts a function to SocialTokenSource.
type SocialTokenFunc func(ctx context.Context, provider models.SocialProvider) (*SocialCredential, error)

func (f SocialTokenFunc) SocialToken(ctx context.Context, provider models.SocialProvider) (*SocialCredential, error) {
	return f(ctx, provider)
}

var (
	ErrNoWallet      = errors.New("no wallet configured")
	ErrNoSocialFlow  = errors.New("no social sign-in configured")
	ErrNotRegistered = errors.New("account not registered")
)

// HTTPConnector authenticates against the backend's /api/auth routes.
type HTTPConnector struct {
	BaseURL string
	Client  *http.Client
	Wallet  WalletSigner
	Social  SocialTokenSource

	mu    sync.Mutex
	token string
}

func NewHTTPConnector(baseURL string, client *http.Client, wallet WalletSigner, social SocialTokenSource) *HTTPConnector {
	return &HTTPConnector{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Wallet:  wallet,
		Social:  social,
	}
}

type authPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *HTTPConnector) post(ctx context.Context, path string, body any) (*authPayload, error) {
	var out authPayload
	if err := utils.DoJSON(ctx, h.Client, http.MethodPost, h.BaseURL+path, "", body, &out); err != nil {
		return nil, err
	}
	h.UseToken(out.Token)
	return &out, nil
}

func toAccount(p *authPayload) *Account {
	return &Account{
		ExternalUserID: p.User.ID,
		Email:          p.User.Email,
		Name:           p.User.Name,
		Token:          p.Token,
	}
}

// WalletLoginMessage is the text a wallet signs to log in.
func WalletLoginMessage(address string, at time.Time) string {
	return fmt.Sprintf("Sign in to challenge rewards\naddress: %s\nissued: %s", address, at.UTC().Format(time.RFC3339))
}

func (h *HTTPConnector) ConnectWallet(ctx context.Context) (*WalletAccount, error) {
	if h.Wallet == nil {
		return nil, ErrNoWallet
	}
	address, err := h.Wallet.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet address: %w", err)
	}
	message := WalletLoginMessage(address, time.Now())
	signature, err := h.Wallet.SignMessage(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("wallet signature: %w", err)
	}

	p, err := h.post(ctx, "/api/auth/wallet", map[string]string{
		"address":    address,
		"signature":  signature,
		"message":    message,
		"public_key": h.Wallet.PublicKey(),
	})
	if err != nil {
		return nil, err
	}
	return &WalletAccount{Address: p.User.WalletAddress, UserID: p.User.ID, Token: p.Token}, nil
}

func (h *HTTPConnector) ConnectSocial(ctx context.Context, provider models.SocialProvider) (*Account, error) {
	if h.Social == nil {
		return nil, ErrNoSocialFlow
	}
	cred, err := h.Social.SocialToken(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("%s sign-in: %w", provider, err)
	}
	p, err := h.post(ctx, "/api/auth/social", map[string]string{
		"provider": string(provider),
		"token":    cred.Token,
		"email":    cred.Email,
		"name":     cred.Name,
	})
	if err != nil {
		return nil, err
	}
	return toAccount(p), nil
}

func (h *HTTPConnector) ConnectEmail(ctx context.Context, email, password string) (*Account, error) {
	p, err := h.post(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		if utils.StatusOf(err) == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrNotRegistered, err)
		}
		return nil, err
	}
	return toAccount(p), nil
}

// Register creates an email account and signs it in.
func (h *HTTPConnector) Register(ctx context.Context, email, password, name string) (*Account, error) {
	p, err := h.post(ctx, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
	if err != nil {
		return nil, err
	}
	return toAccount(p), nil
}

// Disconnect tells the backend the token is done with. Failures are ignored
// by callers; the local session is dropped regardless.
func (h *HTTPConnector) Disconnect(ctx context.Context) error {
	h.mu.Lock()
	token := h.token
	h.token = ""
	h.mu.Unlock()
	if token == "" {
		return nil
	}
	return utils.DoJSON[struct{}](ctx, h.Client, http.MethodPost, h.BaseURL+"/api/auth/logout", token, nil, nil)
}

// UseToken restores the bearer token of a persisted session.
func (h *HTTPConnector) UseToken(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}
