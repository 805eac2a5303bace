package connectors

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"challenge-reward-system/models"

	"github.com/google/uuid"
)

var ErrMockFailure = errors.New("mock connector failure")

// MockConnector fabricates accounts after an optional delay. Setting Fail
// makes every connect return ErrMockFailure. WalletAddress pins the address
// a wallet connect returns; otherwise a random one is made up.
type MockConnector struct {
	Delay         time.Duration
	Fail          bool
	WalletAddress string
}

func NewMockConnector(delay time.Duration) *MockConnector {
	return &MockConnector{Delay: delay}
}

func (m *MockConnector) wait(ctx context.Context) error {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Fail {
		return ErrMockFailure
	}
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// mockUserID is stable per email so a returning user finds their progress.
func mockUserID(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return "user_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String()
}

func (m *MockConnector) ConnectWallet(ctx context.Context) (*WalletAccount, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.WalletAddress != "" {
		return &WalletAccount{Address: m.WalletAddress}, nil
	}
	return &WalletAccount{Address: "0x" + randomHex(20)}, nil
}

func (m *MockConnector) ConnectSocial(ctx context.Context, provider models.SocialProvider) (*Account, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("unsupported social provider %q", provider)
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	email := fmt.Sprintf("user@%s.com", provider)
	return &Account{
		ExternalUserID: mockUserID(email),
		Email:          email,
		Name:           provider.Title() + " User",
	}, nil
}

func (m *MockConnector) ConnectEmail(ctx context.Context, email, password string) (*Account, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	name, _, _ := strings.Cut(email, "@")
	return &Account{
		ExternalUserID: mockUserID(email),
		Email:          email,
		Name:           name,
	}, nil
}

func (m *MockConnector) Disconnect(ctx context.Context) error {
	return nil
}
