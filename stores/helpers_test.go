package stores

import (
	"context"
	"errors"
	"sync/atomic"

	"challenge-reward-system/connectors"
	"challenge-reward-system/models"
	"challenge-reward-system/persistence"

	"github.com/stretchr/testify/mock"
)

const testWallet = "0xABCD000000000000000000000000000000001234"

type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) ConnectWallet(ctx context.Context) (*connectors.WalletAccount, error) {
	args := m.Called(ctx)
	acct, _ := args.Get(0).(*connectors.WalletAccount)
	return acct, args.Error(1)
}

func (m *MockConnector) ConnectSocial(ctx context.Context, provider models.SocialProvider) (*connectors.Account, error) {
	args := m.Called(ctx, provider)
	acct, _ := args.Get(0).(*connectors.Account)
	return acct, args.Error(1)
}

func (m *MockConnector) ConnectEmail(ctx context.Context, email, password string) (*connectors.Account, error) {
	args := m.Called(ctx, email, password)
	acct, _ := args.Get(0).(*connectors.Account)
	return acct, args.Error(1)
}

func (m *MockConnector) Disconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var errDisk = errors.New("disk full")

// flakyStore wraps a MemoryStore and fails the operations that are switched on.
type flakyStore struct {
	*persistence.MemoryStore
	failGet, failSet, failDelete atomic.Bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: persistence.NewMemoryStore()}
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet.Load() {
		return nil, errDisk
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet.Load() {
		return errDisk
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete.Load() {
		return errDisk
	}
	return f.MemoryStore.Delete(ctx, key)
}
