package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"challenge-reward-system/connectors"
	"challenge-reward-system/models"
	"challenge-reward-system/persistence"

	"go.uber.org/zap"
)

type AuthState string

const (
	Unauthenticated AuthState = "unauthenticated"
	Connecting      AuthState = "connecting"
	Authenticated   AuthState = "authenticated"
)

// AuthSnapshot is what auth-state subscribers receive. Identity is nil
// unless State is Authenticated.
type AuthSnapshot struct {
	State    AuthState
	Identity *models.Identity
}

// SessionKey is where the current session lives in persistence.
const SessionKey = "session"

// MinPasswordLength is the shortest password an email login accepts.
const MinPasswordLength = 8

// SessionStore owns the signed-in identity. At most one connect runs at a
// time; a second one fails fast with ErrBusy.
type SessionStore struct {
	persist   persistence.Persistence
	connector connectors.Connector
	logger    *zap.Logger

	MinPasswordLength int
	Now               func() time.Time

	connecting atomic.Bool

	mu         sync.RWMutex
	state      AuthState
	session    *models.Session
	generation uint64

	auth *Observable[AuthSnapshot]
}

func NewSessionStore(persist persistence.Persistence, connector connectors.Connector, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		persist:           persist,
		connector:         connector,
		logger:            logger.Named("session"),
		MinPasswordLength: MinPasswordLength,
		Now:               time.Now,
		state:             Unauthenticated,
		auth:              NewObservable(AuthSnapshot{State: Unauthenticated}),
	}
}

// Initialize restores a persisted session. A missing, unreadable or corrupt
// session leaves the store Unauthenticated; the cause is logged, not returned.
func (s *SessionStore) Initialize(ctx context.Context) AuthState {
	if !s.connecting.CompareAndSwap(false, true) {
		s.logger.Warn("initialize skipped, a sign-in is in progress")
		return s.State()
	}
	defer s.connecting.Store(false)

	session, err := s.load(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			s.logger.Debug("no stored session")
		} else {
			s.logger.Warn("⚠️ stored session ignored", zap.Error(err))
		}
		s.mu.Lock()
		s.session = nil
		s.setStateLocked(Unauthenticated)
		s.mu.Unlock()
		return Unauthenticated
	}

	s.mu.Lock()
	s.session = session
	s.setStateLocked(Authenticated)
	s.mu.Unlock()
	s.logger.Info("✅ session restored",
		zap.String("user_id", session.Identity.ID),
		zap.Stringer("method", session.Identity.Method))
	return Authenticated
}

func (s *SessionStore) load(ctx context.Context) (*models.Session, error) {
	raw, err := s.persist.Get(ctx, SessionKey)
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("corrupt session: %w", err)
	}
	if err := session.Identity.Validate(); err != nil {
		return nil, err
	}
	return &session, nil
}

// ConnectWallet signs in with the wallet the connector provides.
func (s *SessionStore) ConnectWallet(ctx context.Context) (*models.Identity, error) {
	return s.connect(ctx, models.WalletMethod(), func(ctx context.Context) (models.Identity, string, error) {
		acct, err := s.connector.ConnectWallet(ctx)
		if err != nil {
			return models.Identity{}, "", err
		}
		id := acct.UserID
		if id == "" {
			id = acct.Address
		}
		return models.Identity{
			ID:      id,
			Method:  models.WalletMethod(),
			Address: acct.Address,
		}, acct.Token, nil
	})
}

// ConnectSocial signs in through google, apple or facebook.
func (s *SessionStore) ConnectSocial(ctx context.Context, provider models.SocialProvider) (*models.Identity, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrInvalidInput, provider)
	}
	method := models.SocialMethod(provider)
	return s.connect(ctx, method, func(ctx context.Context) (models.Identity, string, error) {
		acct, err := s.connector.ConnectSocial(ctx, provider)
		if err != nil {
			return models.Identity{}, "", err
		}
		return models.Identity{
			ID:     acct.ExternalUserID,
			Method: method,
			Email:  acct.Email,
			Name:   acct.Name,
		}, acct.Token, nil
	})
}

// ConnectEmail signs in with email and password. Input is checked before
// any state change.
func (s *SessionStore) ConnectEmail(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if len(password) < s.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, s.MinPasswordLength)
	}
	return s.connect(ctx, models.EmailMethod(), func(ctx context.Context) (models.Identity, string, error) {
		acct, err := s.connector.ConnectEmail(ctx, email, password)
		if err != nil {
			return models.Identity{}, "", err
		}
		addr := acct.Email
		if addr == "" {
			addr = email
		}
		return models.Identity{
			ID:     acct.ExternalUserID,
			Method: models.EmailMethod(),
			Email:  addr,
			Name:   acct.Name,
		}, acct.Token, nil
	})
}

type dialFunc func(ctx context.Context) (models.Identity, string, error)

func (s *SessionStore) connect(ctx context.Context, method models.LoginMethod, dial dialFunc) (*models.Identity, error) {
	if !s.connecting.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.connecting.Store(false)

	s.mu.Lock()
	if s.state == Authenticated {
		s.mu.Unlock()
		return nil, ErrAlreadyAuthenticated
	}
	gen := s.generation
	s.setStateLocked(Connecting)
	s.mu.Unlock()

	log := s.logger.With(zap.Stringer("method", method))
	log.Info("🔐 connecting")

	identity, token, err := dial(ctx)
	if err == nil && ctx.Err() == nil {
		err = identity.Validate()
	}
	if err != nil || ctx.Err() != nil {
		s.rollback(gen)
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("connect cancelled")
			return nil, fmt.Errorf("sign-in cancelled: %w", ctxErr)
		}
		log.Warn("❌ connect failed", zap.Error(err))
		return nil, fmt.Errorf("%w: could not sign in with %s", ErrConnectionFailed, method.Kind)
	}

	session := models.Session{Identity: identity, Token: token, IssuedAt: s.Now().UTC()}
	persistErr := s.save(context.WithoutCancel(ctx), session)

	s.mu.Lock()
	if s.generation != gen {
		// Disconnect ran while we were dialing.
		s.mu.Unlock()
		log.Info("connect superseded by disconnect")
		if persistErr == nil {
			_ = s.persist.Delete(context.WithoutCancel(ctx), SessionKey)
		}
		return nil, fmt.Errorf("%w: sign-in was interrupted", ErrConnectionFailed)
	}
	s.session = &session
	s.setStateLocked(Authenticated)
	s.mu.Unlock()

	log.Info("✅ connected", zap.String("user_id", identity.ID))
	if persistErr != nil {
		log.Error("failed to persist session", zap.Error(persistErr))
		return &identity, fmt.Errorf("%w: you will need to sign in again next time", ErrPersistenceFailed)
	}
	return &identity, nil
}

func (s *SessionStore) save(ctx context.Context, session models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.persist.Set(ctx, SessionKey, raw)
}

func (s *SessionStore) rollback(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.setStateLocked(Unauthenticated)
	}
}

// Disconnect signs out. It is safe to call when already signed out.
func (s *SessionStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	wasSignedIn := s.state != Unauthenticated
	s.generation++
	s.session = nil
	s.setStateLocked(Unauthenticated)
	s.mu.Unlock()

	if wasSignedIn {
		if err := s.connector.Disconnect(ctx); err != nil {
			s.logger.Warn("connector disconnect failed", zap.Error(err))
		}
	}
	if err := s.persist.Delete(ctx, SessionKey); err != nil {
		s.logger.Error("failed to delete session", zap.Error(err))
		return fmt.Errorf("%w: stored session could not be removed", ErrPersistenceFailed)
	}
	if wasSignedIn {
		s.logger.Info("👋 disconnected")
	}
	return nil
}

// setStateLocked must be called with s.mu held.
func (s *SessionStore) setStateLocked(state AuthState) {
	s.state = state
	snap := AuthSnapshot{State: state}
	if state == Authenticated && s.session != nil {
		id := s.session.Identity
		snap.Identity = &id
	}
	s.auth.publish(snap)
}

func (s *SessionStore) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the signed-in identity, or nil.
func (s *SessionStore) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.state != Authenticated {
		return nil
	}
	id := s.session.Identity
	return &id
}

// Token returns the backend token of the current session, or "".
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// AuthState exposes auth-state changes.
func (s *SessionStore) AuthState() *Observable[AuthSnapshot] {
	return s.auth
}
