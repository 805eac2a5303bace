// services/auth_service.go
package services

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"challenge-reward-system/connectors"
	"challenge-reward-system/models"
	"challenge-reward-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength matches what the client checks before sign-in.
const MinPasswordLength = 8

// WalletMessageMaxAge is how old a signed wallet login message may be.
const WalletMessageMaxAge = 10 * time.Minute

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type AuthService struct {
	DB     *gorm.DB
	Tokens *utils.TokenIssuer
	Logger *zap.Logger
	Now    func() time.Time
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{DB: db, Tokens: tokens, Logger: logger.Named("auth"), Now: time.Now}
}

// AuthResult is what every sign-in route answers with.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *AuthService) signIn(c *fiber.Ctx, status int, user *models.User) error {
	now := s.Now().UTC()
	user.LastLoginAt = &now
	if err := s.DB.WithContext(c.UserContext()).Model(user).Update("last_login_at", now).Error; err != nil {
		s.Logger.Warn("failed to record login", zap.String("user_id", user.ID), zap.Error(err))
	}
	token, err := s.Tokens.Issue(user.ID, user.Email, user.WalletAddress)
	if err != nil {
		s.Logger.Error("failed to issue token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "could not issue token")
	}
	return ok(c, status, AuthResult{Token: token, User: *user})
}

func newUser(method models.LoginMethod, name string) *models.User {
	return &models.User{
		ID:     "user_" + uuid.NewString(),
		Method: method,
		Name:   name,
		Stats:  models.NewUserStats(),
	}
}

// Register creates an email account.
func (s *AuthService) Register(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fail(c, fiber.StatusBadRequest, "a valid email is required")
	}
	if len(input.Password) < MinPasswordLength {
		return fail(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ? AND method_kind = ?", email, models.LoginEmail).Count(&count).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to check email")
	}
	if count > 0 {
		return fail(c, fiber.StatusConflict, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user := newUser(models.EmailMethod(), name)
	user.Email = email
	user.PasswordHash = string(hash)
	user.Profile.Username = slug.Make(name)

	if err := s.DB.Create(user).Error; err != nil {
		s.Logger.Error("failed to create user", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to create user")
	}
	s.Logger.Info("✅ registered", zap.String("user_id", user.ID))
	return s.signIn(c, fiber.StatusCreated, user)
}

// Login checks an email and password.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return fail(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	err := s.DB.Where("email = ? AND method_kind = ?", email, models.LoginEmail).First(&user).Error
	if err != nil && !notFound(err) {
		return fail(c, fiber.StatusInternalServerError, "failed to load user")
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return fail(c, fiber.StatusUnauthorized, "invalid email or password")
	}
	return s.signIn(c, fiber.StatusOK, &user)
}

// Wallet signs in with a signed login message. The account is created on
// first use.
func (s *AuthService) Wallet(c *fiber.Ctx) error {
	var input struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
		Message   string `json:"message"`
		PublicKey string `json:"public_key"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !walletAddressPattern.MatchString(input.Address) {
		return fail(c, fiber.StatusBadRequest, "invalid wallet address")
	}
	if input.Signature == "" || input.PublicKey == "" || input.Message == "" {
		return fail(c, fiber.StatusBadRequest, "signature, message and public_key are required")
	}

	address, issued, err := connectors.ParseWalletLoginMessage(input.Message)
	if err != nil || !strings.EqualFold(address, input.Address) {
		return fail(c, fiber.StatusBadRequest, "login message does not match address")
	}
	if age := s.Now().Sub(issued); age > WalletMessageMaxAge || age < -WalletMessageMaxAge {
		return fail(c, fiber.StatusUnauthorized, "login message has expired")
	}
	if err := connectors.VerifyWalletSignature(input.Address, input.PublicKey, input.Message, input.Signature); err != nil {
		s.Logger.Warn("❌ wallet signature rejected", zap.String("address", input.Address), zap.Error(err))
		return fail(c, fiber.StatusUnauthorized, "invalid wallet signature")
	}

	address = strings.ToLower(input.Address)
	var user models.User
	err = s.DB.Where("wallet_address = ? AND method_kind = ?", address, models.LoginWallet).First(&user).Error
	switch {
	case notFound(err):
		user = *newUser(models.WalletMethod(), "")
		user.WalletAddress = address
		user.Profile.Username = address[:10]
		if err := s.DB.Create(&user).Error; err != nil {
			return fail(c, fiber.StatusInternalServerError, "failed to create user")
		}
		s.Logger.Info("✅ wallet account created", zap.String("user_id", user.ID))
		return s.signIn(c, fiber.StatusCreated, &user)
	case err != nil:
		return fail(c, fiber.StatusInternalServerError, "failed to load user")
	}
	return s.signIn(c, fiber.StatusOK, &user)
}

// Social signs in with a provider credential. Provider tokens are taken as
// presented; the provider's own sign-in flow has already run on the client.
func (s *AuthService) Social(c *fiber.Ctx) error {
	var input struct {
		Provider string `json:"provider"`
		Token    string `json:"token"`
		Email    string `json:"email"`
		Name     string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	provider, err := models.ParseSocialProvider(input.Provider)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(input.Token) == "" {
		return fail(c, fiber.StatusUnauthorized, "provider token is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fail(c, fiber.StatusBadRequest, "a valid email is required")
	}

	var user models.User
	err = s.DB.Where("email = ? AND method_kind = ? AND method_provider = ?", email, models.LoginSocial, provider).First(&user).Error
	switch {
	case notFound(err):
		name := strings.TrimSpace(input.Name)
		if name == "" {
			name = provider.Title() + " User"
		}
		user = *newUser(models.SocialMethod(provider), name)
		user.Email = email
		user.Profile.Username = slug.Make(name)
		if err := s.DB.Create(&user).Error; err != nil {
			return fail(c, fiber.StatusInternalServerError, "failed to create user")
		}
		s.Logger.Info("✅ social account created", zap.String("user_id", user.ID), zap.String("provider", string(provider)))
		return s.signIn(c, fiber.StatusCreated, &user)
	case err != nil:
		return fail(c, fiber.StatusInternalServerError, "failed to load user")
	}
	return s.signIn(c, fiber.StatusOK, &user)
}

// Me returns the signed-in user.
func (s *AuthService) Me(c *fiber.Ctx) error {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID(c)).Error; err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "user not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to load user")
	}
	return ok(c, fiber.StatusOK, user)
}

func (s *AuthService) revoke(c *fiber.Ctx) error {
	tokenID, _ := c.Locals("token_id").(string)
	expires, _ := c.Locals("token_expires_at").(time.Time)
	if tokenID == "" {
		return errors.New("token has no id")
	}
	return s.DB.Create(&models.RevokedToken{TokenID: tokenID, UserID: userID(c), ExpiresAt: expires}).Error
}

// Logout revokes the presented token.
func (s *AuthService) Logout(c *fiber.Ctx) error {
	if err := s.revoke(c); err != nil {
		s.Logger.Error("failed to revoke token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to sign out")
	}
	s.Logger.Info("👋 signed out", zap.String("user_id", userID(c)))
	return ok(c, fiber.StatusOK, fiber.Map{"signed_out": true})
}

// Refresh swaps the presented token for a new one.
func (s *AuthService) Refresh(c *fiber.Ctx) error {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID(c)).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "user no longer exists")
	}
	if err := s.revoke(c); err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to refresh token")
	}
	token, err := s.Tokens.Issue(user.ID, user.Email, user.WalletAddress)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "could not issue token")
	}
	return ok(c, fiber.StatusOK, AuthResult{Token: token, User: user})
}
