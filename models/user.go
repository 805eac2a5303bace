package models

import (
	"time"
)

// User is the backend account record. One account per wallet address,
// social email or email login.
type User struct {
	ID            string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Method        LoginMethod `gorm:"embedded;embeddedPrefix:method_" json:"method"`
	Email         string      `gorm:"index" json:"email,omitempty"`
	WalletAddress string      `gorm:"index" json:"wallet_address,omitempty"`
	Name          string      `json:"name,omitempty"`
	PasswordHash  string      `json:"-"`
	Profile       UserProfile `gorm:"embedded;embeddedPrefix:profile_" json:"profile"`
	Stats         UserStats   `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	CreatedAt     time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
}

// RevokedToken records a logged-out token until it would have expired anyway.
type RevokedToken struct {
	TokenID   string    `gorm:"primaryKey;size:26"`
	UserID    string    `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
}

type UserProfile struct {
	Username string `json:"username,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Identity converts the account into the client-facing identity.
func (u User) Identity() Identity {
	id := Identity{ID: u.ID, Method: u.Method, Name: u.Name}
	if u.Method.Kind == LoginWallet {
		id.Address = u.WalletAddress
	} else {
		id.Email = u.Email
	}
	return id
}
