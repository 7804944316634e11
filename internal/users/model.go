// Package users handles user accounts, credentials, and session tokens for
// viewtube: registration, login/logout, JWT access/refresh issuance with
// refresh-token rotation, password changes, and profile/avatar updates.
package users

import (
	"time"
)

// User represents a registered viewtube account. This is the domain model
// used throughout the application. Database scanning and JSON marshaling use
// this struct directly; credential fields are never serialized.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullname"`
	PasswordHash   string    `json:"-"` // Never expose in JSON responses.
	AvatarURL      string    `json:"avatar"`
	AvatarPublicID string    `json:"-"`
	CoverURL       *string   `json:"coverImage,omitempty"`
	CoverPublicID  *string   `json:"-"`
	RefreshToken   *string   `json:"-"` // Single currently-valid refresh token.
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TokenPair is an access/refresh token pair issued at login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// --- Login identifier ---

// IdentifierKind discriminates how a login request names the account.
type IdentifierKind int

const (
	// ByUsername means the identifier value is a username.
	ByUsername IdentifierKind = iota
	// ByEmail means the identifier value is an email address.
	ByEmail
)

// Identifier is the resolved "username or email" login input. The handler
// resolves the loosely-typed request body into this tagged form so the
// service never guesses which field was meant.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the JSON login body. Exactly one of Username or Email
// must be set; the handler resolves them into an Identifier.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest holds the JSON refresh body, used when the refresh token is
// not presented as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest holds the JSON change-password body.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateAccountRequest holds the JSON update-account body. Both fields are
// required.
type UpdateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

// --- Service input DTOs (passed from handler to service) ---

// FileUpload is an in-memory uploaded file, already read off the wire.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RegisterInput is the input for creating a new account. Avatar is required;
// Cover is optional (nil means none supplied).
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
	Avatar   *FileUpload
	Cover    *FileUpload
}

// LoginInput is the input for authenticating a user.
type LoginInput struct {
	Identifier Identifier
	Password   string
}
