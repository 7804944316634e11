package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/viewtube/viewtube/internal/config"
)

// Sentinel errors returned by token verification. Both map to 401 at the
// request boundary; callers that care (tests, logs) can tell them apart.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// AccessClaims are the claims carried by a short-lived access token. Subject
// holds the user ID; username and email ride along so request handling can
// identify the caller without a database read.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RefreshClaims are the claims carried by a long-lived refresh token. Only
// the user ID (Subject) plus a random token ID are encoded; everything else
// is looked up at refresh time. The token ID makes every issuance unique:
// iat/exp have second granularity, so without it two tokens minted in the
// same second would be byte-identical and rotation would be a no-op.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the two session token kinds. Access and
// refresh tokens are signed with distinct HS256 secrets and distinct TTLs.
// All methods are pure over their inputs plus the wall clock.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenIssuer creates an issuer from the injected token config.
func NewTokenIssuer(cfg config.TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// IssueAccess mints a signed access token for the given user.
func (i *TokenIssuer) IssueAccess(user *User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		Username: user.Username,
		Email:    user.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh mints a signed refresh token bound to the given user ID.
func (i *TokenIssuer) IssueRefresh(userID string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// IssuePair mints a fresh access+refresh pair for the user.
func (i *TokenIssuer) IssuePair(user *User) (*TokenPair, error) {
	access, err := i.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := i.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token's signature and expiry and returns
// its claims. Returns ErrTokenExpired or ErrTokenInvalid.
func (i *TokenIssuer) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(raw, claims, i.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns the encoded user ID.
func (i *TokenIssuer) VerifyRefresh(raw string) (string, error) {
	claims := &RefreshClaims{}
	if err := i.verify(raw, claims, i.refreshSecret); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// verify parses raw into claims using the given secret, pinning the signing
// method to HS256 so an attacker can't downgrade the algorithm.
func (i *TokenIssuer) verify(raw string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
