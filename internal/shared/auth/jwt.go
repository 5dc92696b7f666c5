// Package auth issues and verifies the HS256 access/refresh token pair.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	devSecret = "dev-secret"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the subject of a token.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Picture string
}

// Claims represents the identity contained in a JWT.
type Claims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

// Identity returns the subject as an Identity.
func (c Claims) Identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Name: c.Name, Picture: c.Picture}
}

// Pair is the token response for a successful login.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer builds an Issuer. An empty secret falls back to a fixed dev
// secret; config validation rejects that outside development.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		secret = devSecret
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// Issue returns a fresh access/refresh pair for id.
func (i *Issuer) Issue(id Identity) (Pair, error) {
	access, err := i.Sign(id, TypeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.Sign(id, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Sign issues a single token of the given type.
func (i *Issuer) Sign(id Identity, typ string) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", errors.New("sub is required")
	}
	ttl := i.accessTTL
	if typ == TypeRefresh {
		ttl = i.refreshTTL
	}
	now := i.now().UTC()
	claims := Claims{
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token of any type.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess is Verify restricted to access tokens.
func (i *Issuer) VerifyAccess(token string) (Claims, error) {
	return i.verifyType(token, TypeAccess)
}

// Refresh exchanges a refresh token for a new access token.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	claims, err := i.verifyType(refreshToken, TypeRefresh)
	if err != nil {
		return "", err
	}
	return i.Sign(claims.Identity(), TypeAccess)
}

func (i *Issuer) verifyType(token, typ string) (Claims, error) {
	claims, err := i.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != typ {
		return Claims{}, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	return claims, nil
}
