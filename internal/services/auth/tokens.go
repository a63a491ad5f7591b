// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are carried by access and refresh tokens. Subject holds the id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is an access token plus the refresh token when refresh is enabled.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Tokens issues and validates HMAC signed JWTs.
type Tokens struct {
	cfg config.AuthConfig
	now func() time.Time
}

// NewTokens requires JWT_SECRET. Refresh tokens are only issued when
// JWT_REFRESH_SECRET is set.
func NewTokens(cfg config.AuthConfig) (*Tokens, error) {
	if cfg.JWTSecret == "" {
		return nil, &standarderrors.ConfigError{Key: "JWT_SECRET", Reason: "is required"}
	}
	if cfg.JWTExpiresIn <= 0 {
		cfg.JWTExpiresIn = time.Hour
	}
	if cfg.RefreshExpiresIn <= 0 {
		cfg.RefreshExpiresIn = 7 * 24 * time.Hour
	}
	return &Tokens{cfg: cfg, now: time.Now}, nil
}

// RefreshEnabled reports whether Issue returns refresh tokens.
func (t *Tokens) RefreshEnabled() bool {
	return t.cfg.RefreshSecret != ""
}

// Issue signs a token pair for subject.
func (t *Tokens) Issue(subject, email, role string) (Pair, error) {
	access, err := t.sign(subject, email, role, tokenAccess, t.cfg.JWTSecret, t.cfg.JWTExpiresIn)
	if err != nil {
		return Pair{}, err
	}
	pair := Pair{AccessToken: access}
	if t.RefreshEnabled() {
		pair.RefreshToken, err = t.sign(subject, email, role, tokenRefresh, t.cfg.RefreshSecret, t.cfg.RefreshExpiresIn)
		if err != nil {
			return Pair{}, err
		}
	}
	return pair, nil
}

func (t *Tokens) sign(subject, email, role, typ, secret string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Email: email,
		Role:  role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Validate checks an access token.
func (t *Tokens) Validate(token string) (*Claims, error) {
	return t.parse(token, t.cfg.JWTSecret, tokenAccess)
}

// ValidateRefresh checks a refresh token.
func (t *Tokens) ValidateRefresh(token string) (*Claims, error) {
	if !t.RefreshEnabled() {
		return nil, ErrInvalidToken
	}
	return t.parse(token, t.cfg.RefreshSecret, tokenRefresh)
}

func (t *Tokens) parse(token, secret, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
