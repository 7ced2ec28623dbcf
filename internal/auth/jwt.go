// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/models"
)

// ErrInvalidToken is returned for any token that cannot be turned into an
// identity: malformed, expired, wrongly signed, or missing a subject.
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator turns a bearer token into an authenticated identity.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (models.Identity, error)
}

// Claims are the JWT claims issued by the platform backend. The user ID
// travels in the standard "sub" claim.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager validates HS256 tokens and, for tooling and tests, issues them.
type JWTManager struct {
	secret     []byte
	timeout    time.Duration
	adminUsers map[string]struct{}
	names      *NameCache
}

// NewJWTManager creates a JWT manager from security configuration. Names
// seen in valid tokens are recorded in names when it is non-nil.
//
//	jwtManager, err := auth.NewJWTManager(&cfg.Security, directory)
func NewJWTManager(cfg *config.SecurityConfig, names *NameCache) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	admins := make(map[string]struct{}, len(cfg.AdminUsers))
	for _, id := range cfg.AdminUsers {
		admins[id] = struct{}{}
	}

	return &JWTManager{
		secret:     []byte(cfg.JWTSecret),
		timeout:    cfg.SessionTimeout,
		adminUsers: admins,
		names:      names,
	}, nil
}

// GenerateToken signs a token for userID with the given display name and role.
func (m *JWTManager) GenerateToken(userID, name string, role models.Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: name,
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm and time claims and returns
// the parsed claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	return claims, nil
}

// Validate implements TokenValidator. Users listed in the admin allow-list
// are admins whatever their role claim says; any other role than "admin"
// is treated as an end-user.
func (m *JWTManager) Validate(_ context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		return models.Identity{}, err
	}
	if claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	role := models.RoleUser
	if _, ok := m.adminUsers[claims.Subject]; ok || models.Role(claims.Role) == models.RoleAdmin {
		role = models.RoleAdmin
	}

	id := models.Identity{UserID: claims.Subject, Role: role, Name: claims.Name}
	if m.names != nil && id.Name != "" {
		m.names.Remember(id.UserID, id.Name)
	}
	return id, nil
}
