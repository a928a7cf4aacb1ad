package auth

import (
	"context"
	"fmt"
	"time"

	apperrors "mailwriter/internal/errors"
	"mailwriter/internal/model"
)

// SessionManager binds browser sessions to users.
type SessionManager struct {
	jwt   *JWTService
	store SessionStoreInterface
}

// NewSessionManager creates a session manager.
func NewSessionManager(jwtService *JWTService, store SessionStoreInterface) *SessionManager {
	return &SessionManager{jwt: jwtService, store: store}
}

// Login issues a session token for user.
func (m *SessionManager) Login(user *model.User) (token string, expiresAt time.Time, err error) {
	token, claims, err := m.jwt.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// Authenticate validates a session token and rejects logged-out sessions.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (*SessionClaims, error) {
	claims, err := m.jwt.ParseSessionToken(token)
	if err != nil {
		return nil, err
	}
	if err := m.CheckActive(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// CheckActive rejects sessions that were logged out.
func (m *SessionManager) CheckActive(ctx context.Context, claims *SessionClaims) error {
	revoked, err := m.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if revoked {
		return apperrors.ErrInvalidSession
	}
	return nil
}

// Logout revokes the session for the rest of its lifetime.
func (m *SessionManager) Logout(ctx context.Context, claims *SessionClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if err := m.store.Revoke(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// JWT exposes the token service for the registration flow.
func (m *SessionManager) JWT() *JWTService {
	return m.jwt
}
