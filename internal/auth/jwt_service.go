package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "mailwriter/internal/errors"
)

const (
	// AudienceSession marks tokens that identify a logged-in user.
	AudienceSession = "session"
	// AudienceRegistration marks tokens that carry a pending registrant's email.
	AudienceRegistration = "registration"
)

// SessionClaims identify the authenticated principal. ID (jti) is the session id.
type SessionClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RegistrationClaims carry the email awaiting OTP confirmation.
type RegistrationClaims struct {
	Email      string `json:"email"`
	MailFailed bool   `json:"mail_failed,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and validates session and registration tokens.
type JWTService struct {
	secret     []byte
	sessionTTL time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a JWT service with the given secret and lifetimes.
func NewJWTService(secret string, sessionTTL, pendingTTL time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

// SessionTTL returns the lifetime of session tokens.
func (s *JWTService) SessionTTL() time.Duration { return s.sessionTTL }

// PendingTTL returns the lifetime of registration tokens. Zero means they do not expire.
func (s *JWTService) PendingTTL() time.Duration { return s.pendingTTL }

// GenerateSessionToken issues a session token with a fresh session id.
func (s *JWTService) GenerateSessionToken(userID uint, email string) (string, *SessionClaims, error) {
	now := s.now()
	claims := &SessionClaims{
		UserID:           userID,
		Email:            email,
		RegisteredClaims: s.registered(AudienceSession, uuid.New().String(), now, s.sessionTTL),
	}
	token, err := s.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// ParseSessionToken validates a session token and returns its claims.
func (s *JWTService) ParseSessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(tokenString, claims, AudienceSession, jwt.WithExpirationRequired()); err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, apperrors.ErrInvalidSession
	}
	return claims, nil
}

// GenerateRegistrationToken issues a short-lived token naming the pending registrant.
func (s *JWTService) GenerateRegistrationToken(email string, mailFailed bool) (string, error) {
	claims := &RegistrationClaims{
		Email:            email,
		MailFailed:       mailFailed,
		RegisteredClaims: s.registered(AudienceRegistration, uuid.New().String(), s.now(), s.pendingTTL),
	}
	return s.sign(claims)
}

// ParseRegistrationToken validates a registration token and returns its claims.
func (s *JWTService) ParseRegistrationToken(tokenString string) (*RegistrationClaims, error) {
	claims := &RegistrationClaims{}
	if err := s.parse(tokenString, claims, AudienceRegistration); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, apperrors.ErrInvalidSession
	}
	return claims, nil
}

// registered builds the standard claims. A zero ttl leaves out exp.
func (s *JWTService) registered(audience, id string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		ID:        id,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return claims
}

func (s *JWTService) sign(claims jwt.Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, audience string, extra ...jwt.ParserOption) error {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	}, extra...)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidSession, err)
	}
	return nil
}
