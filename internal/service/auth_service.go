package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailwriter/internal/auth"
	apperrors "mailwriter/internal/errors"
	"mailwriter/internal/mail"
	"mailwriter/internal/model"
	"mailwriter/internal/repository"
)

// AuthPolicy holds the tunable parts of the registration flow.
type AuthPolicy struct {
	// OTPTTL bounds the age of a code at verification time. Zero disables expiry.
	OTPTTL time.Duration
	// DuplicateEmailPrecheck looks the email up before hashing the password.
	DuplicateEmailPrecheck bool
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// RegisterResult describes a created, unverified user.
type RegisterResult struct {
	User         *model.User
	MailStatus   mail.SendStatus
	PendingToken string
}

// AuthService handles registration, OTP verification, and login.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Pending(pendingToken string) (*auth.RegistrationClaims, error)
	Verify(ctx context.Context, pendingToken, otp string) error
	Login(ctx context.Context, email, password string) (token string, expiresAt time.Time, user *model.User, err error)
	Logout(ctx context.Context, claims *auth.SessionClaims) error
}

type authService struct {
	users    repository.UserRepository
	hasher   auth.PasswordHasher
	otp      auth.OTPGenerator
	notifier mail.Notifier
	sessions *auth.SessionManager
	policy   AuthPolicy
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	otp auth.OTPGenerator,
	notifier mail.Notifier,
	sessions *auth.SessionManager,
	policy AuthPolicy,
	log *zap.SugaredLogger,
) AuthService {
	return &authService{
		users:    users,
		hasher:   hasher,
		otp:      otp,
		notifier: notifier,
		sessions: sessions,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
}

// Register stores an unverified user and mails the OTP. A failed mail does not
// undo the registration; the outcome is reported in MailStatus. Registering an
// email that is still unverified replaces the stored details and issues a new code.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	var existing *model.User
	if s.policy.DuplicateEmailPrecheck {
		user, err := s.unverified(ctx, in.Email)
		if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		existing = user
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := s.otp.Generate()
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: digest,
		OTP:          code,
		OTPIssuedAt:  &issuedAt,
	}
	if existing == nil {
		err = s.users.Create(ctx, user)
		if errors.Is(err, apperrors.ErrEmailTaken) {
			existing, err = s.unverified(ctx, in.Email)
			if errors.Is(err, apperrors.ErrUserNotFound) {
				err = apperrors.ErrEmailTaken
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if existing != nil {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		if err := s.users.Save(ctx, user); err != nil {
			return nil, err
		}
		s.log.Infow("registration reissued", "user_id", user.ID)
	}

	status := s.notifier.SendOTP(ctx, user.Email, code)

	token, err := s.sessions.JWT().GenerateRegistrationToken(user.Email, status != mail.StatusSent)
	if err != nil {
		return nil, err
	}

	s.log.Infow("user registered", "user_id", user.ID, "mail", status.String())
	return &RegisterResult{User: user, MailStatus: status, PendingToken: token}, nil
}

// unverified returns the stored user for email when it has not been verified
// yet, and ErrEmailTaken when it has.
func (s *authService) unverified(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if user.IsVerified {
		return nil, apperrors.ErrEmailTaken
	}
	return user, nil
}

// Pending decodes the pending-registration token.
func (s *authService) Pending(pendingToken string) (*auth.RegistrationClaims, error) {
	if pendingToken == "" {
		return nil, apperrors.ErrInvalidSession
	}
	return s.sessions.JWT().ParseRegistrationToken(pendingToken)
}

// Verify checks otp against the pending registrant's stored code and marks
// the user verified on an exact match.
func (s *authService) Verify(ctx context.Context, pendingToken, otp string) error {
	pending, err := s.Pending(pendingToken)
	if err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, pending.Email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return apperrors.ErrInvalidSession
	}
	if err != nil {
		return err
	}
	if user.OTPExpired(s.policy.OTPTTL, s.now()) {
		return apperrors.ErrOTPExpired
	}
	if user.OTP == "" || user.OTP != otp {
		return apperrors.ErrInvalidOTP
	}

	if err := s.users.MarkVerified(ctx, user); err != nil {
		return err
	}
	s.log.Infow("user verified", "user_id", user.ID)
	return nil
}

// Login authenticates a verified user and opens a session.
func (s *authService) Login(ctx context.Context, email, password string) (string, time.Time, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return "", time.Time{}, nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", time.Time{}, nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return "", time.Time{}, nil, apperrors.ErrNotVerified
	}

	token, expiresAt, err := s.sessions.Login(user)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, user, nil
}

// Logout ends the session.
func (s *authService) Logout(ctx context.Context, claims *auth.SessionClaims) error {
	return s.sessions.Logout(ctx, claims)
}
