package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "mailwriter/internal/errors"
	"mailwriter/internal/service"
	"mailwriter/internal/view"
)

const (
	missingFieldsMessage = "Please fill in all fields."
	mailFailedWarning    = "We could not send the verification email. Please check the address or register again later."
)

// Options tune what the auth pages reveal and how cookies are issued.
type Options struct {
	// DetailedFeedback explains failed login and verify attempts.
	DetailedFeedback bool
	// SurfaceMailFailure warns on the verify page when the OTP mail was not sent.
	SurfaceMailFailure bool
	SecureCookies      bool
	// PendingTTL bounds the pending-registration cookie. Zero makes it a browser-session cookie.
	PendingTTL time.Duration
}

// AuthHandler serves the registration, verification, login, and logout pages.
type AuthHandler struct {
	authService service.AuthService
	opts        Options
	log         *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, opts Options, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{authService: authService, opts: opts, log: log}
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Name     string `form:"name" validate:"required"`
	Email    string `form:"email" validate:"required"`
	Phone    string `form:"phone" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// VerifyRequest is the OTP form.
type VerifyRequest struct {
	OTP string `form:"otp" validate:"required"`
}

// LoginRequest is the login form.
type LoginRequest struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// Home redirects to the login page.
func (h *AuthHandler) Home(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/login")
}

// RegisterPage renders the empty registration form.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, view.RegisterPage, view.FormData{})
}

// Register creates an unverified user and sends the OTP mail.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	values := func() map[string]string {
		return map[string]string{"name": req.Name, "email": req.Email, "phone": req.Phone}
	}
	if err := bindForm(c, &req); err != nil {
		return c.Render(http.StatusBadRequest, view.RegisterPage, view.FormData{Error: missingFieldsMessage, Values: values()})
	}

	result, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		if apperrors.IsFormError(err) {
			return c.Render(apperrors.FormStatus(err), view.RegisterPage, view.FormData{
				Error:  apperrors.FormMessage(err),
				Values: values(),
			})
		}
		return h.internal(err, "registration failed")
	}

	var expires time.Time
	if h.opts.PendingTTL > 0 {
		expires = time.Now().Add(h.opts.PendingTTL)
	}
	setCookie(c, PendingCookie, result.PendingToken, expires, h.opts.SecureCookies)
	return c.Redirect(http.StatusFound, "/verify")
}

// VerifyPage renders the OTP form.
func (h *AuthHandler) VerifyPage(c echo.Context) error {
	return c.Render(http.StatusOK, view.VerifyPage, view.FormData{Warning: h.mailWarning(c)})
}

// Verify checks the submitted OTP for the pending registration.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := bindForm(c, &req); err != nil {
		return c.Render(http.StatusOK, view.VerifyPage, view.FormData{Warning: h.mailWarning(c), Error: h.feedback(apperrors.ErrInvalidOTP)})
	}

	err := h.authService.Verify(c.Request().Context(), cookieValue(c, PendingCookie), req.OTP)
	if err != nil {
		if apperrors.IsFormError(err) {
			return c.Render(apperrors.FormStatus(err), view.VerifyPage, view.FormData{
				Warning: h.mailWarning(c),
				Error:   h.feedback(err),
			})
		}
		return h.internal(err, "verification failed")
	}

	clearCookie(c, PendingCookie, h.opts.SecureCookies)
	return c.Redirect(http.StatusFound, "/login")
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, view.LoginPage, view.FormData{})
}

// Login opens a session for a verified user.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindForm(c, &req); err != nil {
		return c.Render(http.StatusOK, view.LoginPage, view.FormData{
			Error:  h.feedback(apperrors.ErrInvalidCredentials),
			Values: map[string]string{"email": req.Email},
		})
	}

	token, expiresAt, _, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if apperrors.IsFormError(err) {
			return c.Render(apperrors.FormStatus(err), view.LoginPage, view.FormData{
				Error:  h.feedback(err),
				Values: map[string]string{"email": req.Email},
			})
		}
		return h.internal(err, "login failed")
	}

	setCookie(c, SessionCookie, token, expiresAt, h.opts.SecureCookies)
	return c.Redirect(http.StatusFound, "/dashboard")
}

// Logout ends the session and returns to the login page.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), CurrentSession(c)); err != nil {
		h.log.Warnw("logout revoke failed", "error", err)
	}
	ClearSessionCookie(c, h.opts.SecureCookies)
	return c.Redirect(http.StatusFound, "/login")
}

// feedback is empty in silent mode.
func (h *AuthHandler) feedback(err error) string {
	if !h.opts.DetailedFeedback {
		return ""
	}
	return apperrors.FormMessage(err)
}

func (h *AuthHandler) mailWarning(c echo.Context) string {
	if !h.opts.SurfaceMailFailure {
		return ""
	}
	pending, err := h.authService.Pending(cookieValue(c, PendingCookie))
	if err != nil || !pending.MailFailed {
		return ""
	}
	return mailFailedWarning
}

func (h *AuthHandler) internal(err error, msg string) error {
	h.log.Errorw(msg, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
		Error: msg,
		Code:  "INTERNAL_ERROR",
	}).SetInternal(err)
}

func bindForm(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
