package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mailwriter/internal/auth"
	apperrors "mailwriter/internal/errors"
	"mailwriter/internal/handler"
	"mailwriter/internal/logger"
	"mailwriter/internal/mail"
	"mailwriter/internal/model"
	"mailwriter/internal/service"
	"mailwriter/internal/view"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[uint]*model.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return apperrors.ErrEmailTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *memUserRepo) MarkVerified(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[user.ID].IsVerified = true
	user.IsVerified = true
	return nil
}

func (r *memUserRepo) Save(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

type captureNotifier struct {
	status mail.SendStatus
	last   map[string]string
}

func (n *captureNotifier) SendOTP(_ context.Context, to, otp string) mail.SendStatus {
	n.last[to] = otp
	return n.status
}

type stubCompleter struct {
	reply  string
	calls  int
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.reply, nil
}

type memSessionStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (m *memSessionStore) Revoke(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = ttl
	return nil
}

func (m *memSessionStore) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

type testApp struct {
	e         *echo.Echo
	repo      *memUserRepo
	notifier  *captureNotifier
	completer *stubCompleter
}

func newTestApp(t *testing.T, opts handler.Options, policy service.AuthPolicy) *testApp {
	t.Helper()
	log := logger.Nop()
	app := &testApp{
		e:         echo.New(),
		repo:      newMemUserRepo(),
		notifier:  &captureNotifier{status: mail.StatusSent, last: make(map[string]string)},
		completer: &stubCompleter{reply: "Subject: Friday\n\nDear Recipient's Name,\nDate\nThanks,\n[Your Name]"},
	}

	sessions := auth.NewSessionManager(
		auth.NewJWTService("test-secret", time.Hour, opts.PendingTTL),
		&memSessionStore{revoked: make(map[string]time.Duration)},
	)
	authSvc := service.NewAuthService(app.repo, auth.NewPasswordHasher(bcrypt.MinCost), auth.NewOTPGenerator(),
		app.notifier, sessions, policy, log)
	emailSvc := service.NewEmailService(app.completer, log)

	renderer, err := view.New()
	require.NoError(t, err)

	Register(app.e, renderer,
		RequireAuth(sessions, app.repo, false, log),
		handler.NewAuthHandler(authSvc, opts, log),
		handler.NewUserHandler(emailSvc),
	)
	return app
}

func (a *testApp) form(path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.serve(req, cookies)
}

func (a *testApp) json(path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return a.serve(req, cookies)
}

func (a *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.serve(httptest.NewRequest(http.MethodGet, path, nil), cookies)
}

func (a *testApp) serve(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func hasLiveCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 && c.Value != "" {
			return true
		}
	}
	return false
}

var annForm = url.Values{
	"name":     {"Ann"},
	"email":    {"a@x.com"},
	"phone":    {"555-0100"},
	"password": {"s3cret"},
}

func (a *testApp) registerVerifyLogin(t *testing.T) *http.Cookie {
	t.Helper()
	rec := a.form("/register", annForm)
	require.Equal(t, http.StatusFound, rec.Code)
	pending := responseCookie(t, rec, handler.PendingCookie)

	rec = a.form("/verify", url.Values{"otp": {a.notifier.last["a@x.com"]}}, pending)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = a.form("/login", url.Values{"email": {"a@x.com"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusFound, rec.Code)
	return responseCookie(t, rec, handler.SessionCookie)
}

func TestRouter_RegisterVerifyLoginDashboard(t *testing.T) {
	app := newTestApp(t, handler.Options{}, service.AuthPolicy{})

	rec := app.form("/register", annForm)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/verify", rec.Header().Get(echo.HeaderLocation))
	pending := responseCookie(t, rec, handler.PendingCookie)
	assert.True(t, pending.HttpOnly)

	otp := app.notifier.last["a@x.com"]
	require.Len(t, otp, 6)

	stored, err := app.repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
	assert.Equal(t, otp, stored.OTP)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)

	rec = app.form("/verify", url.Values{"otp": {otp}}, pending)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	stored, err = app.repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	rec = app.form("/login", url.Values{"email": {"a@x.com"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
	session := responseCookie(t, rec, handler.SessionCookie)

	rec = app.get("/dashboard", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, Ann")
}

func TestRouter_ProtectedRoutesRedirectToLogin(t *testing.T) {
	app := newTestApp(t, handler.Options{}, service.AuthPolicy{})
	forged := &http.Cookie{Name: handler.SessionCookie, Value: "not-a-token"}

	tests := []struct {
		name string
		req  func(...*http.Cookie) *httptest.ResponseRecorder
	}{
		{"dashboard", func(c ...*http.Cookie) *httptest.ResponseRecorder { return app.get("/dashboard", c...) }},
		{"generate", func(c ...*http.Cookie) *httptest.ResponseRecorder { return app.json("/generate", `{"prompt":"hi"}`, c...) }},
		{"logout", func(c ...*http.Cookie) *httptest.ResponseRecorder { return app.get("/logout", c...) }},
	}

	for _, tt := range tests {
		t.Run(tt.name+" anonymous", func(t *testing.T) {
			rec := tt.req()
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
		})
		t.Run(tt.name+" forged cookie", func(t *testing.T) {
			rec := tt.req(forged)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
		})
	}
	assert.Zero(t, app.completer.calls)
}

func TestRouter_Generate(t *testing.T) {
	app := newTestApp(t, handler.Options{}, service.AuthPolicy{})
	session := app.registerVerifyLogin(t)

	t.Run("blank prompt makes no call", func(t *testing.T) {
		rec := app.json("/generate", `{"prompt":"   ","tone":"friendly"}`, session)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"Please enter a prompt."}`, rec.Body.String())
		assert.Zero(t, app.completer.calls)
	})

	t.Run("draft is cleaned and signed", func(t *testing.T) {
		rec := app.json("/generate", `{"prompt":"ask for Friday off"}`, session)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"Subject: Friday\n\nDear Sir/Madam,\n\nThanks,\n[Ann]"}`, rec.Body.String())
		assert.Equal(t, 1, app.completer.calls)
		assert.Contains(t, app.completer.prompt, "Write a formal professional email.")
		assert.Contains(t, app.completer.prompt, "Use the sender name: Ann")
	})

	t.Run("malformed json still answers 200", func(t *testing.T) {
		rec := app.json("/generate", `{"prompt":`, session)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"Server error while generating email."}`, rec.Body.String())
	})
}

func TestRouter_LogoutRevokesSession(t *testing.T) {
	app := newTestApp(t, handler.Options{}, service.AuthPolicy{})
	session := app.registerVerifyLogin(t)

	rec := app.get("/logout", session)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.False(t, hasLiveCookie(rec, handler.SessionCookie))

	rec = app.get("/dashboard", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestRouter_DuplicateEmailIsReported(t *testing.T) {
	app := newTestApp(t, handler.Options{}, service.AuthPolicy{})
	app.registerVerifyLogin(t)

	rec := app.form("/register", annForm)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration failed")
	assert.False(t, hasLiveCookie(rec, handler.PendingCookie))
}

func TestRouter_UnverifiedEmailCanRegisterAgain(t *testing.T) {
	for _, precheck := range []bool{false, true} {
		t.Run(fmt.Sprintf("precheck=%v", precheck), func(t *testing.T) {
			app := newTestApp(t, handler.Options{}, service.AuthPolicy{DuplicateEmailPrecheck: precheck})

			rec := app.form("/register", annForm)
			require.Equal(t, http.StatusFound, rec.Code)
			first := app.notifier.last["a@x.com"]
			pending := responseCookie(t, rec, handler.PendingCookie)
			assert.Zero(t, pending.MaxAge)

			// The first pending cookie is gone, as after a browser restart.
			again := url.Values{"name": {"Ann B"}, "email": {"a@x.com"}, "phone": {"555-0199"}, "password": {"n3w"}}
			rec = app.form("/register", again)
			require.Equal(t, http.StatusFound, rec.Code)
			pending = responseCookie(t, rec, handler.PendingCookie)
			second := app.notifier.last["a@x.com"]

			stored, err := app.repo.FindByEmail(context.Background(), "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, uint(1), stored.ID)
			assert.Equal(t, "Ann B", stored.Name)
			assert.Equal(t, second, stored.OTP)

			if first != second {
				rec = app.form("/verify", url.Values{"otp": {first}}, pending)
				assert.Equal(t, http.StatusOK, rec.Code)
			}

			rec = app.form("/verify", url.Values{"otp": {second}}, pending)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

			rec = app.form("/login", url.Values{"email": {"a@x.com"}, "password": {"n3w"}})
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
		})
	}
}

func TestRouter_MissingRegisterField(t *testing.T) {
	app := newTestApp(t, handler.Options{}, service.AuthPolicy{})

	rec := app.form("/register", url.Values{"name": {"Ann"}, "email": {"a@x.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fill in all fields.")
	assert.Empty(t, app.notifier.last)
}

func TestRouter_FailedAttemptsFeedback(t *testing.T) {
	tests := []struct {
		name     string
		opts     handler.Options
		contains string
	}{
		{name: "silent", opts: handler.Options{}},
		{name: "detailed", opts: handler.Options{DetailedFeedback: true}, contains: "Please verify your email before logging in."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.opts, service.AuthPolicy{})
			rec := app.form("/register", annForm)
			pending := responseCookie(t, rec, handler.PendingCookie)

			rec = app.form("/verify", url.Values{"otp": {"000000"}}, pending)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `name="otp"`)

			stored, err := app.repo.FindByEmail(context.Background(), "a@x.com")
			require.NoError(t, err)
			assert.False(t, stored.IsVerified)
			assert.Equal(t, app.notifier.last["a@x.com"], stored.OTP)

			rec = app.form("/login", url.Values{"email": {"a@x.com"}, "password": {"s3cret"}})
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.False(t, hasLiveCookie(rec, handler.SessionCookie))
			if tt.contains == "" {
				assert.NotContains(t, rec.Body.String(), `class="error"`)
			} else {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestRouter_SurfaceMailFailure(t *testing.T) {
	app := newTestApp(t, handler.Options{SurfaceMailFailure: true}, service.AuthPolicy{})
	app.notifier.status = mail.StatusFailed

	rec := app.form("/register", annForm)
	require.Equal(t, http.StatusFound, rec.Code)
	pending := responseCookie(t, rec, handler.PendingCookie)

	rec = app.get("/verify", pending)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We could not send the verification email.")
}

func TestRouter_PublicRoutes(t *testing.T) {
	app := newTestApp(t, handler.Options{}, service.AuthPolicy{})

	rec := app.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = app.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	for _, path := range []string{"/register", "/verify", "/login"} {
		assert.Equal(t, http.StatusOK, app.get(path).Code, path)
	}
}
