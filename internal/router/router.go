package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"mailwriter/internal/auth"
	"mailwriter/internal/handler"
	"mailwriter/internal/repository"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	renderer echo.Renderer,
	requireAuth echo.MiddlewareFunc,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}
	e.Renderer = renderer

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public pages
	e.GET("/", authHandler.Home)
	e.GET("/register", authHandler.RegisterPage)
	e.POST("/register", authHandler.Register)
	e.GET("/verify", authHandler.VerifyPage)
	e.POST("/verify", authHandler.Verify)
	e.GET("/login", authHandler.LoginPage)
	e.POST("/login", authHandler.Login)

	// Session required
	secured := e.Group("", requireAuth)
	secured.GET("/dashboard", userHandler.Dashboard)
	secured.POST("/generate", userHandler.Generate)
	secured.GET("/logout", authHandler.Logout)
}

// RequireAuth admits requests carrying a live session cookie and loads the
// session's user. Anything else is sent to the login page.
func RequireAuth(sessions *auth.SessionManager, users repository.UserRepository, secureCookies bool, log *zap.SugaredLogger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + handler.SessionCookie,
		ContextKey:  handler.ContextSessionKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			ctx := c.Request().Context()
			claims, err := sessions.Authenticate(ctx, token)
			if err != nil {
				return nil, err
			}
			user, err := users.FindByID(ctx, claims.UserID)
			if err != nil {
				return nil, err
			}
			c.Set(handler.ContextUserKey, user)
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if _, cerr := c.Cookie(handler.SessionCookie); cerr == nil {
				log.Debugw("session rejected", "path", c.Path(), "error", err)
				handler.ClearSessionCookie(c, secureCookies)
			}
			return c.Redirect(http.StatusFound, "/login")
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
